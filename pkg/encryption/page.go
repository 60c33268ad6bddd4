package encryption

import (
	"encoding/binary"
	"fmt"
)

const (
	// pageHeaderSize is the size of the encrypted page header:
	// [1-byte algorithm][4-byte original size]
	pageHeaderSize = 5

	// encryptionOverhead is the worst-case growth from encryption:
	// GCM adds a 12-byte nonce and a 16-byte auth tag; CTR adds a 16-byte IV.
	encryptionOverhead = nonceSize + 16
)

// PageCodec encrypts page images on their way to disk. It satisfies the
// storage engine's codec interface and chains behind a compression codec.
type PageCodec struct {
	encryptor *Encryptor
}

// NewPageCodec creates a page codec using the given encryption configuration.
func NewPageCodec(config *Config) (*PageCodec, error) {
	encryptor, err := NewEncryptor(config)
	if err != nil {
		return nil, err
	}
	return &PageCodec{encryptor: encryptor}, nil
}

// Name identifies the codec by its algorithm.
func (pc *PageCodec) Name() string {
	return pc.encryptor.Algorithm().String()
}

// Overhead is the header plus the cipher's worst-case growth.
func (pc *PageCodec) Overhead() int {
	return pageHeaderSize + encryptionOverhead
}

// Encode encrypts src and prepends the page header.
func (pc *PageCodec) Encode(src []byte) ([]byte, error) {
	encrypted, err := pc.encryptor.Encrypt(src)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt page: %w", err)
	}

	result := make([]byte, pageHeaderSize+len(encrypted))
	result[0] = byte(pc.encryptor.Algorithm())
	binary.LittleEndian.PutUint32(result[1:5], uint32(len(src)))
	copy(result[pageHeaderSize:], encrypted)
	return result, nil
}

// Decode reverses Encode, returning the original page image.
func (pc *PageCodec) Decode(src []byte) ([]byte, error) {
	if len(src) < pageHeaderSize {
		return nil, fmt.Errorf("invalid encrypted page: %d bytes is shorter than the header", len(src))
	}

	algorithm := Algorithm(src[0])
	if algorithm != pc.encryptor.Algorithm() {
		return nil, fmt.Errorf("encryption algorithm mismatch: expected %v, got %v",
			pc.encryptor.Algorithm(), algorithm)
	}

	originalSize := binary.LittleEndian.Uint32(src[1:5])
	decrypted, err := pc.encryptor.Decrypt(src[pageHeaderSize:])
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt page: %w", err)
	}
	if len(decrypted) != int(originalSize) {
		return nil, fmt.Errorf("decrypted size mismatch: expected %d, got %d",
			originalSize, len(decrypted))
	}
	return decrypted, nil
}
