package compression

import (
	"encoding/binary"
	"fmt"
)

const (
	// pageHeaderSize is the size of the compressed page header:
	// [1-byte algorithm][4-byte original size][4-byte payload size]
	pageHeaderSize = 9
)

// PageCodec compresses page images on their way to disk. It satisfies the
// storage engine's codec interface. Pages that do not shrink under the
// configured algorithm are stored raw with a none marker, so Encode never
// grows its input by more than the header.
type PageCodec struct {
	compressor *Compressor
}

// NewPageCodec creates a page codec using the given compression configuration.
func NewPageCodec(config *Config) (*PageCodec, error) {
	compressor, err := NewCompressor(config)
	if err != nil {
		return nil, err
	}
	return &PageCodec{compressor: compressor}, nil
}

// Name identifies the codec by its algorithm.
func (pc *PageCodec) Name() string {
	return pc.compressor.Algorithm().String()
}

// Overhead is the header prepended to every stored page.
func (pc *PageCodec) Overhead() int {
	return pageHeaderSize
}

// Encode compresses src and prepends the page header.
func (pc *PageCodec) Encode(src []byte) ([]byte, error) {
	compressed, err := pc.compressor.Compress(src)
	if err != nil {
		return nil, fmt.Errorf("failed to compress page: %w", err)
	}

	algorithm := pc.compressor.Algorithm()
	if len(compressed) >= len(src) {
		// Incompressible page; store raw
		algorithm = AlgorithmNone
		compressed = src
	}

	result := make([]byte, pageHeaderSize+len(compressed))
	result[0] = byte(algorithm)
	binary.LittleEndian.PutUint32(result[1:5], uint32(len(src)))
	binary.LittleEndian.PutUint32(result[5:9], uint32(len(compressed)))
	copy(result[pageHeaderSize:], compressed)
	return result, nil
}

// Decode reverses Encode, returning the original page image.
func (pc *PageCodec) Decode(src []byte) ([]byte, error) {
	if len(src) < pageHeaderSize {
		return nil, fmt.Errorf("invalid compressed page: %d bytes is shorter than the header", len(src))
	}

	algorithm := Algorithm(src[0])
	originalSize := binary.LittleEndian.Uint32(src[1:5])
	payloadSize := binary.LittleEndian.Uint32(src[5:9])

	if len(src)-pageHeaderSize != int(payloadSize) {
		return nil, fmt.Errorf("compressed page payload mismatch: expected %d bytes, got %d",
			payloadSize, len(src)-pageHeaderSize)
	}

	payload := src[pageHeaderSize:]
	if algorithm == AlgorithmNone {
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	}

	if algorithm != pc.compressor.Algorithm() {
		return nil, fmt.Errorf("compression algorithm mismatch: expected %v, got %v",
			pc.compressor.Algorithm(), algorithm)
	}

	decompressed, err := pc.compressor.Decompress(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress page: %w", err)
	}
	if len(decompressed) != int(originalSize) {
		return nil, fmt.Errorf("decompressed size mismatch: expected %d, got %d",
			originalSize, len(decompressed))
	}
	return decompressed, nil
}
