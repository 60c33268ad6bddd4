package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Algorithm represents an encryption algorithm
type Algorithm uint8

const (
	// AlgorithmNone disables encryption
	AlgorithmNone Algorithm = iota
	// AlgorithmAES256GCM uses AES-256 in GCM mode (recommended)
	AlgorithmAES256GCM
	// AlgorithmAES256CTR uses AES-256 in CTR mode
	AlgorithmAES256CTR
)

// String returns the string representation of the algorithm
func (a Algorithm) String() string {
	switch a {
	case AlgorithmNone:
		return "none"
	case AlgorithmAES256GCM:
		return "aes-256-gcm"
	case AlgorithmAES256CTR:
		return "aes-256-ctr"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps a configuration string to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "", "none":
		return AlgorithmNone, nil
	case "aes-256-gcm":
		return AlgorithmAES256GCM, nil
	case "aes-256-ctr":
		return AlgorithmAES256CTR, nil
	default:
		return AlgorithmNone, fmt.Errorf("unknown encryption algorithm %q", name)
	}
}

const (
	keySize   = 32
	nonceSize = 12 // GCM nonce
	ivSize    = 16 // CTR initialization vector

	// pbkdf2Iterations balances derivation cost against open latency
	pbkdf2Iterations = 100000
)

// Config holds encryption configuration
type Config struct {
	Algorithm Algorithm
	Key       []byte // Encryption key (32 bytes for AES-256)
	Salt      []byte // Salt used when the key was derived from a password
}

// DefaultConfig returns a default encryption configuration (no encryption)
func DefaultConfig() *Config {
	return &Config{
		Algorithm: AlgorithmNone,
	}
}

// NewConfigFromPassword creates a config with a key derived from password via PBKDF2
func NewConfigFromPassword(password string, algorithm Algorithm) (*Config, error) {
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}

	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keySize, sha256.New)

	return &Config{
		Algorithm: algorithm,
		Key:       key,
		Salt:      salt,
	}, nil
}

// NewConfigFromPasswordAndSalt re-derives a key for an existing data file.
func NewConfigFromPasswordAndSalt(password string, salt []byte, algorithm Algorithm) (*Config, error) {
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("salt cannot be empty")
	}

	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keySize, sha256.New)

	return &Config{
		Algorithm: algorithm,
		Key:       key,
		Salt:      salt,
	}, nil
}

// NewConfigFromKey creates a config with an explicit encryption key
func NewConfigFromKey(key []byte, algorithm Algorithm) (*Config, error) {
	if algorithm != AlgorithmNone && len(key) != keySize {
		return nil, fmt.Errorf("key must be %d bytes for AES-256, got %d", keySize, len(key))
	}

	return &Config{
		Algorithm: algorithm,
		Key:       key,
	}, nil
}

// Encryptor encrypts and decrypts byte blocks
type Encryptor struct {
	config *Config
	block  cipher.Block
	gcm    cipher.AEAD
}

// NewEncryptor creates a new encryptor with the given configuration
func NewEncryptor(config *Config) (*Encryptor, error) {
	if config == nil {
		config = DefaultConfig()
	}

	e := &Encryptor{config: config}

	if config.Algorithm == AlgorithmNone {
		return e, nil
	}

	block, err := aes.NewCipher(config.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	e.block = block

	if config.Algorithm == AlgorithmAES256GCM {
		gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCM: %w", err)
		}
		e.gcm = gcm
	}

	return e, nil
}

// Algorithm returns the configured algorithm.
func (e *Encryptor) Algorithm() Algorithm {
	return e.config.Algorithm
}

// Encrypt encrypts data. The output carries the nonce (GCM) or IV (CTR) as a
// prefix so each block is self-contained.
func (e *Encryptor) Encrypt(data []byte) ([]byte, error) {
	switch e.config.Algorithm {
	case AlgorithmNone:
		return data, nil

	case AlgorithmAES256GCM:
		nonce := make([]byte, nonceSize)
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return nil, fmt.Errorf("failed to generate nonce: %w", err)
		}
		return e.gcm.Seal(nonce, nonce, data, nil), nil

	case AlgorithmAES256CTR:
		iv := make([]byte, ivSize)
		if _, err := io.ReadFull(rand.Reader, iv); err != nil {
			return nil, fmt.Errorf("failed to generate IV: %w", err)
		}
		out := make([]byte, ivSize+len(data))
		copy(out, iv)
		stream := cipher.NewCTR(e.block, iv)
		stream.XORKeyStream(out[ivSize:], data)
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported encryption algorithm: %v", e.config.Algorithm)
	}
}

// Decrypt reverses Encrypt.
func (e *Encryptor) Decrypt(data []byte) ([]byte, error) {
	switch e.config.Algorithm {
	case AlgorithmNone:
		return data, nil

	case AlgorithmAES256GCM:
		if len(data) < nonceSize {
			return nil, fmt.Errorf("ciphertext too short: %d bytes", len(data))
		}
		nonce, ciphertext := data[:nonceSize], data[nonceSize:]
		plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt: %w", err)
		}
		return plaintext, nil

	case AlgorithmAES256CTR:
		if len(data) < ivSize {
			return nil, fmt.Errorf("ciphertext too short: %d bytes", len(data))
		}
		iv, ciphertext := data[:ivSize], data[ivSize:]
		out := make([]byte, len(ciphertext))
		stream := cipher.NewCTR(e.block, iv)
		stream.XORKeyStream(out, ciphertext)
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported encryption algorithm: %v", e.config.Algorithm)
	}
}
