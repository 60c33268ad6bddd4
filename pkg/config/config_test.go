package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mira.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: /tmp/mira-data
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/mira-data", cfg.Storage.DataDir)
	assert.Equal(t, 1024, cfg.Storage.PoolSize)
	assert.Equal(t, 2, cfg.Storage.ReplacerK)
	assert.Equal(t, "none", cfg.Compression.Algorithm)
	assert.Equal(t, "none", cfg.Encryption.Algorithm)
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: ./data
  pool_size: 64
  replacer_k: 3
compression:
  algorithm: zstd
  level: 5
encryption:
  algorithm: aes-256-gcm
  password: hunter2
metrics:
  addr: 127.0.0.1:9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Storage.PoolSize)
	assert.Equal(t, 3, cfg.Storage.ReplacerK)
	assert.Equal(t, "zstd", cfg.Compression.Algorithm)
	assert.Equal(t, 5, cfg.Compression.Level)
	assert.Equal(t, "aes-256-gcm", cfg.Encryption.Algorithm)
	assert.Equal(t, "127.0.0.1:9090", cfg.Metrics.Addr)
}

func TestLoadRequiresDataDir(t *testing.T) {
	path := writeConfig(t, `
compression:
  algorithm: zstd
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data_dir")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestStorageConfigBuildsCodecChain(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: ./data
compression:
  algorithm: snappy
encryption:
  algorithm: aes-256-ctr
  password: secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	sc, err := cfg.StorageConfig()
	require.NoError(t, err)
	require.NotNil(t, sc.Codec)
	assert.Equal(t, "snappy+aes-256-ctr", sc.Codec.Name())
}

func TestStorageConfigNoCodecs(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: ./data
  pool_size: 8
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	sc, err := cfg.StorageConfig()
	require.NoError(t, err)
	assert.Nil(t, sc.Codec)
	assert.Equal(t, 8, sc.PoolSize)
}

func TestStorageConfigRejectsBadAlgorithms(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: ./data
compression:
  algorithm: brotli
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.StorageConfig()
	require.Error(t, err)
}

func TestStorageConfigEncryptionNeedsPassword(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: ./data
encryption:
  algorithm: aes-256-gcm
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.StorageConfig()
	require.Error(t, err)
}
