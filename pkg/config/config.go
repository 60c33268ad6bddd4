// Package config loads engine configuration from a YAML file and builds the
// storage configuration, including the on-disk page codec chain.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/mnohosten/mira-db/pkg/compression"
	"github.com/mnohosten/mira-db/pkg/encryption"
	"github.com/mnohosten/mira-db/pkg/storage"
)

// FileConfig mirrors the YAML configuration file.
type FileConfig struct {
	Storage struct {
		DataDir   string `mapstructure:"data_dir"`
		PoolSize  int    `mapstructure:"pool_size"`
		ReplacerK int    `mapstructure:"replacer_k"`
	} `mapstructure:"storage"`
	Compression struct {
		Algorithm string `mapstructure:"algorithm"`
		Level     int    `mapstructure:"level"`
	} `mapstructure:"compression"`
	Encryption struct {
		Algorithm string `mapstructure:"algorithm"`
		Password  string `mapstructure:"password"`
	} `mapstructure:"encryption"`
	Metrics struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"metrics"`
}

// Load reads the configuration file at path.
func Load(path string) (*FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("storage.pool_size", 1024)
	v.SetDefault("storage.replacer_k", 2)
	v.SetDefault("compression.algorithm", "none")
	v.SetDefault("compression.level", 3)
	v.SetDefault("encryption.algorithm", "none")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg FileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Storage.DataDir == "" {
		return nil, fmt.Errorf("storage.data_dir must be set")
	}
	return &cfg, nil
}

// StorageConfig builds the storage engine configuration, wiring the codec
// chain (compress, then encrypt) from the file settings.
func (c *FileConfig) StorageConfig() (*storage.Config, error) {
	cfg := storage.DefaultConfig(c.Storage.DataDir)
	if c.Storage.PoolSize > 0 {
		cfg.PoolSize = c.Storage.PoolSize
	}
	if c.Storage.ReplacerK > 0 {
		cfg.ReplacerK = c.Storage.ReplacerK
	}

	var codecs []storage.PageCodec

	compAlg, err := compression.ParseAlgorithm(c.Compression.Algorithm)
	if err != nil {
		return nil, err
	}
	if compAlg != compression.AlgorithmNone {
		codec, err := compression.NewPageCodec(&compression.Config{
			Algorithm: compAlg,
			Level:     c.Compression.Level,
		})
		if err != nil {
			return nil, fmt.Errorf("build compression codec: %w", err)
		}
		codecs = append(codecs, codec)
	}

	encAlg, err := encryption.ParseAlgorithm(c.Encryption.Algorithm)
	if err != nil {
		return nil, err
	}
	if encAlg != encryption.AlgorithmNone {
		encCfg, err := encryption.NewConfigFromPassword(c.Encryption.Password, encAlg)
		if err != nil {
			return nil, fmt.Errorf("build encryption config: %w", err)
		}
		codec, err := encryption.NewPageCodec(encCfg)
		if err != nil {
			return nil, fmt.Errorf("build encryption codec: %w", err)
		}
		codecs = append(codecs, codec)
	}

	cfg.Codec = storage.NewChainCodec(codecs...)
	return cfg, nil
}
