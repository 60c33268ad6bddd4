package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// StorageEngine wires a disk manager and a buffer pool over a data directory.
type StorageEngine struct {
	diskMgr    *DiskManager
	bufferPool *BufferPool
	mu         sync.Mutex
	dataDir    string
	isOpen     bool
}

// Config holds storage engine configuration.
type Config struct {
	DataDir   string
	PoolSize  int       // number of frames in the buffer pool
	ReplacerK int       // K for LRU-K replacement
	Codec     PageCodec // optional on-disk page transform (compression, encryption)
}

// DefaultConfig returns default configuration.
func DefaultConfig(dataDir string) *Config {
	return &Config{
		DataDir:   dataDir,
		PoolSize:  1024, // cache 1024 pages (~4MB)
		ReplacerK: 2,
	}
}

// NewStorageEngine creates a new storage engine.
func NewStorageEngine(config *Config) (*StorageEngine, error) {
	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dataPath := filepath.Join(config.DataDir, "data.db")
	diskMgr, err := NewDiskManagerWithCodec(dataPath, config.Codec)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk manager: %w", err)
	}

	return &StorageEngine{
		diskMgr:    diskMgr,
		bufferPool: NewBufferPool(config.PoolSize, config.ReplacerK, diskMgr),
		dataDir:    config.DataDir,
		isOpen:     true,
	}, nil
}

// BufferPool returns the engine's buffer pool.
func (e *StorageEngine) BufferPool() *BufferPool { return e.bufferPool }

// DiskManager returns the engine's disk manager.
func (e *StorageEngine) DiskManager() *DiskManager { return e.diskMgr }

// Close flushes all resident pages and closes the data file.
func (e *StorageEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isOpen {
		return ErrEngineClosed
	}
	e.isOpen = false

	if err := e.bufferPool.FlushAllPages(); err != nil {
		return fmt.Errorf("failed to flush pages: %w", err)
	}
	if err := e.diskMgr.Sync(); err != nil {
		return err
	}
	return e.diskMgr.Close()
}

// ChainCodec composes codecs left to right on encode (e.g. compress, then
// encrypt) and right to left on decode.
type ChainCodec struct {
	codecs []PageCodec
}

// NewChainCodec builds a chain from the given codecs. Returns nil when no
// codecs are given so the result can be installed directly.
func NewChainCodec(codecs ...PageCodec) PageCodec {
	filtered := make([]PageCodec, 0, len(codecs))
	for _, c := range codecs {
		if c != nil {
			filtered = append(filtered, c)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	}
	return &ChainCodec{codecs: filtered}
}

// Name lists the chained codec names.
func (c *ChainCodec) Name() string {
	name := c.codecs[0].Name()
	for _, inner := range c.codecs[1:] {
		name += "+" + inner.Name()
	}
	return name
}

// Overhead sums the worst-case overhead of every stage.
func (c *ChainCodec) Overhead() int {
	total := 0
	for _, inner := range c.codecs {
		total += inner.Overhead()
	}
	return total
}

// Encode runs every stage in order.
func (c *ChainCodec) Encode(src []byte) ([]byte, error) {
	out := src
	var err error
	for _, inner := range c.codecs {
		if out, err = inner.Encode(out); err != nil {
			return nil, fmt.Errorf("codec %s: %w", inner.Name(), err)
		}
	}
	return out, nil
}

// Decode runs every stage in reverse order.
func (c *ChainCodec) Decode(src []byte) ([]byte, error) {
	out := src
	var err error
	for i := len(c.codecs) - 1; i >= 0; i-- {
		if out, err = c.codecs[i].Decode(out); err != nil {
			return nil, fmt.Errorf("codec %s: %w", c.codecs[i].Name(), err)
		}
	}
	return out, nil
}
