package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
)

// PageCodec transforms raw page images on their way to and from disk.
// Codecs are layered by the storage engine: a page flush runs Encode before
// the bytes hit the file, a fetch runs Decode after they leave it.
type PageCodec interface {
	// Name identifies the codec in errors and metrics
	Name() string
	// Overhead is the maximum number of bytes Encode may add to a PageSize input
	Overhead() int
	// Encode transforms a PageSize input into its on-disk representation
	Encode(src []byte) ([]byte, error)
	// Decode reverses Encode, producing exactly PageSize bytes
	Decode(src []byte) ([]byte, error)
}

// slotLenSize prefixes each codec-encoded slot with its payload length
const slotLenSize = 4

// DiskManager handles physical disk I/O at page granularity. Pages live in a
// single data file at fixed offsets. When a codec is installed, each slot is
// widened to fit the worst-case encoded size and prefixed with the payload
// length; without one, pages are stored raw at id*PageSize.
type DiskManager struct {
	dataFile    *os.File
	codec       PageCodec
	slotSize    int64
	nextPageID  PageID
	freePages   []PageID
	mu          sync.Mutex
	totalReads  int64
	totalWrites int64
}

// NewDiskManager opens (or creates) the data file at path.
func NewDiskManager(path string) (*DiskManager, error) {
	return NewDiskManagerWithCodec(path, nil)
}

// NewDiskManagerWithCodec opens the data file and installs a page codec.
// A file written with one codec must be reopened with the same codec.
func NewDiskManagerWithCodec(path string, codec PageCodec) (*DiskManager, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}

	slotSize := int64(PageSize)
	if codec != nil {
		slotSize = int64(slotLenSize + PageSize + codec.Overhead())
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat data file: %w", err)
	}

	return &DiskManager{
		dataFile:   file,
		codec:      codec,
		slotSize:   slotSize,
		nextPageID: PageID(fileInfo.Size() / slotSize),
	}, nil
}

// ReadPage reads the page with the given id into buf.
// buf must be exactly PageSize bytes. Reading a page that has never been
// written yields zeroes, matching a fresh page image.
func (dm *DiskManager) ReadPage(pageID PageID, buf []byte) error {
	if len(buf) != PageSize {
		return fmt.Errorf("read buffer must be %d bytes, got %d", PageSize, len(buf))
	}
	if pageID == InvalidPageID {
		return ErrInvalidPageID
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	offset := int64(pageID) * dm.slotSize

	if dm.codec == nil {
		n, err := dm.dataFile.ReadAt(buf, offset)
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read page %d: %w", pageID, err)
		}
		// Short read past the end of the file: a page that was allocated
		// but never flushed. Zero the remainder.
		for i := n; i < PageSize; i++ {
			buf[i] = 0
		}
		dm.totalReads++
		return nil
	}

	slot := make([]byte, dm.slotSize)
	n, err := dm.dataFile.ReadAt(slot, offset)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read page %d: %w", pageID, err)
	}
	if n < slotLenSize {
		for i := range buf {
			buf[i] = 0
		}
		dm.totalReads++
		return nil
	}

	payloadLen := binary.LittleEndian.Uint32(slot[0:slotLenSize])
	if payloadLen == 0 {
		for i := range buf {
			buf[i] = 0
		}
		dm.totalReads++
		return nil
	}
	if int(payloadLen) > n-slotLenSize {
		return fmt.Errorf("corrupt slot for page %d: payload length %d exceeds slot", pageID, payloadLen)
	}

	decoded, err := dm.codec.Decode(slot[slotLenSize : slotLenSize+int(payloadLen)])
	if err != nil {
		return fmt.Errorf("failed to decode page %d with codec %s: %w", pageID, dm.codec.Name(), err)
	}
	if len(decoded) != PageSize {
		return fmt.Errorf("codec %s produced %d bytes for page %d, want %d",
			dm.codec.Name(), len(decoded), pageID, PageSize)
	}
	copy(buf, decoded)
	dm.totalReads++
	return nil
}

// WritePage writes exactly PageSize bytes of data as the page with the given id.
func (dm *DiskManager) WritePage(pageID PageID, data []byte) error {
	if len(data) != PageSize {
		return fmt.Errorf("page data must be %d bytes, got %d", PageSize, len(data))
	}
	if pageID == InvalidPageID {
		return ErrInvalidPageID
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	offset := int64(pageID) * dm.slotSize

	if dm.codec == nil {
		if _, err := dm.dataFile.WriteAt(data, offset); err != nil {
			return fmt.Errorf("failed to write page %d: %w", pageID, err)
		}
		dm.totalWrites++
		return nil
	}

	encoded, err := dm.codec.Encode(data)
	if err != nil {
		return fmt.Errorf("failed to encode page %d with codec %s: %w", pageID, dm.codec.Name(), err)
	}
	if int64(slotLenSize+len(encoded)) > dm.slotSize {
		return fmt.Errorf("codec %s produced %d bytes for page %d, exceeding slot size %d",
			dm.codec.Name(), len(encoded), pageID, dm.slotSize)
	}

	slot := make([]byte, dm.slotSize)
	binary.LittleEndian.PutUint32(slot[0:slotLenSize], uint32(len(encoded)))
	copy(slot[slotLenSize:], encoded)

	if _, err := dm.dataFile.WriteAt(slot, offset); err != nil {
		return fmt.Errorf("failed to write page %d: %w", pageID, err)
	}
	dm.totalWrites++
	return nil
}

// AllocatePage returns a fresh page id, reusing a deallocated one when available.
func (dm *DiskManager) AllocatePage() PageID {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if n := len(dm.freePages); n > 0 {
		pageID := dm.freePages[n-1]
		dm.freePages = dm.freePages[:n-1]
		return pageID
	}

	pageID := dm.nextPageID
	dm.nextPageID++
	return pageID
}

// DeallocatePage releases a page id for later reuse.
func (dm *DiskManager) DeallocatePage(pageID PageID) {
	if pageID == InvalidPageID {
		return
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.freePages = append(dm.freePages, pageID)
}

// Sync flushes the data file to stable storage.
func (dm *DiskManager) Sync() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := dm.dataFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync data file: %w", err)
	}
	return nil
}

// Close closes the underlying data file.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := dm.dataFile.Close(); err != nil {
		return fmt.Errorf("failed to close data file: %w", err)
	}
	return nil
}

// ReadCount returns the number of page reads served so far.
func (dm *DiskManager) ReadCount() int64 {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.totalReads
}

// WriteCount returns the number of page writes issued so far.
func (dm *DiskManager) WriteCount() int64 {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.totalWrites
}
