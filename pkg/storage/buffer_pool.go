package storage

import (
	"fmt"
	"sync"
)

// BufferPool provides the illusion of random access to a large set of on-disk
// pages through a bounded set of in-memory frames. It tracks pin counts,
// consults an LRU-K replacer for eviction, and writes dirty victims back to
// disk before their frames are reused.
//
// A single latch serializes every public operation, including the disk I/O
// issued under it. This is intentionally conservative; per-frame latches taken
// by the read/write page guards serialize access to page contents.
type BufferPool struct {
	mu        sync.Mutex
	frames    []*Page
	pageTable map[PageID]FrameID
	freeList  []FrameID
	replacer  *LRUKReplacer
	diskMgr   *DiskManager

	hits           uint64
	misses         uint64
	evictions      uint64
	dirtyWriteBack uint64
}

// PoolStats is a point-in-time snapshot of buffer pool counters.
type PoolStats struct {
	Capacity       int
	Resident       int
	FreeFrames     int
	Evictable      int
	Hits           uint64
	Misses         uint64
	Evictions      uint64
	DirtyWriteBack uint64
}

// NewBufferPool creates a pool of poolSize frames over the given disk
// manager, using LRU-K replacement with the given k.
func NewBufferPool(poolSize, k int, diskMgr *DiskManager) *BufferPool {
	frames := make([]*Page, poolSize)
	freeList := make([]FrameID, poolSize)
	for i := range frames {
		frames[i] = newPage()
		freeList[i] = FrameID(i)
	}
	return &BufferPool{
		frames:    frames,
		pageTable: make(map[PageID]FrameID, poolSize),
		freeList:  freeList,
		replacer:  NewLRUKReplacer(poolSize, k),
		diskMgr:   diskMgr,
	}
}

// NewPage allocates a fresh page id and pins it into a frame.
// Returns ErrNoAvailableFrame when every frame is pinned.
func (bp *BufferPool) NewPage() (*Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pageID := bp.diskMgr.AllocatePage()
	page, err := bp.getAvailableFrame(pageID, AccessUnknown)
	if err != nil {
		bp.diskMgr.DeallocatePage(pageID)
		return nil, err
	}
	return page, nil
}

// FetchPage pins the page with the given id, reading it from disk if it is
// not resident. Returns ErrNoAvailableFrame when the page is not resident and
// every frame is pinned.
func (bp *BufferPool) FetchPage(pageID PageID) (*Page, error) {
	return bp.fetchPage(pageID, AccessUnknown)
}

// FetchPageWithAccess is FetchPage with an advisory access type for the replacer.
func (bp *BufferPool) FetchPageWithAccess(pageID PageID, accessType AccessType) (*Page, error) {
	return bp.fetchPage(pageID, accessType)
}

func (bp *BufferPool) fetchPage(pageID PageID, accessType AccessType) (*Page, error) {
	if pageID == InvalidPageID {
		return nil, ErrInvalidPageID
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()

	if fid, ok := bp.pageTable[pageID]; ok {
		page := bp.frames[fid]
		page.pinCount++
		bp.replacer.RecordAccess(fid, accessType)
		bp.replacer.SetEvictable(fid, false)
		bp.hits++
		return page, nil
	}

	bp.misses++
	page, err := bp.getAvailableFrame(pageID, accessType)
	if err != nil {
		return nil, err
	}
	if err := bp.diskMgr.ReadPage(pageID, page.data); err != nil {
		return nil, fmt.Errorf("failed to read page %d: %w", pageID, err)
	}
	return page, nil
}

// getAvailableFrame obtains a frame for pageID, preferring the free list and
// falling back to eviction. The caller must hold bp.mu. The returned frame is
// installed in the page table with a pin count of one.
func (bp *BufferPool) getAvailableFrame(pageID PageID, accessType AccessType) (*Page, error) {
	var fid FrameID
	if len(bp.freeList) > 0 {
		fid = bp.freeList[0]
		bp.freeList = bp.freeList[1:]
	} else {
		victim, ok := bp.replacer.Evict()
		if !ok {
			return nil, ErrNoAvailableFrame
		}
		fid = victim
		bp.evictions++

		page := bp.frames[fid]
		if page.isDirty {
			if err := bp.diskMgr.WritePage(page.id, page.data); err != nil {
				return nil, fmt.Errorf("failed to write back page %d: %w", page.id, err)
			}
			page.isDirty = false
			bp.dirtyWriteBack++
		}
		delete(bp.pageTable, page.id)
		page.resetMemory()
	}

	page := bp.frames[fid]
	bp.pageTable[pageID] = fid
	page.id = pageID
	page.pinCount = 1
	bp.replacer.RecordAccess(fid, accessType)
	return page, nil
}

// UnpinPage drops one pin on the page, recording whether the caller dirtied
// it. When the pin count reaches zero the frame becomes evictable.
// Returns ErrPageNotResident or ErrPageNotPinned on precondition violations.
func (bp *BufferPool) UnpinPage(pageID PageID, isDirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	fid, ok := bp.pageTable[pageID]
	if !ok {
		return ErrPageNotResident
	}
	page := bp.frames[fid]
	page.isDirty = page.isDirty || isDirty
	if page.pinCount <= 0 {
		return ErrPageNotPinned
	}

	page.pinCount--
	if page.pinCount == 0 {
		bp.replacer.SetEvictable(fid, true)
	}
	return nil
}

// FlushPage writes the page to disk and clears its dirty flag, regardless of
// pin state. Returns ErrPageNotResident when the page is not in the pool.
func (bp *BufferPool) FlushPage(pageID PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.flushPage(pageID)
}

func (bp *BufferPool) flushPage(pageID PageID) error {
	fid, ok := bp.pageTable[pageID]
	if !ok {
		return ErrPageNotResident
	}
	page := bp.frames[fid]
	if err := bp.diskMgr.WritePage(pageID, page.data); err != nil {
		return fmt.Errorf("failed to flush page %d: %w", pageID, err)
	}
	page.isDirty = false
	return nil
}

// FlushAllPages flushes every resident page.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for pageID := range bp.pageTable {
		if err := bp.flushPage(pageID); err != nil {
			return err
		}
	}
	return nil
}

// DeletePage evicts the page from the pool and releases its page id.
// Deleting a non-resident page succeeds trivially; deleting a pinned page
// returns ErrPagePinned.
func (bp *BufferPool) DeletePage(pageID PageID) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	fid, ok := bp.pageTable[pageID]
	if !ok {
		return nil
	}
	page := bp.frames[fid]
	if page.pinCount > 0 {
		return ErrPagePinned
	}

	bp.replacer.SetEvictable(fid, false)
	bp.replacer.Remove(fid)
	delete(bp.pageTable, pageID)
	bp.freeList = append(bp.freeList, fid)
	page.resetMemory()
	page.pinCount = 0
	page.isDirty = false
	bp.diskMgr.DeallocatePage(pageID)
	return nil
}

// PinCount reports the pin count of a resident page.
// The second return is false when the page is not resident.
func (bp *BufferPool) PinCount(pageID PageID) (int, bool) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	fid, ok := bp.pageTable[pageID]
	if !ok {
		return 0, false
	}
	return bp.frames[fid].pinCount, true
}

// Stats returns a snapshot of the pool's counters.
func (bp *BufferPool) Stats() PoolStats {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	return PoolStats{
		Capacity:       len(bp.frames),
		Resident:       len(bp.pageTable),
		FreeFrames:     len(bp.freeList),
		Evictable:      bp.replacer.Size(),
		Hits:           bp.hits,
		Misses:         bp.misses,
		Evictions:      bp.evictions,
		DirtyWriteBack: bp.dirtyWriteBack,
	}
}
