package table

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mnohosten/mira-db/pkg/metrics"
	"github.com/mnohosten/mira-db/pkg/storage"
)

// ErrTupleTooLarge is returned when a tuple cannot fit in an empty page.
var ErrTupleTooLarge = errors.New("tuple too large for a page")

// maxTupleSize leaves room for the page header and one slot entry.
const maxTupleSize = storage.PageSize - pageHeaderSize - slotEntrySize

// TableHeap is an unordered collection of tuples chained across pages.
// All page access goes through buffer pool guards, so heap operations pin,
// latch, and unpin correctly on every path.
type TableHeap struct {
	bp          *storage.BufferPool
	mu          sync.Mutex
	firstPageID storage.PageID
	lastPageID  storage.PageID
	collector   *metrics.Collector
}

// NewTableHeap creates a heap with a single empty page.
func NewTableHeap(bp *storage.BufferPool) (*TableHeap, error) {
	guard, err := bp.NewPageGuardedWrite()
	if err != nil {
		return nil, fmt.Errorf("failed to create first table page: %w", err)
	}
	defer guard.Drop()

	initTablePage(guard.Data())
	return &TableHeap{
		bp:          bp,
		firstPageID: guard.ID(),
		lastPageID:  guard.ID(),
	}, nil
}

// SetCollector attaches a metrics collector; nil detaches it.
func (h *TableHeap) SetCollector(c *metrics.Collector) {
	h.collector = c
}

// FirstPageID returns the id of the heap's first page.
func (h *TableHeap) FirstPageID() storage.PageID {
	return h.firstPageID
}

// InsertTuple appends a tuple with the given meta and returns its RID.
// A new page is chained onto the heap when the last one is full.
func (h *TableHeap) InsertTuple(meta TupleMeta, data []byte) (RID, error) {
	if len(data) > maxTupleSize {
		return RID{}, ErrTupleTooLarge
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	guard, err := h.bp.FetchPageWrite(h.lastPageID)
	if err != nil {
		return RID{}, fmt.Errorf("failed to fetch last table page: %w", err)
	}

	if slot, ok := pageInsertTuple(guard.Data(), meta, data); ok {
		rid := RID{PageID: guard.ID(), Slot: slot}
		guard.Drop()
		if h.collector != nil {
			h.collector.RecordTupleInsert()
		}
		return rid, nil
	}

	// Last page is full: chain a fresh one.
	next, err := h.bp.NewPageGuardedWrite()
	if err != nil {
		guard.Drop()
		return RID{}, fmt.Errorf("failed to extend table heap: %w", err)
	}
	initTablePage(next.Data())
	setPageNext(guard.Data(), next.ID())
	guard.Drop()

	slot, ok := pageInsertTuple(next.Data(), meta, data)
	if !ok {
		next.Drop()
		return RID{}, ErrTupleTooLarge
	}
	rid := RID{PageID: next.ID(), Slot: slot}
	h.lastPageID = next.ID()
	next.Drop()

	if h.collector != nil {
		h.collector.RecordTupleInsert()
	}
	return rid, nil
}

// GetTuple reads the tuple at rid.
func (h *TableHeap) GetTuple(rid RID) (TupleMeta, Tuple, error) {
	guard, err := h.bp.FetchPageRead(rid.PageID)
	if err != nil {
		return TupleMeta{}, Tuple{}, fmt.Errorf("failed to fetch page %d: %w", rid.PageID, err)
	}
	defer guard.Drop()

	meta, payload, err := pageReadTuple(guard.Data(), rid.Slot)
	if err != nil {
		return TupleMeta{}, Tuple{}, fmt.Errorf("failed to read tuple %s: %w", rid, err)
	}
	return meta, Tuple{RID: rid, Data: payload}, nil
}

// UpdateTupleMeta overwrites the meta of the tuple at rid. Setting and
// clearing the deleted flag this way is idempotent, which transaction abort
// relies on.
func (h *TableHeap) UpdateTupleMeta(meta TupleMeta, rid RID) error {
	guard, err := h.bp.FetchPageWrite(rid.PageID)
	if err != nil {
		return fmt.Errorf("failed to fetch page %d: %w", rid.PageID, err)
	}
	defer guard.Drop()

	if err := pageUpdateMeta(guard.Data(), rid.Slot, meta); err != nil {
		return fmt.Errorf("failed to update tuple meta %s: %w", rid, err)
	}
	if meta.IsDeleted && h.collector != nil {
		h.collector.RecordTupleDelete()
	}
	return nil
}

// MakeIterator returns an iterator positioned before the first tuple.
func (h *TableHeap) MakeIterator() *TableIterator {
	return &TableIterator{heap: h, pageID: h.firstPageID, slot: 0}
}

// TableIterator walks every tuple in the heap in storage order, including
// tuples whose meta marks them deleted; filtering is the caller's concern.
type TableIterator struct {
	heap   *TableHeap
	pageID storage.PageID
	slot   int
}

// Next returns the next tuple record, or nil when the heap is exhausted.
func (it *TableIterator) Next() (*TupleRecord, error) {
	for it.pageID != storage.InvalidPageID {
		guard, err := it.heap.bp.FetchPageRead(it.pageID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", it.pageID, err)
		}

		data := guard.Data()
		if it.slot < pageSlotCount(data) {
			meta, payload, err := pageReadTuple(data, it.slot)
			rid := RID{PageID: it.pageID, Slot: it.slot}
			guard.Drop()
			if err != nil {
				return nil, fmt.Errorf("failed to read tuple %s: %w", rid, err)
			}
			it.slot++
			return &TupleRecord{Meta: meta, Tuple: Tuple{RID: rid, Data: payload}}, nil
		}

		next := pageNext(data)
		guard.Drop()
		it.pageID = next
		it.slot = 0
	}
	return nil, nil
}
