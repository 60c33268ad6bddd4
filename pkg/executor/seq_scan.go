package executor

import (
	"github.com/mnohosten/mira-db/pkg/table"
	"github.com/mnohosten/mira-db/pkg/txn"
)

// SeqScanExecutor walks a table heap in storage order, applying the locking
// discipline of the context's transaction and skipping deleted tuples.
type SeqScanExecutor struct {
	ctx  *Context
	heap *table.TableHeap
	oid  txn.TableOID
	it   *table.TableIterator
}

// NewSeqScanExecutor creates a scan over the given heap.
func NewSeqScanExecutor(ctx *Context, heap *table.TableHeap, oid txn.TableOID) *SeqScanExecutor {
	return &SeqScanExecutor{ctx: ctx, heap: heap, oid: oid}
}

// Init positions the scan and takes the table lock: intention-exclusive when
// the scan feeds a delete, intention-shared otherwise. Read-uncommitted
// transactions take no locks for a read scan; a delete-feeding scan locks at
// every isolation level.
func (e *SeqScanExecutor) Init() error {
	e.it = e.heap.MakeIterator()

	t := e.ctx.Txn
	if t == nil {
		return nil
	}

	if e.ctx.IsDelete {
		if !e.ctx.LockMgr.LockTable(t, txn.LockIntentionExclusive, e.oid) {
			return ErrTableLockFailed
		}
	} else if t.IsolationLevel() != txn.ReadUncommitted &&
		!t.IsTableLocked(e.oid, txn.LockIntentionExclusive) &&
		!e.ctx.LockMgr.LockTable(t, txn.LockIntentionShared, e.oid) {
		return ErrTableLockFailed
	}
	return nil
}

// Next returns the next live tuple, or nil when the scan is exhausted.
// Under read-committed, the scan's shared row locks and its table lock are
// released when the end of the table is reached.
func (e *SeqScanExecutor) Next() (*table.TupleRecord, error) {
	t := e.ctx.Txn

	for {
		rec, err := e.it.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			if t != nil && t.IsolationLevel() == txn.ReadCommitted &&
				t.IsTableLocked(e.oid, txn.LockIntentionShared) {
				for _, rid := range t.SharedRowLockSet(e.oid) {
					e.ctx.LockMgr.UnlockRow(t, e.oid, rid)
				}
				e.ctx.LockMgr.UnlockTable(t, e.oid)
			}
			return nil, nil
		}

		rid := rec.Tuple.RID
		if t != nil {
			if e.ctx.IsDelete {
				if !e.ctx.LockMgr.LockRow(t, txn.LockExclusive, e.oid, rid) {
					return nil, ErrRowLockFailed
				}
			} else if t.IsolationLevel() != txn.ReadUncommitted {
				if !t.IsRowExclusiveLocked(e.oid, rid) &&
					!e.ctx.LockMgr.LockRow(t, txn.LockShared, e.oid, rid) {
					return nil, ErrRowLockFailed
				}
			}
		}

		if !rec.Meta.IsDeleted {
			if e.ctx.Collector != nil {
				e.ctx.Collector.RecordTupleScan()
			}
			return rec, nil
		}
	}
}
