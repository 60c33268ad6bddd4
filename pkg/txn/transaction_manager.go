package txn

import (
	"fmt"
	"sync"

	"github.com/mnohosten/mira-db/pkg/metrics"
	"github.com/mnohosten/mira-db/pkg/table"
)

// TransactionManager hands out transactions and drives their commit and
// abort transitions.
type TransactionManager struct {
	mu        sync.Mutex
	nextTxnID TxnID
	active    map[TxnID]*Transaction
	lockMgr   *LockManager
	globalMu  sync.RWMutex
	collector *metrics.Collector
}

// NewTransactionManager creates a manager using the given lock manager.
func NewTransactionManager(lockMgr *LockManager) *TransactionManager {
	return &TransactionManager{
		nextTxnID: 1,
		active:    make(map[TxnID]*Transaction),
		lockMgr:   lockMgr,
	}
}

// SetCollector attaches a metrics collector; nil detaches it.
func (tm *TransactionManager) SetCollector(c *metrics.Collector) {
	tm.collector = c
}

// LockManager returns the lock manager transactions release through.
func (tm *TransactionManager) LockManager() *LockManager {
	return tm.lockMgr
}

// Begin starts a new transaction at the given isolation level.
// Begin blocks while all transactions are blocked.
func (tm *TransactionManager) Begin(isolation IsolationLevel) *Transaction {
	tm.globalMu.RLock()
	defer tm.globalMu.RUnlock()

	tm.mu.Lock()
	id := tm.nextTxnID
	tm.nextTxnID++
	t := newTransaction(id, isolation)
	tm.active[id] = t
	tm.mu.Unlock()

	if tm.collector != nil {
		tm.collector.RecordTxnBegin()
	}
	return t
}

// Commit releases the transaction's locks and marks it committed.
func (tm *TransactionManager) Commit(t *Transaction) {
	tm.lockMgr.ReleaseLocks(t)
	t.setState(TxnStateCommitted)

	tm.mu.Lock()
	delete(tm.active, t.ID())
	tm.mu.Unlock()

	if tm.collector != nil {
		tm.collector.RecordTxnCommit()
	}
}

// Abort reverts the transaction's write set in reverse order, releases its
// locks, and marks it aborted. Inserted tuples are logically deleted and
// deleted tuples reinstated through idempotent tuple-meta updates.
func (tm *TransactionManager) Abort(t *Transaction) error {
	records := t.WriteSet()

	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		var err error
		switch rec.Type {
		case WriteInsert:
			err = rec.Heap.UpdateTupleMeta(table.TupleMeta{
				InsertTxn: InvalidTxnID,
				DeleteTxn: InvalidTxnID,
				IsDeleted: true,
			}, rec.RID)
		case WriteDelete:
			err = rec.Heap.UpdateTupleMeta(table.TupleMeta{
				InsertTxn: InvalidTxnID,
				DeleteTxn: InvalidTxnID,
				IsDeleted: false,
			}, rec.RID)
		case WriteUpdate:
			// Updates revert through their paired insert/delete records.
		}
		if err != nil {
			return fmt.Errorf("failed to revert write %s: %w", rec.RID, err)
		}
	}

	tm.lockMgr.ReleaseLocks(t)
	t.setState(TxnStateAborted)

	tm.mu.Lock()
	delete(tm.active, t.ID())
	tm.mu.Unlock()

	if tm.collector != nil {
		tm.collector.RecordTxnAbort()
	}
	return nil
}

// BlockAllTransactions stops new transactions from starting until
// ResumeTransactions is called.
func (tm *TransactionManager) BlockAllTransactions() {
	tm.globalMu.Lock()
}

// ResumeTransactions lifts BlockAllTransactions.
func (tm *TransactionManager) ResumeTransactions() {
	tm.globalMu.Unlock()
}
