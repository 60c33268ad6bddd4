// Package txn implements transactions over the table heap: write-set
// bookkeeping, commit/abort state transitions, and table/row locking.
package txn

import (
	"sync"

	"github.com/mnohosten/mira-db/pkg/table"
)

// TxnID identifies a transaction.
type TxnID = table.TxnID

// InvalidTxnID marks metadata not owned by any transaction.
const InvalidTxnID = table.InvalidTxnID

// TxnState represents the state of a transaction.
type TxnState int

const (
	TxnStateRunning TxnState = iota
	TxnStateCommitted
	TxnStateAborted
)

// IsolationLevel selects the locking discipline executors apply.
type IsolationLevel int

const (
	ReadUncommitted IsolationLevel = iota
	ReadCommitted
	RepeatableRead
)

// TableOID identifies a table.
type TableOID uint32

// WriteType classifies a write-set record.
type WriteType int

const (
	WriteInsert WriteType = iota
	WriteDelete
	WriteUpdate
)

// TableWriteRecord remembers one tuple modification so abort can revert it.
type TableWriteRecord struct {
	Type     WriteType
	TableOID TableOID
	RID      table.RID
	Heap     *table.TableHeap
}

// Transaction carries the running state of one transaction: its write set
// and the lock side-tables the executors and lock manager maintain.
type Transaction struct {
	id        TxnID
	isolation IsolationLevel

	mu       sync.Mutex
	state    TxnState
	writeSet []TableWriteRecord

	tableLocks        map[TableOID]LockMode
	sharedRowLocks    map[TableOID]map[table.RID]struct{}
	exclusiveRowLocks map[TableOID]map[table.RID]struct{}
}

func newTransaction(id TxnID, isolation IsolationLevel) *Transaction {
	return &Transaction{
		id:                id,
		isolation:         isolation,
		state:             TxnStateRunning,
		tableLocks:        make(map[TableOID]LockMode),
		sharedRowLocks:    make(map[TableOID]map[table.RID]struct{}),
		exclusiveRowLocks: make(map[TableOID]map[table.RID]struct{}),
	}
}

// ID returns the transaction's id.
func (t *Transaction) ID() TxnID { return t.id }

// IsolationLevel returns the isolation level the transaction runs under.
func (t *Transaction) IsolationLevel() IsolationLevel { return t.isolation }

// State returns the transaction's current state.
func (t *Transaction) State() TxnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transaction) setState(state TxnState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
}

// AppendWriteRecord adds a record to the write set.
func (t *Transaction) AppendWriteRecord(rec TableWriteRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeSet = append(t.writeSet, rec)
}

// WriteSet returns a copy of the write set in append order.
func (t *Transaction) WriteSet() []TableWriteRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TableWriteRecord, len(t.writeSet))
	copy(out, t.writeSet)
	return out
}

// IsTableLocked reports whether the transaction holds the given table lock mode.
func (t *Transaction) IsTableLocked(oid TableOID, mode LockMode) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	held, ok := t.tableLocks[oid]
	return ok && held == mode
}

// IsRowExclusiveLocked reports whether the transaction holds an exclusive
// lock on the given row.
func (t *Transaction) IsRowExclusiveLocked(oid TableOID, rid table.RID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	rows, ok := t.exclusiveRowLocks[oid]
	if !ok {
		return false
	}
	_, ok = rows[rid]
	return ok
}

// SharedRowLockSet returns a copy of the shared row locks held on a table.
func (t *Transaction) SharedRowLockSet(oid TableOID) []table.RID {
	t.mu.Lock()
	defer t.mu.Unlock()
	rows := t.sharedRowLocks[oid]
	out := make([]table.RID, 0, len(rows))
	for rid := range rows {
		out = append(out, rid)
	}
	return out
}

func (t *Transaction) recordTableLock(oid TableOID, mode LockMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tableLocks[oid] = mode
}

func (t *Transaction) forgetTableLock(oid TableOID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tableLocks, oid)
}

func (t *Transaction) recordRowLock(oid TableOID, rid table.RID, mode LockMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set := t.sharedRowLocks
	if mode == LockExclusive {
		set = t.exclusiveRowLocks
	}
	if set[oid] == nil {
		set[oid] = make(map[table.RID]struct{})
	}
	set[oid][rid] = struct{}{}
}

func (t *Transaction) forgetRowLock(oid TableOID, rid table.RID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rows := t.sharedRowLocks[oid]; rows != nil {
		delete(rows, rid)
	}
	if rows := t.exclusiveRowLocks[oid]; rows != nil {
		delete(rows, rid)
	}
}

// heldLocks snapshots every lock the transaction holds, for release.
func (t *Transaction) heldLocks() (tables []TableOID, rows []rowLockRef) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for oid := range t.tableLocks {
		tables = append(tables, oid)
	}
	for oid, set := range t.sharedRowLocks {
		for rid := range set {
			rows = append(rows, rowLockRef{oid: oid, rid: rid})
		}
	}
	for oid, set := range t.exclusiveRowLocks {
		for rid := range set {
			rows = append(rows, rowLockRef{oid: oid, rid: rid})
		}
	}
	return tables, rows
}

type rowLockRef struct {
	oid TableOID
	rid table.RID
}
