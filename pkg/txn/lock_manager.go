package txn

import (
	"sync"

	"github.com/mnohosten/mira-db/pkg/metrics"
	"github.com/mnohosten/mira-db/pkg/table"
)

// LockMode is a table or row locking mode.
type LockMode int

const (
	LockIntentionShared LockMode = iota
	LockIntentionExclusive
	LockShared
	LockExclusive
)

// String returns the conventional abbreviation for the mode.
func (m LockMode) String() string {
	switch m {
	case LockIntentionShared:
		return "IS"
	case LockIntentionExclusive:
		return "IX"
	case LockShared:
		return "S"
	case LockExclusive:
		return "X"
	default:
		return "?"
	}
}

// compatible reports whether two modes may be held simultaneously by
// different transactions.
func compatible(a, b LockMode) bool {
	switch a {
	case LockIntentionShared:
		return b != LockExclusive
	case LockIntentionExclusive:
		return b == LockIntentionShared || b == LockIntentionExclusive
	case LockShared:
		return b == LockIntentionShared || b == LockShared
	case LockExclusive:
		return false
	}
	return false
}

type lockEntry struct {
	holders map[TxnID]LockMode
}

// LockManager grants table and row locks without blocking: a request that
// conflicts with another transaction's holding is denied immediately and the
// caller reports an execution error. Rows are only locked in S or X mode;
// intention modes apply to tables.
type LockManager struct {
	mu        sync.Mutex
	tables    map[TableOID]*lockEntry
	rows      map[TableOID]map[table.RID]*lockEntry
	collector *metrics.Collector
}

// NewLockManager creates an empty lock manager.
func NewLockManager() *LockManager {
	return &LockManager{
		tables: make(map[TableOID]*lockEntry),
		rows:   make(map[TableOID]map[table.RID]*lockEntry),
	}
}

// SetCollector attaches a metrics collector; nil detaches it.
func (lm *LockManager) SetCollector(c *metrics.Collector) {
	lm.collector = c
}

func (lm *LockManager) recordOutcome(granted bool) {
	if lm.collector == nil {
		return
	}
	if granted {
		lm.collector.RecordLockGranted()
	} else {
		lm.collector.RecordLockDenied()
	}
}

// grant tries to add (txn, mode) to entry, honoring re-requests and upgrades.
func grant(entry *lockEntry, id TxnID, mode LockMode) bool {
	if held, ok := entry.holders[id]; ok {
		if held == mode || !stronger(mode, held) {
			return true
		}
	}
	for other, held := range entry.holders {
		if other == id {
			continue
		}
		if !compatible(mode, held) {
			return false
		}
	}
	entry.holders[id] = mode
	return true
}

// stronger reports whether a strictly dominates b.
func stronger(a, b LockMode) bool {
	rank := func(m LockMode) int {
		switch m {
		case LockIntentionShared:
			return 0
		case LockIntentionExclusive, LockShared:
			return 1
		case LockExclusive:
			return 2
		}
		return -1
	}
	return rank(a) > rank(b)
}

// LockTable requests a table lock. Returns false when the request conflicts
// with locks held by other transactions.
func (lm *LockManager) LockTable(t *Transaction, mode LockMode, oid TableOID) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	entry, ok := lm.tables[oid]
	if !ok {
		entry = &lockEntry{holders: make(map[TxnID]LockMode)}
		lm.tables[oid] = entry
	}

	granted := grant(entry, t.ID(), mode)
	if granted {
		t.recordTableLock(oid, entry.holders[t.ID()])
	}
	lm.recordOutcome(granted)
	return granted
}

// UnlockTable releases the transaction's table lock.
func (lm *LockManager) UnlockTable(t *Transaction, oid TableOID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.unlockTableLocked(t, oid)
}

func (lm *LockManager) unlockTableLocked(t *Transaction, oid TableOID) {
	if entry, ok := lm.tables[oid]; ok {
		delete(entry.holders, t.ID())
		if len(entry.holders) == 0 {
			delete(lm.tables, oid)
		}
	}
	t.forgetTableLock(oid)
}

// LockRow requests a row lock in S or X mode. Returns false on conflict.
func (lm *LockManager) LockRow(t *Transaction, mode LockMode, oid TableOID, rid table.RID) bool {
	if mode != LockShared && mode != LockExclusive {
		lm.recordOutcome(false)
		return false
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	tableRows, ok := lm.rows[oid]
	if !ok {
		tableRows = make(map[table.RID]*lockEntry)
		lm.rows[oid] = tableRows
	}
	entry, ok := tableRows[rid]
	if !ok {
		entry = &lockEntry{holders: make(map[TxnID]LockMode)}
		tableRows[rid] = entry
	}

	granted := grant(entry, t.ID(), mode)
	if granted {
		t.recordRowLock(oid, rid, entry.holders[t.ID()])
	}
	lm.recordOutcome(granted)
	return granted
}

// UnlockRow releases the transaction's row lock.
func (lm *LockManager) UnlockRow(t *Transaction, oid TableOID, rid table.RID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.unlockRowLocked(t, oid, rid)
}

func (lm *LockManager) unlockRowLocked(t *Transaction, oid TableOID, rid table.RID) {
	if tableRows, ok := lm.rows[oid]; ok {
		if entry, ok := tableRows[rid]; ok {
			delete(entry.holders, t.ID())
			if len(entry.holders) == 0 {
				delete(tableRows, rid)
			}
		}
		if len(tableRows) == 0 {
			delete(lm.rows, oid)
		}
	}
	t.forgetRowLock(oid, rid)
}

// ReleaseLocks drops every lock the transaction holds, rows before tables.
func (lm *LockManager) ReleaseLocks(t *Transaction) {
	tables, rows := t.heldLocks()

	lm.mu.Lock()
	defer lm.mu.Unlock()

	for _, ref := range rows {
		lm.unlockRowLocked(t, ref.oid, ref.rid)
	}
	for _, oid := range tables {
		lm.unlockTableLocked(t, oid)
	}
}
