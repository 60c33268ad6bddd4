package metrics

import (
	"sync/atomic"
	"time"
)

// Collector collects real-time counters for the storage core. All counters
// are atomic; recording from hot paths takes no locks.
type Collector struct {
	// Transaction counters
	txnBegan     uint64
	txnCommitted uint64
	txnAborted   uint64

	// Tuple counters
	tuplesInserted uint64
	tuplesDeleted  uint64
	tuplesScanned  uint64

	// Lock manager counters
	locksGranted uint64
	locksDenied  uint64

	// Start time for uptime calculation
	startTime time.Time
}

// NewCollector creates a new collector.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// RecordTxnBegin counts a transaction start.
func (c *Collector) RecordTxnBegin() {
	atomic.AddUint64(&c.txnBegan, 1)
}

// RecordTxnCommit counts a committed transaction.
func (c *Collector) RecordTxnCommit() {
	atomic.AddUint64(&c.txnCommitted, 1)
}

// RecordTxnAbort counts an aborted transaction.
func (c *Collector) RecordTxnAbort() {
	atomic.AddUint64(&c.txnAborted, 1)
}

// RecordTupleInsert counts a tuple insertion.
func (c *Collector) RecordTupleInsert() {
	atomic.AddUint64(&c.tuplesInserted, 1)
}

// RecordTupleDelete counts a tuple deletion.
func (c *Collector) RecordTupleDelete() {
	atomic.AddUint64(&c.tuplesDeleted, 1)
}

// RecordTupleScan counts a tuple produced by a scan.
func (c *Collector) RecordTupleScan() {
	atomic.AddUint64(&c.tuplesScanned, 1)
}

// RecordLockGranted counts a granted lock request.
func (c *Collector) RecordLockGranted() {
	atomic.AddUint64(&c.locksGranted, 1)
}

// RecordLockDenied counts a denied lock request.
func (c *Collector) RecordLockDenied() {
	atomic.AddUint64(&c.locksDenied, 1)
}

// Snapshot is a point-in-time copy of the collector's counters.
type Snapshot struct {
	TxnBegan       uint64  `json:"txn_began"`
	TxnCommitted   uint64  `json:"txn_committed"`
	TxnAborted     uint64  `json:"txn_aborted"`
	TuplesInserted uint64  `json:"tuples_inserted"`
	TuplesDeleted  uint64  `json:"tuples_deleted"`
	TuplesScanned  uint64  `json:"tuples_scanned"`
	LocksGranted   uint64  `json:"locks_granted"`
	LocksDenied    uint64  `json:"locks_denied"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// GetSnapshot returns a consistent-enough copy of all counters.
func (c *Collector) GetSnapshot() Snapshot {
	return Snapshot{
		TxnBegan:       atomic.LoadUint64(&c.txnBegan),
		TxnCommitted:   atomic.LoadUint64(&c.txnCommitted),
		TxnAborted:     atomic.LoadUint64(&c.txnAborted),
		TuplesInserted: atomic.LoadUint64(&c.tuplesInserted),
		TuplesDeleted:  atomic.LoadUint64(&c.tuplesDeleted),
		TuplesScanned:  atomic.LoadUint64(&c.tuplesScanned),
		LocksGranted:   atomic.LoadUint64(&c.locksGranted),
		LocksDenied:    atomic.LoadUint64(&c.locksDenied),
		UptimeSeconds:  time.Since(c.startTime).Seconds(),
	}
}
