// Package executor implements the execution operators that feed on the
// storage core, currently the sequential scan.
package executor

import (
	"errors"

	"github.com/mnohosten/mira-db/pkg/metrics"
	"github.com/mnohosten/mira-db/pkg/txn"
)

var (
	// ErrTableLockFailed is returned when a scan cannot acquire its table lock
	ErrTableLockFailed = errors.New("table lock fails")

	// ErrRowLockFailed is returned when a scan cannot acquire a row lock
	ErrRowLockFailed = errors.New("row lock fails")
)

// Context carries the collaborators an executor runs against. Txn may be nil
// for scans outside any transaction; locking is skipped entirely then.
type Context struct {
	Txn       *txn.Transaction
	LockMgr   *txn.LockManager
	IsDelete  bool // the scan feeds a delete, so rows are locked exclusively
	Collector *metrics.Collector
}
