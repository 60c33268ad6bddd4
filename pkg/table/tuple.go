// Package table implements a heap of tuples stored in slotted pages accessed
// through the buffer pool.
package table

import (
	"fmt"

	"github.com/mnohosten/mira-db/pkg/storage"
)

// TxnID identifies a transaction in tuple metadata.
type TxnID int64

// InvalidTxnID marks tuple metadata not owned by any transaction.
const InvalidTxnID TxnID = -1

// RID locates a tuple: the page holding it and its slot within the page.
type RID struct {
	PageID storage.PageID
	Slot   int
}

// String renders the RID for errors and logs.
func (r RID) String() string {
	return fmt.Sprintf("%d/%d", r.PageID, r.Slot)
}

// TupleMeta carries the visibility metadata stored alongside every tuple.
type TupleMeta struct {
	InsertTxn TxnID
	DeleteTxn TxnID
	IsDeleted bool
}

// Tuple is an opaque byte payload plus its location.
type Tuple struct {
	RID  RID
	Data []byte
}

// TupleRecord is one entry produced by a table iterator.
type TupleRecord struct {
	Meta  TupleMeta
	Tuple Tuple
}
