package table

import (
	"encoding/binary"
	"fmt"

	"github.com/mnohosten/mira-db/pkg/storage"
)

// Slotted page layout:
//
//	header   [4-byte next page id][2-byte slot count][2-byte free space end]
//	slots    growing forward from the header, one entry per tuple:
//	         [2-byte offset][2-byte size][8-byte insert txn][8-byte delete txn][1-byte deleted]
//	tuples   growing backward from the end of the page
const (
	pageHeaderSize = 8
	slotEntrySize  = 21

	offNextPageID   = 0
	offSlotCount    = 4
	offFreeSpaceEnd = 6
)

func initTablePage(data []byte) {
	binary.LittleEndian.PutUint32(data[offNextPageID:], uint32(int32(storage.InvalidPageID)))
	binary.LittleEndian.PutUint16(data[offSlotCount:], 0)
	binary.LittleEndian.PutUint16(data[offFreeSpaceEnd:], uint16(storage.PageSize))
}

func pageNext(data []byte) storage.PageID {
	return storage.PageID(int32(binary.LittleEndian.Uint32(data[offNextPageID:])))
}

func setPageNext(data []byte, next storage.PageID) {
	binary.LittleEndian.PutUint32(data[offNextPageID:], uint32(int32(next)))
}

func pageSlotCount(data []byte) int {
	return int(binary.LittleEndian.Uint16(data[offSlotCount:]))
}

func slotBase(slot int) int {
	return pageHeaderSize + slot*slotEntrySize
}

// pageFreeSpace returns the bytes available between the slot array and the
// tuple area.
func pageFreeSpace(data []byte) int {
	slotEnd := slotBase(pageSlotCount(data))
	freeEnd := int(binary.LittleEndian.Uint16(data[offFreeSpaceEnd:]))
	return freeEnd - slotEnd
}

// pageInsertTuple appends a tuple to the page, returning its slot.
// Returns false when the page cannot fit the tuple and its slot entry.
func pageInsertTuple(data []byte, meta TupleMeta, tuple []byte) (int, bool) {
	if pageFreeSpace(data) < slotEntrySize+len(tuple) {
		return 0, false
	}

	slot := pageSlotCount(data)
	freeEnd := int(binary.LittleEndian.Uint16(data[offFreeSpaceEnd:]))
	tupleOff := freeEnd - len(tuple)
	copy(data[tupleOff:freeEnd], tuple)

	base := slotBase(slot)
	binary.LittleEndian.PutUint16(data[base:], uint16(tupleOff))
	binary.LittleEndian.PutUint16(data[base+2:], uint16(len(tuple)))
	writeSlotMeta(data, base, meta)

	binary.LittleEndian.PutUint16(data[offSlotCount:], uint16(slot+1))
	binary.LittleEndian.PutUint16(data[offFreeSpaceEnd:], uint16(tupleOff))
	return slot, true
}

func writeSlotMeta(data []byte, base int, meta TupleMeta) {
	binary.LittleEndian.PutUint64(data[base+4:], uint64(meta.InsertTxn))
	binary.LittleEndian.PutUint64(data[base+12:], uint64(meta.DeleteTxn))
	if meta.IsDeleted {
		data[base+20] = 1
	} else {
		data[base+20] = 0
	}
}

func readSlotMeta(data []byte, base int) TupleMeta {
	return TupleMeta{
		InsertTxn: TxnID(int64(binary.LittleEndian.Uint64(data[base+4:]))),
		DeleteTxn: TxnID(int64(binary.LittleEndian.Uint64(data[base+12:]))),
		IsDeleted: data[base+20] == 1,
	}
}

// pageReadTuple returns the meta and a copy of the tuple payload at slot.
func pageReadTuple(data []byte, slot int) (TupleMeta, []byte, error) {
	if slot < 0 || slot >= pageSlotCount(data) {
		return TupleMeta{}, nil, fmt.Errorf("slot %d out of range (page has %d)", slot, pageSlotCount(data))
	}

	base := slotBase(slot)
	tupleOff := int(binary.LittleEndian.Uint16(data[base:]))
	tupleLen := int(binary.LittleEndian.Uint16(data[base+2:]))

	payload := make([]byte, tupleLen)
	copy(payload, data[tupleOff:tupleOff+tupleLen])
	return readSlotMeta(data, base), payload, nil
}

// pageUpdateMeta overwrites the meta of the tuple at slot.
func pageUpdateMeta(data []byte, slot int, meta TupleMeta) error {
	if slot < 0 || slot >= pageSlotCount(data) {
		return fmt.Errorf("slot %d out of range (page has %d)", slot, pageSlotCount(data))
	}
	writeSlotMeta(data, slotBase(slot), meta)
	return nil
}
