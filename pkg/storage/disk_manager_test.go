package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestDiskManagerReadWrite(t *testing.T) {
	dir := "./test_disk_rw"
	defer os.RemoveAll(dir)
	os.MkdirAll(dir, 0755)

	dm, err := NewDiskManager(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create disk manager: %v", err)
	}
	defer dm.Close()

	data := make([]byte, PageSize)
	copy(data, []byte("hello page"))

	id := dm.AllocatePage()
	if err := dm.WritePage(id, data); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}

	buf := make([]byte, PageSize)
	if err := dm.ReadPage(id, buf); err != nil {
		t.Fatalf("Failed to read page: %v", err)
	}
	if !bytes.Equal(buf, data) {
		t.Error("read data differs from written data")
	}

	if dm.ReadCount() != 1 || dm.WriteCount() != 1 {
		t.Errorf("expected 1 read and 1 write, got %d/%d", dm.ReadCount(), dm.WriteCount())
	}
}

func TestDiskManagerFreshPageReadsZero(t *testing.T) {
	dir := "./test_disk_fresh"
	defer os.RemoveAll(dir)
	os.MkdirAll(dir, 0755)

	dm, err := NewDiskManager(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create disk manager: %v", err)
	}
	defer dm.Close()

	buf := make([]byte, PageSize)
	for i := range buf {
		buf[i] = 0xFF
	}
	id := dm.AllocatePage()
	if err := dm.ReadPage(id, buf); err != nil {
		t.Fatalf("Failed to read fresh page: %v", err)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("fresh page byte %d is %#x, want 0", i, b)
		}
	}
}

func TestDiskManagerAllocateReuse(t *testing.T) {
	dir := "./test_disk_alloc"
	defer os.RemoveAll(dir)
	os.MkdirAll(dir, 0755)

	dm, err := NewDiskManager(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create disk manager: %v", err)
	}
	defer dm.Close()

	a := dm.AllocatePage()
	b := dm.AllocatePage()
	if a == b {
		t.Fatalf("allocator produced duplicate id %d", a)
	}

	dm.DeallocatePage(a)
	if c := dm.AllocatePage(); c != a {
		t.Errorf("expected deallocated id %d to be reused, got %d", a, c)
	}
}

func TestDiskManagerInvalidArgs(t *testing.T) {
	dir := "./test_disk_invalid"
	defer os.RemoveAll(dir)
	os.MkdirAll(dir, 0755)

	dm, err := NewDiskManager(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create disk manager: %v", err)
	}
	defer dm.Close()

	if err := dm.ReadPage(0, make([]byte, 16)); err == nil {
		t.Error("expected error for short read buffer")
	}
	if err := dm.WritePage(0, make([]byte, 16)); err == nil {
		t.Error("expected error for short write buffer")
	}
	if err := dm.ReadPage(InvalidPageID, make([]byte, PageSize)); err == nil {
		t.Error("expected error for invalid page id")
	}
}

func TestDiskManagerPersistsAcrossReopen(t *testing.T) {
	dir := "./test_disk_reopen"
	defer os.RemoveAll(dir)
	os.MkdirAll(dir, 0755)
	path := filepath.Join(dir, "test.db")

	dm, err := NewDiskManager(path)
	if err != nil {
		t.Fatalf("Failed to create disk manager: %v", err)
	}

	data := make([]byte, PageSize)
	copy(data, []byte("survives reopen"))
	id := dm.AllocatePage()
	if err := dm.WritePage(id, data); err != nil {
		t.Fatalf("Failed to write page: %v", err)
	}
	dm.Close()

	dm2, err := NewDiskManager(path)
	if err != nil {
		t.Fatalf("Failed to reopen disk manager: %v", err)
	}
	defer dm2.Close()

	buf := make([]byte, PageSize)
	if err := dm2.ReadPage(id, buf); err != nil {
		t.Fatalf("Failed to read page after reopen: %v", err)
	}
	if !bytes.Equal(buf, data) {
		t.Error("page contents lost across reopen")
	}

	// The allocator resumes past the existing pages.
	if next := dm2.AllocatePage(); next == id {
		t.Errorf("allocator reissued existing page id %d", id)
	}
}
