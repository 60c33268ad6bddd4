package storage

import (
	"os"
	"sync"
	"testing"
	"time"
)

func TestPageGuardDropUnpins(t *testing.T) {
	dir := "./test_guard_drop"
	defer os.RemoveAll(dir)
	bp, _ := newTestPool(t, dir, 2, 2)

	guard, err := bp.NewPageGuarded()
	if err != nil {
		t.Fatalf("Failed to create guarded page: %v", err)
	}
	id := guard.ID()

	if pins, _ := bp.PinCount(id); pins != 1 {
		t.Fatalf("expected pin count 1, got %d", pins)
	}

	guard.Drop()
	if pins, _ := bp.PinCount(id); pins != 0 {
		t.Errorf("expected pin count 0 after drop, got %d", pins)
	}

	// Dropping twice must not double-unpin.
	guard.Drop()
	if pins, _ := bp.PinCount(id); pins != 0 {
		t.Errorf("double drop changed pin count to %d", pins)
	}
}

func TestPageGuardDirtiness(t *testing.T) {
	dir := "./test_guard_dirty"
	defer os.RemoveAll(dir)
	bp, _ := newTestPool(t, dir, 2, 2)

	guard, _ := bp.NewPageGuarded()
	id := guard.ID()
	guard.Drop()

	// A basic guard without MarkDirty unpins clean.
	g, err := bp.FetchPageBasic(id)
	if err != nil {
		t.Fatalf("Failed to fetch: %v", err)
	}
	g.Drop()
	if page, _ := bp.FetchPage(id); page.IsDirty() {
		t.Error("clean guard left the page dirty")
	}
	bp.UnpinPage(id, false)

	// MarkDirty propagates on drop.
	g2, _ := bp.FetchPageBasic(id)
	copy(g2.Data(), []byte("x"))
	g2.MarkDirty()
	g2.Drop()
	if page, _ := bp.FetchPage(id); !page.IsDirty() {
		t.Error("MarkDirty was not reported to the pool")
	}
	bp.UnpinPage(id, false)
}

func TestWritePageGuardMarksDirty(t *testing.T) {
	dir := "./test_guard_write_dirty"
	defer os.RemoveAll(dir)
	bp, _ := newTestPool(t, dir, 2, 2)

	guard, _ := bp.NewPageGuarded()
	id := guard.ID()
	guard.Drop()

	wg, err := bp.FetchPageWrite(id)
	if err != nil {
		t.Fatalf("Failed to fetch for write: %v", err)
	}
	copy(wg.Data(), []byte("written"))
	wg.Drop()

	page, _ := bp.FetchPage(id)
	if !page.IsDirty() {
		t.Error("write guard must unpin dirty")
	}
	bp.UnpinPage(id, false)
}

func TestReadGuardsShareWriteGuardExcludes(t *testing.T) {
	dir := "./test_guard_latching"
	defer os.RemoveAll(dir)
	bp, _ := newTestPool(t, dir, 2, 2)

	guard, _ := bp.NewPageGuarded()
	id := guard.ID()
	guard.Drop()

	// Two read guards coexist.
	r1, err := bp.FetchPageRead(id)
	if err != nil {
		t.Fatalf("Failed to fetch for read: %v", err)
	}
	r2, err := bp.FetchPageRead(id)
	if err != nil {
		t.Fatalf("Failed to fetch second read guard: %v", err)
	}

	// A writer blocks until the readers drop.
	acquired := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w, err := bp.FetchPageWrite(id)
		if err != nil {
			t.Errorf("Failed to fetch for write: %v", err)
			return
		}
		close(acquired)
		w.Drop()
	}()

	select {
	case <-acquired:
		t.Fatal("write guard acquired while read guards were held")
	case <-time.After(50 * time.Millisecond):
	}

	r1.Drop()
	r2.Drop()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("write guard never acquired after readers dropped")
	}
	wg.Wait()

	if pins, _ := bp.PinCount(id); pins != 0 {
		t.Errorf("expected pin count 0 after all guards dropped, got %d", pins)
	}
}

func TestPageGuardUpgrade(t *testing.T) {
	dir := "./test_guard_upgrade"
	defer os.RemoveAll(dir)
	bp, _ := newTestPool(t, dir, 2, 2)

	basic, _ := bp.NewPageGuarded()
	id := basic.ID()

	w := basic.UpgradeWrite()
	copy(w.Data(), []byte("upgraded"))

	// The original guard is inert; dropping it must not release anything.
	basic.Drop()
	if pins, _ := bp.PinCount(id); pins != 1 {
		t.Fatalf("inert guard released the pin, count=%d", pins)
	}

	w.Drop()
	if pins, _ := bp.PinCount(id); pins != 0 {
		t.Errorf("expected pin count 0, got %d", pins)
	}
}
