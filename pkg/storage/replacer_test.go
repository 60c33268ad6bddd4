package storage

import "testing"

func TestLRUKReplacerEvictionOrder(t *testing.T) {
	r := NewLRUKReplacer(3, 2)

	// Frames 0,1,2 accessed at times 0..6:
	// 0@0, 1@1, 2@2, 0@3, 1@4, 0@5, 2@6
	r.RecordAccess(0, AccessUnknown)
	r.RecordAccess(1, AccessUnknown)
	r.RecordAccess(2, AccessUnknown)
	r.RecordAccess(0, AccessUnknown)
	r.RecordAccess(1, AccessUnknown)
	r.RecordAccess(0, AccessUnknown)
	r.RecordAccess(2, AccessUnknown)

	for fid := FrameID(0); fid < 3; fid++ {
		r.SetEvictable(fid, true)
	}
	if r.Size() != 3 {
		t.Fatalf("expected 3 evictable frames, got %d", r.Size())
	}

	// Largest backward 2-distance first: frame 1's 2nd most recent access is
	// t=1, frame 2's is t=2, frame 0's is t=3.
	want := []FrameID{1, 2, 0}
	for i, expected := range want {
		victim, ok := r.Evict()
		if !ok {
			t.Fatalf("eviction %d: expected a victim", i)
		}
		if victim != expected {
			t.Errorf("eviction %d: expected frame %d, got %d", i, expected, victim)
		}
	}

	if _, ok := r.Evict(); ok {
		t.Error("expected no victim after all frames evicted")
	}
	if r.Size() != 0 {
		t.Errorf("expected size 0, got %d", r.Size())
	}
}

func TestLRUKReplacerInfiniteDistanceFirst(t *testing.T) {
	r := NewLRUKReplacer(4, 2)

	// Frames 1 and 2 have a single access each; frame 3 has two.
	r.RecordAccess(1, AccessUnknown)
	r.RecordAccess(2, AccessUnknown)
	r.RecordAccess(3, AccessUnknown)
	r.RecordAccess(3, AccessUnknown)

	for fid := FrameID(1); fid <= 3; fid++ {
		r.SetEvictable(fid, true)
	}

	// Frames with fewer than k accesses have infinite distance and go first,
	// oldest access first.
	want := []FrameID{1, 2, 3}
	for i, expected := range want {
		victim, ok := r.Evict()
		if !ok {
			t.Fatalf("eviction %d: expected a victim", i)
		}
		if victim != expected {
			t.Errorf("eviction %d: expected frame %d, got %d", i, expected, victim)
		}
	}
}

func TestLRUKReplacerSetEvictable(t *testing.T) {
	r := NewLRUKReplacer(2, 2)

	r.RecordAccess(0, AccessUnknown)
	r.RecordAccess(1, AccessUnknown)
	r.SetEvictable(0, true)
	r.SetEvictable(1, true)
	r.SetEvictable(1, false)

	if r.Size() != 1 {
		t.Fatalf("expected 1 evictable frame, got %d", r.Size())
	}
	victim, ok := r.Evict()
	if !ok || victim != 0 {
		t.Fatalf("expected frame 0 to be evicted, got %d (ok=%v)", victim, ok)
	}
	if _, ok := r.Evict(); ok {
		t.Error("frame 1 is pinned and must not be evicted")
	}

	// Toggling an unknown frame is a no-op.
	r2 := NewLRUKReplacer(2, 2)
	r2.SetEvictable(1, true)
	if r2.Size() != 0 {
		t.Errorf("unknown frame must not count as evictable, size=%d", r2.Size())
	}
}

func TestLRUKReplacerEvictClearsHistory(t *testing.T) {
	r := NewLRUKReplacer(2, 2)

	r.RecordAccess(0, AccessUnknown)
	r.RecordAccess(0, AccessUnknown)
	r.RecordAccess(1, AccessUnknown)
	r.SetEvictable(0, true)
	r.SetEvictable(1, true)

	// Frame 1 has infinite distance and goes first.
	if victim, _ := r.Evict(); victim != 1 {
		t.Fatalf("expected frame 1 first, got %d", victim)
	}

	// Re-accessed after eviction, frame 1 starts from an empty history and
	// ranks as infinite again, beating frame 0's finite distance.
	r.RecordAccess(1, AccessUnknown)
	r.SetEvictable(1, true)
	if victim, _ := r.Evict(); victim != 1 {
		t.Fatalf("expected frame 1 to rank infinite after history reset, got %d", victim)
	}
}

func TestLRUKReplacerRemove(t *testing.T) {
	r := NewLRUKReplacer(2, 2)

	r.RecordAccess(0, AccessUnknown)
	r.Remove(0)
	if r.Size() != 0 {
		t.Errorf("expected size 0 after remove, got %d", r.Size())
	}

	// Removing an unknown frame is a no-op.
	r.Remove(1)
}

func TestLRUKReplacerRemoveEvictablePanics(t *testing.T) {
	r := NewLRUKReplacer(2, 2)
	r.RecordAccess(0, AccessUnknown)
	r.SetEvictable(0, true)

	defer func() {
		if recover() == nil {
			t.Error("expected panic when removing an evictable frame")
		}
	}()
	r.Remove(0)
}

func TestLRUKReplacerOutOfRangePanics(t *testing.T) {
	r := NewLRUKReplacer(2, 2)

	defer func() {
		if recover() == nil {
			t.Error("expected panic for out-of-range frame id")
		}
	}()
	r.RecordAccess(2, AccessUnknown)
}
