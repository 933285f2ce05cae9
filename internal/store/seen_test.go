package store

import (
	"fmt"
	"testing"
)

func TestSeenStore_SeenAndMark(t *testing.T) {
	store := NewSeenStore(100, 0.001)

	if store.Seen("cmd-1") {
		t.Error("fresh store should not have seen cmd-1")
	}

	store.Mark("cmd-1")

	if !store.Seen("cmd-1") {
		t.Error("cmd-1 should be seen after Mark")
	}
	if store.Seen("cmd-2") {
		t.Error("cmd-2 was never marked")
	}
}

func TestSeenStore_MarkIsIdempotent(t *testing.T) {
	store := NewSeenStore(100, 0.001)

	store.Mark("cmd-1")
	store.Mark("cmd-1")

	if store.Size() != 1 {
		t.Errorf("Size() = %d, want 1", store.Size())
	}
}

func TestSeenStore_EvictsOldestAtCapacity(t *testing.T) {
	store := NewSeenStore(3, 0.001)

	for i := 1; i <= 4; i++ {
		store.Mark(fmt.Sprintf("cmd-%d", i))
	}

	if store.Size() != 3 {
		t.Errorf("Size() = %d, want 3", store.Size())
	}
	if store.Seen("cmd-1") {
		t.Error("cmd-1 should have been evicted as oldest")
	}
	if !store.Seen("cmd-4") {
		t.Error("cmd-4 should still be present")
	}
}
