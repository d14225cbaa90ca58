package pmx

import "testing"

func TestHistory_Push(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		h.push(HistoryEntry{Description: string(rune('a' + i))})
	}
	if h.Len() != 3 || h.Cursor() != 3 {
		t.Fatalf("len = %d, cursor = %d", h.Len(), h.Cursor())
	}
	entries := h.Entries()
	if entries[0].Description != "c" || entries[2].Description != "e" {
		t.Errorf("entries = %+v", entries)
	}

	entries[0].Description = "tampered"
	if h.Entries()[0].Description != "c" {
		t.Error("Entries returned the internal slice")
	}
}

func TestHistory_Cursor(t *testing.T) {
	h := NewHistory(0)
	if h.Limit() != DefaultHistoryLimit {
		t.Errorf("limit = %d, want %d", h.Limit(), DefaultHistoryLimit)
	}
	if h.CanUndo() || h.CanRedo() {
		t.Error("empty history can move")
	}
	if _, ok := h.undo(); ok {
		t.Error("undo on empty history succeeded")
	}

	h.push(HistoryEntry{Description: "one"})
	h.push(HistoryEntry{Description: "two"})

	e, ok := h.undo()
	if !ok || e.Description != "two" || h.Cursor() != 1 {
		t.Fatalf("undo = %q, %v, cursor %d", e.Description, ok, h.Cursor())
	}
	if !h.CanRedo() || !h.CanUndo() {
		t.Error("expected both directions available")
	}
	e, ok = h.redo()
	if !ok || e.Description != "two" || h.Cursor() != 2 {
		t.Fatalf("redo = %q, %v, cursor %d", e.Description, ok, h.Cursor())
	}
	if _, ok := h.redo(); ok {
		t.Error("redo past the end succeeded")
	}

	h.undo()
	h.undo()
	h.push(HistoryEntry{Description: "three"})
	if h.Len() != 1 || h.CanRedo() {
		t.Errorf("len = %d, can redo = %v", h.Len(), h.CanRedo())
	}
}
