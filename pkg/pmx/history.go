package pmx

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryLimit is the number of entries kept before the oldest is dropped.
const DefaultHistoryLimit = 50

// History errors.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// OpKind tags an edit operation.
type OpKind string

const (
	OpAddTexture       OpKind = "add_texture"
	OpUpdateTexture    OpKind = "update_texture"
	OpDeleteTexture    OpKind = "delete_texture"
	OpSetMainTexture   OpKind = "set_main_texture"
	OpSetSphereTexture OpKind = "set_sphere_texture"
	OpSetToonTexture   OpKind = "set_toon_texture"
	OpUpdateMaterial   OpKind = "update_material"
)

// FieldChange records one field of a material update.
type FieldChange struct {
	Field string
	Old   any
	New   any
}

// Operation describes what an edit did. Unused indices are -1.
type Operation struct {
	Kind          OpKind
	MaterialIndex int
	TextureIndex  int
	OldPath       string
	NewPath       string
	OldValue      any
	NewValue      any
	Changes       []FieldChange
}

// tableState is one side of a reversible delta. Only the tables an edit
// touched are captured; undo and redo always move one entry at a time, so
// an uncaptured table is identical on both sides.
type tableState struct {
	textures     []Texture
	materials    []Material
	hasTextures  bool
	hasMaterials bool
}

func captureState(doc *Document, textures, materials bool) tableState {
	s := tableState{hasTextures: textures, hasMaterials: materials}
	if textures {
		s.textures = cloneTextures(doc.Textures)
	}
	if materials {
		s.materials = cloneMaterials(doc.Materials)
	}
	return s
}

func (s tableState) restore(doc *Document) {
	if s.hasTextures {
		doc.Textures = cloneTextures(s.textures)
	}
	if s.hasMaterials {
		doc.Materials = cloneMaterials(s.materials)
	}
}

// HistoryEntry is one recorded edit.
type HistoryEntry struct {
	ID          uuid.UUID
	Operation   Operation
	Timestamp   time.Time
	Description string

	before tableState
	after  tableState
}

// History is a capped edit log with an undo cursor. The cursor counts the
// entries currently applied to the document.
type History struct {
	entries []HistoryEntry
	cursor  int
	limit   int
}

// NewHistory returns an empty history keeping at most limit entries.
// A non-positive limit selects DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// push drops any undone entries, appends e and enforces the cap.
func (h *History) push(e HistoryEntry) {
	if h.cursor < len(h.entries) {
		clear(h.entries[h.cursor:])
		h.entries = h.entries[:h.cursor]
	}
	h.entries = append(h.entries, e)
	if len(h.entries) > h.limit {
		drop := len(h.entries) - h.limit
		h.entries = append(h.entries[:0:0], h.entries[drop:]...)
	}
	h.cursor = len(h.entries)
}

func (h *History) undo() (HistoryEntry, bool) {
	if h.cursor == 0 {
		return HistoryEntry{}, false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

func (h *History) redo() (HistoryEntry, bool) {
	if h.cursor >= len(h.entries) {
		return HistoryEntry{}, false
	}
	e := h.entries[h.cursor]
	h.cursor++
	return e, true
}

// Len returns the number of entries in the log.
func (h *History) Len() int { return len(h.entries) }

// Cursor returns the number of entries currently applied.
func (h *History) Cursor() int { return h.cursor }

// Limit returns the maximum number of entries kept.
func (h *History) Limit() int { return h.limit }

// CanUndo reports whether an applied entry exists.
func (h *History) CanUndo() bool { return h.cursor > 0 }

// CanRedo reports whether an undone entry exists.
func (h *History) CanRedo() bool { return h.cursor < len(h.entries) }

// Entries returns a copy of the log, oldest first.
func (h *History) Entries() []HistoryEntry {
	return append([]HistoryEntry(nil), h.entries...)
}
