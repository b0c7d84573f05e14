package engine

import "github.com/allthatprinting/pinto/backend-go/internal/design"

// History is a linear undo/redo stack of full element snapshots.
// entries[index] is always the committed state of the scene.
type History struct {
	entries [][]design.Element
	index   int
	limit   int
}

// NewHistory creates a history whose sole entry is initial (which may be empty).
// A limit <= 0 keeps every entry.
func NewHistory(initial []design.Element, limit int) *History {
	return &History{
		entries: [][]design.Element{design.CloneElements(initial)},
		limit:   limit,
	}
}

// Commit records a new snapshot, discarding any redoable future.
func (h *History) Commit(elements []design.Element) {
	h.entries = append(h.entries[:h.index+1], design.CloneElements(elements))
	if h.limit > 0 && len(h.entries) > h.limit {
		drop := len(h.entries) - h.limit
		h.entries = append([][]design.Element(nil), h.entries[drop:]...)
	}
	h.index = len(h.entries) - 1
}

// Undo steps back one entry. At the first entry it is a no-op and ok is false.
func (h *History) Undo() (elements []design.Element, ok bool) {
	if h.index == 0 {
		return h.Current(), false
	}
	h.index--
	return h.Current(), true
}

// Redo steps forward one entry. At the last entry it is a no-op and ok is false.
func (h *History) Redo() (elements []design.Element, ok bool) {
	if h.index >= len(h.entries)-1 {
		return h.Current(), false
	}
	h.index++
	return h.Current(), true
}

// Current returns a copy of the committed snapshot.
func (h *History) Current() []design.Element {
	return design.CloneElements(h.entries[h.index])
}

// Reset replaces the whole stack with a single entry.
func (h *History) Reset(initial []design.Element) {
	h.entries = [][]design.Element{design.CloneElements(initial)}
	h.index = 0
}

func (h *History) CanUndo() bool { return h.index > 0 }
func (h *History) CanRedo() bool { return h.index < len(h.entries)-1 }
func (h *History) Len() int      { return len(h.entries) }
func (h *History) Index() int    { return h.index }
