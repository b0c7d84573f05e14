package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/allthatprinting/pinto/backend-go/internal/design"
)

var ErrDuplicateID = errors.New("duplicate element id")

// LayerDirection selects which neighbor moveLayer swaps with.
type LayerDirection string

const (
	LayerUp   LayerDirection = "up"   // toward the front
	LayerDown LayerDirection = "down" // toward the back
)

// Scene is the ordered element collection of one design plus its canvas size.
// The slice is kept in paint order; zIndex mirrors that order.
type Scene struct {
	Elements []design.Element
	Size     design.CanvasSize
}

// NewScene creates a scene from elements, normalizing their order by zIndex
// and renumbering so zIndex matches the slice position.
func NewScene(elements []design.Element, size design.CanvasSize) *Scene {
	s := &Scene{Elements: design.CloneElements(elements), Size: size}
	s.sortByZ()
	s.renumber()
	return s
}

func (s *Scene) sortByZ() {
	sort.SliceStable(s.Elements, func(i, j int) bool {
		return s.Elements[i].ZIndex < s.Elements[j].ZIndex
	})
}

func (s *Scene) renumber() {
	for i := range s.Elements {
		s.Elements[i].ZIndex = i
	}
}

// IndexOf returns the position of id in paint order, or -1.
func (s *Scene) IndexOf(id string) int {
	for i := range s.Elements {
		if s.Elements[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns a copy of the element with the given id.
func (s *Scene) Get(id string) (design.Element, bool) {
	i := s.IndexOf(id)
	if i < 0 {
		return design.Element{}, false
	}
	return s.Elements[i], true
}

// Add appends el on top of the stack with zIndex = element count.
func (s *Scene) Add(el design.Element) error {
	if s.IndexOf(el.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, el.ID)
	}
	el.ZIndex = len(s.Elements)
	el.Rotation = design.NormalizeRotation(el.Rotation)
	s.Elements = append(s.Elements, el)
	return nil
}

// Update merges patch into the element. Unknown ids report false.
func (s *Scene) Update(id string, patch design.ElementPatch) bool {
	i := s.IndexOf(id)
	if i < 0 {
		return false
	}
	s.Elements[i] = patch.Apply(s.Elements[i])
	return true
}

// Replace overwrites the stored element with the same id, keeping its zIndex.
func (s *Scene) Replace(el design.Element) bool {
	i := s.IndexOf(el.ID)
	if i < 0 {
		return false
	}
	el.ZIndex = s.Elements[i].ZIndex
	s.Elements[i] = el
	return true
}

// Delete removes the element and closes the gap in zIndex numbering.
func (s *Scene) Delete(id string) bool {
	i := s.IndexOf(id)
	if i < 0 {
		return false
	}
	s.Elements = append(s.Elements[:i], s.Elements[i+1:]...)
	s.renumber()
	return true
}

// MoveLayer swaps the element with its neighbor in z-order and renumbers every
// zIndex to match. It reports false at either boundary or for unknown ids.
func (s *Scene) MoveLayer(id string, dir LayerDirection) bool {
	s.sortByZ()
	i := s.IndexOf(id)
	if i < 0 {
		return false
	}
	j := i + 1
	if dir == LayerDown {
		j = i - 1
	}
	if j < 0 || j >= len(s.Elements) {
		return false
	}
	s.Elements[i], s.Elements[j] = s.Elements[j], s.Elements[i]
	s.renumber()
	return true
}

// Visible returns the visible elements in ascending zIndex, ties broken by
// insertion order.
func (s *Scene) Visible() []design.Element {
	return VisibleInPaintOrder(s.Elements)
}

// VisibleInPaintOrder filters out hidden elements and stably sorts the rest by zIndex.
func VisibleInPaintOrder(elements []design.Element) []design.Element {
	out := make([]design.Element, 0, len(elements))
	for _, el := range elements {
		if el.Visible {
			out = append(out, el)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ZIndex < out[j].ZIndex
	})
	return out
}
