package engine

import (
	"encoding/json"
	"math"

	"github.com/allthatprinting/pinto/backend-go/internal/design"
)

// Overlay geometry in canvas pixels.
const (
	HandleSize     = 8.0
	ControlSize    = 24.0
	ControlGap     = 8.0
	OutlineDash    = 4.0
	handleHitSlack = 4.0
)

// Control names for the buttons drawn next to the selection.
const (
	ControlRotate = "rotate"
	ControlDelete = "delete"
)

// PlaceholderText is shown on an empty canvas.
const PlaceholderText = "이미지, 텍스트 또는 도형을 추가하세요"

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op        string          `json:"op"`                  // "element", "outline", "handle", "control", "placeholder"
	ObjectID  string          `json:"objectId,omitempty"`  // For hit correlation
	Transform []float64       `json:"transform,omitempty"` // [a, b, c, d, e, f] affine matrix, element-local to canvas
	Element   *design.Element `json:"element,omitempty"`   // Element attributes for "element" ops
	Width     float64         `json:"width,omitempty"`
	Height    float64         `json:"height,omitempty"`
	X         float64         `json:"x,omitempty"` // Canvas position for handles, controls and placeholder
	Y         float64         `json:"y,omitempty"`
	Dash      []float64       `json:"dash,omitempty"`
	Handle    Handle          `json:"handle,omitempty"`
	Control   string          `json:"control,omitempty"`
	Text      string          `json:"text,omitempty"`
}

// Render compiles the scene into draw commands in painter's order (back to
// front). The selection overlay is emitted last so it sits above everything.
func (e *Engine) Render() []DrawCommand {
	visible := e.scene.Visible()
	if len(e.scene.Elements) == 0 {
		w, h := float64(e.scene.Size.Width), float64(e.scene.Size.Height)
		return []DrawCommand{{Op: "placeholder", X: w / 2, Y: h / 2, Text: PlaceholderText}}
	}

	commands := make([]DrawCommand, 0, len(visible)+11)
	for i := range visible {
		el := visible[i]
		commands = append(commands, DrawCommand{
			Op:        "element",
			ObjectID:  el.ID,
			Transform: ElementMatrix(el).ToSlice(),
			Element:   &el,
			Width:     el.Width,
			Height:    el.Height,
		})
	}

	sel, ok := e.scene.Get(e.selected)
	if !ok {
		return commands
	}
	m := ElementMatrix(sel)
	commands = append(commands, DrawCommand{
		Op:        "outline",
		ObjectID:  sel.ID,
		Transform: m.ToSlice(),
		Width:     sel.Width,
		Height:    sel.Height,
		Dash:      []float64{OutlineDash, OutlineDash},
	})
	for _, h := range Handles {
		x, y := m.TransformPoint(h.Anchor(sel.Width, sel.Height))
		commands = append(commands, DrawCommand{
			Op:       "handle",
			ObjectID: sel.ID,
			Handle:   h,
			X:        x,
			Y:        y,
			Width:    HandleSize,
			Height:   HandleSize,
		})
	}
	for _, c := range controlPositions(sel) {
		commands = append(commands, DrawCommand{
			Op:       "control",
			ObjectID: sel.ID,
			Control:  c.name,
			X:        c.pos.X,
			Y:        c.pos.Y,
			Width:    ControlSize,
			Height:   ControlSize,
		})
	}
	return commands
}

// RenderJSON serializes the current draw commands.
func (e *Engine) RenderJSON() string {
	data, err := json.Marshal(e.Render())
	if err != nil {
		return "[]"
	}
	return string(data)
}

// controlPositions places the control buttons just outside the top-right
// corner of the element's rotated bounding box, stacked downward.
func controlPositions(el design.Element) []control {
	bounds := BoundingBox(el)
	x := bounds.X + bounds.Width + ControlGap
	return []control{
		{ControlRotate, Point{X: x, Y: bounds.Y}},
		{ControlDelete, Point{X: x, Y: bounds.Y + ControlSize + ControlGap}},
	}
}

type control struct {
	name string
	pos  Point
}

// BoundingBox returns the axis-aligned box enclosing the rotated element.
func BoundingBox(el design.Element) Rect {
	return ElementMatrix(el).TransformRect(Rect{Width: el.Width, Height: el.Height})
}

// containsPoint tests (x, y) against the element's rotated box.
func containsPoint(el design.Element, x, y float64) bool {
	inv, ok := ElementMatrix(el).Invert()
	if !ok {
		return false
	}
	lx, ly := inv.TransformPoint(x, y)
	return lx >= 0 && lx <= el.Width && ly >= 0 && ly <= el.Height
}

// HitTest returns the ID of the topmost visible element containing the point,
// or empty string.
func (e *Engine) HitTest(x, y float64) string {
	visible := e.scene.Visible()
	// Front to back
	for i := len(visible) - 1; i >= 0; i-- {
		if containsPoint(visible[i], x, y) {
			return visible[i].ID
		}
	}
	return ""
}

// HandleAt returns the resize grip of the selected element under the point.
func (e *Engine) HandleAt(x, y float64) Handle {
	sel, ok := e.scene.Get(e.selected)
	if !ok {
		return HandleNone
	}
	m := ElementMatrix(sel)
	reach := HandleSize/2 + handleHitSlack
	for _, h := range Handles {
		hx, hy := m.TransformPoint(h.Anchor(sel.Width, sel.Height))
		if math.Abs(x-hx) <= reach && math.Abs(y-hy) <= reach {
			return h
		}
	}
	return HandleNone
}

// ControlAt returns the control button of the selected element under the point.
func (e *Engine) ControlAt(x, y float64) string {
	sel, ok := e.scene.Get(e.selected)
	if !ok {
		return ""
	}
	for _, c := range controlPositions(sel) {
		if (Rect{X: c.pos.X, Y: c.pos.Y, Width: ControlSize, Height: ControlSize}).Contains(x, y) {
			return c.name
		}
	}
	return ""
}

// SelectionBounds returns the rotated bounding box of the selected element.
func (e *Engine) SelectionBounds() (Rect, bool) {
	sel, ok := e.scene.Get(e.selected)
	if !ok {
		return Rect{}, false
	}
	return BoundingBox(sel), true
}

// RectToJSON serializes a Rect to JSON.
func RectToJSON(r Rect) string {
	data, _ := json.Marshal(r)
	return string(data)
}
