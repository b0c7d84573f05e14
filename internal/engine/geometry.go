package engine

import (
	"math"

	"github.com/allthatprinting/pinto/backend-go/internal/design"
)

// Point is a position in canvas pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Center returns the center point of the rect.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Handle identifies one of the eight resize grips.
type Handle string

const (
	HandleNone Handle = ""
	HandleN    Handle = "n"
	HandleS    Handle = "s"
	HandleE    Handle = "e"
	HandleW    Handle = "w"
	HandleNE   Handle = "ne"
	HandleNW   Handle = "nw"
	HandleSE   Handle = "se"
	HandleSW   Handle = "sw"
)

// Handles lists the grips in drawing order: corners first, then edges.
var Handles = []Handle{HandleNW, HandleNE, HandleSW, HandleSE, HandleN, HandleS, HandleE, HandleW}

// ParseHandle accepts both compass names and the long left/right/top/bottom form.
func ParseHandle(s string) Handle {
	switch s {
	case "n", "top":
		return HandleN
	case "s", "bottom":
		return HandleS
	case "e", "right":
		return HandleE
	case "w", "left":
		return HandleW
	case "ne", "top-right":
		return HandleNE
	case "nw", "top-left":
		return HandleNW
	case "se", "bottom-right":
		return HandleSE
	case "sw", "bottom-left":
		return HandleSW
	}
	return HandleNone
}

func (h Handle) left() bool   { return h == HandleW || h == HandleNW || h == HandleSW }
func (h Handle) right() bool  { return h == HandleE || h == HandleNE || h == HandleSE }
func (h Handle) top() bool    { return h == HandleN || h == HandleNE || h == HandleNW }
func (h Handle) bottom() bool { return h == HandleS || h == HandleSE || h == HandleSW }

// Anchor returns the handle's position on a box in element-local space.
func (h Handle) Anchor(w, ht float64) (float64, float64) {
	x, y := w/2, ht/2
	if h.left() {
		x = 0
	} else if h.right() {
		x = w
	}
	if h.top() {
		y = 0
	} else if h.bottom() {
		y = ht
	}
	return x, y
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return math.Max(lo, math.Min(v, hi))
}

// MoveBox offsets a box by (dx, dy) from its start position and clamps each
// axis so the box stays within the canvas.
func MoveBox(start Rect, dx, dy float64, canvas design.CanvasSize) Rect {
	start.X = clamp(start.X+dx, 0, float64(canvas.Width)-start.Width)
	start.Y = clamp(start.Y+dy, 0, float64(canvas.Height)-start.Height)
	return start
}

// ResizeBox applies a resize gesture on handle h with pointer deltas (dx, dy)
// measured since the gesture started. Left and top grips move the origin by
// exactly the amount the size shrinks, so the opposite edge stays fixed; the
// shift is clamped by both the minimum size and the canvas origin, which keeps
// size and position consistent with each other.
func ResizeBox(start Rect, h Handle, dx, dy float64, canvas design.CanvasSize) Rect {
	const minSize = design.MinElementSize
	r := start

	if h.right() {
		r.Width = math.Max(minSize, start.Width+dx)
	}
	if h.left() {
		shift := clamp(dx, -start.X, start.Width-minSize)
		r.Width = start.Width - shift
		r.X = start.X + shift
	}
	if h.bottom() {
		r.Height = math.Max(minSize, start.Height+dy)
	}
	if h.top() {
		shift := clamp(dy, -start.Y, start.Height-minSize)
		r.Height = start.Height - shift
		r.Y = start.Y + shift
	}

	r.Width = math.Max(minSize, math.Min(r.Width, float64(canvas.Width)-r.X))
	r.Height = math.Max(minSize, math.Min(r.Height, float64(canvas.Height)-r.Y))
	return r
}

func elementRect(el design.Element) Rect {
	return Rect{X: el.X, Y: el.Y, Width: el.Width, Height: el.Height}
}
