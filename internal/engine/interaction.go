package engine

import "github.com/allthatprinting/pinto/backend-go/internal/design"

// InteractionState is the pointer gesture currently in progress.
type InteractionState int

const (
	StateIdle InteractionState = iota
	StateDragging
	StateResizing
)

func (s InteractionState) String() string {
	switch s {
	case StateDragging:
		return "dragging"
	case StateResizing:
		return "resizing"
	}
	return "idle"
}

// Controller tracks one drag or resize gesture. Deltas are always measured
// from the pointer position and element box captured at gesture start, so
// rounding never accumulates across move events.
type Controller struct {
	state        InteractionState
	targetID     string
	handle       Handle
	startPointer Point
	startRect    Rect
	moved        bool
}

func (c *Controller) begin(el design.Element, h Handle, p Point) {
	c.state = StateDragging
	if h != HandleNone {
		c.state = StateResizing
	}
	c.targetID = el.ID
	c.handle = h
	c.startPointer = p
	c.startRect = elementRect(el)
	c.moved = false
}

// apply computes the target box for pointer position p.
func (c *Controller) apply(p Point, canvas design.CanvasSize) Rect {
	dx := p.X - c.startPointer.X
	dy := p.Y - c.startPointer.Y
	if c.state == StateResizing {
		return ResizeBox(c.startRect, c.handle, dx, dy, canvas)
	}
	return MoveBox(c.startRect, dx, dy, canvas)
}

func (c *Controller) reset() {
	*c = Controller{}
}

// --- Pointer input ---

// Listening reports whether global move/up listeners are needed. Hosts attach
// them while a gesture is active and detach them once it ends.
func (e *Engine) Listening() bool {
	return e.ctl.state != StateIdle
}

// Interaction returns the current gesture state.
func (e *Engine) Interaction() InteractionState {
	return e.ctl.state
}

// PointerDown starts a drag on an element body, or a resize when h names a
// grip. The element becomes selected. It reports false for unknown ids and
// while another gesture is still active.
func (e *Engine) PointerDown(id string, h Handle, p Point) bool {
	if e.ctl.state != StateIdle {
		return false
	}
	el, ok := e.scene.Get(id)
	if !ok {
		return false
	}
	e.selected = id
	e.ctl.begin(el, h, p)
	return true
}

// PointerMove updates the active gesture. The scene changes live but nothing
// is committed until the gesture ends.
func (e *Engine) PointerMove(p Point) bool {
	if e.ctl.state == StateIdle {
		return false
	}
	el, ok := e.scene.Get(e.ctl.targetID)
	if !ok {
		e.ctl.reset()
		return false
	}
	r := e.ctl.apply(p, e.scene.Size)
	if r == elementRect(el) {
		return false
	}
	el.X, el.Y, el.Width, el.Height = r.X, r.Y, r.Width, r.Height
	e.scene.Replace(el)
	e.ctl.moved = true
	return true
}

// PointerUp ends the gesture. A gesture that changed the element records a
// single history entry.
func (e *Engine) PointerUp() bool {
	if e.ctl.state == StateIdle {
		return false
	}
	moved := e.ctl.moved
	e.ctl.reset()
	if !moved {
		return false
	}
	e.commit()
	return true
}

// PointerLeave behaves like PointerUp so a gesture never outlives the pointer.
func (e *Engine) PointerLeave() bool {
	return e.PointerUp()
}

// CanvasDown handles a press on empty canvas: it deselects.
func (e *Engine) CanvasDown() {
	if e.ctl.state != StateIdle {
		return
	}
	e.selected = ""
}

func (e *Engine) cancelInteraction() {
	if e.ctl.state == StateIdle {
		return
	}
	moved := e.ctl.moved
	e.ctl.reset()
	if moved {
		e.scene.Elements = e.history.Current()
	}
}

// Press targets, in the order PressAt tries them.
const (
	TargetControl = "control"
	TargetHandle  = "handle"
	TargetElement = "element"
	TargetCanvas  = "canvas"
)

// Target is what a press on the canvas landed on.
type Target struct {
	Kind    string `json:"kind"`
	ID      string `json:"id,omitempty"`
	Handle  Handle `json:"handle,omitempty"`
	Control string `json:"control,omitempty"`
}

// PressAt resolves a press at p against the selection's controls, its grips,
// the visible elements and finally the empty canvas, then starts the matching
// action. Controls act immediately; grips and elements begin a gesture. A
// press during an active gesture does nothing and returns a zero Target.
func (e *Engine) PressAt(p Point) Target {
	if e.ctl.state != StateIdle {
		return Target{}
	}
	if c := e.ControlAt(p.X, p.Y); c != "" {
		id := e.selected
		switch c {
		case ControlRotate:
			e.Rotate(id)
		case ControlDelete:
			e.DeleteElement(id)
		}
		return Target{Kind: TargetControl, ID: id, Control: c}
	}
	if h := e.HandleAt(p.X, p.Y); h != HandleNone {
		id := e.selected
		e.PointerDown(id, h, p)
		return Target{Kind: TargetHandle, ID: id, Handle: h}
	}
	if id := e.HitTest(p.X, p.Y); id != "" {
		e.PointerDown(id, HandleNone, p)
		return Target{Kind: TargetElement, ID: id}
	}
	e.CanvasDown()
	return Target{Kind: TargetCanvas}
}

// --- Touch input ---

// TouchStart begins a gesture from a single touch. Multi-touch is ignored.
func (e *Engine) TouchStart(id string, h Handle, touches []Point) bool {
	if len(touches) != 1 {
		return false
	}
	return e.PointerDown(id, h, touches[0])
}

// TouchMove follows a single touch. Multi-touch moves are ignored without
// ending the gesture.
func (e *Engine) TouchMove(touches []Point) bool {
	if len(touches) != 1 {
		return false
	}
	return e.PointerMove(touches[0])
}

// TouchEnd finishes the touch gesture.
func (e *Engine) TouchEnd() bool {
	return e.PointerUp()
}

// --- Keyboard input ---

// SetFocus tells the engine whether the editor has keyboard focus. Keys are
// ignored while unfocused so text inputs elsewhere on the page keep working.
func (e *Engine) SetFocus(focused bool) {
	e.focused = focused
}

// KeyDown applies a keyboard shortcut to the selected element. It reports
// whether the key was consumed, in which case the host should suppress the
// browser default.
func (e *Engine) KeyDown(key string) bool {
	if !e.focused || e.selected == "" {
		return false
	}
	switch key {
	case "Delete", "Backspace":
		return e.DeleteElement(e.selected)
	case "Escape":
		e.cancelInteraction()
		e.selected = ""
		return true
	}
	return false
}
