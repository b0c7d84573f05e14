package engine

import (
	"encoding/json"
	"time"

	"github.com/allthatprinting/pinto/backend-go/internal/design"
	"github.com/allthatprinting/pinto/backend-go/internal/typeid"
)

// Engine is one editor session. It owns the scene, the selection, the undo
// history and the interaction state machine. It is not safe for concurrent
// use: every call is expected to come from a single event loop.
type Engine struct {
	scene       *Scene
	productType string

	history *History

	// Selection state (engine owns this)
	selected string

	ctl     Controller
	focused bool

	// revision increments on every committed change
	revision int64
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	historyLimit int
}

// WithHistoryLimit caps the number of snapshots kept for undo.
func WithHistoryLimit(n int) Option {
	return func(o *engineOptions) { o.historyLimit = n }
}

// NewEngine creates an engine holding an empty design for the default product type.
func NewEngine(opts ...Option) *Engine {
	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}
	empty := design.NewEmptyDesign(design.DefaultProductType)
	return &Engine{
		scene:       NewScene(nil, empty.CanvasSize),
		productType: empty.ProductType,
		history:     NewHistory(nil, o.historyLimit),
		focused:     true,
	}
}

// --- Lifecycle ---

// LoadDesign replaces the session with d. The restored elements become the
// sole history entry, so undo cannot go below them.
func (e *Engine) LoadDesign(d *design.SavedDesign) {
	e.ctl.reset()
	e.scene = NewScene(d.Elements, d.CanvasSize)
	e.productType = d.ProductType
	if e.productType == "" {
		e.productType = design.DefaultProductType
	}
	e.history.Reset(e.scene.Elements)
	e.selected = ""
	e.revision++
}

// LoadDocument loads a design from its JSON form.
func (e *Engine) LoadDocument(jsonData string) error {
	d, err := design.Decode([]byte(jsonData))
	if err != nil {
		return err
	}
	e.LoadDesign(d)
	return nil
}

// ResetCanvas starts a new empty design of the given size. This is the only
// way the canvas size changes during a session.
func (e *Engine) ResetCanvas(size design.CanvasSize, productType string) {
	if productType == "" {
		productType = e.productType
	}
	e.LoadDesign(&design.SavedDesign{CanvasSize: size, ProductType: productType})
}

// Snapshot returns the committed design, ready to be saved or exported.
func (e *Engine) Snapshot() *design.SavedDesign {
	return &design.SavedDesign{
		Elements:    e.history.Current(),
		CanvasSize:  e.scene.Size,
		Timestamp:   time.Now().UnixMilli(),
		ProductType: e.productType,
	}
}

// --- Scene operations ---

// AddElement appends el on top, selects it and records a snapshot. An element
// without an id gets one.
func (e *Engine) AddElement(el design.Element) (design.Element, error) {
	if el.ID == "" {
		el.ID = typeid.NewElementID()
	}
	if err := el.Validate(); err != nil {
		return design.Element{}, err
	}
	if err := e.scene.Add(el); err != nil {
		return design.Element{}, err
	}
	e.selected = el.ID
	e.commit()
	added, _ := e.scene.Get(el.ID)
	return added, nil
}

// UpdateElement merges patch into the element. Unknown ids are ignored
// without recording history, since stale callbacks may still reference
// deleted elements.
func (e *Engine) UpdateElement(id string, patch design.ElementPatch) bool {
	if patch.IsEmpty() || !e.scene.Update(id, patch) {
		return false
	}
	e.commit()
	return true
}

// DeleteElement removes the element and clears the selection if it pointed at it.
func (e *Engine) DeleteElement(id string) bool {
	if e.ctl.targetID == id {
		e.ctl.reset()
	}
	if !e.scene.Delete(id) {
		return false
	}
	if e.selected == id {
		e.selected = ""
	}
	e.commit()
	return true
}

// MoveLayer swaps the element with its z-order neighbor. No-op at the boundaries.
func (e *Engine) MoveLayer(id string, dir LayerDirection) bool {
	if !e.scene.MoveLayer(id, dir) {
		return false
	}
	e.commit()
	return true
}

// SetVisible shows or hides an element in render and export.
func (e *Engine) SetVisible(id string, visible bool) bool {
	el, ok := e.scene.Get(id)
	if !ok || el.Visible == visible {
		return false
	}
	return e.UpdateElement(id, design.ElementPatch{Visible: &visible})
}

// Rotate turns the element a quarter turn clockwise.
func (e *Engine) Rotate(id string) bool {
	return e.RotateBy(id, 90)
}

// RotateBy turns the element by an arbitrary delta in degrees.
func (e *Engine) RotateBy(id string, delta float64) bool {
	el, ok := e.scene.Get(id)
	if !ok {
		return false
	}
	r := design.NormalizeRotation(el.Rotation + delta)
	return e.UpdateElement(id, design.ElementPatch{Rotation: &r})
}

// --- Selection ---

// Select marks id as the selected element. Unknown ids clear the selection.
func (e *Engine) Select(id string) {
	if e.scene.IndexOf(id) < 0 {
		e.selected = ""
		return
	}
	e.selected = id
}

// ClearSelection deselects everything.
func (e *Engine) ClearSelection() {
	e.selected = ""
}

// Selected returns the selected element id, or empty string.
func (e *Engine) Selected() string {
	return e.selected
}

// --- History ---

// Undo restores the previous snapshot. An active gesture is abandoned first.
func (e *Engine) Undo() bool {
	e.cancelInteraction()
	elements, ok := e.history.Undo()
	if !ok {
		return false
	}
	e.restore(elements)
	return true
}

// Redo re-applies the next snapshot.
func (e *Engine) Redo() bool {
	e.cancelInteraction()
	elements, ok := e.history.Redo()
	if !ok {
		return false
	}
	e.restore(elements)
	return true
}

func (e *Engine) CanUndo() bool { return e.history.CanUndo() }
func (e *Engine) CanRedo() bool { return e.history.CanRedo() }

func (e *Engine) restore(elements []design.Element) {
	e.scene.Elements = elements
	if e.scene.IndexOf(e.selected) < 0 {
		e.selected = ""
	}
	e.revision++
}

func (e *Engine) commit() {
	e.history.Commit(e.scene.Elements)
	e.revision++
}

// --- Queries ---

// Elements returns a copy of the live elements in paint order.
func (e *Engine) Elements() []design.Element {
	return design.CloneElements(e.scene.Elements)
}

// Element returns a copy of one live element.
func (e *Engine) Element(id string) (design.Element, bool) {
	return e.scene.Get(id)
}

// CanvasSize returns the session's canvas dimensions.
func (e *Engine) CanvasSize() design.CanvasSize {
	return e.scene.Size
}

// ProductType returns the product the design is for.
func (e *Engine) ProductType() string {
	return e.productType
}

// Revision increases whenever the scene changes; callers use it to detect
// unsaved work.
func (e *Engine) Revision() int64 {
	return e.revision
}

// State summarizes the session for hosts.
type State struct {
	Elements    []design.Element  `json:"elements"`
	CanvasSize  design.CanvasSize `json:"canvasSize"`
	ProductType string            `json:"productType"`
	Selected    string            `json:"selected"`
	Interaction string            `json:"interaction"`
	CanUndo     bool              `json:"canUndo"`
	CanRedo     bool              `json:"canRedo"`
	Revision    int64             `json:"revision"`
}

// GetState returns the current session state.
func (e *Engine) GetState() State {
	return State{
		Elements:    e.Elements(),
		CanvasSize:  e.scene.Size,
		ProductType: e.productType,
		Selected:    e.selected,
		Interaction: e.ctl.state.String(),
		CanUndo:     e.history.CanUndo(),
		CanRedo:     e.history.CanRedo(),
		Revision:    e.revision,
	}
}

// GetStateJSON returns the session state as JSON.
func (e *Engine) GetStateJSON() string {
	data, _ := json.Marshal(e.GetState())
	return string(data)
}

// GetDocument returns the committed design as JSON.
func (e *Engine) GetDocument() string {
	data, err := design.Encode(e.Snapshot())
	if err != nil {
		return "{}"
	}
	return string(data)
}
