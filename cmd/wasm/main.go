//go:build js && wasm

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"syscall/js"
	"time"

	"github.com/allthatprinting/pinto/backend-go/internal/design"
	"github.com/allthatprinting/pinto/backend-go/internal/engine"
	"github.com/allthatprinting/pinto/backend-go/internal/export"
	"github.com/allthatprinting/pinto/backend-go/internal/store"
)

var (
	eng    *engine.Engine
	kv     store.KV
	loader *export.SourceLoader
)

func main() {
	eng = engine.NewEngine(engine.WithHistoryLimit(100))
	kv = newLocalStorage()
	loader = export.NewSourceLoader("")
	if origin := js.Global().Get("location").Get("origin"); origin.Type() == js.TypeString {
		loader.BaseURL = origin.String()
	}

	pinto := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	pinto.Set("loadDesign", js.FuncOf(loadDesign))
	pinto.Set("resetCanvas", js.FuncOf(resetCanvas))
	pinto.Set("addShape", js.FuncOf(addShape))
	pinto.Set("addText", js.FuncOf(addText))
	pinto.Set("addImage", js.FuncOf(addImage))
	pinto.Set("updateElement", js.FuncOf(updateElement))
	pinto.Set("deleteElement", js.FuncOf(deleteElement))
	pinto.Set("moveLayer", js.FuncOf(moveLayer))
	pinto.Set("setVisible", js.FuncOf(setVisible))
	pinto.Set("rotate", js.FuncOf(rotate))
	pinto.Set("select", js.FuncOf(selectElement))
	pinto.Set("clearSelection", js.FuncOf(clearSelection))
	pinto.Set("undo", js.FuncOf(undo))
	pinto.Set("redo", js.FuncOf(redo))

	// --- Input ---
	pinto.Set("pointerDown", js.FuncOf(pointerDown))
	pinto.Set("pointerMove", js.FuncOf(pointerMove))
	pinto.Set("pointerUp", js.FuncOf(pointerUp))
	pinto.Set("pointerLeave", js.FuncOf(pointerLeave))
	pinto.Set("touchStart", js.FuncOf(touchStart))
	pinto.Set("touchMove", js.FuncOf(touchMove))
	pinto.Set("touchEnd", js.FuncOf(touchEnd))
	pinto.Set("keyDown", js.FuncOf(keyDown))
	pinto.Set("setFocus", js.FuncOf(setFocus))

	// --- Queries (frontend ← engine) ---
	pinto.Set("render", js.FuncOf(render))
	pinto.Set("getState", js.FuncOf(getState))
	pinto.Set("getDocument", js.FuncOf(getDocument))
	pinto.Set("hitTest", js.FuncOf(hitTest))
	pinto.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	pinto.Set("isListening", js.FuncOf(isListening))

	// --- Persistence and export ---
	pinto.Set("save", js.FuncOf(save))
	pinto.Set("restore", js.FuncOf(restore))
	pinto.Set("exportDesign", js.FuncOf(exportDesign))

	js.Global().Set("pintoEngine", pinto)
	js.Global().Set("pintoWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func stringArg(args []js.Value, i int) string {
	if len(args) <= i || args[i].Type() != js.TypeString {
		return ""
	}
	return args[i].String()
}

func floatArg(args []js.Value, i int) float64 {
	if len(args) <= i || args[i].Type() != js.TypeNumber {
		return 0
	}
	return args[i].Float()
}

func pointArgs(args []js.Value) engine.Point {
	return engine.Point{X: floatArg(args, 0), Y: floatArg(args, 1)}
}

// touchPoints reads a JS array of {x, y} objects.
func touchPoints(args []js.Value) []engine.Point {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		return nil
	}
	arr := args[0]
	points := make([]engine.Point, arr.Length())
	for i := range points {
		t := arr.Index(i)
		points[i] = engine.Point{X: t.Get("x").Float(), Y: t.Get("y").Float()}
	}
	return points
}

// --- Command Handlers ---

func loadDesign(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail(errors.New("missing design JSON"))
	}
	if err := eng.LoadDocument(args[0].String()); err != nil {
		return fail(err)
	}
	return ok()
}

// resetCanvas(productType, presetName?, widthMM?, heightMM?) starts an empty
// design. A positive custom size wins over the preset name.
func resetCanvas(this js.Value, args []js.Value) interface{} {
	productType := stringArg(args, 0)
	if productType == "" {
		productType = eng.ProductType()
	}
	size := design.DefaultPreset(productType).CanvasSize()
	if wmm, hmm := floatArg(args, 2), floatArg(args, 3); wmm != 0 || hmm != 0 {
		if wmm <= 0 || hmm <= 0 || wmm > design.MaxCanvasMM || hmm > design.MaxCanvasMM {
			return fail(fmt.Errorf("invalid canvas size %vx%vmm", wmm, hmm))
		}
		size = design.CanvasSizeFromMM(wmm, hmm)
	} else if name := stringArg(args, 1); name != "" {
		for _, p := range design.Presets(productType) {
			if strings.EqualFold(p.Name, name) {
				size = p.CanvasSize()
			}
		}
	}
	eng.ResetCanvas(size, productType)
	return ok()
}

func added(el design.Element, err error) interface{} {
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "id": el.ID})
}

func addShape(this js.Value, args []js.Value) interface{} {
	kind := design.ShapeType(stringArg(args, 0))
	if kind == "" {
		kind = design.ShapeRectangle
	}
	return added(eng.AddElement(design.NewShapeElement(kind, eng.CanvasSize())))
}

func addText(this js.Value, args []js.Value) interface{} {
	return added(eng.AddElement(design.NewTextElement(stringArg(args, 0), eng.CanvasSize())))
}

// addImage(src, naturalWidth, naturalHeight)
func addImage(this js.Value, args []js.Value) interface{} {
	src := stringArg(args, 0)
	if src == "" {
		return fail(errors.New("missing image src"))
	}
	return added(eng.AddElement(design.NewImageElement(src, floatArg(args, 1), floatArg(args, 2), eng.CanvasSize())))
}

// updateElement(id, patchJSON)
func updateElement(this js.Value, args []js.Value) interface{} {
	var patch design.ElementPatch
	if err := json.Unmarshal([]byte(stringArg(args, 1)), &patch); err != nil {
		return fail(err)
	}
	return js.ValueOf(eng.UpdateElement(stringArg(args, 0), patch))
}

func deleteElement(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.DeleteElement(stringArg(args, 0)))
}

// moveLayer(id, "up" | "down")
func moveLayer(this js.Value, args []js.Value) interface{} {
	dir := engine.LayerDirection(stringArg(args, 1))
	if dir != engine.LayerUp && dir != engine.LayerDown {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.MoveLayer(stringArg(args, 0), dir))
}

func setVisible(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.SetVisible(stringArg(args, 0), args[1].Truthy()))
}

func rotate(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Rotate(stringArg(args, 0)))
}

func selectElement(this js.Value, args []js.Value) interface{} {
	eng.Select(stringArg(args, 0))
	return nil
}

func clearSelection(this js.Value, args []js.Value) interface{} {
	eng.ClearSelection()
	return nil
}

func undo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Redo())
}

// --- Input Handlers ---

// pointerDown(x, y) returns what was pressed: {kind, id, handle, control}.
func pointerDown(this js.Value, args []js.Value) interface{} {
	t := eng.PressAt(pointArgs(args))
	return js.ValueOf(map[string]interface{}{
		"kind":    t.Kind,
		"id":      t.ID,
		"handle":  string(t.Handle),
		"control": t.Control,
	})
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.PointerMove(pointArgs(args)))
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.PointerUp())
}

func pointerLeave(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.PointerLeave())
}

// touchStart(touches) acts like pointerDown for a single touch.
func touchStart(this js.Value, args []js.Value) interface{} {
	points := touchPoints(args)
	if len(points) != 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.PressAt(points[0]).Kind != "")
}

func touchMove(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.TouchMove(touchPoints(args)))
}

func touchEnd(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.TouchEnd())
}

// keyDown returns true when the host should call preventDefault.
func keyDown(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.KeyDown(stringArg(args, 0)))
}

func setFocus(this js.Value, args []js.Value) interface{} {
	eng.SetFocus(len(args) > 0 && args[0].Truthy())
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.RenderJSON())
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetStateJSON())
}

func getDocument(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetDocument())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	p := pointArgs(args)
	return js.ValueOf(eng.HitTest(p.X, p.Y))
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	r, ok := eng.SelectionBounds()
	if !ok {
		return js.Null()
	}
	return js.ValueOf(engine.RectToJSON(r))
}

func isListening(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Listening())
}

// --- Persistence ---

// save writes the committed design to localStorage.
func save(this js.Value, args []js.Value) interface{} {
	if err := store.SaveDesign(context.Background(), kv, design.StorageKey, eng.Snapshot()); err != nil {
		return fail(err)
	}
	return ok()
}

// restore(productType) loads the saved design, or an empty one for
// productType when nothing usable is stored.
func restore(this js.Value, args []js.Value) interface{} {
	d, err := store.LoadDesign(context.Background(), kv, design.StorageKey, stringArg(args, 0))
	if err != nil {
		return fail(err)
	}
	eng.LoadDesign(d)
	return ok()
}

// --- Export ---

// exportDesign(format, dpi, transparent) returns a Promise that resolves once
// the file download has been triggered. Rendering runs on its own goroutine
// because image fetches block on the JS event loop.
func exportDesign(this js.Value, args []js.Value) interface{} {
	format, err := export.ParseFormat(stringArg(args, 0))
	if err != nil {
		return rejected(err)
	}
	dpi := floatArg(args, 1)
	transparent := len(args) > 2 && args[2].Truthy()
	snapshot := eng.Snapshot()

	promise := js.Global().Get("Promise")
	var executor js.Func
	executor = js.FuncOf(func(this js.Value, pargs []js.Value) interface{} {
		resolve, reject := pargs[0], pargs[1]
		go func() {
			defer executor.Release()
			result, err := runExport(snapshot, format, dpi, transparent)
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(result)
		}()
		return nil
	})
	return promise.New(executor)
}

func rejected(err error) js.Value {
	return js.Global().Get("Promise").Call("reject", js.Global().Get("Error").New(err.Error()))
}

func runExport(d *design.SavedDesign, format export.Format, dpi float64, transparent bool) (js.Value, error) {
	res, err := export.Rasterize(context.Background(), d, export.Options{
		DPI:         dpi,
		Transparent: transparent,
		Loader:      loader,
	})
	if err != nil {
		return js.Undefined(), err
	}

	var buf bytes.Buffer
	if err := export.Encode(&buf, res, format); err != nil {
		return js.Undefined(), err
	}

	name := export.Filename(d.ProductType, time.Now(), format)
	download(buf.Bytes(), format.ContentType(), name)

	failed := make([]interface{}, len(res.Failed))
	for i, id := range res.Failed {
		failed[i] = id
	}
	return js.ValueOf(map[string]interface{}{
		"filename": name,
		"size":     buf.Len(),
		"failed":   failed,
	}), nil
}

// download hands data to the browser as a file via a temporary object URL.
func download(data []byte, contentType, name string) {
	arr := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(arr, data)

	blob := js.Global().Get("Blob").New(
		js.ValueOf([]interface{}{arr}),
		js.ValueOf(map[string]interface{}{"type": contentType}),
	)
	url := js.Global().Get("URL").Call("createObjectURL", blob)
	defer js.Global().Get("URL").Call("revokeObjectURL", url)

	doc := js.Global().Get("document")
	a := doc.Call("createElement", "a")
	a.Set("href", url)
	a.Set("download", name)
	doc.Get("body").Call("appendChild", a)
	a.Call("click")
	a.Call("remove")
}
