package collab

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/allthatprinting/pinto/backend-go/internal/design"
	"github.com/allthatprinting/pinto/backend-go/internal/engine"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadPayload     = errors.New("invalid payload")
)

func decodePayload(msg *Message, v any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%w: %s: empty", ErrBadPayload, msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadPayload, msg.Type, err)
	}
	return nil
}

// applyCommand runs one client command against the session engine and reports
// whether anything visible changed. Commands naming unknown elements are
// no-ops, not errors.
func applyCommand(eng *engine.Engine, msg *Message) (bool, error) {
	switch msg.Type {
	case TypeElementAdd:
		var p ElementAddPayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		if _, err := eng.AddElement(p.Element); err != nil {
			return false, err
		}
		return true, nil

	case TypeElementUpdate:
		var p ElementUpdatePayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		return eng.UpdateElement(p.ID, p.Patch), nil

	case TypeElementDelete:
		var p ElementRefPayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		return eng.DeleteElement(p.ID), nil

	case TypeElementLayer:
		var p ElementLayerPayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		if p.Direction != engine.LayerUp && p.Direction != engine.LayerDown {
			return false, fmt.Errorf("%w: layer direction %q", ErrBadPayload, p.Direction)
		}
		return eng.MoveLayer(p.ID, p.Direction), nil

	case TypeElementVisible:
		var p ElementVisiblePayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		return eng.SetVisible(p.ID, p.Visible), nil

	case TypeElementRotate:
		var p ElementRotatePayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		if p.Delta == 0 {
			return eng.Rotate(p.ID), nil
		}
		return eng.RotateBy(p.ID, p.Delta), nil

	case TypeSelect:
		var p ElementRefPayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		before := eng.Selected()
		eng.Select(p.ID)
		return eng.Selected() != before, nil

	case TypeUndo:
		return eng.Undo(), nil

	case TypeRedo:
		return eng.Redo(), nil

	case TypeCanvasReset:
		var p CanvasResetPayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		productType := p.ProductType
		if productType == "" {
			productType = eng.ProductType()
		}
		size := presetSize(productType, p.Preset)
		if p.WidthMM != 0 || p.HeightMM != 0 {
			if p.WidthMM <= 0 || p.HeightMM <= 0 || p.WidthMM > design.MaxCanvasMM || p.HeightMM > design.MaxCanvasMM {
				return false, fmt.Errorf("%w: canvas size %vx%vmm", ErrBadPayload, p.WidthMM, p.HeightMM)
			}
			size = design.CanvasSizeFromMM(p.WidthMM, p.HeightMM)
		}
		eng.ResetCanvas(size, productType)
		return true, nil

	case TypePointerPress:
		var p PointerPayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		return eng.PressAt(engine.Point{X: p.X, Y: p.Y}) != (engine.Target{}), nil

	case TypePointerDown:
		var p PointerPayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		return eng.PointerDown(p.ID, engine.ParseHandle(p.Handle), engine.Point{X: p.X, Y: p.Y}), nil

	case TypePointerMove:
		var p PointerPayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		return eng.PointerMove(engine.Point{X: p.X, Y: p.Y}), nil

	case TypePointerUp:
		eng.PointerUp()
		return true, nil

	case TypePointerLeave:
		eng.PointerLeave()
		return true, nil

	case TypeCanvasDown:
		before := eng.Selected()
		eng.CanvasDown()
		return eng.Selected() != before, nil

	case TypeKeyDown:
		var p KeyPayload
		if err := decodePayload(msg, &p); err != nil {
			return false, err
		}
		return eng.KeyDown(p.Key), nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownCommand, msg.Type)
}

// presetSize looks up a named preset for productType, falling back to its default.
func presetSize(productType, name string) design.CanvasSize {
	for _, p := range design.Presets(productType) {
		if strings.EqualFold(p.Name, name) {
			return p.CanvasSize()
		}
	}
	return design.DefaultPreset(productType).CanvasSize()
}
