package design

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// PxPerMM is the fixed scale between canvas pixels and physical millimetres.
const PxPerMM = 10

// MaxCanvasMM is the largest side accepted for a custom canvas size.
const MaxCanvasMM = 1000.0

// MinElementSize is the smallest width or height an element may be resized to.
const MinElementSize = 20.0

type ElementType string

const (
	ElementTypeImage ElementType = "image"
	ElementTypeText  ElementType = "text"
	ElementTypeShape ElementType = "shape"
)

type ShapeType string

const (
	ShapeRectangle ShapeType = "rectangle"
	ShapeCircle    ShapeType = "circle"
)

type FontWeight string

const (
	FontWeightNormal FontWeight = "normal"
	FontWeightBold   FontWeight = "bold"
)

type FontStyle string

const (
	FontStyleNormal FontStyle = "normal"
	FontStyleItalic FontStyle = "italic"
)

type TextAlign string

const (
	TextAlignLeft   TextAlign = "left"
	TextAlignCenter TextAlign = "center"
	TextAlignRight  TextAlign = "right"
)

var ErrInvalidElement = errors.New("invalid element")

// Element is a single object placed on the canvas. Only the attribute group
// matching Type is meaningful; the others are left at their zero values.
type Element struct {
	ID       string      `json:"id"`
	Type     ElementType `json:"type"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Rotation float64     `json:"rotation"`
	ZIndex   int         `json:"zIndex"`
	Visible  bool        `json:"visible"`

	// image
	Src string `json:"src,omitempty"`

	// text
	Text       string     `json:"text,omitempty"`
	FontSize   float64    `json:"fontSize,omitempty"`
	FontFamily string     `json:"fontFamily,omitempty"`
	FontWeight FontWeight `json:"fontWeight,omitempty"`
	FontStyle  FontStyle  `json:"fontStyle,omitempty"`
	TextAlign  TextAlign  `json:"textAlign,omitempty"`
	Color      string     `json:"color,omitempty"`

	// shape
	ShapeType ShapeType `json:"shapeType,omitempty"`
	Fill      string    `json:"fill,omitempty"`
	Stroke    string    `json:"stroke,omitempty"`
}

// UnmarshalJSON decodes an element, treating a missing "visible" as true.
func (e *Element) UnmarshalJSON(data []byte) error {
	type plain Element
	p := plain{Visible: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Element(p)
	return nil
}

// Validate checks that the element's type and enum attributes are known.
func (e Element) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidElement)
	}
	switch e.Type {
	case ElementTypeImage:
	case ElementTypeText:
		switch e.FontWeight {
		case "", FontWeightNormal, FontWeightBold:
		default:
			return fmt.Errorf("%w: font weight %q", ErrInvalidElement, e.FontWeight)
		}
		switch e.FontStyle {
		case "", FontStyleNormal, FontStyleItalic:
		default:
			return fmt.Errorf("%w: font style %q", ErrInvalidElement, e.FontStyle)
		}
		switch e.TextAlign {
		case "", TextAlignLeft, TextAlignCenter, TextAlignRight:
		default:
			return fmt.Errorf("%w: text align %q", ErrInvalidElement, e.TextAlign)
		}
	case ElementTypeShape:
		switch e.ShapeType {
		case ShapeRectangle, ShapeCircle:
		default:
			return fmt.Errorf("%w: shape type %q", ErrInvalidElement, e.ShapeType)
		}
	default:
		return fmt.Errorf("%w: type %q", ErrInvalidElement, e.Type)
	}
	return nil
}

// Bounds returns the element's unrotated box.
func (e Element) Bounds() (x, y, w, h float64) {
	return e.X, e.Y, e.Width, e.Height
}

// Center returns the rotation origin of the element.
func (e Element) Center() (float64, float64) {
	return e.X + e.Width/2, e.Y + e.Height/2
}

// NormalizeRotation maps any angle in degrees into [0, 360).
func NormalizeRotation(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	if r == 360 {
		r = 0
	}
	return r
}

// CloneElements returns a copy of the slice. Element holds only value fields,
// so a shallow copy of each entry is a deep copy.
func CloneElements(elements []Element) []Element {
	out := make([]Element, len(elements))
	copy(out, elements)
	return out
}

// CanvasSize holds canvas dimensions in pixel and physical space.
type CanvasSize struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	WidthMM  float64 `json:"widthMM"`
	HeightMM float64 `json:"heightMM"`
}

// CanvasSizeFromMM builds a canvas size from physical dimensions.
func CanvasSizeFromMM(widthMM, heightMM float64) CanvasSize {
	return CanvasSize{
		Width:    int(math.Round(widthMM * PxPerMM)),
		Height:   int(math.Round(heightMM * PxPerMM)),
		WidthMM:  widthMM,
		HeightMM: heightMM,
	}
}

// PhysicalSize returns the size in millimetres, deriving it from pixels when
// the physical fields were never set.
func (c CanvasSize) PhysicalSize() (float64, float64) {
	w, h := c.WidthMM, c.HeightMM
	if w <= 0 {
		w = float64(c.Width) / PxPerMM
	}
	if h <= 0 {
		h = float64(c.Height) / PxPerMM
	}
	return w, h
}

// SavedDesign is the persisted form of one design.
type SavedDesign struct {
	Elements    []Element  `json:"elements"`
	CanvasSize  CanvasSize `json:"canvasSize"`
	Timestamp   int64      `json:"timestamp"`
	ProductType string     `json:"productType"`
}
