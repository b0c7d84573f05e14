package design

import (
	"math"

	"github.com/allthatprinting/pinto/backend-go/internal/typeid"
)

const (
	DefaultFontSize   = 24.0
	DefaultFontFamily = "sans-serif"
	DefaultTextColor  = "#000000"
	DefaultShapeFill  = "#3b82f6"
)

// FitImage computes a default placement size for an image of natural size
// natW×natH, preserving aspect ratio with both sides capped to 30% of the
// canvas. The result never drops below the minimum element size.
func FitImage(natW, natH float64, canvas CanvasSize) (float64, float64) {
	if natW <= 0 || natH <= 0 {
		side := math.Min(float64(canvas.Width), float64(canvas.Height)) * 3 / 10
		side = math.Max(side, MinElementSize)
		return side, side
	}
	maxW := float64(canvas.Width) * 3 / 10
	maxH := float64(canvas.Height) * 3 / 10
	scale := math.Min(1, math.Min(maxW/natW, maxH/natH))
	w, h := natW*scale, natH*scale
	return math.Max(w, MinElementSize), math.Max(h, MinElementSize)
}

func centered(w, h float64, canvas CanvasSize) (float64, float64) {
	x := math.Max(0, (float64(canvas.Width)-w)/2)
	y := math.Max(0, (float64(canvas.Height)-h)/2)
	return x, y
}

// NewImageElement places an image centered on the canvas.
func NewImageElement(src string, natW, natH float64, canvas CanvasSize) Element {
	w, h := FitImage(natW, natH, canvas)
	x, y := centered(w, h, canvas)
	return Element{
		ID:      typeid.NewElementID(),
		Type:    ElementTypeImage,
		X:       x,
		Y:       y,
		Width:   w,
		Height:  h,
		Visible: true,
		Src:     src,
	}
}

// NewShapeElement places a square shape of 20% of the smaller canvas side,
// centered on the canvas.
func NewShapeElement(kind ShapeType, canvas CanvasSize) Element {
	side := math.Max(math.Min(float64(canvas.Width), float64(canvas.Height))/5, MinElementSize)
	x, y := centered(side, side, canvas)
	return Element{
		ID:        typeid.NewElementID(),
		Type:      ElementTypeShape,
		X:         x,
		Y:         y,
		Width:     side,
		Height:    side,
		Visible:   true,
		ShapeType: kind,
		Fill:      DefaultShapeFill,
	}
}

// NewTextElement places a text box centered on the canvas.
func NewTextElement(text string, canvas CanvasSize) Element {
	w := math.Max(math.Min(float64(canvas.Width)*0.6, 300), MinElementSize)
	h := math.Max(DefaultFontSize*1.2*2, MinElementSize)
	x, y := centered(w, h, canvas)
	return Element{
		ID:         typeid.NewElementID(),
		Type:       ElementTypeText,
		X:          x,
		Y:          y,
		Width:      w,
		Height:     h,
		Visible:    true,
		Text:       text,
		FontSize:   DefaultFontSize,
		FontFamily: DefaultFontFamily,
		FontWeight: FontWeightNormal,
		FontStyle:  FontStyleNormal,
		TextAlign:  TextAlignCenter,
		Color:      DefaultTextColor,
	}
}
