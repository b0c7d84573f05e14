package design

import (
	"slices"
	"strings"
)

// Preset is a named canvas size for a product type.
type Preset struct {
	Name     string  `json:"name"`
	WidthMM  float64 `json:"widthMM"`
	HeightMM float64 `json:"heightMM"`
}

// CanvasSize converts the preset to pixel space.
func (p Preset) CanvasSize() CanvasSize {
	return CanvasSizeFromMM(p.WidthMM, p.HeightMM)
}

const DefaultProductType = "default"

var presets = map[string][]Preset{
	"sticker": {
		{Name: "원형 스티커 50mm", WidthMM: 50, HeightMM: 50},
		{Name: "사각 스티커 60x40mm", WidthMM: 60, HeightMM: 40},
		{Name: "A6 스티커 시트", WidthMM: 105, HeightMM: 148},
	},
	"keyring": {
		{Name: "아크릴 키링 40mm", WidthMM: 40, HeightMM: 40},
		{Name: "아크릴 키링 50x70mm", WidthMM: 50, HeightMM: 70},
	},
	"badge": {
		{Name: "핀버튼 44mm", WidthMM: 44, HeightMM: 44},
		{Name: "핀버튼 58mm", WidthMM: 58, HeightMM: 58},
	},
	"tshirt": {
		{Name: "가슴 로고", WidthMM: 100, HeightMM: 100},
		{Name: "전면 A4", WidthMM: 210, HeightMM: 297},
	},
	"mug": {
		{Name: "머그 전사 200x90mm", WidthMM: 200, HeightMM: 90},
	},
	"phonecase": {
		{Name: "스마트폰 케이스", WidthMM: 75, HeightMM: 155},
	},
	"postcard": {
		{Name: "엽서 100x148mm", WidthMM: 100, HeightMM: 148},
	},
	DefaultProductType: {
		{Name: "정사각 100mm", WidthMM: 100, HeightMM: 100},
		{Name: "A5", WidthMM: 148, HeightMM: 210},
		{Name: "A4", WidthMM: 210, HeightMM: 297},
	},
}

// Presets returns the size presets for a product type. Unknown product types
// fall back to the default family.
func Presets(productType string) []Preset {
	key := strings.ToLower(strings.TrimSpace(productType))
	list, ok := presets[key]
	if !ok {
		list = presets[DefaultProductType]
	}
	out := make([]Preset, len(list))
	copy(out, list)
	return out
}

// DefaultPreset returns the first preset for a product type.
func DefaultPreset(productType string) Preset {
	return Presets(productType)[0]
}

// ProductTypes lists the product types that have their own preset family, sorted.
func ProductTypes() []string {
	types := make([]string, 0, len(presets))
	for k := range presets {
		if k != DefaultProductType {
			types = append(types, k)
		}
	}
	slices.Sort(types)
	return types
}
