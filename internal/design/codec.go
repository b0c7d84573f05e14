package design

import (
	"encoding/json"
	"fmt"
	"time"
)

// StorageKey is the fixed key a design is persisted under.
const StorageKey = "pinto-design"

// NewEmptyDesign creates an empty design sized by the product type's default preset.
func NewEmptyDesign(productType string) *SavedDesign {
	if productType == "" {
		productType = DefaultProductType
	}
	return &SavedDesign{
		Elements:    []Element{},
		CanvasSize:  DefaultPreset(productType).CanvasSize(),
		Timestamp:   time.Now().UnixMilli(),
		ProductType: productType,
	}
}

// Encode serializes a design as a single JSON blob.
func Encode(d *SavedDesign) ([]byte, error) {
	if d.Elements == nil {
		d.Elements = []Element{}
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal design: %w", err)
	}
	return data, nil
}

// Decode parses a design blob and validates every element.
func Decode(data []byte) (*SavedDesign, error) {
	var d SavedDesign
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal design: %w", err)
	}
	if d.CanvasSize.Width <= 0 || d.CanvasSize.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", d.CanvasSize.Width, d.CanvasSize.Height)
	}
	seen := make(map[string]bool, len(d.Elements))
	for _, el := range d.Elements {
		if err := el.Validate(); err != nil {
			return nil, err
		}
		if seen[el.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidElement, el.ID)
		}
		seen[el.ID] = true
	}
	if d.Elements == nil {
		d.Elements = []Element{}
	}
	return &d, nil
}
