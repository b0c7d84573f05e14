package design

// ElementPatch is a partial update. Nil fields are left untouched.
type ElementPatch struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
	Visible  *bool    `json:"visible,omitempty"`

	Src *string `json:"src,omitempty"`

	Text       *string     `json:"text,omitempty"`
	FontSize   *float64    `json:"fontSize,omitempty"`
	FontFamily *string     `json:"fontFamily,omitempty"`
	FontWeight *FontWeight `json:"fontWeight,omitempty"`
	FontStyle  *FontStyle  `json:"fontStyle,omitempty"`
	TextAlign  *TextAlign  `json:"textAlign,omitempty"`
	Color      *string     `json:"color,omitempty"`

	ShapeType *ShapeType `json:"shapeType,omitempty"`
	Fill      *string    `json:"fill,omitempty"`
	Stroke    *string    `json:"stroke,omitempty"`
}

// Apply merges the present fields into el and returns the result.
func (p ElementPatch) Apply(el Element) Element {
	if p.X != nil {
		el.X = *p.X
	}
	if p.Y != nil {
		el.Y = *p.Y
	}
	if p.Width != nil {
		el.Width = *p.Width
	}
	if p.Height != nil {
		el.Height = *p.Height
	}
	if p.Rotation != nil {
		el.Rotation = NormalizeRotation(*p.Rotation)
	}
	if p.Visible != nil {
		el.Visible = *p.Visible
	}
	if p.Src != nil {
		el.Src = *p.Src
	}
	if p.Text != nil {
		el.Text = *p.Text
	}
	if p.FontSize != nil {
		el.FontSize = *p.FontSize
	}
	if p.FontFamily != nil {
		el.FontFamily = *p.FontFamily
	}
	if p.FontWeight != nil {
		el.FontWeight = *p.FontWeight
	}
	if p.FontStyle != nil {
		el.FontStyle = *p.FontStyle
	}
	if p.TextAlign != nil {
		el.TextAlign = *p.TextAlign
	}
	if p.Color != nil {
		el.Color = *p.Color
	}
	if p.ShapeType != nil {
		el.ShapeType = *p.ShapeType
	}
	if p.Fill != nil {
		el.Fill = *p.Fill
	}
	if p.Stroke != nil {
		el.Stroke = *p.Stroke
	}
	return el
}

// IsEmpty reports whether the patch changes nothing.
func (p ElementPatch) IsEmpty() bool {
	return p == ElementPatch{}
}

// Geometry builds a patch touching only position and size.
func Geometry(x, y, w, h float64) ElementPatch {
	return ElementPatch{X: &x, Y: &y, Width: &w, Height: &h}
}
