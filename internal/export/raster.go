package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/allthatprinting/pinto/backend-go/internal/design"
	"github.com/allthatprinting/pinto/backend-go/internal/engine"
)

const (
	// DefaultDPI is the print resolution used when none is requested.
	DefaultDPI = 300.0
	// ReferenceDPI is the screen resolution canvas pixels are defined at.
	ReferenceDPI = 96.0
	MaxDPI       = 1200.0

	// MaxSurfacePixels bounds the output raster; A4 at 300 DPI needs about 61M.
	MaxSurfacePixels = 1 << 27

	strokeWidth = 2.0
)

var (
	ErrEmptyCanvas     = errors.New("canvas has no area")
	ErrSurfaceTooLarge = errors.New("export surface too large")
)

// Options controls a rasterization.
type Options struct {
	DPI         float64
	Transparent bool
	Loader      ImageLoader
	Fonts       *Fonts
}

// Result is a rasterized design.
type Result struct {
	Image       *image.RGBA
	Canvas      design.CanvasSize
	ProductType string
	// Failed lists image elements whose source could not be loaded, in paint order.
	Failed []string
}

// ScaleFactor converts canvas pixels to output pixels at dpi.
func ScaleFactor(dpi float64) float64 {
	return dpi / ReferenceDPI
}

// SurfaceSize returns the output raster dimensions for canvas at dpi.
func SurfaceSize(canvas design.CanvasSize, dpi float64) (int, int) {
	s := ScaleFactor(dpi)
	return int(float64(canvas.Width) * s), int(float64(canvas.Height) * s)
}

// CheckSurface reports whether canvas can be rasterized at dpi.
func CheckSurface(canvas design.CanvasSize, dpi float64) error {
	w, h := SurfaceSize(canvas, dpi)
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyCanvas, w, h)
	}
	if float64(w)*float64(h) > MaxSurfacePixels {
		return fmt.Errorf("%w: %dx%d", ErrSurfaceTooLarge, w, h)
	}
	return nil
}

var defaultFonts = NewFonts()

// Rasterize paints the visible elements of d, back to front, onto a bitmap
// at the requested DPI. Image sources are loaded up front; elements that fail
// to load are skipped and reported in Result.Failed.
func Rasterize(ctx context.Context, d *design.SavedDesign, opts Options) (*Result, error) {
	if opts.DPI <= 0 {
		opts.DPI = DefaultDPI
	}
	if opts.Loader == nil {
		opts.Loader = NewSourceLoader("")
	}
	if opts.Fonts == nil {
		opts.Fonts = defaultFonts
	}

	if err := CheckSurface(d.CanvasSize, opts.DPI); err != nil {
		return nil, err
	}
	w, h := SurfaceSize(d.CanvasSize, opts.DPI)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if !opts.Transparent {
		xdraw.Draw(dst, dst.Bounds(), image.White, image.Point{}, xdraw.Src)
	}

	visible := engine.VisibleInPaintOrder(d.Elements)
	images, failed := loadImages(ctx, visible, opts.Loader)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := painter{dst: dst, scale: ScaleFactor(opts.DPI), fonts: opts.Fonts}
	for _, el := range visible {
		var err error
		switch el.Type {
		case design.ElementTypeImage:
			if img, ok := images[el.ID]; ok {
				p.drawImage(el, img)
			}
		case design.ElementTypeText:
			err = p.drawText(el)
		case design.ElementTypeShape:
			err = p.drawShape(el)
		}
		if err != nil {
			slog.Warn("paint export element", "element", el.ID, "type", el.Type, "error", err)
			failed = append(failed, el.ID)
		}
	}

	return &Result{
		Image:       dst,
		Canvas:      d.CanvasSize,
		ProductType: d.ProductType,
		Failed:      failed,
	}, nil
}

type painter struct {
	dst   *image.RGBA
	scale float64
	fonts *Fonts
}

// composite draws src onto the output, mapping src pixel space into element
// local space with local, then through the element's rotation and the DPI scale.
func (p *painter) composite(el design.Element, src image.Image, local engine.Matrix2D) {
	m := engine.Scale(p.scale, p.scale).
		Multiply(engine.ElementMatrix(el)).
		Multiply(local)
	s2d := f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}
	xdraw.BiLinear.Transform(p.dst, s2d, src, src.Bounds(), xdraw.Over, nil)
}

func (p *painter) drawImage(el design.Element, img image.Image) {
	b := img.Bounds()
	if b.Empty() {
		return
	}
	local := engine.Scale(el.Width/float64(b.Dx()), el.Height/float64(b.Dy())).
		Multiply(engine.Translate(-float64(b.Min.X), -float64(b.Min.Y)))
	p.composite(el, img, local)
}

// boxPixels returns the element box size at output resolution.
func (p *painter) boxPixels(el design.Element) (int, int) {
	return max(1, int(math.Ceil(el.Width*p.scale))), max(1, int(math.Ceil(el.Height*p.scale)))
}

// layer creates an offscreen surface covering the element box at output resolution.
func (p *painter) layer(el design.Element) (*gg.Context, float64, float64) {
	lw, lh := p.boxPixels(el)
	return gg.NewContext(lw, lh), float64(lw), float64(lh)
}

// flush composites a layer whose top-left lw x lh pixels map onto the element
// box. Layer pixels past the box keep the same scale.
func (p *painter) flush(el design.Element, dc *gg.Context, lw, lh float64) {
	local := engine.Scale(el.Width/lw, el.Height/lh)
	p.composite(el, dc.Image(), local)
}

func (p *painter) drawShape(el design.Element) error {
	dc, lw, lh := p.layer(el)
	defer dc.Close()

	path := func() {
		if el.ShapeType == design.ShapeCircle {
			dc.DrawCircle(lw/2, lh/2, math.Min(lw, lh)/2)
			return
		}
		dc.DrawRectangle(0, 0, lw, lh)
	}

	dc.SetColor(colorOr(el.Fill, color.Black))
	path()
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("fill shape: %w", err)
	}
	if el.Stroke != "" {
		c, err := parseColor(el.Stroke)
		if err != nil {
			return err
		}
		dc.SetColor(c)
		dc.SetLineWidth(strokeWidth * p.scale)
		path()
		if err := dc.Stroke(); err != nil {
			return fmt.Errorf("stroke shape: %w", err)
		}
	}
	p.flush(el, dc, lw, lh)
	return nil
}

func (p *painter) drawText(el design.Element) error {
	if el.Text == "" {
		return nil
	}
	size := el.FontSize
	if size <= 0 {
		size = design.DefaultFontSize
	}
	size *= p.scale

	face, err := p.fonts.Face(el, size)
	if err != nil {
		return err
	}

	lw, lh := p.boxPixels(el)
	lineHeight := size * LineHeightFactor

	// Wrapped lines are not clipped to the box, so measure first and grow the
	// layer downward to fit them.
	ruler := gg.NewContext(1, 1)
	defer ruler.Close()
	ruler.SetFont(face)
	measure := func(s string) float64 {
		w, _ := ruler.MeasureString(s)
		return w
	}
	lines := WrapText(el.Text, float64(lw), measure)

	dc := gg.NewContext(lw, max(lh, int(math.Ceil(float64(len(lines))*lineHeight))))
	defer dc.Close()
	dc.SetFont(face)
	dc.SetColor(colorOr(el.Color, color.Black))

	m := face.Metrics()
	// Center the glyph box within each line.
	baseline := (lineHeight-(m.Ascent+m.Descent))/2 + m.Ascent

	for i, line := range lines {
		x := alignOffset(el.TextAlign, float64(lw), measure(line))
		dc.DrawString(line, x, float64(i)*lineHeight+baseline)
	}
	p.flush(el, dc, float64(lw), float64(lh))
	return nil
}
