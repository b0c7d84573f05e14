package export

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Format is an export container.
type Format string

const (
	FormatPNG Format = "png"
	FormatPDF Format = "pdf"
)

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts "png" or "pdf" in any case. Empty means PNG.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "image/png"
}

// Encode writes the rasterized design in the given format.
func Encode(w io.Writer, res *Result, f Format) error {
	switch f {
	case FormatPNG:
		if err := png.Encode(w, res.Image); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
		return nil
	case FormatPDF:
		return encodePDF(w, res)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// encodePDF wraps the bitmap in a single page sized to the physical canvas.
func encodePDF(w io.Writer, res *Result) error {
	var img bytes.Buffer
	if err := png.Encode(&img, res.Image); err != nil {
		return fmt.Errorf("encode pdf image: %w", err)
	}

	wmm, hmm := res.Canvas.PhysicalSize()
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "mm",
		Size:    fpdf.SizeType{Wd: wmm, Ht: hmm},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("pinto", true)
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("design", opts, &img)
	pdf.ImageOptions("design", 0, 0, wmm, hmm, false, opts, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("encode pdf: %w", err)
	}
	return nil
}

// Filename builds the download name <product>-design-<unix-ms>.<ext>.
func Filename(productType string, t time.Time, f Format) string {
	if productType == "" {
		productType = "default"
	}
	productType = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, productType)
	return fmt.Sprintf("%s-design-%d.%s", productType, t.UnixMilli(), f)
}
