package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/allthatprinting/pinto/backend-go/internal/design"
)

var canvas100 = design.CanvasSize{Width: 100, Height: 100, WidthMM: 10, HeightMM: 10}

func shape(id string, x, y, w, h float64, fill string) design.Element {
	return design.Element{
		ID: id, Type: design.ElementTypeShape, ShapeType: design.ShapeRectangle,
		X: x, Y: y, Width: w, Height: h, Visible: true, Fill: fill,
	}
}

func isRed(c color.RGBA) bool   { return c.R > 200 && c.G < 60 && c.B < 60 && c.A > 200 }
func isWhite(c color.RGBA) bool { return c.R > 245 && c.G > 245 && c.B > 245 }

type failingLoader struct{}

func (failingLoader) Load(context.Context, string) (image.Image, error) {
	return nil, errors.New("unreachable host")
}

func TestSurfaceSizeFollowsDPIScale(t *testing.T) {
	tests := []struct {
		dpi float64
	}{{96}, {150}, {300}, {600}}
	for _, tt := range tests {
		w, h := SurfaceSize(canvas100, tt.dpi)
		want := int(float64(canvas100.Width) * tt.dpi / 96)
		if w != want || h != want {
			t.Errorf("dpi %v: got %dx%d, want %dx%d", tt.dpi, w, h, want, want)
		}
	}
	if w, _ := SurfaceSize(canvas100, 96); w != 100 {
		t.Errorf("reference dpi should not scale, got %d", w)
	}
}

func TestWrapTextGreedy(t *testing.T) {
	const charWidth = 6.0
	measure := func(s string) float64 { return float64(len(s)) * charWidth }
	input := "Hello World this is a long line"

	lines := WrapText(input, 50, measure)
	want := []string{"Hello", "World", "this is", "a long", "line"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q, want %q", lines, want)
	}
	for _, line := range lines {
		if measure(line) > 50 && strings.Contains(line, " ") {
			t.Errorf("line %q exceeds width", line)
		}
	}
}

func TestWrapTextKeepsOverlongWord(t *testing.T) {
	measure := func(s string) float64 { return float64(len(s)) * 6 }
	lines := WrapText("a Supercalifragilistic b", 50, measure)
	want := []string{"a", "Supercalifragilistic", "b"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q, want %q", lines, want)
	}
}

func TestWrapTextSplitsOnlyOnSpaces(t *testing.T) {
	measure := func(s string) float64 { return float64(len(s)) * 6 }
	lines := WrapText("a\tb  c", 1000, measure)
	if len(lines) != 1 || lines[0] != "a\tb c" {
		t.Fatalf("got %q", lines)
	}
}

func TestWrapTextWithFont(t *testing.T) {
	el := design.Element{FontFamily: "sans-serif"}
	face, err := NewFonts().Face(el, 24)
	if err != nil {
		t.Fatalf("Face: %v", err)
	}
	input := "Hello World this is a long line"
	lines := WrapText(input, 50, face.Advance)
	if len(lines) < 2 {
		t.Fatalf("expected multiple lines, got %q", lines)
	}
	for _, line := range lines {
		if face.Advance(line) > 50 && strings.Contains(line, " ") {
			t.Errorf("line %q is %.1fpx wide", line, face.Advance(line))
		}
	}
	if strings.Join(lines, " ") != input {
		t.Errorf("words lost: %q", lines)
	}
}

func TestRasterizeShapes(t *testing.T) {
	d := &design.SavedDesign{
		CanvasSize: canvas100,
		Elements: []design.Element{
			shape("elem_a", 0, 0, 50, 50, "#ff0000"),
		},
	}
	res, err := Rasterize(context.Background(), d, Options{DPI: 96})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if b := res.Image.Bounds(); b.Dx() != 100 || b.Dy() != 100 {
		t.Fatalf("bounds %v", b)
	}
	if c := res.Image.RGBAAt(10, 10); !isRed(c) {
		t.Errorf("inside shape: %v", c)
	}
	if c := res.Image.RGBAAt(90, 90); !isWhite(c) {
		t.Errorf("background: %v", c)
	}
}

func TestRasterizeSkipsHiddenElements(t *testing.T) {
	hidden := shape("elem_h", 0, 0, 100, 100, "red")
	hidden.Visible = false
	d := &design.SavedDesign{CanvasSize: canvas100, Elements: []design.Element{hidden}}

	res, err := Rasterize(context.Background(), d, Options{DPI: 96})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if c := res.Image.RGBAAt(50, 50); !isWhite(c) {
		t.Errorf("hidden element painted: %v", c)
	}
}

func TestRasterizeTransparentBackground(t *testing.T) {
	d := &design.SavedDesign{CanvasSize: canvas100}
	res, err := Rasterize(context.Background(), d, Options{DPI: 96, Transparent: true})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if c := res.Image.RGBAAt(50, 50); c.A != 0 {
		t.Errorf("expected transparent pixel, got %v", c)
	}
}

func TestRasterizeRotatesAboutCenter(t *testing.T) {
	bar := shape("elem_bar", 10, 40, 80, 20, "#ff0000")
	bar.Rotation = 90
	d := &design.SavedDesign{CanvasSize: canvas100, Elements: []design.Element{bar}}

	res, err := Rasterize(context.Background(), d, Options{DPI: 96})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if c := res.Image.RGBAAt(50, 15); !isRed(c) {
		t.Errorf("rotated bar missing above center: %v", c)
	}
	if c := res.Image.RGBAAt(15, 50); !isWhite(c) {
		t.Errorf("unrotated footprint still painted: %v", c)
	}
}

func TestRasterizeZOrder(t *testing.T) {
	top := shape("elem_top", 0, 0, 100, 100, "#ff0000")
	top.ZIndex = 1
	bottom := shape("elem_bottom", 0, 0, 100, 100, "#0000ff")
	bottom.ZIndex = 0
	d := &design.SavedDesign{CanvasSize: canvas100, Elements: []design.Element{top, bottom}}

	res, err := Rasterize(context.Background(), d, Options{DPI: 96})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if c := res.Image.RGBAAt(50, 50); !isRed(c) {
		t.Errorf("higher zIndex should paint last: %v", c)
	}
}

func TestRasterizeReportsFailedImages(t *testing.T) {
	img := design.Element{
		ID: "elem_img", Type: design.ElementTypeImage, Src: "https://example.invalid/a.png",
		X: 0, Y: 0, Width: 50, Height: 50, Visible: true,
	}
	d := &design.SavedDesign{
		CanvasSize: canvas100,
		Elements:   []design.Element{img, shape("elem_s", 50, 50, 50, 50, "red")},
	}
	res, err := Rasterize(context.Background(), d, Options{DPI: 96, Loader: failingLoader{}})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if len(res.Failed) != 1 || res.Failed[0] != "elem_img" {
		t.Fatalf("failed = %v", res.Failed)
	}
	if c := res.Image.RGBAAt(75, 75); !isRed(c) {
		t.Errorf("remaining elements not painted: %v", c)
	}
}

func TestRasterizeDataURIImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+3] = 255, 255
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	d := &design.SavedDesign{
		CanvasSize: canvas100,
		Elements: []design.Element{{
			ID: "elem_img", Type: design.ElementTypeImage, Src: uri,
			X: 20, Y: 20, Width: 40, Height: 40, Visible: true,
		}},
	}
	res, err := Rasterize(context.Background(), d, Options{DPI: 96, Loader: NewSourceLoader("")})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if len(res.Failed) != 0 {
		t.Fatalf("unexpected failures: %v", res.Failed)
	}
	if c := res.Image.RGBAAt(40, 40); !isRed(c) {
		t.Errorf("image not drawn: %v", c)
	}
	if c := res.Image.RGBAAt(80, 80); !isWhite(c) {
		t.Errorf("image drawn outside its box: %v", c)
	}
}

func TestSourceLoaderFetchesRelativeFromBaseURL(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assets/asset_x.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	l := NewSourceLoader("")
	l.BaseURL = srv.URL + "/"
	img, err := l.Load(context.Background(), "/assets/asset_x.png")
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("decoded %v", b)
	}
	if _, err := l.Load(context.Background(), "/assets/missing.png"); err == nil {
		t.Fatal("missing asset loaded")
	}
	if _, err := NewSourceLoader("").Load(context.Background(), "/assets/asset_x.png"); !errors.Is(err, ErrUnsupportedSource) {
		t.Fatalf("no base url: %v", err)
	}
}

func TestRasterizeText(t *testing.T) {
	d := &design.SavedDesign{
		CanvasSize: canvas100,
		Elements: []design.Element{{
			ID: "elem_txt", Type: design.ElementTypeText, Text: "Hi",
			X: 0, Y: 0, Width: 100, Height: 40, Visible: true,
			FontSize: 32, FontWeight: design.FontWeightBold, Color: "black",
		}},
	}
	res, err := Rasterize(context.Background(), d, Options{DPI: 96})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	dark := 0
	for y := 0; y < 40; y++ {
		for x := 0; x < 100; x++ {
			if res.Image.RGBAAt(x, y).R < 128 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Fatal("no text pixels painted")
	}
}

func TestRasterizeWrappedTextOverflowsBox(t *testing.T) {
	el := design.NewTextElement("Hello World this is a long line", design.CanvasSize{Width: 100, Height: 300})
	el.ID = "elem_wrap"
	el.X, el.Y, el.Width = 0, 0, 50
	d := &design.SavedDesign{
		CanvasSize: design.CanvasSize{Width: 100, Height: 300},
		Elements:   []design.Element{el},
	}

	res, err := Rasterize(context.Background(), d, Options{DPI: 96})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	boxBottom := int(math.Ceil(el.Height))
	inside, below := 0, 0
	for y := 0; y < 300; y++ {
		for x := 0; x < 100; x++ {
			if res.Image.RGBAAt(x, y).R >= 128 {
				continue
			}
			if y < boxBottom {
				inside++
			} else {
				below++
			}
		}
	}
	if inside == 0 || below == 0 {
		t.Fatalf("box height %v: %d dark pixels inside, %d below", el.Height, inside, below)
	}
}

func TestRasterizeRejectsOversizedSurface(t *testing.T) {
	d := &design.SavedDesign{CanvasSize: design.CanvasSize{Width: 100000, Height: 100000}}
	if _, err := Rasterize(context.Background(), d, Options{DPI: 300}); !errors.Is(err, ErrSurfaceTooLarge) {
		t.Fatalf("got %v, want ErrSurfaceTooLarge", err)
	}
	if err := CheckSurface(design.CanvasSizeFromMM(210, 297), DefaultDPI); err != nil {
		t.Fatalf("A4 at default dpi: %v", err)
	}
}

func TestRasterizeEmptyCanvas(t *testing.T) {
	_, err := Rasterize(context.Background(), &design.SavedDesign{}, Options{})
	if !errors.Is(err, ErrEmptyCanvas) {
		t.Fatalf("got %v, want ErrEmptyCanvas", err)
	}
}

func TestEncodeFormats(t *testing.T) {
	res, err := Rasterize(context.Background(), &design.SavedDesign{CanvasSize: canvas100}, Options{DPI: 96})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	tests := []struct {
		format Format
		magic  string
	}{
		{FormatPNG, "\x89PNG"},
		{FormatPDF, "%PDF-"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := Encode(&buf, res, tt.format); err != nil {
			t.Fatalf("Encode %s: %v", tt.format, err)
		}
		if !bytes.HasPrefix(buf.Bytes(), []byte(tt.magic)) {
			t.Errorf("%s output starts with %q", tt.format, buf.Bytes()[:8])
		}
	}
	if err := Encode(&bytes.Buffer{}, res, "tiff"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("unknown format: %v", err)
	}
}

func TestFilename(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	if got := Filename("sticker", ts, FormatPDF); got != "sticker-design-1700000000123.pdf" {
		t.Errorf("got %q", got)
	}
	if got := Filename("", ts, FormatPNG); got != "default-design-1700000000123.png" {
		t.Errorf("got %q", got)
	}
	if got := Filename("a/b", ts, FormatPNG); got != "a-b-design-1700000000123.png" {
		t.Errorf("got %q", got)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{in: "red", want: color.RGBA{255, 0, 0, 255}},
		{in: "#f00", want: color.RGBA{255, 0, 0, 255}},
		{in: "#00FF00", want: color.RGBA{0, 255, 0, 255}},
		{in: "#zzz", wantErr: true},
		{in: "", wantErr: true},
		{in: "#12345", wantErr: true},
	}
	for _, tt := range tests {
		c, err := parseColor(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tt.in, err)
			continue
		}
		if got := color.RGBAModel.Convert(c).(color.RGBA); got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func exportBody(t *testing.T, d *design.SavedDesign, format string) *bytes.Reader {
	t.Helper()
	raw, err := design.Encode(d)
	if err != nil {
		t.Fatal(err)
	}
	body, err := json.Marshal(map[string]any{
		"design": json.RawMessage(raw),
		"format": format,
		"dpi":    96,
	})
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(body)
}

func TestHandlerExportDesign(t *testing.T) {
	d := &design.SavedDesign{
		CanvasSize:  canvas100,
		ProductType: "sticker",
		Elements: []design.Element{
			shape("elem_s", 0, 0, 50, 50, "red"),
			{ID: "elem_img", Type: design.ElementTypeImage, Src: "https://example.invalid/x.png", Width: 20, Height: 20, Visible: true},
		},
	}
	h := NewHandler(failingLoader{}, 0)

	rec := httptest.NewRecorder()
	h.ExportDesign(rec, httptest.NewRequest(http.MethodPost, "/export/design", exportBody(t, d, "pdf")))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="sticker-design-`) || !strings.HasSuffix(cd, `.pdf"`) {
		t.Errorf("content disposition %q", cd)
	}
	if failed := rec.Header().Get(FailedElementsHeader); failed != "elem_img" {
		t.Errorf("failed header %q", failed)
	}
	if id := rec.Header().Get(ExportIDHeader); !strings.HasPrefix(id, "exp_") {
		t.Errorf("export id %q", id)
	}
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	h := NewHandler(failingLoader{}, 96)
	d := &design.SavedDesign{CanvasSize: canvas100}

	tests := []struct {
		name string
		body *bytes.Reader
	}{
		{"unknown format", exportBody(t, d, "tiff")},
		{"malformed json", bytes.NewReader([]byte("{"))},
		{"missing canvas", exportBody(t, &design.SavedDesign{}, "png")},
		{"oversized canvas", exportBody(t, &design.SavedDesign{CanvasSize: design.CanvasSize{Width: 100000, Height: 100000}}, "png")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ExportDesign(rec, httptest.NewRequest(http.MethodPost, "/export/design", tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status %d", rec.Code)
			}
		})
	}
}
