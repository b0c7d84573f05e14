// Package placeholder serves neutral stand-in images of a requested size.
package placeholder

import (
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gogpu/gg"
	"github.com/gorilla/mux"
)

const (
	MaxSide    = 4096
	background = "#e5e7eb"
	foreground = "#9ca3af"
)

// ParseSize parses "WxH" with both sides in 1..MaxSide.
func ParseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q: want WIDTHxHEIGHT", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w < 1 || w > MaxSide {
		return 0, 0, fmt.Errorf("width %q out of range", ws)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 1 || h > MaxSide {
		return 0, 0, fmt.Errorf("height %q out of range", hs)
	}
	return w, h, nil
}

// SVG returns a flat grey box labelled with its dimensions.
func SVG(w, h int) string {
	fontSize := max(10, min(w, h)/8)
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%[1]d" height="%[2]d" viewBox="0 0 %[1]d %[2]d">`+
		`<rect width="100%%" height="100%%" fill="%[3]s"/>`+
		`<text x="50%%" y="50%%" fill="%[4]s" font-family="sans-serif" font-size="%[5]d" text-anchor="middle" dominant-baseline="middle">%[1]d×%[2]d</text>`+
		`</svg>`, w, h, background, foreground, fontSize)
}

// Serve handles GET /placeholder/{size}. ?format=png returns a raster version
// without the label.
func Serve(w http.ResponseWriter, r *http.Request) {
	width, height, err := ParseSize(mux.Vars(r)["size"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	if r.URL.Query().Get("format") != "png" {
		w.Header().Set("Content-Type", "image/svg+xml")
		fmt.Fprint(w, SVG(width, height))
		return
	}

	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.SetColor(gg.Hex(background).Color())
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	if err := dc.Fill(); err != nil {
		slog.Error("paint placeholder", "error", err)
		http.Error(w, "failed to render placeholder", http.StatusInternalServerError)
		return
	}
	// Diagonals mark the box as a stand-in.
	dc.SetColor(gg.Hex(foreground).Color())
	dc.SetLineWidth(1)
	dc.MoveTo(0, 0)
	dc.LineTo(float64(width), float64(height))
	dc.MoveTo(float64(width), 0)
	dc.LineTo(0, float64(height))
	if err := dc.Stroke(); err != nil {
		slog.Error("paint placeholder", "error", err)
		http.Error(w, "failed to render placeholder", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, dc.Image()); err != nil {
		slog.Error("encode placeholder", "error", err)
	}
}
