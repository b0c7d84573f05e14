package asset

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/allthatprinting/pinto/backend-go/internal/design"
	"github.com/allthatprinting/pinto/backend-go/internal/typeid"
)

const maxUploadSize = 10 << 20 // 10MB

var acceptedTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// UploadResponse is returned from the upload endpoint. Placement is an image
// element sized and centered for the requested canvas, ready to be added.
type UploadResponse struct {
	ID        string         `json:"id"`
	URL       string         `json:"url"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	Type      string         `json:"type"`
	Name      string         `json:"name"`
	Placement design.Element `json:"placement"`
}

// Handler serves asset upload and retrieval endpoints.
type Handler struct {
	dir string // directory to store asset files
}

// NewHandler creates a new asset handler that stores files in dir.
func NewHandler(dir string) *Handler {
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir}
}

// Upload handles POST /assets/upload (multipart form with a "file" field and
// optional canvasWidth/canvasHeight or productType fields).
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large (max 10MB)")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !accepted(header.Header.Get("Content-Type")) {
		writeError(w, http.StatusBadRequest, "only PNG, JPEG, GIF and WebP images are supported")
		return
	}

	canvas, err := canvasFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	img, _, err := image.Decode(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image: "+err.Error())
		return
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Everything is normalized to PNG on disk.
	assetID := typeid.NewAssetID()
	filename := assetID + ".png"
	filePath := filepath.Join(h.dir, filename)

	out, err := os.Create(filePath)
	if err != nil {
		slog.Error("create asset file", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save file")
		return
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		slog.Error("encode png", "error", err)
		os.Remove(filePath)
		writeError(w, http.StatusInternalServerError, "failed to encode image")
		return
	}

	url := fmt.Sprintf("/assets/%s", filename)
	writeJSON(w, http.StatusOK, UploadResponse{
		ID:        assetID,
		URL:       url,
		Width:     width,
		Height:    height,
		Type:      "png",
		Name:      header.Filename,
		Placement: design.NewImageElement(url, float64(width), float64(height), canvas),
	})
}

// Serve returns an http.Handler that serves stored asset files with caching headers.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset IDs are unique, so files are immutable
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

func accepted(contentType string) bool {
	for _, t := range acceptedTypes {
		if strings.HasPrefix(contentType, t) {
			return true
		}
	}
	return false
}

// canvasFromForm reads the target canvas. Explicit pixel dimensions win over
// productType; with neither, the default product's first preset is used.
func canvasFromForm(r *http.Request) (design.CanvasSize, error) {
	ws, hs := r.FormValue("canvasWidth"), r.FormValue("canvasHeight")
	if ws == "" && hs == "" {
		return design.DefaultPreset(r.FormValue("productType")).CanvasSize(), nil
	}
	cw, err := strconv.Atoi(ws)
	if err != nil || cw <= 0 {
		return design.CanvasSize{}, fmt.Errorf("invalid canvasWidth %q", ws)
	}
	ch, err := strconv.Atoi(hs)
	if err != nil || ch <= 0 {
		return design.CanvasSize{}, fmt.Errorf("invalid canvasHeight %q", hs)
	}
	return design.CanvasSize{
		Width:    cw,
		Height:   ch,
		WidthMM:  float64(cw) / design.PxPerMM,
		HeightMM: float64(ch) / design.PxPerMM,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
