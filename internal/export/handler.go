package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/allthatprinting/pinto/backend-go/internal/design"
	"github.com/allthatprinting/pinto/backend-go/internal/typeid"
)

const maxRequestSize = 50 << 20 // 50MB, designs may embed data URI images

// FailedElementsHeader lists element ids that could not be painted.
const FailedElementsHeader = "X-Export-Failed-Elements"

// ExportIDHeader carries the id the export was logged under.
const ExportIDHeader = "X-Export-ID"

type Handler struct {
	loader ImageLoader
	dpi    float64
}

// NewHandler creates an export handler. dpi is used when a request does not
// name one.
func NewHandler(loader ImageLoader, dpi float64) *Handler {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Handler{loader: loader, dpi: dpi}
}

type exportRequest struct {
	Design      json.RawMessage `json:"design"`
	Format      string          `json:"format"`
	DPI         float64         `json:"dpi"`
	Transparent bool            `json:"transparent"`
}

// ExportDesign handles POST /export/design and streams the file as an attachment.
func (h *Handler) ExportDesign(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	d, err := design.Decode(req.Design)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	format, err := ParseFormat(req.Format)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	dpi := h.dpi
	if req.DPI > 0 && req.DPI <= MaxDPI {
		dpi = req.DPI
	}

	if err := CheckSurface(d.CanvasSize, dpi); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	exportID := typeid.NewExportID()
	slog.Info("export started", "export", exportID, "format", format, "dpi", dpi, "elements", len(d.Elements))

	res, err := Rasterize(r.Context(), d, Options{DPI: dpi, Transparent: req.Transparent, Loader: h.loader})
	if err != nil {
		slog.Error("rasterize design", "export", exportID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("export failed: %v", err)})
		return
	}

	var buf bytes.Buffer
	if err := Encode(&buf, res, format); err != nil {
		slog.Error("encode export", "export", exportID, "format", format, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("encoding failed: %v", err)})
		return
	}

	name := Filename(d.ProductType, time.Now(), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set(ExportIDHeader, exportID)
	if len(res.Failed) > 0 {
		w.Header().Set(FailedElementsHeader, strings.Join(res.Failed, ","))
	}
	w.Write(buf.Bytes())

	slog.Info("export complete", "export", exportID, "format", format, "size", buf.Len(), "failed", len(res.Failed))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
