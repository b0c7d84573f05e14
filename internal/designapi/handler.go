// Package designapi exposes saved designs over HTTP.
package designapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/allthatprinting/pinto/backend-go/internal/auth"
	"github.com/allthatprinting/pinto/backend-go/internal/design"
	"github.com/allthatprinting/pinto/backend-go/internal/store"
	"github.com/allthatprinting/pinto/backend-go/internal/typeid"
)

const maxDesignSize = 16 << 20

var ErrInvalidKey = errors.New("invalid design key")

type Handler struct {
	kv store.KV
}

func NewHandler(kv store.KV) *Handler {
	return &Handler{kv: kv}
}

// Key scopes a client-chosen design key to its owner.
func Key(userID, key string) (string, error) {
	if key == "" || len(key) > 128 || strings.ContainsAny(key, "/\\") {
		return "", ErrInvalidKey
	}
	return "user/" + userID + "/" + key, nil
}

// SessionKey is where a shared editing session's design is stored.
func SessionKey(designID string) string {
	return "design/" + designID
}

func (h *Handler) storageKey(r *http.Request) (string, error) {
	return Key(auth.UserIDFromContext(r.Context()), mux.Vars(r)["key"])
}

// Get handles GET /api/designs/{key}. A missing or corrupt design comes back
// as an empty one for ?productType.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	key, err := h.storageKey(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	d, err := store.LoadDesign(r.Context(), h.kv, key, r.URL.Query().Get("productType"))
	if err != nil {
		slog.Error("load design failed", "error", err, "key", key)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// Put handles PUT /api/designs/{key}. The body is a full saved design; the
// server stamps the save time.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	key, err := h.storageKey(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDesignSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	d, err := design.Decode(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if d.ProductType == "" {
		d.ProductType = design.DefaultProductType
	}
	d.Timestamp = time.Now().UnixMilli()

	if err := store.SaveDesign(r.Context(), h.kv, key, d); err != nil {
		slog.Error("save design failed", "error", err, "key", key)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// Delete handles DELETE /api/designs/{key}. Deleting a missing design succeeds.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	key, err := h.storageKey(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := h.kv.Delete(r.Context(), key); err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("delete design failed", "error", err, "key", key)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type createSessionRequest struct {
	ProductType string `json:"productType"`
}

type createSessionResponse struct {
	DesignID string              `json:"designId"`
	Design   *design.SavedDesign `json:"design"`
}

// CreateSession handles POST /api/sessions. It stores an empty design under
// a fresh id that clients then join over the websocket.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	designID := typeid.NewDesignID()
	d := design.NewEmptyDesign(req.ProductType)
	if err := store.SaveDesign(r.Context(), h.kv, SessionKey(designID), d); err != nil {
		slog.Error("create session failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{DesignID: designID, Design: d})
}

// Presets handles GET /api/presets, listing canvas presets per product type.
func (h *Handler) Presets(w http.ResponseWriter, r *http.Request) {
	if pt := r.URL.Query().Get("productType"); pt != "" {
		writeJSON(w, http.StatusOK, design.Presets(pt))
		return
	}
	out := map[string][]design.Preset{design.DefaultProductType: design.Presets(design.DefaultProductType)}
	for _, pt := range design.ProductTypes() {
		out[pt] = design.Presets(pt)
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
