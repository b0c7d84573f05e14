package designapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/allthatprinting/pinto/backend-go/internal/auth"
	"github.com/allthatprinting/pinto/backend-go/internal/design"
	"github.com/allthatprinting/pinto/backend-go/internal/store"
)

func newRouter(kv store.KV, userID string) *mux.Router {
	h := NewHandler(kv)
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: userID})))
		})
	})
	r.HandleFunc("/api/designs/{key}", h.Get).Methods("GET")
	r.HandleFunc("/api/designs/{key}", h.Put).Methods("PUT")
	r.HandleFunc("/api/designs/{key}", h.Delete).Methods("DELETE")
	r.HandleFunc("/api/presets", h.Presets).Methods("GET")
	r.HandleFunc("/api/sessions", h.CreateSession).Methods("POST")
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSaveAndLoad(t *testing.T) {
	kv := store.NewMemory()
	r := newRouter(kv, "user_a")

	d := design.NewEmptyDesign("badge")
	d.Elements = append(d.Elements, design.NewTextElement("hi", d.CanvasSize))
	data, err := design.Encode(d)
	if err != nil {
		t.Fatal(err)
	}

	if rec := do(t, r, "PUT", "/api/designs/"+design.StorageKey, string(data)); rec.Code != http.StatusOK {
		t.Fatalf("put status %d: %s", rec.Code, rec.Body.String())
	}

	rec := do(t, r, "GET", "/api/designs/"+design.StorageKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}
	var got design.SavedDesign
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Elements) != 1 || got.Elements[0].Text != "hi" || got.ProductType != "badge" {
		t.Fatalf("loaded %+v", got)
	}

	// Another user sees an empty design under the same key.
	rec = do(t, newRouter(kv, "user_b"), "GET", "/api/designs/"+design.StorageKey+"?productType=mug", "")
	var other design.SavedDesign
	json.Unmarshal(rec.Body.Bytes(), &other)
	if len(other.Elements) != 0 || other.ProductType != "mug" {
		t.Fatalf("user b saw %+v", other)
	}

	if rec := do(t, r, "DELETE", "/api/designs/"+design.StorageKey, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", rec.Code)
	}
	rec = do(t, r, "GET", "/api/designs/"+design.StorageKey, "")
	json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got.Elements) != 0 {
		t.Fatal("design survived delete")
	}
}

func TestLoadCorruptDesign(t *testing.T) {
	kv := store.NewMemory()
	key, _ := Key("user_a", "broken")
	kv.Put(context.Background(), key, []byte(`{"elements":[{"id":""}]`))

	rec := do(t, newRouter(kv, "user_a"), "GET", "/api/designs/broken?productType=sticker", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got design.SavedDesign
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.ProductType != "sticker" || len(got.Elements) != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestPutRejectsInvalid(t *testing.T) {
	r := newRouter(store.NewMemory(), "user_a")
	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"zero canvas", `{"elements":[],"canvasSize":{"width":0,"height":0}}`},
		{"bad element", `{"elements":[{"id":"e1","type":"video"}],"canvasSize":{"width":100,"height":100}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, r, "PUT", "/api/designs/x", tt.body); rec.Code != http.StatusBadRequest {
				t.Fatalf("status %d, want 400", rec.Code)
			}
		})
	}
}

func TestKey(t *testing.T) {
	if k, err := Key("user_a", "pinto-design"); err != nil || k != "user/user_a/pinto-design" {
		t.Fatalf("Key = %q, %v", k, err)
	}
	for _, bad := range []string{"", "a/b", `a\b`, strings.Repeat("k", 129)} {
		if _, err := Key("user_a", bad); err == nil {
			t.Errorf("Key(%q) accepted", bad)
		}
	}
}

func TestPresets(t *testing.T) {
	r := newRouter(store.NewMemory(), "user_a")
	rec := do(t, r, "GET", "/api/presets", "")
	var all map[string][]design.Preset
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatal(err)
	}
	if len(all["mug"]) == 0 || len(all[design.DefaultProductType]) == 0 {
		t.Fatalf("presets %v", all)
	}
}

func TestCreateSession(t *testing.T) {
	kv := store.NewMemory()
	rec := do(t, newRouter(kv, "user_a"), "POST", "/api/sessions", `{"productType":"keyring"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp createSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(resp.DesignID, "design_") {
		t.Fatalf("design id %q", resp.DesignID)
	}
	d, err := store.LoadDesign(context.Background(), kv, SessionKey(resp.DesignID), "")
	if err != nil {
		t.Fatal(err)
	}
	if d.ProductType != "keyring" || d.CanvasSize != design.DefaultPreset("keyring").CanvasSize() {
		t.Fatalf("stored %+v", d)
	}
}
