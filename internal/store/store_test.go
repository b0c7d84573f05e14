package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/allthatprinting/pinto/backend-go/internal/design"
)

func openStores(t *testing.T) map[string]KV {
	t.Helper()
	sqlite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "pinto.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]KV{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func sampleDesign() *design.SavedDesign {
	canvas := design.CanvasSizeFromMM(50, 50)
	return &design.SavedDesign{
		Elements: []design.Element{
			{ID: "elem_a", Type: design.ElementTypeShape, ShapeType: design.ShapeCircle,
				X: 10, Y: 20, Width: 100, Height: 100, Rotation: 90, ZIndex: 0, Visible: true, Fill: "#ff0000"},
			{ID: "elem_b", Type: design.ElementTypeText, Text: "안녕", FontSize: 24,
				X: 0, Y: 0, Width: 200, Height: 60, ZIndex: 1, Visible: false, TextAlign: design.TextAlignRight},
		},
		CanvasSize:  canvas,
		Timestamp:   1700000000000,
		ProductType: "sticker",
	}
}

func TestKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, kv := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := kv.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get missing: %v", err)
			}
			if err := kv.Put(ctx, "k", []byte("v1")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := kv.Put(ctx, "k", []byte("v2")); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			got, err := kv.Get(ctx, "k")
			if err != nil || string(got) != "v2" {
				t.Fatalf("Get: %q, %v", got, err)
			}
			if err := kv.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := kv.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get after delete: %v", err)
			}
		})
	}
}

func TestDesignRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, kv := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			want := sampleDesign()
			if err := SaveDesign(ctx, kv, design.StorageKey, want); err != nil {
				t.Fatalf("SaveDesign: %v", err)
			}
			got, err := LoadDesign(ctx, kv, design.StorageKey, "default")
			if err != nil {
				t.Fatalf("LoadDesign: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestLoadDesignToleratesBadData(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	d, err := LoadDesign(ctx, kv, design.StorageKey, "mug")
	if err != nil {
		t.Fatalf("missing key: %v", err)
	}
	if len(d.Elements) != 0 || d.ProductType != "mug" {
		t.Fatalf("expected empty mug design, got %+v", d)
	}

	for _, payload := range []string{"{not json", `{"elements":[],"canvasSize":{"width":0,"height":0}}`} {
		kv.Put(ctx, design.StorageKey, []byte(payload))
		d, err := LoadDesign(ctx, kv, design.StorageKey, "sticker")
		if err != nil {
			t.Fatalf("corrupt payload %q: %v", payload, err)
		}
		if len(d.Elements) != 0 || d.CanvasSize.Width == 0 {
			t.Fatalf("expected fresh design for %q, got %+v", payload, d)
		}
	}
}

type brokenKV struct{}

var errDisk = errors.New("disk on fire")

func (brokenKV) Get(context.Context, string) ([]byte, error) { return nil, errDisk }
func (brokenKV) Put(context.Context, string, []byte) error { return errDisk }
func (brokenKV) Delete(context.Context, string) error { return errDisk }

func TestLoadDesignReturnsStoreErrors(t *testing.T) {
	if _, err := LoadDesign(context.Background(), brokenKV{}, "k", ""); !errors.Is(err, errDisk) {
		t.Fatalf("expected store error to surface, got %v", err)
	}
	if err := SaveDesign(context.Background(), brokenKV{}, "k", sampleDesign()); !errors.Is(err, errDisk) {
		t.Fatalf("expected save error, got %v", err)
	}
}
