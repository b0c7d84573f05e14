// Package store persists designs as opaque JSON blobs under string keys.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/allthatprinting/pinto/backend-go/internal/design"
)

var ErrNotFound = errors.New("not found")

// KV is a minimal key-value store. Put overwrites; Get on a missing key
// returns ErrNotFound.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// SaveDesign serializes d and stores it under key.
func SaveDesign(ctx context.Context, kv KV, key string, d *design.SavedDesign) error {
	data, err := design.Encode(d)
	if err != nil {
		return err
	}
	if err := kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save design: %w", err)
	}
	return nil
}

// LoadDesign returns the design stored under key. A missing or unreadable
// entry yields an empty design for productType instead of an error, so a
// corrupt save never blocks the editor. Only store failures are returned.
func LoadDesign(ctx context.Context, kv KV, key, productType string) (*design.SavedDesign, error) {
	data, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return design.NewEmptyDesign(productType), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load design: %w", err)
	}
	d, err := design.Decode(data)
	if err != nil {
		slog.Warn("discard corrupt design", "key", key, "error", err)
		return design.NewEmptyDesign(productType), nil
	}
	return d, nil
}

// Memory is an in-process KV, used by tests and single-user sessions.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
