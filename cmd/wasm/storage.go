//go:build js && wasm

package main

import (
	"context"
	"errors"
	"fmt"
	"syscall/js"

	"github.com/allthatprinting/pinto/backend-go/internal/store"
)

var errNoLocalStorage = errors.New("localStorage unavailable")

// localStorage is a store.KV over window.localStorage. Values are stored as
// strings, which is all the design codec produces.
type localStorage struct {
	ls js.Value
}

func newLocalStorage() *localStorage {
	return &localStorage{ls: js.Global().Get("localStorage")}
}

func (s *localStorage) available() bool {
	return s.ls.Type() == js.TypeObject
}

func (s *localStorage) Get(_ context.Context, key string) ([]byte, error) {
	if !s.available() {
		return nil, errNoLocalStorage
	}
	v := s.ls.Call("getItem", key)
	if v.IsNull() {
		return nil, store.ErrNotFound
	}
	return []byte(v.String()), nil
}

// Put reports quota errors instead of letting setItem throw into the runtime.
func (s *localStorage) Put(_ context.Context, key string, value []byte) (err error) {
	if !s.available() {
		return errNoLocalStorage
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("localStorage setItem: %v", r)
		}
	}()
	s.ls.Call("setItem", key, string(value))
	return nil
}

func (s *localStorage) Delete(_ context.Context, key string) error {
	if !s.available() {
		return errNoLocalStorage
	}
	s.ls.Call("removeItem", key)
	return nil
}
