// Package teardown is the host's shutdown sequence: components register
// cleanup actions as they acquire resources and the owner of startup runs
// them once on exit.
package teardown

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
)

type action struct {
	name string
	fn   func() error
}

// Registry collects teardown actions. It is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	actions []action
	ran     bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// Register adds fn to the sequence. Actions registered after Run are
// executed immediately so nothing acquired during shutdown leaks.
func (r *Registry) Register(name string, fn func() error) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	if r.ran {
		r.mu.Unlock()
		_ = fn()
		return
	}
	r.actions = append(r.actions, action{name: name, fn: fn})
	r.mu.Unlock()
}

// RegisterCloser registers c.Close. Nil closers, including typed nils, are ignored.
func (r *Registry) RegisterCloser(name string, c io.Closer) {
	if isNilCloser(c) {
		return
	}
	r.Register(name, c.Close)
}

// Len returns the number of pending actions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actions)
}

// Run executes pending actions in reverse registration order and joins
// their errors. Later calls are no-ops.
func (r *Registry) Run() error {
	r.mu.Lock()
	if r.ran {
		r.mu.Unlock()
		return nil
	}
	r.ran = true
	actions := r.actions
	r.actions = nil
	r.mu.Unlock()

	var err error
	for i := len(actions) - 1; i >= 0; i-- {
		if actionErr := actions[i].fn(); actionErr != nil {
			err = errors.Join(err, fmt.Errorf("%s: %w", actions[i].name, actionErr))
		}
	}
	return err
}

func isNilCloser(c io.Closer) bool {
	if c == nil {
		return true
	}
	value := reflect.ValueOf(c)
	switch value.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return value.IsNil()
	default:
		return false
	}
}
