package engine

import "sync"

// callbackTable keeps Go callbacks reachable for as long as the native side
// may invoke them. Entries are keyed by engine handle, which is also the
// user data pointer handed to audio_engine_set_callback.
type callbackTable struct {
	mu      sync.RWMutex
	entries map[uintptr]Callback
}

func newCallbackTable() *callbackTable {
	return &callbackTable{entries: make(map[uintptr]Callback)}
}

var callbacks = newCallbackTable()

// Retain stores cb for handle and returns the callback it replaced.
func (t *callbackTable) Retain(handle uintptr, cb Callback) (Callback, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.entries[handle]
	t.entries[handle] = cb
	return prev, ok
}

// Release drops the callback for handle.
func (t *callbackTable) Release(handle uintptr) {
	t.mu.Lock()
	delete(t.entries, handle)
	t.mu.Unlock()
}

func (t *callbackTable) Lookup(handle uintptr) (Callback, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cb, ok := t.entries[handle]
	return cb, ok
}

func (t *callbackTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
