//go:build !windows

package native

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

// sharedLibrary is a dlopen handle. RTLD_GLOBAL publishes the engine's
// symbols into the process-wide table so later short-name lookups resolve.
type sharedLibrary struct {
	mu     sync.Mutex
	handle uintptr
	path   string
}

func openLibrary(path string) (Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, err
	}
	if handle == 0 {
		return nil, fmt.Errorf("dlopen returned a nil handle for %s", path)
	}
	return &sharedLibrary{handle: handle, path: path}, nil
}

func (l *sharedLibrary) Lookup(symbol string) (uintptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == 0 {
		return 0, fmt.Errorf("library %s is closed", l.path)
	}
	addr, err := purego.Dlsym(l.handle, symbol)
	if err != nil {
		return 0, err
	}
	if addr == 0 {
		return 0, fmt.Errorf("dlsym returned a nil address for %s", symbol)
	}
	return addr, nil
}

func (l *sharedLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == 0 {
		return nil
	}
	err := purego.Dlclose(l.handle)
	l.handle = 0
	return err
}
