//go:build windows

package native

import (
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sys/windows"
)

type sharedLibrary struct {
	mu     sync.Mutex
	handle windows.Handle
	path   string
}

func openLibrary(path string) (Library, error) {
	var (
		handle windows.Handle
		err    error
	)
	if filepath.IsAbs(path) {
		// Let the engine's own dependencies resolve from its directory.
		handle, err = windows.LoadLibraryEx(path, 0, windows.LOAD_LIBRARY_SEARCH_DLL_LOAD_DIR|windows.LOAD_LIBRARY_SEARCH_DEFAULT_DIRS)
	} else {
		handle, err = windows.LoadLibrary(path)
	}
	if err != nil {
		return nil, err
	}
	if handle == 0 {
		return nil, fmt.Errorf("LoadLibrary returned a nil handle for %s", path)
	}
	return &sharedLibrary{handle: handle, path: path}, nil
}

func (l *sharedLibrary) Lookup(symbol string) (uintptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == 0 {
		return 0, fmt.Errorf("library %s is closed", l.path)
	}
	proc, err := windows.GetProcAddress(l.handle, symbol)
	if err != nil {
		return 0, err
	}
	return proc, nil
}

func (l *sharedLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handle == 0 {
		return nil
	}
	err := windows.FreeLibrary(l.handle)
	l.handle = 0
	return err
}
