package native

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeLibrary struct {
	name    string
	symbols map[string]uintptr
	closed  atomic.Bool
}

func newFakeLibrary(name string, symbols ...string) *fakeLibrary {
	if symbols == nil {
		symbols = EngineSymbols
	}
	lib := &fakeLibrary{name: name, symbols: make(map[string]uintptr, len(symbols))}
	for i, s := range symbols {
		lib.symbols[s] = uintptr(0x1000 + i*0x10)
	}
	return lib
}

func (l *fakeLibrary) Lookup(symbol string) (uintptr, error) {
	if l.closed.Load() {
		return 0, fmt.Errorf("%s is closed", l.name)
	}
	addr, ok := l.symbols[symbol]
	if !ok {
		return 0, fmt.Errorf("undefined symbol: %s", symbol)
	}
	return addr, nil
}

func (l *fakeLibrary) Close() error {
	l.closed.Store(true)
	return nil
}

// fileOpener opens any path that exists on disk and rejects bare names,
// standing in for dlopen.
type fileOpener struct {
	mu     sync.Mutex
	opened []string
}

func (o *fileOpener) Open(name string) (Library, error) {
	o.mu.Lock()
	o.opened = append(o.opened, name)
	o.mu.Unlock()
	if !filepath.IsAbs(name) && filepath.Base(name) == name {
		return nil, fmt.Errorf("%s: cannot open shared object file: No such file or directory", name)
	}
	if _, err := os.Stat(name); err != nil {
		return nil, err
	}
	return newFakeLibrary(name), nil
}

func (o *fileOpener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

func failingStrategy(name string, calls *atomic.Int32) Strategy {
	return NewStrategy(name, func(env *StrategyEnv) (Library, string, error) {
		calls.Add(1)
		return nil, "", errors.New(name + " failed")
	})
}

func succeedingStrategy(name string, calls *atomic.Int32) Strategy {
	return NewStrategy(name, func(env *StrategyEnv) (Library, string, error) {
		calls.Add(1)
		return newFakeLibrary(name), "/fake/" + name, nil
	})
}

func writeLibrary(t *testing.T, dir, name string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("\x7fELF fake engine"), 0o755))
	return path
}

func clearLoaderEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvLibraryPath, EnvPluginRoot, EnvTempDir, EnvDevRoot, EnvDisableExtraction} {
		t.Setenv(name, "")
	}
}

func linuxDescriptor(t *testing.T) PlatformDescriptor {
	t.Helper()
	d, err := ResolvePlatform("linux", "amd64")
	require.NoError(t, err)
	return d
}
