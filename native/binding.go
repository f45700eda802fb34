package native

import (
	"fmt"
	"sort"
	"sync"
)

// Library is an opened native library.
type Library interface {
	Lookup(symbol string) (uintptr, error)
	Close() error
}

// Opener is the physical bind primitive: it loads a library by path or, for a
// bare file name, through the operating system's default search.
type Opener interface {
	Open(name string) (Library, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(name string) (Library, error)

func (f OpenerFunc) Open(name string) (Library, error) { return f(name) }

// SystemOpener loads libraries with dlopen (RTLD_NOW|RTLD_GLOBAL) or LoadLibrary.
var SystemOpener Opener = OpenerFunc(openLibrary)

// EngineSymbols are the exports the audio engine wrapper resolves from a binding.
var EngineSymbols = []string{
	"audio_engine_create",
	"audio_engine_destroy",
	"audio_engine_load_file",
	"audio_engine_play",
	"audio_engine_pause",
	"audio_engine_stop",
	"audio_engine_seek",
	"audio_engine_set_volume",
	"audio_engine_set_volume_ramped",
	"audio_engine_get_volume",
	"audio_engine_mute",
	"audio_engine_unmute",
	"audio_engine_is_muted",
	"audio_engine_get_position",
	"audio_engine_get_duration",
	"audio_engine_is_playing",
	"audio_engine_set_callback",
	"audio_engine_clear_callback",
}

// Binding is the table of native entry points produced by a successful load.
type Binding struct {
	lib      Library
	path     string
	strategy string

	mu      sync.RWMutex
	symbols map[string]uintptr
}

// bind resolves every required symbol from lib. The library is closed when
// any symbol is missing.
func bind(lib Library, path, strategy string, required []string) (*Binding, error) {
	b := &Binding{
		lib:      lib,
		path:     path,
		strategy: strategy,
		symbols:  make(map[string]uintptr, len(required)),
	}
	for _, name := range required {
		addr, err := lib.Lookup(name)
		if err != nil || addr == 0 {
			_ = lib.Close()
			if err == nil {
				return nil, fmt.Errorf("%w: %s in %s", ErrSymbolNotFound, name, path)
			}
			return nil, fmt.Errorf("%w: %s in %s: %v", ErrSymbolNotFound, name, path, err)
		}
		b.symbols[name] = addr
	}
	return b, nil
}

// Path returns the location the library was bound from. For the system-path
// strategy this is the bare file name handed to the operating system.
func (b *Binding) Path() string { return b.path }

// Strategy returns the name of the strategy that produced the binding.
func (b *Binding) Strategy() string { return b.strategy }

// Symbol returns the address of an exported function, resolving symbols that
// were not verified at load time on first use.
func (b *Binding) Symbol(name string) (uintptr, error) {
	b.mu.RLock()
	addr, ok := b.symbols[name]
	b.mu.RUnlock()
	if ok {
		return addr, nil
	}

	addr, err := b.lib.Lookup(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrSymbolNotFound, name, err)
	}
	if addr == 0 {
		return 0, fmt.Errorf("%w: %s", ErrSymbolNotFound, name)
	}

	b.mu.Lock()
	b.symbols[name] = addr
	b.mu.Unlock()
	return addr, nil
}

// Symbols lists the resolved symbol names in lexical order.
func (b *Binding) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.symbols))
	for name := range b.symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close unloads the library. Function pointers obtained from the binding
// must not be called afterwards.
func (b *Binding) Close() error {
	return b.lib.Close()
}
