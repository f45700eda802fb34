//go:build arm64 || (windows && amd64)

package engine

import (
	"sync"

	"github.com/ebitengine/purego"
)

// The event struct is larger than 16 bytes, so these ABIs pass it to the
// callback as a pointer to a caller-owned copy.

var (
	trampolineOnce sync.Once
	trampoline     uintptr
)

// nativeTrampoline returns the single C function pointer every engine
// registers. purego callbacks are never freed, so only one is created.
func nativeTrampoline() (uintptr, error) {
	trampolineOnce.Do(func() {
		trampoline = purego.NewCallback(func(event uintptr, userData uintptr) uintptr {
			dispatch(eventFromPointer(event), userData)
			return 0
		})
	})
	return trampoline, nil
}
