//go:build windows

package engine

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// cString returns a NUL-terminated copy of s. The engine expects UTF-8 paths
// on every platform.
func cString(s string) (*byte, error) {
	p, err := windows.BytePtrFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return p, nil
}

func goString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	return windows.BytePtrToString((*byte)(unsafe.Pointer(ptr)))
}
