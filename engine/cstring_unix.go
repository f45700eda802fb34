//go:build !windows

package engine

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// cString returns a NUL-terminated copy of s. The caller keeps the result
// alive for the duration of the native call.
func cString(s string) (*byte, error) {
	p, err := unix.BytePtrFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return p, nil
}

func goString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	return unix.BytePtrToString((*byte)(unsafe.Pointer(ptr)))
}
