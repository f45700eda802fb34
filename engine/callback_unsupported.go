//go:build !arm64 && !(windows && amd64)

package engine

// The System V ABI passes the 24-byte event struct on the stack by value,
// which purego callbacks cannot receive.
func nativeTrampoline() (uintptr, error) {
	return 0, ErrCallbackUnsupported
}
