package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's FFI result codes.
var (
	ErrNullPointer     = errors.New("engine: null pointer")
	ErrInvalidArgument = errors.New("engine: invalid argument")
	ErrOutOfMemory     = errors.New("engine: out of memory")
	ErrInternal        = errors.New("engine: internal error")
	ErrNotFound        = errors.New("engine: not found")

	// ErrClosed is returned by every method once Close has run.
	ErrClosed = errors.New("engine: closed")
	// ErrCallbackUnsupported is returned by SetCallback on targets where the
	// native event cannot be received by a Go callback.
	ErrCallbackUnsupported = errors.New("engine: native callbacks are not supported on this platform")
)

// ResultCode is the status returned by every audio_engine_* call.
type ResultCode int32

const (
	ResultSuccess         ResultCode = 0
	ResultNullPointer     ResultCode = -1
	ResultInvalidArgument ResultCode = -2
	ResultOutOfMemory     ResultCode = -3
	ResultInternal        ResultCode = -4
	ResultNotFound        ResultCode = -5
)

func (c ResultCode) String() string {
	switch c {
	case ResultSuccess:
		return "success"
	case ResultNullPointer:
		return "null pointer"
	case ResultInvalidArgument:
		return "invalid argument"
	case ResultOutOfMemory:
		return "out of memory"
	case ResultInternal:
		return "internal error"
	case ResultNotFound:
		return "not found"
	default:
		return fmt.Sprintf("unknown result %d", int32(c))
	}
}

// sentinel returns the error a code maps to. Unknown codes are internal errors.
func (c ResultCode) sentinel() error {
	switch c {
	case ResultSuccess:
		return nil
	case ResultNullPointer:
		return ErrNullPointer
	case ResultInvalidArgument:
		return ErrInvalidArgument
	case ResultOutOfMemory:
		return ErrOutOfMemory
	case ResultNotFound:
		return ErrNotFound
	default:
		return ErrInternal
	}
}

// CallError reports a failed native call.
type CallError struct {
	Op   string
	Code ResultCode
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Code, int32(e.Code))
}

func (e *CallError) Unwrap() error {
	return e.Code.sentinel()
}

// check converts a native result into an error.
func check(op string, code int32) error {
	if ResultCode(code) == ResultSuccess {
		return nil
	}
	return &CallError{Op: op, Code: ResultCode(code)}
}
