package native

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSymbolNotFound is returned when a loaded library does not export a required symbol.
	ErrSymbolNotFound = errors.New("native symbol not found")
	// ErrNotLoaded is returned by status queries that need a bound library.
	ErrNotLoaded = errors.New("native library is not loaded")
	// ErrExtractionDisabled is recorded by the resource strategy when extraction is turned off.
	ErrExtractionDisabled = errors.New("native resource extraction is disabled")
)

// UnsupportedPlatformError reports an OS/architecture pair with no platform descriptor.
type UnsupportedPlatformError struct {
	OS   string
	Arch string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform for native engine: os=%q arch=%q", e.OS, e.Arch)
}

// InvalidPathConfigurationError reports a search-path entry that is not a directory.
type InvalidPathConfigurationError struct {
	Path   string
	Reason string
}

func (e *InvalidPathConfigurationError) Error() string {
	return fmt.Sprintf("invalid native search path %q: %s", e.Path, e.Reason)
}

// ResourceNotFoundError reports a bundled library resource that is absent.
type ResourceNotFoundError struct {
	Key string
	Err error
}

func (e *ResourceNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bundled native resource %q not found: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("bundled native resource %q not found", e.Key)
}

func (e *ResourceNotFoundError) Unwrap() error { return e.Err }

// ExtractionIOError reports a filesystem failure while staging or installing an artifact.
type ExtractionIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *ExtractionIOError) Error() string {
	return fmt.Sprintf("failed to %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *ExtractionIOError) Unwrap() error { return e.Err }

// BindingNotFoundError reports that the binding mechanism found no loadable library.
type BindingNotFoundError struct {
	Name     string
	Searched []string
	Err      error
}

func (e *BindingNotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "native library %q could not be bound", e.Name)
	if len(e.Searched) > 0 {
		fmt.Fprintf(&b, " (searched %s)", strings.Join(e.Searched, string(listSeparator)))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *BindingNotFoundError) Unwrap() error { return e.Err }

// AggregateLoadFailure is returned when every strategy failed. It carries one
// error per attempted strategy in attempt order.
type AggregateLoadFailure struct {
	Attempts []LoadAttempt
}

func (e *AggregateLoadFailure) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "native engine could not be loaded after %d attempts", len(e.Attempts))
	for _, attempt := range e.Attempts {
		b.WriteString("; [")
		b.WriteString(attempt.Strategy)
		b.WriteString("] ")
		if attempt.Err != nil {
			b.WriteString(attempt.Err.Error())
		} else {
			b.WriteString("unknown failure")
		}
	}
	return b.String()
}

// Unwrap exposes the per-strategy errors to errors.Is and errors.As.
func (e *AggregateLoadFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		if attempt.Err != nil {
			errs = append(errs, attempt.Err)
		}
	}
	return errs
}

// Summary returns a single human-readable line suitable for a user-facing notice.
func (e *AggregateLoadFailure) Summary() string {
	return fmt.Sprintf("The native audio engine could not be loaded (%d locations tried).", len(e.Attempts))
}

// Detail returns the per-strategy log, one line per attempt.
func (e *AggregateLoadFailure) Detail() string {
	var b strings.Builder
	for i, attempt := range e.Attempts {
		fmt.Fprintf(&b, "%d. %s", i+1, attempt.Strategy)
		if attempt.ResolvedPath != "" {
			fmt.Fprintf(&b, " (%s)", attempt.ResolvedPath)
		}
		if attempt.Err != nil {
			fmt.Fprintf(&b, ": %v", attempt.Err)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
