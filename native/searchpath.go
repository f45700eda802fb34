package native

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const listSeparator = os.PathListSeparator

// SearchPath is the ordered, deduplicated set of directories the binding
// mechanism consults when a library is referenced by file name only.
// It is safe for concurrent use.
type SearchPath struct {
	mu    sync.RWMutex
	paths []string
}

// NewSearchPath returns a search path seeded with dirs.
func NewSearchPath(dirs ...string) (*SearchPath, error) {
	sp := &SearchPath{}
	for _, dir := range dirs {
		if err := sp.Append(dir); err != nil {
			return nil, err
		}
	}
	return sp, nil
}

// Set replaces the configuration with a single directory.
func (sp *SearchPath) Set(dir string) error {
	normalized, err := normalizeSearchDir(dir)
	if err != nil {
		return err
	}

	sp.mu.Lock()
	defer sp.mu.Unlock()
	sp.paths = []string{normalized}
	return nil
}

// Append adds dir unless it is already configured.
func (sp *SearchPath) Append(dir string) error {
	normalized, err := normalizeSearchDir(dir)
	if err != nil {
		return err
	}

	sp.mu.Lock()
	defer sp.mu.Unlock()
	for _, existing := range sp.paths {
		if existing == normalized {
			return nil
		}
	}
	sp.paths = append(sp.paths, normalized)
	return nil
}

// Paths returns a snapshot of the configured directories in insertion order.
func (sp *SearchPath) Paths() []string {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	out := make([]string, len(sp.paths))
	copy(out, sp.paths)
	return out
}

// String renders the configuration as an OS path list.
func (sp *SearchPath) String() string {
	return strings.Join(sp.Paths(), string(listSeparator))
}

// Locate resolves fileName against the configured directories. The preferred
// directory, when non-empty, is consulted before the configured order so a
// directory added by an earlier failed attempt never shadows it.
func (sp *SearchPath) Locate(fileName, preferred string) (string, error) {
	candidates := sp.Paths()
	if preferred != "" {
		preferred = filepath.Clean(preferred)
		ordered := make([]string, 0, len(candidates)+1)
		ordered = append(ordered, preferred)
		for _, dir := range candidates {
			if dir != preferred {
				ordered = append(ordered, dir)
			}
		}
		candidates = ordered
	}

	for _, dir := range candidates {
		path := filepath.Join(dir, fileName)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", &BindingNotFoundError{Name: fileName, Searched: candidates}
}

func normalizeSearchDir(dir string) (string, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return "", &InvalidPathConfigurationError{Path: dir, Reason: "path is empty"}
	}
	cleaned := filepath.Clean(trimmed)
	if hasLibraryExtension(cleaned) {
		return "", &InvalidPathConfigurationError{Path: dir, Reason: "path names a library file, expected a directory"}
	}
	if info, err := os.Stat(cleaned); err == nil && !info.IsDir() {
		return "", &InvalidPathConfigurationError{Path: dir, Reason: "path is a file, expected a directory"}
	}
	return cleaned, nil
}

func hasLibraryExtension(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	switch filepath.Ext(base) {
	case ".dll", ".dylib", ".so":
		return true
	}
	// Versioned sonames such as libfoo.so.1 or libfoo.so.1.2.3.
	idx := strings.LastIndex(base, ".so.")
	if idx < 0 {
		return false
	}
	return isSonameVersion(base[idx+len(".so."):])
}

func isSonameVersion(version string) bool {
	for _, part := range strings.Split(version, ".") {
		if part == "" {
			return false
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
