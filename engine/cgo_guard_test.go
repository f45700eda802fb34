package engine

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestNoCgoImports keeps the loader and the wrapper buildable with CGO_ENABLED=0.
func TestNoCgoImports(t *testing.T) {
	for _, dir := range []string{".", filepath.Join("..", "native")} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("failed to read package directory %s: %v", dir, err)
		}

		fset := token.NewFileSet()
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ".go") {
				continue
			}

			file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
			if err != nil {
				t.Fatalf("failed to parse %s: %v", name, err)
			}
			for _, imp := range file.Imports {
				if imp.Path != nil && imp.Path.Value == `"C"` {
					t.Fatalf("CGO import detected in %s: import \"C\" is forbidden", filepath.Join(dir, name))
				}
			}
		}
	}
}
