package native

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSearchPathSetAndAppend(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a")
	b := filepath.Join(root, "b")
	c := filepath.Join(root, "c")

	sp := &SearchPath{}
	require.NoError(t, sp.Append(a))
	require.NoError(t, sp.Append(b))
	require.NoError(t, sp.Append(a+string(filepath.Separator)))
	require.NoError(t, sp.Append(" "+b+" "))
	assert.Equal(t, []string{a, b}, sp.Paths())

	require.NoError(t, sp.Set(c))
	assert.Equal(t, []string{c}, sp.Paths())
	assert.Equal(t, c, sp.String())
}

func TestSearchPathRejectsLibraryFiles(t *testing.T) {
	root := t.TempDir()
	existingFile := writeLibrary(t, root, "engine.bin")

	for _, path := range []string{
		"",
		"   ",
		filepath.Join(root, "libcontextune_core.so"),
		filepath.Join(root, "libcontextune_core.so.1"),
		filepath.Join(root, "libcontextune_core.so.1.2.3"),
		filepath.Join(root, "libcontextune_core.dylib"),
		filepath.Join(root, "CONTEXTUNE_CORE.DLL"),
		existingFile,
	} {
		sp := &SearchPath{}
		err := sp.Append(path)
		var invalid *InvalidPathConfigurationError
		require.True(t, errors.As(err, &invalid), "expected InvalidPathConfigurationError for %q, got %v", path, err)

		err = sp.Set(path)
		require.True(t, errors.As(err, &invalid), "expected InvalidPathConfigurationError from Set for %q, got %v", path, err)
		assert.Empty(t, sp.Paths())
	}
}

func TestSearchPathAcceptsDirectoriesNamedLikeSonames(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"app.so.d", "plugins.so.old", "lib.so.1a"} {
		dir := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(dir, 0o755))

		sp := &SearchPath{}
		require.NoError(t, sp.Append(dir), "directory %q", name)
		assert.Equal(t, []string{dir}, sp.Paths())
	}
}

func TestSearchPathLocatePrefersDirectory(t *testing.T) {
	root := t.TempDir()
	stale := filepath.Join(root, "stale")
	fresh := filepath.Join(root, "fresh")
	writeLibrary(t, stale, "libcontextune_core.so")
	want := writeLibrary(t, fresh, "libcontextune_core.so")

	sp, err := NewSearchPath(stale, fresh)
	require.NoError(t, err)

	got, err := sp.Locate("libcontextune_core.so", fresh)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = sp.Locate("libcontextune_core.so", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(stale, "libcontextune_core.so"), got)
}

func TestSearchPathLocateNotFound(t *testing.T) {
	dir := t.TempDir()
	sp, err := NewSearchPath(dir)
	require.NoError(t, err)

	_, err = sp.Locate("libmissing.so", "")
	var notFound *BindingNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, []string{dir}, notFound.Searched)
}

func TestSearchPathConcurrentAppend(t *testing.T) {
	root := t.TempDir()
	sp := &SearchPath{}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, sp.Append(filepath.Join(root, fmt.Sprintf("dir-%d", i%8))))
			_ = sp.Paths()
		}(i)
	}
	wg.Wait()

	assert.Len(t, sp.Paths(), 8)
}

func TestSearchPathAppendProperties(t *testing.T) {
	root := t.TempDir()
	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOf(rapid.SampledFrom([]string{"a", "b", "c", "d", "e"})).Draw(t, "names")

		sp := &SearchPath{}
		var want []string
		seen := map[string]bool{}
		for _, name := range names {
			dir := filepath.Join(root, name)
			if err := sp.Append(dir); err != nil {
				t.Fatalf("append %q: %v", dir, err)
			}
			if !seen[dir] {
				seen[dir] = true
				want = append(want, dir)
			}
		}

		got := sp.Paths()
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("got %v, want %v", got, want)
			}
		}
	})
}
