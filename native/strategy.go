package native

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Strategy names as they appear in the attempt log.
const (
	StrategyExplicitPath       = "explicit-path"
	StrategyPluginDirectory    = "plugin-lib-directory"
	StrategyResourceExtraction = "resource-extraction"
	StrategyDevelopmentPath    = "development-path"
	StrategySystemPath         = "system-path"
)

// Strategy is one way of locating and opening the engine library. Open
// returns the opened library and the path it was opened from; the resolved
// path is also returned alongside an error when the failure happened after
// a candidate was found.
type Strategy interface {
	Name() string
	Open(env *StrategyEnv) (Library, string, error)
}

// StrategyEnv is what a strategy may use while it runs.
type StrategyEnv struct {
	Platform  PlatformDescriptor
	Paths     *SearchPath
	Extractor *Extractor
	Opener    Opener
}

type strategyFunc struct {
	name string
	fn   func(env *StrategyEnv) (Library, string, error)
}

func (s strategyFunc) Name() string { return s.name }

func (s strategyFunc) Open(env *StrategyEnv) (Library, string, error) { return s.fn(env) }

// NewStrategy builds a Strategy from a function.
func NewStrategy(name string, fn func(env *StrategyEnv) (Library, string, error)) Strategy {
	return strategyFunc{name: name, fn: fn}
}

// ExplicitPathStrategy opens a library file named by configuration.
func ExplicitPathStrategy(path string) Strategy {
	return NewStrategy(StrategyExplicitPath, func(env *StrategyEnv) (Library, string, error) {
		resolved, err := validateLibraryFile(path)
		if err != nil {
			return nil, path, &BindingNotFoundError{Name: path, Err: err}
		}
		if err := env.Paths.Append(filepath.Dir(resolved)); err != nil {
			return nil, resolved, err
		}
		return openResolved(env, resolved)
	})
}

// PluginDirectoryStrategy opens <root>/libs/<platform>/<library> from an installed plugin.
func PluginDirectoryStrategy(root string) Strategy {
	return NewStrategy(StrategyPluginDirectory, func(env *StrategyEnv) (Library, string, error) {
		if strings.TrimSpace(root) == "" {
			return nil, "", errors.New("plugin root is not configured")
		}
		dir := filepath.Join(root, "libs", env.Platform.Directory)
		candidate := filepath.Join(dir, env.Platform.LibraryFileName)
		if _, err := validateLibraryFile(candidate); err != nil {
			return nil, candidate, &BindingNotFoundError{Name: env.Platform.LibraryFileName, Searched: []string{dir}, Err: err}
		}
		return openFromDir(env, dir)
	})
}

// ResourceExtractionStrategy extracts the bundled library and opens the copy.
func ResourceExtractionStrategy(disabled bool) Strategy {
	return NewStrategy(StrategyResourceExtraction, func(env *StrategyEnv) (Library, string, error) {
		if disabled {
			return nil, "", ErrExtractionDisabled
		}
		if env.Extractor == nil {
			return nil, "", errors.New("no extractor configured")
		}
		artifact, err := env.Extractor.Extract(env.Platform.ResourceKey(), env.Platform)
		if err != nil {
			return nil, "", err
		}
		return openFromDir(env, artifact.Dir())
	})
}

// DevelopmentPathStrategy tries the build output directories of a source checkout.
func DevelopmentPathStrategy(root string) Strategy {
	return NewStrategy(StrategyDevelopmentPath, func(env *StrategyEnv) (Library, string, error) {
		var (
			searched []string
			errs     []error
		)
		for _, rel := range DevelopmentDirs(env.Platform) {
			dir := rel
			if root != "" {
				dir = filepath.Join(root, rel)
			}
			searched = append(searched, dir)
			candidate := filepath.Join(dir, env.Platform.LibraryFileName)
			if _, err := validateLibraryFile(candidate); err != nil {
				continue
			}
			lib, path, err := openFromDir(env, dir)
			if err == nil {
				return lib, path, nil
			}
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			return nil, "", errors.Join(errs...)
		}
		return nil, "", &BindingNotFoundError{Name: env.Platform.LibraryFileName, Searched: searched}
	})
}

// SystemPathStrategy hands the bare file name to the operating system loader.
func SystemPathStrategy() Strategy {
	return NewStrategy(StrategySystemPath, func(env *StrategyEnv) (Library, string, error) {
		name := env.Platform.LibraryFileName
		lib, err := env.Opener.Open(name)
		if err != nil {
			return nil, name, &BindingNotFoundError{Name: name, Err: err}
		}
		return lib, name, nil
	})
}

// DevelopmentDirs lists checkout-relative directories that may hold a locally built engine.
func DevelopmentDirs(d PlatformDescriptor) []string {
	return []string{
		filepath.Join("core", "target", "release"),
		filepath.Join("core", "target", "debug"),
		filepath.Join("..", "core", "target", "release"),
		filepath.Join("..", "core", "target", "debug"),
		filepath.Join("target", "release"),
		filepath.Join("target", "debug"),
		filepath.Join("libs", d.Directory),
		filepath.Join("build", "native", d.Directory),
	}
}

func defaultStrategies(cfg config) []Strategy {
	strategies := make([]Strategy, 0, 5)
	if cfg.libraryPath != "" {
		strategies = append(strategies, ExplicitPathStrategy(cfg.libraryPath))
	}
	return append(strategies,
		PluginDirectoryStrategy(cfg.pluginRoot),
		ResourceExtractionStrategy(cfg.disableExtraction),
		DevelopmentPathStrategy(cfg.devRoot),
		SystemPathStrategy(),
	)
}

// openFromDir configures dir on the search path and binds the library by
// file name through it.
func openFromDir(env *StrategyEnv, dir string) (Library, string, error) {
	if err := env.Paths.Append(dir); err != nil {
		return nil, "", err
	}
	path, err := env.Paths.Locate(env.Platform.LibraryFileName, dir)
	if err != nil {
		return nil, "", err
	}
	return openResolved(env, path)
}

func openResolved(env *StrategyEnv, path string) (Library, string, error) {
	lib, err := env.Opener.Open(path)
	if err != nil {
		return nil, path, &BindingNotFoundError{Name: path, Err: err}
	}
	return lib, path, nil
}

func validateLibraryFile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("library path is empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %q: %w", path, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat library file %q: %w", absPath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("library path points to a directory: %q", absPath)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("library file is empty: %q", absPath)
	}

	return absPath, nil
}
