package native

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Environment variables read when a Loader is created. Options override them.
const (
	EnvLibraryPath       = "CONTEXTUNE_NATIVE_LIB_PATH"
	EnvPluginRoot        = "CONTEXTUNE_PLUGIN_ROOT"
	EnvTempDir           = "CONTEXTUNE_NATIVE_TEMP_DIR"
	EnvDevRoot           = "CONTEXTUNE_NATIVE_DEV_ROOT"
	EnvDisableExtraction = "CONTEXTUNE_NATIVE_DISABLE_EXTRACTION"
)

// Option configures a Loader.
type Option func(*config) error

type config struct {
	libraryPath       string
	pluginRoot        string
	tempDir           string
	devRoot           string
	disableExtraction bool
	baseName          string
	goos              string
	goarch            string
	bundle            fs.FS
	searchDirs        []string
	requiredSymbols   []string
	strategies        []Strategy
	opener            Opener
	extractor         *Extractor
	shutdown          ShutdownRegistrar
	logger            *zap.Logger
}

// WithLibraryPath forces an explicit library file to be tried before every other strategy.
func WithLibraryPath(path string) Option {
	return func(cfg *config) error {
		path = strings.TrimSpace(path)
		if path == "" {
			return fmt.Errorf("library path cannot be empty")
		}
		cfg.libraryPath = path
		return nil
	}
}

// WithPluginRoot sets the installed plugin root containing libs/<platform>/.
func WithPluginRoot(dir string) Option {
	return func(cfg *config) error {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			return fmt.Errorf("plugin root cannot be empty")
		}
		cfg.pluginRoot = dir
		return nil
	}
}

// WithTempDir sets the root directory bundled libraries are extracted under.
func WithTempDir(dir string) Option {
	return func(cfg *config) error {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			return fmt.Errorf("extraction directory cannot be empty")
		}
		cfg.tempDir = dir
		return nil
	}
}

// WithDevRoot sets the checkout directory development paths are resolved against.
func WithDevRoot(dir string) Option {
	return func(cfg *config) error {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			return fmt.Errorf("development root cannot be empty")
		}
		cfg.devRoot = dir
		return nil
	}
}

// WithDisableExtraction turns the resource-extraction strategy into a recorded failure.
func WithDisableExtraction(disable bool) Option {
	return func(cfg *config) error {
		cfg.disableExtraction = disable
		return nil
	}
}

// WithLibraryBaseName overrides the engine library name (without prefix or extension).
func WithLibraryBaseName(name string) Option {
	return func(cfg *config) error {
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("library base name cannot be empty")
		}
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("library base name must not contain path separators: %q", name)
		}
		cfg.baseName = name
		return nil
	}
}

// WithPlatform resolves the platform from the given identifiers instead of the running process.
func WithPlatform(osName, archName string) Option {
	return func(cfg *config) error {
		if strings.TrimSpace(osName) == "" || strings.TrimSpace(archName) == "" {
			return fmt.Errorf("platform identifiers cannot be empty")
		}
		cfg.goos = osName
		cfg.goarch = archName
		return nil
	}
}

// WithBundle sets the application bundle the resource strategy extracts from.
func WithBundle(bundle fs.FS) Option {
	return func(cfg *config) error {
		if bundle == nil {
			return fmt.Errorf("bundle cannot be nil")
		}
		cfg.bundle = bundle
		return nil
	}
}

// WithSearchPath seeds the search path: the first directory replaces the
// configuration and the rest are appended.
func WithSearchPath(dirs ...string) Option {
	return func(cfg *config) error {
		if len(dirs) == 0 {
			return fmt.Errorf("search path needs at least one directory")
		}
		cfg.searchDirs = append([]string(nil), dirs...)
		return nil
	}
}

// WithRequiredSymbols sets the exports a library must provide to be accepted.
func WithRequiredSymbols(symbols ...string) Option {
	return func(cfg *config) error {
		for _, s := range symbols {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("required symbol name cannot be empty")
			}
		}
		cfg.requiredSymbols = append([]string(nil), symbols...)
		return nil
	}
}

// WithStrategies replaces the default strategy order.
func WithStrategies(strategies ...Strategy) Option {
	return func(cfg *config) error {
		if len(strategies) == 0 {
			return fmt.Errorf("at least one strategy is required")
		}
		for _, s := range strategies {
			if s == nil {
				return fmt.Errorf("strategy cannot be nil")
			}
		}
		cfg.strategies = append([]Strategy(nil), strategies...)
		return nil
	}
}

// WithOpener replaces the physical bind primitive.
func WithOpener(opener Opener) Option {
	return func(cfg *config) error {
		if opener == nil {
			return fmt.Errorf("opener cannot be nil")
		}
		cfg.opener = opener
		return nil
	}
}

// WithExtractor shares an existing extractor instead of creating one.
func WithExtractor(extractor *Extractor) Option {
	return func(cfg *config) error {
		if extractor == nil {
			return fmt.Errorf("extractor cannot be nil")
		}
		cfg.extractor = extractor
		return nil
	}
}

// WithShutdown registers extracted artifacts for removal with the host's
// shutdown sequence. Without a registrar, extracted libraries stay on disk at
// exit until Extractor.Cleanup or a later PurgeStale removes them.
func WithShutdown(registrar ShutdownRegistrar) Option {
	return func(cfg *config) error {
		if registrar == nil {
			return fmt.Errorf("shutdown registrar cannot be nil")
		}
		cfg.shutdown = registrar
		return nil
	}
}

// WithLogger sets the logger used by the loader and its extractor.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *config) error {
		if l == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		cfg.logger = l
		return nil
	}
}

func resolveConfig(opts ...Option) (config, error) {
	disableExtraction, err := parseBoolEnv(EnvDisableExtraction)
	if err != nil {
		return config{}, err
	}

	cfg := config{
		libraryPath:       strings.TrimSpace(os.Getenv(EnvLibraryPath)),
		pluginRoot:        strings.TrimSpace(os.Getenv(EnvPluginRoot)),
		tempDir:           strings.TrimSpace(os.Getenv(EnvTempDir)),
		devRoot:           strings.TrimSpace(os.Getenv(EnvDevRoot)),
		disableExtraction: disableExtraction,
		baseName:          DefaultLibraryBaseName,
		goos:              runtime.GOOS,
		goarch:            runtime.GOARCH,
		requiredSymbols:   EngineSymbols,
		opener:            SystemOpener,
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return config{}, err
		}
	}

	if cfg.pluginRoot == "" {
		cfg.pluginRoot = defaultPluginRoot()
	}
	if cfg.devRoot == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.devRoot = wd
		}
	}
	if cfg.tempDir == "" {
		cfg.tempDir = DefaultExtractionRoot()
	}
	if cfg.logger == nil {
		cfg.logger = Logger()
	}

	return cfg, nil
}

// defaultPluginRoot is the executable's directory, or its parent when the
// executable sits in a bin/ directory.
func defaultPluginRoot() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	dir := filepath.Dir(exe)
	if strings.EqualFold(filepath.Base(dir), "bin") {
		return filepath.Dir(dir)
	}
	return dir
}

func parseBoolEnv(name string) (bool, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return false, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err == nil {
		return parsed, nil
	}

	switch strings.ToLower(value) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value for %s: %q (expected true/false, 1/0, yes/no, on/off)", name, value)
	}
}
