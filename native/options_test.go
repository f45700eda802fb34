package native

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveConfigRespectsEnvOverrides(t *testing.T) {
	clearLoaderEnv(t)
	t.Setenv(EnvLibraryPath, " ./libcontextune_core.so ")
	t.Setenv(EnvPluginRoot, " /opt/contextune ")
	t.Setenv(EnvTempDir, " /tmp/ctx ")
	t.Setenv(EnvDevRoot, " /src/contextune ")
	t.Setenv(EnvDisableExtraction, "yes")

	cfg, err := resolveConfig()
	if err != nil {
		t.Fatalf("unexpected resolveConfig error: %v", err)
	}
	if cfg.libraryPath != "./libcontextune_core.so" {
		t.Fatalf("unexpected library path: got %q", cfg.libraryPath)
	}
	if cfg.pluginRoot != "/opt/contextune" {
		t.Fatalf("unexpected plugin root: got %q", cfg.pluginRoot)
	}
	if cfg.tempDir != "/tmp/ctx" {
		t.Fatalf("unexpected temp dir: got %q", cfg.tempDir)
	}
	if cfg.devRoot != "/src/contextune" {
		t.Fatalf("unexpected dev root: got %q", cfg.devRoot)
	}
	if !cfg.disableExtraction {
		t.Fatalf("expected extraction to be disabled")
	}
}

func TestResolveConfigOptionsOverrideEnv(t *testing.T) {
	clearLoaderEnv(t)
	t.Setenv(EnvPluginRoot, "/from/env")

	cfg, err := resolveConfig(WithPluginRoot("/from/option"), WithLibraryBaseName("engine"))
	if err != nil {
		t.Fatalf("unexpected resolveConfig error: %v", err)
	}
	if cfg.pluginRoot != "/from/option" {
		t.Fatalf("option should win over env, got %q", cfg.pluginRoot)
	}
	if cfg.baseName != "engine" {
		t.Fatalf("unexpected base name: got %q", cfg.baseName)
	}
}

func TestResolveConfigDefaults(t *testing.T) {
	clearLoaderEnv(t)

	cfg, err := resolveConfig()
	if err != nil {
		t.Fatalf("unexpected resolveConfig error: %v", err)
	}
	if cfg.tempDir != DefaultExtractionRoot() {
		t.Fatalf("unexpected default temp dir: got %q", cfg.tempDir)
	}
	wd, _ := os.Getwd()
	if cfg.devRoot != wd {
		t.Fatalf("unexpected default dev root: got %q, want %q", cfg.devRoot, wd)
	}
	if cfg.pluginRoot == "" {
		t.Fatalf("expected a default plugin root derived from the executable")
	}
	if len(cfg.requiredSymbols) != len(EngineSymbols) {
		t.Fatalf("expected engine symbols to be required by default")
	}
	if cfg.logger == nil || cfg.opener == nil {
		t.Fatalf("expected logger and opener defaults")
	}
}

func TestOptionsRejectEmptyValues(t *testing.T) {
	for name, opt := range map[string]Option{
		"library path":    WithLibraryPath(" "),
		"plugin root":     WithPluginRoot(""),
		"temp dir":        WithTempDir("\t"),
		"dev root":        WithDevRoot(""),
		"base name":       WithLibraryBaseName(""),
		"base name slash": WithLibraryBaseName("lib/engine"),
		"platform":        WithPlatform("", "amd64"),
		"bundle":          WithBundle(nil),
		"search path":     WithSearchPath(),
		"symbols":         WithRequiredSymbols("audio_engine_play", " "),
		"strategies":      WithStrategies(),
		"nil strategy":    WithStrategies(nil),
		"opener":          WithOpener(nil),
		"extractor":       WithExtractor(nil),
		"shutdown":        WithShutdown(nil),
		"logger":          WithLogger(nil),
	} {
		t.Run(name, func(t *testing.T) {
			clearLoaderEnv(t)
			if _, err := New(opt); err == nil {
				t.Fatalf("expected %s option to be rejected", name)
			}
		})
	}
}

func TestParseBoolEnv(t *testing.T) {
	t.Setenv(EnvDisableExtraction, "")
	parsed, err := parseBoolEnv(EnvDisableExtraction)
	if err != nil || parsed {
		t.Fatalf("expected default false with no error, got parsed=%v err=%v", parsed, err)
	}

	tests := []struct {
		value     string
		want      bool
		expectErr bool
	}{
		{value: "true", want: true},
		{value: "FALSE", want: false},
		{value: "1", want: true},
		{value: "0", want: false},
		{value: "yes", want: true},
		{value: "No", want: false},
		{value: "on", want: true},
		{value: "off", want: false},
		{value: "sometimes", expectErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv(EnvDisableExtraction, tc.value)
			got, err := parseBoolEnv(EnvDisableExtraction)
			if tc.expectErr {
				if err == nil {
					t.Fatalf("expected parse error")
				}
				if !strings.Contains(err.Error(), EnvDisableExtraction) {
					t.Fatalf("expected variable name in error, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected parsed value: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestValidateLibraryFile(t *testing.T) {
	dir := t.TempDir()

	if _, err := validateLibraryFile(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := validateLibraryFile(dir); err == nil || !strings.Contains(err.Error(), "directory") {
		t.Fatalf("expected directory error, got %v", err)
	}

	empty := filepath.Join(dir, "empty.so")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("failed to write empty file: %v", err)
	}
	if _, err := validateLibraryFile(empty); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty file error, got %v", err)
	}

	lib := writeLibrary(t, dir, "libcontextune_core.so")
	got, err := validateLibraryFile(lib)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != lib {
		t.Fatalf("unexpected resolved path: got %q, want %q", got, lib)
	}
}
