package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/contextune/nativeload/engine"
	"github.com/contextune/nativeload/internal/teardown"
	"github.com/contextune/nativeload/native"
)

type probeOptions struct {
	libraryPath  string
	pluginRoot   string
	tempDir      string
	devRoot      string
	bundleDir    string
	noExtract    bool
	createEngine bool
}

func newProbeCommand() *cobra.Command {
	opts := &probeOptions{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Run the loader and print every attempt",
		Long: `probe runs the strategy sequence exactly as the host does at startup and
prints the attempt log. It exits non-zero when no strategy binds the engine.

Example:
  nativeprobe probe --plugin-root /opt/contextune
  nativeprobe probe --lib-path ./core/target/release/libcontextune_core.so --engine`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.libraryPath, "lib-path", "", "explicit engine library file tried first")
	flags.StringVar(&opts.pluginRoot, "plugin-root", "", "installed plugin root containing libs/<platform>/")
	flags.StringVar(&opts.tempDir, "temp-dir", "", "root directory for extracted libraries")
	flags.StringVar(&opts.devRoot, "dev-root", "", "source checkout used by the development strategy")
	flags.StringVar(&opts.bundleDir, "bundle", "", "directory holding native/<platform>/ resources (default: executable directory)")
	flags.BoolVar(&opts.noExtract, "no-extract", false, "disable the resource-extraction strategy")
	flags.BoolVar(&opts.createEngine, "engine", false, "create and destroy an engine instance after binding")
	return cmd
}

func (o *probeOptions) loaderOptions(registry *teardown.Registry) ([]native.Option, error) {
	opts := []native.Option{native.WithShutdown(registry)}
	if o.libraryPath != "" {
		opts = append(opts, native.WithLibraryPath(o.libraryPath))
	}
	if o.pluginRoot != "" {
		opts = append(opts, native.WithPluginRoot(o.pluginRoot))
	}
	if o.tempDir != "" {
		opts = append(opts, native.WithTempDir(o.tempDir))
	}
	if o.devRoot != "" {
		opts = append(opts, native.WithDevRoot(o.devRoot))
	}
	if o.noExtract {
		opts = append(opts, native.WithDisableExtraction(true))
	}

	bundleDir := o.bundleDir
	if bundleDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate executable: %w", err)
		}
		bundleDir = filepath.Dir(exe)
	}
	opts = append(opts, native.WithBundle(os.DirFS(bundleDir)))
	return opts, nil
}

func runProbe(cmd *cobra.Command, opts *probeOptions) (err error) {
	registry := teardown.New()
	defer func() {
		if teardownErr := registry.Run(); teardownErr != nil {
			err = errors.Join(err, fmt.Errorf("teardown: %w", teardownErr))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigCh)
		close(sigCh)
	}()
	go func() {
		if _, ok := <-sigCh; ok {
			_ = registry.Run()
			os.Exit(130)
		}
	}()

	loaderOpts, err := opts.loaderOptions(registry)
	if err != nil {
		return err
	}
	loader, err := native.New(loaderOpts...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if d, platformErr := loader.Platform(); platformErr == nil {
		fmt.Fprintln(out, renderDescriptor(d))
		fmt.Fprintln(out)
	}

	binding, loadErr := loader.EnsureLoaded()
	fmt.Fprintln(out, renderAttempts(loader.Attempts()))

	var aggregate *native.AggregateLoadFailure
	if errors.As(loadErr, &aggregate) {
		fmt.Fprintln(out, renderFailure(aggregate.Summary()))
		return errors.New("no strategy bound the native engine")
	}
	if loadErr != nil {
		return loadErr
	}
	registry.RegisterCloser("native binding", binding)

	fmt.Fprintln(out, renderSuccess(fmt.Sprintf("bound %s via %s (%d symbols)", binding.Path(), binding.Strategy(), len(binding.Symbols()))))
	if paths := loader.SearchPath().Paths(); len(paths) > 0 {
		fmt.Fprintln(out, renderSearchPath(paths))
	}

	if opts.createEngine {
		eng, err := engine.New(binding)
		if err != nil {
			return fmt.Errorf("engine bound but could not be created: %w", err)
		}
		registry.RegisterCloser("audio engine", eng)
		fmt.Fprintln(out, renderSuccess("engine instance created"))
	}
	return nil
}
