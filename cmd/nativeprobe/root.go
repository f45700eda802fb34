package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/contextune/nativeload/native"
)

type rootOptions struct {
	verbose bool
}

func newRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "nativeprobe",
		Short: "Diagnose native audio engine discovery",
		Long: `nativeprobe runs the native engine loader outside the host application and
prints every location it tried, so a failed binding can be diagnosed from a
single command.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.verbose {
				return nil
			}
			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			native.SetLogger(logger)
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log loader activity to stderr")

	rootCmd.AddCommand(newPlatformCommand())
	rootCmd.AddCommand(newProbeCommand())
	rootCmd.AddCommand(newPurgeCommand())

	return rootCmd
}
