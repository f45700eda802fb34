package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/contextune/nativeload/native"
)

func newPurgeCommand() *cobra.Command {
	var tempDir string
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove extraction directories left by processes that exited uncleanly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := tempDir
			if root == "" {
				root = os.Getenv(native.EnvTempDir)
			}
			if root == "" {
				root = native.DefaultExtractionRoot()
			}

			extractor := native.NewExtractor(native.ExtractorConfig{Root: root})
			removed, err := extractor.PurgeStale()
			for _, dir := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", dir)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSuccess(fmt.Sprintf("%d stale extraction directories removed from %s", len(removed), root)))
			return nil
		},
	}
	cmd.Flags().StringVar(&tempDir, "temp-dir", "", "extraction root to purge")
	return cmd
}
