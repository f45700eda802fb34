package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/contextune/nativeload/native"
)

func newPlatformCommand() *cobra.Command {
	var osName, archName string
	cmd := &cobra.Command{
		Use:   "platform",
		Short: "Print the platform descriptor the loader resolves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := native.ResolvePlatform(osName, archName)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDescriptor(d))
			return nil
		},
	}
	cmd.Flags().StringVar(&osName, "os", runtime.GOOS, "operating system identifier")
	cmd.Flags().StringVar(&archName, "arch", runtime.GOARCH, "architecture identifier")
	return cmd
}
