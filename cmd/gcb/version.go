package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanderheijden86/gcbrowse/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of gcb",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gcb version %s\n", version.Version)
		},
	}
}
