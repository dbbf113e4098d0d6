package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is the host version plugins compare their
// minimum_host_version against. Overridden at release time via
// -ldflags.
var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the quill version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "quill %s\n", version)
	},
}
