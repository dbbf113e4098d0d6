package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "The Quill editor's plugin host",
	Long: `Quill hosts sandboxed WASM plugins: untrusted modules that extend the
editor without being able to corrupt or escape it.

Plugins are discovered under the configured plugin root, checked
against the operator's capability policy before any plugin code runs,
and executed inside isolated memory arenas.`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: quill.toml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(pluginsCmd)
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
}
