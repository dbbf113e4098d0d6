package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillworks/quill/internal/domain/config"
	"github.com/quillworks/quill/internal/domain/plugin"
	"github.com/quillworks/quill/internal/domain/sandbox"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Inspect and run sandboxed plugins",
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Discover plugins under the configured root",
	RunE: func(cmd *cobra.Command, _ []string) error {
		inv, err := discoverPlugins()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(inv.Packages) == 0 && !inv.HasFailures() {
			fmt.Fprintln(out, "No plugins found.")
			return nil
		}
		for _, pkg := range inv.Packages {
			m := pkg.Manifest()
			fmt.Fprintf(out, "%s %s\t%s\t(%d commands)\n", m.ID, m.Version, m.Name, len(m.Commands))
		}
		for _, failure := range inv.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", failure.Path, failure.Err)
		}
		return nil
	},
}

var pluginsValidateCmd = &cobra.Command{
	Use:   "validate <dir>",
	Short: "Validate a plugin directory without loading it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		manifest, err := plugin.LoadManifest(dir)
		if err != nil {
			return err
		}
		if err := manifest.Validate(); err != nil {
			return err
		}
		if _, err := plugin.NewPackage(dir, manifest); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s is valid\n", manifest.ID, manifest.Version)

		caps, _ := manifest.RequestedCapabilities()
		for _, c := range caps {
			fmt.Fprintf(cmd.OutOrStdout(), "  requests %s\n", c)
		}
		return nil
	},
}

var pluginsRunCmd = &cobra.Command{
	Use:   "run <plugin-id> <command-id>",
	Short: "Execute one plugin command and print its output",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pluginID, commandID := args[0], args[1]
		ctx := cmd.Context()

		inv, err := discoverPlugins()
		if err != nil {
			return err
		}
		for _, failure := range inv.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", failure.Path, failure.Err)
		}

		engine := sandbox.NewEngine()
		defer func() { _ = engine.Close(ctx) }()

		registry := sandbox.NewRegistry(engine)
		defer func() { _ = registry.Close(ctx) }()

		if err := registry.LoadPackages(ctx, inv.Packages); err != nil {
			return err
		}

		inst, ok := registry.Plugin(pluginID)
		if !ok {
			return fmt.Errorf("plugin %q is not loaded", pluginID)
		}

		outcome, err := inst.ExecuteCommand(ctx, commandID)
		if err != nil {
			return err
		}
		for _, line := range outcome.Logs {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "status: %d\n", outcome.Status)
		return nil
	},
}

// discoverPlugins loads the host configuration and scans the plugin
// root against its capability policy.
func discoverPlugins() (*plugin.Inventory, error) {
	path := cfgFile
	if path == "" {
		path = config.DefaultFileName
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	return plugin.Discover(cfg.Plugins.Root, policy, version)
}

func init() {
	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsCmd.AddCommand(pluginsValidateCmd)
	pluginsCmd.AddCommand(pluginsRunCmd)
}
