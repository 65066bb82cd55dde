package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewPluginCmd creates the plugin command group.
func NewPluginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Manage dynamic scraper rule artifacts",
		Long: `Plugin manages dynamic scraper artifacts: YAML rule sets that teach
LeakHound to parse a new leak site without a rebuild.

Admission is all-or-nothing. An artifact whose slugs collide with a
builtin or an already-installed plugin is rejected in full, and a
rejected artifact leaves the running registry untouched. Accepted rule
sets are persisted to the plugin directory and survive restarts.

Examples:
  # Install an artifact file
  leakhound plugin install lockbit.yaml

  # List installed plugin slugs and every registered scraper
  leakhound plugin list

  # Remove an installed rule set
  leakhound plugin rm lockbit`,
	}

	cmd.AddCommand(newPluginInstallCmd())
	cmd.AddCommand(newPluginListCmd())
	cmd.AddCommand(newPluginRemoveCmd())

	return cmd
}

// newPluginInstallCmd creates the plugin install subcommand.
func newPluginInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install <artifact.yaml>",
		Short: "Validate, admit, and persist a rule artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read artifact: %w", err)
			}

			slugs, err := a.plugins.Load(data)
			if err != nil {
				return fmt.Errorf("artifact rejected: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Installed scraper(s): %s\n", strings.Join(slugs, ", "))
			return nil
		},
	}
}

// newPluginListCmd creates the plugin list subcommand.
func newPluginListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed plugins and all registered scrapers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			persisted, err := a.plugins.Persisted()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(persisted) == 0 {
				fmt.Fprintln(out, "No plugin artifacts installed.")
			} else {
				fmt.Fprintf(out, "Installed plugins: %s\n", strings.Join(persisted, ", "))
			}
			fmt.Fprintf(out, "Registered scrapers: %s\n", strings.Join(a.registry.List(), ", "))
			return nil
		},
	}
}

// newPluginRemoveCmd creates the plugin rm subcommand.
func newPluginRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <slug>",
		Short: "Remove an installed rule set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.plugins.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plugin %q removed\n", args[0])
			return nil
		},
	}
}
