// Package main provides the entry point for the LeakHound CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for LeakHound.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leakhound",
		Short: "Leak site monitoring and alerting pipeline",
		Long: `LeakHound monitors leak-publication sites on the clearnet and the Tor
network. It scrapes each registered target on its own cadence, stores
deduplicated leak records, and raises alerts when a record matches a
standing keyword watch.

By default, LeakHound starts an embedded Tor daemon automatically when a
command needs to fetch. Use --external-tor to use an existing Tor proxy
instead.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: leakhound.yml in current or XDG config directory)")
	cmd.PersistentFlags().String("data-dir", "",
		"Directory for the database and accepted plugin artifacts (default: XDG data directory)")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewTargetCmd())
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewPluginCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
