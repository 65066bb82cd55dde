package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leakhound/leakhound/internal/model"
)

// NewTargetCmd creates the target command group.
func NewTargetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "target",
		Short: "Inspect and manage monitored targets",
		Long: `Target lists and manages the monitored leak sources. Targets are
normally declared in the configuration file and seeded on startup;
these subcommands cover day-to-day operations on the stored table.

Examples:
  # List all targets with their record counts
  leakhound target list

  # Pause a noisy target without deleting its records
  leakhound target disable ransomhouse

  # Resume it later
  leakhound target enable ransomhouse

  # Remove a target; its harvested records are kept
  leakhound target rm ransomhouse`,
	}

	cmd.AddCommand(newTargetListCmd())
	cmd.AddCommand(newTargetEnableCmd(true))
	cmd.AddCommand(newTargetEnableCmd(false))
	cmd.AddCommand(newTargetRemoveCmd())

	return cmd
}

// newTargetListCmd creates the target list subcommand.
func newTargetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all monitored targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			targets, err := a.store.ListTargets(ctx)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No targets registered.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tKIND\tSCRAPER\tENABLED\tEVERY\tRECORDS\tURL")
			for _, t := range targets {
				leaks, err := a.store.ListLeaksByTarget(ctx, t.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%dm\t%d\t%s\n",
					t.ID, t.Name, t.Kind, t.Scraper, t.Enabled,
					t.FrequencyMinutes, len(leaks), t.URL)
			}
			return w.Flush()
		},
	}
}

// newTargetEnableCmd creates the enable or disable subcommand.
func newTargetEnableCmd(enable bool) *cobra.Command {
	use, short := "enable <name>", "Enable a target for scheduling"
	if !enable {
		use, short = "disable <name>", "Disable a target without deleting it"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			target, err := resolveTarget(cmd, a, args[0])
			if err != nil {
				return err
			}
			if err := a.store.SetTargetEnabled(ctx, target.ID, enable); err != nil {
				return err
			}

			state := "enabled"
			if !enable {
				state = "disabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Target %q %s\n", target.Name, state)
			return nil
		},
	}
}

// newTargetRemoveCmd creates the rm subcommand.
func newTargetRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a target (harvested records are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			target, err := resolveTarget(cmd, a, args[0])
			if err != nil {
				return err
			}
			if err := a.store.DeleteTarget(ctx, target.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Target %q removed; its records remain stored\n", target.Name)
			return nil
		},
	}
}

// resolveTarget looks a target up by name, or by ID when the argument
// is numeric and no target carries it as a name.
func resolveTarget(cmd *cobra.Command, a *app, arg string) (*model.Target, error) {
	ctx := cmd.Context()

	t, err := a.store.GetTargetByName(ctx, arg)
	if err != nil {
		return nil, err
	}
	if t == nil {
		if id, convErr := strconv.ParseInt(arg, 10, 64); convErr == nil {
			t, err = a.store.GetTarget(ctx, id)
			if err != nil {
				return nil, err
			}
		}
	}
	if t == nil {
		return nil, fmt.Errorf("unknown target %q", arg)
	}
	return t, nil
}
