package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leakhound/leakhound/internal/store"
)

// NewWatchCmd creates the watch command group.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage keyword watches and review alerts",
		Long: `Watch manages standing keyword subscriptions. Every new leak record is
matched against all watches as it is stored; a match raises an alert
exactly once per (watch, record) pair.

Adding a watch also scans the existing corpus, so records harvested
before the watch existed show up as alerts immediately, and each
freshly created alert is delivered like a live match.

Examples:
  # Watch for a company name
  leakhound watch add --user 1 "acme corp"

  # List watches and pending alerts
  leakhound watch list --user 1
  leakhound watch alerts --user 1

  # Acknowledge an alert and drop a watch
  leakhound watch ack 42
  leakhound watch rm 7`,
	}

	cmd.PersistentFlags().Int64P("user", "u", 1, "User the watch belongs to")

	cmd.AddCommand(newWatchAddCmd())
	cmd.AddCommand(newWatchListCmd())
	cmd.AddCommand(newWatchRemoveCmd())
	cmd.AddCommand(newWatchAlertsCmd())
	cmd.AddCommand(newWatchAckCmd())

	return cmd
}

// getUserFlag reads the user flag from the command or its parent group.
func getUserFlag(cmd *cobra.Command) (int64, error) {
	return cmd.Flags().GetInt64("user")
}

// newWatchAddCmd creates the watch add subcommand.
func newWatchAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <keyword>",
		Short: "Create a keyword watch and back-scan the existing corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			userID, err := getUserFlag(cmd)
			if err != nil {
				return err
			}

			watch, backfilled, err := a.matcher.CreateWatch(ctx, userID, args[0])
			if err != nil {
				if errors.Is(err, store.ErrDuplicateWatch) {
					return fmt.Errorf("watch %q already exists for user %d", args[0], userID)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Watch %d created for %q", watch.ID, watch.Keyword)
			if backfilled > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d existing record(s) matched)", backfilled)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}

// newWatchListCmd creates the watch list subcommand.
func newWatchListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List a user's keyword watches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			userID, err := getUserFlag(cmd)
			if err != nil {
				return err
			}

			watches, err := a.store.ListWatchesByUser(ctx, userID)
			if err != nil {
				return err
			}
			if len(watches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No watches registered.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKEYWORD\tCREATED")
			for _, watch := range watches {
				fmt.Fprintf(w, "%d\t%s\t%s\n",
					watch.ID, watch.Keyword, watch.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

// newWatchRemoveCmd creates the watch rm subcommand.
func newWatchRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <watch-id>",
		Short: "Delete a keyword watch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid watch id %q", args[0])
			}
			if err := a.store.DeleteWatch(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watch %d removed\n", id)
			return nil
		},
	}
}

// newWatchAlertsCmd creates the watch alerts subcommand.
func newWatchAlertsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List a user's alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			userID, err := getUserFlag(cmd)
			if err != nil {
				return err
			}

			alerts, err := a.store.ListAlerts(ctx, userID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWATCH\tCOMPANY\tSOURCE\tACKED\tCREATED")
			shown := 0
			for _, al := range alerts {
				if al.Acknowledged && !all {
					continue
				}
				company, source := "?", "?"
				if leak, err := a.store.GetLeak(ctx, al.LeakID); err == nil && leak != nil {
					company, source = leak.Company, leak.SourceURL
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%t\t%s\n",
					al.ID, al.WatchID, company, source, al.Acknowledged,
					al.CreatedAt.Format("2006-01-02 15:04"))
				shown++
			}
			if shown == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No alerts.")
				return nil
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include acknowledged alerts")
	return cmd
}

// newWatchAckCmd creates the watch ack subcommand.
func newWatchAckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ack <alert-id>",
		Short: "Acknowledge an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid alert id %q", args[0])
			}
			if err := a.store.AcknowledgeAlert(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Alert %d acknowledged\n", id)
			return nil
		},
	}
}
