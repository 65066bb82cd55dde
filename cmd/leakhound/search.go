package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leakhound/leakhound/internal/alert"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the stored leak corpus",
		Long: `Search runs a case-insensitive substring search over the stored leak
records. Searches are metered: each invocation consumes one token from
the user's quota whether or not it finds anything, and an exhausted
quota rejects the search.

Examples:
  # Search as the default user
  leakhound search "acme corp"

  # Search as a specific user and check the remaining quota
  leakhound search --user 7 acme
  leakhound search --quota --user 7`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSearchCmd,
	}

	cmd.Flags().Int64P("user", "u", 1, "User whose quota the search consumes")
	cmd.Flags().BoolP("quota", "q", false, "Show the remaining search quota instead of searching")

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	userID, err := cmd.Flags().GetInt64("user")
	if err != nil {
		return err
	}

	showQuota, err := cmd.Flags().GetBool("quota")
	if err != nil {
		return err
	}
	if showQuota {
		remaining, err := a.store.RemainingSearchQuota(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User %d has %d search(es) remaining\n", userID, remaining)
		return nil
	}

	if len(args) == 0 {
		return errors.New("no query provided (pass a search term or use --quota)")
	}

	results, err := a.matcher.Search(ctx, userID, args[0])
	if err != nil {
		if errors.Is(err, alert.ErrQuotaExceeded) {
			return fmt.Errorf("search quota exhausted for user %d", userID)
		}
		return err
	}

	if len(results) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No records match %q\n", args[0])
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOMPANY\tCOUNTRY\tFOUND\tSIZE\tSOURCE")
	for _, leak := range results {
		country := leak.Country
		if country == "" {
			country = "-"
		}
		size := leak.AmountOfData
		if size == "" {
			size = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			leak.ID, leak.Company, country,
			leak.FoundAt.Format("2006-01-02"), size, leak.SourceURL)
	}
	return w.Flush()
}
