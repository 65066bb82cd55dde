package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leakhound/leakhound/internal/model"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [target-name...]",
		Short: "Scrape targets once and store the harvested records",
		Long: `Run scrapes the named targets once, outside the scheduler, and stores
any new leak records. Without arguments it runs every enabled target.

Each (target, URL) pair is fetched through the retry loop: the Tor
identity is renewed before every retry, and targets that need browser
rendering fall back to a headless Chrome fetch when plain attempts are
exhausted.

Examples:
  # Run every enabled target once
  leakhound run

  # Run two specific targets
  leakhound run ransomhouse playnews

  # Force proxying and user-agent rotation for this invocation only
  leakhound run --use-proxies --rotate-user-agent ransomhouse

  # Use an external Tor proxy instead of the embedded daemon
  leakhound run --external-tor 127.0.0.1:9150 ransomhouse`,
		Args: cobra.ArbitraryArgs,
		RunE: runRunCmd,
	}

	addTorFlags(cmd)

	cmd.Flags().Bool("use-proxies", false,
		"Override the targets' bypass policy to force Tor proxying for this run")
	cmd.Flags().Bool("rotate-user-agent", false,
		"Override the targets' bypass policy to rotate the user agent for this run")

	return cmd
}

// addTorFlags registers the Tor connection flags shared by run and serve.
func addTorFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("external-tor", "e", "",
		"Use external Tor proxy at specified address (e.g., 127.0.0.1:9150)")
	cmd.Flags().String("tor-control", "",
		"Tor control port address for identity renewal (e.g., 127.0.0.1:9051)")
	cmd.Flags().DurationP("tor-timeout", "T", 0,
		"Timeout for embedded Tor startup")
	cmd.Flags().DurationP("timeout", "t", 0,
		"Timeout for each fetch or rendering attempt")
}

// applyTorFlags overlays the Tor connection flags onto the app config.
func applyTorFlags(cmd *cobra.Command, a *app) error {
	externalTor, err := cmd.Flags().GetString("external-tor")
	if err != nil {
		return err
	}
	if externalTor != "" {
		a.cfg.UseExternalTor = true
		a.cfg.TorProxyAddress = externalTor
	}

	control, err := cmd.Flags().GetString("tor-control")
	if err != nil {
		return err
	}
	if control != "" {
		a.cfg.TorControlAddress = control
	}

	torTimeout, err := cmd.Flags().GetDuration("tor-timeout")
	if err != nil {
		return err
	}
	if torTimeout > 0 {
		a.cfg.TorStartupTimeout = torTimeout
	}

	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	if timeout > 0 {
		a.cfg.FetchTimeout = timeout
	}
	return nil
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := applyTorFlags(cmd, a); err != nil {
		return err
	}

	override, err := buildOverride(cmd)
	if err != nil {
		return err
	}

	stack, cleanup, err := a.buildRunner(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return runOnce(ctx, a, stack, args, override)
}

// buildOverride assembles the per-invocation bypass override, if any
// of the override flags are set.
func buildOverride(cmd *cobra.Command) (*model.RunOverride, error) {
	useProxies, err := cmd.Flags().GetBool("use-proxies")
	if err != nil {
		return nil, err
	}
	rotate, err := cmd.Flags().GetBool("rotate-user-agent")
	if err != nil {
		return nil, err
	}
	if !useProxies && !rotate {
		return nil, nil
	}
	return &model.RunOverride{
		Bypass: &model.BypassPolicy{
			UseProxies:      useProxies,
			RotateUserAgent: rotate,
		},
	}, nil
}

// runOnce resolves the named targets and runs each of them.
func runOnce(ctx context.Context, a *app, stack *fetchStack, names []string, override *model.RunOverride) error {
	if len(names) == 0 {
		start := time.Now()
		inserted, err := stack.runner.RunAll(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Run completed in %s: %d new record(s)\n",
			time.Since(start).Round(time.Millisecond), inserted)
		return nil
	}

	for _, name := range names {
		target, err := a.store.GetTargetByName(ctx, name)
		if err != nil {
			return err
		}
		if target == nil {
			return fmt.Errorf("unknown target %q", name)
		}

		fmt.Printf("Scraping %s...\n", name)
		start := time.Now()

		inserted, err := stack.runner.RunTarget(ctx, target.ID, override)
		if err != nil {
			return fmt.Errorf("run failed for %q: %w", name, err)
		}
		fmt.Printf("Completed %s in %s: %d new record(s)\n\n",
			name, time.Since(start).Round(time.Millisecond), inserted)
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
