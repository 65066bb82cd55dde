package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leakhound/leakhound/internal/model"
	"github.com/leakhound/leakhound/internal/queue"
	"github.com/leakhound/leakhound/internal/sched"
)

// defaultBacklog is the job queue's buffered backlog. Submissions past
// a full backlog are dropped and picked up on the target's next tick.
const defaultBacklog = 64

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scraping pipeline as a long-lived daemon",
		Long: `Serve runs the full pipeline: every enabled target is scraped on its
own cadence by a pool of workers, new records are matched against
keyword watches, and alerts are raised as they happen.

The schedule recomputes itself whenever a target is added, changed, or
removed, and self-heals on a fixed interval. Persisted scraper plugins
are reloaded on the same interval, so dropping a new artifact into the
plugin directory takes effect without a restart.

Examples:
  # Run the daemon with the default embedded Tor
  leakhound serve

  # Run against an external Tor proxy with more workers
  leakhound serve --external-tor 127.0.0.1:9150 --workers 8`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addTorFlags(cmd)

	cmd.Flags().IntP("workers", "w", 0,
		"Number of concurrent scrape jobs")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
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
	if workers, err := cmd.Flags().GetInt("workers"); err != nil {
		return err
	} else if workers > 0 {
		a.cfg.Workers = workers
	}

	stack, cleanup, err := a.buildRunner(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	q := queue.New(a.cfg.Workers, defaultBacklog, a.logger)
	defer func() {
		if err := q.Close(); err != nil {
			a.logger.Error("queue shutdown failed", "error", err)
		}
	}()

	// The scheduler hands targets to the queue; a full backlog drops the
	// tick rather than blocking the cron goroutine.
	submit := func(target model.Target) {
		id := target.ID
		handle, err := q.Enqueue(target.Name, func(jobCtx context.Context) (int, error) {
			return stack.runner.RunTarget(jobCtx, id, nil)
		})
		if err != nil {
			a.logger.Warn("job submission dropped", "target", target.Name, "error", err)
			return
		}
		a.logger.Debug("job submitted", "target", target.Name, "handle", handle.String())
	}

	scheduler := sched.New(a.store, submit,
		sched.WithRefreshInterval(a.cfg.ScheduleRefresh),
		sched.WithPluginReload(a.plugins.Reload),
		sched.WithLogger(a.logger),
	)

	// Target edits from any path recompute the job table immediately.
	a.store.SetTargetChangeHook(func() {
		if err := scheduler.Recompute(ctx); err != nil {
			a.logger.Error("schedule recompute failed", "error", err)
		}
	})

	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer scheduler.Stop()

	fmt.Printf("LeakHound serving: %d worker(s), %d scheduled target(s)\n",
		a.cfg.Workers, len(scheduler.ScheduledTargetIDs()))

	<-ctx.Done()
	a.logger.Info("received shutdown signal, stopping...")
	return nil
}
