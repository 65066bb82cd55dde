// Package scrape orchestrates runs: it resolves a target to its
// scraper plugin, fans out over the target's URLs, and records the
// outcome of every (target, URL) run as a metric and a log entry.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leakhound/leakhound/internal/fetch"
	"github.com/leakhound/leakhound/internal/model"
	"github.com/leakhound/leakhound/internal/scraper"
)

// ErrTargetNotFound is returned when a run references an unknown
// target.
var ErrTargetNotFound = errors.New("scrape: target not found")

// Storage is the slice of the store the orchestrator needs.
type Storage interface {
	GetTarget(ctx context.Context, id int64) (*model.Target, error)
	ListEnabledTargets(ctx context.Context) ([]model.Target, error)
	TargetURLs(ctx context.Context, targetID int64) ([]string, error)
	InsertLeak(ctx context.Context, record *model.LeakRecord) (bool, error)
	RecordRunMetric(ctx context.Context, metric *model.RunMetric) error
	RecordScrapeLog(ctx context.Context, entry *model.ScrapeLog) error
}

// Runner executes scrape runs against stored targets.
type Runner struct {
	store    Storage
	registry *scraper.Registry
	fetcher  scraper.Fetcher
	logger   *slog.Logger

	// retry and timeout are the pipeline defaults applied to every
	// RunConfig; targets carry no per-target retry policy.
	retry   model.RetryPolicy
	timeout time.Duration
}

// NewRunner creates an orchestrator.
func NewRunner(store Storage, registry *scraper.Registry, fetcher scraper.Fetcher, retry model.RetryPolicy, timeout time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:    store,
		registry: registry,
		fetcher:  fetcher,
		logger:   logger,
		retry:    retry,
		timeout:  timeout,
	}
}

// RunTarget scrapes every URL of one target and returns the number of
// genuinely new leak records stored.
//
// A disabled target is skipped entirely: zero records, no metrics, no
// logs. An unknown target or an unregistered scraper slug is a hard
// error, since both mean the configuration is broken. A failing URL is
// recorded as a permanent failure and does not stop the remaining
// URLs.
func (r *Runner) RunTarget(ctx context.Context, targetID int64, override *model.RunOverride) (int, error) {
	target, err := r.store.GetTarget(ctx, targetID)
	if err != nil {
		return 0, err
	}
	if target == nil {
		return 0, fmt.Errorf("%w: id %d", ErrTargetNotFound, targetID)
	}
	if !target.Enabled {
		r.logger.Info("target disabled, skipping run",
			slog.String("target", target.Name))
		return 0, nil
	}

	plugin, err := r.registry.Lookup(target.Scraper)
	if err != nil {
		return 0, fmt.Errorf("target %q references unusable scraper: %w", target.Name, err)
	}

	urls, err := r.store.TargetURLs(ctx, targetID)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, url := range urls {
		cfg := r.buildRunConfig(target, url, override)

		// Each URL gets its own attempt recorder so parallel runs over
		// the shared engine cannot contaminate each other's metrics.
		attempts := &fetch.Attempts{}
		records, runErr := plugin.Run(fetch.WithAttempts(ctx, attempts), r.fetcher, cfg)
		retries := attempts.Retries()

		if runErr != nil {
			r.logger.Warn("scrape run failed",
				slog.String("target", target.Name),
				slog.String("url", url),
				slog.String("error", runErr.Error()))
			r.record(ctx, target.ID, url, retries, false, runErr.Error())
			continue
		}

		inserted := 0
		for i := range records {
			records[i].TargetID = target.ID
			created, insErr := r.store.InsertLeak(ctx, &records[i])
			if insErr != nil {
				r.logger.Error("failed to store leak record",
					slog.String("target", target.Name),
					slog.String("company", records[i].Company),
					slog.String("error", insErr.Error()))
				continue
			}
			if created {
				inserted++
			}
		}
		total += inserted

		r.logger.Info("scrape run finished",
			slog.String("target", target.Name),
			slog.String("url", url),
			slog.Int("parsed", len(records)),
			slog.Int("inserted", inserted))
		r.record(ctx, target.ID, url, retries, true,
			fmt.Sprintf("parsed %d records, %d new", len(records), inserted))
	}

	return total, nil
}

// RunAll runs every enabled target sequentially and returns the total
// number of new records. Per-target failures are logged and do not
// stop the sweep.
func (r *Runner) RunAll(ctx context.Context) (int, error) {
	targets, err := r.store.ListEnabledTargets(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, target := range targets {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		inserted, err := r.RunTarget(ctx, target.ID, nil)
		if err != nil {
			r.logger.Warn("target run failed",
				slog.String("target", target.Name),
				slog.String("error", err.Error()))
			continue
		}
		total += inserted
	}
	return total, nil
}

// buildRunConfig merges the target's stored defaults with a
// per-invocation override. The override replaces the bypass policy or
// credentials wholesale; there is no field-level merging.
func (r *Runner) buildRunConfig(target *model.Target, url string, override *model.RunOverride) model.RunConfig {
	cfg := model.RunConfig{
		TargetID:       target.ID,
		Kind:           target.Kind,
		URL:            url,
		Retry:          r.retry,
		Timeout:        r.timeout,
		NeedsRendering: target.NeedsRendering,
	}

	if target.Bypass != nil {
		cfg.Bypass = *target.Bypass
	}
	cfg.Credentials = target.Credentials

	if override != nil {
		if override.Bypass != nil {
			cfg.Bypass = *override.Bypass
		}
		if override.Credentials != nil {
			cfg.Credentials = override.Credentials
		}
	}
	return cfg
}

// record persists the metric and log entry for one (target, URL) run.
// Bookkeeping failures are logged, never propagated: a full disk must
// not turn a successful scrape into a failed one.
func (r *Runner) record(ctx context.Context, targetID int64, url string, retries int, success bool, message string) {
	metric := &model.RunMetric{
		TargetID: targetID,
		Retries:  retries,
		PermFail: !success,
	}
	if err := r.store.RecordRunMetric(ctx, metric); err != nil {
		r.logger.Error("failed to record run metric", slog.String("error", err.Error()))
	}

	entry := &model.ScrapeLog{
		TargetID: targetID,
		URL:      url,
		Success:  success,
		Message:  message,
	}
	if err := r.store.RecordScrapeLog(ctx, entry); err != nil {
		r.logger.Error("failed to record scrape log", slog.String("error", err.Error()))
	}
}
