// Package sched keeps the cron job table in sync with the stored
// targets. Each enabled target gets one periodic entry at its own
// cadence; the whole table is recomputed from scratch on every target
// change and again on a fixed self-heal interval, so a lost change
// notification can only delay an entry, never lose it permanently.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/leakhound/leakhound/internal/model"
)

// TargetLister is the slice of the store the scheduler needs.
type TargetLister interface {
	ListEnabledTargets(ctx context.Context) ([]model.Target, error)
}

// SubmitFunc hands a due target to the job queue. Submission must not
// block: the cron entry fires inside the cron goroutine, and a hung
// run would otherwise stall every other entry.
type SubmitFunc func(target model.Target)

// Scheduler owns the cron table.
type Scheduler struct {
	store   TargetLister
	submit  SubmitFunc
	logger  *slog.Logger
	refresh time.Duration

	// reload, when set, re-imports dynamic plugin artifacts on each
	// self-heal pass so artifacts dropped into the plugin directory
	// are picked up without a restart.
	reload func() error

	cron *cron.Cron

	mu      sync.Mutex
	entries map[int64]cron.EntryID

	stop chan struct{}
	done chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRefreshInterval sets the self-heal recompute interval.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.refresh = d }
}

// WithPluginReload sets the plugin re-import hook run on each
// self-heal pass.
func WithPluginReload(reload func() error) Option {
	return func(s *Scheduler) { s.reload = reload }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// New creates a scheduler. Call Start to begin firing entries.
func New(store TargetLister, submit SubmitFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:   store,
		submit:  submit,
		logger:  slog.Default(),
		refresh: time.Minute,
		cron:    cron.New(),
		entries: make(map[int64]cron.EntryID),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start computes the initial job table, starts the cron loop, and
// begins the self-heal ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Recompute(ctx); err != nil {
		return err
	}
	s.cron.Start()

	go s.selfHeal(ctx)
	return nil
}

// Stop halts the cron loop and the self-heal ticker. Entries that are
// mid-submission finish; queued runs are the queue's concern.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
	<-s.cron.Stop().Done()
}

// Recompute rebuilds the job table from the enabled targets: every
// existing entry is dropped and one fresh entry is added per target.
//
// Design decision: full recompute instead of diffing. The table is
// tiny (one entry per target) and a rebuild is trivially idempotent,
// which makes the self-heal pass safe to run at any moment.
func (s *Scheduler) Recompute(ctx context.Context) error {
	targets, err := s.store.ListEnabledTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list targets for scheduling: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entryID := range s.entries {
		s.cron.Remove(entryID)
	}
	s.entries = make(map[int64]cron.EntryID, len(targets))

	for _, target := range targets {
		freq := target.FrequencyMinutes
		if freq <= 0 {
			freq = 60
		}
		spec := fmt.Sprintf("@every %dm", freq)

		entryID, err := s.cron.AddFunc(spec, func() {
			s.submit(target)
		})
		if err != nil {
			s.logger.Error("failed to schedule target",
				slog.String("target", target.Name),
				slog.String("spec", spec),
				slog.String("error", err.Error()))
			continue
		}
		s.entries[target.ID] = entryID
	}

	s.logger.Debug("schedule recomputed", slog.Int("entries", len(s.entries)))
	return nil
}

// ScheduledTargetIDs returns the IDs currently in the job table,
// sorted. Exposed for the serve command's status output.
func (s *Scheduler) ScheduledTargetIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// selfHeal periodically recomputes the table and re-imports plugin
// artifacts. Errors are logged and the ticker keeps going; a transient
// store failure must not kill the scheduler.
func (s *Scheduler) selfHeal(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.reload != nil {
				if err := s.reload(); err != nil {
					s.logger.Warn("plugin reload failed", slog.String("error", err.Error()))
				}
			}
			if err := s.Recompute(ctx); err != nil {
				s.logger.Warn("schedule recompute failed", slog.String("error", err.Error()))
			}
		}
	}
}
