package report

import (
	"context"
	"fmt"
	"time"

	"github.com/leakhound/leakhound/internal/model"
)

// Digest is a point-in-time summary of the leak corpus: every known
// target with its harvested records and run health, plus corpus-wide
// totals. It is the input to all report writers.
type Digest struct {
	// GeneratedAt is when the digest was assembled.
	GeneratedAt time.Time `json:"generated_at"`

	// TotalLeaks is the corpus-wide record count, including records
	// whose target has since been deleted.
	TotalLeaks int `json:"total_leaks"`

	// WatchCount is the number of standing keyword subscriptions.
	WatchCount int `json:"watch_count"`

	// Targets holds one entry per registered target, enabled or not.
	Targets []TargetDigest `json:"targets"`
}

// TargetDigest is one target's slice of the digest.
type TargetDigest struct {
	// Target is the registered target row.
	Target model.Target `json:"target"`

	// Leaks are the target's records, newest first.
	Leaks []model.LeakRecord `json:"leaks"`

	// RunsTotal is the number of recorded (target, URL) runs.
	RunsTotal int `json:"runs_total"`

	// RunsFailed counts runs that ended in permanent failure.
	RunsFailed int `json:"runs_failed"`

	// LastRun is the timestamp of the most recent run, if any.
	LastRun *time.Time `json:"last_run,omitempty"`
}

// HasLeaks reports whether any target contributed at least one record.
func (d *Digest) HasLeaks() bool {
	for _, t := range d.Targets {
		if len(t.Leaks) > 0 {
			return true
		}
	}
	return false
}

// FailingTargets returns the names of targets whose every recorded run
// ended in permanent failure. Targets with no runs yet are not failing.
func (d *Digest) FailingTargets() []string {
	var names []string
	for _, t := range d.Targets {
		if t.RunsTotal > 0 && t.RunsFailed == t.RunsTotal {
			names = append(names, t.Target.Name)
		}
	}
	return names
}

// Storage is the read-side of the store the digest builder consumes.
type Storage interface {
	ListTargets(ctx context.Context) ([]model.Target, error)
	ListLeaksByTarget(ctx context.Context, targetID int64) ([]model.LeakRecord, error)
	ListRunMetrics(ctx context.Context, targetID int64) ([]model.RunMetric, error)
	ListWatches(ctx context.Context) ([]model.Watch, error)
	CountLeaks(ctx context.Context) (int, error)
}

// Builder assembles a Digest from stored data.
type Builder struct {
	storage Storage
}

// NewBuilder creates a Builder backed by the given storage.
func NewBuilder(storage Storage) *Builder {
	return &Builder{storage: storage}
}

// Build queries the store and assembles a digest covering all targets.
func (b *Builder) Build(ctx context.Context) (*Digest, error) {
	targets, err := b.storage.ListTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}

	digest := &Digest{
		GeneratedAt: time.Now(),
		Targets:     make([]TargetDigest, 0, len(targets)),
	}

	for _, target := range targets {
		td, err := b.buildTarget(ctx, target)
		if err != nil {
			return nil, err
		}
		digest.Targets = append(digest.Targets, td)
	}

	if digest.TotalLeaks, err = b.storage.CountLeaks(ctx); err != nil {
		return nil, fmt.Errorf("count leaks: %w", err)
	}

	watches, err := b.storage.ListWatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list watches: %w", err)
	}
	digest.WatchCount = len(watches)

	return digest, nil
}

// buildTarget assembles one target's digest entry.
func (b *Builder) buildTarget(ctx context.Context, target model.Target) (TargetDigest, error) {
	td := TargetDigest{Target: target}

	leaks, err := b.storage.ListLeaksByTarget(ctx, target.ID)
	if err != nil {
		return td, fmt.Errorf("list leaks for %q: %w", target.Name, err)
	}
	td.Leaks = leaks

	metrics, err := b.storage.ListRunMetrics(ctx, target.ID)
	if err != nil {
		return td, fmt.Errorf("list run metrics for %q: %w", target.Name, err)
	}
	td.RunsTotal = len(metrics)
	for _, m := range metrics {
		if m.PermFail {
			td.RunsFailed++
		}
		if td.LastRun == nil || m.Timestamp.After(*td.LastRun) {
			ts := m.Timestamp
			td.LastRun = &ts
		}
	}

	return td, nil
}
