// Package alert implements keyword watching over the leak corpus: the
// matcher turns newly stored leaks into deduplicated alerts, creating
// a watch back-scans the existing corpus, and ad-hoc searches are
// gated by a per-user quota.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"github.com/leakhound/leakhound/internal/model"
)

// ErrQuotaExceeded is returned by Search once a user's allowance is
// spent.
var ErrQuotaExceeded = errors.New("alert: search quota exceeded")

// Storage is the slice of the store the matcher needs.
type Storage interface {
	ListWatches(ctx context.Context) ([]model.Watch, error)
	CreateWatch(ctx context.Context, userID int64, keyword string) (*model.Watch, error)
	GetOrCreateAlert(ctx context.Context, userID, watchID, leakID int64) (*model.Alert, bool, error)
	ListLeaks(ctx context.Context) ([]model.LeakRecord, error)
	SearchLeaks(ctx context.Context, query string) ([]model.LeakRecord, error)
	ConsumeSearchToken(ctx context.Context, userID int64) (bool, error)
}

// Notifier delivers a newly created alert to its user. Delivery
// mechanics (mail, webhooks) live behind this interface.
type Notifier interface {
	Notify(ctx context.Context, watch model.Watch, leak model.LeakRecord) error
}

// Matcher is the keyword matching engine.
type Matcher struct {
	store    Storage
	notifier Notifier
	logger   *slog.Logger
	fold     cases.Caser
}

// NewMatcher creates a matcher. notifier may be nil to suppress
// delivery entirely.
func NewMatcher(store Storage, notifier Notifier, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		store:    store,
		notifier: notifier,
		logger:   logger,
		fold:     cases.Fold(),
	}
}

// matchFields are the leak fields scanned for keywords.
func matchFields(leak *model.LeakRecord) []string {
	return []string{leak.Company, leak.Information, leak.Comment}
}

// matches reports whether the keyword occurs in any match field,
// compared under Unicode case folding so "Straße" matches "STRASSE".
func (m *Matcher) matches(keyword string, leak *model.LeakRecord) bool {
	folded := m.fold.String(keyword)
	if folded == "" {
		return false
	}
	for _, field := range matchFields(leak) {
		if strings.Contains(m.fold.String(field), folded) {
			return true
		}
	}
	return false
}

// OnLeak scans every watch against one newly stored leak and
// materializes an alert per match. It is wired as the store's
// post-insert hook, so it only ever sees genuinely new records.
//
// The user is notified only when the alert was newly created; the
// UNIQUE constraint underneath makes concurrent triggers converge on
// exactly one notification. Notification failures are logged and never
// propagated: the alert row is the durable record, delivery is best
// effort.
func (m *Matcher) OnLeak(ctx context.Context, leak model.LeakRecord) {
	watches, err := m.store.ListWatches(ctx)
	if err != nil {
		m.logger.Error("failed to list watches for matching",
			slog.String("error", err.Error()))
		return
	}

	for _, watch := range watches {
		if !m.matches(watch.Keyword, &leak) {
			continue
		}

		_, created, err := m.store.GetOrCreateAlert(ctx, watch.UserID, watch.ID, leak.ID)
		if err != nil {
			m.logger.Error("failed to materialize alert",
				slog.Int64("watch_id", watch.ID),
				slog.Int64("leak_id", leak.ID),
				slog.String("error", err.Error()))
			continue
		}
		if !created {
			continue
		}

		m.logger.Info("alert created",
			slog.Int64("user_id", watch.UserID),
			slog.String("keyword", watch.Keyword),
			slog.String("company", leak.Company))

		m.notify(ctx, watch, leak)
	}
}

// notify delivers one alert, logging failures instead of returning
// them.
func (m *Matcher) notify(ctx context.Context, watch model.Watch, leak model.LeakRecord) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, watch, leak); err != nil {
		m.logger.Warn("alert notification failed",
			slog.Int64("user_id", watch.UserID),
			slog.String("error", err.Error()))
	}
}

// CreateWatch registers a keyword subscription and back-scans the
// existing corpus, applying the same create-or-get and notify-if-new
// path a live match takes. It returns the watch and the number of
// matches found.
//
// Duplicates are rejected before any scanning happens.
func (m *Matcher) CreateWatch(ctx context.Context, userID int64, keyword string) (*model.Watch, int, error) {
	watch, err := m.store.CreateWatch(ctx, userID, keyword)
	if err != nil {
		return nil, 0, err
	}

	leaks, err := m.store.ListLeaks(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan corpus for new watch: %w", err)
	}

	count := 0
	for i := range leaks {
		if !m.matches(keyword, &leaks[i]) {
			continue
		}
		_, created, err := m.store.GetOrCreateAlert(ctx, userID, watch.ID, leaks[i].ID)
		if err != nil {
			m.logger.Error("failed to materialize historical alert",
				slog.Int64("watch_id", watch.ID),
				slog.Int64("leak_id", leaks[i].ID),
				slog.String("error", err.Error()))
			continue
		}
		count++
		if created {
			m.notify(ctx, *watch, leaks[i])
		}
	}
	return watch, count, nil
}

// Search runs a quota-gated substring search over the corpus. Each
// call spends one unit of the user's allowance, including calls that
// return nothing.
func (m *Matcher) Search(ctx context.Context, userID int64, query string) ([]model.LeakRecord, error) {
	ok, err := m.store.ConsumeSearchToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %d", ErrQuotaExceeded, userID)
	}
	return m.store.SearchLeaks(ctx, query)
}
