package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/leakhound/leakhound/internal/model"
)

// CreateWatch stores a new keyword subscription. A user may watch a
// keyword only once; duplicates return ErrDuplicateWatch.
func (s *Store) CreateWatch(ctx context.Context, userID int64, keyword string) (*model.Watch, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO watches (user_id, keyword) VALUES (?, ?)`, userID, keyword)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: user %d already watches %q", ErrDuplicateWatch, userID, keyword)
		}
		return nil, fmt.Errorf("failed to insert watch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read watch id: %w", err)
	}
	return &model.Watch{
		ID:        id,
		UserID:    userID,
		Keyword:   keyword,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// DeleteWatch removes a watch and, via cascade, its alerts.
func (s *Store) DeleteWatch(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM watches WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete watch: %w", err)
	}
	return nil
}

// ListWatches returns every watch in the system. The matching engine
// scans these on each new leak.
func (s *Store) ListWatches(ctx context.Context) ([]model.Watch, error) {
	return s.queryWatches(ctx,
		`SELECT id, user_id, keyword, created_at FROM watches ORDER BY id`)
}

// ListWatchesByUser returns one user's watches.
func (s *Store) ListWatchesByUser(ctx context.Context, userID int64) ([]model.Watch, error) {
	return s.queryWatches(ctx,
		`SELECT id, user_id, keyword, created_at FROM watches WHERE user_id = ? ORDER BY id`,
		userID)
}

func (s *Store) queryWatches(ctx context.Context, query string, args ...any) ([]model.Watch, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query watches: %w", err)
	}
	defer rows.Close()

	var watches []model.Watch
	for rows.Next() {
		var (
			watch     model.Watch
			createdAt string
		)
		if err := rows.Scan(&watch.ID, &watch.UserID, &watch.Keyword, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan watch: %w", err)
		}
		watch.CreatedAt = parseTimestamp(createdAt)
		watches = append(watches, watch)
	}
	return watches, rows.Err()
}

// GetOrCreateAlert materializes a watch-leak match exactly once.
// (user, watch, leak) is unique; under concurrent matching both
// callers see the same alert and exactly one observes created=true.
func (s *Store) GetOrCreateAlert(ctx context.Context, userID, watchID, leakID int64) (*model.Alert, bool, error) {
	result, err := s.db.ExecContext(ctx, `
	INSERT INTO alerts (user_id, watch_id, leak_id)
	VALUES (?, ?, ?)
	ON CONFLICT DO NOTHING`,
		userID, watchID, leakID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert alert: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read insert result: %w", err)
	}
	created := affected > 0

	row := s.db.QueryRowContext(ctx, `
	SELECT id, user_id, watch_id, leak_id, acknowledged, created_at
	FROM alerts WHERE user_id = ? AND watch_id = ? AND leak_id = ?`,
		userID, watchID, leakID)

	alert, err := scanAlert(row)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, created, nil
}

// ListAlerts returns a user's alerts, newest first.
func (s *Store) ListAlerts(ctx context.Context, userID int64) ([]model.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, user_id, watch_id, leak_id, acknowledged, created_at
	FROM alerts WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}

// AcknowledgeAlert marks an alert as seen.
func (s *Store) AcknowledgeAlert(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET acknowledged = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	return nil
}

func scanAlert(row scanner) (*model.Alert, error) {
	var (
		alert     model.Alert
		createdAt sql.NullString
	)
	err := row.Scan(
		&alert.ID,
		&alert.UserID,
		&alert.WatchID,
		&alert.LeakID,
		&alert.Acknowledged,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	if createdAt.Valid {
		alert.CreatedAt = parseTimestamp(createdAt.String)
	}
	return &alert, nil
}
