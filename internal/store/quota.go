package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ConsumeSearchToken atomically spends one unit of a user's search
// quota. It reports false when the quota is exhausted. A user with no
// quota row yet is seeded with the store's default allowance first.
//
// The decrement is a single conditional UPDATE, so concurrent
// searchers can never spend the same unit twice or drive the counter
// negative.
func (s *Store) ConsumeSearchToken(ctx context.Context, userID int64) (bool, error) {
	if _, err := s.db.ExecContext(ctx, `
	INSERT INTO search_quotas (user_id, remaining) VALUES (?, ?)
	ON CONFLICT DO NOTHING`,
		userID, s.defaultQuota); err != nil {
		return false, fmt.Errorf("failed to seed quota: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
	UPDATE search_quotas SET remaining = remaining - 1
	WHERE user_id = ? AND remaining > 0`,
		userID)
	if err != nil {
		return false, fmt.Errorf("failed to consume quota: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read quota result: %w", err)
	}
	return affected > 0, nil
}

// RemainingSearchQuota returns a user's remaining allowance. A user
// with no quota row yet has the default allowance.
func (s *Store) RemainingSearchQuota(ctx context.Context, userID int64) (int, error) {
	var remaining int
	err := s.db.QueryRowContext(ctx,
		`SELECT remaining FROM search_quotas WHERE user_id = ?`, userID).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.defaultQuota, nil
		}
		return 0, fmt.Errorf("failed to read quota: %w", err)
	}
	return remaining, nil
}

// SetSearchQuota grants a user an explicit allowance, replacing any
// existing one.
func (s *Store) SetSearchQuota(ctx context.Context, userID int64, remaining int) error {
	if _, err := s.db.ExecContext(ctx, `
	INSERT INTO search_quotas (user_id, remaining) VALUES (?, ?)
	ON CONFLICT(user_id) DO UPDATE SET remaining = excluded.remaining`,
		userID, remaining); err != nil {
		return fmt.Errorf("failed to set quota: %w", err)
	}
	return nil
}
