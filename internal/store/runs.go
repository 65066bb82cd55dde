package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/leakhound/leakhound/internal/model"
)

// RecordRunMetric appends one run outcome. Metrics are written after
// every (target, URL) run, success or not.
func (s *Store) RecordRunMetric(ctx context.Context, metric *model.RunMetric) error {
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now().UTC()
	}
	result, err := s.db.ExecContext(ctx, `
	INSERT INTO run_metrics (target_id, retries, permanent_fail, timestamp)
	VALUES (?, ?, ?, ?)`,
		metric.TargetID,
		metric.Retries,
		metric.PermFail,
		metric.Timestamp.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run metric: %w", err)
	}
	metric.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read metric id: %w", err)
	}
	return nil
}

// ListRunMetrics returns a target's run metrics, newest first.
func (s *Store) ListRunMetrics(ctx context.Context, targetID int64) ([]model.RunMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, target_id, retries, permanent_fail, timestamp
	FROM run_metrics WHERE target_id = ? ORDER BY timestamp DESC, id DESC`,
		targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run metrics: %w", err)
	}
	defer rows.Close()

	var metrics []model.RunMetric
	for rows.Next() {
		var (
			metric    model.RunMetric
			timestamp string
		)
		if err := rows.Scan(&metric.ID, &metric.TargetID, &metric.Retries, &metric.PermFail, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan run metric: %w", err)
		}
		metric.Timestamp = parseTimestamp(timestamp)
		metrics = append(metrics, metric)
	}
	return metrics, rows.Err()
}

// RecordScrapeLog appends one human-readable run log entry.
func (s *Store) RecordScrapeLog(ctx context.Context, entry *model.ScrapeLog) error {
	result, err := s.db.ExecContext(ctx, `
	INSERT INTO scrape_logs (target_id, url, success, message)
	VALUES (?, ?, ?, ?)`,
		entry.TargetID,
		entry.URL,
		entry.Success,
		entry.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scrape log: %w", err)
	}
	entry.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read log id: %w", err)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return nil
}

// ListScrapeLogs returns a target's most recent log entries, newest
// first, capped at limit (0 means no cap).
func (s *Store) ListScrapeLogs(ctx context.Context, targetID int64, limit int) ([]model.ScrapeLog, error) {
	query := `
	SELECT id, target_id, url, success, message, created_at
	FROM scrape_logs WHERE target_id = ? ORDER BY created_at DESC, id DESC`
	args := []any{targetID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scrape logs: %w", err)
	}
	defer rows.Close()

	var entries []model.ScrapeLog
	for rows.Next() {
		var (
			entry     model.ScrapeLog
			message   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.TargetID, &entry.URL, &entry.Success, &message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan scrape log: %w", err)
		}
		entry.Message = message.String
		entry.CreatedAt = parseTimestamp(createdAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
