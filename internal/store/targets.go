package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/leakhound/leakhound/internal/model"
)

// CreateTarget stores a new target and assigns its ID. The target's
// primary URL is registered in the URL table so global URL uniqueness
// covers it too.
func (s *Store) CreateTarget(ctx context.Context, target *model.Target) error {
	bypassJSON, credsJSON, err := marshalTargetBlobs(target)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
	INSERT INTO targets (name, url, kind, scraper, needs_rendering, enabled, frequency_minutes, bypass, credentials, messaging_account_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		target.Name,
		target.URL,
		string(target.Kind),
		target.Scraper,
		target.NeedsRendering,
		target.Enabled,
		target.FrequencyMinutes,
		bypassJSON,
		credsJSON,
		target.MessagingAccountID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateTarget, target.Name)
		}
		return fmt.Errorf("failed to insert target: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read target id: %w", err)
	}
	target.ID = id
	if target.CreatedAt.IsZero() {
		target.CreatedAt = time.Now().UTC()
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO target_urls (target_id, url) VALUES (?, ?)`,
		id, target.URL,
	); err != nil {
		if isUniqueViolation(err) {
			// Roll the target back so a URL collision leaves nothing behind.
			_, _ = s.db.ExecContext(ctx, `DELETE FROM targets WHERE id = ?`, id) //nolint:errcheck
			return fmt.Errorf("%w: %q", ErrDuplicateURL, target.URL)
		}
		return fmt.Errorf("failed to register primary url: %w", err)
	}

	s.fireTargetHook()
	return nil
}

// UpsertTargetByName creates the target or, when the name is already
// taken, updates the existing row in place. Seeding from the config
// file goes through here so edits to the file update targets instead
// of duplicating them.
func (s *Store) UpsertTargetByName(ctx context.Context, target *model.Target) error {
	existing, err := s.GetTargetByName(ctx, target.Name)
	if err != nil {
		return err
	}
	if existing == nil {
		return s.CreateTarget(ctx, target)
	}
	target.ID = existing.ID
	target.CreatedAt = existing.CreatedAt
	return s.UpdateTarget(ctx, target)
}

// UpdateTarget rewrites a stored target.
func (s *Store) UpdateTarget(ctx context.Context, target *model.Target) error {
	bypassJSON, credsJSON, err := marshalTargetBlobs(target)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
	UPDATE targets
	SET name = ?, url = ?, kind = ?, scraper = ?, needs_rendering = ?,
	    enabled = ?, frequency_minutes = ?, bypass = ?, credentials = ?,
	    messaging_account_id = ?
	WHERE id = ?`,
		target.Name,
		target.URL,
		string(target.Kind),
		target.Scraper,
		target.NeedsRendering,
		target.Enabled,
		target.FrequencyMinutes,
		bypassJSON,
		credsJSON,
		target.MessagingAccountID,
		target.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateTarget, target.Name)
		}
		return fmt.Errorf("failed to update target: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrTargetNotFound, target.ID)
	}

	s.fireTargetHook()
	return nil
}

// SetTargetEnabled flips a target's scheduling gate.
func (s *Store) SetTargetEnabled(ctx context.Context, id int64, enabled bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE targets SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return fmt.Errorf("failed to update target: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrTargetNotFound, id)
	}

	s.fireTargetHook()
	return nil
}

// DeleteTarget removes a target and, via cascade, its registered URLs.
// Harvested leaks are kept: the corpus is append-only and records stay
// meaningful after their source is retired.
func (s *Store) DeleteTarget(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM targets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete target: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id %d", ErrTargetNotFound, id)
	}

	s.fireTargetHook()
	return nil
}

// GetTarget retrieves a target by ID. Returns nil when it does not
// exist.
func (s *Store) GetTarget(ctx context.Context, id int64) (*model.Target, error) {
	return s.getTarget(ctx, `WHERE id = ?`, id)
}

// GetTargetByName retrieves a target by its unique name. Returns nil
// when it does not exist.
func (s *Store) GetTargetByName(ctx context.Context, name string) (*model.Target, error) {
	return s.getTarget(ctx, `WHERE name = ?`, name)
}

func (s *Store) getTarget(ctx context.Context, where string, arg any) (*model.Target, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, name, url, kind, scraper, needs_rendering, enabled, frequency_minutes, bypass, credentials, messaging_account_id, created_at
	FROM targets `+where, arg)

	target, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get target: %w", err)
	}
	return target, nil
}

// ListTargets returns all targets ordered by name.
func (s *Store) ListTargets(ctx context.Context) ([]model.Target, error) {
	return s.listTargets(ctx, ``)
}

// ListEnabledTargets returns the targets eligible for scheduling.
func (s *Store) ListEnabledTargets(ctx context.Context) ([]model.Target, error) {
	return s.listTargets(ctx, `WHERE enabled = 1`)
}

func (s *Store) listTargets(ctx context.Context, where string) ([]model.Target, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, name, url, kind, scraper, needs_rendering, enabled, frequency_minutes, bypass, credentials, messaging_account_id, created_at
	FROM targets `+where+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []model.Target
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, *target)
	}
	return targets, rows.Err()
}

// AddTargetURL registers an additional URL for a target. URLs are
// unique across all targets.
func (s *Store) AddTargetURL(ctx context.Context, targetID int64, url string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO target_urls (target_id, url) VALUES (?, ?)`, targetID, url)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateURL, url)
		}
		return fmt.Errorf("failed to register url: %w", err)
	}
	s.fireTargetHook()
	return nil
}

// RemoveTargetURL unregisters a URL. Removing an unknown URL is a
// no-op.
func (s *Store) RemoveTargetURL(ctx context.Context, targetID int64, url string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM target_urls WHERE target_id = ? AND url = ?`, targetID, url)
	if err != nil {
		return fmt.Errorf("failed to remove url: %w", err)
	}
	s.fireTargetHook()
	return nil
}

// TargetURLs returns the URLs to scrape for a target: its registered
// URLs, or the primary URL when none are registered.
func (s *Store) TargetURLs(ctx context.Context, targetID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url FROM target_urls WHERE target_id = ? ORDER BY id`, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(urls) > 0 {
		return urls, nil
	}

	target, err := s.GetTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("%w: id %d", ErrTargetNotFound, targetID)
	}
	return []string{target.URL}, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanTarget(row scanner) (*model.Target, error) {
	var (
		target     model.Target
		kind       string
		bypassJSON sql.NullString
		credsJSON  sql.NullString
		msgAccount sql.NullInt64
		createdAt  string
	)

	err := row.Scan(
		&target.ID,
		&target.Name,
		&target.URL,
		&kind,
		&target.Scraper,
		&target.NeedsRendering,
		&target.Enabled,
		&target.FrequencyMinutes,
		&bypassJSON,
		&credsJSON,
		&msgAccount,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	target.Kind = model.SourceKind(kind)
	target.CreatedAt = parseTimestamp(createdAt)
	if msgAccount.Valid {
		target.MessagingAccountID = &msgAccount.Int64
	}
	if bypassJSON.Valid && bypassJSON.String != "" {
		var bypass model.BypassPolicy
		if err := json.Unmarshal([]byte(bypassJSON.String), &bypass); err != nil {
			return nil, fmt.Errorf("failed to parse bypass policy: %w", err)
		}
		target.Bypass = &bypass
	}
	if credsJSON.Valid && credsJSON.String != "" {
		var creds model.Credentials
		if err := json.Unmarshal([]byte(credsJSON.String), &creds); err != nil {
			return nil, fmt.Errorf("failed to parse credentials: %w", err)
		}
		target.Credentials = &creds
	}
	return &target, nil
}

func marshalTargetBlobs(target *model.Target) (bypassJSON, credsJSON sql.NullString, err error) {
	if target.Bypass != nil {
		data, merr := json.Marshal(target.Bypass)
		if merr != nil {
			return bypassJSON, credsJSON, fmt.Errorf("failed to serialize bypass policy: %w", merr)
		}
		bypassJSON = sql.NullString{String: string(data), Valid: true}
	}
	if target.Credentials != nil {
		data, merr := json.Marshal(target.Credentials)
		if merr != nil {
			return bypassJSON, credsJSON, fmt.Errorf("failed to serialize credentials: %w", merr)
		}
		credsJSON = sql.NullString{String: string(data), Valid: true}
	}
	return bypassJSON, credsJSON, nil
}
