package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/leakhound/leakhound/internal/model"
)

const leakColumns = `id, target_id, company, country, found_at, source_url, views, publication_date, amount_of_data, information, comment, download_links, rar_password`

// InsertLeak stores a leak record if it has not been seen before.
// Identity is (company, source_url); re-ingesting a known record is a
// silent no-op and reports created=false. The post-insert hook fires
// only for genuinely new records, after the row is durable.
func (s *Store) InsertLeak(ctx context.Context, record *model.LeakRecord) (bool, error) {
	var linksJSON sql.NullString
	if len(record.DownloadLinks) > 0 {
		data, err := json.Marshal(record.DownloadLinks)
		if err != nil {
			return false, fmt.Errorf("failed to serialize download links: %w", err)
		}
		linksJSON = sql.NullString{String: string(data), Valid: true}
	}

	if record.FoundAt.IsZero() {
		record.FoundAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
	INSERT INTO leaks (target_id, company, country, found_at, source_url, views, publication_date, amount_of_data, information, comment, download_links, rar_password)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT DO NOTHING`,
		record.TargetID,
		record.Company,
		record.Country,
		record.FoundAt.UTC().Format("2006-01-02 15:04:05"),
		record.SourceURL,
		record.Views,
		formatNullableTime(record.PublicationDate),
		record.AmountOfData,
		record.Information,
		record.Comment,
		linksJSON,
		record.RarPassword,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert leak: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to read leak id: %w", err)
	}
	record.ID = id

	s.fireLeakHook(ctx, *record)
	return true, nil
}

// GetLeak retrieves a leak by ID. Returns nil when it does not exist.
func (s *Store) GetLeak(ctx context.Context, id int64) (*model.LeakRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leakColumns+` FROM leaks WHERE id = ?`, id)

	record, err := scanLeak(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leak: %w", err)
	}
	return record, nil
}

// FindLeak retrieves a leak by its identity pair. Returns nil when it
// does not exist.
func (s *Store) FindLeak(ctx context.Context, company, sourceURL string) (*model.LeakRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leakColumns+` FROM leaks WHERE company = ? AND source_url = ?`,
		company, sourceURL)

	record, err := scanLeak(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find leak: %w", err)
	}
	return record, nil
}

// ListLeaks returns the whole corpus, newest first. The watch-creation
// backward scan and the report command consume this.
func (s *Store) ListLeaks(ctx context.Context) ([]model.LeakRecord, error) {
	return s.queryLeaks(ctx,
		`SELECT `+leakColumns+` FROM leaks ORDER BY found_at DESC, id DESC`)
}

// ListLeaksByTarget returns a target's harvested records, newest first.
func (s *Store) ListLeaksByTarget(ctx context.Context, targetID int64) ([]model.LeakRecord, error) {
	return s.queryLeaks(ctx,
		`SELECT `+leakColumns+` FROM leaks WHERE target_id = ? ORDER BY found_at DESC, id DESC`,
		targetID)
}

// SearchLeaks returns records whose company, information, or comment
// contains the query, case-insensitively, newest first.
func (s *Store) SearchLeaks(ctx context.Context, query string) ([]model.LeakRecord, error) {
	pattern := "%" + escapeLike(query) + "%"
	return s.queryLeaks(ctx, `
	SELECT `+leakColumns+` FROM leaks
	WHERE lower(company) LIKE lower(?) ESCAPE '\'
	   OR lower(information) LIKE lower(?) ESCAPE '\'
	   OR lower(comment) LIKE lower(?) ESCAPE '\'
	ORDER BY found_at DESC, id DESC`,
		pattern, pattern, pattern)
}

// CountLeaks returns the corpus size.
func (s *Store) CountLeaks(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leaks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count leaks: %w", err)
	}
	return count, nil
}

func (s *Store) queryLeaks(ctx context.Context, query string, args ...any) ([]model.LeakRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaks: %w", err)
	}
	defer rows.Close()

	var records []model.LeakRecord
	for rows.Next() {
		record, err := scanLeak(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leak: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func scanLeak(row scanner) (*model.LeakRecord, error) {
	var (
		record    model.LeakRecord
		country   sql.NullString
		foundAt   string
		views     sql.NullInt64
		pubDate   sql.NullString
		amount    sql.NullString
		info      sql.NullString
		comment   sql.NullString
		linksJSON sql.NullString
		rarPass   sql.NullString
	)

	err := row.Scan(
		&record.ID,
		&record.TargetID,
		&record.Company,
		&country,
		&foundAt,
		&record.SourceURL,
		&views,
		&pubDate,
		&amount,
		&info,
		&comment,
		&linksJSON,
		&rarPass,
	)
	if err != nil {
		return nil, err
	}

	record.Country = country.String
	record.FoundAt = parseTimestamp(foundAt)
	record.AmountOfData = amount.String
	record.Information = info.String
	record.Comment = comment.String
	record.RarPassword = rarPass.String
	if views.Valid {
		n := int(views.Int64)
		record.Views = &n
	}
	if pubDate.Valid && pubDate.String != "" {
		t := parseTimestamp(pubDate.String)
		if !t.IsZero() {
			record.PublicationDate = &t
		}
	}
	if linksJSON.Valid && linksJSON.String != "" {
		if err := json.Unmarshal([]byte(linksJSON.String), &record.DownloadLinks); err != nil {
			return nil, fmt.Errorf("failed to parse download links: %w", err)
		}
	}
	return &record, nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// escapeLike escapes LIKE wildcards in user-supplied search queries so
// "100%" matches the literal text.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
