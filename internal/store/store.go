package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/leakhound/leakhound/internal/model"
)

// Store provides SQLite-based persistence for the pipeline.
// It manages connection pooling and exposes CRUD operations per table
// family (targets, leaks, watches/alerts, runs, quotas).
//
// Design decision: one database file for the whole pipeline rather
// than one per concern. Alerts join watches to leaks and the report
// command joins everything; separate files would push those joins into
// application code.
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	// defaultQuota seeds a user's search quota row on first use.
	defaultQuota int

	mu sync.RWMutex

	// leakHook fires after each genuinely new leak insert.
	leakHook func(context.Context, model.LeakRecord)

	// targetHook fires after any target or target-URL change.
	targetHook func()
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool

	// DefaultSearchQuota seeds a user's quota row on first use.
	DefaultSearchQuota int
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists:  true,
		EnableWAL:          true,
		DefaultSearchQuota: 50,
	}
}

// Open opens or creates the store database at the specified directory.
// If CreateIfNotExists is true, the directory and database file are
// created; otherwise a missing database is an error.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, "leakhound.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite DSN: mode=rw prevents creating new files,
	// mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single connection also keeps
	// the PRAGMAs below applying to every statement.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:           db,
		dbPath:       dbPath,
		defaultQuota: opts.DefaultSearchQuota,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Cascade deletes (target -> urls, watch -> alerts) depend on this.
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetLeakHook registers the callback fired after each genuinely new
// leak insert. Duplicate inserts never fire it.
func (s *Store) SetLeakHook(hook func(context.Context, model.LeakRecord)) {
	s.mu.Lock()
	s.leakHook = hook
	s.mu.Unlock()
}

// SetTargetChangeHook registers the callback fired after any target or
// target-URL change. The scheduler uses it to recompute its job table.
func (s *Store) SetTargetChangeHook(hook func()) {
	s.mu.Lock()
	s.targetHook = hook
	s.mu.Unlock()
}

func (s *Store) fireLeakHook(ctx context.Context, record model.LeakRecord) {
	s.mu.RLock()
	hook := s.leakHook
	s.mu.RUnlock()
	if hook != nil {
		hook(ctx, record)
	}
}

func (s *Store) fireTargetHook() {
	s.mu.RLock()
	hook := s.targetHook
	s.mu.RUnlock()
	if hook != nil {
		hook()
	}
}

// createTables creates the database schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	-- Monitored leak sources
	CREATE TABLE IF NOT EXISTS targets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		url TEXT NOT NULL,
		kind TEXT NOT NULL,
		scraper TEXT NOT NULL,
		needs_rendering INTEGER NOT NULL DEFAULT 0,
		enabled INTEGER NOT NULL DEFAULT 1,
		frequency_minutes INTEGER NOT NULL DEFAULT 60,
		bypass TEXT,
		credentials TEXT,
		messaging_account_id INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Registered URLs; unique across all targets, not just within one
	CREATE TABLE IF NOT EXISTS target_urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_id INTEGER NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
		url TEXT NOT NULL UNIQUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_target_urls_target ON target_urls(target_id);

	-- The deduplicated leak corpus; records are immutable once stored
	CREATE TABLE IF NOT EXISTS leaks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_id INTEGER NOT NULL DEFAULT 0,
		company TEXT NOT NULL,
		country TEXT,
		found_at DATETIME NOT NULL,
		source_url TEXT NOT NULL,
		views INTEGER,
		publication_date DATETIME,
		amount_of_data TEXT,
		information TEXT,
		comment TEXT,
		download_links TEXT,
		rar_password TEXT,
		UNIQUE(company, source_url),
		UNIQUE(target_id, company, source_url)
	);

	CREATE INDEX IF NOT EXISTS idx_leaks_target ON leaks(target_id);
	CREATE INDEX IF NOT EXISTS idx_leaks_found ON leaks(found_at);

	-- Keyword subscriptions
	CREATE TABLE IF NOT EXISTS watches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		keyword TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, keyword)
	);

	-- Materialized watch-leak matches
	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		watch_id INTEGER NOT NULL REFERENCES watches(id) ON DELETE CASCADE,
		leak_id INTEGER NOT NULL REFERENCES leaks(id) ON DELETE CASCADE,
		acknowledged INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, watch_id, leak_id)
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_user ON alerts(user_id);

	-- Append-only run outcomes
	CREATE TABLE IF NOT EXISTS run_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_id INTEGER NOT NULL,
		retries INTEGER NOT NULL DEFAULT 0,
		permanent_fail INTEGER NOT NULL DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_metrics_target ON run_metrics(target_id);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_id INTEGER NOT NULL,
		url TEXT NOT NULL,
		success INTEGER NOT NULL,
		message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_logs_target ON scrape_logs(target_id);

	-- Per-user ad-hoc search allowance
	CREATE TABLE IF NOT EXISTS search_quotas (
		user_id INTEGER PRIMARY KEY,
		remaining INTEGER NOT NULL
	);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// timestampFormats contains the timestamp formats that SQLite may
// return. The order matters: more specific formats come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
	"2006-01-02",              // date-only (publication dates)
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. SQLite may return timestamps in different formats depending
// on configuration. Returns zero time if no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
