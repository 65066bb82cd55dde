// Package store provides SQLite-backed persistence for the pipeline:
// monitored targets and their URLs, the deduplicated leak corpus,
// keyword watches and their materialized alerts, per-run metrics and
// logs, and per-user search quotas.
//
// The leak corpus is append-only and deduplicated at insert time via
// UNIQUE constraints; re-ingesting an already-seen record is a silent
// no-op. A post-insert hook fires for genuinely new records only,
// which is what drives alert matching without a separate change feed.
package store
