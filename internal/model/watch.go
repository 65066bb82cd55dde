package model

import "time"

// Watch is a user's standing keyword subscription against the leak
// corpus. (UserID, Keyword) is unique.
type Watch struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Keyword   string    `json:"keyword"`
	CreatedAt time.Time `json:"created_at"`
}

// Alert is a materialized, deduplicated match between a Watch and a
// LeakRecord. (UserID, WatchID, LeakID) is unique; concurrent matching
// triggers must never produce a duplicate. Alerts are created only by
// the matching engine and never deleted automatically.
type Alert struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	WatchID      int64     `json:"watch_id"`
	LeakID       int64     `json:"leak_id"`
	Acknowledged bool      `json:"acknowledged"`
	CreatedAt    time.Time `json:"created_at"`
}
