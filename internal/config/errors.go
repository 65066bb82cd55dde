package config

import "errors"

var (
	// ErrInvalidTimeout is returned when the fetch timeout is not positive.
	ErrInvalidTimeout = errors.New("config: fetch timeout must be positive")

	// ErrInvalidMaxRetries is returned when the retry budget is negative.
	ErrInvalidMaxRetries = errors.New("config: max retries must not be negative")

	// ErrInvalidRetryInterval is returned when the retry interval is negative.
	ErrInvalidRetryInterval = errors.New("config: retry interval must not be negative")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("config: worker count must be positive")

	// ErrInvalidScheduleRefresh is returned when the scheduler refresh
	// interval is not positive.
	ErrInvalidScheduleRefresh = errors.New("config: schedule refresh interval must be positive")

	// ErrInvalidMaxBodySize is returned when the body size limit is negative.
	ErrInvalidMaxBodySize = errors.New("config: max body size must not be negative")

	// ErrInvalidSearchQuota is returned when the search quota is negative.
	ErrInvalidSearchQuota = errors.New("config: search quota must not be negative")

	// ErrConfigNotFound is returned when no configuration file exists at
	// any of the searched locations.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidTargetSeed is returned when a seeded target entry in the
	// configuration file fails validation.
	ErrInvalidTargetSeed = errors.New("config: invalid target entry")
)
