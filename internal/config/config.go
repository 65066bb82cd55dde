package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These are chosen around typical Tor network characteristics and the
// cadence at which leak sites actually publish.
const (
	// DefaultTorProxyAddress is the standard Tor SOCKS5 proxy address.
	// We use 127.0.0.1 instead of localhost to avoid DNS resolution
	// overhead and IPv6 surprises on some systems.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorControlAddress is the standard Tor control port, used
	// for identity renewal between fetch retries.
	DefaultTorControlAddress = "127.0.0.1:9051"

	// DefaultFetchTimeout bounds each fetch or rendering attempt.
	// Tor connections are inherently slower than clearnet connections
	// due to the relay hops; a short timeout produces false failures
	// for slow hidden services.
	DefaultFetchTimeout = 120 * time.Second

	// DefaultMaxRetries is the number of plain-fetch retries after the
	// first attempt. The engine renews the Tor identity before each
	// retry, so more retries means more circuit churn for everyone
	// sharing the proxy.
	DefaultMaxRetries = 2

	// DefaultRetryInterval is the pause before each plain-fetch retry.
	// It gives the renewed circuit a moment to settle.
	DefaultRetryInterval = 5 * time.Second

	// DefaultFrequencyMinutes is the scrape cadence for targets that
	// do not set their own. Leak sites update on the order of hours,
	// not seconds.
	DefaultFrequencyMinutes = 60

	// DefaultWorkers is the number of concurrent scrape jobs. Higher
	// values increase throughput but contend for Tor circuits.
	DefaultWorkers = 4

	// DefaultScheduleRefresh is the self-healing recompute interval of
	// the scheduler. The job table is also recomputed on every target
	// change; this interval only covers registrations that were
	// silently lost.
	DefaultScheduleRefresh = time.Minute

	// DefaultSearchQuota is the number of ad-hoc leak searches granted
	// to a user who has no explicit quota row yet.
	DefaultSearchQuota = 50

	// DefaultUserAgent identifies LeakHound in HTTP requests when
	// user-agent rotation is not requested by the target's policy.
	DefaultUserAgent = "LeakHoundBot/1.0"

	// DefaultMaxBodySize limits the response body size read per fetch.
	// Leak listing pages are small; 5MB leaves generous headroom while
	// preventing memory exhaustion from hostile responses.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultTorStartupTimeout is the maximum time to wait for the
	// embedded Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// AppName is the application name used for XDG directory paths.
	AppName = "leakhound"
)

// Config holds all pipeline options. It is populated from CLI flags
// and an optional YAML file, then passed through the application via
// dependency injection rather than global state.
type Config struct {
	// TorProxyAddress is the Tor SOCKS5 proxy in "host:port" format.
	TorProxyAddress string

	// TorControlAddress is the Tor control port in "host:port" format.
	// Used for identity renewal; empty disables renewal.
	TorControlAddress string

	// TorControlPassword authenticates against the control port.
	// Empty for cookie-less null authentication.
	TorControlPassword string

	// UseExternalTor disables the embedded Tor daemon and uses the
	// external proxy/control addresses above. When false, an embedded
	// daemon is started and its addresses take precedence.
	UseExternalTor bool

	// TorStartupTimeout bounds embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// FetchTimeout bounds each individual fetch or rendering attempt.
	FetchTimeout time.Duration

	// MaxRetries is the plain-fetch retry budget per run.
	MaxRetries int

	// RetryInterval is the pause before each plain-fetch retry.
	RetryInterval time.Duration

	// Workers is the number of concurrent scrape jobs.
	Workers int

	// ScheduleRefresh is the scheduler's self-healing recompute interval.
	ScheduleRefresh time.Duration

	// DataDir is the directory holding the SQLite database and accepted
	// plugin artifacts. Defaults to the XDG data directory.
	DataDir string

	// PluginDir is the directory holding dynamic scraper artifacts.
	// Defaults to <DataDir>/plugins.
	PluginDir string

	// UserAgent is the default User-Agent header for fetches.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes per fetch.
	MaxBodySize int64

	// SearchQuota is the initial ad-hoc search quota per user.
	SearchQuota int

	// Verbose enables slog.LevelDebug output.
	Verbose bool
}

// NewConfig creates a Config with default values.
//
// Design decision: We use a constructor instead of relying on zero
// values because most defaults are non-zero (timeouts, addresses).
// The constructor also documents what the defaults are.
func NewConfig() *Config {
	return &Config{
		TorProxyAddress:   DefaultTorProxyAddress,
		TorControlAddress: DefaultTorControlAddress,
		TorStartupTimeout: DefaultTorStartupTimeout,
		FetchTimeout:      DefaultFetchTimeout,
		MaxRetries:        DefaultMaxRetries,
		RetryInterval:     DefaultRetryInterval,
		Workers:           DefaultWorkers,
		ScheduleRefresh:   DefaultScheduleRefresh,
		DataDir:           XDGDataDir(),
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		SearchQuota:       DefaultSearchQuota,
	}
}

// XDGDataDir returns the XDG data directory for LeakHound.
// On Linux: ~/.local/share/leakhound
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for LeakHound.
// On Linux: ~/.config/leakhound
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// ResolvedPluginDir returns the plugin directory, defaulting to
// <DataDir>/plugins when not configured explicitly.
func (c *Config) ResolvedPluginDir() string {
	if c.PluginDir != "" {
		return c.PluginDir
	}
	return filepath.Join(c.DataDir, "plugins")
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the package's sentinel
// errors so callers can match with errors.Is.
func (c *Config) Validate() error {
	if c.FetchTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.RetryInterval < 0 {
		return ErrInvalidRetryInterval
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.ScheduleRefresh <= 0 {
		return ErrInvalidScheduleRefresh
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.SearchQuota < 0 {
		return ErrInvalidSearchQuota
	}
	return nil
}
