package model

import "time"

// RetryPolicy bounds the plain-fetch retry loop.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	// A fetch therefore makes at most MaxRetries+1 plain attempts.
	MaxRetries int `json:"max_retries"`

	// RetryInterval is the pause before each retry, taken after the
	// Tor identity renewal for that retry.
	RetryInterval time.Duration `json:"retry_interval"`
}

// RunConfig is the immutable configuration for one run of one
// (target, URL) pair. It is built by the orchestrator at run time by
// merging the target's stored defaults with any per-invocation override
// payload, and is never persisted.
type RunConfig struct {
	// TargetID identifies the target being scraped.
	TargetID int64 `json:"target_id"`

	// Kind is the target's source kind.
	Kind SourceKind `json:"kind"`

	// URL is the single URL this run fetches.
	URL string `json:"url"`

	// Bypass is the resolved bypass policy. Never nil after building.
	Bypass BypassPolicy `json:"bypass"`

	// Credentials are the resolved site credentials, if any.
	Credentials *Credentials `json:"credentials,omitempty"`

	// Retry bounds the plain-fetch retry loop.
	Retry RetryPolicy `json:"retry"`

	// Timeout bounds each individual fetch or rendering attempt.
	Timeout time.Duration `json:"timeout"`

	// NeedsRendering selects the browser-rendering strategy instead of
	// plain HTTP. Rendering failures are not retried.
	NeedsRendering bool `json:"needs_rendering"`

	// WaitSelector is an optional CSS selector the rendering path waits
	// for after navigation, supplied by the scraper plugin.
	WaitSelector string `json:"wait_selector,omitempty"`
}

// RunOverride is the optional per-invocation payload that callers of
// runForTarget may supply to replace a target's stored bypass policy or
// credentials for a single run.
type RunOverride struct {
	Bypass      *BypassPolicy `json:"bypassConfig,omitempty"`
	Credentials *Credentials  `json:"credentials,omitempty"`
}

// UseProxy reports whether fetches for this run must route through the
// Tor SOCKS proxy: either the policy demands it or the URL is an onion
// address.
func (c *RunConfig) UseProxy() bool {
	return c.Bypass.UseProxies || IsOnionURL(c.URL)
}
