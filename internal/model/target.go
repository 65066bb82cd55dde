package model

import (
	"strings"
	"time"
)

// SourceKind classifies a monitored target by the structure of its source.
// The kind is informational for most scrapers but lets kind-specific
// scrapers (e.g. messaging channels) refuse targets they cannot handle.
type SourceKind string

// Supported source kinds.
const (
	// SourceForum is a threaded discussion board.
	SourceForum SourceKind = "forum"

	// SourceWebsite is a generic leak-listing website.
	SourceWebsite SourceKind = "website"

	// SourceTelegram is a messaging channel reachable through a
	// messaging-account credential rather than plain HTTP.
	SourceTelegram SourceKind = "telegram"

	// SourceDiscord is a Discord-style messaging channel.
	SourceDiscord SourceKind = "discord"

	// SourcePaste is a paste site.
	SourcePaste SourceKind = "paste"
)

// IsValid reports whether the source kind is one of the supported values.
func (k SourceKind) IsValid() bool {
	switch k {
	case SourceForum, SourceWebsite, SourceTelegram, SourceDiscord, SourcePaste:
		return true
	}
	return false
}

// BypassPolicy describes how fetches for a target evade blocking.
//
// The policy is resolved once per RunConfig: user-agent rotation picks from
// a fixed pool, and UseProxies (or a .onion target address) forces routing
// through the Tor SOCKS proxy.
type BypassPolicy struct {
	// UseProxies forces all fetches through the Tor proxy even for
	// clearnet URLs. Targets with .onion addresses are proxied regardless.
	UseProxies bool `json:"use_proxies" yaml:"use_proxies"`

	// RotateUserAgent picks a random browser user-agent per run instead
	// of the default bot identifier.
	RotateUserAgent bool `json:"rotate_user_agent" yaml:"rotate_user_agent"`

	// CaptchaSolver names an external captcha-solving hint for scrapers
	// that integrate one. Empty means no solver.
	CaptchaSolver string `json:"captcha_solver,omitempty" yaml:"captcha_solver,omitempty"`
}

// Credentials holds site login material referenced by a target.
// Values are sensitive and must only be logged through the sanitizing
// slog handler.
type Credentials struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Token    string `json:"token,omitempty" yaml:"token,omitempty"`
}

// MessagingAccount holds API credentials for messaging-channel sources.
// Targets reference at most one account.
type MessagingAccount struct {
	ID            int64  `json:"id"`
	APIID         int    `json:"api_id"`
	APIHash       string `json:"api_hash"`
	SessionString string `json:"session_string,omitempty"`
	Phone         string `json:"phone,omitempty"`
}

// Target is a source to be scraped on a fixed cadence.
//
// Invariant: every registered URL is globally unique across all targets.
// A target with zero registered URLs falls back to its primary URL.
type Target struct {
	// ID is the target's database identifier.
	ID int64 `json:"id"`

	// Name is the display name shown in logs and reports.
	Name string `json:"name"`

	// URL is the primary URL, used when no TargetURLs are registered.
	URL string `json:"url"`

	// Kind classifies the source structure.
	Kind SourceKind `json:"kind"`

	// Scraper is the registry slug of the plugin that handles this target.
	Scraper string `json:"scraper"`

	// NeedsRendering requires full browser rendering instead of a plain
	// HTTP fetch (script-generated content, terminal-style UIs).
	NeedsRendering bool `json:"needs_rendering"`

	// Enabled gates scheduling. Disabled targets are skipped by runs
	// and excluded from the scheduler's job table.
	Enabled bool `json:"enabled"`

	// FrequencyMinutes is the polling cadence in minutes.
	FrequencyMinutes int `json:"frequency_minutes"`

	// Bypass is the target-level bypass policy. May be overridden per run.
	Bypass *BypassPolicy `json:"bypass,omitempty"`

	// Credentials are optional site credentials. May be overridden per run.
	Credentials *Credentials `json:"credentials,omitempty"`

	// MessagingAccountID links a messaging-account credential, if any.
	MessagingAccountID *int64 `json:"messaging_account_id,omitempty"`

	// CreatedAt is when the target was registered.
	CreatedAt time.Time `json:"created_at"`
}

// TargetURL is one registered URL of a target.
// URLs are unique across all targets, not just within one.
type TargetURL struct {
	ID        int64     `json:"id"`
	TargetID  int64     `json:"target_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// IsOnion reports whether the target's primary URL points at a Tor
// hidden service. Onion targets are always fetched through the proxy.
func (t *Target) IsOnion() bool {
	return IsOnionURL(t.URL)
}

// IsOnionURL reports whether a URL's host is a .onion address.
// The check is suffix-based on the host portion; a path component
// containing ".onion" does not count.
func IsOnionURL(rawURL string) bool {
	host := rawURL
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return strings.HasSuffix(host, ".onion")
}
