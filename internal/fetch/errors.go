package fetch

import "errors"

var (
	// ErrFetchTimeout is returned when a fetch attempt exceeds its
	// deadline. Timeouts are retryable in the plain strategy.
	ErrFetchTimeout = errors.New("fetch: attempt timed out")

	// ErrBadStatus is returned when the server answers with a non-2xx
	// status code.
	ErrBadStatus = errors.New("fetch: unexpected HTTP status")

	// ErrNotHTML is returned when a response body does not contain an
	// <html> element. Hidden services under load return empty bodies or
	// plain-text errors with a 200 status; treating those as success
	// would feed garbage to the scrapers.
	ErrNotHTML = errors.New("fetch: response is not an HTML document")

	// ErrNoRenderer is returned when a run requires browser rendering
	// but no renderer is configured.
	ErrNoRenderer = errors.New("fetch: no renderer configured")

	// ErrProxyUnavailable is returned when a run requires the Tor proxy
	// but the engine has no Tor client.
	ErrProxyUnavailable = errors.New("fetch: tor proxy required but not configured")
)
