package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/leakhound/leakhound/internal/model"
	"github.com/leakhound/leakhound/internal/tor"
)

// defaultMaxBodySize limits how much of a response body is read when
// the engine is constructed without an explicit limit.
const defaultMaxBodySize = 5 * 1024 * 1024

// browserUserAgents is the rotation pool used when a run's bypass
// policy requests user-agent rotation. Plausible desktop browsers;
// leak sites block obvious bot identifiers.
var browserUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0",
}

// IdentityRenewer requests a fresh Tor circuit. Implemented by
// tor.Controller; stubbed in tests.
type IdentityRenewer interface {
	RenewIdentity(ctx context.Context) error
}

// Renderer retrieves a URL through a full browser. Implemented by
// ChromeRenderer; stubbed in tests.
type Renderer interface {
	Render(ctx context.Context, url, waitSelector string, timeout time.Duration) (string, error)
}

// Engine retrieves pages for scrapers according to a RunConfig.
// An Engine is safe for concurrent use by multiple scrape workers.
type Engine struct {
	torClient *tor.Client
	renewer   IdentityRenewer
	renderer  Renderer
	logger    *slog.Logger

	userAgent   string
	maxBodySize int64

	// directClient serves clearnet fetches that do not route through
	// Tor. Proxied clients come from torClient. Attempt deadlines are
	// applied per request, so neither client carries its own timeout.
	directClient *http.Client
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRenewer sets the Tor identity renewer invoked before each plain
// retry. Without one, retries proceed on the same circuit.
func WithRenewer(r IdentityRenewer) EngineOption {
	return func(e *Engine) { e.renewer = r }
}

// WithRenderer sets the browser renderer used for rendering runs and
// for the fallback after plain retries are exhausted. Without one,
// rendering runs fail with ErrNoRenderer and no fallback happens.
func WithRenderer(r Renderer) EngineOption {
	return func(e *Engine) { e.renderer = r }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// WithUserAgent sets the default User-Agent for runs that do not
// rotate.
func WithUserAgent(ua string) EngineOption {
	return func(e *Engine) { e.userAgent = ua }
}

// WithMaxBodySize caps how many bytes are read from a response body.
func WithMaxBodySize(n int64) EngineOption {
	return func(e *Engine) { e.maxBodySize = n }
}

// NewEngine creates a fetch engine. torClient may be nil when only
// clearnet targets without a proxy policy are fetched.
func NewEngine(torClient *tor.Client, opts ...EngineOption) *Engine {
	e := &Engine{
		torClient:   torClient,
		logger:      slog.Default(),
		userAgent:   "LeakHoundBot/1.0",
		maxBodySize: defaultMaxBodySize,
		directClient: &http.Client{
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fetch retrieves the run's URL and returns the page body.
//
// Rendering runs go straight to the browser with no retry. Plain runs
// make up to MaxRetries+1 attempts; before each retry the Tor identity
// is renewed (best effort) and the retry interval elapses. When all
// plain attempts fail and a renderer is available, one rendering
// fallback is tried before giving up.
//
// Retries consumed are reported through the context's Attempts
// recorder, never through engine state: the engine is shared by
// concurrent runs.
func (e *Engine) Fetch(ctx context.Context, cfg model.RunConfig) (string, error) {
	if cfg.NeedsRendering {
		return e.render(ctx, cfg)
	}

	client, err := e.httpClient(cfg)
	if err != nil {
		return "", err
	}

	var lastErr error
	retries := 0
	for attempt := 0; attempt <= cfg.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			retries++
			e.renewIdentity(ctx, cfg.URL)
			if err := sleepContext(ctx, cfg.Retry.RetryInterval); err != nil {
				lastErr = err
				break
			}
		}

		body, err := e.attempt(ctx, client, cfg)
		if err == nil {
			recordRetries(ctx, retries)
			return body, nil
		}
		lastErr = err
		e.logger.Warn("fetch attempt failed",
			slog.String("url", cfg.URL),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))

		if ctx.Err() != nil {
			break
		}
	}
	recordRetries(ctx, retries)

	if e.renderer != nil && ctx.Err() == nil {
		e.logger.Info("plain fetch exhausted, falling back to rendering",
			slog.String("url", cfg.URL))
		body, renderErr := e.render(ctx, cfg)
		if renderErr == nil {
			return body, nil
		}
		e.logger.Warn("rendering fallback failed",
			slog.String("url", cfg.URL),
			slog.String("error", renderErr.Error()))
	}

	return "", fmt.Errorf("failed to fetch %s: %w", cfg.URL, lastErr)
}

// httpClient picks the transport for a run: the Tor HTTP client when
// the policy or a .onion URL demands the proxy, the direct client
// otherwise.
func (e *Engine) httpClient(cfg model.RunConfig) (*http.Client, error) {
	if cfg.UseProxy() {
		if e.torClient == nil {
			return nil, ErrProxyUnavailable
		}
		return e.torClient.NewHTTPClient(), nil
	}
	return e.directClient, nil
}

// attempt performs a single HTTP GET bounded by the run's timeout.
func (e *Engine) attempt(ctx context.Context, client *http.Client, cfg model.RunConfig) (string, error) {
	attemptCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", e.resolveUserAgent(cfg))
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBodySize))
	if err != nil {
		return "", classifyTransportError(err)
	}

	body := string(data)
	if !looksLikeHTML(body) {
		return "", ErrNotHTML
	}
	return body, nil
}

// render performs the browser-rendering strategy. Render errors are
// fatal; a failed rendering is never retried.
func (e *Engine) render(ctx context.Context, cfg model.RunConfig) (string, error) {
	if e.renderer == nil {
		return "", ErrNoRenderer
	}
	body, err := e.renderer.Render(ctx, cfg.URL, cfg.WaitSelector, cfg.Timeout)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", cfg.URL, err)
	}
	return body, nil
}

// renewIdentity requests a fresh circuit before a retry. Renewal
// failures never fail the fetch: the retry simply reuses the old
// circuit.
func (e *Engine) renewIdentity(ctx context.Context, url string) {
	if e.renewer == nil {
		return
	}
	if err := e.renewer.RenewIdentity(ctx); err != nil {
		e.logger.Warn("tor identity renewal failed",
			slog.String("url", url),
			slog.String("error", err.Error()))
	}
}

// resolveUserAgent picks the User-Agent for a run. Rotation draws a
// random browser identity per attempt.
func (e *Engine) resolveUserAgent(cfg model.RunConfig) string {
	if cfg.Bypass.RotateUserAgent {
		return browserUserAgents[rand.IntN(len(browserUserAgents))]
	}
	return e.userAgent
}

// looksLikeHTML reports whether the body contains an <html> element
// token. Tokenizing is more robust than substring matching: it ignores
// case, attributes, and leading doctype or whitespace.
func looksLikeHTML(body string) bool {
	tokenizer := html.NewTokenizer(strings.NewReader(body))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if strings.EqualFold(string(name), "html") {
				return true
			}
		}
	}
}

// classifyTransportError maps timeout-shaped errors onto
// ErrFetchTimeout so callers can match with errors.Is.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrFetchTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s", ErrFetchTimeout, err)
	}
	return fmt.Errorf("transport error: %w", err)
}

// sleepContext sleeps for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
