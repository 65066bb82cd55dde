package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeRenderer retrieves pages through headless Chrome. It handles
// the leak sites that build their listing client-side (script-generated
// tables, terminal-style UIs) where a plain GET returns an empty shell.
//
// Each Render call spawns a fresh browser context. That is slower than
// reusing one browser, but rendering is the exception path and a fresh
// profile avoids cross-target cookie and cache leakage.
type ChromeRenderer struct {
	// proxyAddress routes browser traffic through the Tor SOCKS proxy
	// when non-empty.
	proxyAddress string
}

// NewChromeRenderer creates a renderer. proxyAddress is the Tor SOCKS
// address in "host:port" format, or empty for direct connections.
func NewChromeRenderer(proxyAddress string) *ChromeRenderer {
	return &ChromeRenderer{proxyAddress: proxyAddress}
}

// Render navigates to the URL, waits for the page to settle, and
// returns the rendered document. When waitSelector is non-empty the
// wait is for that selector; otherwise for the body element.
func (r *ChromeRenderer) Render(ctx context.Context, url, waitSelector string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("ignore-certificate-errors", true),
	)
	if r.proxyAddress != "" {
		opts = append(opts, chromedp.ProxyServer("socks5://"+r.proxyAddress))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	wait := waitSelector
	if wait == "" {
		wait = "body"
	}

	var rendered string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(wait, chromedp.ByQuery),
		chromedp.OuterHTML("html", &rendered, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("headless rendering failed: %w", err)
	}
	return rendered, nil
}
