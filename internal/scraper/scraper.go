package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/leakhound/leakhound/internal/model"
)

// Fetcher retrieves a page for a run. Implemented by fetch.Engine;
// stubbed in tests with canned documents.
type Fetcher interface {
	Fetch(ctx context.Context, cfg model.RunConfig) (string, error)
}

// Scraper parses one leak source. Implementations are stateless and
// safe for concurrent runs.
type Scraper interface {
	// Name returns the registry slug.
	Name() string

	// Run fetches the run's URL through the fetcher and returns the
	// leak records parsed from it. Records carry no IDs; the store
	// assigns them on insert.
	Run(ctx context.Context, f Fetcher, cfg model.RunConfig) ([]model.LeakRecord, error)
}

// fetchDocument retrieves the run's URL and parses it into a goquery
// document. Shared by every built-in scraper.
func fetchDocument(ctx context.Context, f Fetcher, cfg model.RunConfig) (*goquery.Document, error) {
	body, err := f.Fetch(ctx, cfg)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return doc, nil
}

// cleanText collapses runs of whitespace in scraped text. Leak sites
// pad their markup with newlines and tabs that would otherwise end up
// in stored fields.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveLink resolves a possibly-relative href against the page URL.
// An empty or unparseable href resolves to the page URL itself, so
// every record always has a usable source.
func resolveLink(pageURL, href string) string {
	if href == "" {
		return pageURL
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	ref, err := url.Parse(href)
	if err != nil {
		return pageURL
	}
	return base.ResolveReference(ref).String()
}
