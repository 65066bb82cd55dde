package scraper

import "errors"

var (
	// ErrDuplicateScraper is returned when a slug is registered twice.
	ErrDuplicateScraper = errors.New("scraper: slug already registered")

	// ErrScraperNotFound is returned when no scraper is registered
	// under the requested slug.
	ErrScraperNotFound = errors.New("scraper: no scraper registered for slug")

	// ErrInvalidArtifact is returned when a dynamic plugin artifact is
	// malformed: bad YAML, a rule set without a slug, or a rule set
	// missing its extraction rules.
	ErrInvalidArtifact = errors.New("scraper: invalid plugin artifact")

	// ErrEmptyArtifact is returned when an artifact parses but defines
	// no scrapers. Accepting it would silently register nothing.
	ErrEmptyArtifact = errors.New("scraper: artifact defines no scrapers")

	// ErrNoRecords is returned by a scraper when the page fetched fine
	// but yielded no parseable entries; an empty well-known listing is
	// suspicious and worth surfacing.
	ErrNoRecords = errors.New("scraper: no records parsed from page")
)
