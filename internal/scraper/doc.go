// Package scraper defines the scraper plugin contract, the registry
// that resolves target slugs to plugins, the built-in scrapers for
// known leak-site layouts, and the loader for dynamic rule artifacts.
//
// A scraper receives one (target, URL) run, fetches the page through
// the engine, and returns the leak records it parsed. Scrapers never
// touch storage; deduplication happens at insert time.
//
// Dynamic plugins are declarative YAML rule sets, not code. A loaded
// artifact is parsed, validated, and admitted into the registry only
// if every rule set carries a fresh, well-formed slug; the YAML rules
// are interpreted by a fixed rule engine, so an untrusted artifact can
// describe selectors but can never execute anything.
package scraper
