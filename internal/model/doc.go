// Package model defines the core data structures used throughout LeakHound.
//
// This package contains the following main types:
//   - Target: A configured leak source to be periodically scraped
//   - RunConfig: The immutable per-(target, URL) configuration for one run
//   - LeakRecord: The unit of harvested intelligence
//   - Watch / Alert: A user's keyword subscription and its materialized matches
//   - RunMetric / ScrapeLog: Append-only outcome records for each run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (fetch, scraper, store, alert) need to use
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for job-queue payloads
// and database storage.
package model
