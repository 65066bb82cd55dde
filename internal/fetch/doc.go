// Package fetch implements the retrieval engine used by every scraper.
//
// A fetch is driven by a model.RunConfig and follows one of two
// strategies. The plain strategy issues HTTP GETs with a bounded retry
// loop: before each retry the engine renews the Tor identity (a fresh
// circuit often clears transient hidden-service failures) and sleeps the
// configured interval, and after the retry budget is exhausted it falls
// back to a single browser rendering. The rendering strategy goes
// straight to the headless browser and never retries, because rendering
// failures are almost always structural (missing browser, bad selector)
// rather than transient.
//
// Responses are sanity-checked for an <html> element before being
// accepted; hidden services under load frequently return empty bodies
// or plain-text proxy errors with a 200 status.
package fetch
