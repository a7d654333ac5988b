// Package model defines the core data structures used throughout sitemapper.
//
// This package contains the following main types:
//   - URL: A normalized absolute http(s) URL with a canonical key
//   - Scope: The host and path prefix that bound one crawl
//   - FetchResult: The envelope produced by fetching one URL
//   - Record: The per-URL value persisted in the crawl store
//   - Event: A signal emitted by the crawl coordinator
//   - RunSummary: The outcome of one crawl run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The fetcher, crawler, sitemap, database and report packages all
// exchange these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
