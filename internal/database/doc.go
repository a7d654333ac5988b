// Package database provides SQLite-based storage for sitemapper.
//
// This package implements the CrawlDB, which stores:
//   - A byte-oriented key/value table; keys are canonical URLs and values
//     are JSON-encoded records
//   - A runs table with one summary per crawl run, used for resuming and
//     reporting
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of an
// embedded key/value engine because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Ordered iteration and prefix deletion map directly onto an indexed
//    TEXT primary key
// 4. WAL mode provides good concurrent read performance
package database
