// Package sitemap writes and reads plain-text sitemaps.
//
// A sitemap is a UTF-8 text file with one canonical absolute URL per line,
// each line terminated by "\n", in discovery order and without duplicates.
//
// # Components
//
//   - Write / WriteFile: write a complete URL set at once
//   - Appender: stream URLs to a file while a crawl runs, so an interrupted
//     run still leaves a valid sitemap behind
//   - ReadURLList: scrape URLs out of arbitrary text for list mode
//
// All I/O failures wrap ErrIO.
package sitemap
