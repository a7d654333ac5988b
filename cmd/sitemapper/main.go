// Package main provides the entry point for the sitemapper CLI.
//
// sitemapper discovers every page reachable from a seed URL on the seed's
// host and writes them to a sitemap file, one URL per line. It can route
// its traffic through an intercepting proxy or Tor, keeps per-URL records
// in a local store so interrupted crawls can resume, and ships a few
// auditing helpers around the crawl.
//
// Usage:
//
//	sitemapper crawl <seed-url>
//	sitemapper list <url-file>
//	sitemapper inspect <url>
//	sitemapper replay --proxy 127.0.0.1:8080
//
// See --help for all available options.
package main

// main is the entry point for sitemapper.
func main() {
	Execute()
}
