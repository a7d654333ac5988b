// Package replay sends a list of URLs through a proxy with a bounded
// number of concurrent workers.
//
// Replaying is how discovered URLs end up in the history of an
// intercepting proxy (Burp, ZAP, mitmproxy) for manual testing. Every URL
// is fetched once with the same fetcher settings as a crawl, and the
// caller is told about each completion through a progress callback.
//
// Design decision: We reuse the crawler's Fetcher interface rather than a
// bare http.Client so replayed requests get the same retries, headers,
// cookies and body limits as crawled ones.
package replay
