// Package fetcher issues the HTTP requests of a crawl.
//
// A Fetcher turns one model.URL into one model.FetchResult. It follows
// redirects itself so that every Location target goes through the same URL
// normalization as extracted links, retries transport failures a configured
// number of times, decodes gzip, deflate and brotli bodies, and bounds how
// much of a body it reads.
//
// Design decision: Fetch never returns a Go error. Every outcome, including
// a cancelled context, is an envelope the coordinator can record and count,
// so one bad URL can never abort the crawl.
package fetcher
