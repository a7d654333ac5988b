// Package frontier holds the two synchronized collections that a crawl run
// shares between its workers: the Frontier (pending work plus the seen-set)
// and the DiscoveredSet (the accepted URLs that end up in the sitemap).
//
// Design decision: Deduplication is a single check-and-insert under one
// mutex. Callers never test membership and insert in two steps, so two
// workers offering the same canonical URL at the same time cannot both win.
package frontier
