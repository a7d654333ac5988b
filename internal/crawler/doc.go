// Package crawler discovers the pages of a website.
//
// # Architecture
//
// The package is built around the Coordinator type. It owns a frontier of
// URLs waiting to be fetched and the discovered set of URLs accepted so far,
// dispatches fetches to a bounded worker pool and turns every completed fetch
// into records, sitemap lines and events.
//
// Design decision: A single loop goroutine is the only writer of crawl state.
// Workers fetch and parse, then hand an outcome back over a channel. This
// keeps deduplication and event ordering trivially correct without locking
// the frontier and the discovered set together.
//
// # Components
//
//   - Coordinator: lifecycle (start, pause, resume, stop) and dispatch
//   - ExtractLinks / ExtractTitle: streaming HTML link extraction
//   - Parser: full-document parser used by the inspect view
//   - PathFilter: ignore/follow glob patterns for in-scope paths
//   - HostLimiter: per-host delay and request rate
//
// # Scope
//
// Only links whose host equals the seed's host (and whose path lies under
// the optional path prefix) are fetched. Other links are recorded as
// external discoveries when enabled, and never fetched.
//
// # Usage
//
//	c := crawler.NewCoordinator(f, crawler.WithConcurrency(8), crawler.WithSink(appender))
//	events := c.Subscribe(64)
//	if err := c.Start(ctx, "https://example.com"); err != nil {
//		return err
//	}
//	for ev := range events {
//		fmt.Println(ev.Kind, ev.URL)
//	}
//	summary, err := c.Wait()
package crawler
