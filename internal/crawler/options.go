package crawler

import (
	"context"
	"log/slog"

	"github.com/nao1215/sitemapper/internal/model"
)

// Fetcher fetches one URL. It must never return nil.
// *fetcher.Fetcher satisfies this interface.
type Fetcher interface {
	Fetch(ctx context.Context, u model.URL) *model.FetchResult
}

// Store persists per-URL records and run summaries as a crawl progresses.
// *database.CrawlDB satisfies this interface.
type Store interface {
	PutRecord(ctx context.Context, rec *model.Record) error
	SaveRun(ctx context.Context, run *model.RunSummary) error
}

// Sink receives every URL that enters the discovered set, in discovery order.
// *sitemap.Appender satisfies this interface.
type Sink interface {
	Append(u model.URL) error
	Flush() error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithConcurrency sets the number of fetches allowed in flight at once.
// Values below 1 are treated as 1.
func WithConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n < 1 {
			n = 1
		}
		c.concurrency = n
	}
}

// WithMaxPages caps the number of fetches dispatched in one run.
// 0 means unlimited.
func WithMaxPages(n int) Option {
	return func(c *Coordinator) {
		c.maxPages = n
	}
}

// WithMaxDepth caps the link distance from the seed. The seed is depth 0.
// 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(c *Coordinator) {
		c.maxDepth = depth
	}
}

// WithLimiter sets the per-host politeness limiter.
func WithLimiter(l *HostLimiter) Option {
	return func(c *Coordinator) {
		c.limiter = l
	}
}

// WithRecordExternal controls whether out-of-scope links are recorded into
// the discovered set (and the sitemap). They are never fetched either way.
func WithRecordExternal(record bool) Option {
	return func(c *Coordinator) {
		c.recordExternal = record
	}
}

// WithPathPrefix restricts the crawl scope to a path subtree of the seed host.
func WithPathPrefix(prefix string) Option {
	return func(c *Coordinator) {
		c.pathPrefix = prefix
	}
}

// WithPathFilter sets ignore/follow glob patterns for in-scope URLs.
func WithPathFilter(f PathFilter) Option {
	return func(c *Coordinator) {
		c.filter = f
	}
}

// WithStore persists records and run summaries.
func WithStore(s Store) Option {
	return func(c *Coordinator) {
		c.store = s
	}
}

// WithSink streams discovered URLs to s as they are accepted.
func WithSink(s Sink) Option {
	return func(c *Coordinator) {
		c.sink = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithRunID fixes the ID of the next run instead of generating one.
// Resuming a run reuses its ID so its records stay grouped.
func WithRunID(id string) Option {
	return func(c *Coordinator) {
		c.runID = id
	}
}

// WithResume seeds the next run from previously persisted records.
// Fetched and external records are restored as seen and discovered; queued
// and failed in-scope records are enqueued again at their recorded depth.
func WithResume(records []*model.Record) Option {
	return func(c *Coordinator) {
		c.resume = records
	}
}
