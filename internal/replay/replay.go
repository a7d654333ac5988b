package replay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/sitemapper/internal/crawler"
	"github.com/nao1215/sitemapper/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the worker count used when none is configured.
const DefaultConcurrency = 4

// ErrNoURLs is returned when there is nothing to replay.
var ErrNoURLs = errors.New("no urls to replay")

// Progress describes the state of a replay after one URL completed.
type Progress struct {
	// Done is the number of completed URLs, including failures.
	Done int

	// Total is the number of URLs in the batch.
	Total int

	// Failed is the number of URLs that did not produce a non-error response.
	Failed int

	// Index is the position of Result in the input slice.
	Index int

	// Result is the URL that just completed.
	Result *model.FetchResult
}

// Summary is returned when a replay finishes.
type Summary struct {
	// Results holds one entry per input URL, in input order. Entries for
	// URLs that were never sent because of cancellation are nil.
	Results []*model.FetchResult

	// Sent is the number of URLs that were fetched.
	Sent int

	// Failed is the number of fetched URLs without a non-error response.
	Failed int

	// Elapsed is the wall-clock duration of the replay.
	Elapsed time.Duration
}

// Replayer fetches batches of URLs concurrently.
//
// Design decision: We use errgroup.SetLimit rather than a hand-written
// worker pool. Each URL gets its own goroutine, but only 'concurrency'
// goroutines run simultaneously.
type Replayer struct {
	fetcher     crawler.Fetcher
	concurrency int
	logger      *slog.Logger
	progress    func(Progress)

	// mu serializes progress callbacks and counters.
	mu sync.Mutex
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithConcurrency sets the maximum number of concurrent requests.
// Non-positive values keep the default.
func WithConcurrency(n int) Option {
	return func(r *Replayer) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Replayer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithProgress registers a callback invoked after every completed URL.
// Calls are serialized, so the callback does not need its own locking.
func WithProgress(fn func(Progress)) Option {
	return func(r *Replayer) {
		r.progress = fn
	}
}

// New creates a Replayer backed by f.
func New(f crawler.Fetcher, opts ...Option) *Replayer {
	r := &Replayer{
		fetcher:     f,
		concurrency: DefaultConcurrency,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run fetches every URL once. Per-URL failures are counted in the summary
// and never abort the batch. Cancelling ctx stops sending new requests; the
// returned error is then the context error and the summary covers what was
// sent.
func (r *Replayer) Run(ctx context.Context, urls []model.URL) (*Summary, error) {
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}

	r.logger.Info("starting replay",
		slog.Int("total", len(urls)),
		slog.Int("concurrency", r.concurrency),
	)

	start := time.Now()
	summary := &Summary{Results: make([]*model.FetchResult, len(urls))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, u := range urls {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result := r.fetcher.Fetch(gctx, u)
			if gctx.Err() != nil && result.Status == model.FetchError {
				// Interrupted, not a real failure.
				return gctx.Err()
			}

			r.mu.Lock()
			defer r.mu.Unlock()

			summary.Results[i] = result
			summary.Sent++
			if !result.OK() {
				summary.Failed++
				r.logger.Debug("replay failed",
					slog.String("url", u.String()),
					slog.String("error", result.FailureMessage()),
				)
			}
			if r.progress != nil {
				r.progress(Progress{
					Done:   summary.Sent,
					Total:  len(urls),
					Failed: summary.Failed,
					Index:  i,
					Result: result,
				})
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	summary.Elapsed = time.Since(start)

	r.logger.Info("replay complete",
		slog.Int("sent", summary.Sent),
		slog.Int("failed", summary.Failed),
		slog.Duration("elapsed", summary.Elapsed),
	)
	return summary, err
}
