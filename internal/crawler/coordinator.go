package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitemapper/internal/frontier"
	"github.com/nao1215/sitemapper/internal/model"
)

// Default coordinator settings.
const (
	// DefaultConcurrency is the number of fetches in flight when
	// WithConcurrency is not given.
	DefaultConcurrency = 4
)

// Stop and completion reasons reported in events and run summaries.
const (
	reasonFrontierExhausted = "frontier exhausted"
	reasonPageLimit         = "page limit reached"
	reasonStopRequested     = "stopped by request"
	reasonContextDone       = "context cancelled"
)

// Coordinator drives one crawl run at a time.
//
// It owns the frontier and the discovered set for the current run and
// dispatches fetches to a bounded worker pool. A single loop goroutine is
// the only writer of crawl state, so results are accepted one at a time.
//
// Lifecycle:
//
//	Idle -> Running -> {Completed, Stopped, Failed}
//	Running <-> Paused
//
// After a run ends the coordinator must be Reset before it can start again.
type Coordinator struct {
	fetcher Fetcher

	concurrency    int
	maxPages       int
	maxDepth       int
	limiter        *HostLimiter
	recordExternal bool
	pathPrefix     string
	filter         PathFilter
	store          Store
	sink           Sink
	logger         *slog.Logger
	runID          string
	resume         []*model.Record

	// wake nudges the loop after a lifecycle request.
	wake chan struct{}

	mu          sync.Mutex
	status      model.RunStatus
	reason      string
	run         *runState
	subscribers []chan model.Event
	pending     []model.EventKind
	done        chan struct{}
	summary     model.RunSummary
	runErr      error
}

// runState is the state of one run. Fields marked "loop" are only touched
// by the loop goroutine; the rest are guarded by Coordinator.mu.
type runState struct {
	id         string
	mode       model.RunMode
	seed       string
	scope      model.Scope
	seeds      []model.URL
	rejected   []rejectedInput
	resume     []*model.Record
	frontier   *frontier.Frontier
	discovered *frontier.DiscoveredSet
	startedAt  time.Time

	stats    model.RunStats
	inFlight int

	dispatched int   // loop
	ioErr      error // loop
}

// rejectedInput is a list entry that failed normalization.
type rejectedInput struct {
	raw string
	err error
}

// outcome is what a worker hands back to the loop.
type outcome struct {
	entry      frontier.Entry
	result     *model.FetchResult
	title      string
	links      []model.URL
	redirected bool
}

// RunSnapshot is a point-in-time view of the coordinator.
type RunSnapshot struct {
	ID           string
	Mode         model.RunMode
	Seed         string
	Status       model.RunStatus
	Reason       string
	Scope        model.Scope
	Stats        model.RunStats
	FrontierSize int
	SeenCount    int
	Discovered   int
	InFlight     int
	StartedAt    time.Time
}

// NewCoordinator creates an idle coordinator that fetches through f.
func NewCoordinator(f Fetcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher:        f,
		concurrency:    DefaultConcurrency,
		recordExternal: true,
		logger:         slog.New(slog.DiscardHandler),
		wake:           make(chan struct{}, 1),
		status:         model.RunIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Start begins crawling from seed and returns immediately.
//
// Only links on the seed's host (and under the configured path prefix) are
// followed. An unusable seed ends the run as Failed and returns an error
// wrapping ErrInvalidSeed; no fetch is made in that case.
//
// ctx bounds the whole run: cancelling it stops the run the same way Stop does.
func (c *Coordinator) Start(ctx context.Context, seed string) error {
	c.mu.Lock()
	if err := c.startableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}

	u, err := model.NormalizeURL(seed, nil)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidSeed, err)
		c.failLocked(ctx, model.RunModeCrawl, seed, model.ErrorKindInvalidURL, err)
		return err
	}

	rs := c.newRunLocked(model.RunModeCrawl, seed)
	rs.scope = model.NewScope(u, c.pathPrefix)
	rs.seeds = []model.URL{u}
	rs.resume = c.resume
	c.launchLocked(ctx, rs)
	return nil
}

// StartList fetches every URL in urls without following links and returns
// immediately. Entries that cannot be normalized are reported as
// fetch-error events. If no entry is usable the run ends Failed with an
// error wrapping ErrNoSeeds.
func (c *Coordinator) StartList(ctx context.Context, urls []string) error {
	c.mu.Lock()
	if err := c.startableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}

	seeds := make([]model.URL, 0, len(urls))
	rejected := make([]rejectedInput, 0)
	for _, raw := range urls {
		u, err := model.NormalizeURL(raw, nil)
		if err != nil {
			rejected = append(rejected, rejectedInput{raw: raw, err: err})
			continue
		}
		seeds = append(seeds, u)
	}

	label := fmt.Sprintf("%d urls", len(urls))
	if len(seeds) == 0 {
		c.failLocked(ctx, model.RunModeList, label, model.ErrorKindConfig, ErrNoSeeds)
		return ErrNoSeeds
	}

	rs := c.newRunLocked(model.RunModeList, label)
	rs.seeds = seeds
	rs.rejected = rejected
	c.launchLocked(ctx, rs)
	return nil
}

// Run starts a crawl from seed and blocks until it ends.
func (c *Coordinator) Run(ctx context.Context, seed string) (model.RunSummary, error) {
	if err := c.Start(ctx, seed); err != nil {
		return c.lastSummary(), err
	}
	return c.Wait()
}

// Wait blocks until the current run ends and returns its summary.
//
// The error is non-nil when the run Failed, or when persisting records or
// writing the sitemap failed during an otherwise finished run.
func (c *Coordinator) Wait() (model.RunSummary, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return model.RunSummary{}, ErrNotRunning
	}

	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary, c.runErr
}

// Pause suspends dispatch. Fetches already in flight still complete and
// their results are recorded.
func (c *Coordinator) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != model.RunRunning {
		return ErrNotRunning
	}
	c.status = model.RunPaused
	c.pending = append(c.pending, model.EventPaused)
	c.poke()
	return nil
}

// Resume continues dispatch after Pause.
func (c *Coordinator) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != model.RunPaused {
		return ErrNotRunning
	}
	c.status = model.RunRunning
	c.pending = append(c.pending, model.EventResumed)
	c.poke()
	return nil
}

// Stop halts dispatch. In-flight fetches drain, their results are recorded,
// and the stopped event is emitted once nothing is in flight. The links
// they carry are stored as queued but not fetched.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked(reasonStopRequested)
}

// Reset returns a finished coordinator to Idle so that a new run can start.
func (c *Coordinator) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		select {
		case <-c.done:
		default:
			return ErrAlreadyRunning
		}
	}
	c.status = model.RunIdle
	c.reason = ""
	c.run = nil
	c.done = nil
	c.summary = model.RunSummary{}
	c.runErr = nil
	c.pending = nil
	return nil
}

// Status returns the current lifecycle status.
func (c *Coordinator) Status() model.RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Subscribe returns a channel that receives every event of the current (or
// next) run. The channel is closed after the run's terminal event.
//
// Events are delivered in order and never dropped, so a subscriber must keep
// draining its channel; a stalled subscriber stalls the crawl.
func (c *Coordinator) Subscribe(buffer int) <-chan model.Event {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan model.Event, buffer)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Terminal() {
		close(ch)
		return ch
	}
	c.subscribers = append(c.subscribers, ch)
	return ch
}

// Snapshot returns the current state of the coordinator.
func (c *Coordinator) Snapshot() RunSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := RunSnapshot{Status: c.status, Reason: c.reason}
	rs := c.run
	if rs == nil {
		return snap
	}
	snap.ID = rs.id
	snap.Mode = rs.mode
	snap.Seed = rs.seed
	snap.Scope = rs.scope
	snap.Stats = rs.stats.Clone()
	snap.FrontierSize = rs.frontier.Len()
	snap.SeenCount = rs.frontier.SeenCount()
	snap.Discovered = rs.discovered.Len()
	snap.InFlight = rs.inFlight
	snap.StartedAt = rs.startedAt
	return snap
}

// Discovered returns the discovered set of the current (or last) run in
// acceptance order.
func (c *Coordinator) Discovered() []frontier.Discovery {
	c.mu.Lock()
	rs := c.run
	c.mu.Unlock()
	if rs == nil {
		return nil
	}
	return rs.discovered.Snapshot()
}

func (c *Coordinator) startableLocked() error {
	switch {
	case c.status == model.RunRunning || c.status == model.RunPaused:
		return ErrAlreadyRunning
	case c.status.Terminal():
		return ErrNotIdle
	default:
		return nil
	}
}

func (c *Coordinator) newRunLocked(mode model.RunMode, seed string) *runState {
	id := c.runID
	if id == "" {
		id = uuid.NewString()
	}
	return &runState{
		id:         id,
		mode:       mode,
		seed:       seed,
		frontier:   frontier.New(),
		discovered: frontier.NewDiscoveredSet(),
		startedAt:  time.Now(),
		stats: model.RunStats{
			Errors:      make(map[model.ErrorKind]int),
			StatusCodes: make(map[int]int),
		},
	}
}

// launchLocked moves to Running and starts the loop. It releases c.mu.
func (c *Coordinator) launchLocked(ctx context.Context, rs *runState) {
	done := make(chan struct{})
	c.run = rs
	c.status = model.RunRunning
	c.reason = ""
	c.done = done
	c.pending = nil
	c.summary = model.RunSummary{}
	c.runErr = nil
	// Run ID and resume records apply to a single run.
	c.runID = ""
	c.resume = nil
	c.mu.Unlock()

	go c.loop(ctx, rs, done)
}

// failLocked ends a run that never started. It releases c.mu.
func (c *Coordinator) failLocked(ctx context.Context, mode model.RunMode, seed string, kind model.ErrorKind, err error) {
	rs := c.newRunLocked(mode, seed)
	done := make(chan struct{})
	c.run = rs
	c.status = model.RunFailed
	c.reason = err.Error()
	c.done = done
	c.runErr = err
	c.runID = ""
	c.resume = nil
	summary := c.summaryLocked(rs)
	summary.FinishedAt = time.Now()
	c.summary = summary
	subs := c.subscribers
	c.subscribers = nil
	c.mu.Unlock()

	c.logger.Error("crawl failed", "seed", seed, "error", err)
	c.saveRun(ctx, &summary)
	broadcast(subs, model.Event{
		Kind:      model.EventFailed,
		Time:      time.Now(),
		ErrorKind: kind,
		Message:   err.Error(),
		Reason:    err.Error(),
	})
	for _, ch := range subs {
		close(ch)
	}
	close(done)
}

func (c *Coordinator) stopLocked(reason string) error {
	if c.status != model.RunRunning && c.status != model.RunPaused {
		return ErrNotRunning
	}
	c.status = model.RunStopped
	c.reason = reason
	c.poke()
	return nil
}

func (c *Coordinator) poke() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Coordinator) lastSummary() model.RunSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}

func (c *Coordinator) summaryLocked(rs *runState) model.RunSummary {
	return model.RunSummary{
		ID:           rs.id,
		Mode:         rs.mode,
		Seed:         rs.seed,
		Scope:        rs.scope,
		Status:       c.status,
		Reason:       c.reason,
		StartedAt:    rs.startedAt,
		FrontierSize: rs.frontier.Len(),
		Stats:        rs.stats.Clone(),
	}
}

// loop dispatches work and accepts results until the run ends.
func (c *Coordinator) loop(ctx context.Context, rs *runState, done chan struct{}) {
	c.logger.Info("crawl started", "run", rs.id, "mode", string(rs.mode), "seed", rs.seed,
		"concurrency", c.concurrency)

	c.mu.Lock()
	summary := c.summaryLocked(rs)
	c.mu.Unlock()
	c.saveRun(ctx, &summary)

	c.restore(ctx, rs)
	for _, in := range rs.rejected {
		c.countError(rs, model.ErrorKindInvalidURL)
		c.emit(model.Event{
			Kind:      model.EventFetchError,
			URL:       in.raw,
			ErrorKind: model.ErrorKindInvalidURL,
			Message:   in.err.Error(),
		})
	}
	for _, u := range rs.seeds {
		c.enqueue(ctx, rs, u, 0)
	}

	results := make(chan outcome, c.concurrency)
	var g errgroup.Group
	g.SetLimit(c.concurrency)

	ctxDone := ctx.Done()
	limitReached := false

	for {
		c.flushPending()

		c.mu.Lock()
		if ctxDone != nil && ctx.Err() != nil {
			ctxDone = nil
			_ = c.stopLocked(reasonContextDone)
		}
		status := c.status
		inFlight := rs.inFlight
		c.mu.Unlock()

		if status == model.RunRunning {
			for inFlight < c.concurrency {
				if c.maxPages > 0 && rs.dispatched >= c.maxPages {
					limitReached = true
					break
				}
				entry, ok := rs.frontier.Take()
				if !ok {
					break
				}
				rs.dispatched++
				inFlight++
				c.mu.Lock()
				rs.inFlight = inFlight
				c.mu.Unlock()

				g.Go(func() error {
					results <- c.work(ctx, rs, entry)
					return nil
				})
			}
		}

		if inFlight == 0 {
			final, reason, ended := c.endState(rs, status, limitReached)
			if ended {
				_ = g.Wait()
				c.finish(ctx, rs, done, final, reason)
				return
			}
		}

		select {
		case out := <-results:
			c.mu.Lock()
			rs.inFlight--
			c.mu.Unlock()
			c.accept(ctx, rs, out)
		case <-c.wake:
		case <-ctxDone:
			ctxDone = nil
			c.mu.Lock()
			_ = c.stopLocked(reasonContextDone)
			c.mu.Unlock()
		}
	}
}

// endState decides whether an idle loop is done.
func (c *Coordinator) endState(rs *runState, status model.RunStatus, limitReached bool) (model.RunStatus, string, bool) {
	switch {
	case status == model.RunStopped:
		return model.RunStopped, "", true
	case status == model.RunRunning && limitReached:
		return model.RunCompleted, reasonPageLimit, true
	case status == model.RunRunning && rs.frontier.IsEmpty():
		return model.RunCompleted, reasonFrontierExhausted, true
	default:
		return status, "", false
	}
}

// work fetches one entry. It runs on a worker goroutine and must not touch
// loop-owned state.
func (c *Coordinator) work(ctx context.Context, rs *runState, entry frontier.Entry) outcome {
	out := outcome{entry: entry}

	if err := c.limiter.Wait(ctx, entry.URL.Host()); err != nil {
		out.result = model.NewErrorResult(entry.URL, model.ErrorKindTransport,
			fmt.Sprintf("cancelled while waiting for %s: %v", entry.URL.Host(), err))
		return out
	}

	res := c.fetcher.Fetch(ctx, entry.URL)
	out.result = res
	if !res.OK() {
		return out
	}
	if rs.mode == model.RunModeCrawl {
		out.redirected = !res.FinalURL.IsZero() && !res.FinalURL.Equal(entry.URL)
	}
	if !res.IsHTML() {
		return out
	}

	out.title = ExtractTitle(res.Body)
	if rs.mode != model.RunModeCrawl {
		return out
	}
	if c.maxDepth > 0 && entry.Depth >= c.maxDepth {
		return out
	}
	for link := range ExtractLinks(res.Body, res.FinalURL) {
		out.links = append(out.links, link)
	}
	return out
}

// accept records one fetch outcome and offers its links.
func (c *Coordinator) accept(ctx context.Context, rs *runState, out outcome) {
	res := out.result
	rec := model.NewRecordFromResult(rs.id, out.entry.Depth, res)
	rec.Title = out.title
	if out.redirected && res.OK() {
		rec.State = model.RecordRedirected
	}
	c.persist(ctx, rs, rec)

	c.mu.Lock()
	rs.stats.Fetched++
	if res.Status == model.FetchSuccess {
		rs.stats.StatusCodes[res.StatusCode]++
	}
	if res.OK() {
		rs.stats.Succeeded++
	} else {
		rs.stats.Errors[res.FailureKind()]++
	}
	c.mu.Unlock()

	// Links are offered even after Stop so that they are persisted as queued
	// and a resumed run can pick them up. The loop no longer dispatches them.
	if res.OK() {
		c.logger.Debug("fetched", "url", res.URL.String(), "status", res.StatusCode,
			"links", len(out.links), "elapsed", res.Elapsed)
		if out.redirected {
			c.settleRedirect(ctx, rs, out, rec)
		} else {
			c.discover(ctx, rs, out.entry.URL, false)
		}
		for _, link := range out.links {
			c.offer(ctx, rs, link, out.entry.Depth+1)
		}
	} else {
		c.logger.Debug("fetch failed", "url", res.URL.String(), "kind", string(res.FailureKind()),
			"message", res.FailureMessage(), "attempts", res.Attempts)
		c.emit(model.Event{
			Kind:      model.EventFetchError,
			URL:       out.entry.URL.String(),
			ErrorKind: res.FailureKind(),
			Message:   res.FailureMessage(),
		})
	}

	c.emit(model.Event{
		Kind:         model.EventProgress,
		Fetched:      c.fetchedCount(rs),
		FrontierSize: rs.frontier.Len(),
		Discovered:   rs.discovered.Len(),
	})
}

// settleRedirect records the final URL of a redirected fetch in place of the
// requested one. The final URL is marked seen so it is not fetched twice.
func (c *Coordinator) settleRedirect(ctx context.Context, rs *runState, out outcome, rec *model.Record) {
	final := out.result.FinalURL
	if !rs.scope.Contains(final) {
		c.offer(ctx, rs, final, out.entry.Depth)
		return
	}
	if !rs.frontier.MarkSeen(final) {
		return
	}
	if !c.filter.Allow(final) {
		return
	}
	target := *rec
	target.URL = final.String()
	target.State = model.RecordFetched
	c.persist(ctx, rs, &target)
	c.discover(ctx, rs, final, false)
}

// offer applies scope, depth and path rules to a discovered link.
func (c *Coordinator) offer(ctx context.Context, rs *runState, u model.URL, depth int) {
	if !rs.scope.Contains(u) {
		if !c.recordExternal || !rs.frontier.MarkSeen(u) {
			return
		}
		c.persist(ctx, rs, &model.Record{
			URL:       u.String(),
			State:     model.RecordExternal,
			RunID:     rs.id,
			Depth:     depth,
			Timestamp: time.Now(),
		})
		c.discover(ctx, rs, u, true)
		return
	}

	if c.maxDepth > 0 && depth > c.maxDepth {
		return
	}
	if !c.filter.Allow(u) {
		rs.frontier.MarkSeen(u)
		return
	}
	c.enqueue(ctx, rs, u, depth)
}

// enqueue adds u to the frontier and persists it as queued.
func (c *Coordinator) enqueue(ctx context.Context, rs *runState, u model.URL, depth int) {
	if !rs.frontier.OfferAt(u, depth) {
		return
	}
	c.persist(ctx, rs, &model.Record{
		URL:       u.String(),
		State:     model.RecordQueued,
		RunID:     rs.id,
		Depth:     depth,
		Timestamp: time.Now(),
	})
}

// discover appends u to the discovered set, the sink and the event stream.
func (c *Coordinator) discover(ctx context.Context, rs *runState, u model.URL, external bool) {
	if !rs.discovered.Add(u, external) {
		return
	}

	c.mu.Lock()
	rs.stats.Discovered = rs.discovered.Len()
	if external {
		rs.stats.External++
	}
	c.mu.Unlock()

	if c.sink != nil {
		if err := c.sink.Append(u); err != nil {
			c.ioFailure(rs, fmt.Errorf("failed to append %s to sitemap: %w", u, err))
		}
	}
	c.emit(model.Event{
		Kind:     model.EventDiscovered,
		URL:      u.String(),
		External: external,
	})
}

// restore replays persisted records from an earlier, interrupted run.
func (c *Coordinator) restore(ctx context.Context, rs *runState) {
	if len(rs.resume) == 0 {
		return
	}
	requeued := 0
	for _, rec := range rs.resume {
		u, err := model.NormalizeURL(rec.URL, nil)
		if err != nil {
			continue
		}
		switch rec.State {
		case model.RecordFetched:
			if rs.frontier.MarkSeen(u) {
				c.discover(ctx, rs, u, false)
			}
		case model.RecordRedirected:
			rs.frontier.MarkSeen(u)
		case model.RecordExternal:
			if c.recordExternal && rs.frontier.MarkSeen(u) {
				c.discover(ctx, rs, u, true)
			}
		case model.RecordQueued, model.RecordFailed:
			if rs.scope.Contains(u) && rs.frontier.OfferAt(u, rec.Depth) {
				requeued++
			}
		}
	}
	rs.resume = nil
	c.logger.Info("resumed crawl", "run", rs.id, "discovered", rs.discovered.Len(), "requeued", requeued)
}

// finish flushes output, records the summary and emits the terminal event.
func (c *Coordinator) finish(ctx context.Context, rs *runState, done chan struct{}, status model.RunStatus, reason string) {
	if c.sink != nil {
		if err := c.sink.Flush(); err != nil {
			c.ioFailure(rs, fmt.Errorf("failed to flush sitemap: %w", err))
		}
	}

	c.mu.Lock()
	c.status = status
	if reason != "" {
		c.reason = reason
	}
	summary := c.summaryLocked(rs)
	summary.FinishedAt = time.Now()
	c.summary = summary
	c.runErr = rs.ioErr
	subs := c.subscribers
	c.subscribers = nil
	c.mu.Unlock()

	c.saveRun(ctx, &summary)

	kind := model.EventCompleted
	if status == model.RunStopped {
		kind = model.EventStopped
	}
	c.logger.Info("crawl finished", "run", rs.id, "status", status.String(), "reason", summary.Reason,
		"fetched", summary.Stats.Fetched, "discovered", summary.Stats.Discovered,
		"errors", summary.Stats.TotalErrors(), "elapsed", summary.Duration())

	broadcast(subs, model.Event{
		Kind:         kind,
		Time:         time.Now(),
		Reason:       summary.Reason,
		Fetched:      summary.Stats.Fetched,
		FrontierSize: summary.FrontierSize,
		Discovered:   summary.Stats.Discovered,
	})
	for _, ch := range subs {
		close(ch)
	}
	close(done)
}

func (c *Coordinator) persist(ctx context.Context, rs *runState, rec *model.Record) {
	if c.store == nil {
		return
	}
	if err := c.store.PutRecord(context.WithoutCancel(ctx), rec); err != nil {
		c.ioFailure(rs, fmt.Errorf("failed to persist %s: %w", rec.URL, err))
	}
}

func (c *Coordinator) saveRun(ctx context.Context, summary *model.RunSummary) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveRun(context.WithoutCancel(ctx), summary); err != nil {
		c.logger.Warn("failed to save run summary", "run", summary.ID, "error", err)
	}
}

// ioFailure counts a persistence or sitemap failure. The crawl continues;
// the first failure is returned from Wait.
func (c *Coordinator) ioFailure(rs *runState, err error) {
	c.logger.Warn("io failure", "run", rs.id, "error", err)
	c.countError(rs, model.ErrorKindIO)
	if rs.ioErr == nil {
		rs.ioErr = err
	}
}

func (c *Coordinator) countError(rs *runState, kind model.ErrorKind) {
	c.mu.Lock()
	rs.stats.Errors[kind]++
	c.mu.Unlock()
}

func (c *Coordinator) fetchedCount(rs *runState) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return rs.stats.Fetched
}

// flushPending emits queued lifecycle events from the loop goroutine, so they
// stay ordered with the rest of the stream.
func (c *Coordinator) flushPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, kind := range pending {
		c.emit(model.Event{Kind: kind})
	}
}

// emit delivers ev to every subscriber. Only the loop goroutine emits.
func (c *Coordinator) emit(ev model.Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	c.mu.Lock()
	subs := make([]chan model.Event, len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()
	broadcast(subs, ev)
}

func broadcast(subs []chan model.Event, ev model.Event) {
	for _, ch := range subs {
		ch <- ev
	}
}

// IsLifecycleError reports whether err is a lifecycle violation rather than
// a crawl failure.
func IsLifecycleError(err error) bool {
	return errors.Is(err, ErrAlreadyRunning) || errors.Is(err, ErrNotIdle) || errors.Is(err, ErrNotRunning)
}
