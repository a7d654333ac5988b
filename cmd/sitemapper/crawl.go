package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitemapper/internal/config"
	"github.com/nao1215/sitemapper/internal/crawler"
	"github.com/nao1215/sitemapper/internal/database"
	"github.com/nao1215/sitemapper/internal/model"
	"github.com/nao1215/sitemapper/internal/report"
	"github.com/nao1215/sitemapper/internal/sitemap"
)

// errResumeWithoutStore is returned for --resume combined with --no-store.
var errResumeWithoutStore = errors.New("--resume needs the crawl store (remove --no-store)")

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <seed-url>",
		Short: "Crawl a website and write its sitemap",
		Long: `Crawl fetches the seed URL, follows every link that stays on the seed's host
(and under --prefix, if given), and appends each discovered URL to the
sitemap file as soon as it is found.

Links to other hosts are recorded in the sitemap but never fetched; use
--external=false to leave them out. A page reached through a redirect is
listed under its final URL. Press Ctrl+C once to stop after the requests
in flight, twice to abort immediately; links found by those requests are
kept for --resume.

Examples:
  # Crawl a site into sitemap.txt
  sitemapper crawl https://example.com

  # Route through Burp and only crawl the /docs section
  sitemapper crawl -x 127.0.0.1:8080 --insecure --prefix /docs https://example.com

  # Be gentle: two workers, half a second between requests
  sitemapper crawl -n 2 -d 500ms https://example.com

  # Continue an interrupted crawl and write a Markdown report
  sitemapper crawl --resume --report md --report-file report.md https://example.com

Configuration file (.sitemapper) example:
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      ignorePatterns:
        - "/logout*"`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	addProxyFlags(cmd)

	// Crawl behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of requests in flight at once")
	cmd.Flags().IntP("retries", "r", config.DefaultRetryCount,
		"Extra attempts after a connection failure")
	cmd.Flags().Duration("retry-delay", config.DefaultRetryDelay,
		"Wait between attempts")
	cmd.Flags().Int("max-redirects", config.DefaultMaxRedirects,
		"Redirects followed before a request fails")
	cmd.Flags().DurationP("delay", "d", config.DefaultCrawlDelay,
		"Delay between requests to the same host")
	cmd.Flags().Float64("rate", 0,
		"Maximum requests per second per host (0 = unlimited)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Stop after this many requests (0 = unlimited)")
	cmd.Flags().Int("depth", config.DefaultMaxDepth,
		"Maximum link depth from the seed (0 = unlimited)")
	cmd.Flags().String("prefix", "",
		"Only crawl paths under this prefix, e.g. /docs")
	cmd.Flags().Bool("external", true,
		"Record links to other hosts in the sitemap")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum decoded response body size in bytes")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"Sitemap file path")
	cmd.Flags().Bool("resume", false,
		"Continue the last crawl of the same seed from the store")
	cmd.Flags().Bool("no-store", false,
		"Do not persist results to the crawl store")
	cmd.Flags().String("report", config.ReportText,
		"Report format: text, json or md")
	cmd.Flags().String("report-file", "",
		"Write the report to this file instead of stdout")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.Resume && !cfg.SaveToDB {
		return fmt.Errorf("configuration error: %w", errResumeWithoutStore)
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	return runCrawl(cmd.Context(), cmd, cfg, logger)
}

// buildCrawlConfig creates a Config from cobra command flags.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	if len(args) > 0 {
		cfg.Seed = args[0]
	}
	cfg.DBDir = dataDir(cmd)

	if err := readProxyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	var err error
	flags := cmd.Flags()
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.RetryCount, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = flags.GetDuration("retry-delay"); err != nil {
		return nil, err
	}
	if cfg.MaxRedirects, err = flags.GetInt("max-redirects"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = flags.GetFloat64("rate"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.PathPrefix, err = flags.GetString("prefix"); err != nil {
		return nil, err
	}
	if cfg.RecordExternal, err = flags.GetBool("external"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.Resume, err = flags.GetBool("resume"); err != nil {
		return nil, err
	}
	noStore, err := flags.GetBool("no-store")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noStore

	format, err := flags.GetString("report")
	if err != nil {
		return nil, err
	}
	cfg.ReportFormat = config.NormalizeReportFormat(format)
	if cfg.ReportFile, err = flags.GetString("report-file"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runCrawl executes one crawl run and writes its report.
func runCrawl(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	seed, err := model.NormalizeURL(cfg.Seed, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", crawler.ErrInvalidSeed, err)
	}
	site := siteConfig(cfg, seed.Host())

	logger.Info("starting crawl",
		"seed", seed.String(),
		"concurrency", cfg.Concurrency,
		"maxPages", cfg.MaxPages,
		"saveToDB", cfg.SaveToDB,
	)

	addr, stopProxy, err := resolveProxy(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer stopProxy()

	f, err := newFetcher(cfg, site, addr, logger)
	if err != nil {
		return err
	}

	opts, db, err := crawlOptions(ctx, cfg, site, seed, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	appender, err := sitemap.NewAppender(cfg.OutputFile)
	if err != nil {
		return err
	}
	defer appender.Close()
	opts = append(opts, crawler.WithSink(appender))

	coord := crawler.NewCoordinator(f, opts...)
	return superviseRun(ctx, cancel, cmd, cfg, coord, appender, db, logger, func() error {
		return coord.Start(ctx, seed.String())
	})
}

// superviseRun starts a coordinator run, shows its progress, handles
// interrupts and writes the run report once it ends.
func superviseRun(
	ctx context.Context,
	cancel context.CancelFunc,
	cmd *cobra.Command,
	cfg *config.Config,
	coord *crawler.Coordinator,
	appender *sitemap.Appender,
	db *database.CrawlDB,
	logger *slog.Logger,
	start func() error,
) error {
	events := coord.Subscribe(64)
	progressDone := make(chan []*model.Record)
	go func() {
		progressDone <- followEvents(cmd.ErrOrStderr(), events, logger)
	}()

	if err := start(); err != nil {
		<-progressDone
		return err
	}

	stopSignals := handleInterrupt(cmd.ErrOrStderr(), coord, cancel, logger)
	summary, runErr := coord.Wait()
	stopSignals()
	failures := <-progressDone

	if err := appender.Close(); err != nil && runErr == nil {
		runErr = err
	}

	if db != nil {
		if stored, err := db.ListRecords(ctx, database.RecordFilter{
			RunID:  summary.ID,
			States: []model.RecordState{model.RecordFailed},
		}); err == nil {
			failures = stored
		} else {
			logger.Warn("failed to load failures from store", "error", err)
		}
	}

	rep := report.NewReport(&summary, getVersion())
	rep.Sitemap = appender.Path()
	rep.SitemapURLs = appender.Count()
	rep.Failures = failures
	if err := writeReport(cmd, cfg, rep); err != nil {
		return err
	}
	return runErr
}

// crawlOptions translates the configuration into coordinator options and
// opens the crawl store when it is enabled.
func crawlOptions(ctx context.Context, cfg *config.Config, site config.SiteConfig, seed model.URL, logger *slog.Logger) ([]crawler.Option, *database.CrawlDB, error) {
	depth := cfg.MaxDepth
	if site.Depth > 0 {
		depth = site.Depth
	}
	delay := cfg.CrawlDelay
	if site.Delay > 0 {
		delay = site.Delay
	}

	opts := []crawler.Option{
		crawler.WithLogger(logger),
		crawler.WithConcurrency(cfg.Concurrency),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithMaxDepth(depth),
		crawler.WithRecordExternal(cfg.RecordExternal),
		crawler.WithPathPrefix(cfg.PathPrefix),
		crawler.WithPathFilter(crawler.NewPathFilter(site.IgnorePatterns, site.FollowPatterns)),
	}
	if limiter := crawler.NewHostLimiter(delay, cfg.RateLimit, 1); limiter != nil {
		opts = append(opts, crawler.WithLimiter(limiter))
	}

	if !cfg.SaveToDB {
		return opts, nil, nil
	}

	db, err := openStore(cfg.DBDir, true)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("database opened", "path", db.Path())
	opts = append(opts, crawler.WithStore(db))

	if !cfg.Resume {
		return opts, db, nil
	}

	last, err := db.LastRun(ctx, seed.String())
	switch {
	case errors.Is(err, database.ErrNotFound):
		logger.Warn("no earlier run to resume, starting fresh", "seed", seed.String())
		return opts, db, nil
	case err != nil:
		_ = db.Close()
		return nil, nil, err
	}

	records, err := db.ListRecords(ctx, database.RecordFilter{RunID: last.ID})
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	logger.Info("resuming run", "run", last.ID, "records", len(records), "status", last.Status.String())
	opts = append(opts, crawler.WithRunID(last.ID), crawler.WithResume(records))
	return opts, db, nil
}

// followEvents prints a one-line progress display and collects the fetch
// errors of the run. It returns when the event stream closes.
func followEvents(w io.Writer, events <-chan model.Event, logger *slog.Logger) []*model.Record {
	failures := make([]*model.Record, 0)
	printed := false
	for ev := range events {
		switch ev.Kind {
		case model.EventProgress:
			fmt.Fprintf(w, "\rfetched %d | queued %d | discovered %d", ev.Fetched, ev.FrontierSize, ev.Discovered)
			printed = true
		case model.EventDiscovered:
			logger.Debug("discovered", "url", ev.URL, "external", ev.External)
		case model.EventFetchError:
			logger.Debug("fetch failed", "url", ev.URL, "kind", string(ev.ErrorKind), "error", ev.Message)
			failures = append(failures, &model.Record{
				URL:       ev.URL,
				State:     model.RecordFailed,
				ErrorKind: ev.ErrorKind,
				Message:   ev.Message,
				Timestamp: ev.Time,
			})
		case model.EventPaused, model.EventResumed:
			logger.Info("crawl " + string(ev.Kind))
		case model.EventCompleted, model.EventStopped, model.EventFailed:
			if printed {
				fmt.Fprintln(w)
			}
			logger.Info("crawl "+string(ev.Kind), "reason", ev.Reason)
		}
	}
	return failures
}

// handleInterrupt turns the first SIGINT/SIGTERM into a graceful Stop and
// the second into cancellation. The returned function unregisters it.
func handleInterrupt(w io.Writer, coord *crawler.Coordinator, cancel context.CancelFunc, logger *slog.Logger) func() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-sigCh:
		case <-done:
			return
		}
		logger.Info("received shutdown signal, stopping...")
		fmt.Fprintln(w, "\nStopping after requests in flight (press Ctrl+C again to abort)...")
		if err := coord.Stop(); err != nil {
			logger.Debug("stop ignored", "error", err)
		}

		select {
		case <-sigCh:
			logger.Info("received second signal, aborting")
			cancel()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// writeReport renders rep in the configured format.
func writeReport(cmd *cobra.Command, cfg *config.Config, rep *report.Report) (err error) {
	out, closeOut, err := openOutput(cfg.ReportFile, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOut(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var w report.Writer
	switch cfg.ReportFormat {
	case config.ReportJSON:
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	case config.ReportMarkdown:
		w = report.NewMarkdownWriter(out)
	default:
		w = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
	if _, err := w.Write(rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if cfg.ReportFile != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", cfg.ReportFile)
	}
	return nil
}
