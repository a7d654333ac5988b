package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitemapper/internal/config"
	"github.com/nao1215/sitemapper/internal/database"
	"github.com/nao1215/sitemapper/internal/model"
	"github.com/nao1215/sitemapper/internal/replay"
)

// NewReplayCmd creates the replay command.
func NewReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay [url-file]",
		Short: "Send URLs through a proxy",
		Long: `Replay requests every URL once so it shows up in the history of an
intercepting proxy such as Burp, ZAP or mitmproxy.

URLs come from a file (any format 'sitemapper list' accepts) or, without a
file, from the crawl store: by default the fetched URLs of the latest run.

Examples:
  # Populate Burp with the last crawl
  sitemapper replay -x 127.0.0.1:8080 --insecure

  # Replay a specific run, only under /api
  sitemapper replay -x 127.0.0.1:8080 --run 3f2a... --prefix https://example.com/api

  # Replay a file with eight workers
  sitemapper replay -x 127.0.0.1:8080 -n 8 urls.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: runReplayCmd,
	}

	addProxyFlags(cmd)
	cmd.Flags().IntP("workers", "n", config.DefaultReplayWorkers,
		"Number of concurrent requests")
	cmd.Flags().String("run", "",
		"Replay the URLs of this run ID instead of the latest run")
	cmd.Flags().String("prefix", "",
		"Only replay stored URLs starting with this prefix")
	cmd.Flags().Bool("all", false,
		"Also replay stored URLs that failed or were never fetched")

	return cmd
}

// runReplayCmd executes the replay command.
func runReplayCmd(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	cfg.DBDir = dataDir(cmd)
	if err := readProxyFlags(cmd, cfg); err != nil {
		return err
	}
	workers, err := cmd.Flags().GetInt("workers")
	if err != nil {
		return err
	}
	if workers <= 0 {
		return fmt.Errorf("configuration error: %w", config.ErrInvalidConcurrency)
	}

	ctx := cmd.Context()
	var urls []model.URL
	if len(args) == 1 {
		urls, err = readURLs(args[0], logger)
	} else {
		urls, err = storedURLs(ctx, cmd, cfg.DBDir)
	}
	if err != nil {
		return err
	}

	if cfg.ProxyAddress == "" && !cfg.UseTor {
		logger.Warn("no proxy configured, requests go directly to the target")
	}
	addr, stopProxy, err := resolveProxy(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer stopProxy()

	// Hosts may differ, so only the default site settings apply.
	f, err := newFetcher(cfg, siteConfig(cfg, ""), addr, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	r := replay.New(f,
		replay.WithConcurrency(workers),
		replay.WithLogger(logger),
		replay.WithProgress(func(p replay.Progress) {
			status := "ERR"
			if p.Result.Status == model.FetchSuccess {
				status = fmt.Sprintf("%d", p.Result.StatusCode)
			}
			fmt.Fprintf(out, "[%d/%d] %s %s\n", p.Done, p.Total, status, p.Result.URL)
		}),
	)

	summary, err := r.Run(ctx, urls)
	if summary != nil {
		fmt.Fprintf(out, "\nReplayed %d of %d URLs in %s (%d failed)\n",
			summary.Sent, len(urls), summary.Elapsed.Round(time.Millisecond), summary.Failed)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// storedURLs selects the URLs to replay from the crawl store.
func storedURLs(ctx context.Context, cmd *cobra.Command, dir string) ([]model.URL, error) {
	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return nil, err
	}
	prefix, err := cmd.Flags().GetString("prefix")
	if err != nil {
		return nil, err
	}
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return nil, err
	}

	db, err := openStore(dir, false)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if runID == "" {
		runs, err := db.ListRuns(ctx, 1)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("no runs in the crawl store: %w", database.ErrNotFound)
		}
		runID = runs[0].ID
	}

	// External URLs were never in scope, so they are not replayed.
	filter := database.RecordFilter{
		Prefix: prefix,
		RunID:  runID,
		States: []model.RecordState{model.RecordFetched},
	}
	if all {
		filter.States = append(filter.States, model.RecordFailed, model.RecordQueued)
	}
	records, err := db.ListRecords(ctx, filter)
	if err != nil {
		return nil, err
	}
	return recordURLs(records, slog.Default()), nil
}

// recordURLs converts stored records back into URLs. Records whose URL no
// longer normalizes are skipped.
func recordURLs(records []*model.Record, logger *slog.Logger) []model.URL {
	urls := make([]model.URL, 0, len(records))
	for _, rec := range records {
		u, err := model.NormalizeURL(rec.URL, nil)
		if err != nil {
			logger.Warn("skipping stored url", "url", rec.URL, "error", err)
			continue
		}
		urls = append(urls, u)
	}
	return urls
}
