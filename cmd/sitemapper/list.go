package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitemapper/internal/config"
	"github.com/nao1215/sitemapper/internal/crawler"
	"github.com/nao1215/sitemapper/internal/model"
	"github.com/nao1215/sitemapper/internal/sitemap"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <url-file>",
		Short: "Build a sitemap from a file of URLs",
		Long: `List reads URLs from a file and writes them to a sitemap without crawling.

The file may be a plain list, an XML sitemap, saved HTML or log output:
every line is split on '<', '>' and '"' and each piece that is an absolute
http(s) URL is kept. Protocol-relative URLs ("//host/path") are read as
https. Duplicates are removed and the input order is preserved.

With --verify every URL is fetched once (links are not followed) and only
the URLs that answered are written, together with a run report.

Examples:
  # Normalize and deduplicate a list
  sitemapper list urls.txt -o sitemap.txt

  # Turn an XML sitemap into a plain list, checking every URL
  sitemapper list --verify sitemap.xml`,
		Args: cobra.ExactArgs(1),
		RunE: runListCmd,
	}

	addProxyFlags(cmd)
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"Sitemap file path")
	cmd.Flags().Bool("verify", false,
		"Fetch every URL and keep only the ones that answered")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of requests in flight at once (with --verify)")
	cmd.Flags().IntP("retries", "r", config.DefaultRetryCount,
		"Extra attempts after a connection failure (with --verify)")
	cmd.Flags().Bool("no-store", false,
		"Do not persist results to the crawl store (with --verify)")
	cmd.Flags().String("report", config.ReportText,
		"Report format: text, json or md (with --verify)")
	cmd.Flags().String("report-file", "",
		"Write the report to this file instead of stdout (with --verify)")

	return cmd
}

// runListCmd executes the list command.
func runListCmd(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	urls, err := readURLs(args[0], logger)
	if err != nil {
		return err
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	verify, err := cmd.Flags().GetBool("verify")
	if err != nil {
		return err
	}

	if !verify {
		if err := sitemap.WriteFile(output, urls); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d URLs to %s\n", len(urls), output)
		return nil
	}

	cfg, err := buildListConfig(cmd, output)
	if err != nil {
		return err
	}
	return runVerify(cmd.Context(), cmd, cfg, urls, logger)
}

// readURLs reads a URL file. Unreadable files are fatal; malformed entries
// are logged and skipped.
func readURLs(path string, logger *slog.Logger) ([]model.URL, error) {
	urls, errs := sitemap.ReadURLFile(path)
	for _, err := range errs {
		if errors.Is(err, sitemap.ErrIO) {
			return nil, err
		}
		logger.Warn("skipping malformed url", "file", path, "error", err)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w in %s", crawler.ErrNoSeeds, path)
	}
	return urls, nil
}

// buildListConfig creates a Config for list --verify from cobra flags.
func buildListConfig(cmd *cobra.Command, output string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.OutputFile = output
	cfg.DBDir = dataDir(cmd)

	if err := readProxyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	var err error
	if cfg.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.RetryCount, err = cmd.Flags().GetInt("retries"); err != nil {
		return nil, err
	}
	noStore, err := cmd.Flags().GetBool("no-store")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noStore

	format, err := cmd.Flags().GetString("report")
	if err != nil {
		return nil, err
	}
	cfg.ReportFormat = config.NormalizeReportFormat(format)
	if cfg.ReportFile, err = cmd.Flags().GetString("report-file"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runVerify fetches every URL once through the coordinator's list mode.
func runVerify(ctx context.Context, cmd *cobra.Command, cfg *config.Config, urls []model.URL, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Validate needs a seed; in list mode the first URL stands in for it.
	cfg.Seed = urls[0].String()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// List entries may span hosts, so only the default site settings apply.
	site := siteConfig(cfg, "")

	addr, stopProxy, err := resolveProxy(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer stopProxy()

	f, err := newFetcher(cfg, site, addr, logger)
	if err != nil {
		return err
	}

	opts, db, err := crawlOptions(ctx, cfg, site, urls[0], logger)
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

	raw := make([]string, 0, len(urls))
	for _, u := range urls {
		raw = append(raw, u.String())
	}

	coord := crawler.NewCoordinator(f, opts...)
	return superviseRun(ctx, cancel, cmd, cfg, coord, appender, db, logger, func() error {
		return coord.StartList(ctx, raw)
	})
}
