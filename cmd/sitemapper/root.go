package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitemapper/internal/config"
	"github.com/nao1215/sitemapper/internal/log"
)

// NewRootCmd creates the root command for sitemapper.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitemapper",
		Short: "Discover every page of a website and write a sitemap",
		Long: `sitemapper crawls a website from a seed URL, follows every link that stays
on the seed's host, and writes the discovered URLs to a sitemap file.

Traffic can be routed through an intercepting proxy (Burp, ZAP, mitmproxy)
or an embedded Tor daemon. Per-URL results are stored locally so an
interrupted crawl can be resumed and its results exported later.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-level", "",
		"Log level: debug, info, warn or error (default warn, debug with --verbose)")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().String("data-dir", "",
		"Directory of the crawl store (default: XDG data directory)")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewReplayCmd())
	cmd.AddCommand(NewDataCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, log.RedactURLs(err.Error()))
		os.Exit(1)
	}
}

// newLogger builds the secure logger described by the global flags.
// Logs go to the command's error stream.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}
	name, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}
	asJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	if verbose && name == "" {
		level = slog.LevelDebug
	}

	logger := log.NewLogger(cmd.ErrOrStderr(), log.Options{Level: level, JSON: asJSON})
	slog.SetDefault(logger)
	return logger, nil
}

// dataDir returns the crawl store directory selected by --data-dir.
func dataDir(cmd *cobra.Command) string {
	dir, err := cmd.Flags().GetString("data-dir")
	if err != nil || dir == "" {
		return config.XDGDataDir()
	}
	return dir
}
