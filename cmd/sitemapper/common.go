package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitemapper/internal/config"
	"github.com/nao1215/sitemapper/internal/database"
	"github.com/nao1215/sitemapper/internal/fetcher"
	"github.com/nao1215/sitemapper/internal/proxy"
)

// addProxyFlags registers the flags shared by every command that sends
// requests.
func addProxyFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("proxy", "x", "",
		"Route requests through a proxy (host:port, http://, https:// or socks5://)")
	cmd.Flags().Bool("tor", false,
		"Route requests through an embedded Tor daemon")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Bool("insecure", false,
		"Skip TLS certificate verification (e.g. behind an intercepting proxy)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .sitemapper in current or home directory)")
}

// readProxyFlags copies the shared request flags into cfg and loads the
// site configuration file.
func readProxyFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.ProxyAddress, err = cmd.Flags().GetString("proxy"); err != nil {
		return err
	}
	if cfg.UseTor, err = cmd.Flags().GetBool("tor"); err != nil {
		return err
	}
	if cfg.TorStartupTimeout, err = cmd.Flags().GetDuration("tor-timeout"); err != nil {
		return err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.InsecureTLS, err = cmd.Flags().GetBool("insecure"); err != nil {
		return err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return err
	}
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return err
	}
	if cfg.Verbose, err = cmd.Flags().GetBool("verbose"); err != nil {
		return err
	}
	if cfg.UseTor && cfg.ProxyAddress != "" {
		return config.ErrConflictingProxy
	}

	cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath)
	return err
}

// loadSiteConfigs loads the site configuration file.
// If the user explicitly specified a path, a missing file is an error.
// Otherwise an empty configuration is used when no file is found.
func loadSiteConfigs(explicitPath string) (*config.File, error) {
	path := config.FindConfigFile(explicitPath)
	if path == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
		}
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}

	cf, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	if err := cf.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cf, nil
}

// siteConfig returns the merged site configuration for host.
func siteConfig(cfg *config.Config, host string) config.SiteConfig {
	if cfg.SiteConfigs == nil {
		return config.SiteConfig{}
	}
	return cfg.SiteConfigs.GetSiteConfig(host)
}

// resolveProxy returns the proxy every request should use, or nil for
// direct connections. With --tor it starts the embedded daemon; the
// returned cleanup function stops it and must always be called.
func resolveProxy(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*proxy.Address, func(), error) {
	noop := func() {}

	if cfg.UseTor {
		return startEmbeddedTor(ctx, cmd, cfg, logger)
	}
	if cfg.ProxyAddress == "" {
		return nil, noop, nil
	}

	addr, err := proxy.ParseAddress(cfg.ProxyAddress)
	if err != nil {
		return nil, noop, err
	}
	if status := proxy.CheckConnection(ctx, addr); status != proxy.StatusOK {
		return nil, noop, fmt.Errorf("proxy check failed: %w (make sure the proxy is running at %s)",
			status.Err(), addr.HostPort())
	}
	logger.Info("proxy connection verified", "proxy", addr.String())
	return addr, noop, nil
}

// startEmbeddedTor starts an embedded Tor daemon using tornago.
func startEmbeddedTor(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*proxy.Address, func(), error) {
	errOut := cmd.ErrOrStderr()
	fmt.Fprintln(errOut, "Starting embedded Tor daemon...")
	fmt.Fprintf(errOut, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	tor := proxy.NewEmbeddedTor(proxy.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := tor.Start(ctx); err != nil {
		return nil, func() {}, fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	stop := func() {
		logger.Info("stopping embedded Tor daemon")
		if err := tor.Stop(); err != nil {
			logger.Error("failed to stop embedded Tor", "error", err)
		}
	}

	addr, err := tor.Address()
	if err != nil {
		stop()
		return nil, func() {}, err
	}
	if status := proxy.CheckConnection(ctx, addr); status != proxy.StatusOK {
		stop()
		return nil, func() {}, fmt.Errorf("embedded Tor proxy check failed: %w", status.Err())
	}

	logger.Info("embedded Tor daemon started", "socks", addr.HostPort())
	fmt.Fprintf(errOut, "SOCKS proxy: %s\n\n", addr.HostPort())
	return addr, stop, nil
}

// newFetcher builds a fetcher from the global settings and the site
// overrides for one host.
func newFetcher(cfg *config.Config, site config.SiteConfig, addr *proxy.Address, logger *slog.Logger) (*fetcher.Fetcher, error) {
	fc := fetcher.Config{
		Proxy:        addr,
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		RetryCount:   cfg.RetryCount,
		RetryDelay:   cfg.RetryDelay,
		UserAgent:    cfg.UserAgent,
		Headers:      site.Headers,
		Cookie:       site.Cookie,
		MaxBodySize:  cfg.MaxBodySize,
		InsecureTLS:  cfg.InsecureTLS,
	}
	if site.UserAgent != "" {
		fc.UserAgent = site.UserAgent
	}
	return fetcher.New(fc, fetcher.WithLogger(logger))
}

// openStore opens the crawl store in dir. With create false a missing
// store yields database.ErrDatabaseNotFound.
func openStore(dir string, create bool) (*database.CrawlDB, error) {
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = create
	db, err := database.Open(dir, opts)
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			return nil, fmt.Errorf("%w in %s (run 'sitemapper crawl' first)", err, dir)
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// openOutput returns w for an empty path, or a newly created file.
// Files are created with 0600 permissions because reports and exports may
// contain session-specific URLs.
func openOutput(path string, w io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return w, func() error { return nil }, nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// parseHeaders converts "Name: value" flag values into a header map.
func parseHeaders(values []string) (map[string]string, error) {
	headers := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (expected \"Name: value\")", v)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}
