package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitemapper/internal/config"
	"github.com/nao1215/sitemapper/internal/crawler"
	"github.com/nao1215/sitemapper/internal/model"
	"github.com/nao1215/sitemapper/internal/report"
)

// writeSiteConfig writes a configuration file so tests never pick up a
// .sitemapper from the environment.
func writeSiteConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	flags := map[string]struct {
		shorthand string
		defValue  string
	}{
		"proxy":       {"x", ""},
		"tor":         {"", "false"},
		"concurrency": {"n", "4"},
		"timeout":     {"t", "30s"},
		"retries":     {"r", "2"},
		"delay":       {"d", "0s"},
		"max-pages":   {"p", "0"},
		"depth":       {"", "0"},
		"output":      {"o", config.DefaultOutputFile},
		"external":    {"", "true"},
		"resume":      {"", "false"},
		"no-store":    {"", "false"},
		"report":      {"", config.ReportText},
		"config":      {"c", ""},
	}
	for name, want := range flags {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			t.Errorf("expected %s flag", name)
			continue
		}
		if flag.Shorthand != want.shorthand {
			t.Errorf("%s: expected shorthand %q, got %q", name, want.shorthand, flag.Shorthand)
		}
		if flag.DefValue != want.defValue {
			t.Errorf("%s: expected default %q, got %q", name, want.defValue, flag.DefValue)
		}
	}
}

// TestBuildCrawlConfig tests flag translation.
func TestBuildCrawlConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeSiteConfig(t, dir, "sites: {}\n")

	root := NewRootCmd()
	root.SetArgs([]string{"crawl", "https://example.com/",
		"-c", cfgPath, "--data-dir", dir,
		"-n", "8", "--rate", "2.5", "--depth", "3", "--prefix", "/docs",
		"--external=false", "--no-store", "--report", "md", "-o", "out.txt",
	})
	crawlCmd, _, err := root.Find([]string{"crawl"})
	if err != nil {
		t.Fatalf("failed to find crawl command: %v", err)
	}
	crawlCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := buildCrawlConfig(cmd, args)
		if err != nil {
			return err
		}
		if cfg.Seed != "https://example.com/" || cfg.Concurrency != 8 || cfg.RateLimit != 2.5 ||
			cfg.MaxDepth != 3 || cfg.PathPrefix != "/docs" || cfg.RecordExternal || cfg.SaveToDB ||
			cfg.ReportFormat != config.ReportMarkdown || cfg.OutputFile != "out.txt" || cfg.DBDir != dir {
			t.Errorf("unexpected config: %+v", cfg)
		}
		return cfg.Validate()
	}
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
}

// TestRunCrawlCmd tests end-to-end crawls against a local site.
func TestRunCrawlCmd(t *testing.T) {
	t.Parallel()

	t.Run("writes sitemap store and json report", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		dir := t.TempDir()
		sitemapPath := filepath.Join(dir, "sitemap.txt")
		cfgPath := writeSiteConfig(t, dir, "sites: {}\n")

		stdout, _, err := executeCmd(t, "crawl", srv.URL+"/",
			"-c", cfgPath, "--data-dir", dir, "-o", sitemapPath, "--report", "json", "-r", "0")
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		want := sortedLines(strings.Join([]string{
			srv.URL + "/", srv.URL + "/a", srv.URL + "/b", srv.URL + "/files/c.pdf", "http://other.test/x",
		}, "\n"))
		if got := readLines(t, sitemapPath); !equalLines(got, want) {
			t.Errorf("sitemap = %v, want %v", got, want)
		}

		var rep report.Report
		if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
			t.Fatalf("invalid JSON report: %v\n%s", err, stdout)
		}
		if rep.Run == nil || rep.Run.Status != model.RunCompleted {
			t.Fatalf("expected completed run, got %+v", rep.Run)
		}
		if rep.Run.Stats.Fetched != 5 || rep.Run.Stats.Errors[model.ErrorKindHTTPStatus] != 1 {
			t.Errorf("unexpected stats: %+v", rep.Run.Stats)
		}
		if rep.SitemapURLs != 5 || rep.Sitemap != sitemapPath {
			t.Errorf("unexpected sitemap info: %d %q", rep.SitemapURLs, rep.Sitemap)
		}
		if len(rep.Failures) != 1 || rep.Failures[0].URL != srv.URL+"/missing" || rep.Failures[0].StatusCode != 404 {
			t.Errorf("unexpected failures: %+v", rep.Failures)
		}
	})

	t.Run("site config and scope flags", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		dir := t.TempDir()
		sitemapPath := filepath.Join(dir, "sitemap.txt")
		cfgPath := writeSiteConfig(t, dir, "defaults:\n  ignorePatterns:\n    - \"/files/*\"\n")

		stdout, _, err := executeCmd(t, "crawl", srv.URL+"/",
			"-c", cfgPath, "--data-dir", dir, "-o", sitemapPath, "--no-store", "--external=false")
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		want := sortedLines(strings.Join([]string{srv.URL + "/", srv.URL + "/a", srv.URL + "/b"}, "\n"))
		if got := readLines(t, sitemapPath); !equalLines(got, want) {
			t.Errorf("sitemap = %v, want %v", got, want)
		}
		if !strings.Contains(stdout, "SITEMAPPER CRAWL REPORT") {
			t.Errorf("expected text report, got:\n%s", stdout)
		}
		if _, err := os.Stat(filepath.Join(dir, "sitemapper.db")); !os.IsNotExist(err) {
			t.Error("expected no store with --no-store")
		}
	})

	t.Run("markdown report to file", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		dir := t.TempDir()
		cfgPath := writeSiteConfig(t, dir, "sites: {}\n")
		reportPath := filepath.Join(dir, "reports", "run.md")

		_, stderr, err := executeCmd(t, "crawl", srv.URL+"/", "-c", cfgPath, "--data-dir", dir,
			"-o", filepath.Join(dir, "sitemap.txt"), "--report", "md", "--report-file", reportPath)
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		data, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(data), "```mermaid") {
			t.Errorf("expected markdown report with chart, got:\n%s", data)
		}
		if !strings.Contains(stderr, "Report written to") {
			t.Errorf("expected report notice on stderr, got %q", stderr)
		}
	})

	t.Run("resume continues the last run", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		dir := t.TempDir()
		sitemapPath := filepath.Join(dir, "sitemap.txt")
		cfgPath := writeSiteConfig(t, dir, "sites: {}\n")
		common := []string{"-c", cfgPath, "--data-dir", dir, "-o", sitemapPath, "--report", "json"}

		if _, _, err := executeCmd(t, append([]string{"crawl", srv.URL + "/", "-p", "1"}, common...)...); err != nil {
			t.Fatalf("first crawl failed: %v", err)
		}
		if got := readLines(t, sitemapPath); len(got) != 2 {
			t.Fatalf("expected seed and external link after one page, got %v", got)
		}

		stdout, _, err := executeCmd(t, append([]string{"crawl", srv.URL + "/", "--resume"}, common...)...)
		if err != nil {
			t.Fatalf("resumed crawl failed: %v", err)
		}
		if got := readLines(t, sitemapPath); len(got) != 5 {
			t.Errorf("expected full sitemap after resume, got %v", got)
		}
		var rep report.Report
		if err := json.Unmarshal([]byte(stdout), &rep); err != nil {
			t.Fatalf("invalid JSON report: %v", err)
		}
		if rep.Run.Stats.Fetched != 4 {
			t.Errorf("expected only the remaining 4 pages to be fetched, got %d", rep.Run.Stats.Fetched)
		}

		runsOut, _, err := executeCmd(t, "data", "runs", "--data-dir", dir, "--json")
		if err != nil {
			t.Fatalf("data runs failed: %v", err)
		}
		var runs []*model.RunSummary
		if err := json.Unmarshal([]byte(runsOut), &runs); err != nil {
			t.Fatalf("invalid runs JSON: %v", err)
		}
		if len(runs) != 1 || runs[0].ID != rep.Run.ID {
			t.Errorf("expected the resumed run to keep its ID, got %d runs", len(runs))
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		cfgPath := writeSiteConfig(t, dir, "sites: {}\n")

		_, _, err := executeCmd(t, "crawl", "ftp://example.com/", "-c", cfgPath, "--data-dir", dir)
		if !errors.Is(err, crawler.ErrInvalidSeed) {
			t.Errorf("expected ErrInvalidSeed, got %v", err)
		}

		_, _, err = executeCmd(t, "crawl", "https://example.com/", "-c", cfgPath, "-n", "0")
		if !errors.Is(err, config.ErrInvalidConcurrency) {
			t.Errorf("expected ErrInvalidConcurrency, got %v", err)
		}

		_, _, err = executeCmd(t, "crawl", "https://example.com/", "-c", cfgPath, "--resume", "--no-store")
		if !errors.Is(err, errResumeWithoutStore) {
			t.Errorf("expected errResumeWithoutStore, got %v", err)
		}

		_, _, err = executeCmd(t, "crawl", "https://example.com/", "-c", cfgPath, "--tor", "-x", "127.0.0.1:8080")
		if !errors.Is(err, config.ErrConflictingProxy) {
			t.Errorf("expected ErrConflictingProxy, got %v", err)
		}

		_, _, err = executeCmd(t, "crawl", "https://example.com/", "-c", filepath.Join(dir, "missing.yaml"))
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}
