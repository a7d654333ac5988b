package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// This test ensures that changes to defaults are intentional.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Concurrency is 4", func(t *testing.T) {
		t.Parallel()
		if cfg.Concurrency != 4 {
			t.Errorf("expected Concurrency to be 4, got %d", cfg.Concurrency)
		}
	})

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default limits are unlimited", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxPages != 0 || cfg.MaxDepth != 0 {
			t.Errorf("expected unlimited pages and depth, got %d and %d", cfg.MaxPages, cfg.MaxDepth)
		}
	})

	t.Run("default OutputFile is sitemap.txt", func(t *testing.T) {
		t.Parallel()
		if cfg.OutputFile != "sitemap.txt" {
			t.Errorf("expected OutputFile to be sitemap.txt, got %q", cfg.OutputFile)
		}
	})

	t.Run("external URLs are recorded by default", func(t *testing.T) {
		t.Parallel()
		if !cfg.RecordExternal {
			t.Error("expected RecordExternal to be true")
		}
	})

	t.Run("default UseTor is false", func(t *testing.T) {
		t.Parallel()
		if cfg.UseTor {
			t.Error("expected UseTor to be false")
		}
	})

	t.Run("default report is text", func(t *testing.T) {
		t.Parallel()
		if cfg.ReportFormat != ReportText {
			t.Errorf("expected ReportFormat text, got %q", cfg.ReportFormat)
		}
	})

	t.Run("default DBDir is the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() || !cfg.SaveToDB {
			t.Errorf("expected store in %q, got %q (save=%v)", XDGDataDir(), cfg.DBDir, cfg.SaveToDB)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	// validConfig returns a minimal valid configuration.
	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Seed = "https://example.com/"
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"empty seed", func(c *Config) { c.Seed = "" }, ErrNoSeed},
		{"tor and proxy", func(c *Config) { c.UseTor = true; c.ProxyAddress = "socks5://127.0.0.1:9050" }, ErrConflictingProxy},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, ErrInvalidConcurrency},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative retries", func(c *Config) { c.RetryCount = -1 }, ErrInvalidRetryCount},
		{"negative retry delay", func(c *Config) { c.RetryDelay = -time.Second }, ErrInvalidRetryDelay},
		{"negative redirects", func(c *Config) { c.MaxRedirects = -1 }, ErrInvalidMaxRedirects},
		{"negative crawl delay", func(c *Config) { c.CrawlDelay = -time.Millisecond }, ErrInvalidCrawlDelay},
		{"negative rate", func(c *Config) { c.RateLimit = -0.5 }, ErrInvalidRateLimit},
		{"negative max pages", func(c *Config) { c.MaxPages = -1 }, ErrInvalidMaxPages},
		{"negative max depth", func(c *Config) { c.MaxDepth = -2 }, ErrInvalidMaxDepth},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"empty output", func(c *Config) { c.OutputFile = "" }, ErrNoOutputFile},
		{"unknown report", func(c *Config) { c.ReportFormat = "pdf" }, ErrUnknownReportFormat},
		{
			"invalid site entry",
			func(c *Config) {
				c.SiteConfigs = &File{Sites: map[string]SiteConfig{"example.com": {Depth: -1}}}
			},
			ErrInvalidSiteConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("zero values that mean unlimited are valid", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.RetryCount = 0
		cfg.MaxRedirects = 0
		cfg.MaxPages = 0
		cfg.MaxDepth = 0
		cfg.MaxBodySize = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

// TestNormalizeReportFormat tests report format aliases.
func TestNormalizeReportFormat(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":         ReportText,
		"txt":      ReportText,
		"text":     ReportText,
		"md":       ReportMarkdown,
		"markdown": ReportMarkdown,
		"json":     ReportJSON,
		"pdf":      "pdf",
	}
	for in, want := range tests {
		if got := NormalizeReportFormat(in); got != want {
			t.Errorf("NormalizeReportFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestFileGetSiteConfig tests merging of defaults and site entries.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: SiteConfig{
			Cookie:         "default=1",
			Headers:        map[string]string{"X-Default": "d", "X-Shared": "default"},
			Depth:          5,
			Delay:          time.Second,
			IgnorePatterns: []string{"*.pdf"},
		},
		Sites: map[string]SiteConfig{
			"example.com": {
				Cookie:         "session=xyz",
				Headers:        map[string]string{"X-Shared": "site"},
				Depth:          10,
				FollowPatterns: []string{"/docs/*"},
			},
			"localhost:8080": {
				UserAgent: "local-agent",
				Delay:     200 * time.Millisecond,
			},
		},
	}

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()

		got := cf.GetSiteConfig("other.org")
		if got.Cookie != "default=1" || got.Depth != 5 || got.Delay != time.Second {
			t.Errorf("unexpected defaults: %+v", got)
		}
		if len(got.IgnorePatterns) != 1 {
			t.Errorf("expected default ignore patterns, got %v", got.IgnorePatterns)
		}
	})

	t.Run("site overrides defaults", func(t *testing.T) {
		t.Parallel()

		got := cf.GetSiteConfig("Example.COM")
		if got.Cookie != "session=xyz" {
			t.Errorf("expected site cookie, got %q", got.Cookie)
		}
		if got.Depth != 10 {
			t.Errorf("expected site depth 10, got %d", got.Depth)
		}
		if got.Delay != time.Second {
			t.Errorf("expected default delay to be kept, got %v", got.Delay)
		}
		if got.Headers["X-Default"] != "d" || got.Headers["X-Shared"] != "site" {
			t.Errorf("expected merged headers, got %v", got.Headers)
		}
		if len(got.FollowPatterns) != 1 || len(got.IgnorePatterns) != 1 {
			t.Errorf("unexpected patterns: %+v", got)
		}
	})

	t.Run("merging does not modify defaults", func(t *testing.T) {
		t.Parallel()

		_ = cf.GetSiteConfig("example.com")
		if cf.Defaults.Headers["X-Shared"] != "default" {
			t.Errorf("defaults were modified: %v", cf.Defaults.Headers)
		}
	})

	t.Run("host with port", func(t *testing.T) {
		t.Parallel()

		got := cf.GetSiteConfig("localhost:8080")
		if got.UserAgent != "local-agent" || got.Delay != 200*time.Millisecond {
			t.Errorf("unexpected port-specific config: %+v", got)
		}

		got = cf.GetSiteConfig("example.com:8443")
		if got.Cookie != "session=xyz" {
			t.Errorf("expected fallback to bare host, got %+v", got)
		}

		got = cf.GetSiteConfig("localhost")
		if got.UserAgent != "" {
			t.Errorf("bare host must not match a port-specific entry, got %+v", got)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()

		empty := &File{}
		got := empty.GetSiteConfig("example.com")
		if got.Cookie != "" || got.Headers != nil {
			t.Errorf("expected zero config, got %+v", got)
		}
	})
}

// TestFileValidate tests site entry validation.
func TestFileValidate(t *testing.T) {
	t.Parallel()

	valid := &File{Sites: map[string]SiteConfig{"example.com": {Depth: 3, Delay: time.Second}}}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	badDefaults := &File{Defaults: SiteConfig{Delay: -time.Second}}
	if err := badDefaults.Validate(); !errors.Is(err, ErrInvalidSiteConfig) {
		t.Errorf("expected ErrInvalidSiteConfig, got %v", err)
	}
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.sitemapper")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".sitemapper")
		content := `defaults:
  depth: 50
  delay: 750ms
  cookie: "default=abc"
sites:
  Example.com:
    depth: 100
    cookie: "session=xyz"
    userAgent: "audit-bot"
    headers:
      Authorization: "Bearer token"
    ignorePatterns:
      - "/admin/*"
    followPatterns:
      - "/docs/*"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Defaults.Depth != 50 {
			t.Errorf("expected default depth 50, got %d", cfg.Defaults.Depth)
		}
		if cfg.Defaults.Delay != 750*time.Millisecond {
			t.Errorf("expected default delay 750ms, got %v", cfg.Defaults.Delay)
		}

		site, ok := cfg.Sites["example.com"]
		if !ok {
			t.Fatalf("expected lowercased example.com in sites, got %v", cfg.Sites)
		}
		if site.Depth != 100 || site.UserAgent != "audit-bot" {
			t.Errorf("unexpected site config: %+v", site)
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Errorf("expected Authorization header")
		}
		if len(site.IgnorePatterns) != 1 || len(site.FollowPatterns) != 1 {
			t.Errorf("unexpected patterns: %+v", site)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".sitemapper")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".sitemapper")
		if err := os.WriteFile(configPath, []byte("defaults:\n  depth: 25\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Run("returns explicit path if exists", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})

	t.Run("finds file in the current directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		configPath := filepath.Join(dir, DefaultConfigFile)
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		result := FindConfigFile("")
		if filepath.Base(result) != DefaultConfigFile || filepath.Base(filepath.Dir(result)) != filepath.Base(dir) {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":   XDGDataDir(),
		"config": XDGConfigDir(),
		"cache":  XDGCacheDir(),
	} {
		if dir == "" {
			t.Errorf("expected non-empty XDG %s dir", name)
		}
		if filepath.Base(dir) != AppName {
			t.Errorf("expected XDG %s dir to end with %q, got %q", name, AppName, dir)
		}
	}
}
