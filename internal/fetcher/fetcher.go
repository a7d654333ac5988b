package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/nao1215/sitemapper/internal/model"
	"github.com/nao1215/sitemapper/internal/proxy"
)

// DefaultUserAgent identifies sitemapper in server logs.
const DefaultUserAgent = "sitemapper/1.0 (+https://github.com/nao1215/sitemapper)"

// Config enumerates the recognized fetch options.
type Config struct {
	// Proxy routes every request through the given proxy. Nil means direct.
	Proxy *proxy.Address

	// Timeout bounds one attempt, including redirects and the body read.
	Timeout time.Duration

	// MaxRedirects is the number of redirects followed before giving up.
	MaxRedirects int

	// RetryCount is the number of extra attempts after a transport failure.
	RetryCount int

	// RetryDelay is the wait between attempts. Zero retries immediately.
	RetryDelay time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// Headers are added to every request.
	Headers map[string]string

	// Cookie is a raw Cookie header value added to every request.
	Cookie string

	// MaxBodySize limits how many decoded body bytes are kept.
	MaxBodySize int64

	// InsecureTLS disables certificate verification.
	InsecureTLS bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		MaxRedirects: 10,
		RetryCount:   2,
		RetryDelay:   time.Second,
		UserAgent:    DefaultUserAgent,
		MaxBodySize:  10 * 1024 * 1024, // 10MB
	}
}

// Fetcher fetches single URLs according to a Config.
// It is safe for concurrent use.
type Fetcher struct {
	cfg       Config
	client    *http.Client
	transport http.RoundTripper
	logger    *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTransport replaces the proxy-aware transport, e.g. in tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) {
		f.transport = rt
	}
}

// WithLogger sets the logger for retry and redirect diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher.
func New(cfg Config, opts ...Option) (*Fetcher, error) {
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	if cfg.MaxRedirects < 0 || cfg.RetryCount < 0 || cfg.RetryDelay < 0 {
		return nil, fmt.Errorf("%w: redirect, retry and delay settings must not be negative", ErrInvalidConfig)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	f := &Fetcher{
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.transport == nil {
		tr, err := proxy.NewTransport(cfg.Proxy,
			proxy.WithDialTimeout(cfg.Timeout),
			proxy.WithInsecureTLS(cfg.InsecureTLS),
		)
		if err != nil {
			return nil, err
		}
		f.transport = tr
	}

	// Keep session cookies across the pages of one crawl.
	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	f.client = &http.Client{
		Transport: proxy.WithHeaders(f.transport, cfg.Cookie, cfg.Headers),
		Jar:       jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return f, nil
}

// Config returns the fetcher's configuration.
func (f *Fetcher) Config() Config {
	return f.cfg
}

// Client returns the underlying client. It does not follow redirects.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Fetch retrieves u and returns the resulting envelope.
//
// Transport failures are retried up to RetryCount times, waiting RetryDelay
// between attempts. Redirect and status-code outcomes are final and never
// retried.
func (f *Fetcher) Fetch(ctx context.Context, u model.URL) *model.FetchResult {
	start := time.Now()

	var result *model.FetchResult
	attempts := 0
	for {
		attempts++
		var retry bool
		result, retry = f.fetchOnce(ctx, u)
		if !retry || attempts > f.cfg.RetryCount || ctx.Err() != nil {
			break
		}

		f.logger.Debug("retrying fetch",
			slog.String("url", u.String()),
			slog.Int("attempt", attempts),
			slog.String("error", result.Message),
		)
		if !sleep(ctx, f.cfg.RetryDelay) {
			break
		}
	}

	result.Attempts = attempts
	result.Elapsed = time.Since(start)
	return result
}

// fetchOnce performs one attempt. The boolean result reports whether the
// failure is a transport failure worth retrying.
func (f *Fetcher) fetchOnce(ctx context.Context, u model.URL) (*model.FetchResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	current := u
	for redirects := 0; ; redirects++ {
		resp, err := f.do(ctx, current)
		if err != nil {
			return model.NewErrorResult(u, model.ErrorKindTransport, transportMessage(ctx, err, f.cfg.Timeout)), true
		}

		if location := resp.Header.Get("Location"); isRedirect(resp.StatusCode) && location != "" {
			drain(resp)
			if redirects >= f.cfg.MaxRedirects {
				r := model.NewErrorResult(u, model.ErrorKindTooManyRedirects,
					fmt.Sprintf("%v: stopped after %d redirects at %s", ErrTooManyRedirects, redirects, current))
				r.FinalURL = current
				r.Redirects = redirects
				return r, false
			}
			next, err := model.NormalizeURL(location, &current)
			if err != nil {
				r := model.NewErrorResult(u, model.ErrorKindInvalidURL,
					fmt.Sprintf("redirect from %s: %v", current, err))
				r.FinalURL = current
				r.Redirects = redirects
				return r, false
			}
			f.logger.Debug("following redirect",
				slog.String("from", current.String()),
				slog.String("to", next.String()),
				slog.Int("status", resp.StatusCode),
			)
			current = next
			continue
		}

		body, err := DecodeBody(resp, f.cfg.MaxBodySize)
		resp.Body.Close()
		if err != nil {
			if errors.Is(err, ErrDecode) {
				r := model.NewErrorResult(u, model.ErrorKindParse, err.Error())
				r.FinalURL = current
				return r, false
			}
			return model.NewErrorResult(u, model.ErrorKindTransport, transportMessage(ctx, err, f.cfg.Timeout)), true
		}

		result := model.NewSuccessResult(u, current, resp.StatusCode, resp.Header.Clone(), body)
		result.Redirects = redirects
		return result, false
	}
}

// do sends one GET request without following redirects.
func (f *Fetcher) do(ctx context.Context, u model.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Accept-Encoding", AcceptEncoding)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return resp, nil
}

// isRedirect reports whether code is a redirect that carries a Location.
func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// drain discards a small remainder of the body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.CopyN(io.Discard, resp.Body, 4096) //nolint:errcheck // best effort
	resp.Body.Close()
}

// transportMessage produces a readable message for a transport failure.
func transportMessage(ctx context.Context, err error, timeout time.Duration) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("timeout after %s", timeout)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return "request cancelled"
	}
	return err.Error()
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
