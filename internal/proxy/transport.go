package proxy

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// transportConfig collects NewTransport options.
type transportConfig struct {
	dialTimeout time.Duration
	insecureTLS bool
}

// TransportOption configures NewTransport.
type TransportOption func(*transportConfig)

// WithDialTimeout bounds the time spent establishing each connection.
func WithDialTimeout(d time.Duration) TransportOption {
	return func(c *transportConfig) {
		c.dialTimeout = d
	}
}

// WithInsecureTLS disables certificate verification.
// Intercepting proxies re-sign TLS traffic with their own CA, so audit
// workflows through Burp or mitmproxy usually need this.
func WithInsecureTLS(insecure bool) TransportOption {
	return func(c *transportConfig) {
		c.insecureTLS = insecure
	}
}

// NewTransport creates an HTTP transport that sends every request through addr.
// A nil addr yields a direct transport.
//
// Design decisions:
//   - Compression is disabled so the fetcher can advertise and decode gzip,
//     deflate and br itself and keep Content-Length numbers honest.
//   - Redirects are not the transport's business; the fetcher follows them.
func NewTransport(addr *Address, opts ...TransportOption) (*http.Transport, error) {
	cfg := &transportConfig{
		dialTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	direct := &net.Dialer{Timeout: cfg.dialTimeout, KeepAlive: 30 * time.Second}

	transport := &http.Transport{
		DialContext:           direct.DialContext,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: cfg.insecureTLS}, //nolint:gosec // opt-in for intercepting proxies
		TLSHandshakeTimeout:   cfg.dialTimeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
		DisableCompression:    true,
	}

	if addr == nil {
		return transport, nil
	}

	switch addr.Scheme {
	case SchemeHTTP, SchemeHTTPS:
		transport.Proxy = http.ProxyURL(addr.URL())
	case SchemeSOCKS5:
		var auth *proxy.Auth
		if addr.HasAuth() {
			auth = &proxy.Auth{User: addr.Username, Password: addr.Password}
		}
		dialer, err := proxy.SOCKS5("tcp", addr.HostPort(), auth, direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.DialContext = contextDialer(dialer)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxyAddress, addr.Scheme)
	}
	return transport, nil
}

// contextDialer adapts a proxy.Dialer to the DialContext signature.
//
// The SOCKS5 dialer from x/net implements proxy.ContextDialer; for other
// dialers we dial in a goroutine so the context can still cancel the wait,
// although the underlying attempt may continue briefly.
func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type dialResult struct {
			conn net.Conn
			err  error
		}
		resultCh := make(chan dialResult, 1)
		go func() {
			conn, err := d.Dial(network, addr)
			resultCh <- dialResult{conn, err}
		}()
		select {
		case result := <-resultCh:
			return result.conn, result.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// WithHeaders wraps base so that every request carries the given cookie and
// headers, including requests issued while following redirects.
// Headers already set on a request are overwritten; the cookie is appended
// to any existing Cookie header.
func WithHeaders(base http.RoundTripper, cookie string, headers map[string]string) http.RoundTripper {
	if cookie == "" && len(headers) == 0 {
		return base
	}
	return &headerInjectingTransport{
		base:    base,
		cookie:  cookie,
		headers: headers,
	}
}

// headerInjectingTransport wraps an http.RoundTripper to inject
// custom headers and cookies into every request.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
