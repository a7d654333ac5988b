package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestNewTransport tests transport construction per proxy scheme.
func TestNewTransport(t *testing.T) {
	t.Parallel()

	t.Run("nil address is direct", func(t *testing.T) {
		t.Parallel()

		tr, err := NewTransport(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.Proxy != nil {
			t.Error("expected no proxy function")
		}
		if !tr.DisableCompression {
			t.Error("expected compression to be handled by the caller")
		}
	})

	t.Run("insecure TLS option", func(t *testing.T) {
		t.Parallel()

		tr, err := NewTransport(nil, WithInsecureTLS(true), WithDialTimeout(time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !tr.TLSClientConfig.InsecureSkipVerify {
			t.Error("expected InsecureSkipVerify")
		}
		if tr.TLSHandshakeTimeout != time.Second {
			t.Errorf("TLSHandshakeTimeout = %v", tr.TLSHandshakeTimeout)
		}
	})

	t.Run("socks5 address installs a dialer", func(t *testing.T) {
		t.Parallel()

		addr, _ := ParseAddress("socks5://127.0.0.1:9050") //nolint:errcheck
		tr, err := NewTransport(addr)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tr.Proxy != nil || tr.DialContext == nil {
			t.Error("expected SOCKS5 dialing rather than an HTTP proxy")
		}
	})

	t.Run("http proxy receives absolute-form requests", func(t *testing.T) {
		t.Parallel()

		hostCh := make(chan string, 1)
		proxyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hostCh <- r.URL.Host
			io.WriteString(w, "proxied") //nolint:errcheck
		}))
		t.Cleanup(proxyServer.Close)

		addr, err := ParseAddress(proxyServer.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tr, err := NewTransport(addr)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		client := &http.Client{Transport: tr}
		resp, err := client.Get("http://target.invalid/page")
		if err != nil {
			t.Fatalf("request through proxy failed: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body) //nolint:errcheck

		if string(body) != "proxied" {
			t.Errorf("body = %q, expected proxied", body)
		}
		if gotHost := <-hostCh; gotHost != "target.invalid" {
			t.Errorf("proxy saw host %q, expected target.invalid", gotHost)
		}
	})
}

// TestWithHeaders tests header and cookie injection.
func TestWithHeaders(t *testing.T) {
	t.Parallel()

	t.Run("no headers returns base", func(t *testing.T) {
		t.Parallel()

		base := http.DefaultTransport
		if WithHeaders(base, "", nil) != base {
			t.Error("expected base transport to be returned unchanged")
		}
	})

	t.Run("injects cookie and headers", func(t *testing.T) {
		t.Parallel()

		headerCh := make(chan http.Header, 1)
		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			headerCh <- r.Header.Clone()
		}))
		t.Cleanup(server.Close)

		client := &http.Client{Transport: WithHeaders(http.DefaultTransport, "session=abc", map[string]string{
			"Authorization": "Bearer token",
		})}
		req, _ := http.NewRequest(http.MethodGet, server.URL, nil) //nolint:errcheck
		req.Header.Set("Cookie", "theme=dark")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		resp.Body.Close()

		got := <-headerCh
		gotCookie, gotAuth := got.Get("Cookie"), got.Get("Authorization")
		if !strings.Contains(gotCookie, "theme=dark") || !strings.Contains(gotCookie, "session=abc") {
			t.Errorf("Cookie = %q", gotCookie)
		}
		if gotAuth != "Bearer token" {
			t.Errorf("Authorization = %q", gotAuth)
		}
	})
}
