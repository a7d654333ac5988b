package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitemapper/internal/fetcher"
	"github.com/nao1215/sitemapper/internal/model"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = io.WriteString(w, `{"b":1,"a":[true,null]}`)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><head><title>Home</title>`+
			`<meta name="description" content="The home page"><meta name="robots" content="noindex">`+
			`<link rel="canonical" href="/"></head>`+
			`<body><a href="/a">a</a><a href="/b">b</a><a href="/a">again</a><a href="https://other.org/">x</a></body></html>`)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Cookie", r.Header.Get("Cookie"))
		w.Header().Set("X-Custom", r.Header.Get("X-Custom"))
		w.Header().Set("X-Site", r.Header.Get("X-Site"))
		_, _ = w.Write(body)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newInspector(t *testing.T, mutate func(*fetcher.Config)) *Inspector {
	t.Helper()

	cfg := fetcher.DefaultConfig()
	cfg.Timeout = 5 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}
	f, err := fetcher.New(cfg)
	if err != nil {
		t.Fatalf("failed to create fetcher: %v", err)
	}
	return New(f)
}

// TestInspectorDo tests single request inspection.
func TestInspectorDo(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	ctx := context.Background()

	t.Run("json body is pretty printed", func(t *testing.T) {
		t.Parallel()

		ex, err := newInspector(t, nil).Do(ctx, Request{URL: model.MustNormalizeURL(srv.URL + "/api")})
		if err != nil {
			t.Fatalf("Do() error: %v", err)
		}
		if ex.StatusCode != http.StatusOK || ex.StatusLine != "HTTP/1.1 200 OK" {
			t.Errorf("unexpected status: %d %q", ex.StatusCode, ex.StatusLine)
		}
		if ex.Language != "json" {
			t.Errorf("expected json language, got %q", ex.Language)
		}
		if !strings.Contains(ex.PrettyBody, "\n  \"b\": 1,") {
			t.Errorf("expected indented body, got %q", ex.PrettyBody)
		}
		if ex.Body != `{"b":1,"a":[true,null]}` {
			t.Errorf("expected raw body to be kept, got %q", ex.Body)
		}
		if ex.BodySize != len(ex.Body) {
			t.Errorf("expected body size %d, got %d", len(ex.Body), ex.BodySize)
		}
		if !strings.HasPrefix(ex.Request, "GET /api HTTP/1.1\nHost: ") {
			t.Errorf("unexpected request text:\n%s", ex.Request)
		}
		if !strings.Contains(ex.Request, "User-Agent: "+fetcher.DefaultUserAgent) {
			t.Errorf("expected user agent in request text:\n%s", ex.Request)
		}
	})

	t.Run("html body reports title and links", func(t *testing.T) {
		t.Parallel()

		ex, err := newInspector(t, nil).Do(ctx, Request{URL: model.MustNormalizeURL(srv.URL + "/page")})
		if err != nil {
			t.Fatalf("Do() error: %v", err)
		}
		if ex.Language != "html" || ex.Title != "Home" {
			t.Errorf("unexpected html exchange: language=%q title=%q", ex.Language, ex.Title)
		}
		if ex.Description != "The home page" || ex.Robots != "noindex" || ex.Canonical != srv.URL+"/" {
			t.Errorf("unexpected page meta: description=%q robots=%q canonical=%q", ex.Description, ex.Robots, ex.Canonical)
		}
		// The canonical link counts too: /, /a, /b and other.org.
		if ex.Links != 4 || ex.ExternalLinks != 1 {
			t.Errorf("links=%d external=%d, expected 4 and 1", ex.Links, ex.ExternalLinks)
		}
	})

	t.Run("redirects are not followed", func(t *testing.T) {
		t.Parallel()

		ex, err := newInspector(t, nil).Do(ctx, Request{URL: model.MustNormalizeURL(srv.URL + "/moved")})
		if err != nil {
			t.Fatalf("Do() error: %v", err)
		}
		if ex.StatusCode != http.StatusMovedPermanently || ex.Headers.Get("Location") != "/page" {
			t.Errorf("expected the redirect response itself, got %d %v", ex.StatusCode, ex.Headers)
		}
	})

	t.Run("method body and headers are sent", func(t *testing.T) {
		t.Parallel()

		in := newInspector(t, func(c *fetcher.Config) {
			c.Cookie = "session=abc"
			c.Headers = map[string]string{"X-Site": "yes"}
		})
		ex, err := in.Do(ctx, Request{
			Method:  "post",
			URL:     model.MustNormalizeURL(srv.URL + "/echo?x=1"),
			Headers: map[string]string{"X-Custom": "42"},
			Body:    "payload",
		})
		if err != nil {
			t.Fatalf("Do() error: %v", err)
		}
		if ex.Body != "payload" {
			t.Errorf("expected echoed body, got %q", ex.Body)
		}
		for header, want := range map[string]string{
			"X-Method": "POST",
			"X-Cookie": "session=abc",
			"X-Custom": "42",
			"X-Site":   "yes",
		} {
			if got := ex.Headers.Get(header); got != want {
				t.Errorf("%s = %q, want %q", header, got, want)
			}
		}
		for _, want := range []string{"POST /echo?x=1 HTTP/1.1", "Cookie: session=abc", "X-Custom: 42", "X-Site: yes", "\npayload\n"} {
			if !strings.Contains(ex.Request, want) {
				t.Errorf("expected request text to contain %q:\n%s", want, ex.Request)
			}
		}
	})

	t.Run("transport failure keeps partial exchange", func(t *testing.T) {
		t.Parallel()

		closed := httptest.NewServer(http.NotFoundHandler())
		target := model.MustNormalizeURL(closed.URL + "/gone")
		closed.Close()

		ex, err := newInspector(t, nil).Do(ctx, Request{URL: target})
		if !errors.Is(err, fetcher.ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		if ex == nil || ex.Error == "" || ex.Request == "" || ex.StatusCode != 0 {
			t.Errorf("expected partial exchange, got %+v", ex)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()

		in := newInspector(t, nil)
		if _, err := in.Do(ctx, Request{Method: "BAD METHOD", URL: model.MustNormalizeURL(srv.URL)}); !errors.Is(err, ErrInvalidMethod) {
			t.Errorf("expected ErrInvalidMethod, got %v", err)
		}
		if _, err := in.Do(ctx, Request{}); !errors.Is(err, model.ErrInvalidURL) {
			t.Errorf("expected ErrInvalidURL, got %v", err)
		}
	})
}

// TestLanguage tests body language detection.
func TestLanguage(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"application/json":         "json",
		"application/ld+json":      "json",
		"text/html; charset=UTF-8": "html",
		"application/xhtml+xml":    "html",
		"application/xml":          "xml",
		"text/xml":                 "xml",
		"application/javascript":   "javascript",
		"text/css":                 "css",
		"image/png":                "text",
		"":                         "text",
	}
	for ct, want := range tests {
		if got := Language(ct); got != want {
			t.Errorf("Language(%q) = %q, want %q", ct, got, want)
		}
	}
}

// TestPrettyJSON tests JSON re-indentation.
func TestPrettyJSON(t *testing.T) {
	t.Parallel()

	if got := PrettyJSON([]byte(`{"a":{"b":2}}`)); got != "{\n  \"a\": {\n    \"b\": 2\n  }\n}" {
		t.Errorf("unexpected pretty JSON: %q", got)
	}
	if got := PrettyJSON([]byte(`{broken`)); got != `{broken` {
		t.Errorf("invalid JSON should be returned unchanged, got %q", got)
	}
}

// TestWriteText tests the terminal layout.
func TestWriteText(t *testing.T) {
	t.Parallel()

	ex := &Exchange{
		Request:       "GET / HTTP/1.1\nHost: example.com\n",
		StatusLine:    "HTTP/1.1 200 OK",
		Headers:       http.Header{"Content-Type": {"application/json"}, "A-First": {"1"}},
		Body:          `{"a":1}`,
		PrettyBody:    "{\n  \"a\": 1\n}",
		Language:      "json",
		ContentLength: 2048,
		BodySize:      1500,
		ElapsedMS:     35,
		Title:         "Home",
		Description:   "Landing page",
		Canonical:     "https://example.com/",
		Links:         3,
		ExternalLinks: 1,
	}

	t.Run("pretty", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := WriteText(&buf, ex, RenderOptions{}); err != nil {
			t.Fatalf("WriteText() error: %v", err)
		}
		output := buf.String()
		for _, want := range []string{
			"=== Request ===\nGET / HTTP/1.1",
			"=== Response ===\nHTTP/1.1 200 OK\nA-First: 1\nContent-Type: application/json\n",
			"=== Body (json) ===\n{\n  \"a\": 1\n}\n",
			"=== Page ===\nDescription: Landing page\nCanonical: https://example.com/\n\n",
			"1.5 kB (Content-Length 2.0 kB) | 35 ms | title: Home | 3 links (1 external)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
	})

	t.Run("raw and hidden body", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := WriteText(&buf, ex, RenderOptions{Raw: true}); err != nil {
			t.Fatalf("WriteText() error: %v", err)
		}
		if !strings.Contains(buf.String(), "=== Body (json) ===\n{\"a\":1}\n") {
			t.Errorf("expected raw body:\n%s", buf.String())
		}

		buf.Reset()
		if err := WriteText(&buf, ex, RenderOptions{HideBody: true}); err != nil {
			t.Fatalf("WriteText() error: %v", err)
		}
		if strings.Contains(buf.String(), "=== Body") {
			t.Error("expected body to be hidden")
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := WriteJSON(&buf, ex); err != nil {
			t.Fatalf("WriteJSON() error: %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["elapsed_ms"] != float64(35) || decoded["language"] != "json" {
			t.Errorf("unexpected JSON fields: %v", decoded)
		}
	})
}
