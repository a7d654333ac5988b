package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nao1215/sitemapper/internal/fetcher"
)

// TestRunInspectCmd tests single request inspection.
func TestRunInspectCmd(t *testing.T) {
	t.Parallel()

	t.Run("text output", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		cfgPath := writeSiteConfig(t, t.TempDir(), "sites: {}\n")

		stdout, _, err := executeCmd(t, "inspect", srv.URL+"/a", "-c", cfgPath,
			"-H", "X-Test: 1", "--cookie", "session=abc")
		if err != nil {
			t.Fatalf("inspect failed: %v", err)
		}
		for _, want := range []string{
			"=== Request ===\nGET /a HTTP/1.1",
			"X-Test: 1",
			"Cookie: session=abc",
			"=== Response ===\nHTTP/1.1 200 OK",
			"=== Body (html) ===",
			"title: test | 2 links",
		} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in:\n%s", want, stdout)
			}
		}
	})

	t.Run("json output without body", func(t *testing.T) {
		t.Parallel()

		srv := newTestSite(t)
		cfgPath := writeSiteConfig(t, t.TempDir(), "sites: {}\n")

		stdout, _, err := executeCmd(t, "inspect", srv.URL+"/missing", "-c", cfgPath, "--json")
		if err != nil {
			t.Fatalf("inspect failed: %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(stdout), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, stdout)
		}
		if decoded["status_code"] != float64(http.StatusNotFound) {
			t.Errorf("expected 404, got %v", decoded["status_code"])
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		t.Parallel()

		closed := httptest.NewServer(http.NotFoundHandler())
		target := closed.URL + "/gone"
		closed.Close()
		cfgPath := writeSiteConfig(t, t.TempDir(), "sites: {}\n")

		stdout, _, err := executeCmd(t, "inspect", target, "-c", cfgPath, "-t", "2s")
		if !errors.Is(err, fetcher.ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
		if !strings.Contains(stdout, "Error: ") {
			t.Errorf("expected the partial exchange to be printed:\n%s", stdout)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()

		cfgPath := writeSiteConfig(t, t.TempDir(), "sites: {}\n")
		if _, _, err := executeCmd(t, "inspect", "https://example.com/", "-c", cfgPath, "-H", "broken"); err == nil {
			t.Error("expected error for a malformed header")
		}
		if _, _, err := executeCmd(t, "inspect", "mailto:someone@example.com", "-c", cfgPath); err == nil {
			t.Error("expected error for a non-http url")
		}
	})
}
