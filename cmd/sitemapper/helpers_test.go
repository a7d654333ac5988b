package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"testing"
)

// executeCmd runs the root command with args and returns what it wrote.
func executeCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// newTestSite serves a small website:
//
//	/          -> /a, /b, /missing, http://other.test/x
//	/a         -> /b, /files/c.pdf
//	/b         -> no links
//	/files/c.pdf
//	/missing   -> 404
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, "<html><head><title>test</title></head><body>"+body+"</body></html>")
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", page(`<a href="/a">a</a><a href="/b">b</a><a href="/missing">m</a><a href="http://other.test/x">x</a>`))
	mux.HandleFunc("/a", page(`<a href="/b">b</a><a href="/files/c.pdf">pdf</a>`))
	mux.HandleFunc("/b", page(`nothing here`))
	mux.HandleFunc("/files/c.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-1.4")
	})
	mux.HandleFunc("/missing", http.NotFound)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// readLines returns the sorted non-empty lines of a file.
func readLines(t *testing.T, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return sortedLines(string(data))
}

func sortedLines(s string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(s, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	sort.Strings(lines)
	return lines
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
