package crawler

import (
	"path"
	"strings"

	"github.com/nao1215/sitemapper/internal/model"
)

// PathFilter decides which in-scope URLs are worth fetching, based on glob
// patterns matched against the URL path.
//
// Logic:
//  1. If the path matches any ignore pattern, skip it
//  2. If follow patterns are set and the path matches none, skip it
//  3. Otherwise, fetch it
//
// A filtered URL is still recorded as seen, so it is never offered again.
type PathFilter struct {
	ignore []string
	follow []string
}

// NewPathFilter creates a filter. Empty pattern lists allow everything.
func NewPathFilter(ignore, follow []string) PathFilter {
	return PathFilter{
		ignore: compactPatterns(ignore),
		follow: compactPatterns(follow),
	}
}

// IsZero reports whether the filter allows every URL.
func (f PathFilter) IsZero() bool {
	return len(f.ignore) == 0 && len(f.follow) == 0
}

// Allow reports whether u passes the filter.
func (f PathFilter) Allow(u model.URL) bool {
	p := u.Path()
	for _, pattern := range f.ignore {
		if matchPattern(pattern, p) {
			return false
		}
	}
	if len(f.follow) == 0 {
		return true
	}
	for _, pattern := range f.follow {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// compactPatterns drops blank entries.
func compactPatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// matchPattern checks if a URL path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//   - a trailing "/*" to match a whole subtree
//   - a leading "*." to match a file extension at any depth
//
// Examples:
//   - "/admin/*" matches "/admin", "/admin/users/edit"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") {
		if strings.HasSuffix(strings.ToLower(p), strings.ToLower(ext)) {
			return true
		}
	}

	if matched, err := path.Match(pattern, p); err == nil && matched {
		return true
	}

	// Patterns without a slash match the last segment, e.g. "index.*".
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := path.Match(pattern, path.Base(p)); err == nil && matched {
			return true
		}
	}

	return false
}
