package model

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

// ErrInvalidURL is returned when input cannot be turned into a crawlable URL.
// Unparsable strings, relative references without a base, missing hosts and
// schemes other than http/https all map to this error.
var ErrInvalidURL = errors.New("invalid url")

// URL is an immutable, normalized absolute http(s) URL.
//
// Two URLs denote the same resource iff their Key values are equal.
// The zero value is not a valid URL; use NormalizeURL to construct one.
type URL struct {
	// raw is the input exactly as it was handed to NormalizeURL.
	raw string

	// key is the canonical absolute URL string.
	key string

	// host is the lowercased host, including a non-default port.
	host string

	// path is the escaped, normalized path (always starts with "/").
	path string

	// query is the normalized raw query without the leading "?".
	query string

	// base is the resolved absolute form before path normalization.
	// Relative references are resolved against it, so "/docs/" keeps
	// its trailing slash for that purpose.
	base string
}

// NormalizeURL canonicalizes raw, resolving it against base when base is
// non-nil.
//
// Normalization rules:
//   - scheme and host are lowercased; only http and https are accepted
//   - default ports (80 for http, 443 for https) are removed
//   - the fragment is dropped
//   - "." and ".." path segments are collapsed
//   - an empty path becomes "/", a non-root trailing slash is removed
//   - query parameters are stably sorted by name, empty pairs are dropped
//
// Surrounding whitespace is trimmed and inner spaces are escaped as %20.
func NormalizeURL(raw string, base *URL) (URL, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return URL{}, fmt.Errorf("%w: empty input", ErrInvalidURL)
	}
	input = strings.ReplaceAll(input, " ", "%20")

	ref, err := url.Parse(input)
	if err != nil {
		return URL{}, fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}

	var resolved *url.URL
	switch {
	case base != nil && base.key != "":
		resolved = base.resolutionBase().ResolveReference(ref)
	case ref.Scheme != "":
		// Resolving an absolute reference collapses its dot segments.
		resolved = (&url.URL{}).ResolveReference(ref)
	default:
		return URL{}, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, raw)
	}

	scheme := strings.ToLower(resolved.Scheme)
	if scheme != "http" && scheme != "https" {
		return URL{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, resolved.Scheme)
	}
	if resolved.Opaque != "" {
		return URL{}, fmt.Errorf("%w: opaque url %q", ErrInvalidURL, raw)
	}

	host, err := normalizeHost(scheme, resolved.Host)
	if err != nil {
		return URL{}, fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}

	path := normalizePath(resolved.EscapedPath())
	query := normalizeQuery(resolved.RawQuery)

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(path)
	if query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}

	// Userinfo never reaches the key or the resolution base.
	abs := *resolved
	abs.User = nil
	abs.Fragment = ""
	abs.RawFragment = ""

	return URL{
		raw:   raw,
		key:   b.String(),
		host:  host,
		path:  path,
		query: query,
		base:  abs.String(),
	}, nil
}

// MustNormalizeURL is like NormalizeURL but panics on error.
// It is intended for constants and tests.
func MustNormalizeURL(raw string) URL {
	u, err := NormalizeURL(raw, nil)
	if err != nil {
		panic(err)
	}
	return u
}

// normalizeHost lowercases the host and drops the scheme's default port.
func normalizeHost(scheme, hostport string) (string, error) {
	if hostport == "" {
		return "", errors.New("missing host")
	}

	host := hostport
	port := ""
	if strings.LastIndex(hostport, ":") > strings.LastIndex(hostport, "]") {
		h, p, err := net.SplitHostPort(hostport)
		if err != nil {
			return "", err
		}
		host, port = h, p
	}
	host = strings.ToLower(strings.Trim(host, "[]"))
	if host == "" {
		return "", errors.New("missing host")
	}

	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	if port != "" {
		return net.JoinHostPort(host, port), nil
	}
	if strings.Contains(host, ":") {
		return "[" + host + "]", nil
	}
	return host, nil
}

// normalizePath applies the root and trailing-slash rules to an escaped path.
func normalizePath(escaped string) string {
	if escaped == "" {
		return "/"
	}
	trimmed := strings.TrimRight(escaped, "/")
	if trimmed == "" {
		return "/"
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return trimmed
}

// normalizeQuery sorts "&"-separated pairs by parameter name.
// Values keep their original encoding and relative order.
func normalizeQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	parts := strings.Split(rawQuery, "&")
	pairs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			pairs = append(pairs, p)
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return queryName(pairs[i]) < queryName(pairs[j])
	})
	return strings.Join(pairs, "&")
}

func queryName(pair string) string {
	name, _, _ := strings.Cut(pair, "=")
	return name
}

// parsed returns a fresh *url.URL for the canonical form.
// The canonical string always parses because NormalizeURL produced it.
func (u URL) parsed() *url.URL {
	p, err := url.Parse(u.key)
	if err != nil {
		return &url.URL{}
	}
	return p
}

// resolutionBase returns the URL relative references are resolved against.
func (u URL) resolutionBase() *url.URL {
	if u.base != "" {
		if p, err := url.Parse(u.base); err == nil {
			return p
		}
	}
	return u.parsed()
}

// String returns the canonical absolute URL.
func (u URL) String() string {
	return u.key
}

// Key returns the canonical key used for deduplication.
func (u URL) Key() string {
	return u.key
}

// Raw returns the original input the URL was built from.
func (u URL) Raw() string {
	return u.raw
}

// Host returns the lowercased host, including a non-default port.
func (u URL) Host() string {
	return u.host
}

// Path returns the escaped, normalized path.
func (u URL) Path() string {
	return u.path
}

// Query returns the normalized raw query string without "?".
func (u URL) Query() string {
	return u.query
}

// Scheme returns "http" or "https".
func (u URL) Scheme() string {
	scheme, _, _ := strings.Cut(u.key, "://")
	return scheme
}

// IsZero reports whether u is the zero value.
func (u URL) IsZero() bool {
	return u.key == ""
}

// Equal reports whether u and other share a canonical key.
func (u URL) Equal(other URL) bool {
	return u.key == other.key
}

// URL returns a copy of the canonical form as a *url.URL.
func (u URL) URL() *url.URL {
	return u.parsed()
}

// Extension returns the lowercased file extension of the last path
// segment without the dot, or "" if there is none.
func (u URL) Extension() string {
	segment := u.path[strings.LastIndex(u.path, "/")+1:]
	dot := strings.LastIndex(segment, ".")
	if dot <= 0 || dot == len(segment)-1 {
		return ""
	}
	return strings.ToLower(segment[dot+1:])
}

// Parameters returns the query parameter names in normalized order,
// without duplicates.
func (u URL) Parameters() []string {
	if u.query == "" {
		return nil
	}
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, pair := range strings.Split(u.query, "&") {
		name := queryName(pair)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Scope bounds which discovered links are followed during one crawl.
// A URL is in scope when its host equals Host and its path lies under
// PathPrefix (if set).
type Scope struct {
	// Host is the canonical host of the seed URL.
	Host string `json:"host"`

	// PathPrefix optionally restricts the followed paths, e.g. "/docs".
	PathPrefix string `json:"path_prefix,omitempty"`
}

// NewScope derives a scope from the seed URL and an optional path prefix.
func NewScope(seed URL, pathPrefix string) Scope {
	prefix := strings.TrimSpace(pathPrefix)
	if prefix != "" {
		prefix = normalizePath(prefix)
		if prefix == "/" {
			prefix = ""
		}
	}
	return Scope{Host: seed.Host(), PathPrefix: prefix}
}

// Contains reports whether u falls inside the scope.
func (s Scope) Contains(u URL) bool {
	if u.IsZero() || !strings.EqualFold(u.Host(), s.Host) {
		return false
	}
	if s.PathPrefix == "" {
		return true
	}
	return u.Path() == s.PathPrefix || strings.HasPrefix(u.Path(), s.PathPrefix+"/")
}
