package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// FetchStatus distinguishes a received response from a failed fetch.
type FetchStatus int

const (
	// FetchSuccess means an HTTP response was received.
	// The status code may still be an error code; see FetchResult.OK.
	FetchSuccess FetchStatus = iota

	// FetchError means no usable response was received.
	FetchError
)

// String returns a human-readable name for the status.
func (s FetchStatus) String() string {
	switch s {
	case FetchSuccess:
		return "success"
	case FetchError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorKind classifies per-URL and run-level failures.
type ErrorKind string

const (
	// ErrorKindNone is used for successful results.
	ErrorKindNone ErrorKind = ""

	// ErrorKindInvalidURL marks malformed or unsupported-scheme input.
	ErrorKindInvalidURL ErrorKind = "invalid-url"

	// ErrorKindTransport marks connection, DNS and timeout failures.
	ErrorKindTransport ErrorKind = "transport"

	// ErrorKindTooManyRedirects marks redirect chains above the limit.
	ErrorKindTooManyRedirects ErrorKind = "too-many-redirects"

	// ErrorKindParse marks page bodies that could not be parsed.
	ErrorKindParse ErrorKind = "parse"

	// ErrorKindIO marks persistence and sitemap write failures.
	ErrorKindIO ErrorKind = "io"

	// ErrorKindConfig marks invalid seed or proxy configuration.
	ErrorKindConfig ErrorKind = "config"

	// ErrorKindHTTPStatus marks responses with a status code >= 400.
	ErrorKindHTTPStatus ErrorKind = "http-status"
)

// FetchResult is the envelope produced by one fetch of one URL.
// It is created by the fetcher and never mutated afterwards.
type FetchResult struct {
	// URL is the URL that was requested.
	URL URL `json:"-"`

	// FinalURL is the URL of the last response after redirects.
	FinalURL URL `json:"-"`

	// Status tells whether a response was received.
	Status FetchStatus `json:"status"`

	// StatusCode is the HTTP status code of the final response.
	StatusCode int `json:"status_code,omitempty"`

	// Headers are the final response headers.
	Headers map[string][]string `json:"headers,omitempty"`

	// ContentType is the Content-Type header of the final response.
	ContentType string `json:"content_type,omitempty"`

	// Body is the (size-limited, decoded) response body.
	Body []byte `json:"-"`

	// BodyHash is the hex SHA-256 of Body.
	BodyHash string `json:"body_hash,omitempty"`

	// Kind classifies the failure for FetchError results.
	Kind ErrorKind `json:"error_kind,omitempty"`

	// Message is a human-readable failure description.
	Message string `json:"message,omitempty"`

	// Attempts is the number of transport attempts made.
	Attempts int `json:"attempts"`

	// Redirects is the number of redirects followed.
	Redirects int `json:"redirects,omitempty"`

	// Elapsed is the wall-clock time spent fetching, retries included.
	Elapsed time.Duration `json:"elapsed"`

	// Timestamp is when the fetch finished.
	Timestamp time.Time `json:"timestamp"`
}

// NewSuccessResult builds a Success envelope and computes the body hash.
func NewSuccessResult(u, final URL, statusCode int, headers map[string][]string, body []byte) *FetchResult {
	r := &FetchResult{
		URL:        u,
		FinalURL:   final,
		Status:     FetchSuccess,
		StatusCode: statusCode,
		Headers:    headers,
		Body:       body,
		Timestamp:  time.Now(),
	}
	if values := headers["Content-Type"]; len(values) > 0 {
		r.ContentType = values[0]
	}
	if len(body) > 0 {
		sum := sha256.Sum256(body)
		r.BodyHash = hex.EncodeToString(sum[:])
	}
	return r
}

// NewErrorResult builds an Error envelope.
func NewErrorResult(u URL, kind ErrorKind, message string) *FetchResult {
	return &FetchResult{
		URL:       u,
		FinalURL:  u,
		Status:    FetchError,
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// OK reports whether the fetch produced a non-error HTTP response.
func (r *FetchResult) OK() bool {
	return r.Status == FetchSuccess && r.StatusCode < 400
}

// FailureKind returns the error kind for results that do not count as
// successful, including responses with an error status code.
func (r *FetchResult) FailureKind() ErrorKind {
	if r.Status == FetchError {
		return r.Kind
	}
	if r.StatusCode >= 400 {
		return ErrorKindHTTPStatus
	}
	return ErrorKindNone
}

// FailureMessage describes why the result does not count as successful.
// Responses with an error status code get a synthesized "HTTP 404 Not Found"
// style message.
func (r *FetchResult) FailureMessage() string {
	if r.Message != "" || r.Status == FetchError {
		return r.Message
	}
	if r.StatusCode >= 400 {
		return strings.TrimSpace(fmt.Sprintf("HTTP %d %s", r.StatusCode, http.StatusText(r.StatusCode)))
	}
	return ""
}

// IsHTML reports whether the response declares an HTML content type.
func (r *FetchResult) IsHTML() bool {
	ct := strings.ToLower(r.ContentType)
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

// Header returns the first value of the named (canonical) header.
func (r *FetchResult) Header(name string) string {
	if values, ok := r.Headers[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}
