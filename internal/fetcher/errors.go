package fetcher

import "errors"

// Fetch errors.
// They appear wrapped in FetchResult messages' originating errors and are
// returned by New for invalid configuration.
var (
	// ErrTransport marks connection, DNS and timeout failures.
	ErrTransport = errors.New("transport error")

	// ErrTooManyRedirects is used when a redirect chain exceeds MaxRedirects.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrInvalidConfig is returned by New for out-of-range settings.
	ErrInvalidConfig = errors.New("invalid fetch configuration")
)
