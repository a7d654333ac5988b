package sitemap

import "errors"

// ErrIO is wrapped by every error caused by reading or writing a sitemap.
//
// Design decision: Callers only need to tell I/O failures apart from URL
// problems, so a single sentinel is enough; the wrapped error keeps the
// path and the underlying cause.
var ErrIO = errors.New("sitemap io error")
