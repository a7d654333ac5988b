// Package inspect shows a single HTTP request/response pair for auditing.
//
// An Inspector reuses a fetcher's client, so the request travels through
// the same proxy and carries the same cookies and headers as a crawl. The
// resulting Exchange holds the synthesized request text, the status line
// and headers, the decoded body (pretty-printed when it is JSON), the body
// language derived from the Content-Type, the size and the elapsed time.
package inspect
