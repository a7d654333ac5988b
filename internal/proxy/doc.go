// Package proxy routes sitemapper's HTTP traffic through an optional proxy.
//
// It parses proxy addresses given on the command line or in the config file
// (bare "host:port", "user:pass@host:port", or a URL with an http, https or
// socks5 scheme), builds http.Transport values that use them, verifies that
// a proxy actually speaks the expected protocol, and can launch an embedded
// Tor daemon through tornago when the user asks for --tor.
//
// Design decision: The package returns plain *http.Transport and
// http.RoundTripper values rather than a wrapped client type. The fetcher owns
// redirect handling and retries, so it only needs a transport to send single
// requests through.
package proxy
