package proxy

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Scheme is the protocol spoken to the proxy itself.
type Scheme string

const (
	// SchemeHTTP is a plain HTTP proxy (CONNECT for https targets).
	SchemeHTTP Scheme = "http"

	// SchemeHTTPS is an HTTP proxy reached over TLS.
	SchemeHTTPS Scheme = "https"

	// SchemeSOCKS5 is a SOCKS5 proxy; hostnames are resolved by the proxy.
	SchemeSOCKS5 Scheme = "socks5"
)

// Address is a parsed proxy address.
type Address struct {
	Scheme   Scheme
	Host     string
	Port     int
	Username string
	Password string
}

// ParseAddress parses a proxy address.
//
// A bare "host:port" (optionally prefixed by "user:pass@") is an HTTP proxy,
// which matches how intercepting proxies such as Burp or mitmproxy are
// usually configured. "socks5h://" is accepted as an alias for "socks5://".
func ParseAddress(raw string) (*Address, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("%w: empty address", ErrInvalidProxyAddress)
	}
	if !strings.Contains(s, "://") {
		s = string(SchemeHTTP) + "://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, raw)
	}

	scheme := Scheme(strings.ToLower(u.Scheme))
	if scheme == "socks5h" {
		scheme = SchemeSOCKS5
	}
	switch scheme {
	case SchemeHTTP, SchemeHTTPS, SchemeSOCKS5:
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxyAddress, u.Scheme)
	}
	if u.Path != "" && u.Path != "/" {
		return nil, fmt.Errorf("%w: unexpected path in %q", ErrInvalidProxyAddress, raw)
	}

	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil || host == "" {
		return nil, fmt.Errorf("%w: expected host:port in %q", ErrInvalidProxyAddress, raw)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("%w: invalid port %q", ErrInvalidProxyAddress, portStr)
	}

	addr := &Address{
		Scheme: scheme,
		Host:   host,
		Port:   port,
	}
	if u.User != nil {
		addr.Username = u.User.Username()
		addr.Password, _ = u.User.Password()
	}
	return addr, nil
}

// HostPort returns the "host:port" form used for dialing.
func (a *Address) HostPort() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// HasAuth reports whether credentials are configured.
func (a *Address) HasAuth() bool {
	return a.Username != ""
}

// URL returns the full proxy URL including credentials.
func (a *Address) URL() *url.URL {
	u := &url.URL{
		Scheme: string(a.Scheme),
		Host:   a.HostPort(),
	}
	if a.HasAuth() {
		u.User = url.UserPassword(a.Username, a.Password)
	}
	return u
}

// String returns the proxy URL with the password masked.
// It is safe to log.
func (a *Address) String() string {
	return a.URL().Redacted()
}
