package proxy

import "errors"

// Proxy errors.
//
// Design decision: We define specific error values rather than wrapping all errors
// generically. This allows callers to handle different failure modes appropriately
// (e.g., report a config error for a bad address, but a network error for a
// proxy that is down).
var (
	// ErrInvalidProxyAddress is returned when the proxy address cannot be parsed.
	// Accepted forms are "host:port", "user:pass@host:port" and
	// "scheme://[user:pass@]host:port" with scheme http, https or socks5.
	ErrInvalidProxyAddress = errors.New("invalid proxy address")

	// ErrProxyWrongType is returned when the proxy responds but does not speak
	// the protocol its address declares.
	ErrProxyWrongType = errors.New("proxy does not speak the expected protocol")

	// ErrProxyCannotConnect is returned when no TCP connection to the proxy
	// could be established.
	ErrProxyCannotConnect = errors.New("cannot connect to proxy")

	// ErrProxyTimeout is returned when the proxy does not answer in time.
	ErrProxyTimeout = errors.New("timeout connecting to proxy")

	// ErrTorNotRunning is returned when an embedded Tor address is requested
	// before the daemon has started.
	ErrTorNotRunning = errors.New("embedded Tor daemon is not running")
)

// Status represents the result of checking a proxy.
type Status int

const (
	// StatusOK indicates the proxy answered with the expected protocol.
	StatusOK Status = iota

	// StatusWrongType indicates the proxy answered with something else.
	StatusWrongType

	// StatusCannotConnect indicates we could not establish a connection.
	StatusCannotConnect

	// StatusTimeout indicates the check timed out.
	StatusTimeout
)

// String returns a human-readable description of the proxy status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWrongType:
		return "wrong protocol"
	case StatusCannotConnect:
		return "cannot connect"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Err returns the matching sentinel error, or nil if the status is OK.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusWrongType:
		return ErrProxyWrongType
	case StatusCannotConnect:
		return ErrProxyCannotConnect
	case StatusTimeout:
		return ErrProxyTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
