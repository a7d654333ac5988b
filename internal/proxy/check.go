package proxy

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

// checkProxyTimeout bounds a connectivity check. The check never leaves the
// proxy, so it can be much shorter than a page fetch.
const checkProxyTimeout = 3 * time.Second

// checkTarget is the destination named in CONNECT requests during a check.
// The proxy only has to answer the request; whether it reaches the target
// does not matter.
const checkTarget = "example.com"

// SOCKS5 protocol constants
const (
	socks5Version       = 0x05
	socks5AuthNone      = 0x00
	socks5AuthPassword  = 0x02
	socks5AuthNoAccept  = 0xFF
	socks5CmdConnect    = 0x01
	socks5AddrTypeDomID = 0x03
)

// CheckConnection verifies that the proxy at addr is reachable and speaks the
// protocol its scheme declares.
//
// For SOCKS5 it performs the version/auth negotiation (including RFC 1929
// username/password when credentials are set) and a CONNECT request. For HTTP
// proxies it sends a CONNECT request and requires any well-formed HTTP
// response. Neither check sends traffic beyond the proxy.
func CheckConnection(ctx context.Context, addr *Address) Status {
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr.HostPort())
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return StatusTimeout
		}
		return StatusCannotConnect
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return StatusCannotConnect
	}

	switch addr.Scheme {
	case SchemeSOCKS5:
		return checkSOCKS5(conn, addr)
	case SchemeHTTPS:
		tlsConn := tls.Client(conn, &tls.Config{ServerName: addr.Host, InsecureSkipVerify: true}) //nolint:gosec // only probing the protocol
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return classifyReadError(err)
		}
		return checkHTTP(tlsConn, addr)
	default:
		return checkHTTP(conn, addr)
	}
}

// checkSOCKS5 runs the SOCKS5 greeting and a CONNECT on an open connection.
func checkSOCKS5(conn net.Conn, addr *Address) Status {
	greeting := []byte{socks5Version, 0x01, socks5AuthNone}
	if addr.HasAuth() {
		greeting = []byte{socks5Version, 0x02, socks5AuthNone, socks5AuthPassword}
	}
	if _, err := conn.Write(greeting); err != nil {
		return StatusCannotConnect
	}

	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		return classifyReadError(err)
	}
	if authResp[0] != socks5Version {
		return StatusWrongType
	}

	switch authResp[1] {
	case socks5AuthNone:
	case socks5AuthPassword:
		if !addr.HasAuth() {
			return StatusWrongType
		}
		if status := socks5Authenticate(conn, addr); status != StatusOK {
			return status
		}
	default:
		return StatusWrongType
	}

	connectReq := []byte{
		socks5Version,
		socks5CmdConnect,
		0x00, // reserved
		socks5AddrTypeDomID,
		byte(len(checkTarget)),
	}
	connectReq = append(connectReq, []byte(checkTarget)...)
	connectReq = append(connectReq, 0x00, 80)
	if _, err := conn.Write(connectReq); err != nil {
		return StatusCannotConnect
	}

	// Any reply code means the proxy processed the request.
	connectResp := make([]byte, 4)
	if _, err := io.ReadFull(conn, connectResp); err != nil {
		return classifyReadError(err)
	}
	if connectResp[0] != socks5Version {
		return StatusWrongType
	}
	return StatusOK
}

// socks5Authenticate performs the RFC 1929 username/password subnegotiation.
func socks5Authenticate(conn net.Conn, addr *Address) Status {
	if len(addr.Username) > 255 || len(addr.Password) > 255 {
		return StatusWrongType
	}
	req := []byte{0x01, byte(len(addr.Username))}
	req = append(req, addr.Username...)
	req = append(req, byte(len(addr.Password)))
	req = append(req, addr.Password...)
	if _, err := conn.Write(req); err != nil {
		return StatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return classifyReadError(err)
	}
	if resp[0] != 0x01 || resp[1] != 0x00 {
		return StatusWrongType
	}
	return StatusOK
}

// checkHTTP sends a CONNECT request and requires an HTTP response.
func checkHTTP(conn net.Conn, addr *Address) Status {
	target := net.JoinHostPort(checkTarget, "443")
	req := fmt.Sprintf("CONNECT %s HTTP/1.1\r\nHost: %s\r\n", target, target)
	if addr.HasAuth() {
		req += "Proxy-Authorization: Basic " + basicAuth(addr.Username, addr.Password) + "\r\n"
	}
	req += "\r\n"
	if _, err := io.WriteString(conn, req); err != nil {
		return StatusCannotConnect
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), &http.Request{Method: http.MethodConnect})
	if err != nil {
		return classifyReadError(err)
	}
	resp.Body.Close()
	return StatusOK
}

// classifyReadError maps a failed read to a status. A proxy that accepted
// the connection but answered with garbage or hung up is the wrong type.
func classifyReadError(err error) Status {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	return StatusWrongType
}

// basicAuth encodes credentials the way http.Request.SetBasicAuth does.
func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
