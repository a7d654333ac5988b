package fetcher

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// AcceptEncoding lists the content codings DecodeBody understands.
const AcceptEncoding = "gzip, deflate, br"

// ErrDecode is returned when a body cannot be decoded with its declared
// Content-Encoding.
var ErrDecode = errors.New("failed to decode response body")

// DecodeBody reads resp.Body, undoing any gzip, deflate or br content
// coding, and keeps at most limit decoded bytes. It does not close the body.
//
// Errors raised by the network read wrap ErrTransport; errors raised by the
// decoder wrap ErrDecode.
func DecodeBody(resp *http.Response, limit int64) ([]byte, error) {
	if resp == nil || resp.Body == nil || resp.ContentLength == 0 {
		return nil, nil
	}

	raw := &trackingReader{r: resp.Body}
	reader, err := decodingReader(raw, resp.Header.Get("Content-Encoding"))
	if err != nil {
		if raw.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTransport, raw.err)
		}
		return nil, err
	}
	defer reader.Close()

	body, err := io.ReadAll(io.LimitReader(reader, limit))
	if err != nil {
		if raw.err != nil && errors.Is(err, raw.err) {
			return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return body, nil
}

// trackingReader remembers the last non-EOF error of the wrapped reader so
// network failures can be told apart from decoder failures.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		t.err = err
	}
	return n, err
}

// decodingReader wraps r according to a Content-Encoding header value.
func decodingReader(r io.Reader, encoding string) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return io.NopCloser(r), nil
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %w", ErrDecode, err)
		}
		return gz, nil
	case "br":
		return io.NopCloser(brotli.NewReader(r)), nil
	case "deflate":
		// Servers send either zlib-wrapped or raw deflate data under this name.
		br := bufio.NewReader(r)
		header, err := br.Peek(2)
		if err == nil && isZlibHeader(header) {
			zr, err := zlib.NewReader(br)
			if err != nil {
				return nil, fmt.Errorf("%w: deflate: %w", ErrDecode, err)
			}
			return zr, nil
		}
		return flate.NewReader(br), nil
	default:
		return nil, fmt.Errorf("%w: unsupported content encoding %q", ErrDecode, encoding)
	}
}

// isZlibHeader checks the RFC 1950 CMF/FLG pair.
func isZlibHeader(h []byte) bool {
	return h[0]&0x0f == 8 && (uint16(h[0])<<8|uint16(h[1]))%31 == 0
}
