package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/nao1215/sitemapper/internal/crawler"
	"github.com/nao1215/sitemapper/internal/fetcher"
	"github.com/nao1215/sitemapper/internal/model"
)

// ErrInvalidMethod is returned for request methods that are not HTTP tokens.
var ErrInvalidMethod = errors.New("invalid request method")

// Request describes one request to inspect.
type Request struct {
	// Method defaults to GET.
	Method string

	// URL is the target.
	URL model.URL

	// Headers are sent in addition to the fetcher's configured headers.
	Headers map[string]string

	// Body is sent as the request body when non-empty.
	Body string
}

// Exchange is one request/response pair as shown to an auditor.
type Exchange struct {
	// Request is the synthesized request text (request line and headers).
	Request string `json:"request"`

	// URL is the requested URL.
	URL string `json:"url"`

	// StatusCode is the response status code, or 0 when no response arrived.
	StatusCode int `json:"status_code,omitempty"`

	// StatusLine is the response status line, e.g. "HTTP/1.1 200 OK".
	StatusLine string `json:"status_line,omitempty"`

	// Headers are the response headers.
	Headers http.Header `json:"headers,omitempty"`

	// Body is the decoded response body.
	Body string `json:"body,omitempty"`

	// PrettyBody is Body re-indented when it is JSON, otherwise Body.
	PrettyBody string `json:"pretty_body,omitempty"`

	// Language names the body syntax: json, html, xml, javascript, css or text.
	Language string `json:"language"`

	// ContentLength is the declared Content-Length, or -1 when unknown.
	ContentLength int64 `json:"content_length"`

	// BodySize is the number of decoded body bytes kept.
	BodySize int `json:"body_size"`

	// Title is the HTML page title, if any.
	Title string `json:"title,omitempty"`

	// Description is the content of the description meta tag.
	Description string `json:"description,omitempty"`

	// Robots is the content of the robots meta tag.
	Robots string `json:"robots,omitempty"`

	// Canonical is the resolved target of <link rel="canonical">.
	Canonical string `json:"canonical,omitempty"`

	// Links is the number of distinct links found in an HTML body.
	Links int `json:"links,omitempty"`

	// ExternalLinks is how many of Links point to another host.
	ExternalLinks int `json:"external_links,omitempty"`

	// Elapsed is the time from sending the request to reading the body.
	Elapsed time.Duration `json:"-"`

	// ElapsedMS is Elapsed in milliseconds.
	ElapsedMS int64 `json:"elapsed_ms"`

	// Error describes why no response could be shown.
	Error string `json:"error,omitempty"`
}

// Inspector sends single requests through a fetcher's client, so the
// inspected exchange uses the same proxy, cookies and headers as a crawl.
type Inspector struct {
	client *http.Client
	cfg    fetcher.Config
	logger *slog.Logger
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Inspector) {
		i.logger = logger
	}
}

// New creates an Inspector backed by f.
func New(f *fetcher.Fetcher, opts ...Option) *Inspector {
	i := &Inspector{
		client: f.Client(),
		cfg:    f.Config(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Do sends req and returns the exchange. Redirects are not followed, so a
// 3xx response is shown as is.
//
// A transport failure returns both the partial exchange (request text,
// elapsed time, error message) and an error wrapping fetcher.ErrTransport.
func (i *Inspector) Do(ctx context.Context, req Request) (*Exchange, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	if strings.ContainsAny(method, " \t\r\n") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, req.Method)
	}
	if req.URL.IsZero() {
		return nil, fmt.Errorf("%w: empty url", model.ErrInvalidURL)
	}

	ctx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMethod, err)
	}
	httpReq.Header.Set("User-Agent", i.cfg.UserAgent)
	httpReq.Header.Set("Accept", "*/*")
	httpReq.Header.Set("Accept-Encoding", fetcher.AcceptEncoding)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	ex := &Exchange{
		Request:       i.requestText(httpReq, req.Body),
		URL:           req.URL.String(),
		Language:      "text",
		ContentLength: -1,
	}

	start := time.Now()
	resp, err := i.client.Do(httpReq)
	if err != nil {
		ex.setElapsed(time.Since(start))
		ex.Error = err.Error()
		i.logger.Debug("inspect request failed", slog.String("url", ex.URL), slog.Any("error", err))
		return ex, fmt.Errorf("%w: %w", fetcher.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := fetcher.DecodeBody(resp, i.cfg.MaxBodySize)
	ex.setElapsed(time.Since(start))
	if err != nil {
		ex.Error = err.Error()
	}

	ex.StatusCode = resp.StatusCode
	ex.StatusLine = fmt.Sprintf("%s %s", resp.Proto, resp.Status)
	ex.Headers = resp.Header
	ex.ContentLength = resp.ContentLength
	ex.BodySize = len(data)
	ex.Body = string(data)
	ex.Language = Language(resp.Header.Get("Content-Type"))
	ex.PrettyBody = ex.Body
	if ex.Language == "json" {
		ex.PrettyBody = PrettyJSON(data)
	}
	if ex.Language == "html" {
		i.describePage(ex, data, req.URL)
	}
	return ex, nil
}

// describePage fills the page summary of an HTML exchange.
func (i *Inspector) describePage(ex *Exchange, data []byte, page model.URL) {
	result, err := crawler.NewParser(page).Parse(bytes.NewReader(data))
	if err != nil {
		i.logger.Debug("failed to parse html", slog.String("url", ex.URL), slog.Any("error", err))
		return
	}
	ex.Title = result.Title
	ex.Description = result.Description
	ex.Robots = result.Robots
	ex.Canonical = result.Canonical
	ex.Links = len(result.InternalLinks) + len(result.ExternalLinks)
	ex.ExternalLinks = len(result.ExternalLinks)
}

func (ex *Exchange) setElapsed(d time.Duration) {
	ex.Elapsed = d
	ex.ElapsedMS = d.Milliseconds()
}

// requestText renders the request line and the headers that go on the
// wire, including the cookie and headers the transport injects.
func (i *Inspector) requestText(req *http.Request, body string) string {
	header := req.Header.Clone()
	if i.cfg.Cookie != "" {
		if existing := header.Get("Cookie"); existing != "" {
			header.Set("Cookie", existing+"; "+i.cfg.Cookie)
		} else {
			header.Set("Cookie", i.cfg.Cookie)
		}
	}
	for k, v := range i.cfg.Headers {
		header.Set(k, v)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s HTTP/1.1\n", req.Method, req.URL.RequestURI())
	fmt.Fprintf(&sb, "Host: %s\n", req.URL.Host)
	writeHeaders(&sb, header)
	if body != "" {
		sb.WriteString("\n")
		sb.WriteString(body)
		sb.WriteString("\n")
	}
	return sb.String()
}

// writeHeaders writes headers in canonical, sorted order.
func writeHeaders(sb *strings.Builder, header http.Header) {
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range header[k] {
			fmt.Fprintf(sb, "%s: %s\n", k, v)
		}
	}
}

// Language maps a Content-Type to the syntax used to display the body.
func Language(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return "json"
	case strings.Contains(ct, "text/html"), strings.Contains(ct, "xhtml"):
		return "html"
	case strings.Contains(ct, "xml"):
		return "xml"
	case strings.Contains(ct, "javascript"), strings.Contains(ct, "ecmascript"):
		return "javascript"
	case strings.Contains(ct, "text/css"):
		return "css"
	default:
		return "text"
	}
}

// PrettyJSON re-indents a JSON document. Invalid JSON is returned unchanged.
func PrettyJSON(data []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}
