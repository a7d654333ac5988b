package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

// RenderOptions controls WriteText.
type RenderOptions struct {
	// Raw shows the body as received instead of the pretty-printed form.
	Raw bool

	// HideBody omits the body section.
	HideBody bool
}

// WriteText writes the exchange in a terminal-friendly layout: the request,
// the response status line and headers, the body, the page summary of an
// HTML response and a size/time footer.
func WriteText(w io.Writer, ex *Exchange, opts RenderOptions) error {
	var sb strings.Builder

	sb.WriteString("=== Request ===\n")
	sb.WriteString(ex.Request)
	sb.WriteString("\n")

	if ex.StatusLine != "" {
		sb.WriteString("=== Response ===\n")
		sb.WriteString(ex.StatusLine)
		sb.WriteString("\n")
		writeHeaders(&sb, ex.Headers)
		sb.WriteString("\n")
	}

	if ex.Error != "" {
		fmt.Fprintf(&sb, "Error: %s\n\n", ex.Error)
	}

	if !opts.HideBody && ex.Body != "" {
		body := ex.PrettyBody
		if opts.Raw || body == "" {
			body = ex.Body
		}
		fmt.Fprintf(&sb, "=== Body (%s) ===\n", ex.Language)
		sb.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if ex.Description != "" || ex.Robots != "" || ex.Canonical != "" {
		sb.WriteString("=== Page ===\n")
		for _, f := range []struct{ name, value string }{
			{"Description", ex.Description},
			{"Robots", ex.Robots},
			{"Canonical", ex.Canonical},
		} {
			if f.value != "" {
				fmt.Fprintf(&sb, "%s: %s\n", f.name, f.value)
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString(Footer(ex))
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// Footer summarizes size and timing, e.g. "1.2 kB | 35 ms | title: Home".
func Footer(ex *Exchange) string {
	parts := make([]string, 0, 4)
	size := humanize.Bytes(uint64(ex.BodySize)) //nolint:gosec // body size is non-negative
	if ex.ContentLength >= 0 && ex.ContentLength != int64(ex.BodySize) {
		size += fmt.Sprintf(" (Content-Length %s)", humanize.Bytes(uint64(ex.ContentLength)))
	}
	parts = append(parts, size, fmt.Sprintf("%d ms", ex.ElapsedMS))
	if ex.Title != "" {
		parts = append(parts, "title: "+ex.Title)
	}
	if ex.Links > 0 {
		links := fmt.Sprintf("%d links", ex.Links)
		if ex.ExternalLinks > 0 {
			links += fmt.Sprintf(" (%d external)", ex.ExternalLinks)
		}
		parts = append(parts, links)
	}
	return strings.Join(parts, " | ")
}

// WriteJSON writes the exchange as indented JSON.
func WriteJSON(w io.Writer, ex *Exchange) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ex)
}
