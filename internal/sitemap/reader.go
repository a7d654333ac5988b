package sitemap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/sitemapper/internal/model"
)

// maxLineSize bounds a single input line. Exported HTML or logs can carry
// very long lines.
const maxLineSize = 4 * 1024 * 1024

// ReadURLList extracts URLs from free-form text.
//
// Each line is split on '<', '>' and '"', so URLs can be scraped out of
// HTML, XML sitemaps and quoted log lines as well as plain lists. Every
// piece is trimmed; inner spaces are escaped as %20. Protocol-relative
// pieces ("//host/path") are read as https. The result is normalized and
// deduplicated, in input order.
//
// Pieces that look like URLs (they contain "://" or start with "//") but
// fail normalization are reported in the returned error slice with their
// line number; other text is ignored. A read failure is reported as a
// final error wrapping ErrIO.
func ReadURLList(r io.Reader) ([]model.URL, []error) {
	urls := make([]model.URL, 0)
	errs := make([]error, 0)
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		for _, piece := range splitPieces(scanner.Text()) {
			u, err := parsePiece(piece)
			if err != nil {
				if looksLikeURL(piece) {
					errs = append(errs, fmt.Errorf("line %d: %w", line, err))
				}
				continue
			}
			if _, dup := seen[u.Key()]; dup {
				continue
			}
			seen[u.Key()] = struct{}{}
			urls = append(urls, u)
		}
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("%w: line %d: %w", ErrIO, line+1, err))
	}
	return urls, errs
}

// ReadURLFile opens path and reads it with ReadURLList.
func ReadURLFile(path string) ([]model.URL, []error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, []error{fmt.Errorf("%w: failed to open %s: %w", ErrIO, path, err)}
	}
	defer f.Close()
	return ReadURLList(f)
}

func splitPieces(line string) []string {
	parts := strings.FieldsFunc(line, func(r rune) bool {
		return r == '<' || r == '>' || r == '"'
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parsePiece(piece string) (model.URL, error) {
	u, err := model.NormalizeURL(piece, nil)
	if err == nil {
		return u, nil
	}
	if strings.HasPrefix(piece, "//") {
		if u, httpsErr := model.NormalizeURL("https:"+piece, nil); httpsErr == nil {
			return u, nil
		}
	}
	return model.URL{}, err
}

func looksLikeURL(piece string) bool {
	return strings.Contains(piece, "://") || strings.HasPrefix(piece, "//")
}
