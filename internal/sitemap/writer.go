package sitemap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/sitemapper/internal/model"
)

// Write writes urls to w, one per line, in order.
// URLs whose canonical key was already written are skipped.
func Write(w io.Writer, urls []model.URL) error {
	bw := bufio.NewWriter(w)
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u.IsZero() {
			continue
		}
		if _, dup := seen[u.Key()]; dup {
			continue
		}
		seen[u.Key()] = struct{}{}
		if _, err := bw.WriteString(u.String() + "\n"); err != nil {
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// WriteFile writes urls to path.
//
// The content goes to a temporary file in the same directory first and is
// renamed into place, so readers never observe a partially written sitemap.
func WriteFile(path string, urls []model.URL) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %w", ErrIO, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary file: %w", ErrIO, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := Write(tmp, urls); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: failed to sync %s: %w", ErrIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %w", ErrIO, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: failed to rename into %s: %w", ErrIO, path, err)
	}
	return nil
}
