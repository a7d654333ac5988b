package sitemap

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/nao1215/sitemapper/internal/model"
)

// Appender streams URLs into a sitemap file as they are discovered.
//
// Every line is handed to the operating system in a single write, so a
// crash or stop leaves only complete lines behind. Flush forces the
// written lines to stable storage.
//
// Appender is safe for concurrent use.
type Appender struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	seen   map[string]struct{}
	count  int
	closed bool
}

// NewAppender creates (or truncates) the file at path.
func NewAppender(path string) (*Appender, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("%w: failed to create directory %s: %w", ErrIO, dir, err)
		}
	}
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", ErrIO, path, err)
	}
	return &Appender{
		path: path,
		file: f,
		seen: make(map[string]struct{}),
	}, nil
}

// Append writes u as one line unless its canonical key was already written.
func (a *Appender) Append(u model.URL) error {
	if u.IsZero() {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return fmt.Errorf("%w: %s is closed", ErrIO, a.path)
	}
	if _, dup := a.seen[u.Key()]; dup {
		return nil
	}
	if _, err := a.file.Write([]byte(u.String() + "\n")); err != nil {
		return fmt.Errorf("%w: failed to append to %s: %w", ErrIO, a.path, err)
	}
	a.seen[u.Key()] = struct{}{}
	a.count++
	return nil
}

// Flush syncs the written lines to disk.
func (a *Appender) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	if err := a.file.Sync(); err != nil {
		return fmt.Errorf("%w: failed to sync %s: %w", ErrIO, a.path, err)
	}
	return nil
}

// Close flushes and closes the file. Closing twice is a no-op.
func (a *Appender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	syncErr := a.file.Sync()
	if err := a.file.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %w", ErrIO, a.path, err)
	}
	if syncErr != nil {
		return fmt.Errorf("%w: failed to sync %s: %w", ErrIO, a.path, syncErr)
	}
	return nil
}

// Path returns the file path.
func (a *Appender) Path() string {
	return a.path
}

// Count returns the number of lines written.
func (a *Appender) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}
