package frontier

import (
	"sync"

	"github.com/nao1215/sitemapper/internal/model"
)

// Entry is one unit of pending work.
type Entry struct {
	// URL is the normalized URL to fetch.
	URL model.URL

	// Depth is the link distance from the seed (the seed is 0).
	Depth int
}

// Frontier is a FIFO queue of URLs awaiting fetch plus the set of canonical
// keys already seen during the run.
//
// A key that enters the seen-set is never enqueued again, and the seen-set
// only grows. The zero value is not usable; use New.
type Frontier struct {
	mu    sync.Mutex
	queue []Entry
	head  int
	seen  map[string]struct{}
}

// New creates an empty Frontier.
func New() *Frontier {
	return &Frontier{
		queue: make([]Entry, 0),
		seen:  make(map[string]struct{}),
	}
}

// Offer enqueues u at depth 0 if its canonical key is new.
// It returns false, and does nothing, when the key was already seen.
func (f *Frontier) Offer(u model.URL) bool {
	return f.OfferAt(u, 0)
}

// OfferAt enqueues u at the given depth if its canonical key is new.
func (f *Frontier) OfferAt(u model.URL, depth int) bool {
	if u.IsZero() {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.seen[u.Key()]; ok {
		return false
	}
	f.seen[u.Key()] = struct{}{}
	f.queue = append(f.queue, Entry{URL: u, Depth: depth})
	return true
}

// MarkSeen inserts u into the seen-set without enqueueing it.
// Out-of-scope links and URLs restored from a previous run use this so they
// are recorded once but never fetched. It returns true if the key was new.
func (f *Frontier) MarkSeen(u model.URL) bool {
	if u.IsZero() {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.seen[u.Key()]; ok {
		return false
	}
	f.seen[u.Key()] = struct{}{}
	return true
}

// Take removes and returns the oldest entry.
// The second return value is false when the queue is empty.
func (f *Frontier) Take() (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.head >= len(f.queue) {
		return Entry{}, false
	}
	e := f.queue[f.head]
	f.queue[f.head] = Entry{}
	f.head++

	// Compact once the consumed prefix dominates the backing array.
	if f.head > 1024 && f.head*2 >= len(f.queue) {
		f.queue = append(make([]Entry, 0, len(f.queue)-f.head), f.queue[f.head:]...)
		f.head = 0
	}
	return e, true
}

// IsEmpty reports whether no entries are waiting.
func (f *Frontier) IsEmpty() bool {
	return f.Len() == 0
}

// Len returns the number of entries waiting.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue) - f.head
}

// SeenCount returns the size of the seen-set.
func (f *Frontier) SeenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}
