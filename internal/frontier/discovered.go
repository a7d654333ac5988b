package frontier

import (
	"sync"

	"github.com/nao1215/sitemapper/internal/model"
)

// Discovery is one accepted URL.
type Discovery struct {
	URL model.URL

	// External is true for out-of-scope URLs that were recorded but never fetched.
	External bool
}

// DiscoveredSet is an append-only, ordered set of canonical URLs.
//
// Append order is the order in which results were accepted, which for a
// concurrent crawl is completion order rather than enqueue order.
type DiscoveredSet struct {
	mu    sync.Mutex
	items []Discovery
	index map[string]struct{}
}

// NewDiscoveredSet creates an empty DiscoveredSet.
func NewDiscoveredSet() *DiscoveredSet {
	return &DiscoveredSet{
		items: make([]Discovery, 0),
		index: make(map[string]struct{}),
	}
}

// Add appends u unless its canonical key is already present.
// It returns true when u was appended.
func (d *DiscoveredSet) Add(u model.URL, external bool) bool {
	if u.IsZero() {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.index[u.Key()]; ok {
		return false
	}
	d.index[u.Key()] = struct{}{}
	d.items = append(d.items, Discovery{URL: u, External: external})
	return true
}

// Contains reports whether u's canonical key is present.
func (d *DiscoveredSet) Contains(u model.URL) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.index[u.Key()]
	return ok
}

// Len returns the number of discovered URLs.
func (d *DiscoveredSet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

// Snapshot returns a copy of the discoveries in append order.
func (d *DiscoveredSet) Snapshot() []Discovery {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Discovery, len(d.items))
	copy(out, d.items)
	return out
}

// URLs returns the discovered URLs in append order.
// When includeExternal is false, out-of-scope URLs are left out.
func (d *DiscoveredSet) URLs(includeExternal bool) []model.URL {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.URL, 0, len(d.items))
	for _, item := range d.items {
		if item.External && !includeExternal {
			continue
		}
		out = append(out, item.URL)
	}
	return out
}
