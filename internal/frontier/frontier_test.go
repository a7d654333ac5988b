package frontier

import (
	"fmt"
	"sync"
	"testing"

	"github.com/nao1215/sitemapper/internal/model"
)

// TestFrontierOffer tests deduplication on offer.
func TestFrontierOffer(t *testing.T) {
	t.Parallel()

	t.Run("equivalent spellings yield one entry", func(t *testing.T) {
		t.Parallel()

		f := New()
		inputs := []string{"http://a.com/", "http://a.com", "http://a.com/", "HTTP://A.COM:80/#top"}
		accepted := 0
		for _, raw := range inputs {
			if f.Offer(model.MustNormalizeURL(raw)) {
				accepted++
			}
		}

		if accepted != 1 {
			t.Errorf("accepted %d offers, expected 1", accepted)
		}
		if f.Len() != 1 {
			t.Errorf("Len() = %d, expected 1", f.Len())
		}
		if f.SeenCount() != 1 {
			t.Errorf("SeenCount() = %d, expected 1", f.SeenCount())
		}
	})

	t.Run("taken urls are never enqueued again", func(t *testing.T) {
		t.Parallel()

		f := New()
		u := model.MustNormalizeURL("http://a.com/x")
		f.Offer(u)
		if _, ok := f.Take(); !ok {
			t.Fatal("expected an entry")
		}
		if f.Offer(u) {
			t.Error("expected re-offer after take to be rejected")
		}
		if !f.IsEmpty() {
			t.Error("expected frontier to be empty")
		}
	})

	t.Run("zero url is rejected", func(t *testing.T) {
		t.Parallel()

		f := New()
		if f.Offer(model.URL{}) {
			t.Error("expected zero URL to be rejected")
		}
		if f.SeenCount() != 0 {
			t.Errorf("SeenCount() = %d, expected 0", f.SeenCount())
		}
	})
}

// TestFrontierFIFO tests breadth-first ordering and depths.
func TestFrontierFIFO(t *testing.T) {
	t.Parallel()

	f := New()
	f.OfferAt(model.MustNormalizeURL("http://a.com/"), 0)
	f.OfferAt(model.MustNormalizeURL("http://a.com/1"), 1)
	f.OfferAt(model.MustNormalizeURL("http://a.com/2"), 1)
	f.OfferAt(model.MustNormalizeURL("http://a.com/1/1"), 2)

	expected := []struct {
		path  string
		depth int
	}{
		{"/", 0}, {"/1", 1}, {"/2", 1}, {"/1/1", 2},
	}
	for _, want := range expected {
		e, ok := f.Take()
		if !ok {
			t.Fatalf("frontier empty, expected %s", want.path)
		}
		if e.URL.Path() != want.path || e.Depth != want.depth {
			t.Errorf("got %s@%d, expected %s@%d", e.URL.Path(), e.Depth, want.path, want.depth)
		}
	}
	if _, ok := f.Take(); ok {
		t.Error("expected frontier to be exhausted")
	}
}

// TestFrontierMarkSeen tests recording without enqueueing.
func TestFrontierMarkSeen(t *testing.T) {
	t.Parallel()

	f := New()
	u := model.MustNormalizeURL("http://other.com/x")

	if !f.MarkSeen(u) {
		t.Error("expected first MarkSeen to return true")
	}
	if f.MarkSeen(u) {
		t.Error("expected second MarkSeen to return false")
	}
	if f.Offer(u) {
		t.Error("expected offer of a seen URL to be rejected")
	}
	if !f.IsEmpty() {
		t.Error("MarkSeen must not enqueue")
	}
	if f.SeenCount() != 1 {
		t.Errorf("SeenCount() = %d, expected 1", f.SeenCount())
	}
}

// TestFrontierCompaction tests that the queue keeps order across compaction.
func TestFrontierCompaction(t *testing.T) {
	t.Parallel()

	f := New()
	const total = 5000
	for i := range total {
		f.Offer(model.MustNormalizeURL(fmt.Sprintf("http://a.com/%d", i)))
	}
	for i := range total {
		e, ok := f.Take()
		if !ok {
			t.Fatalf("frontier empty at %d", i)
		}
		if want := fmt.Sprintf("/%d", i); e.URL.Path() != want {
			t.Fatalf("got %s, expected %s", e.URL.Path(), want)
		}
		if i == total/2 && f.Len() != total-i-1 {
			t.Fatalf("Len() = %d, expected %d", f.Len(), total-i-1)
		}
	}
}

// TestFrontierConcurrentOffer tests that concurrent offers of overlapping
// URL sets enqueue each canonical key exactly once.
func TestFrontierConcurrentOffer(t *testing.T) {
	t.Parallel()

	f := New()
	const workers = 16
	const distinct = 200

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := 0
			for i := range distinct {
				raw := fmt.Sprintf("http://a.com/p%d", i)
				if w%2 == 0 {
					raw += "/"
				}
				if f.Offer(model.MustNormalizeURL(raw)) {
					local++
				}
			}
			mu.Lock()
			accepted += local
			mu.Unlock()
		}()
	}
	wg.Wait()

	if accepted != distinct {
		t.Errorf("accepted %d offers, expected %d", accepted, distinct)
	}
	if f.SeenCount() != distinct {
		t.Errorf("SeenCount() = %d, expected %d", f.SeenCount(), distinct)
	}
	if f.Len() != distinct {
		t.Errorf("Len() = %d, expected %d", f.Len(), distinct)
	}
}
