package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakePages is an Extractor over a fixed page-text slice that counts
// extractions per page.
type fakePages struct {
	texts []string
	errs  map[int]error

	mu    sync.Mutex
	calls map[int]int
}

func newFakePages(texts ...string) *fakePages {
	return &fakePages{texts: texts, calls: make(map[int]int)}
}

func (f *fakePages) extract(ctx context.Context, page int) (string, error) {
	f.mu.Lock()
	f.calls[page]++
	f.mu.Unlock()
	if err := f.errs[page]; err != nil {
		return "", err
	}
	return f.texts[page], nil
}

func (f *fakePages) callCount(page int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[page]
}

// waitDone polls until the index reports a finished scan.
func waitDone(t *testing.T, x *Index) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := x.Snapshot()
		if snap.Done {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatal("scan did not finish")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSearchFindsOrderedMatches(t *testing.T) {
	pages := newFakePages(
		"cover page",
		"terms and conditions",
		"first invoice for March",
		"appendix",
		"second invoice, final",
	)
	x := NewIndex(Config{Pages: 5, Extract: pages.extract})
	defer x.Close()

	x.Search("invoice")
	snap := waitDone(t, x)

	if len(snap.Matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(snap.Matches))
	}
	if snap.Matches[0].Page != 2 || snap.Matches[1].Page != 4 {
		t.Errorf("match pages = %d, %d, want 2, 4", snap.Matches[0].Page, snap.Matches[1].Page)
	}
	if snap.Matches[0].Ordinal != 0 || snap.Matches[1].Ordinal != 1 {
		t.Errorf("ordinals = %d, %d, want 0, 1", snap.Matches[0].Ordinal, snap.Matches[1].Ordinal)
	}
}

func TestNextPreviousWraparound(t *testing.T) {
	pages := newFakePages("", "", "invoice", "", "invoice")
	x := NewIndex(Config{Pages: 5, Extract: pages.extract})
	defer x.Close()

	x.Search("invoice")
	waitDone(t, x)

	m, ok := x.Next()
	if !ok || m.Page != 2 {
		t.Fatalf("first Next = page %d, want 2", m.Page)
	}
	if m, _ = x.Next(); m.Page != 4 {
		t.Errorf("second Next = page %d, want 4", m.Page)
	}
	// Wrap forward to the first match, then step back.
	if m, _ = x.Next(); m.Page != 2 {
		t.Errorf("wrapped Next = page %d, want 2", m.Page)
	}
	if m, _ = x.Previous(); m.Page != 4 {
		t.Errorf("Previous = page %d, want 4 (wrap backward)", m.Page)
	}
}

func TestNextWithoutMatches(t *testing.T) {
	pages := newFakePages("nothing here")
	x := NewIndex(Config{Pages: 1, Extract: pages.extract})
	defer x.Close()

	x.Search("absent")
	waitDone(t, x)
	if _, ok := x.Next(); ok {
		t.Error("Next with no matches should report false")
	}
	if _, ok := x.Previous(); ok {
		t.Error("Previous with no matches should report false")
	}
}

func TestEmptyQueryClears(t *testing.T) {
	pages := newFakePages("invoice", "invoice")
	x := NewIndex(Config{Pages: 2, Extract: pages.extract})
	defer x.Close()

	x.Search("invoice")
	waitDone(t, x)
	before := pages.callCount(0)

	x.Search("")
	snap := x.Snapshot()
	if len(snap.Matches) != 0 || !snap.Done || snap.Current != -1 {
		t.Errorf("snapshot after empty query = %+v, want cleared", snap)
	}
	if pages.callCount(0) != before {
		t.Error("empty query must not trigger extraction")
	}
}

func TestTextCachedAcrossQueries(t *testing.T) {
	pages := newFakePages("alpha beta", "gamma delta")
	x := NewIndex(Config{Pages: 2, Extract: pages.extract})
	defer x.Close()

	x.Search("alpha")
	waitDone(t, x)
	x.Search("delta")
	waitDone(t, x)

	for page := 0; page < 2; page++ {
		if got := pages.callCount(page); got != 1 {
			t.Errorf("page %d extracted %d times, want 1 (cached)", page, got)
		}
	}
}

func TestExtractionFailureSkipsPage(t *testing.T) {
	pages := newFakePages("invoice", "broken", "invoice")
	pages.errs = map[int]error{1: errors.New("no text layer")}
	x := NewIndex(Config{Pages: 3, Extract: pages.extract})
	defer x.Close()

	x.Search("invoice")
	snap := waitDone(t, x)
	if len(snap.Matches) != 2 {
		t.Fatalf("got %d matches, want 2 (failed page skipped)", len(snap.Matches))
	}

	// The failed page stays uncached, so the next query retries it.
	x.Search("invoice")
	waitDone(t, x)
	if got := pages.callCount(1); got != 2 {
		t.Errorf("failed page extracted %d times, want 2 (retry)", got)
	}
}

func TestNewQuerySupersedesScan(t *testing.T) {
	const pageCount = 50
	texts := make([]string, pageCount)
	for i := range texts {
		texts[i] = "invoice here"
	}

	gate := make(chan struct{})
	var once sync.Once
	var extractions atomic.Int32
	slow := func(ctx context.Context, page int) (string, error) {
		extractions.Add(1)
		// Park the first scan on its first page until the second
		// query has been issued.
		once.Do(func() {
			select {
			case <-gate:
			case <-ctx.Done():
			}
		})
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return texts[page], nil
	}

	x := NewIndex(Config{Pages: pageCount, Extract: slow})
	defer x.Close()

	x.Search("invoice")
	x.Search("here") // supersedes while the first scan is parked
	close(gate)

	snap := waitDone(t, x)
	if snap.Query != "here" {
		t.Fatalf("snapshot query = %q, want %q", snap.Query, "here")
	}
	if len(snap.Matches) != pageCount {
		t.Errorf("got %d matches, want %d", len(snap.Matches), pageCount)
	}
	for i, m := range snap.Matches {
		if m.Ordinal != i {
			t.Fatalf("match %d ordinal = %d; stale results interleaved", i, m.Ordinal)
		}
	}
}

func TestOnUpdateDeliversIncrementally(t *testing.T) {
	pages := newFakePages("invoice", "", "invoice")
	var mu sync.Mutex
	var snaps []Snapshot
	x := NewIndex(Config{
		Pages:   3,
		Extract: pages.extract,
		OnUpdate: func(s Snapshot) {
			mu.Lock()
			snaps = append(snaps, s)
			mu.Unlock()
		},
	})
	defer x.Close()

	x.Search("invoice")
	waitDone(t, x)

	mu.Lock()
	defer mu.Unlock()
	if len(snaps) < 2 {
		t.Fatalf("got %d updates, want at least 2 (incremental growth)", len(snaps))
	}
	// Match counts only grow within one query.
	prev := 0
	for i, s := range snaps {
		if len(s.Matches) < prev {
			t.Errorf("update %d shrank from %d to %d matches", i, prev, len(s.Matches))
		}
		prev = len(s.Matches)
	}
	last := snaps[len(snaps)-1]
	if !last.Done || len(last.Matches) != 2 {
		t.Errorf("final update = %+v, want done with 2 matches", last)
	}
}

func TestCloseCancelsScan(t *testing.T) {
	started := make(chan struct{})
	block := make(chan struct{})
	x := NewIndex(Config{
		Pages: 10,
		Extract: func(ctx context.Context, page int) (string, error) {
			if page == 0 {
				close(started)
				select {
				case <-block:
				case <-ctx.Done():
					return "", ctx.Err()
				}
			}
			return "text", nil
		},
	})

	x.Search("text")
	<-started
	x.Close()
	close(block)

	snap := x.Snapshot()
	if len(snap.Matches) != 0 || !snap.Done {
		t.Errorf("snapshot after Close = %+v, want empty and done", snap)
	}
}
