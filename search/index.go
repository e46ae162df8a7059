package search

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gogpu/pageview/cache"
)

// Extractor returns the text content of a page. Supplied by the
// engine, which adapts the document decoder.
type Extractor func(ctx context.Context, page int) (string, error)

// Snapshot is the state of the current query delivered to the
// consumer: the ordered matches found so far, the current match index
// (-1 before any navigation), and whether the scan has finished.
type Snapshot struct {
	Query   string
	Matches []Match
	Current int
	Done    bool
}

// Index is the lazy text search index for one open document.
//
// Search starts an incremental scan over pages on a background
// goroutine; a newer query cancels and supersedes it. Page text is
// cached on first extraction, so retyping a query rescans cached text
// instead of re-decoding.
//
// Index is safe for concurrent use.
type Index struct {
	pages   int
	extract Extractor
	texts   *cache.Sharded[int, string]
	log     *slog.Logger
	update  func(Snapshot)

	mu      sync.Mutex
	gen     uint64
	query   string
	matches []Match
	current int
	cancel  context.CancelFunc
	done    bool
}

// Config assembles an Index.
type Config struct {
	// Pages is the document page count.
	Pages int

	// Extract returns a page's text. Required.
	Extract Extractor

	// TextCapacity bounds cached page texts per cache shard.
	// <= 0 uses the cache default.
	TextCapacity int

	// OnUpdate, if set, is called with a snapshot whenever the match
	// list extends or the scan finishes. Called from the scan
	// goroutine.
	OnUpdate func(Snapshot)

	// Logger receives debug output. Nil discards.
	Logger *slog.Logger
}

// NewIndex creates a search index for a document.
func NewIndex(cfg Config) *Index {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Index{
		pages:   cfg.Pages,
		extract: cfg.Extract,
		texts:   cache.New[int, string](cfg.TextCapacity, cache.IntHasher, nil),
		log:     log,
		update:  cfg.OnUpdate,
		current: -1,
	}
}

// Search starts a scan for query, superseding any in-flight scan for a
// previous query. An empty query clears all matches without scanning.
func (x *Index) Search(query string) {
	x.mu.Lock()
	if x.cancel != nil {
		x.cancel()
		x.cancel = nil
	}
	x.gen++
	gen := x.gen
	x.query = query
	x.matches = nil
	x.current = -1
	x.done = query == ""
	if query == "" {
		x.mu.Unlock()
		x.notify()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	x.cancel = cancel
	x.mu.Unlock()

	go x.scan(ctx, gen, query)
}

// scan walks pages in order, extending the match list incrementally.
func (x *Index) scan(ctx context.Context, gen uint64, query string) {
	m := newMatcher(query)
	for page := 0; page < x.pages; page++ {
		if ctx.Err() != nil {
			return
		}
		text, ok := x.pageText(ctx, page)
		if !ok {
			continue
		}
		found := m.find(page, text)
		if len(found) == 0 {
			continue
		}
		if !x.append(gen, found) {
			return
		}
	}
	x.finish(gen)
}

// pageText returns the page's text, extracting and caching it on first
// use. Extraction failure is "no match on this page": logged, never
// surfaced, and left uncached so a later search may retry.
func (x *Index) pageText(ctx context.Context, page int) (string, bool) {
	if text, ok := x.texts.Get(page); ok {
		return text, true
	}
	text, err := x.extract(ctx, page)
	if err != nil {
		if ctx.Err() == nil {
			x.log.Debug("text extraction failed", "page", page, "err", err)
		}
		return "", false
	}
	x.texts.Set(page, text)
	return text, true
}

// append extends the match list if the scan generation is still
// current, assigning global ordinals.
func (x *Index) append(gen uint64, found []Match) bool {
	x.mu.Lock()
	if gen != x.gen {
		x.mu.Unlock()
		return false
	}
	base := len(x.matches)
	for i := range found {
		found[i].Ordinal = base + i
	}
	x.matches = append(x.matches, found...)
	x.mu.Unlock()
	x.notify()
	return true
}

func (x *Index) finish(gen uint64) {
	x.mu.Lock()
	if gen != x.gen {
		x.mu.Unlock()
		return
	}
	x.done = true
	x.mu.Unlock()
	x.notify()
}

func (x *Index) notify() {
	if x.update == nil {
		return
	}
	x.update(x.snapshot())
}

func (x *Index) snapshot() Snapshot {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]Match, len(x.matches))
	copy(out, x.matches)
	return Snapshot{Query: x.query, Matches: out, Current: x.current, Done: x.done}
}

// Snapshot returns the current query state.
func (x *Index) Snapshot() Snapshot { return x.snapshot() }

// Next advances to the next match with wraparound and returns it.
func (x *Index) Next() (Match, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.matches) == 0 {
		return Match{}, false
	}
	x.current = (x.current + 1) % len(x.matches)
	return x.matches[x.current], true
}

// Previous steps back to the previous match with wraparound.
func (x *Index) Previous() (Match, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.matches) == 0 {
		return Match{}, false
	}
	if x.current <= 0 {
		x.current = len(x.matches) - 1
	} else {
		x.current--
	}
	return x.matches[x.current], true
}

// CacheStats reports page-text cache counters.
func (x *Index) CacheStats() cache.Stats { return x.texts.Stats() }

// Close cancels any in-flight scan and clears cached text.
func (x *Index) Close() {
	x.mu.Lock()
	if x.cancel != nil {
		x.cancel()
		x.cancel = nil
	}
	x.gen++
	x.matches = nil
	x.current = -1
	x.done = true
	x.mu.Unlock()
	x.texts.Clear()
}
