package pageview

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gogpu/pageview/document"
	"github.com/gogpu/pageview/layout"
	"github.com/gogpu/pageview/render"
	"github.com/gogpu/pageview/search"
	"github.com/gogpu/pageview/surface"
)

// ErrEngineClosed is returned by operations on a closed engine.
var ErrEngineClosed = errors.New("pageview: engine is closed")

// ErrNoDocument is returned by operations that need an open document.
var ErrNoDocument = errors.New("pageview: no document open")

// Stats is a snapshot of engine counters for leak detection and
// diagnostics: a pool outstanding count that grows under steady
// scrolling indicates a surface leak.
type Stats struct {
	Render          render.Stats
	PoolOutstanding int
	SearchCache     cacheStats
}

type cacheStats struct {
	Len     int
	HitRate float64
}

// Engine is the document viewer orchestrator. It owns the document
// handle and wires geometry, virtualization, scheduling and search
// into one lifecycle:
//
//	open → (scroll | zoom | navigate | search)* → close
//
// Viewport changes are explicit events (Scroll, SetZoom, SetViewportSize);
// each triggers the virtualize → reconcile → render sequence. Results
// arrive through the WithOnPage sink, per page, in completion order.
//
// Engine is safe for concurrent use.
type Engine struct {
	opts    engineOptions
	opener  document.Opener
	pool    *surface.Pool
	ownPool bool
	log     *slog.Logger

	scroller *Coalescer

	// openMu serializes Open calls: at most one document handle may be
	// live, so a replaced handle is always released before the next one
	// is installed.
	openMu sync.Mutex

	mu            sync.Mutex
	doc           *document.Handle
	geom          *layout.Index
	vp            layout.State
	sched         *render.Scheduler
	idx           *search.Index
	window        layout.Window
	rendered      map[int]float64 // pages delivered to the display layer, by scale
	pendingScroll float64
	loadErr       error
	closed        bool
}

// New creates an engine. The opener adapts the host's document decoder
// (a PDF library or similar); the engine itself never parses bytes.
func New(opener document.Opener, opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine{
		opts:     o,
		opener:   opener,
		log:      Logger(),
		rendered: make(map[int]float64),
	}
	if o.pool != nil {
		e.pool = o.pool
	} else {
		e.pool = surface.NewPool(o.poolCapacity, nil)
		e.ownPool = true
	}
	if o.scrollCoalesce > 0 {
		e.scroller = NewCoalescer(o.scrollCoalesce, e.applyPendingScroll)
	}
	return e
}

// Pool returns the engine's surface pool. Display layers release
// delivered surfaces through it.
func (e *Engine) Pool() *surface.Pool { return e.pool }

// Open loads a document, replacing any previously open one. The
// previous document's tasks are cancelled and its handle released
// before the new source is opened. On failure the engine holds the
// load error (see LoadErr) and blocks page operations until a retry
// succeeds.
func (e *Engine) Open(ctx context.Context, src document.Source) error {
	e.openMu.Lock()
	defer e.openMu.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	e.teardownDocLocked()
	e.mu.Unlock()

	// The decoder open is I/O bound; do not hold the engine lock
	// across it or scrolling a failing document would freeze the UI.
	h, err := document.Open(ctx, src, e.opener, e.opts.openTimeout)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		if h != nil {
			_ = h.Close()
		}
		return ErrEngineClosed
	}
	if err != nil {
		e.loadErr = err
		return err
	}
	e.loadErr = nil
	e.doc = h

	heights := make([]float64, h.PageCount())
	for i, ih := range h.Heights() {
		if ih > 0 {
			heights[i] = ih
		} else {
			heights[i] = e.opts.estimatedHeight
		}
	}
	e.geom = layout.NewIndex(heights, 1)
	for i, w := range h.Widths() {
		e.geom.SetPageSize(i, w, 0)
	}

	e.vp = layout.DefaultState(e.vp.ContainerWidth, e.vp.ContainerHeight)
	e.window = layout.Window{First: 0, Last: -1}

	e.idx = search.NewIndex(search.Config{
		Pages:    h.PageCount(),
		Extract:  e.extractText,
		OnUpdate: e.opts.onSearch,
		Logger:   e.log,
	})

	sched, err := render.NewScheduler(render.Config{
		Pool:        e.pool,
		Render:      e.renderPage,
		SurfaceSize: e.surfaceSize,
		Deliver:     e.deliver,
		Workers:     e.opts.workers,
		Logger:      e.log,
	})
	if err != nil {
		// Engine collaborators are all non-nil here; treat as corrupt
		// wiring rather than panic.
		e.loadErr = err
		return err
	}
	e.sched = sched

	e.log.Debug("document opened", "pages", h.PageCount())
	e.reconcileLocked()
	return nil
}

// LoadErr returns the error of the last failed Open, or nil. Load
// errors are fatal to the document and block page operations until a
// retry succeeds; document.IsLoadError and the document sentinels let
// the host pick a retry affordance.
func (e *Engine) LoadErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadErr
}

// PageCount returns the open document's page count, 0 when none.
func (e *Engine) PageCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return 0
	}
	return e.doc.PageCount()
}

// Viewport returns the current viewport state.
func (e *Engine) Viewport() layout.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vp
}

// SetViewportSize sets the viewport dimensions (logical units) and
// reconciles the visible window.
func (e *Engine) SetViewportSize(width, height float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.vp.ContainerWidth = width
	e.vp.ContainerHeight = height
	e.reconcileLocked()
}

// Scroll sets the scroll offset. With scroll coalescing enabled,
// reconciliation is deferred to the trailing edge of the burst;
// otherwise it runs synchronously.
func (e *Engine) Scroll(offset float64) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if e.scroller != nil {
		e.pendingScroll = offset
		e.mu.Unlock()
		e.scroller.Trigger()
		return
	}
	e.applyScrollLocked(offset)
	e.mu.Unlock()
}

func (e *Engine) applyPendingScroll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.applyScrollLocked(e.pendingScroll)
}

func (e *Engine) applyScrollLocked(offset float64) {
	if e.geom == nil {
		return
	}
	e.vp.ScrollOffset = layout.ClampScroll(offset, e.geom.TotalHeight(), e.vp.ContainerHeight)
	e.reconcileLocked()
}

// Zoom returns the current zoom factor.
func (e *Engine) Zoom() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vp.Zoom
}

// SetZoom sets the zoom factor, clamped to the configured range.
// Zoom invalidates every rendered page: all in-flight tasks are
// cancelled and geometry rescales before any render against the new
// geometry is issued.
func (e *Engine) SetZoom(zoom float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.geom == nil {
		return
	}
	zoom = e.clampZoom(zoom)
	if zoom == e.vp.Zoom {
		return
	}

	// Keep the viewport anchored at the same document position across
	// the rescale.
	var anchor float64
	if total := e.geom.TotalHeight(); total > 0 {
		anchor = e.vp.ScrollOffset / total
	}

	e.sched.CancelAll()
	e.evictAllLocked()
	e.geom.Rescale(zoom)
	e.vp.Zoom = zoom
	e.vp.ScrollOffset = layout.ClampScroll(anchor*e.geom.TotalHeight(), e.geom.TotalHeight(), e.vp.ContainerHeight)
	e.reconcileLocked()
}

func (e *Engine) clampZoom(z float64) float64 {
	if z < e.opts.zoomMin {
		return e.opts.zoomMin
	}
	if z > e.opts.zoomMax {
		return e.opts.zoomMax
	}
	return z
}

// ScrollToPage scrolls so page i is visible with the given alignment
// and returns the resulting offset.
func (e *Engine) ScrollToPage(i int, align layout.Align) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.geom == nil {
		return 0
	}
	offset := layout.ScrollToPage(e.geom, i, align, e.vp.ContainerHeight)
	e.applyScrollLocked(offset)
	return offset
}

// CurrentPage returns the page whose midpoint is closest to the top of
// the viewport.
func (e *Engine) CurrentPage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vp.CurrentPage
}

// Thumbnail renders page i into a transient surface at the configured
// thumbnail scale, delivered through the page sink with Thumbnail set.
// Thumbnails are best-effort: a saturated render queue returns
// render.ErrThumbnailDropped and the caller may retry.
func (e *Engine) Thumbnail(i int) error {
	e.mu.Lock()
	sched := e.sched
	e.mu.Unlock()
	if sched == nil {
		return ErrNoDocument
	}
	return sched.Thumbnail(i, e.opts.thumbnailScale)
}

// Search starts a scan for query, superseding any in-flight scan.
// The empty query clears matches without scanning.
func (e *Engine) Search(query string) {
	e.mu.Lock()
	idx := e.idx
	e.mu.Unlock()
	if idx != nil {
		idx.Search(query)
	}
}

// SearchSnapshot returns the current query state.
func (e *Engine) SearchSnapshot() (search.Snapshot, bool) {
	e.mu.Lock()
	idx := e.idx
	e.mu.Unlock()
	if idx == nil {
		return search.Snapshot{}, false
	}
	return idx.Snapshot(), true
}

// NextMatch advances to the next match with wraparound and scrolls its
// page into view.
func (e *Engine) NextMatch() (search.Match, bool) {
	e.mu.Lock()
	idx := e.idx
	e.mu.Unlock()
	if idx == nil {
		return search.Match{}, false
	}
	m, ok := idx.Next()
	if ok {
		e.ScrollToPage(m.Page, layout.AlignStart)
	}
	return m, ok
}

// PreviousMatch steps back to the previous match with wraparound and
// scrolls its page into view.
func (e *Engine) PreviousMatch() (search.Match, bool) {
	e.mu.Lock()
	idx := e.idx
	e.mu.Unlock()
	if idx == nil {
		return search.Match{}, false
	}
	m, ok := idx.Previous()
	if ok {
		e.ScrollToPage(m.Page, layout.AlignStart)
	}
	return m, ok
}

// Stats returns a snapshot of engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	sched := e.sched
	idx := e.idx
	e.mu.Unlock()
	var st Stats
	if sched != nil {
		st.Render = sched.Stats()
	}
	st.PoolOutstanding = e.pool.Outstanding()
	if idx != nil {
		cs := idx.CacheStats()
		st.SearchCache = cacheStats{Len: cs.Len, HitRate: cs.HitRate}
	}
	return st
}

// Close cancels all tasks, releases pooled surfaces (for an
// engine-owned pool) and the document handle. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	if e.scroller != nil {
		e.scroller.Stop()
	}
	e.teardownDocLocked()
	e.mu.Unlock()

	if e.ownPool {
		return e.pool.Close()
	}
	return nil
}

// teardownDocLocked releases the current document and everything
// scoped to it. Caller holds e.mu.
func (e *Engine) teardownDocLocked() {
	if e.sched != nil {
		// Close drains workers; their cleanup paths release surfaces
		// back to the pool.
		sched := e.sched
		e.sched = nil
		e.mu.Unlock()
		_ = sched.Close()
		e.mu.Lock()
	}
	if e.idx != nil {
		e.idx.Close()
		e.idx = nil
	}
	if e.doc != nil {
		_ = e.doc.Close()
		e.doc = nil
	}
	e.evictAllLocked()
	e.geom = nil
	e.window = layout.Window{First: 0, Last: -1}
	e.vp = layout.DefaultState(e.vp.ContainerWidth, e.vp.ContainerHeight)
}

// reconcileLocked recomputes the visible window and brings the
// scheduler in line with it: stale tasks cancelled, missing pages
// requested, adjacent pages preloaded at low priority. Caller holds
// e.mu.
func (e *Engine) reconcileLocked() {
	if e.doc == nil || e.geom == nil || e.geom.Len() == 0 || e.sched == nil {
		return
	}
	win := layout.ComputeVisible(e.vp, e.geom, e.opts.overscan)
	e.window = win
	e.vp.CurrentPage = win.Current

	n := e.geom.Len()
	keepFirst := win.First - e.opts.preload
	keepLast := win.Last + e.opts.preload
	if keepFirst < 0 {
		keepFirst = 0
	}
	if keepLast > n-1 {
		keepLast = n - 1
	}
	keep := func(page int) bool { return page >= keepFirst && page <= keepLast }

	e.sched.CancelExcept(keep)
	for page := range e.rendered {
		if !keep(page) {
			delete(e.rendered, page)
			if e.opts.onEvict != nil {
				e.opts.onEvict(page)
			}
		}
	}

	for page := win.First; page <= win.Last; page++ {
		e.requestLocked(page, render.PriorityVisible)
	}
	for page := keepFirst; page < win.First; page++ {
		e.requestLocked(page, render.PriorityPreload)
	}
	for page := win.Last + 1; page <= keepLast; page++ {
		e.requestLocked(page, render.PriorityPreload)
	}
}

// requestLocked schedules a page render unless the display layer
// already holds it at the right scale or a task at that scale is in
// flight.
func (e *Engine) requestLocked(page int, pri render.Priority) {
	scale := e.scaleForLocked(page)
	if s, ok := e.rendered[page]; ok && s == scale {
		return
	}
	if _, s, ok := e.sched.Active(page); ok && s == scale {
		return
	}
	_ = e.sched.Request(page, scale, pri)
}

func (e *Engine) scaleForLocked(page int) float64 {
	return render.EffectiveScale(
		e.vp.ContainerWidth,
		e.geom.PageWidth(page),
		e.vp.Zoom,
		e.opts.devicePixelRatio,
	)
}

// surfaceSize sizes the render surface for a page at a scale.
func (e *Engine) surfaceSize(page int, scale float64) (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.geom == nil {
		return 1, 1
	}
	w := e.geom.PageWidth(page)
	if w <= 0 {
		// Unknown intrinsic width: size to the container.
		w = e.vp.ContainerWidth
		if w <= 0 {
			w = e.opts.estimatedHeight
		}
	}
	h := e.geom.PageHeight(page) / e.geom.Zoom()
	pw := int(w*scale + 0.5)
	ph := int(h*scale + 0.5)
	if pw < 1 {
		pw = 1
	}
	if ph < 1 {
		ph = 1
	}
	return pw, ph
}

// renderPage adapts the document decoder to the scheduler.
func (e *Engine) renderPage(ctx context.Context, page int, scale float64, surf surface.Surface) error {
	e.mu.Lock()
	doc := e.doc
	e.mu.Unlock()
	if doc == nil {
		return ErrNoDocument
	}
	p, err := doc.Page(page)
	if err != nil {
		return err
	}
	return p.Render(ctx, surf, document.RenderParams{Scale: scale})
}

// extractText adapts the document decoder to the search index.
func (e *Engine) extractText(ctx context.Context, page int) (string, error) {
	e.mu.Lock()
	doc := e.doc
	e.mu.Unlock()
	if doc == nil {
		return "", ErrNoDocument
	}
	p, err := doc.Page(page)
	if err != nil {
		return "", err
	}
	return p.Text(ctx)
}

// deliver receives scheduler results on worker goroutines, keeps the
// rendered bookkeeping, and forwards to the host sink.
func (e *Engine) deliver(res render.Result) {
	if res.Thumbnail {
		if e.opts.onPage != nil {
			e.opts.onPage(res)
		}
		return
	}

	e.mu.Lock()
	if e.closed || !e.keepContains(res.Page) {
		// The window moved on while this page rendered; reclaim the
		// surface instead of handing the host a stale page.
		e.mu.Unlock()
		if res.Surface != nil {
			e.pool.Release(res.Surface)
		}
		return
	}
	if res.Err == nil {
		e.rendered[res.Page] = res.Scale
	}
	e.mu.Unlock()

	if e.opts.onPage != nil {
		e.opts.onPage(res)
	} else if res.Surface != nil {
		// No sink configured: nothing will ever release the surface,
		// so reclaim it here.
		e.pool.Release(res.Surface)
	}
}

// evictAllLocked drops every rendered-page record, notifying the host
// so it releases the surfaces it holds. Caller holds e.mu.
func (e *Engine) evictAllLocked() {
	for page := range e.rendered {
		delete(e.rendered, page)
		if e.opts.onEvict != nil {
			e.opts.onEvict(page)
		}
	}
}

// keepContains reports whether page is inside the preload-extended
// window. Caller holds e.mu.
func (e *Engine) keepContains(page int) bool {
	return page >= e.window.First-e.opts.preload && page <= e.window.Last+e.opts.preload
}
