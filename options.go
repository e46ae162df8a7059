package pageview

import (
	"time"

	"github.com/gogpu/pageview/document"
	"github.com/gogpu/pageview/layout"
	"github.com/gogpu/pageview/render"
	"github.com/gogpu/pageview/search"
	"github.com/gogpu/pageview/surface"
)

// Option configures an Engine during creation.
//
// Example:
//
//	eng := pageview.New(opener,
//	    pageview.WithOverscan(3),
//	    pageview.WithZoomRange(0.25, 4),
//	    pageview.WithOnPage(display.Accept),
//	)
type Option func(*engineOptions)

type engineOptions struct {
	pool             *surface.Pool
	poolCapacity     int
	openTimeout      time.Duration
	overscan         int
	preload          int
	zoomMin          float64
	zoomMax          float64
	zoomStep         float64
	devicePixelRatio float64
	estimatedHeight  float64
	thumbnailScale   float64
	workers          int
	scrollCoalesce   time.Duration
	onPage           func(render.Result)
	onEvict          func(page int)
	onSearch         func(search.Snapshot)
}

func defaultOptions() engineOptions {
	return engineOptions{
		poolCapacity:     surface.DefaultPoolCapacity,
		openTimeout:      document.DefaultOpenTimeout,
		overscan:         2,
		preload:          1,
		zoomMin:          0.5,
		zoomMax:          3.0,
		zoomStep:         0.1,
		devicePixelRatio: 1,
		estimatedHeight:  layout.DefaultEstimatedHeight,
		thumbnailScale:   0.2,
	}
}

// WithPool injects an explicitly owned surface pool. The engine does
// not close an injected pool; the caller that shares a pool between
// viewers owns its teardown. Without this option the engine creates
// and owns a private pool.
func WithPool(p *surface.Pool) Option {
	return func(o *engineOptions) { o.pool = p }
}

// WithPoolCapacity sets the capacity of the engine-owned pool.
// Ignored when WithPool is used.
func WithPoolCapacity(n int) Option {
	return func(o *engineOptions) { o.poolCapacity = n }
}

// WithOpenTimeout bounds document opening. A deadline hit surfaces as
// document.ErrOpenTimeout, distinct from a decode error.
func WithOpenTimeout(d time.Duration) Option {
	return func(o *engineOptions) { o.openTimeout = d }
}

// WithOverscan sets how many pages beyond the visible viewport are
// rendered on each side to mask render latency during scrolling.
// Large documents with slow decoders may want more than the default 2.
func WithOverscan(n int) Option {
	return func(o *engineOptions) {
		if n >= 0 {
			o.overscan = n
		}
	}
}

// WithPreload sets how many pages beyond the overscan window are
// rendered at low priority. Preload never competes with on-screen
// pages for pool capacity. 0 disables preloading.
func WithPreload(n int) Option {
	return func(o *engineOptions) {
		if n >= 0 {
			o.preload = n
		}
	}
}

// WithZoomRange sets the zoom clamp. The default is [0.5, 3.0].
func WithZoomRange(min, max float64) Option {
	return func(o *engineOptions) {
		if min > 0 && max >= min {
			o.zoomMin, o.zoomMax = min, max
		}
	}
}

// WithZoomStep sets the keyboard zoom increment. The default is 0.1.
func WithZoomStep(step float64) Option {
	return func(o *engineOptions) {
		if step > 0 {
			o.zoomStep = step
		}
	}
}

// WithDevicePixelRatio sets the display's pixel ratio, folded into the
// effective render scale.
func WithDevicePixelRatio(r float64) Option {
	return func(o *engineOptions) {
		if r > 0 {
			o.devicePixelRatio = r
		}
	}
}

// WithEstimatedPageHeight sets the fallback page height used when the
// decoder has no upfront size for a page.
func WithEstimatedPageHeight(h float64) Option {
	return func(o *engineOptions) {
		if h > 0 {
			o.estimatedHeight = h
		}
	}
}

// WithThumbnailScale sets the scale thumbnails render at.
func WithThumbnailScale(s float64) Option {
	return func(o *engineOptions) {
		if s > 0 {
			o.thumbnailScale = s
		}
	}
}

// WithWorkers bounds render concurrency. <= 0 uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *engineOptions) { o.workers = n }
}

// WithScrollCoalescing merges scroll events so reconciliation runs
// once per quiet window instead of on every tick. 0 (the default)
// reconciles synchronously on every Scroll call.
func WithScrollCoalescing(window time.Duration) Option {
	return func(o *engineOptions) { o.scrollCoalesce = window }
}

// WithOnPage sets the per-page result sink. Completed pages arrive
// independently and out of order; on success the result's surface
// belongs to the receiver until it returns it to the pool.
func WithOnPage(fn func(render.Result)) Option {
	return func(o *engineOptions) { o.onPage = fn }
}

// WithOnEvict notifies the display layer that a previously delivered
// page left the render window; the receiver should release the page's
// surface back to the pool.
func WithOnEvict(fn func(page int)) Option {
	return func(o *engineOptions) { o.onEvict = fn }
}

// WithOnSearch sets the search snapshot sink, called as the match list
// grows and when a scan finishes.
func WithOnSearch(fn func(search.Snapshot)) Option {
	return func(o *engineOptions) { o.onSearch = fn }
}
