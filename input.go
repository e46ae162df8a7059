package pageview

import "github.com/gogpu/pageview/layout"

// Key is a navigation key event, pre-translated by the host from its
// input system.
type Key int

const (
	// KeyPageNext steps forward one page (arrow down / page down).
	KeyPageNext Key = iota
	// KeyPagePrev steps back one page (arrow up / page up).
	KeyPagePrev
	// KeyZoomIn raises zoom by one step (Ctrl +).
	KeyZoomIn
	// KeyZoomOut lowers zoom by one step (Ctrl -).
	KeyZoomOut
	// KeyHome jumps to the first page.
	KeyHome
	// KeyEnd jumps to the last page.
	KeyEnd
)

// HandleKey translates a key event into the corresponding viewport
// mutation. Unknown keys are ignored.
func (e *Engine) HandleKey(k Key) {
	switch k {
	case KeyPageNext:
		e.ScrollToPage(e.CurrentPage()+1, layout.AlignStart)
	case KeyPagePrev:
		e.ScrollToPage(e.CurrentPage()-1, layout.AlignStart)
	case KeyZoomIn:
		e.SetZoom(e.Zoom() + e.opts.zoomStep)
	case KeyZoomOut:
		e.SetZoom(e.Zoom() - e.opts.zoomStep)
	case KeyHome:
		e.ScrollToPage(0, layout.AlignStart)
	case KeyEnd:
		e.ScrollToPage(e.PageCount()-1, layout.AlignStart)
	}
}
