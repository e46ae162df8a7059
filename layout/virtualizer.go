package layout

// Align selects where a page lands in the viewport after ScrollToPage.
type Align int

const (
	// AlignStart places the page top at the viewport top.
	AlignStart Align = iota
	// AlignCenter centers the page vertically in the viewport.
	AlignCenter
	// AlignEnd places the page bottom at the viewport bottom.
	AlignEnd
)

// Window is the result of virtualization: the inclusive range of pages
// to keep rendered, and the page reported as current.
type Window struct {
	// First and Last bound the overscanned visible range, inclusive.
	// Empty documents yield First == 0, Last == -1.
	First, Last int

	// Current is the page whose vertical midpoint is closest to the
	// viewport top. Ties resolve to the later page, so a boundary
	// sitting exactly at the viewport top reports the entering page.
	Current int
}

// Contains reports whether page i falls inside the window.
func (w Window) Contains(i int) bool { return i >= w.First && i <= w.Last }

// Pages returns the window as a slice of page indices.
func (w Window) Pages() []int {
	if w.Last < w.First {
		return nil
	}
	ps := make([]int, 0, w.Last-w.First+1)
	for i := w.First; i <= w.Last; i++ {
		ps = append(ps, i)
	}
	return ps
}

// ComputeVisible computes the overscanned visible window for the given
// viewport state. It binary-searches the first intersecting page, then
// walks forward while pages intersect the viewport, so the cost is
// O(log n + k) for k pages in range.
func ComputeVisible(st State, idx *Index, overscan int) Window {
	n := idx.Len()
	if n == 0 {
		return Window{First: 0, Last: -1}
	}
	if overscan < 0 {
		overscan = 0
	}

	top := st.ScrollOffset
	bottom := st.ScrollOffset + st.ContainerHeight

	first := idx.PageAt(top)
	last := first
	for last+1 < n && idx.PageTop(last+1) < bottom {
		last++
	}

	current := currentPage(idx, first, last, top)

	first -= overscan
	last += overscan
	if first < 0 {
		first = 0
	}
	if last > n-1 {
		last = n - 1
	}
	return Window{First: first, Last: last, Current: current}
}

// currentPage picks the page whose midpoint is closest to the viewport
// top among the strictly visible pages and their immediate neighbors.
func currentPage(idx *Index, first, last int, top float64) int {
	lo, hi := first-1, last
	if lo < 0 {
		lo = 0
	}
	best, bestDist := lo, -1.0
	for i := lo; i <= hi; i++ {
		mid := idx.PageTop(i) + idx.PageHeight(i)/2
		d := mid - top
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d <= bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// ScrollToPage returns the scroll offset that brings page i into view
// with the requested alignment, clamped to the valid scroll range.
func ScrollToPage(idx *Index, i int, align Align, containerHeight float64) float64 {
	if n := idx.Len(); n == 0 {
		return 0
	} else if i < 0 {
		i = 0
	} else if i >= n {
		i = n - 1
	}

	top := idx.PageTop(i)
	h := idx.PageHeight(i)

	var target float64
	switch align {
	case AlignCenter:
		target = top + h/2 - containerHeight/2
	case AlignEnd:
		target = top + h - containerHeight
	default:
		target = top
	}
	return ClampScroll(target, idx.TotalHeight(), containerHeight)
}
