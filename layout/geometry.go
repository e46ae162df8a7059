package layout

import "sort"

// DefaultEstimatedHeight is the fallback page height, in logical units,
// used when the decoder cannot report per-page sizes upfront. Incremental
// parsers often only know exact sizes after the page is decoded.
const DefaultEstimatedHeight = 1100

// Index maps page indices to vertical offsets in the scrolled document.
//
// Offsets are strictly increasing in page index and contiguous: page i+1
// starts exactly where page i ends. The Index stores the intrinsic
// (zoom 1) heights and derives scaled offsets from the current zoom, so
// rescaling by z and then 1/z restores the original offsets exactly up
// to floating-point tolerance.
//
// An Index is immutable between Rescale calls and safe for concurrent
// readers. Rescale must not race with readers; the engine serializes it.
type Index struct {
	base   []float64 // intrinsic per-page heights, zoom 1
	widths []float64 // intrinsic per-page widths, 0 if unknown
	tops   []float64 // cumulative scaled offsets, len == Len()+1
	zoom   float64
}

// NewIndex builds a geometry index from intrinsic page heights.
// A non-positive height falls back to DefaultEstimatedHeight.
// The zoom factor is applied immediately; use 1 for unscaled layout.
func NewIndex(heights []float64, zoom float64) *Index {
	if zoom <= 0 {
		zoom = 1
	}
	base := make([]float64, len(heights))
	for i, h := range heights {
		if h <= 0 {
			h = DefaultEstimatedHeight
		}
		base[i] = h
	}
	idx := &Index{base: base, widths: make([]float64, len(heights))}
	idx.Rescale(zoom)
	return idx
}

// NewUniformIndex builds an index for n pages of identical height.
func NewUniformIndex(n int, height, zoom float64) *Index {
	hs := make([]float64, n)
	for i := range hs {
		hs[i] = height
	}
	return NewIndex(hs, zoom)
}

// SetPageSize records the intrinsic size of a page once the decoder
// reports it, replacing the estimate. The caller must Rescale (with the
// current zoom) afterwards to rebuild offsets.
func (x *Index) SetPageSize(i int, width, height float64) {
	if i < 0 || i >= len(x.base) {
		return
	}
	if height > 0 {
		x.base[i] = height
	}
	if width > 0 {
		x.widths[i] = width
	}
}

// Rescale recomputes all offsets for the given zoom factor. O(n), but
// zoom changes are discrete and infrequent; scroll-path lookups never
// pay this cost.
func (x *Index) Rescale(zoom float64) {
	if zoom <= 0 {
		zoom = 1
	}
	x.zoom = zoom
	tops := make([]float64, len(x.base)+1)
	for i, h := range x.base {
		tops[i+1] = tops[i] + h*zoom
	}
	x.tops = tops
}

// Zoom returns the zoom factor the offsets are currently scaled by.
func (x *Index) Zoom() float64 { return x.zoom }

// Len returns the number of pages.
func (x *Index) Len() int { return len(x.base) }

// TotalHeight returns the scaled height of the whole document.
// Zero pages yield zero height.
func (x *Index) TotalHeight() float64 { return x.tops[len(x.tops)-1] }

// PageTop returns the scaled vertical offset of the top of page i.
func (x *Index) PageTop(i int) float64 {
	if i < 0 {
		return 0
	}
	if i >= len(x.base) {
		return x.TotalHeight()
	}
	return x.tops[i]
}

// PageHeight returns the scaled height of page i.
func (x *Index) PageHeight(i int) float64 {
	if i < 0 || i >= len(x.base) {
		return 0
	}
	return x.tops[i+1] - x.tops[i]
}

// PageWidth returns the intrinsic width of page i, or 0 if unknown.
func (x *Index) PageWidth(i int) float64 {
	if i < 0 || i >= len(x.widths) {
		return 0
	}
	return x.widths[i]
}

// PageAt returns the index of the page containing the given vertical
// offset. Offsets before the document resolve to page 0, offsets at or
// past the end resolve to the last page. An empty index returns 0.
//
// Binary search over the cumulative offsets: O(log n), cheap enough for
// per-scroll-tick use.
func (x *Index) PageAt(offset float64) int {
	n := len(x.base)
	if n == 0 || offset <= 0 {
		return 0
	}
	if offset >= x.TotalHeight() {
		return n - 1
	}
	// First page whose bottom edge lies beyond the offset.
	i := sort.Search(n, func(i int) bool { return x.tops[i+1] > offset })
	if i >= n {
		i = n - 1
	}
	return i
}
