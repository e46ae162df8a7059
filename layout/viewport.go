package layout

// State captures the viewer's scroll and zoom position. It is mutated
// only by user scroll/zoom/navigation actions and is reset to defaults
// whenever the underlying document changes.
type State struct {
	// ScrollOffset is the vertical scroll position in scaled units.
	ScrollOffset float64

	// ContainerHeight is the visible viewport height in scaled units.
	ContainerHeight float64

	// ContainerWidth is the visible viewport width in logical units,
	// used for fit-width scale calculation.
	ContainerWidth float64

	// Zoom is the current zoom factor.
	Zoom float64

	// CurrentPage is the page whose midpoint is closest to the top of
	// the viewport, maintained by the virtualizer.
	CurrentPage int
}

// DefaultState returns the state a freshly opened document starts in.
func DefaultState(containerWidth, containerHeight float64) State {
	return State{
		ContainerWidth:  containerWidth,
		ContainerHeight: containerHeight,
		Zoom:            1,
	}
}

// ClampScroll limits a scroll offset to the valid range for the given
// total content height: [0, totalHeight-containerHeight], never negative.
func ClampScroll(offset, totalHeight, containerHeight float64) float64 {
	max := totalHeight - containerHeight
	if max < 0 {
		max = 0
	}
	if offset < 0 {
		return 0
	}
	if offset > max {
		return max
	}
	return offset
}
