package layout

import "testing"

// TestComputeVisibleScenario runs the reference scenario: 10 pages of
// height 1100, container 1100, zoom 1, scrolled to 3300. The current
// page is 3 and overscan 2 yields {1..5}.
func TestComputeVisibleScenario(t *testing.T) {
	idx := NewUniformIndex(10, 1100, 1)
	st := State{ScrollOffset: 3300, ContainerHeight: 1100, Zoom: 1}

	win := ComputeVisible(st, idx, 2)
	if win.Current != 3 {
		t.Errorf("Current = %d, want 3", win.Current)
	}
	if win.First != 1 || win.Last != 5 {
		t.Errorf("window = [%d, %d], want [1, 5]", win.First, win.Last)
	}
	want := []int{1, 2, 3, 4, 5}
	got := win.Pages()
	if len(got) != len(want) {
		t.Fatalf("Pages() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Pages() = %v, want %v", got, want)
		}
	}
}

// TestComputeVisibleContainsScrollPage checks the invariant that the
// window always contains the page at the scroll offset, across the
// whole valid scroll range.
func TestComputeVisibleContainsScrollPage(t *testing.T) {
	idx := NewIndex([]float64{300, 1100, 50, 900, 2200, 640, 1100}, 1.25)
	const containerHeight = 800
	maxOffset := idx.TotalHeight() - containerHeight
	for off := 0.0; off <= maxOffset; off += 37 {
		st := State{ScrollOffset: off, ContainerHeight: containerHeight}
		win := ComputeVisible(st, idx, 2)
		if page := idx.PageAt(off); !win.Contains(page) {
			t.Fatalf("offset %v: window [%d, %d] misses page %d", off, win.First, win.Last, page)
		}
	}
}

func TestComputeVisibleClamping(t *testing.T) {
	idx := NewUniformIndex(4, 1000, 1)
	tests := []struct {
		name      string
		offset    float64
		overscan  int
		wantFirst int
		wantLast  int
	}{
		{"top of document", 0, 2, 0, 2},
		{"bottom of document", 3200, 2, 1, 3},
		{"huge overscan", 1500, 100, 0, 3},
		{"no overscan", 1500, 0, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := State{ScrollOffset: tt.offset, ContainerHeight: 800}
			win := ComputeVisible(st, idx, tt.overscan)
			if win.First != tt.wantFirst || win.Last != tt.wantLast {
				t.Errorf("window = [%d, %d], want [%d, %d]", win.First, win.Last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestComputeVisibleEmptyDocument(t *testing.T) {
	idx := NewIndex(nil, 1)
	win := ComputeVisible(State{ContainerHeight: 800}, idx, 2)
	if win.Last >= win.First {
		t.Errorf("empty document produced non-empty window [%d, %d]", win.First, win.Last)
	}
	if win.Pages() != nil {
		t.Errorf("Pages() = %v, want nil", win.Pages())
	}
}

// TestCurrentPageMidpointRule checks that the current page tracks the
// midpoint rule, not simply the first visible page: with a page
// boundary just above the viewport top, the mostly-scrolled-out page
// must not flicker back to current.
func TestCurrentPageMidpointRule(t *testing.T) {
	idx := NewUniformIndex(10, 1000, 1)
	tests := []struct {
		offset float64
		want   int
	}{
		{0, 0},
		{400, 0},  // page 0 midpoint (500) still closest
		{900, 0},  // page 0 midpoint (500) beats page 1's (1500)
		{1000, 1}, // exact boundary: entering page wins the tie
		{5499, 5}, // page 5 midpoint (5500) closest
		{9000, 9}, // last page
	}
	for _, tt := range tests {
		st := State{ScrollOffset: tt.offset, ContainerHeight: 1000}
		if win := ComputeVisible(st, idx, 2); win.Current != tt.want {
			t.Errorf("offset %v: Current = %d, want %d", tt.offset, win.Current, tt.want)
		}
	}
}

func TestScrollToPage(t *testing.T) {
	idx := NewUniformIndex(10, 1000, 1) // total 10000
	const ch = 800
	tests := []struct {
		name  string
		page  int
		align Align
		want  float64
	}{
		{"start", 3, AlignStart, 3000},
		{"center", 3, AlignCenter, 3100}, // 3000 + 500 - 400
		{"end", 3, AlignEnd, 3200},       // 3000 + 1000 - 800
		{"first page start", 0, AlignStart, 0},
		{"first page end clamps", 0, AlignEnd, 200},
		{"last page clamps to max", 9, AlignEnd, 9200},
		{"negative index clamps", -4, AlignStart, 0},
		{"index past end clamps", 42, AlignStart, 9000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScrollToPage(idx, tt.page, tt.align, ch); got != tt.want {
				t.Errorf("ScrollToPage = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClampScroll(t *testing.T) {
	if got := ClampScroll(-10, 1000, 300); got != 0 {
		t.Errorf("ClampScroll(-10) = %v, want 0", got)
	}
	if got := ClampScroll(900, 1000, 300); got != 700 {
		t.Errorf("ClampScroll(900) = %v, want 700", got)
	}
	// Content shorter than the container pins to 0.
	if got := ClampScroll(50, 200, 300); got != 0 {
		t.Errorf("ClampScroll short content = %v, want 0", got)
	}
}
