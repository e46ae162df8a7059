// Package layout provides the page-geometry math for the viewer:
// an Index mapping page index to vertical offset, a viewport
// virtualizer computing the visible page window from scroll position,
// and scroll-target calculation for page navigation.
//
// The Index is effectively immutable between Rescale calls and safe
// for concurrent readers. Virtualization is O(log n + k) per scroll
// event, where k is the number of pages in the visible window.
package layout
