// Package document defines the boundary between the viewer engine and
// the external document decoder. The engine never parses document
// bytes itself: a Decoder (backed by a PDF library or similar) is
// supplied by the host and opened through this package, which adds the
// open timeout, the load-error taxonomy, and exclusive ownership of
// decoder resources via Handle.
package document
