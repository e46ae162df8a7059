package document

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/pageview/surface"
)

// DefaultOpenTimeout bounds how long Open waits for the decoder before
// failing with ErrOpenTimeout.
const DefaultOpenTimeout = 30 * time.Second

// Source identifies a document to open: a URL or an in-memory byte
// buffer. Exactly one of the two fields should be set; when both are
// set the bytes win.
type Source struct {
	URL  string
	Data []byte
}

// Bytes returns a Source over an in-memory buffer.
func Bytes(data []byte) Source { return Source{Data: data} }

// URL returns a Source resolving to a remote or local document.
func URL(u string) Source { return Source{URL: u} }

// IsZero reports whether the source identifies nothing.
func (s Source) IsZero() bool { return s.URL == "" && len(s.Data) == 0 }

// PageSize is the intrinsic size of a page in logical units.
type PageSize struct {
	Width, Height float64
}

// RenderParams carries the parameters for drawing one page.
type RenderParams struct {
	// Scale is the effective device scale factor for this render.
	Scale float64
}

// Page is one decoded page. Page values are only valid while the
// owning Handle is open.
type Page interface {
	// Render draws the page into the surface at the given parameters.
	// Render must honor ctx cancellation on a best-effort basis.
	Render(ctx context.Context, surf surface.Surface, params RenderParams) error

	// Text returns the page's text content in reading order.
	Text(ctx context.Context) (string, error)
}

// Decoder is the external collaborator that parses document bytes.
// Implementations adapt a PDF library (or any paginated format) to the
// engine. A Decoder is owned by exactly one Handle.
type Decoder interface {
	// PageCount returns the number of pages.
	PageCount() int

	// PageSizeHint returns the intrinsic size of page i, if the
	// decoder knows it before the page is decoded.
	PageSizeHint(i int) (PageSize, bool)

	// Page returns page i for rendering and text extraction.
	Page(i int) (Page, error)

	// Close releases decoder resources. Close is idempotent.
	Close() error
}

// Opener turns a Source into a Decoder. The implementation maps its
// native failures onto the load-error taxonomy (wrap ErrCorrupt,
// ErrUnsupported, ErrSourceUnreachable with %w).
type Opener func(ctx context.Context, src Source) (Decoder, error)

// Handle owns an open document and its decoder resources exclusively.
// At most one live Handle exists per viewer instance; opening a new
// document releases the previous handle first.
type Handle struct {
	mu      sync.Mutex
	dec     Decoder
	pages   int
	heights []float64
	widths  []float64
	closed  bool
}

// Open opens src through the opener, bounded by timeout (<= 0 uses
// DefaultOpenTimeout). A deadline hit maps to ErrOpenTimeout so the
// caller can distinguish it from a decode failure.
func Open(ctx context.Context, src Source, open Opener, timeout time.Duration) (*Handle, error) {
	if open == nil {
		return nil, fmt.Errorf("%w: no opener configured", ErrUnsupported)
	}
	if src.IsZero() {
		return nil, fmt.Errorf("%w: empty source", ErrSourceUnreachable)
	}
	if timeout <= 0 {
		timeout = DefaultOpenTimeout
	}
	octx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dec, err := open(octx, src)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(octx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %v", ErrOpenTimeout, timeout, err)
		}
		if IsLoadError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	h := &Handle{dec: dec, pages: dec.PageCount()}
	h.heights = make([]float64, h.pages)
	h.widths = make([]float64, h.pages)
	for i := 0; i < h.pages; i++ {
		if sz, ok := dec.PageSizeHint(i); ok {
			h.heights[i] = sz.Height
			h.widths[i] = sz.Width
		}
	}
	return h, nil
}

// PageCount returns the number of pages. Zero means an empty (but
// successfully loaded) document, which callers treat distinctly from a
// load failure.
func (h *Handle) PageCount() int { return h.pages }

// Heights returns the intrinsic per-page heights. Entries are 0 where
// the decoder had no upfront size; geometry falls back to an estimate.
func (h *Handle) Heights() []float64 { return h.heights }

// Widths returns the intrinsic per-page widths, 0 where unknown.
func (h *Handle) Widths() []float64 { return h.widths }

// Page returns page i from the underlying decoder.
func (h *Handle) Page(i int) (Page, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	if i < 0 || i >= h.pages {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, i, h.pages)
	}
	return h.dec.Page(i)
}

// Close releases the decoder. Close is idempotent.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.dec.Close()
}
