package document

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gogpu/pageview/surface"
)

// fakePage implements Page with fixed content.
type fakePage struct {
	text string
}

func (p *fakePage) Render(ctx context.Context, surf surface.Surface, params RenderParams) error {
	return nil
}

func (p *fakePage) Text(ctx context.Context) (string, error) { return p.text, nil }

// fakeDecoder implements Decoder over fixed page sizes.
type fakeDecoder struct {
	sizes  []PageSize
	closed int
}

func (d *fakeDecoder) PageCount() int { return len(d.sizes) }

func (d *fakeDecoder) PageSizeHint(i int) (PageSize, bool) {
	if d.sizes[i].Height == 0 {
		return PageSize{}, false
	}
	return d.sizes[i], true
}

func (d *fakeDecoder) Page(i int) (Page, error) {
	return &fakePage{text: fmt.Sprintf("page %d", i)}, nil
}

func (d *fakeDecoder) Close() error {
	d.closed++
	return nil
}

func openWith(dec Decoder, err error) Opener {
	return func(ctx context.Context, src Source) (Decoder, error) {
		return dec, err
	}
}

func TestSource(t *testing.T) {
	if !(Source{}).IsZero() {
		t.Error("zero Source should report IsZero")
	}
	if Bytes([]byte("x")).IsZero() || URL("file:///a.pdf").IsZero() {
		t.Error("populated Source should not report IsZero")
	}
}

func TestOpenCollectsSizeHints(t *testing.T) {
	dec := &fakeDecoder{sizes: []PageSize{
		{Width: 612, Height: 792},
		{}, // decoder has no upfront size for this page
		{Width: 842, Height: 1190},
	}}
	h, err := Open(context.Background(), Bytes([]byte("doc")), openWith(dec, nil), 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	if h.PageCount() != 3 {
		t.Errorf("PageCount = %d, want 3", h.PageCount())
	}
	heights := h.Heights()
	if heights[0] != 792 || heights[1] != 0 || heights[2] != 1190 {
		t.Errorf("Heights = %v, want [792 0 1190]", heights)
	}
	widths := h.Widths()
	if widths[0] != 612 || widths[1] != 0 || widths[2] != 842 {
		t.Errorf("Widths = %v, want [612 0 842]", widths)
	}
}

func TestOpenEmptySource(t *testing.T) {
	_, err := Open(context.Background(), Source{}, openWith(&fakeDecoder{}, nil), 0)
	if !errors.Is(err, ErrSourceUnreachable) {
		t.Errorf("Open(zero source) = %v, want ErrSourceUnreachable", err)
	}
}

func TestOpenNoOpener(t *testing.T) {
	_, err := Open(context.Background(), Bytes([]byte("doc")), nil, 0)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Open(nil opener) = %v, want ErrUnsupported", err)
	}
}

func TestOpenErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		openErr error
		want    error
	}{
		{"taxonomy error passes through", fmt.Errorf("%w: bad xref", ErrCorrupt), ErrCorrupt},
		{"unreachable passes through", fmt.Errorf("%w: dns failure", ErrSourceUnreachable), ErrSourceUnreachable},
		{"unsupported passes through", fmt.Errorf("%w: epub", ErrUnsupported), ErrUnsupported},
		{"unknown error wraps as corrupt", errors.New("parser panic"), ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), Bytes([]byte("doc")), openWith(nil, tt.openErr), 0)
			if !errors.Is(err, tt.want) {
				t.Errorf("Open = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenTimeout(t *testing.T) {
	slow := func(ctx context.Context, src Source) (Decoder, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	_, err := Open(context.Background(), Bytes([]byte("doc")), slow, 10*time.Millisecond)
	if !errors.Is(err, ErrOpenTimeout) {
		t.Fatalf("Open = %v, want ErrOpenTimeout", err)
	}
	// A timeout is retriable and must not be mistaken for corruption.
	if errors.Is(err, ErrCorrupt) {
		t.Error("timeout should not be classified as corrupt")
	}
}

func TestIsLoadError(t *testing.T) {
	for _, err := range []error{ErrSourceUnreachable, ErrCorrupt, ErrUnsupported, ErrOpenTimeout} {
		if !IsLoadError(fmt.Errorf("wrapped: %w", err)) {
			t.Errorf("IsLoadError(%v) = false, want true", err)
		}
	}
	if IsLoadError(errors.New("page 3 failed")) {
		t.Error("IsLoadError(per-page error) = true, want false")
	}
	if IsLoadError(nil) {
		t.Error("IsLoadError(nil) = true, want false")
	}
}

func TestHandlePage(t *testing.T) {
	dec := &fakeDecoder{sizes: make([]PageSize, 3)}
	h, err := Open(context.Background(), Bytes([]byte("doc")), openWith(dec, nil), 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	p, err := h.Page(1)
	if err != nil {
		t.Fatalf("Page(1): %v", err)
	}
	text, err := p.Text(context.Background())
	if err != nil || text != "page 1" {
		t.Errorf("Text = %q, %v, want %q", text, err, "page 1")
	}

	if _, err := h.Page(-1); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("Page(-1) = %v, want ErrPageOutOfRange", err)
	}
	if _, err := h.Page(3); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("Page(3) = %v, want ErrPageOutOfRange", err)
	}
}

func TestHandleClose(t *testing.T) {
	dec := &fakeDecoder{sizes: make([]PageSize, 1)}
	h, err := Open(context.Background(), Bytes([]byte("doc")), openWith(dec, nil), 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if dec.closed != 1 {
		t.Errorf("decoder closed %d times, want 1", dec.closed)
	}
	if _, err := h.Page(0); !errors.Is(err, ErrClosed) {
		t.Errorf("Page after Close = %v, want ErrClosed", err)
	}
}
