// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package present

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/pageview/cache"
)

// Common errors returned by Presenter operations.
var (
	// ErrNilProvider is returned when a nil DeviceProvider is passed.
	ErrNilProvider = errors.New("present: nil DeviceProvider")

	// ErrPresenterClosed is returned after Close.
	ErrPresenterClosed = errors.New("present: presenter is closed")

	// ErrNoTexture is returned when drawing a page that has not been
	// uploaded (or was evicted).
	ErrNoTexture = errors.New("present: no texture for page")

	// ErrTextureCreationFailed wraps creator failures.
	ErrTextureCreationFailed = errors.New("present: texture creation failed")

	// ErrInvalidImage is returned for nil or empty page images.
	ErrInvalidImage = errors.New("present: invalid page image")
)

// DefaultTextureBudget is the default number of page textures kept
// resident per cache shard. Visible pages plus overscan fit comfortably;
// older pages are evicted and destroyed.
const DefaultTextureBudget = 4

// textureDestroyer matches the Destroy method on GPU texture types.
type textureDestroyer interface {
	Destroy()
}

// pageTexture is one resident page texture.
type pageTexture struct {
	tex    any
	width  int
	height int
}

// Presenter keeps per-page GPU textures for a host that composites
// with gogpu. Presenter is safe for concurrent use, but uploads and
// draws must happen on the host's GPU thread, as with any gpucontext
// resource.
type Presenter struct {
	provider gpucontext.DeviceProvider

	mu       sync.Mutex
	textures *cache.Sharded[int, *pageTexture]
	closed   bool
}

// New creates a presenter bound to the host's device provider.
// budget <= 0 uses DefaultTextureBudget.
func New(provider gpucontext.DeviceProvider, budget int) (*Presenter, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if budget <= 0 {
		budget = DefaultTextureBudget
	}
	p := &Presenter{provider: provider}
	p.textures = cache.New(budget, cache.IntHasher, func(_ int, pt *pageTexture) {
		destroyTexture(pt)
	})
	return p, nil
}

// Format returns the pixel format uploads use.
func (p *Presenter) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Provider returns the device provider the presenter was bound to.
func (p *Presenter) Provider() gpucontext.DeviceProvider { return p.provider }

// Upload makes img the resident texture for page. An existing texture
// of the same size is updated in place; a size change recreates it.
func (p *Presenter) Upload(creator gpucontext.TextureCreator, page int, img *image.RGBA) error {
	if img == nil || img.Bounds().Empty() {
		return ErrInvalidImage
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPresenterClosed
	}

	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	data := packPixels(img)

	if pt, ok := p.textures.Get(page); ok && pt.width == w && pt.height == h {
		if updater, ok := pt.tex.(gpucontext.TextureUpdater); ok {
			if err := updater.UpdateData(data); err != nil {
				return fmt.Errorf("present: texture update failed: %w", err)
			}
			return nil
		}
		// No update support: fall through and recreate.
	}

	tex, err := creator.NewTextureFromRGBA(w, h, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTextureCreationFailed, err)
	}
	// Page pixels are premultiplied alpha; mark the texture so the
	// host composites with the matching blend pipeline.
	if pm, ok := tex.(interface{ SetPremultiplied(bool) }); ok {
		pm.SetPremultiplied(true)
	}
	if old, ok := p.textures.Get(page); ok {
		destroyTexture(old)
	}
	p.textures.Set(page, &pageTexture{tex: tex, width: w, height: h})
	return nil
}

// Draw draws the page's resident texture at the given position.
func (p *Presenter) Draw(dc gpucontext.TextureDrawer, page int, x, y float32) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPresenterClosed
	}
	pt, ok := p.textures.Get(page)
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoTexture, page)
	}
	tex, ok := pt.tex.(gpucontext.Texture)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoTexture, page)
	}
	return dc.DrawTexture(tex, x, y)
}

// Resident reports whether the page currently has a texture.
func (p *Presenter) Resident(page int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	_, ok := p.textures.Get(page)
	return ok
}

// Evict destroys the page's texture, if resident.
func (p *Presenter) Evict(page int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if pt, ok := p.textures.Get(page); ok {
		destroyTexture(pt)
		p.textures.Delete(page)
	}
}

// Stats reports texture cache counters.
func (p *Presenter) Stats() cache.Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.textures.Stats()
}

// Close destroys all resident textures. Close is idempotent.
func (p *Presenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.textures.Clear()
	return nil
}

func destroyTexture(pt *pageTexture) {
	if pt == nil {
		return
	}
	if d, ok := pt.tex.(textureDestroyer); ok {
		d.Destroy()
	}
}

// packPixels returns tightly packed RGBA bytes for upload, copying
// row by row when the image stride includes padding.
func packPixels(img *image.RGBA) []byte {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if img.Stride == w*4 {
		return img.Pix
	}
	out := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+w*4]
		copy(out[y*w*4:], src)
	}
	return out
}
