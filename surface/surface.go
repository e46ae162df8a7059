// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"
)

// Surface is a reusable 2D drawing buffer a page is rendered into.
//
// The engine hands a Surface to the page decoder, which draws the page
// content through Image or DrawImage. Surfaces support CPU access only;
// GPU presentation is layered on top (see package present).
//
// Surfaces are NOT thread-safe. A surface is owned by a single render
// task while checked out of the pool.
type Surface interface {
	// Width returns the surface width in pixels.
	Width() int

	// Height returns the surface height in pixels.
	Height() int

	// Format returns the pixel format of the surface.
	Format() gputypes.TextureFormat

	// Clear fills the entire surface with the given color.
	Clear(c color.Color)

	// DrawImage draws an image into the destination rectangle,
	// scaling as needed. If opts is nil, default options are used.
	DrawImage(img image.Image, dst image.Rectangle, opts *DrawImageOptions)

	// Image returns the backing *image.RGBA for direct decoder access.
	// The returned image shares memory with the surface.
	Image() *image.RGBA

	// Snapshot returns a copy of the current surface contents.
	// Modifications to the copy do not affect the surface.
	Snapshot() *image.RGBA

	// Resize changes the surface dimensions, discarding content.
	Resize(width, height int) error

	// Close releases the surface. Close is idempotent.
	Close() error
}

// Quality selects the scaling kernel used by DrawImage.
type Quality int

const (
	// QualityFast uses nearest-neighbor scaling.
	QualityFast Quality = iota
	// QualityGood uses approximate bi-linear scaling (default).
	QualityGood
	// QualityBest uses Catmull-Rom scaling.
	QualityBest
)

// DrawImageOptions configures DrawImage.
type DrawImageOptions struct {
	// Quality selects the scaling kernel.
	Quality Quality

	// Op is the compositing operator. The zero value is draw.Over.
	Op draw.Op
}

// ImageSurface is the CPU surface implementation, backed by *image.RGBA.
type ImageSurface struct {
	img    *image.RGBA
	closed bool
}

// NewImageSurface creates a CPU surface with the given dimensions.
// Non-positive dimensions are raised to 1.
func NewImageSurface(width, height int) *ImageSurface {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	return &ImageSurface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Width returns the surface width.
func (s *ImageSurface) Width() int { return s.img.Bounds().Dx() }

// Height returns the surface height.
func (s *ImageSurface) Height() int { return s.img.Bounds().Dy() }

// Format returns the pixel format (RGBA8).
func (s *ImageSurface) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Clear fills the entire surface with the given color.
func (s *ImageSurface) Clear(c color.Color) {
	if s.closed {
		return
	}
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// DrawImage draws img into dst, scaling with the selected kernel.
func (s *ImageSurface) DrawImage(img image.Image, dst image.Rectangle, opts *DrawImageOptions) {
	if s.closed || img == nil {
		return
	}
	var o DrawImageOptions
	if opts != nil {
		o = *opts
	}
	var scaler xdraw.Scaler
	switch o.Quality {
	case QualityFast:
		scaler = xdraw.NearestNeighbor
	case QualityBest:
		scaler = xdraw.CatmullRom
	default:
		scaler = xdraw.ApproxBiLinear
	}
	scaler.Scale(s.img, dst, img, img.Bounds(), xdraw.Op(o.Op), nil)
}

// Image returns the backing image. It shares memory with the surface.
func (s *ImageSurface) Image() *image.RGBA {
	if s.closed {
		return nil
	}
	return s.img
}

// Snapshot returns a copy of the current surface contents.
func (s *ImageSurface) Snapshot() *image.RGBA {
	if s.closed {
		return nil
	}
	out := image.NewRGBA(s.img.Bounds())
	copy(out.Pix, s.img.Pix)
	return out
}

// Resize reallocates the backing image, discarding content.
// A resize to the current dimensions only clears the surface.
func (s *ImageSurface) Resize(width, height int) error {
	if s.closed {
		return ErrSurfaceClosed
	}
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	if s.Width() == width && s.Height() == height {
		clearPix(s.img)
		return nil
	}
	s.img = image.NewRGBA(image.Rect(0, 0, width, height))
	return nil
}

// Close releases the surface. Close is idempotent.
func (s *ImageSurface) Close() error {
	s.closed = true
	return nil
}

// clearPix zeroes the pixel data without reallocating.
func clearPix(img *image.RGBA) {
	for i := range img.Pix {
		img.Pix[i] = 0
	}
}
