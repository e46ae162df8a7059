// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"
	"image/color"
	"testing"
)

func TestSurfaceInterface(t *testing.T) {
	var _ Surface = (*ImageSurface)(nil)
}

func TestNewImageSurfaceDimensions(t *testing.T) {
	s := NewImageSurface(320, 240)
	if s.Width() != 320 || s.Height() != 240 {
		t.Errorf("size = %dx%d, want 320x240", s.Width(), s.Height())
	}
	// Degenerate dimensions are raised to 1.
	s = NewImageSurface(0, -5)
	if s.Width() != 1 || s.Height() != 1 {
		t.Errorf("degenerate size = %dx%d, want 1x1", s.Width(), s.Height())
	}
}

func TestClearFillsSurface(t *testing.T) {
	s := NewImageSurface(8, 8)
	s.Clear(color.RGBA{R: 255, A: 255})
	img := s.Image()
	at := img.RGBAAt(4, 4)
	if at.R != 255 || at.A != 255 {
		t.Errorf("pixel after Clear = %+v, want opaque red", at)
	}
}

func TestDrawImageScales(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range src.Pix {
		src.Pix[i] = 0xFF
	}
	s := NewImageSurface(10, 10)
	s.DrawImage(src, image.Rect(0, 0, 10, 10), &DrawImageOptions{Quality: QualityFast})
	if at := s.Image().RGBAAt(5, 5); at.A == 0 {
		t.Error("scaled draw left center pixel transparent")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewImageSurface(4, 4)
	s.Clear(color.White)
	snap := s.Snapshot()
	s.Clear(color.Black)
	if at := snap.RGBAAt(2, 2); at.R != 255 {
		t.Error("snapshot mutated by later surface writes")
	}
}

func TestResize(t *testing.T) {
	s := NewImageSurface(4, 4)
	s.Clear(color.White)

	// Same-size resize clears in place.
	if err := s.Resize(4, 4); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if at := s.Image().RGBAAt(1, 1); at.A != 0 {
		t.Error("same-size Resize did not clear content")
	}

	if err := s.Resize(16, 2); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if s.Width() != 16 || s.Height() != 2 {
		t.Errorf("size after Resize = %dx%d, want 16x2", s.Width(), s.Height())
	}
}

func TestCloseIdempotent(t *testing.T) {
	s := NewImageSurface(4, 4)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if s.Image() != nil {
		t.Error("Image() after Close should be nil")
	}
	if err := s.Resize(8, 8); err == nil {
		t.Error("Resize after Close should fail")
	}
}
