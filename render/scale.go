// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

// Scale clamp bounds. Extreme zoom must not translate into runaway
// surface memory, so the logical scale is clamped before the device
// pixel ratio is applied.
const (
	MinScale = 0.5
	MaxScale = 3.0
)

// EffectiveScale computes the device scale for rendering a page:
// fit-width times zoom, clamped to [MinScale, MaxScale], times the
// device pixel ratio.
func EffectiveScale(containerWidth, intrinsicWidth, zoom, devicePixelRatio float64) float64 {
	s := zoom
	if containerWidth > 0 && intrinsicWidth > 0 {
		s = containerWidth / intrinsicWidth * zoom
	}
	if s < MinScale {
		s = MinScale
	}
	if s > MaxScale {
		s = MaxScale
	}
	if devicePixelRatio <= 0 {
		devicePixelRatio = 1
	}
	return s * devicePixelRatio
}

// ReducedScale returns the scale used for the automatic retry after a
// render failure: half the original, floored at MinScale.
func ReducedScale(scale float64) float64 {
	s := scale / 2
	if s < MinScale {
		s = MinScale
	}
	return s
}
