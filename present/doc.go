// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package present uploads finished page bitmaps to host GPU textures
// for compositing. It is the integration point for hosts built on the
// gogpu stack: the host supplies its gpucontext.DeviceProvider and
// texture creator/drawer, and the presenter keeps one texture per
// presented page, bounded by an LRU that destroys evicted textures.
//
// The engine itself never requires this package; CPU-only hosts can
// read pixels straight from the rendered surfaces.
package present
