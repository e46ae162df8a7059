// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface provides the drawing buffers pages are rendered
// into, and a bounded pool that reuses them to avoid per-page
// allocation churn.
//
// A Surface is checked out of the Pool by exactly one render task at a
// time; returning it to the pool clears its pixel content so a surface
// is never reused with stale pixels visible. Surfaces themselves are
// not safe for concurrent use.
package surface
