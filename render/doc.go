// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render schedules page render tasks: one cancellable unit of
// work per visible page, drawing into a surface checked out of the
// shared pool.
//
// The scheduler maintains at most one non-terminal task per page
// index. A new request for a page cancels the prior task first.
// Cancellation is two-phased: the task is marked cancelled immediately
// so a late completion can never hand off its surface, then the
// underlying decode is asked to stop through its context. Pages render
// independently; one page's failure never blocks siblings.
package render
