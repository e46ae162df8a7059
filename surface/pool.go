// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"context"
	"errors"
	"sync"
)

// Common errors returned by Pool operations.
var (
	// ErrPoolClosed is returned when acquiring from a closed pool.
	ErrPoolClosed = errors.New("surface: pool is closed")

	// ErrSurfaceClosed is returned when operating on a closed surface.
	ErrSurfaceClosed = errors.New("surface: surface is closed")
)

// DefaultPoolCapacity bounds the number of pooled surfaces that can be
// checked out at once. Under normal operation the outstanding count
// stays at "visible pages + overscan"; a steadily growing count under
// scrolling indicates a leak.
const DefaultPoolCapacity = 10

// Allocator creates a new surface for the pool.
type Allocator func(width, height int) Surface

// Pool is a bounded pool of reusable surfaces.
//
// Acquire blocks (honoring the context) when all capacity is checked
// out; TryAcquire fails fast instead, which is what low-priority work
// such as preloading uses so it never competes with on-screen pages.
// Callers that do not need reuse at all (thumbnails) can allocate a
// transient, non-pooled surface.
//
// Every surface returned through Release is cleared before it becomes
// acquirable again, so stale pixels never leak between checkouts.
//
// Pool is safe for concurrent use. It is an explicitly owned object:
// construct one per viewer (or share one deliberately) and pass it to
// the engine; there is no global pool.
type Pool struct {
	capacity int
	alloc    Allocator

	// slots is a counting semaphore: one token per checkout.
	slots chan struct{}

	mu     sync.Mutex
	free   []Surface
	loaned map[Surface]struct{}
	closed bool
}

// NewPool creates a pool with the given capacity. Capacity <= 0 uses
// DefaultPoolCapacity. A nil allocator uses NewImageSurface.
func NewPool(capacity int, alloc Allocator) *Pool {
	if capacity <= 0 {
		capacity = DefaultPoolCapacity
	}
	if alloc == nil {
		alloc = func(w, h int) Surface { return NewImageSurface(w, h) }
	}
	return &Pool{
		capacity: capacity,
		alloc:    alloc,
		slots:    make(chan struct{}, capacity),
		loaned:   make(map[Surface]struct{}),
	}
}

// Capacity returns the maximum number of concurrent checkouts.
func (p *Pool) Capacity() int { return p.capacity }

// Outstanding returns the number of surfaces currently checked out.
func (p *Pool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.loaned)
}

// Acquire checks a surface of the requested size out of the pool,
// blocking until capacity is available or ctx is done.
func (p *Pool) Acquire(ctx context.Context, width, height int) (Surface, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s, err := p.checkout(width, height)
	if err != nil {
		<-p.slots
		return nil, err
	}
	return s, nil
}

// TryAcquire checks a surface out without blocking. It returns false
// when the pool is at capacity or closed.
func (p *Pool) TryAcquire(width, height int) (Surface, bool) {
	select {
	case p.slots <- struct{}{}:
	default:
		return nil, false
	}
	s, err := p.checkout(width, height)
	if err != nil {
		<-p.slots
		return nil, false
	}
	return s, true
}

// AcquireTransient allocates a surface outside the pool. Transient
// surfaces do not count against capacity and are closed, not released,
// when Release receives them.
func (p *Pool) AcquireTransient(width, height int) Surface {
	return p.alloc(width, height)
}

// Release returns a surface to the pool. The surface content is
// cleared before it becomes acquirable again. Surfaces the pool does
// not own (transients) are closed instead. Release(nil) is a no-op.
func (p *Pool) Release(s Surface) {
	if s == nil {
		return
	}
	p.mu.Lock()
	if _, ok := p.loaned[s]; !ok {
		p.mu.Unlock()
		_ = s.Close()
		return
	}
	delete(p.loaned, s)
	s.Clear(transparent{})
	if p.closed {
		p.mu.Unlock()
		_ = s.Close()
	} else {
		p.free = append(p.free, s)
		p.mu.Unlock()
	}
	<-p.slots
}

// checkout pops a free surface, resizing it, or allocates a new one.
func (p *Pool) checkout(width, height int) (Surface, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	var s Surface
	if n := len(p.free); n > 0 {
		s = p.free[n-1]
		p.free = p.free[:n-1]
		if err := s.Resize(width, height); err != nil {
			_ = s.Close()
			s = p.alloc(width, height)
		}
	} else {
		s = p.alloc(width, height)
	}
	p.loaned[s] = struct{}{}
	return s, nil
}

// Close releases all idle surfaces and marks the pool closed. Surfaces
// still checked out are closed as they are released. Close is
// idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for _, s := range p.free {
		_ = s.Close()
	}
	p.free = nil
	return nil
}

// transparent is the zero color used to scrub released surfaces.
type transparent struct{}

func (transparent) RGBA() (r, g, b, a uint32) { return 0, 0, 0, 0 }
