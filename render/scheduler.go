// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/pageview/internal/workqueue"
	"github.com/gogpu/pageview/surface"
)

// Common errors returned by scheduler operations.
var (
	// ErrSchedulerClosed is returned when requesting work after Close.
	ErrSchedulerClosed = errors.New("render: scheduler is closed")

	// ErrNilConfig is returned when a required Config field is missing.
	ErrNilConfig = errors.New("render: incomplete scheduler config")

	// ErrThumbnailDropped is returned by Thumbnail when the low-priority
	// queue is saturated and the render was not scheduled.
	ErrThumbnailDropped = errors.New("render: thumbnail dropped, queue saturated")
)

// RenderFunc draws one page into a surface at the given scale. It is
// supplied by the engine, which adapts the document decoder. The
// function must honor ctx cancellation on a best-effort basis; the
// scheduler additionally guards every hand-off with a task validity
// check, so a render that ignores cancellation still cannot publish.
type RenderFunc func(ctx context.Context, page int, scale float64, surf surface.Surface) error

// SizeFunc returns the pixel dimensions of the surface needed for a
// page at a scale.
type SizeFunc func(page int, scale float64) (width, height int)

// Result is one per-page completion. Pages complete independently and
// out of order across indices.
//
// When Err is nil, Surface holds the rendered page and ownership
// transfers to the receiver, which must return it to the pool with
// Release when the page leaves the screen. When Err is non-nil it is a
// *PageError and Surface is nil; the failed page's surface has already
// been returned to the pool.
type Result struct {
	Page      int
	TaskID    uint64
	Scale     float64
	Surface   surface.Surface
	Thumbnail bool
	Err       error
}

// Config assembles a Scheduler's collaborators.
type Config struct {
	// Pool supplies render surfaces. Required.
	Pool *surface.Pool

	// Render draws a page. Required.
	Render RenderFunc

	// SurfaceSize sizes the surface for a page at a scale. Required.
	SurfaceSize SizeFunc

	// Deliver receives per-page results. Called from worker
	// goroutines; the receiver synchronizes. Required.
	Deliver func(Result)

	// Workers bounds render concurrency. <= 0 uses GOMAXPROCS.
	Workers int

	// Logger receives debug/warn output. Nil discards.
	Logger *slog.Logger
}

// Stats is a snapshot of scheduler counters.
type Stats struct {
	Rendered  uint64
	Cancelled uint64
	Failed    uint64
}

// Scheduler issues, tracks, and cancels one render task per visible
// page. Scheduler is safe for concurrent use.
type Scheduler struct {
	pool    *surface.Pool
	render  RenderFunc
	size    SizeFunc
	deliver func(Result)
	queue   *workqueue.Pool
	log     *slog.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu     sync.Mutex
	tasks  map[int]*Task // non-terminal tasks by page index
	closed bool

	nextID    atomic.Uint64
	rendered  atomic.Uint64
	cancelled atomic.Uint64
	failed    atomic.Uint64
}

// NewScheduler creates a scheduler and starts its workers.
func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.Pool == nil || cfg.Render == nil || cfg.SurfaceSize == nil || cfg.Deliver == nil {
		return nil, ErrNilConfig
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		pool:       cfg.Pool,
		render:     cfg.Render,
		size:       cfg.SurfaceSize,
		deliver:    cfg.Deliver,
		queue:      workqueue.New(cfg.Workers),
		log:        log,
		baseCtx:    ctx,
		baseCancel: cancel,
		tasks:      make(map[int]*Task),
	}, nil
}

// Request schedules a render of page at scale. An existing
// non-terminal task for the same page is cancelled first, so at most
// one non-terminal task per page index exists at any time.
func (s *Scheduler) Request(page int, scale float64, pri Priority) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}
	if prev, ok := s.tasks[page]; ok {
		s.cancelLocked(prev)
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	t := &Task{
		id:       s.nextID.Add(1),
		page:     page,
		scale:    scale,
		priority: pri,
		ctx:      ctx,
		cancel:   cancel,
	}
	t.state.Store(int32(StatePending))
	s.tasks[page] = t
	s.mu.Unlock()

	if pri == PriorityPreload {
		if !s.queue.SubmitLow(func() { s.run(t) }) {
			// Queue saturated. Preload is best-effort: drop the task
			// rather than displace visible work.
			s.finishCancelled(t)
		}
	} else {
		s.queue.Submit(func() { s.run(t) })
	}
	return nil
}

// Cancel cancels any non-terminal task for the given page.
func (s *Scheduler) Cancel(page int) {
	s.mu.Lock()
	if t, ok := s.tasks[page]; ok {
		s.cancelLocked(t)
	}
	s.mu.Unlock()
}

// CancelAll cancels every non-terminal task. Called when the visible
// set changes wholesale (zoom, document switch) or on close.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	for _, t := range s.tasks {
		s.cancelLocked(t)
	}
	s.mu.Unlock()
}

// CancelExcept cancels every non-terminal task whose page keep reports
// false. Used by reconciliation when the visible window moves.
func (s *Scheduler) CancelExcept(keep func(page int) bool) {
	s.mu.Lock()
	for page, t := range s.tasks {
		if !keep(page) {
			s.cancelLocked(t)
		}
	}
	s.mu.Unlock()
}

// Active returns the state of the page's current task, or zero (idle)
// if the page has no non-terminal task.
func (s *Scheduler) Active(page int) (State, float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[page]
	if !ok || t.State().Terminal() {
		return 0, 0, false
	}
	return t.State(), t.scale, true
}

// Thumbnail renders page at scale into a transient, non-pooled surface
// at low priority. The result carries Thumbnail = true; the receiver
// owns the surface and releases it through the pool (which closes
// transients). Thumbnail is best-effort like preload: a saturated
// low-priority queue returns ErrThumbnailDropped rather than displacing
// page renders, and the caller may retry.
func (s *Scheduler) Thumbnail(page int, scale float64) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}
	s.mu.Unlock()

	ok := s.queue.SubmitLow(func() {
		w, h := s.size(page, scale)
		surf := s.pool.AcquireTransient(w, h)
		if err := s.render(s.baseCtx, page, scale, surf); err != nil {
			_ = surf.Close()
			if errors.Is(err, context.Canceled) {
				return
			}
			s.deliver(Result{Page: page, Scale: scale, Thumbnail: true, Err: &PageError{Page: page, Err: err}})
			return
		}
		s.deliver(Result{Page: page, Scale: scale, Thumbnail: true, Surface: surf})
	})
	if !ok {
		return ErrThumbnailDropped
	}
	return nil
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Rendered:  s.rendered.Load(),
		Cancelled: s.cancelled.Load(),
		Failed:    s.failed.Load(),
	}
}

// Close cancels all tasks and stops the workers. Queued tasks still
// execute their cleanup paths before the workers exit. Close is
// idempotent.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, t := range s.tasks {
		s.cancelLocked(t)
	}
	s.mu.Unlock()

	// Thumbnails render on the base context; cancel it before the queue
	// drain waits on in-flight work.
	s.baseCancel()
	s.queue.Close()
	return nil
}

// cancelLocked performs two-phase cancellation: mark first so late
// completions are ignored, then stop the underlying decode.
func (s *Scheduler) cancelLocked(t *Task) {
	if t.markCancelled() {
		s.cancelled.Add(1)
	}
	t.cancel()
}

// run executes one task on a worker goroutine.
func (s *Scheduler) run(t *Task) {
	if t.cancelled() {
		s.clear(t)
		return
	}

	w, h := s.size(t.page, t.scale)
	surf, err := s.acquire(t, w, h)
	if err != nil || surf == nil {
		s.finishCancelled(t)
		return
	}

	// The task may have been cancelled while we waited on the pool.
	if !t.transition(StatePending, StateRunning) {
		s.pool.Release(surf)
		s.clear(t)
		return
	}

	scale := t.scale
	err = s.render(t.ctx, t.page, scale, surf)

	// Validity check after the render, before any hand-off. A task
	// cancelled mid-render must never publish its surface.
	if t.cancelled() {
		s.pool.Release(surf)
		s.clear(t)
		return
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		// One automatic retry at reduced scale before surfacing a
		// persistent per-page error.
		scale = ReducedScale(t.scale)
		s.log.Debug("page render failed, retrying at reduced scale",
			"page", t.page, "scale", t.scale, "retry_scale", scale, "err", err)
		w, h = s.size(t.page, scale)
		if rerr := surf.Resize(w, h); rerr == nil {
			err = s.render(t.ctx, t.page, scale, surf)
		}
		if t.cancelled() {
			s.pool.Release(surf)
			s.clear(t)
			return
		}
	}

	switch {
	case err == nil:
		if !t.transition(StateRunning, StateDone) {
			s.pool.Release(surf)
			s.clear(t)
			return
		}
		s.rendered.Add(1)
		s.clear(t)
		s.deliver(Result{Page: t.page, TaskID: t.id, Scale: scale, Surface: surf})

	case errors.Is(err, context.Canceled):
		s.finishCancelledWith(t, surf)

	default:
		t.transition(StateRunning, StateFailed)
		s.failed.Add(1)
		s.pool.Release(surf)
		s.clear(t)
		s.log.Warn("page render failed", "page", t.page, "err", err)
		s.deliver(Result{Page: t.page, TaskID: t.id, Scale: scale, Err: &PageError{Page: t.page, Err: err}})
	}
}

// acquire checks out a surface according to the task priority: visible
// tasks block on capacity, preload tasks yield.
func (s *Scheduler) acquire(t *Task, w, h int) (surface.Surface, error) {
	if t.priority == PriorityPreload {
		surf, ok := s.pool.TryAcquire(w, h)
		if !ok {
			// Pool exhausted: render fewer pages ahead rather than
			// compete with on-screen work.
			s.log.Debug("pool at capacity, skipping preload", "page", t.page)
			return nil, nil
		}
		return surf, nil
	}
	return s.pool.Acquire(t.ctx, w, h)
}

// finishCancelled retires a task that never acquired a surface.
func (s *Scheduler) finishCancelled(t *Task) {
	if t.markCancelled() {
		s.cancelled.Add(1)
	}
	s.clear(t)
	s.log.Debug("render task cancelled", "page", t.page, "task", t.id)
}

// finishCancelledWith retires a cancelled task and returns its surface.
func (s *Scheduler) finishCancelledWith(t *Task, surf surface.Surface) {
	s.pool.Release(surf)
	s.finishCancelled(t)
}

// clear removes the task record if it is still the page's current one,
// returning the page to the idle state.
func (s *Scheduler) clear(t *Task) {
	s.mu.Lock()
	if cur, ok := s.tasks[t.page]; ok && cur == t {
		delete(s.tasks, t.page)
	}
	s.mu.Unlock()
}
