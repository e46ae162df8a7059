// Package workqueue runs render work on a bounded set of goroutines
// with a two-level priority split: on-screen page renders go to the
// high queue, preload renders to the low queue. Workers always drain
// high-priority work before touching the low queue, so preloading can
// never delay a visible page.
package workqueue

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a fixed-size worker pool with two priorities.
//
// Pool is safe for concurrent use.
type Pool struct {
	workers int
	high    chan func()
	low     chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// New creates a pool with the given number of workers. Workers <= 0
// uses GOMAXPROCS. The pool starts immediately.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	// Queue depth beyond worker count hides submission latency without
	// letting stale work pile up unboundedly.
	depth := workers * 4
	if depth < 8 {
		depth = 8
	}
	p := &Pool{
		workers: workers,
		high:    make(chan func(), depth),
		low:     make(chan func(), depth),
		done:    make(chan struct{}),
	}
	p.running.Store(true)
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.workers }

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		// High-priority work first, always.
		select {
		case fn := <-p.high:
			if fn != nil {
				fn()
			}
			continue
		default:
		}
		select {
		case <-p.done:
			p.drain()
			return
		case fn := <-p.high:
			if fn != nil {
				fn()
			}
		case fn := <-p.low:
			if fn != nil {
				fn()
			}
		}
	}
}

// drain executes whatever is still queued so submitted work is never
// silently dropped on shutdown.
func (p *Pool) drain() {
	for {
		select {
		case fn := <-p.high:
			if fn != nil {
				fn()
			}
		case fn := <-p.low:
			if fn != nil {
				fn()
			}
		default:
			return
		}
	}
}

// Submit enqueues high-priority work. Submit never blocks: callers may
// hold locks the workers need to finish work, so a full high queue
// overflows the hand-off to a goroutine instead of back-pressuring the
// caller. No-op on a closed pool.
func (p *Pool) Submit(fn func()) {
	if fn == nil || !p.running.Load() {
		return
	}
	select {
	case p.high <- fn:
		return
	default:
	}
	go func() {
		select {
		case p.high <- fn:
		case <-p.done:
		}
	}()
}

// SubmitLow enqueues low-priority work. It never blocks: if the low
// queue is full the work is dropped, which is acceptable for preload
// renders that will be re-requested if the page actually comes into
// view.
func (p *Pool) SubmitLow(fn func()) bool {
	if fn == nil || !p.running.Load() {
		return false
	}
	select {
	case p.low <- fn:
		return true
	default:
		return false
	}
}

// Close stops the workers after draining queued work. Close is
// idempotent and safe to call concurrently with Submit.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}
