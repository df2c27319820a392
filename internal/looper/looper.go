// Package looper provides the serial execution contexts the gesture core runs
// on: a UI-affine looper that owns all state-machine mutation, a worker looper
// for blocking compositor calls, and a manual queue for deterministic tests.
package looper

import (
	"context"
	"sync"
	"time"
)

// Cancel stops a delayed task if it has not run yet.
type Cancel func()

// Executor runs functions serially on one logical thread.
type Executor interface {
	Post(fn func())
	PostDelayed(d time.Duration, fn func()) Cancel
}

// Looper is a single goroutine draining a FIFO of tasks.
type Looper struct {
	name string

	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []func()
	closed  bool
	running bool
}

var _ Executor = (*Looper)(nil)

// New creates a looper. Tasks posted before Run are kept until Run starts.
func New(name string) *Looper {
	l := &Looper{name: name}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Name returns the looper name used in logs.
func (l *Looper) Name() string {
	return l.name
}

// Post enqueues fn. Posting to a stopped looper drops fn.
func (l *Looper) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.tasks = append(l.tasks, fn)
	l.cond.Signal()
}

// PostDelayed enqueues fn after d.
func (l *Looper) PostDelayed(d time.Duration, fn func()) Cancel {
	if d <= 0 {
		l.Post(fn)
		return func() {}
	}
	var (
		mu       sync.Mutex
		canceled bool
	)
	t := time.AfterFunc(d, func() {
		l.Post(func() {
			mu.Lock()
			c := canceled
			mu.Unlock()
			if !c {
				fn()
			}
		})
	})
	return func() {
		mu.Lock()
		canceled = true
		mu.Unlock()
		t.Stop()
	}
}

// Sync runs fn on the looper and waits for it to return.
func (l *Looper) Sync(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drains tasks until ctx is cancelled. Blocks.
func (l *Looper) Run(ctx context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		l.mu.Lock()
		l.closed = true
		l.cond.Broadcast()
		l.mu.Unlock()
	})
	defer stop()

	for {
		l.mu.Lock()
		for len(l.tasks) == 0 && !l.closed {
			l.cond.Wait()
		}
		if l.closed {
			l.tasks = nil
			l.mu.Unlock()
			return
		}
		fn := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.mu.Unlock()

		fn()
	}
}
