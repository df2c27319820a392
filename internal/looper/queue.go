package looper

import (
	"sort"
	"time"
)

// Queue is a manual Executor with a virtual clock. Nothing runs until Drain or
// Advance is called, which makes ordering in tests exact.
type Queue struct {
	now     time.Duration
	seq     int
	tasks   []func()
	delayed []*delayedTask
}

type delayedTask struct {
	at       time.Duration
	seq      int
	fn       func()
	canceled bool
}

var _ Executor = (*Queue)(nil)

// NewQueue returns an empty queue at virtual time zero.
func NewQueue() *Queue {
	return &Queue{}
}

// Post enqueues fn.
func (q *Queue) Post(fn func()) {
	if fn == nil {
		return
	}
	q.tasks = append(q.tasks, fn)
}

// PostDelayed schedules fn at now+d on the virtual clock.
func (q *Queue) PostDelayed(d time.Duration, fn func()) Cancel {
	if d <= 0 {
		q.Post(fn)
		return func() {}
	}
	q.seq++
	t := &delayedTask{at: q.now + d, seq: q.seq, fn: fn}
	q.delayed = append(q.delayed, t)
	return func() { t.canceled = true }
}

// Pending reports the number of immediately runnable tasks.
func (q *Queue) Pending() int {
	return len(q.tasks)
}

// Drain runs immediate tasks, including ones posted while draining, until the
// queue is empty. It returns the number of tasks run.
func (q *Queue) Drain() int {
	n := 0
	for len(q.tasks) > 0 {
		fn := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		fn()
		n++
	}
	return n
}

// Advance moves the virtual clock forward by d, running delayed tasks in due
// order and draining immediate work after each one.
func (q *Queue) Advance(d time.Duration) {
	target := q.now + d
	q.Drain()
	for {
		next := q.nextDue(target)
		if next == nil {
			break
		}
		q.now = next.at
		if !next.canceled {
			next.fn()
		}
		q.Drain()
	}
	q.now = target
}

// RunUntilIdle advances the clock until no delayed or immediate work remains,
// giving up after limit of virtual time.
func (q *Queue) RunUntilIdle(limit time.Duration) {
	deadline := q.now + limit
	for {
		q.Drain()
		next := q.nextDue(deadline)
		if next == nil {
			return
		}
		q.now = next.at
		if !next.canceled {
			next.fn()
		}
	}
}

// Now returns the virtual clock.
func (q *Queue) Now() time.Duration {
	return q.now
}

func (q *Queue) nextDue(limit time.Duration) *delayedTask {
	live := q.delayed[:0]
	for _, t := range q.delayed {
		if !t.canceled {
			live = append(live, t)
		}
	}
	q.delayed = live
	if len(q.delayed) == 0 {
		return nil
	}
	sort.Slice(q.delayed, func(i, j int) bool {
		if q.delayed[i].at == q.delayed[j].at {
			return q.delayed[i].seq < q.delayed[j].seq
		}
		return q.delayed[i].at < q.delayed[j].at
	})
	first := q.delayed[0]
	if first.at > limit {
		return nil
	}
	q.delayed = q.delayed[1:]
	return first
}
