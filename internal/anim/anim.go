// Package anim drives simple value animations on a looper. Frames are
// scheduled with PostDelayed, so an animation started on the UI looper only
// ever calls back on the UI looper.
package anim

import (
	"math"
	"time"

	"github.com/1broseidon/quickstep/internal/looper"
)

// DefaultFrame is the frame interval used when Spec.Frame is zero.
const DefaultFrame = 16 * time.Millisecond

// Interpolator maps linear progress in [0,1] to eased progress.
type Interpolator func(t float64) float64

// Linear is the identity interpolator.
func Linear(t float64) float64 { return t }

// EaseOutCubic decelerates toward the end.
func EaseOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

// Spec describes one animation.
type Spec struct {
	From, To float64
	Duration time.Duration
	Frame    time.Duration
	Ease     Interpolator
}

// Animation is a running value animation. It is not safe for concurrent use;
// call Cancel and End from the executor it runs on.
type Animation struct {
	exec     looper.Executor
	spec     Spec
	onUpdate func(v float64)
	onEnd    func(canceled bool)

	elapsed time.Duration
	value   float64
	pending looper.Cancel
	done    bool
}

// Start begins animating. onUpdate and onEnd may be nil. onEnd is called
// exactly once.
func Start(exec looper.Executor, spec Spec, onUpdate func(v float64), onEnd func(canceled bool)) *Animation {
	if spec.Frame <= 0 {
		spec.Frame = DefaultFrame
	}
	if spec.Ease == nil {
		spec.Ease = Linear
	}
	a := &Animation{
		exec:     exec,
		spec:     spec,
		onUpdate: onUpdate,
		onEnd:    onEnd,
		value:    spec.From,
	}
	if spec.Duration <= 0 {
		a.pending = func() {}
		exec.Post(func() {
			if !a.done {
				a.finish(false)
			}
		})
		return a
	}
	a.schedule()
	return a
}

func (a *Animation) schedule() {
	a.pending = a.exec.PostDelayed(a.spec.Frame, a.step)
}

func (a *Animation) step() {
	if a.done {
		return
	}
	a.elapsed += a.spec.Frame
	if a.elapsed >= a.spec.Duration {
		a.finish(false)
		return
	}
	p := a.spec.Ease(float64(a.elapsed) / float64(a.spec.Duration))
	a.set(a.spec.From + (a.spec.To-a.spec.From)*p)
	a.schedule()
}

func (a *Animation) set(v float64) {
	a.value = v
	if a.onUpdate != nil {
		a.onUpdate(v)
	}
}

func (a *Animation) finish(canceled bool) {
	a.done = true
	if a.pending != nil {
		a.pending()
	}
	if !canceled {
		a.set(a.spec.To)
	}
	if a.onEnd != nil {
		a.onEnd(canceled)
	}
}

// Cancel stops the animation where it is. onEnd(true) runs before Cancel
// returns. Cancel after the animation ended does nothing.
func (a *Animation) Cancel() {
	if a == nil || a.done {
		return
	}
	a.finish(true)
}

// End jumps to the final value and reports success. End after the animation
// ended does nothing.
func (a *Animation) End() {
	if a == nil || a.done {
		return
	}
	a.finish(false)
}

// IsRunning reports whether the animation has not ended yet.
func (a *Animation) IsRunning() bool {
	return a != nil && !a.done
}

// Value returns the last value reported.
func (a *Animation) Value() float64 {
	return a.value
}

// DurationFor returns the time to cover distance at velocity, clamped to
// [lo, hi]. velocity is in distance units per millisecond.
func DurationFor(distance, velocity float64, lo, hi time.Duration) time.Duration {
	v := math.Abs(velocity)
	if v == 0 {
		return hi
	}
	d := time.Duration(math.Abs(distance) / v * float64(time.Millisecond))
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
