package anim

import (
	"testing"
	"time"

	"github.com/1broseidon/quickstep/internal/looper"
)

func TestAnimation_RunsToEnd(t *testing.T) {
	q := looper.NewQueue()
	var values []float64
	ends := 0
	var canceled bool

	Start(q, Spec{From: 0, To: 100, Duration: 64 * time.Millisecond, Frame: 16 * time.Millisecond},
		func(v float64) { values = append(values, v) },
		func(c bool) { ends++; canceled = c })

	q.Advance(time.Second)

	want := []float64{25, 50, 75, 100}
	if len(values) != len(want) {
		t.Fatalf("values = %v, want %v", values, want)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("values[%d] = %v, want %v", i, values[i], want[i])
		}
	}
	if ends != 1 || canceled {
		t.Fatalf("ends = %d canceled = %v", ends, canceled)
	}
}

func TestAnimation_CancelIsSynchronous(t *testing.T) {
	q := looper.NewQueue()
	var got []bool
	a := Start(q, Spec{From: 0, To: 1, Duration: 100 * time.Millisecond}, nil, func(c bool) { got = append(got, c) })

	q.Advance(20 * time.Millisecond)
	a.Cancel()
	if len(got) != 1 || !got[0] {
		t.Fatalf("onEnd calls = %v, want [true] before Cancel returns", got)
	}
	if a.IsRunning() {
		t.Fatal("still running after Cancel")
	}

	a.Cancel()
	a.End()
	q.Advance(time.Second)
	if len(got) != 1 {
		t.Fatalf("onEnd called %d times, want 1", len(got))
	}
	if v := a.Value(); v == 1 {
		t.Errorf("Value() = %v, canceled animation must not jump to end", v)
	}
}

func TestAnimation_EndJumpsToFinalValue(t *testing.T) {
	q := looper.NewQueue()
	var got []bool
	a := Start(q, Spec{From: 10, To: 20, Duration: time.Second}, nil, func(c bool) { got = append(got, c) })

	a.End()
	if a.Value() != 20 {
		t.Errorf("Value() = %v, want 20", a.Value())
	}
	if len(got) != 1 || got[0] {
		t.Fatalf("onEnd calls = %v, want [false]", got)
	}
	q.Advance(2 * time.Second)
	if len(got) != 1 {
		t.Fatalf("onEnd called %d times after End", len(got))
	}
}

func TestAnimation_ZeroDuration(t *testing.T) {
	q := looper.NewQueue()
	ended := false
	Start(q, Spec{From: 0, To: 1}, nil, func(c bool) { ended = !c })
	if ended {
		t.Fatal("ended before the looper ran")
	}
	q.Drain()
	if !ended {
		t.Fatal("zero-duration animation did not end")
	}
}

func TestNilAnimation(t *testing.T) {
	var a *Animation
	a.Cancel()
	a.End()
	if a.IsRunning() {
		t.Fatal("nil animation running")
	}
}

func TestDurationFor(t *testing.T) {
	lo, hi := 100*time.Millisecond, 400*time.Millisecond
	tests := []struct {
		distance, velocity float64
		want               time.Duration
	}{
		{500, 2, 250 * time.Millisecond},
		{500, -2, 250 * time.Millisecond},
		{10, 5, lo},
		{5000, 1, hi},
		{300, 0, hi},
	}
	for _, tt := range tests {
		if got := DurationFor(tt.distance, tt.velocity, lo, hi); got != tt.want {
			t.Errorf("DurationFor(%v, %v) = %v, want %v", tt.distance, tt.velocity, got, tt.want)
		}
	}
}

func TestEaseOutCubic(t *testing.T) {
	if EaseOutCubic(0) != 0 || EaseOutCubic(1) != 1 {
		t.Fatal("EaseOutCubic endpoints wrong")
	}
	if EaseOutCubic(0.5) <= 0.5 {
		t.Errorf("EaseOutCubic(0.5) = %v, want > 0.5", EaseOutCubic(0.5))
	}
}
