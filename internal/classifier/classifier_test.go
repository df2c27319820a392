package classifier

import (
	"testing"

	"github.com/1broseidon/quickstep/internal/gesture"
)

func TestClassify(t *testing.T) {
	th := Thresholds{FlingSpeed: 1.5}

	tests := []struct {
		name string
		r    Release
		c    Context
		want gesture.EndTarget
	}{
		{
			name: "upward fling goes home",
			r:    Release{Velocity: Velocity{0, -5}, EndVelocityY: -5, IsFling: true},
			want: gesture.Home,
		},
		{
			name: "diagonal upward fling not scrolling goes home",
			r:    Release{Velocity: Velocity{3, -8}, EndVelocityY: -8, IsFling: true},
			want: gesture.Home,
		},
		{
			name: "upward fling with dominant x while scrolling switches task",
			r:    Release{Velocity: Velocity{9, -4}, EndVelocityY: -4, IsFling: true},
			c:    Context{IsScrollingToNewTask: true},
			want: gesture.NewTask,
		},
		{
			name: "upward fling with dominant y while scrolling goes home",
			r:    Release{Velocity: Velocity{2, -6}, EndVelocityY: -6, IsFling: true},
			c:    Context{IsScrollingToNewTask: true},
			want: gesture.Home,
		},
		{
			name: "downward fling returns to last task",
			r:    Release{Velocity: Velocity{0, 4}, EndVelocityY: 4, IsFling: true},
			want: gesture.LastTask,
		},
		{
			name: "downward fling centered on another task switches",
			r:    Release{Velocity: Velocity{0, 4}, EndVelocityY: 4, IsFling: true},
			c:    Context{IsCenteredOnNonRunningTask: true},
			want: gesture.NewTask,
		},
		{
			name: "downward fling with dominant x while scrolling switches",
			r:    Release{Velocity: Velocity{-6, 2}, EndVelocityY: 2, IsFling: true},
			c:    Context{IsScrollingToNewTask: true},
			want: gesture.NewTask,
		},
		{
			name: "zero vertical fling counts as not upward",
			r:    Release{Velocity: Velocity{0, 0}, EndVelocityY: 0, IsFling: true},
			want: gesture.LastTask,
		},
		{
			name: "cancel wins over fling",
			r:    Release{Velocity: Velocity{0, -9}, EndVelocityY: -9, IsFling: true, IsCancel: true},
			c:    Context{IsScrollingToNewTask: true, MotionPaused: true},
			want: gesture.LastTask,
		},
		{
			name: "motion pause goes to recents",
			r:    Release{Velocity: Velocity{0, -0.2}},
			c:    Context{MotionPaused: true},
			want: gesture.Recents,
		},
		{
			name: "sideways fling beats motion pause",
			r:    Release{Velocity: Velocity{2, -0.1}},
			c:    Context{IsScrollingToNewTask: true, MotionPaused: true},
			want: gesture.NewTask,
		},
		{
			name: "slow sideways below fling speed yields to motion pause",
			r:    Release{Velocity: Velocity{1, -0.1}},
			c:    Context{IsScrollingToNewTask: true, MotionPaused: true},
			want: gesture.Recents,
		},
		{
			name: "slop feature blocks sideways fling until passed",
			r:    Release{Velocity: Velocity{2, -0.1}},
			c:    Context{IsScrollingToNewTask: true, MotionPaused: true, HorizontalSlopEnabled: true},
			want: gesture.Recents,
		},
		{
			name: "slop passed allows sideways fling",
			r:    Release{Velocity: Velocity{2, -0.1}, HorizontalSlopPassed: true},
			c:    Context{IsScrollingToNewTask: true, MotionPaused: true, HorizontalSlopEnabled: true},
			want: gesture.NewTask,
		},
		{
			name: "slow scroll switches task",
			r:    Release{Velocity: Velocity{0.5, 0.3}},
			c:    Context{IsScrollingToNewTask: true},
			want: gesture.NewTask,
		},
		{
			name: "slow upward swipe goes home when allowed",
			r:    Release{Velocity: Velocity{0, -0.5}},
			c:    Context{CanSlowSwipeGoHome: true},
			want: gesture.Home,
		},
		{
			name: "slow upward swipe returns when home not allowed",
			r:    Release{Velocity: Velocity{0, -0.5}},
			want: gesture.LastTask,
		},
		{
			name: "slow downward swipe returns",
			r:    Release{Velocity: Velocity{0, 0.5}},
			c:    Context{CanSlowSwipeGoHome: true},
			want: gesture.LastTask,
		},
		{
			name: "atomic gesture always recents",
			r:    Release{Velocity: Velocity{0, 9}, EndVelocityY: 9, IsFling: true},
			c:    Context{IsAtomic: true},
			want: gesture.Recents,
		},
		{
			name: "atomic wins over cancel",
			r:    Release{IsCancel: true},
			c:    Context{IsAtomic: true},
			want: gesture.Recents,
		},
		{
			name: "overview disabled downgrades recents",
			r:    Release{Velocity: Velocity{0, -0.2}},
			c:    Context{MotionPaused: true, OverviewDisabled: true},
			want: gesture.LastTask,
		},
		{
			name: "overview disabled downgrades atomic recents",
			c:    Context{IsAtomic: true, OverviewDisabled: true},
			want: gesture.LastTask,
		},
		{
			name: "desktop next task vetoes new task",
			r:    Release{Velocity: Velocity{0.5, 0.3}},
			c:    Context{IsScrollingToNewTask: true, DesktopWindowingEnabled: true, NextTaskIsDesktop: true},
			want: gesture.LastTask,
		},
		{
			name: "desktop running task vetoes new task",
			r:    Release{Velocity: Velocity{9, -4}, EndVelocityY: -4, IsFling: true},
			c:    Context{IsScrollingToNewTask: true, DesktopWindowingEnabled: true, RunningTaskIsDesktop: true},
			want: gesture.LastTask,
		},
		{
			name: "desktop task ignored without desktop windowing",
			r:    Release{Velocity: Velocity{0.5, 0.3}},
			c:    Context{IsScrollingToNewTask: true, NextTaskIsDesktop: true},
			want: gesture.NewTask,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.r, tt.c, th)
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v (%s)", got, tt.want, Describe(tt.r, tt.c, th))
			}
			if again := Classify(tt.r, tt.c, th); again != got {
				t.Errorf("Classify() not deterministic: %v then %v", got, again)
			}
		})
	}
}

func TestClassify_CancelIgnoresVelocity(t *testing.T) {
	velocities := []Velocity{{0, -20}, {20, 0}, {-20, 20}, {0, 0}}
	for _, v := range velocities {
		for _, fling := range []bool{true, false} {
			r := Release{Velocity: v, EndVelocityY: v.Y, IsFling: fling, IsCancel: true}
			c := Context{IsScrollingToNewTask: true, MotionPaused: true, CanSlowSwipeGoHome: true}
			if got := Classify(r, c, DefaultThresholds()); got != gesture.LastTask {
				t.Errorf("Classify(cancel, v=%v, fling=%v) = %v, want LAST_TASK", v, fling, got)
			}
		}
	}
}

func TestDescribe(t *testing.T) {
	d := Describe(Release{Velocity: Velocity{0, -0.2}}, Context{MotionPaused: true, OverviewDisabled: true}, DefaultThresholds())
	if d.Reason != ReasonMotionPaused || d.Filter != ReasonOverviewDisabled {
		t.Fatalf("Describe() = %+v", d)
	}
	if got, want := d.String(), "LAST_TASK (motion_paused, overview_disabled)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	d = Describe(Release{Velocity: Velocity{0, -5}, EndVelocityY: -5, IsFling: true}, Context{}, DefaultThresholds())
	if got, want := d.String(), "HOME (fling_up)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestIsFling(t *testing.T) {
	tests := []struct {
		v, threshold float64
		want         bool
	}{
		{-8, 1, true},
		{8, 1, true},
		{0.5, 1, false},
		{1, 1, false},
	}
	for _, tt := range tests {
		if got := IsFling(tt.v, tt.threshold); got != tt.want {
			t.Errorf("IsFling(%v, %v) = %v, want %v", tt.v, tt.threshold, got, tt.want)
		}
	}
}
