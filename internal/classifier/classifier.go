// Package classifier maps release kinematics to a gesture end target.
//
// Classify is pure: the same Release, Context and Thresholds always produce
// the same result. Precedence is atomic, then cancel, then fling, then slow
// drag, followed by the overview and desktop post-filters.
package classifier

import (
	"fmt"
	"math"

	"github.com/1broseidon/quickstep/internal/gesture"
)

// Velocity is a release velocity in pixels per millisecond. Negative Y is up.
type Velocity struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Release describes the pointer at gesture end.
type Release struct {
	Velocity             Velocity `json:"velocity"`
	EndVelocityY         float64  `json:"end_velocity_y"`
	IsFling              bool     `json:"is_fling"`
	IsCancel             bool     `json:"is_cancel"`
	HorizontalSlopPassed bool     `json:"horizontal_slop_passed"`
}

// Context is the read-only gesture and UI context at release time.
type Context struct {
	IsAtomic                   bool `json:"is_atomic"`
	OverviewDisabled           bool `json:"overview_disabled"`
	IsScrollingToNewTask       bool `json:"is_scrolling_to_new_task"`
	IsCenteredOnNonRunningTask bool `json:"is_centered_on_non_running_task"`
	MotionPaused               bool `json:"motion_paused"`
	CanSlowSwipeGoHome         bool `json:"can_slow_swipe_go_home"`
	HorizontalSlopEnabled      bool `json:"horizontal_slop_enabled"`
	DesktopWindowingEnabled    bool `json:"desktop_windowing_enabled"`
	NextTaskIsDesktop          bool `json:"next_task_is_desktop"`
	RunningTaskIsDesktop       bool `json:"running_task_is_desktop"`
}

// Thresholds holds the release speed limits.
type Thresholds struct {
	// FlingThreshold is the vertical speed, px/ms, above which a release is
	// a fling.
	FlingThreshold float64 `json:"fling_threshold"`
	// FlingSpeed is the horizontal speed, px/ms, above which a slow release
	// still counts as a sideways fling.
	FlingSpeed float64 `json:"fling_speed"`
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{FlingThreshold: 1.0, FlingSpeed: 1.5}
}

// Reason names the branch that produced a decision.
type Reason string

const (
	ReasonAtomic              Reason = "atomic"
	ReasonCancel              Reason = "cancel"
	ReasonFlingDownScroll     Reason = "fling_down_scrolling"
	ReasonFlingDownCentered   Reason = "fling_down_centered_on_other_task"
	ReasonFlingDown           Reason = "fling_down"
	ReasonFlingUpScroll       Reason = "fling_up_scrolling"
	ReasonFlingUp             Reason = "fling_up"
	ReasonFlingX              Reason = "slow_fling_x"
	ReasonMotionPaused        Reason = "motion_paused"
	ReasonScrolling           Reason = "slow_scrolling"
	ReasonSlowSwipeHome       Reason = "slow_swipe_home"
	ReasonSlowSwipeLastTask   Reason = "slow_swipe_last_task"
	ReasonOverviewDisabled    Reason = "overview_disabled"
	ReasonDesktopTaskAdjacent Reason = "desktop_task_adjacent"
)

// Decision is a classification result with the branches that produced it.
type Decision struct {
	Target gesture.EndTarget
	// Reason is the branch of the main decision.
	Reason Reason
	// Filter is set when a post-filter changed Target.
	Filter Reason
}

// String renders the decision for logs.
func (d Decision) String() string {
	if d.Filter != "" {
		return fmt.Sprintf("%s (%s, %s)", d.Target, d.Reason, d.Filter)
	}
	return fmt.Sprintf("%s (%s)", d.Target, d.Reason)
}

// Classify returns the end target for a release.
func Classify(r Release, c Context, th Thresholds) gesture.EndTarget {
	return Describe(r, c, th).Target
}

// Describe classifies a release and reports which branch decided.
func Describe(r Release, c Context, th Thresholds) Decision {
	d := decide(r, c, th)

	if c.OverviewDisabled && d.Target == gesture.Recents {
		d.Target = gesture.LastTask
		d.Filter = ReasonOverviewDisabled
	}
	if c.DesktopWindowingEnabled && d.Target == gesture.NewTask &&
		(c.NextTaskIsDesktop || c.RunningTaskIsDesktop) {
		d.Target = gesture.LastTask
		d.Filter = ReasonDesktopTaskAdjacent
	}
	return d
}

func decide(r Release, c Context, th Thresholds) Decision {
	if c.IsAtomic {
		return Decision{Target: gesture.Recents, Reason: ReasonAtomic}
	}
	if r.IsCancel {
		return Decision{Target: gesture.LastTask, Reason: ReasonCancel}
	}

	vx := math.Abs(r.Velocity.X)
	horizontalWins := c.IsScrollingToNewTask && vx > math.Abs(r.EndVelocityY)

	if r.IsFling {
		if r.EndVelocityY >= 0 {
			switch {
			case horizontalWins:
				return Decision{Target: gesture.NewTask, Reason: ReasonFlingDownScroll}
			case c.IsCenteredOnNonRunningTask:
				return Decision{Target: gesture.NewTask, Reason: ReasonFlingDownCentered}
			default:
				return Decision{Target: gesture.LastTask, Reason: ReasonFlingDown}
			}
		}
		if horizontalWins {
			return Decision{Target: gesture.NewTask, Reason: ReasonFlingUpScroll}
		}
		return Decision{Target: gesture.Home, Reason: ReasonFlingUp}
	}

	isFlingX := vx > th.FlingSpeed && (!c.HorizontalSlopEnabled || r.HorizontalSlopPassed)
	switch {
	case c.IsScrollingToNewTask && isFlingX:
		return Decision{Target: gesture.NewTask, Reason: ReasonFlingX}
	case c.MotionPaused:
		return Decision{Target: gesture.Recents, Reason: ReasonMotionPaused}
	case c.IsScrollingToNewTask:
		return Decision{Target: gesture.NewTask, Reason: ReasonScrolling}
	case r.Velocity.Y < 0 && c.CanSlowSwipeGoHome:
		return Decision{Target: gesture.Home, Reason: ReasonSlowSwipeHome}
	default:
		return Decision{Target: gesture.LastTask, Reason: ReasonSlowSwipeLastTask}
	}
}

// IsFling reports whether a vertical release speed counts as a fling.
func IsFling(endVelocityY, threshold float64) bool {
	return math.Abs(endVelocityY) > threshold
}
