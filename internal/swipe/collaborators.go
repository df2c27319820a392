package swipe

import (
	"time"

	"github.com/1broseidon/quickstep/internal/gesture"
	"github.com/1broseidon/quickstep/internal/platform"
	"github.com/1broseidon/quickstep/internal/recents"
	"github.com/1broseidon/quickstep/internal/statslog"
)

// Overview is the recents panel the gesture animates into.
type Overview interface {
	OnGestureAnimationStart(running gesture.TaskInfo)
	OnGestureAnimationEnd()
	// SetRecentsAnimationTargets hands the live surfaces to the panel; nil
	// clears them.
	SetRecentsAnimationTargets(s *recents.Session, targets *platform.Targets)
	// SwitchToScreenshot replaces live thumbnails with snapshots and calls
	// onDone once the panel has drawn them. onDone may be nil.
	SwitchToScreenshot(snapshots map[int]*platform.Snapshot, onDone func())
	RunningTaskIndex() int
	NextPage() int
	DestinationPage() int
	TaskIndexForID(taskID int) int
	TaskAt(page int) (gesture.TaskInfo, bool)
	// SetOnPageTransitionEndCallback calls fn once scrolling settles, right
	// away if it already has. nil clears a pending callback.
	SetOnPageTransitionEndCallback(fn func())
	LaunchTask(task gesture.TaskInfo, done func(ok bool))
	OnSwipeUpAnimationSuccess()
}

// Taskbar reacts to end-target decisions.
type Taskbar interface {
	OnEndTargetCalculated(target gesture.EndTarget)
}

// Container is the launcher host of the overview panel.
type Container interface {
	Overview() Overview
	// TaskbarController may return nil.
	TaskbarController() Taskbar
	PrepareRecentsUI(alreadyOnHome bool)
	// OnSettledOnEndTarget returns a frame waiter to delay resuming the last
	// task until the launcher has drawn, or nil.
	OnSettledOnEndTarget(target gesture.EndTarget) func(done func())
	StateFromGestureEndTarget(target gesture.EndTarget) gesture.ContainerState
	OnTransitionCancelled(wasVisible bool, target gesture.EndTarget)
	OnLaunchTaskFailed()
	SetDividerShown(shown bool)
	// StartParallelAnimation runs a launcher-owned animation alongside the
	// window animation and returns its cancel func, or nil when there is
	// none. done is called once the animation ends or is canceled.
	StartParallelAnimation(target gesture.EndTarget, duration time.Duration, done func()) (cancel func())
	IsInLiveTileMode() bool
}

// LiveTile is the part of the task animation manager a handler uses to keep
// the recents animation alive after settling in overview.
type LiveTile interface {
	SetLiveTileCleanUpHandler(fn func())
	EnableLiveTileRestartListener()
}

// Stats receives gesture outcomes.
type Stats interface {
	Record(e statslog.Entry)
}
