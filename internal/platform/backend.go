// Package platform defines the compositor contracts the gesture core calls
// into, and the concrete compositors that implement them.
package platform

import "time"

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Display describes a physical display and its usable work area.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
	Usable Rect
}

// Task is one top-level app task known to the compositor.
type Task struct {
	ID        int
	WindowID  WindowID
	DisplayID int
	AppID     string
	Title     string
	Bounds    Rect
	IsHome    bool
	IsDesktop bool
}

// TargetMode tells whether a remote surface is opening or closing.
type TargetMode int

const (
	ModeClosing TargetMode = iota
	ModeOpening
)

// Target is one remote surface handed to the recents animation.
type Target struct {
	TaskID    int
	WindowID  WindowID
	Bounds    Rect
	Mode      TargetMode
	IsHome    bool
	IsDesktop bool
}

// Targets is the set of surfaces animated by one controller.
type Targets struct {
	Apps []Target
}

// HasTargets reports whether any app surface is present.
func (t *Targets) HasTargets() bool {
	return t != nil && len(t.Apps) > 0
}

// FindTask returns the target for taskID.
func (t *Targets) FindTask(taskID int) (Target, bool) {
	if t == nil {
		return Target{}, false
	}
	for _, a := range t.Apps {
		if a.TaskID == taskID {
			return a, true
		}
	}
	return Target{}, false
}

// Snapshot is a captured task thumbnail.
type Snapshot struct {
	TaskID     int
	Width      int
	Height     int
	Pix        []byte
	CapturedAt time.Time
}

// StartRequest asks the compositor to begin a recents animation.
type StartRequest struct {
	DisplayID     int
	RunningTaskID int
	Reason        string
}

// Controller is the compositor-side handle of a running recents animation.
// Every method may block on IPC and must be called off the UI looper.
type Controller interface {
	// Finish ends the animation with either the launcher (toRecents) or the
	// top app visible. done is invoked once with the outcome, on any goroutine.
	Finish(toRecents, sendUserLeaveHint bool, done func(ok bool))
	ScreenshotTask(taskID int) (*Snapshot, error)
	SetWillFinishToHome(willFinishToHome bool)
	DetachNavigationBarFromApp(moveHomeToTop bool)
	SetUseLauncherSystemBarFlags(use bool)
}

// AnimationListener receives compositor callbacks for one recents animation.
// Calls may arrive on any goroutine.
type AnimationListener interface {
	OnAnimationStart(controller Controller, targets *Targets)
	OnAnimationCanceled(snapshots map[int]*Snapshot)
	OnTasksAppeared(targets []Target)
}

// Compositor abstracts the window system's remote-animation transport.
type Compositor interface {
	Displays() ([]Display, error)
	// RecentTasks lists tasks on a display, most recently used first.
	RecentTasks(displayID int) ([]Task, error)
	// StartRecentsAnimation requests a new recents animation. It returns false
	// when the request was refused outright.
	StartRecentsAnimation(req StartRequest, listener AnimationListener) bool
	// LaunchTask brings taskID to the front.
	LaunchTask(taskID int) error
}
