package platform

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// ErrUnknownTask is returned for a task the compositor does not know.
var ErrUnknownTask = errors.New("unknown task")

// SimCompositor is an in-memory compositor. It keeps one task stack per
// display, most recently used first, with a home task on every display.
type SimCompositor struct {
	mu            sync.Mutex
	displays      []Display
	tasks         []Task
	nextID        int
	refuse        bool
	failLaunch    map[int]bool
	screenshotErr error
	active        *SimAnimation
	last          *SimAnimation
	started       int
}

// NewSimCompositor creates a compositor with the given displays, or a single
// 1920x1080 display when none are given.
func NewSimCompositor(displays ...Display) *SimCompositor {
	if len(displays) == 0 {
		full := Rect{Width: 1920, Height: 1080}
		displays = []Display{{ID: 0, Name: "sim-0", Bounds: full, Usable: full}}
	}
	c := &SimCompositor{
		displays:   displays,
		nextID:     1,
		failLaunch: make(map[int]bool),
	}
	for _, d := range displays {
		c.tasks = append(c.tasks, Task{
			ID:        c.nextID,
			DisplayID: d.ID,
			AppID:     "launcher",
			Title:     "Home",
			Bounds:    d.Usable,
			IsHome:    true,
		})
		c.nextID++
	}
	return c
}

// AddTask opens a task in front of everything on its display. A zero ID is
// assigned one.
func (c *SimCompositor) AddTask(t Task) Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.ID == 0 {
		t.ID = c.nextID
	}
	c.nextID = max(c.nextID, t.ID) + 1
	if t.Bounds == (Rect{}) {
		if d, ok := c.displayLocked(t.DisplayID); ok {
			t.Bounds = d.Usable
		}
	}
	c.tasks = append([]Task{t}, c.tasks...)
	return t
}

// SetRefuse makes StartRecentsAnimation refuse every request.
func (c *SimCompositor) SetRefuse(refuse bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refuse = refuse
}

// SetLaunchFailure makes LaunchTask fail for taskID.
func (c *SimCompositor) SetLaunchFailure(taskID int, fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failLaunch[taskID] = fail
}

// SetScreenshotError makes every screenshot fail with err.
func (c *SimCompositor) SetScreenshotError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.screenshotErr = err
}

// Displays implements Compositor.
func (c *SimCompositor) Displays() ([]Display, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.displays), nil
}

// RecentTasks implements Compositor.
func (c *SimCompositor) RecentTasks(displayID int) ([]Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.displayLocked(displayID); !ok {
		return nil, fmt.Errorf("display %d not found", displayID)
	}
	var out []Task
	for _, t := range c.tasks {
		if t.DisplayID == displayID {
			out = append(out, t)
		}
	}
	return out, nil
}

// TopTask returns the front task of a display.
func (c *SimCompositor) TopTask(displayID int) (Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topLocked(displayID)
}

// StartRecentsAnimation implements Compositor. A new request cancels the
// animation already running. The listener hears the start before this
// returns.
func (c *SimCompositor) StartRecentsAnimation(req StartRequest, listener AnimationListener) bool {
	c.mu.Lock()
	if c.refuse {
		c.mu.Unlock()
		return false
	}
	prev := c.active
	c.active = nil

	a := &SimAnimation{c: c, req: req, listener: listener}
	targets := &Targets{}
	running, ok := c.findLocked(req.RunningTaskID)
	if !ok {
		running, ok = c.topLocked(req.DisplayID)
	}
	if ok && !running.IsHome {
		targets.Apps = append(targets.Apps, Target{
			TaskID:    running.ID,
			WindowID:  running.WindowID,
			Bounds:    running.Bounds,
			Mode:      ModeClosing,
			IsDesktop: running.IsDesktop,
		})
	}
	c.active = a
	c.last = a
	c.started++
	c.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
	listener.OnAnimationStart(a, targets)
	return true
}

// LaunchTask implements Compositor. The running animation, if any, hears
// about the opened task.
func (c *SimCompositor) LaunchTask(taskID int) error {
	c.mu.Lock()
	if c.failLaunch[taskID] {
		c.mu.Unlock()
		return fmt.Errorf("launch task %d: refused", taskID)
	}
	i := slices.IndexFunc(c.tasks, func(t Task) bool { return t.ID == taskID })
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("launch task %d: %w", taskID, ErrUnknownTask)
	}
	t := c.tasks[i]
	c.tasks = slices.Delete(c.tasks, i, i+1)
	c.tasks = append([]Task{t}, c.tasks...)
	a := c.active
	c.mu.Unlock()

	if a != nil && a.req.DisplayID == t.DisplayID && !a.IsFinished() {
		a.listener.OnTasksAppeared([]Target{{
			TaskID:    t.ID,
			WindowID:  t.WindowID,
			Bounds:    t.Bounds,
			Mode:      ModeOpening,
			IsHome:    t.IsHome,
			IsDesktop: t.IsDesktop,
		}})
	}
	return nil
}

// CancelActive cancels the running animation the way the system does when
// something else takes over the screen. It reports whether one was running.
func (c *SimCompositor) CancelActive() bool {
	c.mu.Lock()
	a := c.active
	c.active = nil
	c.mu.Unlock()
	if a == nil {
		return false
	}
	return a.cancel()
}

// Active returns the running animation, or nil.
func (c *SimCompositor) Active() *SimAnimation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Last returns the most recently started animation, finished or not.
func (c *SimCompositor) Last() *SimAnimation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Started returns how many animations were started.
func (c *SimCompositor) Started() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

func (c *SimCompositor) displayLocked(id int) (Display, bool) {
	for _, d := range c.displays {
		if d.ID == id {
			return d, true
		}
	}
	return Display{}, false
}

func (c *SimCompositor) findLocked(taskID int) (Task, bool) {
	for _, t := range c.tasks {
		if t.ID == taskID {
			return t, true
		}
	}
	return Task{}, false
}

func (c *SimCompositor) topLocked(displayID int) (Task, bool) {
	for _, t := range c.tasks {
		if t.DisplayID == displayID {
			return t, true
		}
	}
	return Task{}, false
}

// bringHomeToFront moves the display's home task to the front.
func (c *SimCompositor) bringHomeToFront(displayID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.tasks, func(t Task) bool { return t.IsHome && t.DisplayID == displayID })
	if i < 0 {
		return
	}
	home := c.tasks[i]
	c.tasks = slices.Delete(c.tasks, i, i+1)
	c.tasks = append([]Task{home}, c.tasks...)
}

func (c *SimCompositor) release(a *SimAnimation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == a {
		c.active = nil
	}
}

// SimHints is what the gesture told a SimAnimation about its end target.
type SimHints struct {
	WillFinishToHome  bool
	NavBarDetached    bool
	MoveHomeToTop     bool
	LauncherBarFlags  bool
	UserLeaveHintSent bool
}

// SimAnimation is the controller of one SimCompositor recents animation.
type SimAnimation struct {
	c        *SimCompositor
	req      StartRequest
	listener AnimationListener

	mu        sync.Mutex
	finished  bool
	canceled  bool
	toRecents bool
	hints     SimHints
}

var _ Controller = (*SimAnimation)(nil)

// Finish implements Controller. Only the first call succeeds.
func (a *SimAnimation) Finish(toRecents, sendUserLeaveHint bool, done func(ok bool)) {
	a.mu.Lock()
	if a.finished {
		a.mu.Unlock()
		if done != nil {
			done(false)
		}
		return
	}
	a.finished = true
	a.toRecents = toRecents
	a.hints.UserLeaveHintSent = sendUserLeaveHint
	a.mu.Unlock()

	if toRecents {
		a.c.bringHomeToFront(a.req.DisplayID)
	}
	a.c.release(a)
	if done != nil {
		done(true)
	}
}

// ScreenshotTask implements Controller.
func (a *SimAnimation) ScreenshotTask(taskID int) (*Snapshot, error) {
	a.c.mu.Lock()
	defer a.c.mu.Unlock()
	if a.c.screenshotErr != nil {
		return nil, a.c.screenshotErr
	}
	t, ok := a.c.findLocked(taskID)
	if !ok {
		return nil, fmt.Errorf("screenshot task %d: %w", taskID, ErrUnknownTask)
	}
	return &Snapshot{
		TaskID:     taskID,
		Width:      t.Bounds.Width,
		Height:     t.Bounds.Height,
		CapturedAt: time.Now(),
	}, nil
}

// SetWillFinishToHome implements Controller.
func (a *SimAnimation) SetWillFinishToHome(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hints.WillFinishToHome = v
}

// DetachNavigationBarFromApp implements Controller.
func (a *SimAnimation) DetachNavigationBarFromApp(moveHomeToTop bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hints.NavBarDetached = true
	a.hints.MoveHomeToTop = moveHomeToTop
}

// SetUseLauncherSystemBarFlags implements Controller.
func (a *SimAnimation) SetUseLauncherSystemBarFlags(v bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hints.LauncherBarFlags = v
}

// Hints returns the end target hints received so far.
func (a *SimAnimation) Hints() SimHints {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hints
}

// IsFinished reports whether the animation was finished or canceled.
func (a *SimAnimation) IsFinished() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finished
}

// FinishedToRecents reports where a finished animation ended.
func (a *SimAnimation) FinishedToRecents() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.toRecents
}

// WasCanceled reports whether the compositor canceled the animation.
func (a *SimAnimation) WasCanceled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.canceled
}

// Request returns the start request.
func (a *SimAnimation) Request() StartRequest { return a.req }

func (a *SimAnimation) cancel() bool {
	a.mu.Lock()
	if a.finished {
		a.mu.Unlock()
		return false
	}
	a.finished = true
	a.canceled = true
	a.mu.Unlock()

	snapshots := make(map[int]*Snapshot)
	if snap, err := a.ScreenshotTask(a.req.RunningTaskID); err == nil {
		snapshots[a.req.RunningTaskID] = snap
	}
	a.listener.OnAnimationCanceled(snapshots)
	return true
}
