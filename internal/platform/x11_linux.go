//go:build linux

package platform

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/1broseidon/quickstep/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// X11Compositor drives an EWMH window manager as a compositor. Task IDs are
// client window IDs; the root window stands for home. There is no real remote
// animation: finishing to recents minimizes the running window and finishing
// to the app activates it.
type X11Compositor struct {
	conn   *x11.Connection
	logger *slog.Logger

	mu     sync.Mutex
	active *x11Animation
}

var _ Compositor = (*X11Compositor)(nil)

// NewX11Compositor wraps an existing X11 connection.
func NewX11Compositor(conn *x11.Connection, logger *slog.Logger) *X11Compositor {
	if logger == nil {
		logger = slog.Default()
	}
	return &X11Compositor{conn: conn, logger: logger.With("component", "x11")}
}

// OpenX11Compositor connects to display ($DISPLAY when empty).
func OpenX11Compositor(display string, logger *slog.Logger) (*X11Compositor, error) {
	conn, err := x11.NewConnectionDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewX11Compositor(conn, logger), nil
}

// Disconnect closes the underlying X11 connection.
func (c *X11Compositor) Disconnect() {
	if c != nil && c.conn != nil {
		c.conn.Close()
	}
}

// EventLoop runs the X11 event loop (blocking).
func (c *X11Compositor) EventLoop() {
	c.conn.EventLoop()
}

// Quit stops EventLoop.
func (c *X11Compositor) Quit() {
	c.conn.Quit()
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (c *X11Compositor) XUtil() *xgbutil.XUtil {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (c *X11Compositor) RootWindow() xproto.Window {
	if c == nil || c.conn == nil {
		return 0
	}
	return c.conn.Root
}

func (c *X11Compositor) homeID() int { return int(c.conn.Root) }

// Displays returns all active monitors.
func (c *X11Compositor) Displays() ([]Display, error) {
	monitors, err := c.conn.GetMonitors()
	if err != nil {
		return nil, err
	}
	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, Display{
			ID:     m.ID,
			Name:   m.Name,
			Bounds: rectFromMonitor(m),
			Usable: rectFromMonitor(c.conn.WorkArea(m)),
		})
	}
	sort.Slice(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})
	return displays, nil
}

// RecentTasks lists normal windows on the current desktop whose centers lie
// on the display, topmost first, followed by home.
func (c *X11Compositor) RecentTasks(displayID int) ([]Task, error) {
	monitors, err := c.conn.GetMonitors()
	if err != nil {
		return nil, err
	}
	var mon *x11.Monitor
	for i := range monitors {
		if monitors[i].ID == displayID {
			mon = &monitors[i]
			break
		}
	}
	if mon == nil {
		return nil, fmt.Errorf("display with id %d not found", displayID)
	}

	windows, err := c.conn.StackingOrder()
	if err != nil {
		return nil, err
	}
	currentDesktop, desktopErr := c.conn.GetCurrentDesktop()

	tasks := make([]Task, 0, len(windows)+1)
	for _, win := range windows {
		if !c.conn.IsNormalWindow(win) {
			continue
		}
		if desktopErr == nil {
			if d, err := c.conn.GetWindowDesktop(win); err == nil && d >= 0 && d != currentDesktop {
				continue
			}
		}
		geom, err := c.conn.WindowGeometry(win)
		if err != nil || !mon.Contains(geom.Center()) {
			continue
		}
		tasks = append(tasks, Task{
			ID:        int(win),
			WindowID:  WindowID(win),
			DisplayID: displayID,
			AppID:     c.conn.WindowClass(win),
			Title:     c.conn.WindowTitle(win),
			Bounds:    rectFromGeometry(geom),
		})
	}

	// Minimized windows sit below home.
	home := Task{
		ID:        c.homeID(),
		WindowID:  WindowID(c.conn.Root),
		DisplayID: displayID,
		AppID:     "desktop",
		Title:     "Home",
		Bounds:    rectFromMonitor(*mon),
		IsHome:    true,
	}
	split := len(tasks)
	for i, t := range tasks {
		if c.conn.IsHidden(xproto.Window(t.WindowID)) {
			split = i
			break
		}
	}
	tasks = append(tasks[:split], append([]Task{home}, tasks[split:]...)...)
	return tasks, nil
}

// StartRecentsAnimation captures the running window as the closing target.
// A request cancels the animation already running.
func (c *X11Compositor) StartRecentsAnimation(req StartRequest, listener AnimationListener) bool {
	running := xproto.Window(req.RunningTaskID)
	if req.RunningTaskID <= 0 {
		win, err := c.conn.GetActiveWindow()
		if err != nil {
			c.logger.Warn("no active window for recents animation", "error", err)
			return false
		}
		running = win
	}

	a := &x11Animation{c: c, req: req, running: running, listener: listener}
	targets := &Targets{}
	if running != 0 && running != c.conn.Root && c.conn.IsNormalWindow(running) {
		geom, err := c.conn.WindowGeometry(running)
		if err == nil {
			targets.Apps = append(targets.Apps, Target{
				TaskID:   int(running),
				WindowID: WindowID(running),
				Bounds:   rectFromGeometry(geom),
				Mode:     ModeClosing,
			})
		}
	}

	c.mu.Lock()
	prev := c.active
	c.active = a
	c.mu.Unlock()
	if prev != nil {
		prev.cancel()
	}

	c.logger.Debug("recents animation started", "display", req.DisplayID, "running", uint32(running), "reason", req.Reason)
	listener.OnAnimationStart(a, targets)
	return true
}

// LaunchTask activates the task's window, or shows the desktop for home.
func (c *X11Compositor) LaunchTask(taskID int) error {
	var err error
	if taskID == c.homeID() {
		err = c.conn.ShowDesktop(true)
	} else {
		err = c.conn.ActivateWindow(xproto.Window(taskID))
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	a := c.active
	c.mu.Unlock()
	if a == nil || a.isDone() {
		return nil
	}
	target := Target{TaskID: taskID, WindowID: WindowID(taskID), Mode: ModeOpening, IsHome: taskID == c.homeID()}
	if geom, err := c.conn.WindowGeometry(xproto.Window(taskID)); err == nil {
		target.Bounds = rectFromGeometry(geom)
	}
	a.listener.OnTasksAppeared([]Target{target})
	return nil
}

func (c *X11Compositor) release(a *x11Animation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == a {
		c.active = nil
	}
}

func rectFromMonitor(m x11.Monitor) Rect {
	return Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height}
}

func rectFromGeometry(g x11.Geometry) Rect {
	return Rect{X: g.X, Y: g.Y, Width: g.Width, Height: g.Height}
}

type x11Animation struct {
	c        *X11Compositor
	req      StartRequest
	running  xproto.Window
	listener AnimationListener

	mu   sync.Mutex
	done bool
}

func (a *x11Animation) isDone() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

func (a *x11Animation) markDone() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done {
		return false
	}
	a.done = true
	return true
}

func (a *x11Animation) Finish(toRecents, sendUserLeaveHint bool, done func(ok bool)) {
	if !a.markDone() {
		if done != nil {
			done(false)
		}
		return
	}
	defer a.c.release(a)

	var err error
	switch {
	case a.running == 0 || a.running == a.c.conn.Root:
	case toRecents:
		err = a.c.conn.MinimizeWindow(a.running)
	default:
		err = a.c.conn.ActivateWindow(a.running)
	}
	if err != nil {
		a.c.logger.Warn("failed to finish recents animation", "to_recents", toRecents, "error", err)
	}
	a.c.logger.Debug("recents animation finished", "to_recents", toRecents, "user_leave_hint", sendUserLeaveHint)
	if done != nil {
		done(err == nil)
	}
}

func (a *x11Animation) ScreenshotTask(taskID int) (*Snapshot, error) {
	capture, err := a.c.conn.CaptureWindow(xproto.Window(taskID))
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		TaskID:     taskID,
		Width:      capture.Width,
		Height:     capture.Height,
		Pix:        capture.Pix,
		CapturedAt: time.Now(),
	}, nil
}

func (a *x11Animation) SetWillFinishToHome(v bool) {
	a.c.logger.Debug("hint", "will_finish_to_home", v)
}

func (a *x11Animation) DetachNavigationBarFromApp(moveHomeToTop bool) {
	a.c.logger.Debug("hint", "detach_nav_bar", true, "move_home_to_top", moveHomeToTop)
}

func (a *x11Animation) SetUseLauncherSystemBarFlags(v bool) {
	a.c.logger.Debug("hint", "launcher_system_bar_flags", v)
}

func (a *x11Animation) cancel() {
	if !a.markDone() {
		return
	}
	snapshots := make(map[int]*Snapshot)
	if a.running != 0 && a.running != a.c.conn.Root {
		if snap, err := a.ScreenshotTask(int(a.running)); err == nil {
			snapshots[int(a.running)] = snap
		}
	}
	a.listener.OnAnimationCanceled(snapshots)
}
