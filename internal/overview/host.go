package overview

import (
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/quickstep/internal/anim"
	"github.com/1broseidon/quickstep/internal/gesture"
	"github.com/1broseidon/quickstep/internal/looper"
	"github.com/1broseidon/quickstep/internal/swipe"
)

// HostConfig configures a Host.
type HostConfig struct {
	Panel *Panel
	UI    looper.Executor
	// LiveTile keeps the app surface live in overview after a swipe to
	// recents.
	LiveTile bool
	// Frame is the delay before resuming the last task, standing in for the
	// launcher's next drawn frame. Zero resumes immediately.
	Frame  time.Duration
	Logger *slog.Logger
}

// Host is the launcher container of one display.
type Host struct {
	panel    *Panel
	ui       looper.Executor
	liveTile bool
	frame    time.Duration
	logger   *slog.Logger
	taskbar  *Taskbar

	mu           sync.Mutex
	state        gesture.ContainerState
	dividerShown bool
	launchFailed int
	homeReveal   *anim.Animation
	revealAmount float64
}

var _ swipe.Container = (*Host)(nil)

// NewHost creates a host showing the app (background state).
func NewHost(cfg HostConfig) *Host {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		panel:        cfg.Panel,
		ui:           cfg.UI,
		liveTile:     cfg.LiveTile,
		frame:        cfg.Frame,
		logger:       logger.With("component", "launcher"),
		taskbar:      &Taskbar{},
		state:        gesture.ContainerBackground,
		dividerShown: true,
	}
}

// Overview returns the recents panel.
func (h *Host) Overview() swipe.Overview { return h.panel }

// Panel returns the concrete recents panel.
func (h *Host) Panel() *Panel { return h.panel }

// TaskbarController returns the taskbar.
func (h *Host) TaskbarController() swipe.Taskbar { return h.taskbar }

// Taskbar returns the concrete taskbar.
func (h *Host) Taskbar() *Taskbar { return h.taskbar }

// PrepareRecentsUI readies the launcher for a gesture.
func (h *Host) PrepareRecentsUI(alreadyOnHome bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !alreadyOnHome {
		h.state = gesture.ContainerBackground
	}
	h.logger.Debug("recents ui prepared", "already_on_home", alreadyOnHome)
}

// OnSettledOnEndTarget moves the launcher to the target's state. For
// LAST_TASK it returns a frame waiter when a frame delay is configured.
func (h *Host) OnSettledOnEndTarget(target gesture.EndTarget) func(done func()) {
	h.mu.Lock()
	h.state = h.StateFromGestureEndTarget(target)
	h.mu.Unlock()
	if target == gesture.Home || target == gesture.LastTask || target == gesture.NewTask {
		h.panel.Hide()
	}
	if target != gesture.LastTask || h.frame <= 0 {
		return nil
	}
	return func(done func()) {
		h.ui.PostDelayed(h.frame, done)
	}
}

// StateFromGestureEndTarget maps target to a launcher state.
func (h *Host) StateFromGestureEndTarget(target gesture.EndTarget) gesture.ContainerState {
	return target.ContainerState()
}

// OnTransitionCancelled restores the launcher after a gesture that will not
// settle in a launcher state.
func (h *Host) OnTransitionCancelled(wasVisible bool, target gesture.EndTarget) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if wasVisible && target.IsLauncher() {
		h.state = target.ContainerState()
		return
	}
	h.state = gesture.ContainerBackground
}

// OnLaunchTaskFailed falls back to overview.
func (h *Host) OnLaunchTaskFailed() {
	h.mu.Lock()
	h.state = gesture.ContainerOverview
	h.launchFailed++
	h.mu.Unlock()
	h.panel.OnSwipeUpAnimationSuccess()
}

// SetDividerShown shows or hides the split-screen divider.
func (h *Host) SetDividerShown(shown bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dividerShown = shown
}

// StartParallelAnimation reveals the home screen alongside the window
// animation. Only HOME has one.
func (h *Host) StartParallelAnimation(target gesture.EndTarget, duration time.Duration, done func()) func() {
	if target != gesture.Home {
		return nil
	}
	var a *anim.Animation
	a = anim.Start(h.ui, anim.Spec{From: 0, To: 1, Duration: duration, Ease: anim.EaseOutCubic},
		func(v float64) {
			h.mu.Lock()
			h.revealAmount = v
			h.mu.Unlock()
		},
		func(bool) {
			h.mu.Lock()
			if h.homeReveal == a {
				h.homeReveal = nil
			}
			h.mu.Unlock()
			done()
		})
	h.mu.Lock()
	h.homeReveal = a
	h.revealAmount = 0
	h.mu.Unlock()
	return a.Cancel
}

// IsInLiveTileMode reports whether live tile mode is on.
func (h *Host) IsInLiveTileMode() bool {
	return h.liveTile
}

// HostStatus is a point-in-time view of the host.
type HostStatus struct {
	State          gesture.ContainerState `json:"state"`
	DividerShown   bool                   `json:"divider_shown"`
	LaunchFailures int                    `json:"launch_failures"`
	HomeReveal     float64                `json:"home_reveal"`
	TaskbarStashed bool                   `json:"taskbar_stashed"`
	Overview       PanelStatus            `json:"overview"`
}

// Status snapshots the host and its panel.
func (h *Host) Status() HostStatus {
	h.mu.Lock()
	st := HostStatus{
		State:          h.state,
		DividerShown:   h.dividerShown,
		LaunchFailures: h.launchFailed,
		HomeReveal:     h.revealAmount,
	}
	h.mu.Unlock()
	st.TaskbarStashed = h.taskbar.Stashed()
	st.Overview = h.panel.Status()
	return st
}

// Taskbar stashes itself while the gesture heads to a launcher state.
type Taskbar struct {
	mu      sync.Mutex
	stashed bool
}

// OnEndTargetCalculated implements swipe.Taskbar.
func (t *Taskbar) OnEndTargetCalculated(target gesture.EndTarget) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stashed = target.IsLauncher()
}

// Stashed reports whether the taskbar is stashed.
func (t *Taskbar) Stashed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stashed
}
