// Package recents wraps one compositor-owned recents animation. A Session
// serializes finish requests against the compositor controller, fans
// compositor callbacks out to listeners on the UI looper, and turns every
// call into a no-op once the animation has been canceled or finished.
package recents

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/1broseidon/quickstep/internal/looper"
	"github.com/1broseidon/quickstep/internal/platform"
)

// Listener receives session lifecycle callbacks on the UI looper. Start is
// always delivered before tasks-appeared and finished for the same session.
type Listener interface {
	OnRecentsAnimationStart(s *Session, targets *platform.Targets)
	OnRecentsAnimationCanceled(snapshots map[int]*platform.Snapshot)
	OnRecentsAnimationFinished(s *Session)
	OnTasksAppeared(targets []platform.Target)
}

// NopListener implements Listener with empty methods. Embed it to override
// only what is needed.
type NopListener struct{}

func (NopListener) OnRecentsAnimationStart(*Session, *platform.Targets)   {}
func (NopListener) OnRecentsAnimationCanceled(map[int]*platform.Snapshot) {}
func (NopListener) OnRecentsAnimationFinished(*Session)                   {}
func (NopListener) OnTasksAppeared([]platform.Target)                     {}

// Owner is the manager that holds the current session reference.
type Owner interface {
	// OnFinishRequested is called synchronously from Finish, before the
	// compositor round-trip, so the owner can drop its reference.
	OnFinishRequested(s *Session)
	// OnSessionEnded is called once the session is canceled or its finish is
	// confirmed.
	OnSessionEnded(s *Session)
}

// Config configures a Session.
type Config struct {
	DisplayID int
	UI        looper.Executor
	Worker    looper.Executor
	Owner     Owner
	Logger    *slog.Logger
}

// hint is a de-duplicated one-way compositor flag.
type hint struct {
	sent  bool
	value bool
}

func (h *hint) update(v bool) bool {
	if h.sent && h.value == v {
		return false
	}
	h.sent, h.value = true, v
	return true
}

// Session is one recents animation. All methods except ScreenshotTask must be
// called on the UI looper.
type Session struct {
	id        string
	displayID int
	ui        looper.Executor
	worker    looper.Executor
	owner     Owner
	logger    *slog.Logger

	listeners []Listener

	// mu guards controller, which ScreenshotTask reads from the worker.
	mu         sync.Mutex
	controller platform.Controller

	targets   *platform.Targets
	started   bool
	discarded bool
	canceled  bool
	early     [][]platform.Target

	finishRequested         bool
	finishTargetIsLauncher  bool
	launcherVisibleAtFinish bool
	sendUserLeaveHint       bool
	finishIssued            bool
	pendingCallbacks        []func()

	willFinishToHome   hint
	detachNavBar       hint
	launcherSystemBars hint
}

var _ platform.AnimationListener = (*Session)(nil)

// New creates an unstarted session.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Session{
		id:        id,
		displayID: cfg.DisplayID,
		ui:        cfg.UI,
		worker:    cfg.Worker,
		owner:     cfg.Owner,
		logger:    logger.With("session", id, "display", cfg.DisplayID),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// DisplayID returns the display the session animates.
func (s *Session) DisplayID() int { return s.displayID }

// Controller returns the compositor controller, nil before start.
func (s *Session) Controller() platform.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller
}

// Targets returns the animated surfaces, nil before start.
func (s *Session) Targets() *platform.Targets { return s.targets }

// IsStarted reports whether the compositor has started the animation.
func (s *Session) IsStarted() bool { return s.started }

// IsDiscarded reports whether the session was canceled or finished.
func (s *Session) IsDiscarded() bool { return s.discarded }

// WasCanceled reports whether the compositor or the owner canceled the session.
func (s *Session) WasCanceled() bool { return s.canceled }

// IsRunning reports whether the session holds a live controller.
func (s *Session) IsRunning() bool { return s.started && !s.discarded }

// FinishRequested reports whether Finish has been called.
func (s *Session) FinishRequested() bool { return s.finishRequested }

// FinishTargetIsLauncher reports whether the requested finish shows the launcher.
func (s *Session) FinishTargetIsLauncher() bool { return s.finishTargetIsLauncher }

// LauncherVisibleAtFinish reports whether the launcher was visible when the
// finish was requested.
func (s *Session) LauncherVisibleAtFinish() bool { return s.launcherVisibleAtFinish }

// AddListener registers l. Adding a listener twice has no effect.
func (s *Session) AddListener(l Listener) {
	if slices.Contains(s.listeners, l) {
		return
	}
	s.listeners = append(s.listeners, l)
}

// RemoveListener unregisters l.
func (s *Session) RemoveListener(l Listener) {
	s.listeners = slices.DeleteFunc(s.listeners, func(x Listener) bool { return x == l })
}

// HasListener reports whether l is registered.
func (s *Session) HasListener(l Listener) bool {
	return slices.Contains(s.listeners, l)
}

func (s *Session) snapshot() []Listener {
	return append([]Listener(nil), s.listeners...)
}

// OnAnimationStart is the compositor start callback. Any goroutine.
func (s *Session) OnAnimationStart(controller platform.Controller, targets *platform.Targets) {
	s.ui.Post(func() { s.handleStart(controller, targets) })
}

// OnAnimationCanceled is the compositor cancel callback. Any goroutine.
func (s *Session) OnAnimationCanceled(snapshots map[int]*platform.Snapshot) {
	s.ui.Post(func() { s.handleCanceled(snapshots) })
}

// OnTasksAppeared is the compositor tasks-appeared callback. Any goroutine.
func (s *Session) OnTasksAppeared(targets []platform.Target) {
	s.ui.Post(func() { s.handleTasksAppeared(targets) })
}

func (s *Session) handleStart(controller platform.Controller, targets *platform.Targets) {
	if s.discarded {
		// Started after we gave up on it; hand the surfaces straight back.
		s.logger.Info("recents animation started after discard, finishing to app")
		s.worker.Post(func() { controller.Finish(false, false, func(bool) {}) })
		return
	}
	if s.started {
		return
	}
	if targets == nil {
		targets = &platform.Targets{}
	}
	s.mu.Lock()
	s.controller = controller
	s.mu.Unlock()
	s.targets = targets
	s.started = true
	s.logger.Debug("recents animation started", "targets", len(targets.Apps))

	for _, l := range s.snapshot() {
		l.OnRecentsAnimationStart(s, targets)
	}
	early := s.early
	s.early = nil
	for _, t := range early {
		s.dispatchTasksAppeared(t)
	}
	if s.finishRequested && !s.finishIssued {
		s.issueFinish()
	}
}

func (s *Session) handleCanceled(snapshots map[int]*platform.Snapshot) {
	if s.discarded {
		return
	}
	s.logger.Info("recents animation canceled", "snapshots", len(snapshots))
	s.canceled = true
	s.discard()
	for _, l := range s.snapshot() {
		l.OnRecentsAnimationCanceled(snapshots)
	}
	s.runPendingCallbacks()
	if s.owner != nil {
		s.owner.OnSessionEnded(s)
	}
}

func (s *Session) handleTasksAppeared(targets []platform.Target) {
	if s.discarded {
		return
	}
	if !s.started {
		s.early = append(s.early, targets)
		return
	}
	s.dispatchTasksAppeared(targets)
}

func (s *Session) dispatchTasksAppeared(targets []platform.Target) {
	for _, l := range s.snapshot() {
		l.OnTasksAppeared(targets)
	}
}

// Finish asks the compositor to end the animation with the launcher
// (toRecents) or the top app visible. Repeated calls before confirmation
// only queue callback. Once the session is discarded, callback is posted
// immediately and the compositor is not contacted.
func (s *Session) Finish(toRecents bool, callback func(), sendUserLeaveHint bool) {
	s.FinishWithVisibility(toRecents, callback, sendUserLeaveHint, toRecents)
}

// FinishWithVisibility is Finish with an explicit launcher visibility latch.
func (s *Session) FinishWithVisibility(toRecents bool, callback func(), sendUserLeaveHint, launcherVisible bool) {
	if s.discarded {
		if callback != nil {
			s.ui.Post(callback)
		}
		return
	}
	if callback != nil {
		s.pendingCallbacks = append(s.pendingCallbacks, callback)
	}
	if s.finishRequested {
		return
	}
	s.finishRequested = true
	s.finishTargetIsLauncher = toRecents
	s.launcherVisibleAtFinish = launcherVisible
	s.sendUserLeaveHint = sendUserLeaveHint
	if s.owner != nil {
		s.owner.OnFinishRequested(s)
	}
	if !s.started {
		s.logger.Debug("finish requested before start, deferring", "to_recents", toRecents)
		return
	}
	s.issueFinish()
}

func (s *Session) issueFinish() {
	s.finishIssued = true
	controller := s.Controller()
	toRecents, leaveHint := s.finishTargetIsLauncher, s.sendUserLeaveHint
	s.logger.Debug("finishing recents animation", "to_recents", toRecents)
	s.worker.Post(func() {
		controller.Finish(toRecents, leaveHint, func(ok bool) {
			s.ui.Post(func() { s.handleFinished(ok) })
		})
	})
}

func (s *Session) handleFinished(ok bool) {
	if !ok {
		s.logger.Warn("compositor reported finish failure")
	}
	if s.discarded {
		// Canceled while the finish was in flight; callbacks already ran.
		return
	}
	s.discard()
	s.runPendingCallbacks()
	for _, l := range s.snapshot() {
		l.OnRecentsAnimationFinished(s)
	}
	if s.owner != nil {
		s.owner.OnSessionEnded(s)
	}
}

// Cancel discards a session whose compositor start was refused or that will
// never start. Listeners see a cancel with no snapshots.
func (s *Session) Cancel(reason string) {
	if s.discarded {
		return
	}
	s.logger.Info("recents session canceled locally", "reason", reason)
	s.handleCanceled(nil)
}

func (s *Session) discard() {
	s.discarded = true
	s.early = nil
}

func (s *Session) runPendingCallbacks() {
	callbacks := s.pendingCallbacks
	s.pendingCallbacks = nil
	for _, cb := range callbacks {
		cb()
	}
}

// ScreenshotTask captures taskID through the controller. It blocks on the
// compositor and is meant to run on the worker looper.
func (s *Session) ScreenshotTask(taskID int) (*platform.Snapshot, error) {
	controller := s.Controller()
	if controller == nil {
		return nil, ErrNotStarted
	}
	return controller.ScreenshotTask(taskID)
}

// SetWillFinishToHome forwards the hint if it changed.
func (s *Session) SetWillFinishToHome(v bool) {
	s.sendHint(&s.willFinishToHome, v, "will_finish_to_home", func(c platform.Controller) {
		c.SetWillFinishToHome(v)
	})
}

// DetachNavigationBarFromApp forwards the hint if it changed.
func (s *Session) DetachNavigationBarFromApp(moveHomeToTop bool) {
	s.sendHint(&s.detachNavBar, moveHomeToTop, "detach_nav_bar", func(c platform.Controller) {
		c.DetachNavigationBarFromApp(moveHomeToTop)
	})
}

// SetUseLauncherSystemBarFlags forwards the hint if it changed.
func (s *Session) SetUseLauncherSystemBarFlags(v bool) {
	s.sendHint(&s.launcherSystemBars, v, "launcher_system_bars", func(c platform.Controller) {
		c.SetUseLauncherSystemBarFlags(v)
	})
}

func (s *Session) sendHint(h *hint, v bool, name string, call func(platform.Controller)) {
	if s.discarded || !s.started {
		return
	}
	if !h.update(v) {
		return
	}
	controller := s.Controller()
	s.logger.Debug("compositor hint", "hint", name, "value", v)
	s.worker.Post(func() { call(controller) })
}
