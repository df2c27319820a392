// Package taskanim arbitrates recents animations on one display: at most one
// session is current, a new start force-finishes the previous one, and a
// chained gesture can take over the running session.
package taskanim

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/1broseidon/quickstep/internal/gesture"
	"github.com/1broseidon/quickstep/internal/invariant"
	"github.com/1broseidon/quickstep/internal/looper"
	"github.com/1broseidon/quickstep/internal/monitoring"
	"github.com/1broseidon/quickstep/internal/platform"
	"github.com/1broseidon/quickstep/internal/recents"
)

// Config configures a Manager.
type Config struct {
	DisplayID  int
	Compositor platform.Compositor
	UI         looper.Executor
	Worker     looper.Executor
	Report     *invariant.Reporter
	Metrics    *monitoring.Metrics
	Logger     *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager owns the current recents session of one display. All methods must
// be called on the UI looper.
type Manager struct {
	displayID  int
	display    string
	compositor platform.Compositor
	ui         looper.Executor
	worker     looper.Executor
	report     *invariant.Reporter
	metrics    *monitoring.Metrics
	logger     *slog.Logger
	now        func() time.Time

	current     *recents.Session
	startedAt   time.Time
	lastGesture *gesture.State
	handler     recents.Listener

	liveTileCleanup func()
	liveTileRestart bool
}

var _ recents.Owner = (*Manager)(nil)

// New creates a Manager.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	m := &Manager{
		displayID:  cfg.DisplayID,
		display:    strconv.Itoa(cfg.DisplayID),
		compositor: cfg.Compositor,
		ui:         cfg.UI,
		worker:     cfg.Worker,
		report:     cfg.Report,
		metrics:    cfg.Metrics,
		logger:     logger.With("component", "taskanim", "display", cfg.DisplayID),
		now:        now,
	}
	return m
}

// DisplayID returns the display this manager serves.
func (m *Manager) DisplayID() int { return m.displayID }

// Current returns the current session, nil when none.
func (m *Manager) Current() *recents.Session { return m.current }

// LastGesture returns the gesture state attached to the current or most
// recent session.
func (m *Manager) LastGesture() *gesture.State { return m.lastGesture }

// IsRecentsAnimationRunning reports whether the current session holds a live
// controller. The input layer uses it to choose continue versus fresh.
func (m *Manager) IsRecentsAnimationRunning() bool {
	return m.current != nil && m.current.IsRunning()
}

// StartRecentsAnimation force-finishes any current session, then asks the
// compositor for a new one on behalf of gs. listener is usually the gesture
// handler. The returned session is current when this returns.
func (m *Manager) StartRecentsAnimation(gs *gesture.State, req platform.StartRequest, listener recents.Listener) *recents.Session {
	if gs.DisplayID() != m.displayID {
		m.report.Violation("recents animation started for another display",
			"manager_display", m.displayID,
			"gesture_display", gs.DisplayID())
	}
	// A live tile finishes to the launcher it is shown in.
	m.cleanUpLiveTile()
	m.liveTileRestart = false
	if m.current != nil {
		m.logger.Info("superseding running recents animation", "session", m.current.ID())
		m.metrics.RecordSuperseded(m.display)
		m.forceFinish(false)
	}

	s := recents.New(recents.Config{
		DisplayID: m.displayID,
		UI:        m.ui,
		Worker:    m.worker,
		Owner:     m,
		Logger:    m.logger,
	})
	s.AddListener(gs)
	if listener != nil {
		s.AddListener(listener)
	}
	s.AddListener(&sessionListener{m: m, s: s})

	m.current = s
	m.startedAt = m.now()
	m.lastGesture = gs
	m.handler = listener
	m.metrics.RecordSessionStarted(m.display)

	req.DisplayID = m.displayID
	compositor := m.compositor
	m.worker.Post(func() {
		if compositor.StartRecentsAnimation(req, s) {
			return
		}
		m.ui.Post(func() { s.Cancel("compositor refused start") })
	})
	m.logger.Debug("recents animation requested",
		"session", s.ID(),
		"gesture", gs.ID(),
		"running_task", req.RunningTaskID)
	return s
}

// ContinueRecentsAnimation moves the current session over to a chained
// gesture. gs and listener replace the previous gesture's registrations and
// are told about the start immediately if it already happened.
func (m *Manager) ContinueRecentsAnimation(gs *gesture.State, listener recents.Listener) *recents.Session {
	s := m.current
	if s == nil {
		m.logger.Warn("continue requested without a running recents animation", "gesture", gs.ID())
		return nil
	}
	if m.lastGesture != nil {
		s.RemoveListener(m.lastGesture)
	}
	if m.handler != nil && m.handler != listener {
		s.RemoveListener(m.handler)
	}
	s.AddListener(gs)
	if listener != nil {
		s.AddListener(listener)
	}
	m.lastGesture = gs
	m.handler = listener

	if s.IsStarted() {
		gs.OnRecentsAnimationStart(s, s.Targets())
		if listener != nil {
			listener.OnRecentsAnimationStart(s, s.Targets())
		}
	}
	m.logger.Debug("recents animation continued", "session", s.ID(), "gesture", gs.ID())
	return s
}

// FinishRunningRecentsAnimation ends the current session, showing the
// launcher when toHome is set. The current reference is cleared before the
// compositor confirms.
func (m *Manager) FinishRunningRecentsAnimation(toHome bool) {
	if m.current == nil {
		return
	}
	m.forceFinish(toHome)
}

func (m *Manager) forceFinish(toHome bool) {
	s := m.current
	m.current = nil
	m.liveTileRestart = false
	m.metrics.RecordSessionCleared(m.display)
	if s.IsStarted() {
		s.Finish(toHome, nil, false)
		return
	}
	s.Cancel("force finished before start")
}

// SetLiveTileCleanUpHandler registers fn to run before the next session
// starts or when the home task reappears in live-tile mode.
func (m *Manager) SetLiveTileCleanUpHandler(fn func()) {
	m.liveTileCleanup = fn
}

// EnableLiveTileRestartListener makes the manager handle tasks appearing
// after the gesture handler is gone.
func (m *Manager) EnableLiveTileRestartListener() {
	m.liveTileRestart = true
}

func (m *Manager) cleanUpLiveTile() {
	fn := m.liveTileCleanup
	m.liveTileCleanup = nil
	if fn != nil {
		fn()
	}
}

// OnFinishRequested drops the current reference once its finish is requested.
func (m *Manager) OnFinishRequested(s *recents.Session) {
	if m.current == s {
		m.current = nil
		m.metrics.RecordSessionCleared(m.display)
		m.liveTileRestart = false
	}
}

// OnSessionEnded records the outcome and clears a still-current session.
func (m *Manager) OnSessionEnded(s *recents.Session) {
	outcome := "finished"
	if s.WasCanceled() {
		outcome = "canceled"
	}
	m.metrics.RecordSessionEnded(m.display, outcome)
	if m.current == s {
		m.current = nil
		m.metrics.RecordSessionCleared(m.display)
		m.liveTileRestart = false
	}
}

// Status is a point-in-time view of the manager for the control surface.
type Status struct {
	DisplayID       int           `json:"display_id"`
	Running         bool          `json:"running"`
	SessionID       string        `json:"session_id,omitempty"`
	Started         bool          `json:"started"`
	FinishRequested bool          `json:"finish_requested"`
	Age             time.Duration `json:"age"`
	GestureID       int64         `json:"gesture_id,omitempty"`
	EndTarget       string        `json:"end_target,omitempty"`
	LiveTile        bool          `json:"live_tile"`
}

// Status snapshots the manager.
func (m *Manager) Status() Status {
	st := Status{DisplayID: m.displayID, LiveTile: m.liveTileRestart}
	if m.lastGesture != nil && !m.lastGesture.IsDefault() {
		st.GestureID = m.lastGesture.ID()
		if t := m.lastGesture.EndTarget(); t != gesture.EndTargetNone {
			st.EndTarget = t.String()
		}
	}
	if s := m.current; s != nil {
		st.Running = s.IsRunning()
		st.SessionID = s.ID()
		st.Started = s.IsStarted()
		st.FinishRequested = s.FinishRequested()
		st.Age = m.now().Sub(m.startedAt)
	}
	return st
}

// sessionListener handles tasks that appear once the gesture handler has
// detached from its session. Callbacks from a session that is no longer
// current are dropped.
type sessionListener struct {
	recents.NopListener
	m *Manager
	s *recents.Session
}

func (l *sessionListener) OnTasksAppeared(targets []platform.Target) {
	m, s := l.m, l.s
	if s != m.current || len(targets) == 0 {
		return
	}
	if m.handler != nil && s.HasListener(m.handler) {
		return
	}
	if m.lastGesture != nil {
		if started, ok := m.lastGesture.StartedTaskID(); ok {
			for _, t := range targets {
				if t.TaskID == started {
					m.logger.Info("started task appeared after handler ended, finishing to app", "task", started)
					s.Finish(false, nil, false)
					return
				}
			}
		}
	}
	if !m.liveTileRestart {
		return
	}
	for _, t := range targets {
		if t.IsHome {
			m.logger.Info("home appeared in live tile mode, finishing to home")
			m.cleanUpLiveTile()
			s.Finish(true, nil, false)
			return
		}
	}
}
