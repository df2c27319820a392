// Package swipe drives one gesture from touch-down to a settled end target.
//
// A Handler owns a gate of UI-lifecycle flags and a set of one-shot
// registrations over it and over the gesture's own flags. Every path through
// the gesture, including supersession and compositor cancellation, ends with
// HANDLER_INVALIDATED, which releases the handler exactly once.
package swipe

import (
	"log/slog"
	"math"
	"time"

	"github.com/1broseidon/quickstep/internal/anim"
	"github.com/1broseidon/quickstep/internal/classifier"
	"github.com/1broseidon/quickstep/internal/gate"
	"github.com/1broseidon/quickstep/internal/gesture"
	"github.com/1broseidon/quickstep/internal/invariant"
	"github.com/1broseidon/quickstep/internal/looper"
	"github.com/1broseidon/quickstep/internal/monitoring"
	"github.com/1broseidon/quickstep/internal/platform"
	"github.com/1broseidon/quickstep/internal/recents"
	"github.com/1broseidon/quickstep/internal/statslog"
)

// Features toggles optional behaviour.
type Features struct {
	OverviewDisabled bool
	DesktopWindowing bool
	HorizontalSlop   bool
	LiveTile         bool
}

// AnimationConfig tunes the window animation.
type AnimationConfig struct {
	MinDuration time.Duration
	MaxDuration time.Duration
	Frame       time.Duration
	// TransitionLength is the vertical travel, in px, that maps to a full
	// swipe.
	TransitionLength float64
}

// DefaultAnimationConfig returns the stock animation tuning.
func DefaultAnimationConfig() AnimationConfig {
	return AnimationConfig{
		MinDuration:      120 * time.Millisecond,
		MaxDuration:      350 * time.Millisecond,
		Frame:            anim.DefaultFrame,
		TransitionLength: 600,
	}
}

// Config configures a Handler.
type Config struct {
	Gesture   *gesture.State
	Container Container
	UI        looper.Executor
	Worker    looper.Executor
	// LiveTile may be nil when live tile mode is unsupported.
	LiveTile   LiveTile
	Continued  bool
	Thresholds classifier.Thresholds
	Features   Features
	Animation  AnimationConfig
	Report     *invariant.Reporter
	Metrics    *monitoring.Metrics
	Stats      Stats
	Logger     *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Handler orchestrates the animation lifecycle of one gesture. All methods
// must be called on the UI looper.
type Handler struct {
	gs        *gesture.State
	state     *gate.Gate
	container Container
	overview  Overview
	ui        looper.Executor
	worker    looper.Executor
	liveTile  LiveTile
	continued bool
	th        classifier.Thresholds
	features  Features
	animCfg   AnimationConfig
	report    *invariant.Reporter
	metrics   *monitoring.Metrics
	stats     Stats
	logger    *slog.Logger
	now       func() time.Time

	session       *recents.Session
	targets       *platform.Targets
	snapshotCache map[int]*platform.Snapshot
	hintsPending  bool

	shift                float64
	motionPaused         bool
	canSlowSwipeGoHome   bool
	likelyToStartNewTask bool
	gestureStarted       bool
	launcherVisible      bool
	decision             classifier.Decision
	startedAt            time.Time

	windowAnim     *anim.Animation
	parallelCancel func()

	cleanups     []func()
	onGestureEnd func()
	outcome      statslog.Event
	final        gesture.EndTarget
	released     bool
}

var _ recents.Listener = (*Handler)(nil)

// New creates a Handler for cfg.Gesture and registers its transitions.
func New(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	animCfg := cfg.Animation
	if animCfg.TransitionLength <= 0 {
		animCfg = DefaultAnimationConfig()
	}
	h := &Handler{
		gs:        cfg.Gesture,
		state:     gate.New(vocab, cfg.Report),
		container: cfg.Container,
		ui:        cfg.UI,
		worker:    cfg.Worker,
		liveTile:  cfg.LiveTile,
		continued: cfg.Continued,
		th:        cfg.Thresholds,
		features:  cfg.Features,
		animCfg:   animCfg,
		report:    cfg.Report,
		metrics:   cfg.Metrics,
		stats:     cfg.Stats,
		logger:    logger.With("gesture", cfg.Gesture.ID(), "display", cfg.Gesture.DisplayID()),
		now:       now,
		outcome:   statslog.EventSettled,
	}
	if cfg.Container != nil {
		h.overview = cfg.Container.Overview()
	}
	h.startedAt = now()
	h.initTransitions()
	return h
}

// Gesture returns the gesture state the handler drives, or the default state
// once released.
func (h *Handler) Gesture() *gesture.State { return h.gs }

// Describe renders the handler flags.
func (h *Handler) Describe() string { return h.state.Describe() }

// HasState reports whether every flag in bits is set.
func (h *Handler) HasState(bits gate.Set) bool { return h.state.HasStates(bits) }

// IsInvalidated reports whether HANDLER_INVALIDATED is set.
func (h *Handler) IsInvalidated() bool { return h.state.HasStates(StateHandlerInvalidated) }

// IsReleased reports whether the handler has let go of its gesture state.
func (h *Handler) IsReleased() bool { return h.released }

// Decision returns the last end-target decision.
func (h *Handler) Decision() classifier.Decision { return h.decision }

// Shift returns the window progress, 0 at rest and 1 at a full swipe.
func (h *Handler) Shift() float64 { return h.shift }

// EndTarget returns the latched end target. It stays valid after release.
func (h *Handler) EndTarget() gesture.EndTarget {
	if h.released {
		return h.final
	}
	return h.gs.EndTarget()
}

// AddCleanup registers fn to run when the handler is invalidated. It runs
// immediately if that already happened.
func (h *Handler) AddCleanup(fn func()) {
	if h.IsInvalidated() {
		fn()
		return
	}
	h.cleanups = append(h.cleanups, fn)
}

// OnControllerReceived runs fn once the compositor has handed over the
// recents controller, right away if it already has. fn is dropped if the
// handler is invalidated first.
func (h *Handler) OnControllerReceived(fn func()) {
	h.on(StateAppControllerReceived, "controllerReceived", fn)
}

// SetGestureEndCallback sets the callback run after all cleanups.
func (h *Handler) SetGestureEndCallback(fn func()) {
	h.onGestureEnd = fn
}

// OnLauncherPresent reports that the launcher container is attached.
func (h *Handler) OnLauncherPresent(alreadyOnHome bool) {
	if h.IsInvalidated() {
		return
	}
	h.launcherVisible = alreadyOnHome
	bits := StateLauncherPresent
	if alreadyOnHome {
		bits |= StateLauncherStarted
	}
	h.state.SetState(bits)
}

// OnLauncherStarted reports that the launcher is resumed.
func (h *Handler) OnLauncherStarted() {
	if h.IsInvalidated() {
		return
	}
	h.state.SetState(StateLauncherStarted)
}

// OnLauncherDrawn reports the first launcher frame.
func (h *Handler) OnLauncherDrawn() {
	if h.IsInvalidated() {
		return
	}
	h.state.SetState(StateLauncherDrawn)
}

// OnGestureStarted marks the start of finger movement.
func (h *Handler) OnGestureStarted(likelyToStartNewTask bool) {
	if h.IsInvalidated() {
		return
	}
	h.gestureStarted = true
	h.likelyToStartNewTask = likelyToStartNewTask
	h.metrics.RecordGestureStarted(h.gs.TrackpadGestureType().String(), h.continued)
	if h.gs.RunningTask().Kind == gesture.KindSplit {
		h.container.SetDividerShown(false)
	}
	h.state.SetState(StateGestureStarted)
}

// UpdateDisplacement moves the window with the finger. displacement is the
// vertical travel in px, negative upwards.
func (h *Handler) UpdateDisplacement(displacement float64) {
	if h.IsInvalidated() {
		return
	}
	h.shift = clamp(-displacement/h.animCfg.TransitionLength, 0, 1)
}

// SetMotionPaused records whether the finger has paused mid-swipe.
func (h *Handler) SetMotionPaused(paused bool) {
	if h.IsInvalidated() {
		return
	}
	h.motionPaused = paused
}

// SetCanSlowSwipeGoHome records whether a slow upward release goes home.
func (h *Handler) SetCanSlowSwipeGoHome(v bool) {
	if h.IsInvalidated() {
		return
	}
	h.canSlowSwipeGoHome = v
}

// OnGestureEnded handles finger release. endVelocityY is the vertical speed
// at release in px/ms, negative upwards.
func (h *Handler) OnGestureEnded(endVelocityY float64, velocity classifier.Velocity, horizontalSlopPassed bool) {
	if h.IsInvalidated() || h.releasedTwice("ended") {
		return
	}
	isFling := h.gestureStarted && !h.motionPaused && classifier.IsFling(endVelocityY, h.th.FlingThreshold)
	h.state.SetState(StateGestureCompleted)
	h.handleNormalGestureEnd(classifier.Release{
		Velocity:             velocity,
		EndVelocityY:         endVelocityY,
		IsFling:              isFling,
		HorizontalSlopPassed: horizontalSlopPassed,
	})
}

// OnGestureCancelled handles a gesture aborted by the input pipeline. Atomic
// gestures are treated as a normal release.
func (h *Handler) OnGestureCancelled() {
	if h.IsInvalidated() || h.releasedTwice("cancelled") {
		return
	}
	if h.gs.IsHandlingAtomicEvent() {
		h.OnGestureEnded(0, classifier.Velocity{}, false)
		return
	}
	h.UpdateDisplacement(0)
	h.state.SetState(StateGestureCancelled)
	h.handleNormalGestureEnd(classifier.Release{IsCancel: true})
}

// releasedTwice reports a second end or cancel for the same gesture. The
// first release already chose the end target and started its animation.
func (h *Handler) releasedTwice(how string) bool {
	if !h.state.HasStates(StateGestureCompleted) && !h.state.HasStates(StateGestureCancelled) {
		return false
	}
	h.report.Violation("gesture released twice",
		"gesture", h.gs.ID(),
		"release", how,
		"end_target", h.gs.EndTarget())
	return true
}

// OnConsumerAboutToBeSwitched is called when a new gesture takes over input.
// A quick switch to an app keeps the compositor animation alive for the next
// gesture; anything else ends the handler without an end animation.
func (h *Handler) OnConsumerAboutToBeSwitched() {
	if h.IsInvalidated() {
		return
	}
	gs := h.gs
	target := gs.EndTarget()
	h.cancelAnimations()
	if h.overview != nil {
		h.overview.SetOnPageTransitionEndCallback(nil)
	}
	if gs.IsRecentsAnimationRunning() && target != gesture.EndTargetNone && !target.IsLauncher() {
		h.outcome = statslog.EventSuperseded
		h.logger.Debug("gesture superseded, keeping recents animation", "end_target", target)
		h.reset()
		return
	}
	h.outcome = statslog.EventNoEnd
	h.state.SetState(StateFinishWithNoEnd)
	h.reset()
}

// CalculateEndTarget classifies r against the current gesture and overview
// context.
func (h *Handler) CalculateEndTarget(r classifier.Release) classifier.Decision {
	ctx := classifier.Context{
		IsAtomic:                h.gs.IsHandlingAtomicEvent(),
		OverviewDisabled:        h.features.OverviewDisabled,
		IsScrollingToNewTask:    h.isScrollingToNewTask(),
		MotionPaused:            h.motionPaused,
		CanSlowSwipeGoHome:      h.canSlowSwipeGoHome,
		HorizontalSlopEnabled:   h.features.HorizontalSlop,
		DesktopWindowingEnabled: h.features.DesktopWindowing,
		RunningTaskIsDesktop:    h.gs.RunningTask().Kind == gesture.KindDesktop,
	}
	if h.overview != nil {
		running := h.overview.RunningTaskIndex()
		ctx.IsCenteredOnNonRunningTask = running >= 0 && h.overview.DestinationPage() != running
		if next, ok := h.overview.TaskAt(h.overview.NextPage()); ok {
			ctx.NextTaskIsDesktop = next.Kind == gesture.KindDesktop
		}
	}
	return classifier.Describe(r, ctx, h.th)
}

func (h *Handler) isScrollingToNewTask() bool {
	if h.overview == nil || !h.targets.HasTargets() {
		return false
	}
	running := h.overview.RunningTaskIndex()
	return running >= 0 && h.overview.NextPage() != running
}

func (h *Handler) handleNormalGestureEnd(r classifier.Release) {
	gs := h.gs
	d := h.CalculateEndTarget(r)
	h.decision = d
	target := d.Target
	atomic := gs.IsHandlingAtomicEvent()

	h.logger.Info("end target calculated",
		"decision", d.String(),
		"likely_new_task", h.likelyToStartNewTask)
	h.metrics.RecordEndTarget(target.String())
	gs.SetEndTarget(target, atomic)

	if h.overview != nil {
		h.overview.SetOnPageTransitionEndCallback(func() {
			gs.SetState(gesture.StateRecentsScrollingFinished)
		})
	} else {
		gs.SetState(gesture.StateRecentsScrollingFinished)
	}
	if h.IsInvalidated() {
		return
	}

	if atomic {
		h.state.SetState(StateParallelAnimFinished)
		return
	}

	endShift := 0.0
	if target.IsLauncher() {
		endShift = 1
	}
	speed := r.EndVelocityY
	if target == gesture.NewTask {
		speed = r.Velocity.X
	}
	distance := (endShift - h.shift) * h.animCfg.TransitionLength
	duration := anim.DurationFor(distance, speed, h.animCfg.MinDuration, h.animCfg.MaxDuration)

	h.startParallelAnimation(target, duration)
	h.windowAnim = anim.Start(h.ui, anim.Spec{
		From:     h.shift,
		To:       endShift,
		Duration: duration,
		Frame:    h.animCfg.Frame,
		Ease:     anim.EaseOutCubic,
	}, func(v float64) {
		h.shift = v
	}, func(canceled bool) {
		if !canceled {
			h.onWindowAnimationSuccess()
		}
	})
}

func (h *Handler) startParallelAnimation(target gesture.EndTarget, duration time.Duration) {
	if target != gesture.Home {
		h.state.SetState(StateParallelAnimFinished)
		return
	}
	cancel := h.container.StartParallelAnimation(target, duration, func() {
		h.parallelCancel = nil
		h.state.SetState(StateParallelAnimFinished)
	})
	if cancel == nil {
		h.state.SetState(StateParallelAnimFinished)
		return
	}
	h.parallelCancel = cancel
}

func (h *Handler) onWindowAnimationSuccess() {
	if h.IsInvalidated() {
		return
	}
	gs := h.gs
	if h.overview != nil {
		nextPage := h.overview.NextPage()
		switch target := gs.EndTarget(); {
		case target == gesture.NewTask && nextPage == h.lastAppearedTaskIndex() && !gs.HasStartedNewTask():
			h.correctEndTarget(gesture.LastTask)
		case target == gesture.LastTask && gs.HasStartedNewTask():
			h.correctEndTarget(gesture.NewTask)
		}
	}
	gs.SetState(gesture.StateEndTargetAnimationFinished)
}

// lastAppearedTaskIndex is the overview page of the task most recently handed
// to the animation, falling back to the running task.
func (h *Handler) lastAppearedTaskIndex() int {
	if appeared := h.gs.LastAppearedTaskTargets(); len(appeared) > 0 {
		return h.overview.TaskIndexForID(appeared[0].TaskID)
	}
	return h.overview.RunningTaskIndex()
}

func (h *Handler) correctEndTarget(to gesture.EndTarget) {
	from := h.gs.EndTarget()
	if !h.gs.CorrectEndTarget(to) {
		return
	}
	h.logger.Info("end target corrected", "from", from, "to", to)
	h.metrics.RecordCorrection(from.String(), to.String())
	h.record(statslog.EventCorrected, from.String()+" -> "+to.String())
}

func (h *Handler) cancelAnimations() {
	h.windowAnim.Cancel()
	h.windowAnim = nil
	if cancel := h.parallelCancel; cancel != nil {
		h.parallelCancel = nil
		cancel()
	}
}

func (h *Handler) reset() {
	h.state.SetState(StateHandlerInvalidated)
}

func (h *Handler) record(event statslog.Event, reason string) {
	if h.stats == nil {
		return
	}
	sessionID := ""
	if h.session != nil {
		sessionID = h.session.ID()
	}
	h.stats.Record(statslog.Entry{
		Event:     event,
		GestureID: h.gs.ID(),
		DisplayID: h.gs.DisplayID(),
		SessionID: sessionID,
		EndTarget: h.gs.EndTarget().String(),
		Reason:    reason,
		Origin:    h.gs.TrackpadGestureType().String(),
	})
}

// OnRecentsAnimationStart implements recents.Listener.
func (h *Handler) OnRecentsAnimationStart(s *recents.Session, targets *platform.Targets) {
	if h.IsInvalidated() {
		return
	}
	h.session = s
	h.targets = targets
	if h.overview != nil {
		h.overview.SetRecentsAnimationTargets(s, targets)
	}
	if h.hintsPending {
		h.hintsPending = false
		h.sendEndTargetHints(h.gs.EndTarget())
	}
	h.state.SetState(StateAppControllerReceived)
}

// OnRecentsAnimationCanceled implements recents.Listener.
func (h *Handler) OnRecentsAnimationCanceled(snapshots map[int]*platform.Snapshot) {
	if h.IsInvalidated() {
		return
	}
	h.targets = nil
	if len(snapshots) > 0 {
		h.snapshotCache = snapshots
	}
	if h.overview != nil {
		h.overview.SetRecentsAnimationTargets(nil, nil)
		if len(snapshots) > 0 {
			h.overview.SwitchToScreenshot(snapshots, nil)
		}
	}
	h.logger.Info("recents animation canceled by compositor")
	bits := StateHandlerInvalidated
	if !h.state.HasStates(StateGestureCompleted) {
		bits |= StateGestureCancelled
	}
	h.state.SetState(bits)
}

// OnRecentsAnimationFinished implements recents.Listener.
func (h *Handler) OnRecentsAnimationFinished(*recents.Session) {
	h.targets = nil
}

// OnTasksAppeared implements recents.Listener.
func (h *Handler) OnTasksAppeared(appeared []platform.Target) {
	if h.IsInvalidated() || h.session == nil || len(appeared) == 0 {
		return
	}
	startedID, ok := h.gs.StartedTaskID()
	started := false
	if ok {
		for _, t := range appeared {
			if t.TaskID == startedID {
				started = true
				break
			}
		}
	}

	if !h.state.HasStates(StateGestureCompleted) && !started {
		h.logger.Warn("unexpected task appeared during gesture, finishing to app",
			"task", appeared[0].TaskID)
		h.record(statslog.EventUnexpectedTask, "task appeared mid-gesture")
		h.session.Finish(false, nil, false)
		return
	}
	if h.state.HasStates(StateStartNewTask) && started {
		h.session.Finish(false, nil, false)
		h.reset()
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
