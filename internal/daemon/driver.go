// Package daemon runs the gesture core for each display: the Driver stands in
// for the input layer and the Watchdog reaps sessions nobody finished.
package daemon

import (
	"log/slog"
	"time"

	"github.com/1broseidon/quickstep/internal/classifier"
	"github.com/1broseidon/quickstep/internal/gesture"
	"github.com/1broseidon/quickstep/internal/invariant"
	"github.com/1broseidon/quickstep/internal/looper"
	"github.com/1broseidon/quickstep/internal/monitoring"
	"github.com/1broseidon/quickstep/internal/overview"
	"github.com/1broseidon/quickstep/internal/platform"
	"github.com/1broseidon/quickstep/internal/swipe"
	"github.com/1broseidon/quickstep/internal/taskanim"
)

// Script is a synthetic gesture. Steps are applied in order, then the
// gesture is released, cancelled, or left in flight.
type Script struct {
	// Steps are finger displacements in px, negative upwards.
	Steps []float64
	// Velocity is the release velocity in px/ms; negative Y is up.
	Velocity             classifier.Velocity
	Cancel               bool
	PauseMotion          bool
	CanSlowSwipeGoHome   bool
	HorizontalSlopPassed bool
	// Pages scrolls overview by this many pages before release.
	Pages int
	// Fingers selects a trackpad gesture; zero is touch.
	Fingers              int
	Atomic               bool
	LikelyToStartNewTask bool
	// Hold leaves the gesture unreleased; the next gesture takes over.
	Hold bool
}

// Outcome describes a played gesture.
type Outcome struct {
	GestureID int64
	DisplayID int
	Continued bool
	// Decision is the classifier result at release. It is zero for held
	// gestures.
	Decision classifier.Decision
	// EndTarget is the final end target once the gesture has released,
	// after any correction.
	EndTarget gesture.EndTarget
	Released  bool
}

// Stats receives gesture outcome records.
type Stats = swipe.Stats

// DriverConfig configures a Driver.
type DriverConfig struct {
	DisplayID  int
	Compositor platform.Compositor
	Manager    *taskanim.Manager
	Host       *overview.Host
	UI         looper.Executor
	Worker     looper.Executor
	Thresholds classifier.Thresholds
	Features   swipe.Features
	Animation  swipe.AnimationConfig
	Report     *invariant.Reporter
	Metrics    *monitoring.Metrics
	Stats      Stats
	Logger     *slog.Logger
	Now        func() time.Time
}

// Driver feeds gestures into the core of one display. It decides whether a
// new gesture continues the running recents animation or starts fresh, and
// switches the previous handler out first. All methods except Config
// updates must run on the UI looper.
type Driver struct {
	cfg     DriverConfig
	logger  *slog.Logger
	current *swipe.Handler
	played  int
}

// NewDriver creates a Driver.
func NewDriver(cfg DriverConfig) *Driver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Driver{
		cfg:    cfg,
		logger: logger.With("component", "driver", "display", cfg.DisplayID),
	}
}

// DisplayID returns the display the driver serves.
func (d *Driver) DisplayID() int { return d.cfg.DisplayID }

// Manager returns the display's task animation manager.
func (d *Driver) Manager() *taskanim.Manager { return d.cfg.Manager }

// Host returns the display's launcher host.
func (d *Driver) Host() *overview.Host { return d.cfg.Host }

// Current returns the handler of the gesture in flight, or nil.
func (d *Driver) Current() *swipe.Handler { return d.current }

// Played returns how many gestures were started.
func (d *Driver) Played() int { return d.played }

// SetTuning replaces the thresholds, features and animation used by
// subsequent gestures.
func (d *Driver) SetTuning(th classifier.Thresholds, f swipe.Features, a swipe.AnimationConfig) {
	d.cfg.Thresholds = th
	d.cfg.Features = f
	d.cfg.Animation = a
}

// Thresholds returns the thresholds new gestures use.
func (d *Driver) Thresholds() classifier.Thresholds { return d.cfg.Thresholds }

// Features returns the features new gestures use.
func (d *Driver) Features() swipe.Features { return d.cfg.Features }

// Play runs script. The release is applied once the compositor has handed
// over the recents controller, so the returned Outcome carries a Decision
// only when that had already happened. onDone, if set, is called once the
// gesture's handler has released, with the final outcome.
func (d *Driver) Play(script Script, onDone func(Outcome)) Outcome {
	h, out := d.begin(script)

	h.SetGestureEndCallback(func() {
		if d.current == h {
			d.current = nil
		}
	})
	if onDone != nil {
		h.AddCleanup(func() {
			// Cleanups run before release; read the final target on the next turn.
			d.cfg.UI.Post(func() {
				final := out
				final.EndTarget = h.EndTarget()
				final.Decision = h.Decision()
				final.Released = h.IsReleased()
				onDone(final)
			})
		})
	}

	release := func() {
		switch {
		case script.Atomic:
			h.OnGestureEnded(0, classifier.Velocity{}, false)
		case script.Cancel:
			h.OnGestureCancelled()
		default:
			h.OnGestureEnded(script.Velocity.Y, script.Velocity, script.HorizontalSlopPassed)
		}
		out.Decision = h.Decision()
	}

	if !script.Atomic {
		for _, px := range script.Steps {
			h.UpdateDisplacement(px)
		}
		if script.Pages != 0 {
			d.cfg.Host.Panel().ScrollBy(script.Pages)
		}
		h.SetMotionPaused(script.PauseMotion)
		h.SetCanSlowSwipeGoHome(script.CanSlowSwipeGoHome)
		if script.Hold {
			return out
		}
	}

	// A synthetic gesture is faster than the compositor; release once the
	// controller is in hand, as a finger would.
	h.OnControllerReceived(release)
	return out
}

func (d *Driver) begin(script Script) (*swipe.Handler, Outcome) {
	running, onHome := d.runningTask()
	m := d.cfg.Manager
	continued := m.IsRecentsAnimationRunning()

	if prev := d.current; prev != nil {
		d.current = nil
		if !prev.IsInvalidated() {
			prev.OnConsumerAboutToBeSwitched()
		}
	}

	opts := gesture.Options{
		DisplayID: d.cfg.DisplayID,
		Running:   running,
		Trackpad:  gesture.ParseTrackpadGestureType(script.Fingers),
		Atomic:    script.Atomic,
		Report:    d.cfg.Report,
		Now:       d.cfg.Now(),
	}
	var gs *gesture.State
	if continued {
		gs = gesture.NewContinuation(m.LastGesture(), opts)
	} else {
		gs = gesture.New(opts)
	}

	h := swipe.New(swipe.Config{
		Gesture:    gs,
		Container:  d.cfg.Host,
		UI:         d.cfg.UI,
		Worker:     d.cfg.Worker,
		LiveTile:   m,
		Continued:  continued,
		Thresholds: d.cfg.Thresholds,
		Features:   d.cfg.Features,
		Animation:  d.cfg.Animation,
		Report:     d.cfg.Report,
		Metrics:    d.cfg.Metrics,
		Stats:      d.cfg.Stats,
		Logger:     d.cfg.Logger,
		Now:        d.cfg.Now,
	})
	d.current = h
	d.played++

	if continued {
		m.ContinueRecentsAnimation(gs, h)
	} else {
		m.StartRecentsAnimation(gs, platform.StartRequest{
			RunningTaskID: running.TopID(),
			Reason:        "swipe",
		}, h)
	}
	d.logger.Debug("gesture started",
		"gesture", gs.ID(),
		"running_task", running.TopID(),
		"continued", continued,
		"atomic", script.Atomic)

	h.OnLauncherPresent(onHome)
	h.OnLauncherStarted()
	h.OnLauncherDrawn()
	h.OnGestureStarted(script.LikelyToStartNewTask)

	return h, Outcome{GestureID: gs.ID(), DisplayID: d.cfg.DisplayID, Continued: continued}
}

// runningTask returns the front task of the display and whether home is in
// front.
func (d *Driver) runningTask() (gesture.TaskInfo, bool) {
	tasks, err := d.cfg.Compositor.RecentTasks(d.cfg.DisplayID)
	if err != nil {
		d.logger.Warn("failed to read running task", "error", err)
		return gesture.TaskInfo{DisplayID: d.cfg.DisplayID}, false
	}
	if len(tasks) == 0 {
		return gesture.TaskInfo{DisplayID: d.cfg.DisplayID}, false
	}
	top := tasks[0]
	if top.IsHome {
		return gesture.TaskInfo{DisplayID: d.cfg.DisplayID}, true
	}
	return gesture.NewTaskInfo(d.cfg.DisplayID, top), false
}
