// Package monitoring exposes gesture and recents-session metrics to Prometheus.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// Session metrics
	SessionsStarted    *prometheus.CounterVec
	SessionsEnded      *prometheus.CounterVec
	SessionsSuperseded *prometheus.CounterVec
	SessionsActive     *prometheus.GaugeVec
	StaleSessions      *prometheus.CounterVec

	// Gesture metrics
	GesturesStarted     *prometheus.CounterVec
	EndTargets          *prometheus.CounterVec
	Corrections         *prometheus.CounterVec
	Invalidations       *prometheus.CounterVec
	GestureDuration     *prometheus.HistogramVec
	InvariantViolations prometheus.Counter

	// Control surface
	IPCRequests *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. Pass prometheus.DefaultRegisterer
// for the process-wide registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionsStarted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickstep_recents_sessions_started_total",
				Help: "Recents animations requested from the compositor",
			},
			[]string{"display"},
		),
		SessionsEnded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickstep_recents_sessions_ended_total",
				Help: "Recents animations that ended, by outcome",
			},
			[]string{"display", "outcome"},
		),
		SessionsSuperseded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickstep_recents_sessions_superseded_total",
				Help: "Sessions force-finished because a new one started",
			},
			[]string{"display"},
		),
		SessionsActive: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quickstep_recents_session_active",
				Help: "Whether a recents session is current on the display",
			},
			[]string{"display"},
		),
		StaleSessions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickstep_recents_sessions_stale_total",
				Help: "Sessions force-finished by the watchdog",
			},
			[]string{"display"},
		),
		GesturesStarted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickstep_gestures_started_total",
				Help: "Gestures started, by origin",
			},
			[]string{"origin", "continued"},
		),
		EndTargets: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickstep_gesture_end_targets_total",
				Help: "End targets chosen by the classifier",
			},
			[]string{"end_target"},
		),
		Corrections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickstep_gesture_end_target_corrections_total",
				Help: "NEW_TASK/LAST_TASK corrections applied after launch",
			},
			[]string{"from", "to"},
		),
		Invalidations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickstep_gesture_handlers_invalidated_total",
				Help: "Gesture handlers torn down, by end target",
			},
			[]string{"end_target"},
		),
		GestureDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quickstep_gesture_duration_seconds",
				Help:    "Time from gesture start to handler cleanup",
				Buckets: []float64{.05, .1, .25, .5, .75, 1, 2, 5},
			},
			[]string{"end_target"},
		),
		InvariantViolations: f.NewCounter(
			prometheus.CounterOpts{
				Name: "quickstep_invariant_violations_total",
				Help: "Programming-error invariants reported in non-strict mode",
			},
		),
		IPCRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quickstep_ipc_requests_total",
				Help: "Control socket requests, by command and status",
			},
			[]string{"command", "status"},
		),
	}
}

// RecordSessionStarted counts a compositor start request.
func (m *Metrics) RecordSessionStarted(display string) {
	if m == nil {
		return
	}
	m.SessionsStarted.WithLabelValues(display).Inc()
	m.SessionsActive.WithLabelValues(display).Set(1)
}

// RecordSessionEnded counts a canceled or finished session.
func (m *Metrics) RecordSessionEnded(display, outcome string) {
	if m == nil {
		return
	}
	m.SessionsEnded.WithLabelValues(display, outcome).Inc()
}

// RecordSessionCleared marks the display as having no current session.
func (m *Metrics) RecordSessionCleared(display string) {
	if m == nil {
		return
	}
	m.SessionsActive.WithLabelValues(display).Set(0)
}

// RecordSuperseded counts a forced finish caused by a new session.
func (m *Metrics) RecordSuperseded(display string) {
	if m == nil {
		return
	}
	m.SessionsSuperseded.WithLabelValues(display).Inc()
}

// RecordStale counts a watchdog finish.
func (m *Metrics) RecordStale(display string) {
	if m == nil {
		return
	}
	m.StaleSessions.WithLabelValues(display).Inc()
}

// RecordGestureStarted counts a gesture by origin.
func (m *Metrics) RecordGestureStarted(origin string, continued bool) {
	if m == nil {
		return
	}
	c := "false"
	if continued {
		c = "true"
	}
	m.GesturesStarted.WithLabelValues(origin, c).Inc()
}

// RecordEndTarget counts a classifier decision.
func (m *Metrics) RecordEndTarget(target string) {
	if m == nil {
		return
	}
	m.EndTargets.WithLabelValues(target).Inc()
}

// RecordCorrection counts an end-target correction.
func (m *Metrics) RecordCorrection(from, to string) {
	if m == nil {
		return
	}
	m.Corrections.WithLabelValues(from, to).Inc()
}

// RecordInvalidated counts a handler cleanup and its gesture duration.
func (m *Metrics) RecordInvalidated(target string, d time.Duration) {
	if m == nil {
		return
	}
	m.Invalidations.WithLabelValues(target).Inc()
	m.GestureDuration.WithLabelValues(target).Observe(d.Seconds())
}

// RecordViolation counts an invariant violation.
func (m *Metrics) RecordViolation() {
	if m == nil {
		return
	}
	m.InvariantViolations.Inc()
}

// RecordIPC counts a control socket request.
func (m *Metrics) RecordIPC(command, status string) {
	if m == nil {
		return
	}
	m.IPCRequests.WithLabelValues(command, status).Inc()
}
