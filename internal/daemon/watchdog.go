package daemon

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/1broseidon/quickstep/internal/looper"
)

// WatchdogConfig holds configuration for the watchdog.
type WatchdogConfig struct {
	Interval time.Duration
	// StaleAge is how long a session may run unfinished.
	StaleAge time.Duration
	Logger   *slog.Logger
}

// Target is one display the watchdog checks, with the looper its driver
// runs on.
type Target struct {
	Driver *Driver
	UI     looper.Executor
}

// Watchdog periodically reaps stale recents animations and resyncs idle
// overview panels.
type Watchdog struct {
	interval time.Duration
	staleAge atomic.Int64
	targets  []Target
	logger   *slog.Logger
}

// NewWatchdog creates a watchdog over targets.
func NewWatchdog(cfg WatchdogConfig, targets ...Target) *Watchdog {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	staleAge := cfg.StaleAge
	if staleAge <= 0 {
		staleAge = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watchdog{
		interval: interval,
		targets:  targets,
		logger:   logger.With("component", "watchdog"),
	}
	w.staleAge.Store(int64(staleAge))
	return w
}

// SetStaleAge changes the stale threshold for subsequent checks. It is safe
// to call while Run is active.
func (w *Watchdog) SetStaleAge(d time.Duration) {
	if d > 0 {
		w.staleAge.Store(int64(d))
	}
}

// StaleAge returns the current stale threshold.
func (w *Watchdog) StaleAge() time.Duration {
	return time.Duration(w.staleAge.Load())
}

// Run starts the check loop. Blocks until context is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("watchdog started", "interval", w.interval, "stale_age", w.StaleAge())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watchdog stopped")
			return
		case <-ticker.C:
			w.CheckNow()
		}
	}
}

// CheckNow posts one check to every display's UI looper.
func (w *Watchdog) CheckNow() {
	staleAge := w.StaleAge()
	for _, t := range w.targets {
		d := t.Driver
		t.UI.Post(func() {
			// Recover from panics to prevent crashing the daemon
			defer func() {
				if err := recover(); err != nil {
					w.logger.Error("watchdog panic recovered", "display", d.DisplayID(), "error", err)
				}
			}()
			d.ReapStale(staleAge)
			d.SyncOverview()
		})
	}
}
