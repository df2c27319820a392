package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/1broseidon/quickstep/internal/classifier"
	"github.com/1broseidon/quickstep/internal/config"
	"github.com/1broseidon/quickstep/internal/invariant"
	"github.com/1broseidon/quickstep/internal/ipc"
	"github.com/1broseidon/quickstep/internal/looper"
	"github.com/1broseidon/quickstep/internal/monitoring"
	"github.com/1broseidon/quickstep/internal/overview"
	"github.com/1broseidon/quickstep/internal/platform"
	"github.com/1broseidon/quickstep/internal/statslog"
	"github.com/1broseidon/quickstep/internal/swipe"
	"github.com/1broseidon/quickstep/internal/taskanim"
)

// ErrUnknownDisplay is returned for a display the daemon does not drive.
var ErrUnknownDisplay = errors.New("unknown display")

// Options configures a Daemon.
type Options struct {
	Config *config.Config
	// ConfigPath is reloaded by Reload. Empty uses the default path.
	ConfigPath string
	// Compositor overrides the one selected by backend.kind.
	Compositor platform.Compositor
	Logger     *slog.Logger
}

// Daemon owns the gesture core of every display.
type Daemon struct {
	mu         sync.RWMutex
	cfg        *config.Config
	configPath string

	backend    string
	compositor platform.Compositor
	x11        *platform.X11Compositor
	displays   []*display
	watchdog   *Watchdog

	registry *prometheus.Registry
	metrics  *monitoring.Metrics
	stats    *statslog.Logger
	report   *invariant.Reporter
	logger   *slog.Logger

	startTime time.Time
}

type display struct {
	info   platform.Display
	ui     *looper.Looper
	worker *looper.Looper
	driver *Driver
}

var _ ipc.Backend = (*Daemon)(nil)

// New builds the daemon: one UI looper, worker looper and driver per
// display reported by the compositor.
func New(opts Options) (*Daemon, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath, _ = config.DefaultConfigPath()
	}

	d := &Daemon{
		cfg:        cfg,
		configPath: configPath,
		registry:   prometheus.NewRegistry(),
		logger:     logger.With("component", "daemon"),
		startTime:  time.Now(),
	}
	d.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.metrics = monitoring.NewMetrics(d.registry)
	d.report = &invariant.Reporter{
		Strict:      cfg.Invariants.Strict,
		Logger:      logger,
		OnViolation: d.metrics.RecordViolation,
	}

	stats, err := statslog.NewLogger(statsConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open stats log: %w", err)
	}
	d.stats = stats

	if err := d.openCompositor(opts.Compositor); err != nil {
		d.stats.Close()
		return nil, err
	}

	infos, err := d.compositor.Displays()
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to list displays: %w", err)
	}
	if len(infos) == 0 {
		d.Close()
		return nil, errors.New("compositor reported no displays")
	}

	targets := make([]Target, 0, len(infos))
	for _, info := range infos {
		disp := d.newDisplay(info)
		d.displays = append(d.displays, disp)
		targets = append(targets, Target{Driver: disp.driver, UI: disp.ui})
	}
	d.watchdog = NewWatchdog(WatchdogConfig{
		Interval: cfg.Watchdog.Interval.Std(),
		StaleAge: cfg.Watchdog.StaleAge.Std(),
		Logger:   logger,
	}, targets...)

	return d, nil
}

func (d *Daemon) openCompositor(override platform.Compositor) error {
	if override != nil {
		d.compositor = override
		d.backend = "custom"
		if xc, ok := override.(*platform.X11Compositor); ok {
			d.x11 = xc
			d.backend = string(config.BackendX11)
		}
		if _, ok := override.(*platform.SimCompositor); ok {
			d.backend = string(config.BackendSim)
		}
		return nil
	}

	switch d.cfg.Backend.Kind {
	case config.BackendSim:
		sim := platform.NewSimCompositor()
		// SimTasks lists the front task first; AddTask puts each in front.
		for _, app := range slices.Backward(d.cfg.Backend.SimTasks) {
			sim.AddTask(platform.Task{AppID: app, Title: app})
		}
		d.compositor = sim
	default:
		xc, err := platform.OpenX11Compositor(d.cfg.Backend.Display, d.logger)
		if err != nil {
			return fmt.Errorf("failed to open X11 compositor: %w", err)
		}
		d.x11 = xc
		d.compositor = xc
	}
	d.backend = string(d.cfg.Backend.Kind)
	return nil
}

func (d *Daemon) newDisplay(info platform.Display) *display {
	cfg := d.cfg
	ui := looper.New(fmt.Sprintf("ui-%d", info.ID))
	worker := looper.New(fmt.Sprintf("worker-%d", info.ID))

	manager := taskanim.New(taskanim.Config{
		DisplayID:  info.ID,
		Compositor: d.compositor,
		UI:         ui,
		Worker:     worker,
		Report:     d.report,
		Metrics:    d.metrics,
		Logger:     d.logger,
	})
	panel := overview.NewPanel(overview.PanelConfig{
		DisplayID:   info.ID,
		Compositor:  d.compositor,
		UI:          ui,
		Worker:      worker,
		SettleDelay: cfg.Animation.SettleDelay.Std(),
		Logger:      d.logger,
	})
	host := overview.NewHost(overview.HostConfig{
		Panel:    panel,
		UI:       ui,
		LiveTile: cfg.Features.LiveTile,
		Frame:    cfg.Animation.Frame.Std(),
		Logger:   d.logger,
	})
	th, features, animation := Tuning(cfg)
	driver := NewDriver(DriverConfig{
		DisplayID:  info.ID,
		Compositor: d.compositor,
		Manager:    manager,
		Host:       host,
		UI:         ui,
		Worker:     worker,
		Thresholds: th,
		Features:   features,
		Animation:  animation,
		Report:     d.report,
		Metrics:    d.metrics,
		Stats:      d.stats,
		Logger:     d.logger,
	})
	return &display{info: info, ui: ui, worker: worker, driver: driver}
}

// Tuning converts the config into the classifier and handler settings.
func Tuning(cfg *config.Config) (classifier.Thresholds, swipe.Features, swipe.AnimationConfig) {
	th := classifier.Thresholds{
		FlingThreshold: cfg.Classifier.FlingThreshold,
		FlingSpeed:     cfg.Classifier.FlingSpeed,
	}
	f := swipe.Features{
		OverviewDisabled: cfg.Features.OverviewDisabled,
		DesktopWindowing: cfg.Features.DesktopWindowing,
		HorizontalSlop:   cfg.Features.HorizontalSlop,
		LiveTile:         cfg.Features.LiveTile,
	}
	a := swipe.AnimationConfig{
		MinDuration:      cfg.Animation.MinDuration.Std(),
		MaxDuration:      cfg.Animation.MaxDuration.Std(),
		Frame:            cfg.Animation.Frame.Std(),
		TransitionLength: cfg.Animation.TransitionLength,
	}
	return th, f, a
}

func statsConfig(cfg *config.Config) statslog.LogConfig {
	return statslog.LogConfig{
		Enabled:   cfg.Logging.StatsFile != "",
		Level:     statslog.ParseLogLevel(cfg.Logging.StatsLevel),
		FilePath:  cfg.StatsLogPath(),
		MaxSizeMB: cfg.Logging.StatsMaxSizeMB,
		MaxFiles:  cfg.Logging.StatsMaxFiles,
	}
}

// Run drives the loopers, the watchdog and the metrics listener until ctx is
// cancelled. Blocks.
func (d *Daemon) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, disp := range d.displays {
		wg.Add(2)
		go func() { defer wg.Done(); disp.ui.Run(ctx) }()
		go func() { defer wg.Done(); disp.worker.Run(ctx) }()
	}
	wg.Add(1)
	go func() { defer wg.Done(); d.watchdog.Run(ctx) }()

	d.mu.RLock()
	listen := d.cfg.Metrics.Listen
	d.mu.RUnlock()

	var err error
	if listen != "" {
		err = d.serveMetrics(ctx, listen)
	} else {
		<-ctx.Done()
	}
	wg.Wait()
	return err
}

func (d *Daemon) serveMetrics(ctx context.Context, listen string) error {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		<-ctx.Done()
		return fmt.Errorf("failed to listen for metrics on %s: %w", listen, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	d.logger.Info("metrics listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Close releases the stats log and the X connection.
func (d *Daemon) Close() {
	if d.stats != nil {
		d.stats.Close()
	}
	if d.x11 != nil {
		d.x11.Disconnect()
	}
}

// X11 returns the X11 compositor, or nil on other backends.
func (d *Daemon) X11() *platform.X11Compositor { return d.x11 }

// Metrics returns the daemon's metrics.
func (d *Daemon) Metrics() *monitoring.Metrics { return d.metrics }

// Registry returns the Prometheus registry the metrics live in.
func (d *Daemon) Registry() *prometheus.Registry { return d.registry }

// Watchdog returns the session watchdog.
func (d *Daemon) Watchdog() *Watchdog { return d.watchdog }

// Config returns the current config.
func (d *Daemon) Config() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// DisplayIDs lists the driven displays in compositor order.
func (d *Daemon) DisplayIDs() []int {
	ids := make([]int, len(d.displays))
	for i, disp := range d.displays {
		ids[i] = disp.info.ID
	}
	return ids
}

func (d *Daemon) display(id int) (*display, error) {
	for _, disp := range d.displays {
		if disp.info.ID == id {
			return disp, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownDisplay, id)
}

// Status implements ipc.Backend.
func (d *Daemon) Status(ctx context.Context) (*ipc.StatusData, error) {
	st := &ipc.StatusData{
		Backend:       d.backend,
		UptimeSeconds: int64(time.Since(d.startTime).Seconds()),
		DaemonRunning: true,
		Violations:    d.report.Count(),
	}
	for _, disp := range d.displays {
		ds := ipc.DisplayStatus{ID: disp.info.ID, Name: disp.info.Name}
		err := disp.ui.Sync(ctx, func() {
			drv := disp.driver
			ds.Gestures = drv.Played()
			ds.InFlight = drv.Current() != nil
			ds.Animation = drv.Manager().Status()
			ds.Launcher = drv.Host().Status()
		})
		if err != nil {
			return nil, fmt.Errorf("display %d: %w", disp.info.ID, err)
		}
		st.Displays = append(st.Displays, ds)
	}
	return st, nil
}

// Swipe implements ipc.Backend.
func (d *Daemon) Swipe(ctx context.Context, p ipc.SwipePayload) (*ipc.GestureResult, error) {
	script := Script{
		Steps:                p.Steps,
		Velocity:             classifier.Velocity{X: p.VelocityX, Y: p.VelocityY},
		Cancel:               p.Cancel,
		PauseMotion:          p.PauseMotion,
		CanSlowSwipeGoHome:   p.CanSlowSwipeGoHome,
		HorizontalSlopPassed: p.HorizontalSlop,
		Pages:                p.Pages,
		Fingers:              p.Fingers,
		LikelyToStartNewTask: p.LikelyNewTask,
		Hold:                 p.Hold,
	}
	return d.play(ctx, p.Display, script, p.Wait && !p.Hold)
}

// Overview implements ipc.Backend.
func (d *Daemon) Overview(ctx context.Context, p ipc.OverviewPayload) (*ipc.GestureResult, error) {
	return d.play(ctx, p.Display, Script{Atomic: true}, p.Wait)
}

// OpenOverview starts an atomic gesture on a display without waiting.
func (d *Daemon) OpenOverview(displayID int) error {
	disp, err := d.display(displayID)
	if err != nil {
		return err
	}
	disp.ui.Post(func() { disp.driver.Play(Script{Atomic: true}, nil) })
	return nil
}

func (d *Daemon) play(ctx context.Context, displayID int, script Script, wait bool) (*ipc.GestureResult, error) {
	disp, err := d.display(displayID)
	if err != nil {
		return nil, err
	}

	var (
		out    Outcome
		onDone func(Outcome)
		done   = make(chan Outcome, 1)
	)
	if wait {
		onDone = func(o Outcome) { done <- o }
	}
	if err := disp.ui.Sync(ctx, func() { out = disp.driver.Play(script, onDone) }); err != nil {
		return nil, err
	}
	if wait {
		select {
		case out = <-done:
		case <-ctx.Done():
			return nil, fmt.Errorf("gesture %d did not release: %w", out.GestureID, ctx.Err())
		}
	}
	return resultFromOutcome(out), nil
}

func resultFromOutcome(o Outcome) *ipc.GestureResult {
	res := &ipc.GestureResult{
		GestureID: o.GestureID,
		Display:   o.DisplayID,
		Continued: o.Continued,
		Released:  o.Released,
	}
	if o.Decision.Reason != "" {
		res.Decision = o.Decision.Target.String()
		res.Reason = string(o.Decision.Reason)
		res.Filter = string(o.Decision.Filter)
	}
	if o.Released {
		res.EndTarget = o.EndTarget.String()
	}
	return res
}

// Thresholds implements ipc.Backend.
func (d *Daemon) Thresholds() classifier.Thresholds {
	d.mu.RLock()
	defer d.mu.RUnlock()
	th, _, _ := Tuning(d.cfg)
	return th
}

// Reload implements ipc.Backend. It re-reads the config file and applies the
// tuning to subsequent gestures. Backend, logging, invariant and metrics
// changes need a restart.
func (d *Daemon) Reload(ctx context.Context) error {
	res, err := config.LoadFromPath(d.configPath)
	if err != nil {
		return err
	}
	return d.Apply(ctx, res.Config)
}

// Apply switches to cfg for subsequent gestures.
func (d *Daemon) Apply(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()

	d.watchdog.SetStaleAge(cfg.Watchdog.StaleAge.Std())

	th, features, animation := Tuning(cfg)
	for _, disp := range d.displays {
		err := disp.ui.Sync(ctx, func() { disp.driver.SetTuning(th, features, animation) })
		if err != nil {
			return fmt.Errorf("display %d: %w", disp.info.ID, err)
		}
	}
	d.logger.Info("config applied",
		"fling_threshold", th.FlingThreshold,
		"fling_speed", th.FlingSpeed,
		"live_tile", features.LiveTile)
	return nil
}
