// Package config loads the quickstep daemon configuration from YAML with
// QUICKSTEP_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as "120ms" in YAML.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalYAML writes the duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts "350ms" style strings.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", node.Line, node.Value)
	}
	*d = Duration(parsed)
	return nil
}

// BackendKind selects the compositor.
type BackendKind string

const (
	BackendX11 BackendKind = "x11"
	BackendSim BackendKind = "sim"
)

// Backend configures the compositor connection.
type Backend struct {
	Kind BackendKind `yaml:"kind"`
	// Display is the X display name; empty uses $DISPLAY.
	Display string `yaml:"display"`
	// SimTasks seeds the sim compositor with app tasks, front first.
	SimTasks []string `yaml:"sim_tasks,omitempty"`
}

// Classifier holds the release thresholds, in px/ms.
type Classifier struct {
	FlingThreshold float64 `yaml:"fling_threshold"`
	FlingSpeed     float64 `yaml:"fling_speed"`
}

// Features toggles optional gesture behavior.
type Features struct {
	OverviewDisabled bool `yaml:"overview_disabled"`
	DesktopWindowing bool `yaml:"desktop_windowing"`
	HorizontalSlop   bool `yaml:"horizontal_slop"`
	LiveTile         bool `yaml:"live_tile"`
}

// Animation bounds the window animation.
type Animation struct {
	MinDuration Duration `yaml:"min_duration"`
	MaxDuration Duration `yaml:"max_duration"`
	Frame       Duration `yaml:"frame"`
	// TransitionLength is the swipe distance in px that maps to a full shift.
	TransitionLength float64 `yaml:"transition_length"`
	// SettleDelay is how long an overview page scroll takes to settle.
	SettleDelay Duration `yaml:"settle_delay"`
}

// Invariants configures invariant reporting.
type Invariants struct {
	// Strict panics on a violation instead of logging it.
	Strict bool `yaml:"strict"`
}

// Logging configures the daemon log and the gesture stats log.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// StatsFile enables the gesture stats log when set.
	StatsFile      string `yaml:"stats_file"`
	StatsLevel     string `yaml:"stats_level"`
	StatsMaxSizeMB int    `yaml:"stats_max_size_mb"`
	StatsMaxFiles  int    `yaml:"stats_max_files"`
}

// Metrics configures the Prometheus listener.
type Metrics struct {
	// Listen is a host:port; empty disables the listener.
	Listen string `yaml:"listen"`
}

// Watchdog configures the stale session check.
type Watchdog struct {
	Interval Duration `yaml:"interval"`
	StaleAge Duration `yaml:"stale_age"`
}

// Hotkeys binds global keys.
type Hotkeys struct {
	// Overview opens overview as an atomic gesture. Empty disables it.
	Overview string `yaml:"overview"`
}

// Config is the effective daemon configuration.
type Config struct {
	Backend    Backend    `yaml:"backend"`
	Classifier Classifier `yaml:"classifier"`
	Features   Features   `yaml:"features"`
	Animation  Animation  `yaml:"animation"`
	Invariants Invariants `yaml:"invariants"`
	Logging    Logging    `yaml:"logging"`
	Metrics    Metrics    `yaml:"metrics"`
	Watchdog   Watchdog   `yaml:"watchdog"`
	Hotkeys    Hotkeys    `yaml:"hotkeys"`
}

func DefaultConfig() *Config {
	return &Config{
		Backend: Backend{Kind: BackendX11},
		Classifier: Classifier{
			FlingThreshold: 1.0,
			FlingSpeed:     1.5,
		},
		Animation: Animation{
			MinDuration:      Duration(120 * time.Millisecond),
			MaxDuration:      Duration(350 * time.Millisecond),
			Frame:            Duration(16 * time.Millisecond),
			TransitionLength: 600,
			SettleDelay:      Duration(80 * time.Millisecond),
		},
		Logging: Logging{
			Level:          "info",
			Format:         "text",
			StatsLevel:     "info",
			StatsMaxSizeMB: 10,
			StatsMaxFiles:  3,
		},
		Watchdog: Watchdog{
			Interval: Duration(time.Second),
			StaleAge: Duration(10 * time.Second),
		},
		Hotkeys: Hotkeys{Overview: "Mod4-Tab"},
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendX11, BackendSim:
	default:
		return &ValidationError{Path: "backend.kind", Err: fmt.Errorf("must be %q or %q, got %q", BackendX11, BackendSim, c.Backend.Kind)}
	}
	if c.Classifier.FlingThreshold <= 0 {
		return &ValidationError{Path: "classifier.fling_threshold", Err: fmt.Errorf("must be > 0")}
	}
	if c.Classifier.FlingSpeed < c.Classifier.FlingThreshold {
		return &ValidationError{Path: "classifier.fling_speed", Err: fmt.Errorf("must be >= fling_threshold (%g)", c.Classifier.FlingThreshold)}
	}

	a := c.Animation
	if a.MinDuration <= 0 {
		return &ValidationError{Path: "animation.min_duration", Err: fmt.Errorf("must be > 0")}
	}
	if a.MaxDuration < a.MinDuration {
		return &ValidationError{Path: "animation.max_duration", Err: fmt.Errorf("must be >= min_duration (%s)", a.MinDuration)}
	}
	if a.Frame <= 0 || a.Frame > a.MinDuration {
		return &ValidationError{Path: "animation.frame", Err: fmt.Errorf("must be in (0, min_duration]")}
	}
	if a.TransitionLength <= 0 {
		return &ValidationError{Path: "animation.transition_length", Err: fmt.Errorf("must be > 0")}
	}
	if a.SettleDelay < 0 {
		return &ValidationError{Path: "animation.settle_delay", Err: fmt.Errorf("must be >= 0")}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("unknown level %q", c.Logging.Level)}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return &ValidationError{Path: "logging.format", Err: fmt.Errorf("must be text or json, got %q", c.Logging.Format)}
	}
	if c.Logging.StatsMaxSizeMB < 0 || c.Logging.StatsMaxFiles < 0 {
		return &ValidationError{Path: "logging", Err: fmt.Errorf("stats rotation limits must be >= 0")}
	}

	if c.Watchdog.Interval <= 0 {
		return &ValidationError{Path: "watchdog.interval", Err: fmt.Errorf("must be > 0")}
	}
	if c.Watchdog.StaleAge < c.Watchdog.Interval {
		return &ValidationError{Path: "watchdog.stale_age", Err: fmt.Errorf("must be >= interval (%s)", c.Watchdog.Interval)}
	}
	return nil
}

// StatsLogPath returns the stats log path with ~ expanded.
func (c *Config) StatsLogPath() string {
	p := c.Logging.StatsFile
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

// ValidationError points at the config path that failed validation.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Source.Kind == SourceEnv {
		return fmt.Sprintf("%s (from %s): %v", e.Path, e.Source.Name, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
