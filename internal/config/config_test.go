package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.File != "" {
		t.Fatalf("expected no file, got %q", res.File)
	}
	if res.Config.Classifier.FlingThreshold != 1.0 {
		t.Fatalf("expected default fling threshold, got %v", res.Config.Classifier.FlingThreshold)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(writeConfig(t, "# empty"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Backend.Kind != BackendX11 {
		t.Fatalf("expected backend %q, got %q", BackendX11, res.Config.Backend.Kind)
	}
}

func TestLoadFromPath_OverridesAndDurations(t *testing.T) {
	path := writeConfig(t,
		"backend:",
		"  kind: sim",
		"  sim_tasks: [editor, browser]",
		"classifier:",
		"  fling_threshold: 0.8",
		"  fling_speed: 2",
		"features:",
		"  live_tile: true",
		"animation:",
		"  max_duration: 500ms",
	)
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Backend.Kind != BackendSim || len(cfg.Backend.SimTasks) != 2 {
		t.Fatalf("unexpected backend: %+v", cfg.Backend)
	}
	if cfg.Classifier.FlingThreshold != 0.8 || cfg.Classifier.FlingSpeed != 2 {
		t.Fatalf("unexpected classifier: %+v", cfg.Classifier)
	}
	if !cfg.Features.LiveTile {
		t.Fatalf("expected live_tile")
	}
	if cfg.Animation.MaxDuration.Std() != 500*time.Millisecond {
		t.Fatalf("expected 500ms, got %s", cfg.Animation.MaxDuration)
	}
	// Untouched siblings keep their defaults.
	if cfg.Animation.MinDuration.Std() != 120*time.Millisecond {
		t.Fatalf("expected default min_duration, got %s", cfg.Animation.MinDuration)
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	_, err := LoadFromPath(writeConfig(t, "classifier:", "  fling: 1"))
	if err == nil {
		t.Fatalf("expected unknown key error")
	}
	if !strings.Contains(err.Error(), "fling") {
		t.Fatalf("expected error to name the key, got %v", err)
	}
}

func TestLoadFromPath_BadDuration(t *testing.T) {
	_, err := LoadFromPath(writeConfig(t, "watchdog:", "  interval: soon"))
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Fatalf("expected invalid duration error, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasSourceContext(t *testing.T) {
	path := writeConfig(t,
		"classifier:",
		"  fling_threshold: 3",
		"  fling_speed: 1",
	)
	_, err := LoadFromPath(path)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Path != "classifier.fling_speed" {
		t.Fatalf("expected classifier.fling_speed, got %q", ve.Path)
	}
	if !strings.Contains(err.Error(), path+":3:") {
		t.Fatalf("expected file:line context, got %v", err)
	}
}

func TestLoadFromPath_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "logging:", "  level: warn")
	t.Setenv("QUICKSTEP_LOG_LEVEL", "debug")
	t.Setenv("QUICKSTEP_LIVE_TILE", "true")
	t.Setenv("QUICKSTEP_STALE_AGE", "30s")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Logging.Level != "debug" {
		t.Fatalf("expected env level, got %q", res.Config.Logging.Level)
	}
	if !res.Config.Features.LiveTile {
		t.Fatalf("expected live tile from env")
	}
	if res.Config.Watchdog.StaleAge.Std() != 30*time.Second {
		t.Fatalf("expected 30s stale age, got %s", res.Config.Watchdog.StaleAge)
	}
	if src := res.Sources["logging.level"]; src.Kind != SourceEnv || src.Name != "QUICKSTEP_LOG_LEVEL" {
		t.Fatalf("expected env source, got %+v", src)
	}
}

func TestLoadFromPath_BadEnvValue(t *testing.T) {
	t.Setenv("QUICKSTEP_FLING_SPEED", "fast")
	if _, err := LoadFromPath(""); err == nil {
		t.Fatalf("expected env parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"backend", func(c *Config) { c.Backend.Kind = "wayland" }, "backend.kind"},
		{"threshold", func(c *Config) { c.Classifier.FlingThreshold = 0 }, "classifier.fling_threshold"},
		{"max below min", func(c *Config) { c.Animation.MaxDuration = Duration(time.Millisecond) }, "animation.max_duration"},
		{"frame", func(c *Config) { c.Animation.Frame = 0 }, "animation.frame"},
		{"transition", func(c *Config) { c.Animation.TransitionLength = -1 }, "animation.transition_length"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"stale age", func(c *Config) { c.Watchdog.StaleAge = Duration(time.Millisecond) }, "watchdog.stale_age"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Path != tt.path {
				t.Fatalf("expected path %q, got %q", tt.path, ve.Path)
			}
		})
	}
}

func TestExplain(t *testing.T) {
	path := writeConfig(t, "metrics:", "  listen: 127.0.0.1:9464")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	value, src, err := Explain(res, "metrics.listen")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if value != "127.0.0.1:9464" || src.Kind != SourceFile || src.Line != 2 {
		t.Fatalf("unexpected explain result: %v %+v", value, src)
	}

	value, src, err = Explain(res, "animation.max_duration")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if value != "350ms" || src.Kind != SourceDefault {
		t.Fatalf("unexpected explain result: %v %+v", value, src)
	}

	if _, _, err := Explain(res, "animation.nope"); err == nil {
		t.Fatalf("expected unknown path error")
	}
}

func TestSaveRoundTrips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Features.DesktopWindowing = true
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !res.Config.Features.DesktopWindowing {
		t.Fatalf("expected desktop_windowing to survive save")
	}
}
