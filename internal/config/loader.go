package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
	SourceEnv     SourceKind = "env"
)

type Source struct {
	Kind   SourceKind
	Name   string // env variable for env sources
	File   string
	Line   int
	Column int
}

func (s Source) String() string {
	switch s.Kind {
	case SourceFile:
		return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
	case SourceEnv:
		return "$" + s.Name
	default:
		return "default"
	}
}

type LoadResult struct {
	Config  *Config
	Sources map[string]Source // YAML path -> last writer
	File    string            // empty when no file was found
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "QUICKSTEP"

func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "quickstep", "config.yaml"), nil
}

// Load reads the configuration from the standard location.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources loads config and records where each value came from.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath layers defaults, the YAML file at path (if it exists) and
// QUICKSTEP_* environment overrides, then validates the result.
func LoadFromPath(path string) (*LoadResult, error) {
	cfg := DefaultConfig()
	sources := map[string]Source{}
	res := &LoadResult{Config: cfg, Sources: sources}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("%s: failed to read: %w", path, err)
		default:
			var doc yaml.Node
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return nil, fmt.Errorf("%s: failed to parse yaml: %w", path, err)
			}
			if err := decodeStrictYAML(data, cfg); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			for k, v := range collectSources(&doc, path) {
				sources[k] = v
			}
			res.File = path
		}
	}

	if err := applyEnv(cfg, sources); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, attachSourceContext(err, sources)
	}
	return res, nil
}

// Env lists the environment overrides. Unset variables leave the value alone.
type Env struct {
	Backend          *string        `envconfig:"BACKEND"`
	Display          *string        `envconfig:"DISPLAY"`
	FlingThreshold   *float64       `envconfig:"FLING_THRESHOLD"`
	FlingSpeed       *float64       `envconfig:"FLING_SPEED"`
	LiveTile         *bool          `envconfig:"LIVE_TILE"`
	OverviewDisabled *bool          `envconfig:"OVERVIEW_DISABLED"`
	Strict           *bool          `envconfig:"STRICT"`
	LogLevel         *string        `envconfig:"LOG_LEVEL"`
	LogFormat        *string        `envconfig:"LOG_FORMAT"`
	StatsFile        *string        `envconfig:"STATS_FILE"`
	MetricsListen    *string        `envconfig:"METRICS_LISTEN"`
	StaleAge         *time.Duration `envconfig:"STALE_AGE"`
	OverviewHotkey   *string        `envconfig:"OVERVIEW_HOTKEY"`
}

func applyEnv(cfg *Config, sources map[string]Source) error {
	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("environment: %w", err)
	}

	set := func(path, name string) {
		sources[path] = Source{Kind: SourceEnv, Name: EnvPrefix + "_" + name}
	}
	if env.Backend != nil {
		cfg.Backend.Kind = BackendKind(*env.Backend)
		set("backend.kind", "BACKEND")
	}
	if env.Display != nil {
		cfg.Backend.Display = *env.Display
		set("backend.display", "DISPLAY")
	}
	if env.FlingThreshold != nil {
		cfg.Classifier.FlingThreshold = *env.FlingThreshold
		set("classifier.fling_threshold", "FLING_THRESHOLD")
	}
	if env.FlingSpeed != nil {
		cfg.Classifier.FlingSpeed = *env.FlingSpeed
		set("classifier.fling_speed", "FLING_SPEED")
	}
	if env.LiveTile != nil {
		cfg.Features.LiveTile = *env.LiveTile
		set("features.live_tile", "LIVE_TILE")
	}
	if env.OverviewDisabled != nil {
		cfg.Features.OverviewDisabled = *env.OverviewDisabled
		set("features.overview_disabled", "OVERVIEW_DISABLED")
	}
	if env.Strict != nil {
		cfg.Invariants.Strict = *env.Strict
		set("invariants.strict", "STRICT")
	}
	if env.LogLevel != nil {
		cfg.Logging.Level = *env.LogLevel
		set("logging.level", "LOG_LEVEL")
	}
	if env.LogFormat != nil {
		cfg.Logging.Format = *env.LogFormat
		set("logging.format", "LOG_FORMAT")
	}
	if env.StatsFile != nil {
		cfg.Logging.StatsFile = *env.StatsFile
		set("logging.stats_file", "STATS_FILE")
	}
	if env.MetricsListen != nil {
		cfg.Metrics.Listen = *env.MetricsListen
		set("metrics.listen", "METRICS_LISTEN")
	}
	if env.StaleAge != nil {
		cfg.Watchdog.StaleAge = Duration(*env.StaleAge)
		set("watchdog.stale_age", "STALE_AGE")
	}
	if env.OverviewHotkey != nil {
		cfg.Hotkeys.Overview = *env.OverviewHotkey
		set("hotkeys.overview", "OVERVIEW_HOTKEY")
	}
	return nil
}

func attachSourceContext(err error, sources map[string]Source) error {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	if src, ok := sources[ve.Path]; ok {
		ve.Source = src
	}
	return ve
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return nil
}

func collectSources(doc *yaml.Node, file string) map[string]Source {
	out := make(map[string]Source)
	if doc == nil {
		return out
	}
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	collectSourcesRec(node, file, "", out)
	return out
}

func collectSourcesRec(node *yaml.Node, file string, prefix string, out map[string]Source) {
	if node == nil || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		out[path] = Source{
			Kind:   SourceFile,
			File:   file,
			Line:   val.Line,
			Column: val.Column,
		}
		collectSourcesRec(val, file, path, out)
	}
}

// Save writes the configuration to path.
//
// Note: this marshals the effective config and will not preserve comments
// from the original YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// YAML renders the effective config.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
