// Package config provides configuration loading and access for the engine.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all engine configuration parameters.
type Config struct {
	Screen      ScreenConfig      `yaml:"screen"`
	Sim         SimConfig         `yaml:"sim"`
	Level       LevelConfig       `yaml:"level"`
	Visibility  VisibilityConfig  `yaml:"visibility"`
	Movement    MovementConfig    `yaml:"movement"`
	Pathfinding PathfindingConfig `yaml:"pathfinding"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Inspector   InspectorConfig   `yaml:"inspector"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// SimConfig holds frame loop timing.
type SimConfig struct {
	TickRate     float64 `yaml:"tick_rate"`      // Fixed updates per second
	MaxFrameTime float64 `yaml:"max_frame_time"` // Frame time cap in seconds (spiral-of-death guard)
}

// LevelConfig selects the level to load.
type LevelConfig struct {
	Path string `yaml:"path"` // Level YAML file (empty = embedded default level)
}

// VisibilityConfig holds raycasting and visibility sweep parameters.
type VisibilityConfig struct {
	BaseSamples     int     `yaml:"base_samples"`      // Uniform angles per sweep
	CornerDistance  float64 `yaml:"corner_distance"`   // Hit point jump that marks a corner (world units)
	AngleEpsilonDeg float64 `yaml:"angle_epsilon_deg"` // Smallest angular gap worth refining
	MaxDistance     float64 `yaml:"max_distance"`      // Ray range limit (world units)
	MaxSamples      int     `yaml:"max_samples"`       // Hard cap on casts per sweep
}

// MovementConfig holds movement resolution parameters.
type MovementConfig struct {
	HitThreshold   float64 `yaml:"hit_threshold"`   // Minimum look-ahead for sliding (world units)
	DefaultSpeed   float64 `yaml:"default_speed"`   // Units per second when a level entity has no speed
	ArriveDistance float64 `yaml:"arrive_distance"` // Waypoint reached radius
	FacingRange    float64 `yaml:"facing_range"`    // Reach of the target-in-front probe
}

// PathfindingConfig holds A* parameters.
type PathfindingConfig struct {
	AllowDiagonals    bool `yaml:"allow_diagonals"`
	FallbackToClosest bool `yaml:"fallback_to_closest"`
	MaxExpansions     int  `yaml:"max_expansions"` // Per-search node budget (0 = unlimited)
	Smooth            bool `yaml:"smooth"`         // Drop waypoints with line of sight past them
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`          // Seconds per stats window
	PerfCollectorWindow int     `yaml:"perf_collector_window"` // Ticks averaged by the perf collector
}

// InspectorConfig holds websocket inspector parameters.
type InspectorConfig struct {
	Addr   string `yaml:"addr"`   // Listen address (empty = disabled)
	Buffer int    `yaml:"buffer"` // Per-client snapshot queue length
	Every  int    `yaml:"every"`  // Publish a snapshot every N ticks
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT           float64 // Seconds per tick
	AngleEpsilon float64 // Visibility.AngleEpsilonDeg in radians
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Defaults returns a fresh copy of the embedded defaults.
func Defaults() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// validate rejects values the engine cannot run with.
func (c *Config) validate() error {
	switch {
	case c.Sim.TickRate <= 0:
		return fmt.Errorf("sim.tick_rate must be positive, got %v", c.Sim.TickRate)
	case c.Visibility.BaseSamples < 3:
		return fmt.Errorf("visibility.base_samples must be at least 3, got %d", c.Visibility.BaseSamples)
	case c.Visibility.MaxDistance <= 0:
		return fmt.Errorf("visibility.max_distance must be positive, got %v", c.Visibility.MaxDistance)
	case c.Movement.HitThreshold < 0:
		return fmt.Errorf("movement.hit_threshold must not be negative, got %v", c.Movement.HitThreshold)
	case c.Pathfinding.MaxExpansions < 0:
		return fmt.Errorf("pathfinding.max_expansions must not be negative, got %d", c.Pathfinding.MaxExpansions)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT = 1 / c.Sim.TickRate
	c.Derived.AngleEpsilon = c.Visibility.AngleEpsilonDeg * math.Pi / 180

	if c.Visibility.MaxSamples < c.Visibility.BaseSamples {
		c.Visibility.MaxSamples = c.Visibility.BaseSamples
	}
	if c.Telemetry.PerfCollectorWindow <= 0 {
		c.Telemetry.PerfCollectorWindow = 120
	}
	if c.Inspector.Buffer <= 0 {
		c.Inspector.Buffer = 8
	}
	if c.Inspector.Every <= 0 {
		c.Inspector.Every = 1
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
