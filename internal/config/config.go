// Package config loads the simulation settings from YAML and watches the
// file for edits.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every setting of a simulation run.
type Config struct {
	Seed int64 `yaml:"seed"`

	World WorldConfig `yaml:"world"`
	Sim   SimConfig   `yaml:"sim"`

	DBPath       string        `yaml:"db_path"`
	SaveInterval time.Duration `yaml:"save_interval"`
	ScriptDir    string        `yaml:"script_dir"`
	HTTPPort     int           `yaml:"http_port"`
	LogLevel     string        `yaml:"log_level"`
}

// WorldConfig sizes the generated map and its population.
type WorldConfig struct {
	Cols     int `yaml:"cols"`
	Rows     int `yaml:"rows"`
	Actors   int `yaml:"actors"`
	BandSize int `yaml:"band_size"`
	Routes   int `yaml:"routes"`
}

// SimConfig tunes the tick loop and the decision layer.
type SimConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	Speed        float64       `yaml:"speed"`
	EvalRate     uint8         `yaml:"eval_rate"`
	Gravity      int16         `yaml:"gravity"`
	PathJobs     int           `yaml:"path_jobs"` // Path requests answered per tick
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Seed: 42,
		World: WorldConfig{
			Cols:     64,
			Rows:     64,
			Actors:   24,
			BandSize: 4,
			Routes:   2,
		},
		Sim: SimConfig{
			TickInterval: 100 * time.Millisecond,
			Speed:        1,
			EvalRate:     10,
			Gravity:      2,
			PathJobs:     4,
		},
		DBPath:       "data/actorsim.db",
		SaveInterval: 5 * time.Minute,
		ScriptDir:    "scripts",
		HTTPPort:     8080,
		LogLevel:     "info",
	}
}

// Load reads path over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every setting that is out of range.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.World.Cols >= 4 && c.World.Cols <= 1024, "world.cols %d out of range 4-1024", c.World.Cols)
	check(c.World.Rows >= 4 && c.World.Rows <= 1024, "world.rows %d out of range 4-1024", c.World.Rows)
	check(c.World.Actors >= 0 && c.World.Actors <= 32, "world.actors %d out of range 0-32", c.World.Actors)
	check(c.World.BandSize >= 0 && c.World.BandSize <= 32, "world.band_size %d out of range 0-32", c.World.BandSize)
	check(c.World.Routes >= 0, "world.routes %d is negative", c.World.Routes)
	check(c.Sim.TickInterval > 0, "sim.tick_interval must be positive")
	check(c.Sim.Speed >= 0, "sim.speed %g is negative", c.Sim.Speed)
	check(c.Sim.EvalRate > 0, "sim.eval_rate must be positive")
	check(c.Sim.Gravity > 0, "sim.gravity %d must be positive", c.Sim.Gravity)
	check(c.Sim.PathJobs > 0, "sim.path_jobs must be positive")
	check(c.HTTPPort >= 0 && c.HTTPPort <= 65535, "http_port %d out of range", c.HTTPPort)
	check(c.SaveInterval >= 0, "save_interval is negative")
	_, err := ParseLevel(c.LogLevel)
	check(err == nil, "log_level %q unknown", c.LogLevel)
	return errors.Join(errs...)
}

// ParseLevel maps a log level name onto slog.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// Reloadable copies the settings that may change while running from
// next into c. Everything else needs a restart.
func (c Config) Reloadable(next Config) Config {
	c.Sim.Speed = next.Sim.Speed
	c.Sim.EvalRate = next.Sim.EvalRate
	c.LogLevel = next.LogLevel
	return c
}
