// Package config loads engine settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root of the YAML configuration file.
type Config struct {
	Engine Engine `yaml:"engine"`
	Log    Log    `yaml:"log"`

	// Script is an optional binary script loaded before the first tick.
	Script string `yaml:"script"`
	// Record is an optional path the message log is written to.
	Record string `yaml:"record"`
}

// Engine holds tick and registry settings.
type Engine struct {
	TickRate      int    `yaml:"tick_rate"`
	MaxTicks      int64  `yaml:"max_ticks"`
	EntityIdStart uint32 `yaml:"entity_id_start"`
	EntityIdMax   uint32 `yaml:"entity_id_max"`
	DispatchLimit int    `yaml:"dispatch_limit"`
}

// Log holds logger settings.
type Log struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Engine: Engine{
			TickRate:      60,
			EntityIdStart: 1,
			EntityIdMax:   ^uint32(0),
		},
		Log: Log{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Load reads and validates the configuration file at path. Keys missing from
// the file keep their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a YAML configuration over the defaults and validates it.
// Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MaxTickRate is the highest tick rate a ticker can be driven at: one tick
// per nanosecond.
const MaxTickRate = int(time.Second)

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.Engine.TickRate <= 0:
		return fmt.Errorf("%w: engine.tick_rate must be positive, got %d", ErrInvalidConfig, c.Engine.TickRate)
	case c.Engine.TickRate > MaxTickRate:
		return fmt.Errorf("%w: engine.tick_rate must not exceed %d, got %d", ErrInvalidConfig, MaxTickRate, c.Engine.TickRate)
	case c.Engine.MaxTicks < 0:
		return fmt.Errorf("%w: engine.max_ticks must not be negative, got %d", ErrInvalidConfig, c.Engine.MaxTicks)
	case c.Engine.EntityIdStart == 0:
		return fmt.Errorf("%w: engine.entity_id_start must be at least 1", ErrInvalidConfig)
	case c.Engine.EntityIdMax <= c.Engine.EntityIdStart:
		return fmt.Errorf("%w: engine.entity_id_max (%d) must exceed entity_id_start (%d)",
			ErrInvalidConfig, c.Engine.EntityIdMax, c.Engine.EntityIdStart)
	case c.Engine.DispatchLimit < 0:
		return fmt.Errorf("%w: engine.dispatch_limit must not be negative, got %d", ErrInvalidConfig, c.Engine.DispatchLimit)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	switch c.Log.Encoding {
	case "console", "json":
	default:
		return fmt.Errorf("%w: unknown log.encoding %q", ErrInvalidConfig, c.Log.Encoding)
	}
	return nil
}
