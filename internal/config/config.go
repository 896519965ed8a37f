// Package config handles YAML configuration parsing and live reload.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/button-sensor/internal/applog"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/logic"
)

// Config is the daemon configuration.
type Config struct {
	Name      string        `yaml:"name"`
	Chip      string        `yaml:"chip"`
	Pin       int           `yaml:"pin"`
	Poll      time.Duration `yaml:"poll"`
	Debounce  time.Duration `yaml:"debounce"`
	Hold      time.Duration `yaml:"hold"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id"`
	HTTPAddr  string        `yaml:"http"`
	LogLevel  string        `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Name:      "button",
		Chip:      gpio.DefaultChip,
		Pin:       gpio.DefaultPin,
		Poll:      10 * time.Millisecond,
		Debounce:  time.Duration(logic.DefaultDebounceMillis) * time.Millisecond,
		Hold:      time.Duration(logic.DefaultHoldMillis) * time.Millisecond,
		Heartbeat: 15 * time.Minute,
		Broker:    "tcp://192.168.1.200:1883",
		ClientID:  "button-sensor",
		HTTPAddr:  ":80",
		LogLevel:  "info",
	}
}

// Load reads path and overlays it on Default. Keys missing from the file
// keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges. A hold shorter than the debounce is allowed;
// the button then goes straight to held.
func (c Config) Validate() error {
	var errs []error

	if c.Poll <= 0 {
		errs = append(errs, errors.New("poll must be positive"))
	}
	if c.Debounce > 0 && c.Poll >= c.Debounce {
		errs = append(errs, fmt.Errorf("poll %v must be shorter than debounce %v", c.Poll, c.Debounce))
	}
	for _, d := range []struct {
		name string
		v    time.Duration
	}{{"debounce", c.Debounce}, {"hold", c.Hold}, {"heartbeat", c.Heartbeat}} {
		if d.v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", d.name))
		}
		if d.v.Milliseconds() > math.MaxUint32 {
			errs = append(errs, fmt.Errorf("%s %v exceeds the 32-bit millisecond range", d.name, d.v))
		}
	}
	if c.Pin < 0 {
		errs = append(errs, fmt.Errorf("pin %d must not be negative", c.Pin))
	}
	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Tunables returns the settings that can be applied without a restart.
func (c Config) Tunables() logic.Tunables {
	return logic.Tunables{
		DebounceMillis:  uint32(c.Debounce.Milliseconds()),
		HoldMillis:      uint32(c.Hold.Milliseconds()),
		HeartbeatMillis: uint32(c.Heartbeat.Milliseconds()),
	}
}

// Level returns the parsed log level, or Info if it does not parse.
func (c Config) Level() applog.Level {
	lvl, err := applog.ParseLevel(c.LogLevel)
	if err != nil {
		return applog.LevelInfo
	}
	return lvl
}
