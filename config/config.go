// Package config loads the engine's TOML configuration and builds its logger
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Engine    EngineConfig    `toml:"engine"`
	Display   DisplayConfig   `toml:"display"`
	Audio     AudioConfig     `toml:"audio"`
	Resources ResourcesConfig `toml:"resources"`
	Scene     SceneConfig     `toml:"scene"`
	Logging   LoggingConfig   `toml:"logging"`
}

type EngineConfig struct {
	FrameInterval time.Duration `toml:"frame_interval"`
	SimStep       time.Duration `toml:"sim_step"`     // fixed simulation update length
	SignalDepth   int           `toml:"signal_depth"` // nested dispatch limit
}

// Fixed simulation step bounds
const (
	MinSimStep = time.Second / 120
	MaxSimStep = 5 * time.Second
)

type DisplayConfig struct {
	Overlay    bool     `toml:"overlay"` // status lines over the scene
	Background [3]uint8 `toml:"background"`
}

type AudioConfig struct {
	Enabled bool    `toml:"enabled"`
	Muted   bool    `toml:"muted"`
	Volume  float64 `toml:"volume"` // 0.0-1.0
}

type ResourcesConfig struct {
	AssetDir    string `toml:"asset_dir"`   // file-backed loaders read here; empty disables them
	Concurrency int    `toml:"concurrency"` // preload fan-out, 0 = unlimited
}

type SceneConfig struct {
	Path   string `toml:"path"`   // empty uses the embedded board scene
	Keymap string `toml:"keymap"` // empty uses the embedded keymap
}

type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // console or json
	File   string `toml:"file"`   // output path, "stderr", or empty to discard
}

// Load reads a config file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML config data over the defaults; unknown keys are rejected
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("unknown key %q", undec[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with
func (c *Config) Validate() error {
	switch {
	case c.Engine.FrameInterval <= 0:
		return fmt.Errorf("engine.frame_interval %v must be positive", c.Engine.FrameInterval)
	case c.Engine.SimStep < MinSimStep || c.Engine.SimStep > MaxSimStep:
		return fmt.Errorf("engine.sim_step %v outside %v-%v", c.Engine.SimStep, MinSimStep, MaxSimStep)
	case c.Engine.SignalDepth < 1:
		return fmt.Errorf("engine.signal_depth %d must be at least 1", c.Engine.SignalDepth)
	case c.Audio.Volume < 0 || c.Audio.Volume > 1:
		return fmt.Errorf("audio.volume %v outside 0-1", c.Audio.Volume)
	case c.Resources.Concurrency < 0:
		return fmt.Errorf("resources.concurrency %d is negative", c.Resources.Concurrency)
	case c.Logging.Format != "console" && c.Logging.Format != "json":
		return fmt.Errorf("logging.format %q: want console or json", c.Logging.Format)
	}
	return nil
}

func Defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			FrameInterval: time.Second / 30,
			SimStep:       20 * time.Millisecond,
			SignalDepth:   32,
		},
		Display: DisplayConfig{
			Overlay:    true,
			Background: [3]uint8{26, 27, 38},
		},
		Audio: AudioConfig{
			Enabled: true,
			Volume:  0.8,
		},
		Resources: ResourcesConfig{
			Concurrency: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
