package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultWidth   = 1920
	defaultHeight  = 1080
	defaultBinary  = "ffmpeg"
	defaultPreset  = "medium"
	defaultCRF     = 23
	defaultLogMode = "info"
)

// Output contains render target configuration.
type Output struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
	// FPS overrides the clip's frame rate when positive.
	FPS int `toml:"fps"`
}

// Encoder contains configuration for the external ffmpeg process.
type Encoder struct {
	Binary  string `toml:"binary"`
	Preset  string `toml:"preset"`
	CRF     int    `toml:"crf"`
	Verbose bool   `toml:"verbose"`
}

// Logging contains log output configuration.
type Logging struct {
	Level string `toml:"level"`
}

// Config is the exporter's TOML configuration.
type Config struct {
	Output  Output  `toml:"output"`
	Encoder Encoder `toml:"encoder"`
	Logging Logging `toml:"logging"`
}

// defaultConfig returns a Config populated with repository defaults.
func defaultConfig() Config {
	return Config{
		Output: Output{
			Width:  defaultWidth,
			Height: defaultHeight,
		},
		Encoder: Encoder{
			Binary: defaultBinary,
			Preset: defaultPreset,
			CRF:    defaultCRF,
		},
		Logging: Logging{
			Level: defaultLogMode,
		},
	}
}

// loadConfig reads the TOML file at path over the defaults. A missing
// file is only an error when the path was given explicitly.
func loadConfig(path string, explicit bool) (Config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Output.Width <= 0 || c.Output.Height <= 0 {
		return fmt.Errorf("output resolution %dx%d is not positive", c.Output.Width, c.Output.Height)
	}
	if c.Output.FPS < 0 {
		return fmt.Errorf("output fps %d is negative", c.Output.FPS)
	}
	if c.Encoder.CRF < 0 || c.Encoder.CRF > 51 {
		return fmt.Errorf("encoder crf %d outside 0..51", c.Encoder.CRF)
	}
	if c.Encoder.Binary == "" {
		return fmt.Errorf("encoder binary is empty")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}
