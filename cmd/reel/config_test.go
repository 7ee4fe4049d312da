package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Output.Width != 1920 || cfg.Output.Height != 1080 {
		t.Errorf("default resolution = %dx%d", cfg.Output.Width, cfg.Output.Height)
	}
	if cfg.Encoder.Binary != "ffmpeg" {
		t.Errorf("default binary = %q", cfg.Encoder.Binary)
	}
}

func TestLoadConfigMissingOptional(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"), false)
	if err != nil {
		t.Fatalf("missing optional config must fall back to defaults: %v", err)
	}
	if cfg.Output.Width != 1920 {
		t.Errorf("width = %d, want default", cfg.Output.Width)
	}
}

func TestLoadConfigMissingExplicit(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"), true); err == nil {
		t.Error("explicit missing config must error")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reel.toml")
	body := `
[output]
width = 640
height = 360
fps = 24

[encoder]
preset = "veryfast"
crf = 30

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path, true)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Output.Width != 640 || cfg.Output.Height != 360 || cfg.Output.FPS != 24 {
		t.Errorf("output = %+v", cfg.Output)
	}
	if cfg.Encoder.Preset != "veryfast" || cfg.Encoder.CRF != 30 {
		t.Errorf("encoder = %+v", cfg.Encoder)
	}
	// Unset keys keep their defaults.
	if cfg.Encoder.Binary != "ffmpeg" {
		t.Errorf("binary = %q, want default", cfg.Encoder.Binary)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Output.Width = 0 }},
		{"negative fps", func(c *Config) { c.Output.FPS = -1 }},
		{"crf too high", func(c *Config) { c.Encoder.CRF = 99 }},
		{"empty binary", func(c *Config) { c.Encoder.Binary = "" }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			if err := cfg.validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
