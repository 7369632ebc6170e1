// Package config loads vidplay settings from defaults, an optional YAML file
// and VIDPLAY_* environment variables, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/user/vidplay/pkg/ports"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "VIDPLAY"

// ErrInvalid is wrapped by validation failures.
var ErrInvalid = errors.New("config: invalid value")

// Config represents the full configuration for vidplay.
type Config struct {
	LogLevel   string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	FFmpegPath string `yaml:"ffmpeg_path" envconfig:"FFMPEG_PATH"`

	// Decoded frame size; zero keeps the stream size.
	Width        int    `yaml:"width" envconfig:"WIDTH"`
	Height       int    `yaml:"height" envconfig:"HEIGHT"`
	ScaleQuality string `yaml:"scale_quality" envconfig:"SCALE_QUALITY"`

	// Playback
	StartPaused bool `yaml:"start_paused" envconfig:"START_PAUSED"`
	Loop        bool `yaml:"loop" envconfig:"LOOP"`

	// Surface
	Surface SurfaceConfig `yaml:"surface" envconfig:"SURFACE"`

	// Network
	HTTPTimeout time.Duration `yaml:"http_timeout" envconfig:"HTTP_TIMEOUT"`

	// Debug
	DebugDir      string `yaml:"debug_dir" envconfig:"DEBUG_DIR"`
	SnapshotEvery int    `yaml:"snapshot_every" envconfig:"SNAPSHOT_EVERY"`
	ReportPath    string `yaml:"report" envconfig:"REPORT"`
}

// SurfaceConfig configures the composed output.
type SurfaceConfig struct {
	Width         int    `yaml:"width" envconfig:"WIDTH"`
	Height        int    `yaml:"height" envconfig:"HEIGHT"`
	Background    string `yaml:"background" envconfig:"BACKGROUND"`
	StatusOverlay bool   `yaml:"status_overlay" envconfig:"STATUS_OVERLAY"`
	FontPath      string `yaml:"font_path" envconfig:"FONT_PATH"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		LogLevel:     "info",
		ScaleQuality: "balanced",
		Surface: SurfaceConfig{
			Width:         640,
			Height:        360,
			Background:    "#000000",
			StatusOverlay: true,
		},
		HTTPTimeout:   30 * time.Second,
		SnapshotEvery: 30,
	}
}

// Load builds the configuration. path may be empty to skip the file.
func Load(fs ports.FileSystem, path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := fs.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// decodeYAML merges data into cfg, rejecting unknown keys.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if _, ok := ports.ParseLogLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	switch c.ScaleQuality {
	case "fast", "balanced", "best":
	default:
		return fmt.Errorf("%w: scale_quality %q", ErrInvalid, c.ScaleQuality)
	}
	if c.Width < 0 || c.Height < 0 || (c.Width == 0) != (c.Height == 0) {
		return fmt.Errorf("%w: width and height must both be positive or both zero", ErrInvalid)
	}
	if c.Surface.Width < 0 || c.Surface.Height < 0 {
		return fmt.Errorf("%w: surface size", ErrInvalid)
	}
	if _, err := ParseColor(c.Surface.Background); err != nil {
		return fmt.Errorf("%w: surface.background: %w", ErrInvalid, err)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("%w: http_timeout", ErrInvalid)
	}
	if c.SnapshotEvery < 0 {
		return fmt.Errorf("%w: snapshot_every", ErrInvalid)
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() ports.LogLevel {
	level, _ := ports.ParseLogLevel(c.LogLevel)
	return level
}

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(hex string) (color.RGBA, error) {
	s := strings.TrimPrefix(hex, "#")
	if len(s) != 6 && len(s) != 8 {
		return color.RGBA{}, fmt.Errorf("color %q: want #rrggbb", hex)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q: %w", hex, err)
	}
	if len(s) == 6 {
		v = v<<8 | 0xff
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
