package config

import (
	"errors"
	"image/color"
	iofs "io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/vidplay/pkg/mocks"
	"github.com/user/vidplay/pkg/ports"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "balanced", cfg.ScaleQuality)
	assert.Equal(t, 640, cfg.Surface.Width)
	assert.Equal(t, 360, cfg.Surface.Height)
	assert.True(t, cfg.Surface.StatusOverlay)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, ports.LevelInfo, cfg.Level())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load(mocks.NewFileSystem(), "")
	require.NoError(t, err)
	assert.Equal(t, Defaults().Surface, cfg.Surface)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	fs := mocks.NewFileSystem()
	require.NoError(t, fs.WriteFile("vidplay.yaml", []byte(`
log_level: debug
width: 320
height: 180
scale_quality: best
loop: true
http_timeout: 5s
surface:
  background: "#102030"
  status_overlay: false
`)))

	cfg, err := Load(fs, "vidplay.yaml")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 180, cfg.Height)
	assert.Equal(t, "best", cfg.ScaleQuality)
	assert.True(t, cfg.Loop)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "#102030", cfg.Surface.Background)
	assert.False(t, cfg.Surface.StatusOverlay)
	// Keys missing from the file keep their defaults.
	assert.Equal(t, 640, cfg.Surface.Width)
	assert.Equal(t, 30, cfg.SnapshotEvery)
}

func TestLoad_EmptyFile(t *testing.T) {
	fs := mocks.NewFileSystem()
	require.NoError(t, fs.WriteFile("empty.yaml", nil))

	cfg, err := Load(fs, "empty.yaml")
	require.NoError(t, err)
	assert.Equal(t, Defaults().LogLevel, cfg.LogLevel)
}

func TestLoad_UnknownKey(t *testing.T) {
	fs := mocks.NewFileSystem()
	require.NoError(t, fs.WriteFile("bad.yaml", []byte("frame_rate: 30\n")))

	_, err := Load(fs, "bad.yaml")
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(mocks.NewFileSystem(), "missing.yaml")
	assert.ErrorIs(t, err, iofs.ErrNotExist)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	fs := mocks.NewFileSystem()
	require.NoError(t, fs.WriteFile("vidplay.yaml", []byte("log_level: debug\nloop: false\n")))

	t.Setenv("VIDPLAY_LOG_LEVEL", "warn")
	t.Setenv("VIDPLAY_LOOP", "true")
	t.Setenv("VIDPLAY_SURFACE_WIDTH", "1280")
	t.Setenv("VIDPLAY_HTTP_TIMEOUT", "250ms")

	cfg, err := Load(fs, "vidplay.yaml")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.Loop)
	assert.Equal(t, 1280, cfg.Surface.Width)
	assert.Equal(t, 250*time.Millisecond, cfg.HTTPTimeout)
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv("VIDPLAY_WIDTH", "wide")

	_, err := Load(mocks.NewFileSystem(), "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"scale quality", func(c *Config) { c.ScaleQuality = "ultra" }},
		{"width only", func(c *Config) { c.Width = 320 }},
		{"negative height", func(c *Config) { c.Width, c.Height = 320, -1 }},
		{"surface width", func(c *Config) { c.Surface.Width = -1 }},
		{"background", func(c *Config) { c.Surface.Background = "red" }},
		{"http timeout", func(c *Config) { c.HTTPTimeout = -time.Second }},
		{"snapshot every", func(c *Config) { c.SnapshotEvery = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#000000", color.RGBA{A: 255}, false},
		{"#ff8000", color.RGBA{R: 255, G: 128, A: 255}, false},
		{"102030", color.RGBA{R: 16, G: 32, B: 48, A: 255}, false},
		{"#11223344", color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x44}, false},
		{"#fff", color.RGBA{}, true},
		{"#gggggg", color.RGBA{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
