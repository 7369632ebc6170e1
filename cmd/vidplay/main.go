// Package main provides the CLI entry point for vidplay.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ideamans/go-l10n"

	"github.com/user/vidplay/pkg/adapters/filesink"
	"github.com/user/vidplay/pkg/adapters/ggrenderer"
	"github.com/user/vidplay/pkg/adapters/logger"
	"github.com/user/vidplay/pkg/adapters/mp4writer"
	"github.com/user/vidplay/pkg/adapters/nullsink"
	"github.com/user/vidplay/pkg/adapters/osfilesystem"
	"github.com/user/vidplay/pkg/adapters/smartencoder"
	"github.com/user/vidplay/pkg/adapters/smartsource"
	"github.com/user/vidplay/pkg/config"
	"github.com/user/vidplay/pkg/location"
	"github.com/user/vidplay/pkg/ports"
)

// CLI defines the command-line interface with subcommands.
type CLI struct {
	Globals

	Play    PlayCmd    `cmd:"" help:"Play a video onto an offscreen surface."`
	Probe   ProbeCmd   `cmd:"" help:"Show stream information."`
	Synth   SynthCmd   `cmd:"" help:"Write a synthetic test video."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Globals are flags shared by every command. Flags left unset keep the
// value from the config file or environment.
type Globals struct {
	Config     string  `short:"c" type:"path" help:"YAML configuration file."`
	LogLevel   *string `short:"l" help:"Log level (debug, info, warn, error)."`
	Quiet      bool    `short:"Q" help:"Suppress all log output."`
	FFmpegPath *string `name:"ffmpeg" help:"Path to the ffmpeg executable used for H.264."`
	Debug      bool    `short:"d" help:"Enable debug output."`
	DebugDir   *string `help:"Directory for debug output (default: ./debug)."`
}

// ProbeCmd defines the probe subcommand.
type ProbeCmd struct {
	Location string `arg:"" help:"Video file path or URL."`
	JSON     bool   `help:"Print JSON instead of text."`
}

// SynthCmd defines the synth subcommand.
type SynthCmd struct {
	Output   string  `short:"o" required:"" help:"Output MP4 file path."`
	Width    int     `short:"W" default:"320" help:"Frame width."`
	Height   int     `short:"H" default:"240" help:"Frame height."`
	FPS      float64 `default:"25" help:"Frame rate."`
	Frames   int     `short:"n" default:"100" help:"Number of frames."`
	Codec    string  `default:"jpeg" enum:"jpeg,png,h264,av1" help:"Video codec (jpeg, png, h264, av1)."`
	Fallback bool    `help:"Write JPEG samples when the codec's encoder is unavailable."`
	Quality  int     `short:"q" default:"85" help:"Encoding quality (1-100)."`
	Keyframe int     `default:"0" help:"Keyframe interval in frames (0 = every frame for image codecs, encoder default otherwise)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

var version = "dev"

func main() {
	cli := CLI{}

	ctx := kong.Parse(&cli,
		kong.Name("vidplay"),
		kong.Description(l10n.T("Decode and present MP4 video with a background decode loop.")),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// load resolves the configuration and creates the logger.
func (g *Globals) load() (config.Config, ports.Logger, error) {
	cfg, err := config.Load(osfilesystem.New(), g.Config)
	if err != nil {
		return cfg, nil, err
	}
	if g.LogLevel != nil {
		cfg.LogLevel = *g.LogLevel
	}
	if g.Quiet {
		cfg.LogLevel = "quiet"
	}
	if g.FFmpegPath != nil {
		cfg.FFmpegPath = *g.FFmpegPath
	}
	if g.DebugDir != nil {
		cfg.DebugDir = *g.DebugDir
	}
	if g.Debug && cfg.DebugDir == "" {
		cfg.DebugDir = "./debug"
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	var log ports.Logger
	if cfg.LogLevel == "quiet" {
		log = logger.NewNoop()
	} else {
		log = logger.NewConsole(cfg.Level())
	}
	return cfg, log, nil
}

// sink returns a file sink when debug output is enabled.
func sink(cfg config.Config, fs ports.FileSystem, r ports.Renderer) (ports.DebugSink, error) {
	if cfg.DebugDir == "" {
		return nullsink.New(), nil
	}
	if err := fs.MkdirAll(cfg.DebugDir); err != nil {
		return nil, fmt.Errorf("create debug directory: %w", err)
	}
	return filesink.New(cfg.DebugDir, fs, r), nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func sourceOptions(cfg config.Config, log ports.Logger) smartsource.Options {
	return smartsource.Options{
		FFmpegPath: cfg.FFmpegPath,
		Width:      cfg.Width,
		Height:     cfg.Height,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		Logger:     log,
	}
}

// Run executes the probe command.
func (cmd *ProbeCmd) Run(g *Globals) error {
	cfg, log, err := g.load()
	if err != nil {
		return err
	}
	loc, err := location.Parse(cmd.Location)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	p, err := smartsource.ProbeLocation(ctx, loc, sourceOptions(cfg, log))
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	fs := osfilesystem.New()
	debug, err := sink(cfg, fs, ggrenderer.New())
	if err != nil {
		return err
	}
	if debug.Enabled() {
		if err := debug.SaveProbeJSON(data); err != nil {
			log.Warn("Failed to write debug output: %s", err)
		}
	}

	if cmd.JSON {
		fmt.Println(string(data))
		return nil
	}

	backend := string(p.Backend)
	if backend == "" {
		backend = l10n.T("unavailable")
	}
	fmt.Println(l10n.F("Location:   %s", p.Location))
	fmt.Println(l10n.F("Codec:      %s (decoder: %s)", p.Codec, backend))
	fmt.Println(l10n.F("Size:       %dx%d", p.Width, p.Height))
	fmt.Println(l10n.F("Frame rate: %.3f fps", p.FrameRate))
	fmt.Println(l10n.F("Duration:   %s (%d samples, timescale %d)", p.Duration.Round(time.Millisecond), p.Samples, p.Timescale))
	return nil
}

// Run executes the synth command.
func (cmd *SynthCmd) Run(g *Globals) error {
	cfg, log, err := g.load()
	if err != nil {
		return err
	}

	codec, err := smartencoder.ParseCodec(cmd.Codec)
	if err != nil {
		return err
	}
	enc, info, err := smartencoder.New(codec, smartencoder.Options{
		FFmpegPath:    cfg.FFmpegPath,
		AllowFallback: cmd.Fallback,
		Logger:        log,
	})
	if err != nil {
		return err
	}
	log.Debug("Encoding %s via %s", info.Codec, info.Backend)

	data, err := mp4writer.Synthesize(enc, ggrenderer.New(), cmd.Width, cmd.Height, cmd.FPS, cmd.Frames,
		ports.EncoderOptions{Quality: cmd.Quality, KeyframeInterval: cmd.Keyframe})
	if err != nil {
		log.Error("Failed to encode video: %s", err)
		return err
	}
	if err := osfilesystem.New().WriteFile(cmd.Output, data); err != nil {
		log.Error("Failed to write output: %s", err)
		return err
	}
	log.Info("Wrote %d %s frames (%dx%d, %.3f fps) to %s", cmd.Frames, info.Codec, cmd.Width, cmd.Height, cmd.FPS, cmd.Output)
	return nil
}

// Run executes the version command.
func (cmd *VersionCmd) Run() error {
	fmt.Println(l10n.F("vidplay version %s", version))
	fmt.Println(l10n.F("H.264 via ffmpeg: decode %v, encode %v", smartsource.IsH264Available(""), smartencoder.IsH264Available("")))
	fmt.Println(l10n.F("AV1 via libaom: decode %v, encode %v", smartsource.IsAV1Available(), smartencoder.IsAV1Available()))
	return nil
}
