package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/ideamans/go-l10n"
	"golang.org/x/sync/errgroup"

	"github.com/user/vidplay/pkg/adapters/ggrenderer"
	"github.com/user/vidplay/pkg/adapters/osfilesystem"
	"github.com/user/vidplay/pkg/adapters/rgbaconv"
	"github.com/user/vidplay/pkg/adapters/smartsource"
	"github.com/user/vidplay/pkg/adapters/texturesurface"
	"github.com/user/vidplay/pkg/config"
	"github.com/user/vidplay/pkg/location"
	"github.com/user/vidplay/pkg/orchestrator"
	"github.com/user/vidplay/pkg/playback"
	"github.com/user/vidplay/pkg/ports"
	"github.com/user/vidplay/pkg/report"
)

// PlayCmd defines the play subcommand.
type PlayCmd struct {
	Location string `arg:"" help:"Video file path or URL."`

	// Decoding
	Width   *int    `short:"W" help:"Decoded frame width (default: stream width)."`
	Height  *int    `short:"H" help:"Decoded frame height (default: stream height)."`
	Scaling *string `help:"Scaling quality (fast, balanced, best)."`

	// Playback
	Paused bool          `help:"Start paused."`
	Loop   bool          `help:"Restart at end of stream."`
	Start  time.Duration `help:"Seek to this position before playing."`
	For    time.Duration `help:"Stop after this much wall time (0 = until the end)."`
	Hold   bool          `help:"Keep the session open at end of stream."`
	NoTTY  bool          `name:"no-stdin" help:"Do not read commands from standard input."`

	// Output
	Snapshot string `help:"Save the last composed frame as PNG."`
	Report   string `help:"Write a session report (Markdown) to this path."`
}

// Run executes the play command.
func (cmd *PlayCmd) Run(g *Globals) error {
	cfg, log, err := g.load()
	if err != nil {
		return err
	}
	cmd.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	loc, err := location.Parse(cmd.Location)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	fs := osfilesystem.New()
	renderer := ggrenderer.New()
	debug, err := sink(cfg, fs, renderer)
	if err != nil {
		return err
	}

	src, info, err := smartsource.Open(ctx, loc, sourceOptions(cfg, log))
	if err != nil {
		return err
	}
	quality, err := rgbaconv.ParseQuality(cfg.ScaleQuality)
	if err != nil {
		src.Close()
		return err
	}
	width, height := src.Size()
	video, err := playback.Open(src, rgbaconv.New(width, height, quality),
		playback.WithLogger(log),
		playback.WithStartPaused(cfg.StartPaused || cmd.Start > 0))
	if err != nil {
		src.Close()
		return err
	}
	if cmd.Start > 0 {
		if err := video.Seek(playback.AtTime(cmd.Start)); err != nil {
			video.Close()
			return err
		}
		video.SetPaused(cfg.StartPaused)
	}

	log.Info("Playing %s: %s via %s, %dx%d, %.3f fps, %s",
		loc, info.Codec, info.Backend, width, height, video.FrameRate(), orchestrator.FormatClock(video.Duration()))

	bg, err := config.ParseColor(cfg.Surface.Background)
	if err != nil {
		video.Close()
		return err
	}
	surface := texturesurface.New(renderer, texturesurface.Options{
		Width:         cfg.Surface.Width,
		Height:        cfg.Surface.Height,
		Background:    bg,
		FontPath:      cfg.Surface.FontPath,
		Sink:          debug,
		SnapshotEvery: cfg.SnapshotEvery,
	})
	defer surface.Release(video.ID())

	session := orchestrator.New(video, surface, log, orchestrator.Config{
		Loop:        cfg.Loop,
		ExitOnEnd:   !cmd.Hold,
		Status:      cfg.Surface.StatusOverlay,
		MaxDuration: cmd.For,
	})

	var res orchestrator.Result
	group, gctx := errgroup.WithContext(ctx)
	sessionCtx, endSession := context.WithCancel(gctx)
	group.Go(func() error {
		defer endSession()
		var err error
		res, err = session.Run(sessionCtx)
		return err
	})
	if !cmd.NoTTY {
		group.Go(func() error {
			return readCommands(sessionCtx, os.Stdin, session.Commands(), log)
		})
	}
	runErr := group.Wait()

	rep := buildReport(loc.String(), info, video, surface.Stats(), res)
	formatter := report.NewMarkdownFormatter(report.WithTranslator(l10n.T), report.WithVersion(version))
	if cfg.ReportPath != "" {
		if err := report.NewWriter(formatter, fs).Write(cfg.ReportPath, rep); err != nil {
			log.Warn("Failed to write report: %s", err)
		} else {
			log.Info("Report saved to %s", cfg.ReportPath)
		}
	}
	if debug.Enabled() {
		if err := debug.SaveReport([]byte(formatter.Format(rep))); err != nil {
			log.Warn("Failed to write debug output: %s", err)
		}
	}
	if cmd.Snapshot != "" {
		if err := saveSnapshot(fs, renderer, surface, cmd.Snapshot); err != nil {
			log.Warn("Failed to save snapshot: %s", err)
		} else {
			log.Info("Snapshot saved to %s", cmd.Snapshot)
		}
	}

	return errors.Join(runErr, video.Close())
}

// apply copies flags that were set onto cfg.
func (cmd *PlayCmd) apply(cfg *config.Config) {
	if cmd.Width != nil {
		cfg.Width = *cmd.Width
	}
	if cmd.Height != nil {
		cfg.Height = *cmd.Height
	}
	if cmd.Scaling != nil {
		cfg.ScaleQuality = *cmd.Scaling
	}
	if cmd.Paused {
		cfg.StartPaused = true
	}
	if cmd.Loop {
		cfg.Loop = true
	}
	if cmd.Report != "" {
		cfg.ReportPath = cmd.Report
	}
}

// readCommands forwards parsed lines from r to out until ctx ends or r is
// exhausted. Bad lines are logged and skipped.
func readCommands(ctx context.Context, r io.Reader, out chan<- orchestrator.Command, log ports.Logger) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			c, err := orchestrator.ParseCommand(line)
			if err != nil {
				log.Warn("Ignoring input: %v", err)
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return nil
			}
			if c.Op == orchestrator.OpQuit {
				return nil
			}
		}
	}
}

func buildReport(loc string, info smartsource.Info, video *playback.Video, ss texturesurface.Stats, res orchestrator.Result) *report.Report {
	width, height := video.Size()
	vs := video.Stats()
	return report.NewBuilder().
		WithSource(loc, string(info.Codec), string(info.Backend)).
		WithStream(width, height, video.FrameRate(), video.Duration()).
		WithSession(res.Elapsed, res.Position, res.EndOfStream, res.Err).
		WithCounters(report.Counters{
			Published: vs.Published,
			Dropped:   vs.Dropped,
			Decodes:   vs.Decodes,
			Seeks:     vs.Seeks,
			Draws:     ss.Draws,
			Uploads:   ss.Uploads,
			Snapshots: ss.Snapshots,
		}).
		Build()
}

func saveSnapshot(fs ports.FileSystem, r ports.Renderer, s *texturesurface.Surface, path string) error {
	img := s.Frame()
	if img == nil {
		return errors.New("no frame was drawn")
	}
	data, err := r.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return err
	}
	return fs.WriteFile(path, data)
}
