// Package orchestrator runs a playback session. It is the host side of the
// presentation adapter: a single event goroutine that delivers refresh ticks
// to a playback.Player, draws onto a surface and applies control commands.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/ideamans/go-l10n"

	"github.com/user/vidplay/pkg/adapters/logger"
	"github.com/user/vidplay/pkg/playback"
	"github.com/user/vidplay/pkg/ports"
)

// EventKind identifies messages published by the player.
type EventKind int

const (
	EventFrame EventKind = iota
	EventEndOfStream
	EventError
)

// Event is the message type the session's player publishes.
type Event struct {
	Kind EventKind
	Err  error
}

// StatusSurface is a surface that can draw a status line.
type StatusSurface interface {
	ports.Surface
	SetStatus(text string, progress float64)
}

// Config contains the session settings.
type Config struct {
	// Loop restarts the video at end of stream.
	Loop bool
	// ExitOnEnd ends the session at end of stream when not looping.
	ExitOnEnd bool
	// Status draws position and duration under the video.
	Status bool
	// MaxDuration ends the session after this much wall time; 0 means never.
	MaxDuration time.Duration
}

// Result summarizes a finished session.
type Result struct {
	Elapsed     time.Duration
	Position    time.Duration
	EndOfStream bool
	Ticks       uint64 // Frame notifications received
	Loops       int
	Err         error
}

// Orchestrator drives one video on one surface.
type Orchestrator struct {
	video    *playback.Video
	player   *playback.Player[Event]
	surface  StatusSurface
	logger   ports.Logger
	config   Config
	commands chan Command

	now     func() time.Time
	next    time.Time
	pending []Event
	result  Result
}

// New creates an orchestrator for video. The orchestrator does not close the
// video.
func New(video *playback.Video, surface StatusSurface, log ports.Logger, config Config) *Orchestrator {
	if log == nil {
		log = logger.NewNoop()
	}
	o := &Orchestrator{
		video:    video,
		surface:  surface,
		logger:   log.WithComponent("session"),
		config:   config,
		commands: make(chan Command, 8),
		now:      time.Now,
	}
	o.player = playback.NewPlayer[Event](video).
		OnNewFrame(Event{Kind: EventFrame}).
		OnEndOfStream(Event{Kind: EventEndOfStream}).
		OnError(func(err error) Event { return Event{Kind: EventError, Err: err} })
	return o
}

// Commands returns the channel the session reads control commands from.
func (o *Orchestrator) Commands() chan<- Command {
	return o.commands
}

// RequestRedraw implements ports.Shell.
func (o *Orchestrator) RequestRedraw(at time.Time) {
	o.next = at
}

// Publish implements ports.Shell.
func (o *Orchestrator) Publish(ev Event) {
	o.pending = append(o.pending, ev)
}

var _ ports.Shell[Event] = (*Orchestrator)(nil)

// Run presents the video until ctx is cancelled, a quit command arrives, the
// configured time runs out, or the stream ends with ExitOnEnd set. A decode
// error ends the session and is returned.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	start := o.now()
	finish := func(err error) (Result, error) {
		o.result.Elapsed = o.now().Sub(start)
		o.result.Position = o.video.Position()
		o.result.Err = err
		return o.result, err
	}

	var deadline <-chan time.Time
	if o.config.MaxDuration > 0 {
		t := time.NewTimer(o.config.MaxDuration)
		defer t.Stop()
		deadline = t.C
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("Interrupted, shutting down...")
			return finish(nil)

		case <-deadline:
			o.logger.Debug("Session time limit reached")
			return finish(nil)

		case cmd := <-o.commands:
			if cmd.Op == OpQuit {
				return finish(nil)
			}
			if err := o.apply(cmd); err != nil {
				o.logger.Warn("Command %s failed: %v", cmd, err)
			}

		case <-timer.C:
		}

		done, err := o.tick()
		if err != nil {
			return finish(err)
		}
		if done {
			return finish(nil)
		}

		timer.Stop()
		if !o.next.IsZero() {
			timer.Reset(o.next.Sub(o.now()))
		}
	}
}

// tick runs one update and draw, then handles what the player published.
func (o *Orchestrator) tick() (done bool, err error) {
	for {
		o.next = time.Time{}
		o.player.Update(o.now(), o)
		if o.config.Status {
			o.surface.SetStatus(o.status())
		}
		if err := o.player.Draw(o.surface); err != nil {
			return false, fmt.Errorf("draw: %w", err)
		}

		restarted := false
		events := o.pending
		o.pending = nil
		for _, ev := range events {
			switch ev.Kind {
			case EventFrame:
				o.result.Ticks++
			case EventError:
				return false, ev.Err
			case EventEndOfStream:
				o.result.EndOfStream = true
				if o.config.Loop {
					if err := o.video.Restart(); err != nil {
						return false, err
					}
					o.result.Loops++
					o.logger.Debug("Looping to start, pass %d", o.result.Loops+1)
					restarted = true
					continue
				}
				o.logger.Info("End of stream reached")
				if o.config.ExitOnEnd {
					return true, nil
				}
			}
		}
		// A restart resumes the video but the halted tick requested no
		// redraw, so tick again to restart the schedule.
		if !restarted {
			return false, nil
		}
	}
}

func (o *Orchestrator) apply(cmd Command) error {
	switch cmd.Op {
	case OpToggle:
		o.video.Toggle()
	case OpPause:
		o.video.Pause()
	case OpResume:
		o.video.Resume()
	case OpSeekTime:
		return o.video.Seek(playback.AtTime(cmd.Time))
	case OpSeekFrame:
		return o.video.Seek(playback.AtFrame(cmd.Frame))
	case OpRestart:
		return o.video.Restart()
	default:
		return fmt.Errorf("unknown command %d", cmd.Op)
	}
	return nil
}

func (o *Orchestrator) status() (string, float64) {
	pos := o.video.Position()
	dur := o.video.Duration()

	state := "Playing"
	switch {
	case o.video.Err() != nil:
		state = "Error"
	case o.video.EOS():
		state = "Ended"
	case o.video.IsPaused():
		state = "Paused"
	}

	text := l10n.F("%s %s / %s", l10n.T(state), FormatClock(pos), FormatClock(dur))
	progress := -1.0
	if dur > 0 {
		progress = float64(pos) / float64(dur)
	}
	return text, progress
}

// FormatClock renders d as m:ss.mmm.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%d:%02d.%03d", ms/60000, ms/1000%60, ms%1000)
}
