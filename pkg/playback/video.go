// Package playback runs a video source on a background decode goroutine and
// exposes the latest frame to a presentation side through a single-slot
// buffer.
//
// A Video owns the decode goroutine and is the control surface: pause,
// resume, seek and position queries. A Player drives presentation from host
// refresh ticks and hands frames to a ports.Surface.
package playback

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/vidplay/pkg/adapters/logger"
	"github.com/user/vidplay/pkg/ports"
)

// videoID hands out process-wide identifiers. It starts at zero, is bumped
// once per Open and is never reset.
var videoID atomic.Uint64

// Stats are cumulative counters for one video.
type Stats struct {
	Published uint64 // Frames written into the slot
	Dropped   uint64 // Frames overwritten before presentation took them
	Decodes   uint64 // DecodeNext calls
	Seeks     uint64 // Successful seeks
}

// Option configures Open.
type Option func(*options)

type options struct {
	logger      ports.Logger
	startPaused bool
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l ports.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithStartPaused opens the video without decoding until Resume.
func WithStartPaused(paused bool) Option {
	return func(o *options) {
		o.startPaused = paused
	}
}

// Video is an opened video being decoded in the background.
type Video struct {
	id       uint64
	width    int
	height   int
	fps      float64
	duration time.Duration
	timeBase ports.Rational

	state  *sharedState
	source ports.VideoSource
	loop   *decodeLoop
	logger ports.Logger

	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

// Open starts decoding src on a new goroutine. Metadata is read once here.
// The returned Video owns src and closes it on Close.
func Open(src ports.VideoSource, conv ports.FrameConverter, opts ...Option) (*Video, error) {
	o := options{logger: logger.NewNoop()}
	for _, opt := range opts {
		opt(&o)
	}

	width, height := src.Size()
	fps := src.FrameRate()
	tb := src.TimeBase()
	if width <= 0 || height <= 0 || fps <= 0 || tb.Num <= 0 || tb.Den <= 0 {
		return nil, fmt.Errorf("%w: invalid stream metadata %dx%d at %.3f fps, time base %d/%d",
			ErrUnknown, width, height, fps, tb.Num, tb.Den)
	}

	v := &Video{
		id:       videoID.Add(1),
		width:    width,
		height:   height,
		fps:      fps,
		duration: src.Duration(),
		timeBase: tb,
		state:    newSharedState(o.startPaused),
		source:   src,
		logger:   o.logger.WithComponent("playback"),
	}
	v.loop = &decodeLoop{
		state:     v.state,
		source:    src,
		converter: conv,
		frameSize: width * height * 4,
		logger:    o.logger.WithComponent("decode"),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	v.logger.Debug("Opened video %d: %dx%d, %.3f fps, %s", v.id, width, height, fps, v.duration)
	go v.loop.run()
	return v, nil
}

// ID returns the process-wide identifier of this video.
func (v *Video) ID() uint64 { return v.id }

// Size returns the frame dimensions.
func (v *Video) Size() (width, height int) { return v.width, v.height }

// FrameRate returns the nominal frame rate.
func (v *Video) FrameRate() float64 { return v.fps }

// Duration returns the stream length, or 0 when unknown.
func (v *Video) Duration() time.Duration { return v.duration }

// TimeBase returns the unit of frame timestamps.
func (v *Video) TimeBase() ports.Rational { return v.timeBase }

// Pause stops decoding after any in-flight frame.
func (v *Video) Pause() { v.SetPaused(true) }

// Resume continues decoding. After end of stream or a decode error the video
// stays paused until a seek re-arms it.
func (v *Video) Resume() { v.SetPaused(false) }

// SetPaused sets the paused flag and wakes the decode loop. It never waits on
// the decoder. Clearing the flag has no effect while decoding is stopped by
// end of stream or an error.
func (v *Video) SetPaused(paused bool) {
	v.state.setPaused(paused)
}

// Toggle flips the paused flag.
func (v *Video) Toggle() {
	v.SetPaused(!v.state.isPaused())
}

// IsPaused reports the paused flag.
func (v *Video) IsPaused() bool {
	return v.state.isPaused()
}

// Position returns the timestamp of the last published frame. It advances
// only when a frame is published.
func (v *Video) Position() time.Duration {
	return v.timeBase.Duration(v.state.position())
}

// EOS reports whether the stream ended. It is cleared by a seek.
func (v *Video) EOS() bool {
	return v.state.latched().eos
}

// Err returns the error that stopped decoding, if any. It is cleared by a
// seek unless the video is poisoned.
func (v *Video) Err() error {
	return v.state.latched().err
}

// Stats returns a snapshot of the counters.
func (v *Video) Stats() Stats {
	return Stats{
		Published: v.state.published.Load(),
		Dropped:   v.state.dropped.Load(),
		Decodes:   v.state.decodes.Load(),
		Seeks:     v.state.seeks.Load(),
	}
}

// Seek moves the decoder to pos and blocks until the decoder acknowledges.
// The next published frame is the first one at or after pos. A successful
// seek also re-arms a loop stopped by end of stream or an error; decoding
// continues once the video is resumed.
func (v *Video) Seek(pos Position) error {
	if v.closed.Load() {
		return ErrClosed
	}

	var seek func() error
	if pos.IsTime() {
		ms, err := pos.millis()
		if err != nil {
			return err
		}
		seek = func() error { return v.source.Seek(ms) }
	} else {
		frame, err := pos.frameIndex()
		if err != nil {
			return err
		}
		seek = func() error { return v.source.SeekToFrame(frame) }
	}
	return v.seekWith(pos.String(), seek)
}

// Restart seeks to the first frame and resumes.
func (v *Video) Restart() error {
	if v.closed.Load() {
		return ErrClosed
	}
	if err := v.seekWith("start", v.source.SeekToStart); err != nil {
		return err
	}
	v.Resume()
	return nil
}

func (v *Video) seekWith(target string, seek func() error) error {
	v.state.decoderMu.Lock()
	defer v.state.decoderMu.Unlock()

	if v.state.poisoned.Load() {
		return ErrConcurrency
	}
	if v.closed.Load() {
		return ErrClosed
	}
	if err := seek(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSeek, target, err)
	}
	v.state.rearm()
	v.logger.Debug("Seeked video %d to %s", v.id, target)
	return nil
}

// Close stops the decode loop, waits for it and closes the source. Calls after
// the first return the first result.
func (v *Video) Close() error {
	v.closeOnce.Do(func() {
		v.closed.Store(true)
		close(v.loop.stop)
		<-v.loop.done

		v.state.decoderMu.Lock()
		defer v.state.decoderMu.Unlock()
		if err := v.source.Close(); err != nil {
			v.closeErr = fmt.Errorf("playback: close source: %w", err)
		}
		v.logger.Debug("Closed video %d", v.id)
	})
	return v.closeErr
}
