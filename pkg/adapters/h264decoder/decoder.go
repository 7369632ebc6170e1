// Package h264decoder decodes H.264 samples by streaming them through a
// long-running ffmpeg process.
//
// Samples go to ffmpeg's stdin as an Annex B elementary stream and pictures
// come back as raw yuv420p on stdout, so a decoder costs one process per seek
// rather than one per frame.
package h264decoder

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/user/vidplay/pkg/ports"
)

var (
	// ErrNotInitialized is returned when decoder methods are called before Configure.
	ErrNotInitialized = errors.New("h264decoder: decoder not initialized")

	// ErrDecodeFailed is returned when ffmpeg fails or stops producing pictures.
	ErrDecodeFailed = errors.New("h264decoder: decode failed")

	// ErrFFmpegNotFound is returned when ffmpeg is not found.
	ErrFFmpegNotFound = errors.New("h264decoder: ffmpeg not found in PATH")

	// ErrUnsupportedTrack is returned for tracks that are not H.264.
	ErrUnsupportedTrack = errors.New("h264decoder: unsupported track")
)

const (
	defaultMaxInFlight  = 16
	defaultStallTimeout = 5 * time.Second
)

// Option configures a Decoder.
type Option func(*Decoder)

// WithFFmpegPath uses the ffmpeg binary at path instead of searching for one.
func WithFFmpegPath(path string) Option {
	return func(d *Decoder) {
		d.ffmpegPath = path
	}
}

// WithStallTimeout bounds how long ReceiveFrame waits for ffmpeg.
func WithStallTimeout(timeout time.Duration) Option {
	return func(d *Decoder) {
		if timeout > 0 {
			d.stallTimeout = timeout
		}
	}
}

// child is a running decoder process.
type child struct {
	stdin  io.WriteCloser
	stdout io.Reader
	wait   func() error
	kill   func() error
}

type launcher func(track ports.TrackInfo) (child, error)

// Decoder implements ports.FrameDecoder for H.264 tracks.
type Decoder struct {
	ffmpegPath   string
	launch       launcher
	stallTimeout time.Duration
	maxInFlight  int

	track      ports.TrackInfo
	configured bool
	frameSize  int

	stream   *stream
	sent     int
	received int
	flushed  bool
}

// New creates a new H.264 decoder.
func New(opts ...Option) *Decoder {
	d := &Decoder{
		stallTimeout: defaultStallTimeout,
		maxInFlight:  defaultMaxInFlight,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Configure locates ffmpeg and prepares for track. The process itself starts
// with the first sample.
func (d *Decoder) Configure(track ports.TrackInfo) error {
	if track.Codec != "h264" {
		return fmt.Errorf("%w: codec %q", ErrUnsupportedTrack, track.Codec)
	}
	if track.Width <= 0 || track.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrUnsupportedTrack, track.Width, track.Height)
	}
	if d.launch == nil {
		path, err := FindFFmpeg(d.ffmpegPath)
		if err != nil {
			return err
		}
		d.launch = ffmpegLauncher(path)
	}

	d.stop()
	d.track = track
	d.frameSize = yuv420Size(track.Width, track.Height)
	d.configured = true
	d.resetCounters()
	return nil
}

// SendSample writes one access unit to ffmpeg. Keyframes carry the track's
// parameter sets so that decoding can begin at any of them.
func (d *Decoder) SendSample(sample ports.Sample) error {
	if !d.configured {
		return ErrNotInitialized
	}
	if d.flushed {
		return fmt.Errorf("%w: sample after flush", ErrDecodeFailed)
	}
	if d.stream == nil {
		c, err := d.launch(d.track)
		if err != nil {
			return fmt.Errorf("%w: start ffmpeg: %w", ErrDecodeFailed, err)
		}
		d.stream = newStream(c, d.frameSize)
	}

	var data []byte
	if sample.Keyframe {
		data = append(data, d.track.ParameterSets...)
	}
	data = append(data, avccToAnnexB(sample.Data)...)
	if len(data) == 0 {
		return nil
	}

	if _, err := d.stream.child.stdin.Write(data); err != nil {
		if serr := d.stream.failure(); serr != nil {
			return fmt.Errorf("%w: %w", ErrDecodeFailed, serr)
		}
		return fmt.Errorf("%w: write sample: %w", ErrDecodeFailed, err)
	}
	d.sent++
	return nil
}

// ReceiveFrame returns the next picture in presentation order. It waits for
// ffmpeg only when enough samples are queued that a picture is due, or after
// Flush.
func (d *Decoder) ReceiveFrame() (image.Image, error) {
	if !d.configured {
		return nil, ErrNotInitialized
	}
	if d.stream == nil {
		if d.flushed {
			return nil, ports.ErrEndOfStream
		}
		return nil, ports.ErrNeedInput
	}

	for {
		buf, done, err := d.stream.pop()
		if buf != nil {
			d.received++
			return d.picture(buf), nil
		}
		if done {
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
			}
			if !d.flushed {
				return nil, fmt.Errorf("%w: ffmpeg exited early", ErrDecodeFailed)
			}
			return nil, ports.ErrEndOfStream
		}
		if !d.flushed && d.sent-d.received < d.maxInFlight {
			return nil, ports.ErrNeedInput
		}

		select {
		case <-d.stream.notify:
		case <-time.After(d.stallTimeout):
			if !d.flushed {
				// ffmpeg skips samples it cannot decode. Count the oldest
				// outstanding one as lost so the window moves on.
				d.received++
				return nil, ports.ErrFrameDropped
			}
			return nil, fmt.Errorf("%w: ffmpeg stalled after flush", ErrDecodeFailed)
		}
	}
}

// Flush closes ffmpeg's input so it emits the pictures it still holds.
func (d *Decoder) Flush() error {
	if !d.configured {
		return ErrNotInitialized
	}
	if d.flushed {
		return nil
	}
	d.flushed = true
	if d.stream == nil {
		return nil
	}
	if err := d.stream.child.stdin.Close(); err != nil {
		return fmt.Errorf("%w: close ffmpeg input: %w", ErrDecodeFailed, err)
	}
	return nil
}

// Reset stops the running process. ffmpeg cannot drop its buffered state, so
// decoding after a seek starts a fresh one.
func (d *Decoder) Reset() error {
	if !d.configured {
		return ErrNotInitialized
	}
	d.stop()
	d.resetCounters()
	return nil
}

// Close releases decoder resources.
func (d *Decoder) Close() error {
	d.stop()
	d.configured = false
	return nil
}

func (d *Decoder) stop() {
	if d.stream != nil {
		d.stream.stop()
		d.stream = nil
	}
}

func (d *Decoder) resetCounters() {
	d.sent = 0
	d.received = 0
	d.flushed = false
}

// picture wraps a raw yuv420p frame without copying.
func (d *Decoder) picture(buf []byte) *image.YCbCr {
	w, h := d.track.Width, d.track.Height
	cw, ch := (w+1)/2, (h+1)/2
	ySize, cSize := w*h, cw*ch
	return &image.YCbCr{
		Y:              buf[:ySize],
		Cb:             buf[ySize : ySize+cSize],
		Cr:             buf[ySize+cSize : ySize+2*cSize],
		YStride:        w,
		CStride:        cw,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, w, h),
	}
}

func yuv420Size(w, h int) int {
	return w*h + 2*((w+1)/2)*((h+1)/2)
}

// stream collects pictures from a running child as they arrive.
type stream struct {
	child  child
	notify chan struct{}
	done   chan struct{}

	mu     sync.Mutex
	frames [][]byte
	ended  bool
	err    error
}

func newStream(c child, frameSize int) *stream {
	s := &stream{
		child:  c,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.read(frameSize)
	return s
}

func (s *stream) read(frameSize int) {
	defer close(s.done)
	for {
		buf := make([]byte, frameSize)
		_, err := io.ReadFull(s.child.stdout, buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			// Wait must follow the last read from stdout.
			if werr := s.child.wait(); werr != nil && err == nil {
				err = werr
			}
			s.mu.Lock()
			s.ended = true
			s.err = err
			s.mu.Unlock()
			s.signal()
			return
		}

		s.mu.Lock()
		s.frames = append(s.frames, buf)
		s.mu.Unlock()
		s.signal()
	}
}

func (s *stream) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// pop returns the oldest picture, or reports whether the child has ended.
func (s *stream) pop() (buf []byte, done bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) > 0 {
		buf = s.frames[0]
		s.frames[0] = nil
		s.frames = s.frames[1:]
		return buf, false, nil
	}
	return nil, s.ended, s.err
}

func (s *stream) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stream) stop() {
	s.child.stdin.Close()
	s.child.kill()
	<-s.done
}

// avccToAnnexB rewrites length-prefixed NAL units with start codes.
func avccToAnnexB(data []byte) []byte {
	var result []byte
	offset := 0

	for offset+4 <= len(data) {
		naluLen := int(data[offset])<<24 | int(data[offset+1])<<16 |
			int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4

		if offset+naluLen > len(data) {
			break
		}

		// Add Annex B start code
		result = append(result, 0, 0, 0, 1)
		result = append(result, data[offset:offset+naluLen]...)
		offset += naluLen
	}

	return result
}

var _ ports.FrameDecoder = (*Decoder)(nil)
