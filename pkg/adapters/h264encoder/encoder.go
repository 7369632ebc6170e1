// Package h264encoder encodes pictures to H.264 in an MP4 file by piping raw
// frames through an external ffmpeg process.
package h264encoder

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/user/vidplay/pkg/adapters/h264decoder"
	"github.com/user/vidplay/pkg/ports"
)

var (
	// ErrNotStarted is returned when frames arrive before Begin.
	ErrNotStarted = errors.New("h264encoder: encoder not started")
	// ErrNoFrames is returned by End when nothing was encoded.
	ErrNoFrames = errors.New("h264encoder: no frames to encode")
)

// ErrFFmpegNotFound is returned by Begin when no ffmpeg binary exists.
var ErrFFmpegNotFound = h264decoder.ErrFFmpegNotFound

// Encoder implements ports.VideoEncoder with ffmpeg and libx264. Output has
// a constant frame rate; frame timestamps only fix the order of pictures.
type Encoder struct {
	ffmpegPath string

	mu       sync.Mutex
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stderr   strings.Builder
	tempPath string
	width    int
	height   int
	frame    *image.RGBA
	frames   int
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithFFmpegPath uses the ffmpeg binary at path instead of searching for one.
func WithFFmpegPath(path string) Option {
	return func(e *Encoder) {
		e.ffmpegPath = path
	}
}

// New creates a new H.264 encoder.
func New(opts ...Option) *Encoder {
	e := &Encoder{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Available reports whether an ffmpeg binary can be found. custom may be
// empty to search the default locations.
func Available(custom string) bool {
	return h264decoder.IsAvailable(custom)
}

// Begin starts ffmpeg writing to a temporary file. The mp4 muxer needs a
// seekable output, so the file is read back by End.
func (e *Encoder) Begin(width, height int, fps float64, opts ports.EncoderOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if width <= 0 || height <= 0 || fps <= 0 {
		return fmt.Errorf("h264encoder: invalid format %dx%d at %.3f fps", width, height, fps)
	}
	if width%2 != 0 || height%2 != 0 {
		return fmt.Errorf("h264encoder: %dx%d is not divisible by 2", width, height)
	}
	path, err := h264decoder.FindFFmpeg(e.ffmpegPath)
	if err != nil {
		return err
	}
	e.abort()

	tmp, err := os.CreateTemp("", "vidplay-h264-*.mp4")
	if err != nil {
		return fmt.Errorf("h264encoder: create temp file: %w", err)
	}
	e.tempPath = tmp.Name()
	tmp.Close()

	e.stderr.Reset()
	cmd := exec.Command(path, ffmpegArgs(width, height, fps, opts, e.tempPath)...)
	cmd.Stderr = &e.stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		e.removeTemp()
		return fmt.Errorf("h264encoder: stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		e.removeTemp()
		return fmt.Errorf("h264encoder: start %s: %w", path, err)
	}

	e.cmd = cmd
	e.stdin = stdin
	e.width, e.height = width, height
	e.frame = image.NewRGBA(image.Rect(0, 0, width, height))
	e.frames = 0
	return nil
}

// ffmpegArgs builds the command line reading rgba pictures from stdin.
func ffmpegArgs(width, height int, fps float64, opts ports.EncoderOptions, output string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "pipe:0",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-crf", strconv.Itoa(crf(opts.Quality)),
	}
	if opts.KeyframeInterval > 0 {
		args = append(args,
			"-g", strconv.Itoa(opts.KeyframeInterval),
			"-keyint_min", strconv.Itoa(opts.KeyframeInterval))
	}
	return append(args, "-movflags", "+faststart", "-f", "mp4", output)
}

// crf maps quality 1-100 onto x264's constant rate factor 51-0. Other
// values give x264's default of 23.
func crf(quality int) int {
	if quality <= 0 || quality > 100 {
		return 23
	}
	return 51 - quality*51/100
}

// EncodeFrame writes img to ffmpeg.
func (e *Encoder) EncodeFrame(img image.Image, timestampMs int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stdin == nil {
		return ErrNotStarted
	}
	draw.Draw(e.frame, e.frame.Bounds(), img, img.Bounds().Min, draw.Src)
	if _, err := e.stdin.Write(e.frame.Pix); err != nil {
		// ffmpeg exited early; End reports why.
		return fmt.Errorf("h264encoder: write frame %d: %w", e.frames, err)
	}
	e.frames++
	return nil
}

// End waits for ffmpeg and returns the finished file.
func (e *Encoder) End() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stdin == nil {
		return nil, ErrNotStarted
	}
	if e.frames == 0 {
		e.abort()
		return nil, ErrNoFrames
	}

	e.stdin.Close()
	e.stdin = nil
	err := e.cmd.Wait()
	e.cmd = nil
	defer e.removeTemp()
	if err != nil {
		return nil, fmt.Errorf("h264encoder: %w", e.failure(err))
	}

	data, err := os.ReadFile(e.tempPath)
	if err != nil {
		return nil, fmt.Errorf("h264encoder: read output: %w", err)
	}
	return data, nil
}

// failure decorates err with what ffmpeg printed. Only valid after Wait.
func (e *Encoder) failure(err error) error {
	if msg := strings.TrimSpace(e.stderr.String()); msg != "" {
		return fmt.Errorf("ffmpeg: %w: %s", err, msg)
	}
	return fmt.Errorf("ffmpeg: %w", err)
}

// abort kills a running ffmpeg and discards its output.
func (e *Encoder) abort() {
	if e.stdin != nil {
		e.stdin.Close()
		e.stdin = nil
	}
	if e.cmd != nil {
		e.cmd.Process.Kill()
		e.cmd.Wait()
		e.cmd = nil
	}
	e.removeTemp()
}

func (e *Encoder) removeTemp() {
	if e.tempPath != "" {
		os.Remove(e.tempPath)
		e.tempPath = ""
	}
}

var _ ports.VideoEncoder = (*Encoder)(nil)
