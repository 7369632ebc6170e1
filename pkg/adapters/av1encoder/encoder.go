// Package av1encoder encodes pictures to AV1 and writes them as a fragmented
// MP4 file.
//
// The libaom backend is compiled with the "aom" build tag and requires the
// aom development package (pkg-config aom). Without the tag Begin fails with
// ErrNotAvailable.
package av1encoder

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/user/vidplay/pkg/ports"
)

// Timescale is the media timescale of written tracks: one tick per millisecond.
const Timescale = 1000

var (
	// ErrNotAvailable is returned when the binary was built without libaom.
	ErrNotAvailable = errors.New("av1encoder: libaom support not compiled in (build with -tags aom)")
	// ErrNotStarted is returned when frames arrive before Begin.
	ErrNotStarted = errors.New("av1encoder: encoder not started")
	// ErrNoFrames is returned by End when nothing was encoded.
	ErrNoFrames = errors.New("av1encoder: no frames to encode")
)

// packet is one temporal unit produced by the codec.
type packet struct {
	data     []byte
	ptsMs    int64
	keyframe bool
}

// backend is the codec library binding.
type backend interface {
	init(width, height int, fps float64, opts ports.EncoderOptions) error
	encode(img *image.YCbCr, ptsMs int64, durMs int64, forceKeyframe bool) ([]packet, error)
	flush() ([]packet, error)
	close()
}

// Encoder implements ports.VideoEncoder for AV1.
type Encoder struct {
	mu         sync.Mutex
	newBackend func() backend

	backend backend
	width   int
	height  int
	fps     float64
	packets []packet
	frames  int
}

// New creates a new AV1 encoder.
func New() *Encoder {
	return &Encoder{newBackend: newBackend}
}

// Available reports whether the binary was built with libaom.
func Available() bool {
	return libaomLinked
}

// Begin initializes the encoder.
func (e *Encoder) Begin(width, height int, fps float64, opts ports.EncoderOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if width <= 0 || height <= 0 || fps <= 0 {
		return fmt.Errorf("av1encoder: invalid format %dx%d at %.3f fps", width, height, fps)
	}
	if e.backend != nil {
		e.backend.close()
	}

	b := e.newBackend()
	if err := b.init(width, height, fps, opts); err != nil {
		return err
	}
	e.backend = b
	e.width, e.height, e.fps = width, height, fps
	e.packets = nil
	e.frames = 0
	return nil
}

// EncodeFrame encodes img shown at timestampMs.
func (e *Encoder) EncodeFrame(img image.Image, timestampMs int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend == nil {
		return ErrNotStarted
	}
	dur := int64(float64(Timescale)/e.fps + 0.5)
	pkts, err := e.backend.encode(toYCbCr(img, e.width, e.height), int64(timestampMs), max(dur, 1), e.frames == 0)
	if err != nil {
		return fmt.Errorf("av1encoder: encode frame %d: %w", e.frames, err)
	}
	e.packets = append(e.packets, pkts...)
	e.frames++
	return nil
}

// End drains the codec and returns the finished file.
func (e *Encoder) End() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend == nil {
		return nil, ErrNotStarted
	}
	pkts, err := e.backend.flush()
	e.backend.close()
	e.backend = nil
	if err != nil {
		return nil, fmt.Errorf("av1encoder: flush: %w", err)
	}
	e.packets = append(e.packets, pkts...)
	return buildMP4(e.width, e.height, e.fps, e.packets)
}

// toYCbCr converts img to 8-bit 4:2:0 at width x height. Chroma is taken
// from the top-left pixel of each 2x2 block.
func toYCbCr(img image.Image, width, height int) *image.YCbCr {
	if ycc, ok := img.(*image.YCbCr); ok && ycc.SubsampleRatio == image.YCbCrSubsampleRatio420 &&
		ycc.Rect == image.Rect(0, 0, width, height) {
		return ycc
	}

	out := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	b := img.Bounds()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			yy, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			out.Y[y*out.YStride+x] = yy
			if x%2 == 0 && y%2 == 0 {
				ci := out.COffset(x, y)
				out.Cb[ci] = cb
				out.Cr[ci] = cr
			}
		}
	}
	return out
}

var _ ports.VideoEncoder = (*Encoder)(nil)
