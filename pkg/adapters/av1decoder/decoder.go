// Package av1decoder decodes AV1 samples into planar YCbCr pictures.
//
// The libaom backend is compiled with the "aom" build tag and requires the
// aom development package (pkg-config aom). Without the tag every decoder
// fails with ErrNotAvailable.
package av1decoder

import (
	"errors"
	"image"

	"github.com/user/vidplay/pkg/ports"
)

var (
	// ErrNotAvailable is returned when the binary was built without libaom.
	ErrNotAvailable = errors.New("av1decoder: libaom support not compiled in (build with -tags aom)")
	// ErrNotConfigured is returned when samples arrive before Configure.
	ErrNotConfigured = errors.New("av1decoder: decoder not configured")
	// ErrUnsupportedFormat is returned for pictures that are not 8-bit 4:2:0.
	ErrUnsupportedFormat = errors.New("av1decoder: unsupported picture format")
)

// Decoder is a ports.FrameDecoder for AV1 tracks.
type Decoder struct {
	backend backend
	out     []image.Image
	flushed bool
}

// backend is the codec library binding.
type backend interface {
	init() error
	decode(data []byte) ([]image.Image, error)
	flush() ([]image.Image, error)
	close()
}

// Available reports whether the binary was built with libaom.
func Available() bool {
	return libaomLinked
}

// New creates a decoder. Configure must be called before use.
func New() *Decoder {
	return &Decoder{}
}

// Configure initializes the codec library for the track.
func (d *Decoder) Configure(track ports.TrackInfo) error {
	if d.backend != nil {
		d.backend.close()
	}
	b := newBackend()
	if err := b.init(); err != nil {
		return err
	}
	d.backend = b
	d.out = nil
	d.flushed = false
	return nil
}

// SendSample decodes one temporal unit and queues its pictures.
func (d *Decoder) SendSample(s ports.Sample) error {
	if d.backend == nil {
		return ErrNotConfigured
	}
	if len(s.Data) == 0 {
		return errors.New("av1decoder: empty sample")
	}
	imgs, err := d.backend.decode(s.Data)
	if err != nil {
		return err
	}
	d.out = append(d.out, imgs...)
	d.flushed = false
	return nil
}

// ReceiveFrame returns the next queued picture.
func (d *Decoder) ReceiveFrame() (image.Image, error) {
	if len(d.out) == 0 {
		if d.flushed {
			return nil, ports.ErrEndOfStream
		}
		return nil, ports.ErrNeedInput
	}
	img := d.out[0]
	d.out[0] = nil
	d.out = d.out[1:]
	return img, nil
}

// Flush drains pictures held back by the codec.
func (d *Decoder) Flush() error {
	if d.backend == nil {
		return ErrNotConfigured
	}
	imgs, err := d.backend.flush()
	if err != nil {
		return err
	}
	d.out = append(d.out, imgs...)
	d.flushed = true
	return nil
}

// Reset discards queued pictures and restarts the codec.
func (d *Decoder) Reset() error {
	if d.backend == nil {
		return ErrNotConfigured
	}
	d.backend.close()
	d.out = nil
	d.flushed = false
	return d.backend.init()
}

// Close releases decoder resources. It is safe to call more than once.
func (d *Decoder) Close() error {
	if d.backend != nil {
		d.backend.close()
		d.backend = nil
	}
	d.out = nil
	return nil
}

var _ ports.FrameDecoder = (*Decoder)(nil)
