// Package imagecodec decodes tracks whose samples are complete still images
// (Motion JPEG, PNG and WebP sequences) and encodes pictures for them.
package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/webp"

	"github.com/user/vidplay/pkg/ports"
)

var (
	// ErrNotConfigured is returned when samples arrive before Configure.
	ErrNotConfigured = errors.New("imagecodec: decoder not configured")
	// ErrUnsupportedCodec is returned for codecs that are not image sequences.
	ErrUnsupportedCodec = errors.New("imagecodec: unsupported codec")
)

type decodeFunc func(data []byte) (image.Image, error)

func decoderFor(codec string) (decodeFunc, bool) {
	switch codec {
	case "jpeg":
		return func(data []byte) (image.Image, error) {
			return jpeg.Decode(bytes.NewReader(data))
		}, true
	case "png":
		return func(data []byte) (image.Image, error) {
			return png.Decode(bytes.NewReader(data))
		}, true
	case "webp":
		return func(data []byte) (image.Image, error) {
			return webp.Decode(bytes.NewReader(data))
		}, true
	}
	return nil, false
}

// Decoder is a ports.FrameDecoder for image-sequence tracks. Every sample is
// intra coded, so pictures come out in the order samples go in.
type Decoder struct {
	decode  decodeFunc
	codec   string
	out     image.Image
	flushed bool
}

// New creates a decoder. Configure must be called before use.
func New() *Decoder {
	return &Decoder{}
}

func (d *Decoder) Configure(track ports.TrackInfo) error {
	fn, ok := decoderFor(track.Codec)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedCodec, track.Codec)
	}
	d.decode = fn
	d.codec = track.Codec
	d.out = nil
	d.flushed = false
	return nil
}

func (d *Decoder) SendSample(s ports.Sample) error {
	if d.decode == nil {
		return ErrNotConfigured
	}
	if d.out != nil {
		return errors.New("imagecodec: picture not received")
	}
	img, err := d.decode(s.Data)
	if err != nil {
		return fmt.Errorf("decode %s sample at pts %d: %w", d.codec, s.PTS, err)
	}
	d.out = img
	return nil
}

func (d *Decoder) ReceiveFrame() (image.Image, error) {
	if d.decode == nil {
		return nil, ErrNotConfigured
	}
	if d.out == nil {
		if d.flushed {
			return nil, ports.ErrEndOfStream
		}
		return nil, ports.ErrNeedInput
	}
	img := d.out
	d.out = nil
	return img, nil
}

func (d *Decoder) Flush() error {
	if d.decode == nil {
		return ErrNotConfigured
	}
	d.flushed = true
	return nil
}

func (d *Decoder) Reset() error {
	if d.decode == nil {
		return ErrNotConfigured
	}
	d.out = nil
	d.flushed = false
	return nil
}

func (d *Decoder) Close() error {
	d.decode = nil
	d.out = nil
	return nil
}

var _ ports.FrameDecoder = (*Decoder)(nil)

// Supports reports whether codec names an image-sequence codec.
func Supports(codec string) bool {
	_, ok := decoderFor(codec)
	return ok
}

// Encode encodes img as a single sample. quality applies to JPEG only.
func Encode(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case ports.FormatJPEG:
		if quality <= 0 || quality > 100 {
			quality = jpeg.DefaultQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("encode JPEG: %w", err)
		}
	case ports.FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode PNG: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %d", format)
	}

	return buf.Bytes(), nil
}
