// Package smartencoder picks a video encoder for a codec name and falls back
// to a JPEG image sequence when the requested codec's backend is missing.
package smartencoder

import (
	"errors"
	"fmt"

	"github.com/user/vidplay/pkg/adapters/av1encoder"
	"github.com/user/vidplay/pkg/adapters/codecdetect"
	"github.com/user/vidplay/pkg/adapters/h264encoder"
	"github.com/user/vidplay/pkg/adapters/mp4writer"
	"github.com/user/vidplay/pkg/ports"
)

// Codec is the codec of the written track (re-exported from codecdetect).
type Codec = codecdetect.Codec

// Backend represents the encoding backend used.
type Backend string

const (
	// BackendFFmpeg represents H.264 encoding through an ffmpeg process.
	BackendFFmpeg Backend = "ffmpeg"
	// BackendLibaom represents libaom for AV1 encoding.
	BackendLibaom Backend = "libaom"
	// BackendImage represents the Go image encoders for image-sequence tracks.
	BackendImage Backend = "image"
)

// Info contains information about the selected encoder.
type Info struct {
	// Codec is the codec actually written.
	Codec Codec
	// Backend is the encoding backend being used.
	Backend Backend
	// RequestedCodec is the codec that was originally requested.
	RequestedCodec Codec
	// FallbackUsed indicates whether a fallback occurred.
	FallbackUsed bool
}

// Options configures the smart encoder behavior.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
	// AllowFallback writes JPEG samples when the requested backend is not
	// available.
	AllowFallback bool
	// Logger is used to log fallback warnings.
	Logger ports.Logger
}

var (
	// ErrNoEncoderAvailable is returned when the codec's backend is missing
	// and fallback is disabled.
	ErrNoEncoderAvailable = errors.New("smartencoder: no encoder available")
	// ErrUnsupportedCodec is returned for codecs that cannot be written.
	ErrUnsupportedCodec = errors.New("smartencoder: unsupported codec")
)

// ParseCodec maps a codec name to a Codec.
func ParseCodec(name string) (Codec, error) {
	switch c := Codec(name); c {
	case codecdetect.CodecJPEG, codecdetect.CodecPNG, codecdetect.CodecH264, codecdetect.CodecAV1:
		return c, nil
	}
	return codecdetect.CodecUnknown, fmt.Errorf("%w: %q", ErrUnsupportedCodec, name)
}

// New returns an encoder for preferred.
//
// The selection flow:
//   - JPEG, PNG: Go image encoders
//   - H.264: ffmpeg process
//   - AV1: libaom encoder
//
// When H.264 or AV1 is unavailable and AllowFallback is set, a JPEG
// encoder is returned instead and a warning is logged.
func New(preferred Codec, opts Options) (ports.VideoEncoder, Info, error) {
	info := Info{Codec: preferred, RequestedCodec: preferred}

	var reason string
	switch preferred {
	case codecdetect.CodecJPEG, codecdetect.CodecPNG:
		info.Backend = BackendImage
		return imageEncoder(preferred), info, nil
	case codecdetect.CodecH264:
		if h264encoder.Available(opts.FFmpegPath) {
			info.Backend = BackendFFmpeg
			return h264encoder.New(h264encoder.WithFFmpegPath(opts.FFmpegPath)), info, nil
		}
		reason = "ffmpeg not found"
	case codecdetect.CodecAV1:
		if av1encoder.Available() {
			info.Backend = BackendLibaom
			return av1encoder.New(), info, nil
		}
		reason = "libaom support not compiled in"
	default:
		return nil, Info{}, fmt.Errorf("%w: %s", ErrUnsupportedCodec, preferred)
	}

	if !opts.AllowFallback {
		return nil, Info{}, fmt.Errorf("%w: %s (%s)", ErrNoEncoderAvailable, preferred, reason)
	}
	if opts.Logger != nil {
		opts.Logger.Warn("%s encoder not available (%s), falling back to %s", preferred, reason, codecdetect.CodecJPEG)
	}
	return imageEncoder(codecdetect.CodecJPEG), Info{
		Codec:          codecdetect.CodecJPEG,
		Backend:        BackendImage,
		RequestedCodec: preferred,
		FallbackUsed:   true,
	}, nil
}

// IsH264Available checks if H.264 encoding is available.
func IsH264Available(ffmpegPath string) bool {
	return h264encoder.Available(ffmpegPath)
}

// IsAV1Available checks if the binary was built with libaom.
func IsAV1Available() bool {
	return av1encoder.Available()
}

// formatEncoder pins the sample format of an image-sequence encoder.
type formatEncoder struct {
	*mp4writer.Encoder
	format ports.ImageFormat
}

func imageEncoder(c Codec) ports.VideoEncoder {
	format := ports.FormatJPEG
	if c == codecdetect.CodecPNG {
		format = ports.FormatPNG
	}
	return &formatEncoder{Encoder: mp4writer.New(), format: format}
}

// Begin implements ports.VideoEncoder.
func (e *formatEncoder) Begin(width, height int, fps float64, opts ports.EncoderOptions) error {
	opts.Format = e.format
	return e.Encoder.Begin(width, height, fps, opts)
}
