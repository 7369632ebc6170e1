// Package smartsource opens a media location, detects the codec of its video
// track and pairs it with a decoder backend.
package smartsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/user/vidplay/pkg/adapters/av1decoder"
	"github.com/user/vidplay/pkg/adapters/codecdetect"
	"github.com/user/vidplay/pkg/adapters/h264decoder"
	"github.com/user/vidplay/pkg/adapters/httpreader"
	"github.com/user/vidplay/pkg/adapters/imagecodec"
	"github.com/user/vidplay/pkg/adapters/logger"
	"github.com/user/vidplay/pkg/adapters/mp4demux"
	"github.com/user/vidplay/pkg/adapters/mp4source"
	"github.com/user/vidplay/pkg/location"
	"github.com/user/vidplay/pkg/ports"
)

// Codec represents the video codec type (re-exported from codecdetect).
type Codec = codecdetect.Codec

// Backend represents the decoding backend used.
type Backend string

const (
	// BackendFFmpeg represents H.264 decoding through an ffmpeg process.
	BackendFFmpeg Backend = "ffmpeg"
	// BackendLibaom represents libaom for AV1 decoding.
	BackendLibaom Backend = "libaom"
	// BackendImage represents the Go image decoders for image-sequence tracks.
	BackendImage Backend = "image"
)

// Info contains information about the selected decoder.
type Info struct {
	// Codec is the detected codec.
	Codec Codec
	// Backend is the decoding backend being used.
	Backend Backend
	// Track is the indexed video track.
	Track mp4demux.Track
}

// Options configures the smart source behavior.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
	// Width and Height override the output size when both are positive.
	Width  int
	Height int
	// HTTPClient reads network locations. Nil means http.DefaultClient.
	HTTPClient *http.Client
	// Logger receives debug output. Nil means no logging.
	Logger ports.Logger
}

var (
	// ErrUnsupportedCodec is returned when the codec is not supported.
	ErrUnsupportedCodec = errors.New("smartsource: unsupported codec")
	// ErrNoDecoderAvailable is returned when no decoder is available for the codec.
	ErrNoDecoderAvailable = errors.New("smartsource: no decoder available")
)

// Open reads loc and returns a source positioned at its first frame.
//
// The selection flow:
//   - H.264: ffmpeg process
//   - AV1: libaom decoder
//   - JPEG, PNG, WebP samples: Go image decoders
func Open(ctx context.Context, loc location.Location, opts Options) (*mp4source.Source, Info, error) {
	r, c, err := openLocation(ctx, loc, opts)
	if err != nil {
		return nil, Info{}, err
	}
	src, info, err := OpenReader(r, c, opts)
	if err != nil {
		c.Close()
		return nil, Info{}, err
	}
	return src, info, nil
}

// Probe describes a video without opening a decoder.
type Probe struct {
	Location  string        `json:"location"`
	Codec     Codec         `json:"codec"`
	Backend   Backend       `json:"backend,omitempty"` // Empty when no decoder is available
	TrackID   uint32        `json:"track_id"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Timescale uint32        `json:"timescale"`
	Samples   int           `json:"samples"`
	FrameRate float64       `json:"frame_rate"`
	Duration  time.Duration `json:"duration_ns"`
}

// ProbeLocation indexes loc and reports its video track and the backend
// that would decode it.
func ProbeLocation(ctx context.Context, loc location.Location, opts Options) (Probe, error) {
	r, c, err := openLocation(ctx, loc, opts)
	if err != nil {
		return Probe{}, err
	}
	defer c.Close()

	ix, err := mp4demux.Open(r)
	if err != nil {
		return Probe{}, err
	}
	p := Probe{
		Location:  loc.String(),
		Codec:     ix.Track.Codec,
		TrackID:   ix.Track.ID,
		Width:     ix.Track.Width,
		Height:    ix.Track.Height,
		Timescale: ix.Track.Timescale,
		Samples:   ix.Len(),
		FrameRate: ix.FrameRate(),
		Duration:  ports.Rational{Num: 1, Den: int64(ix.Track.Timescale)}.Duration(ix.EndPTS()),
	}
	if codec, backend, err := NewCodec(ix.Track.Codec, opts); err == nil {
		codec.Close()
		p.Backend = backend
	}
	return p, nil
}

func openLocation(ctx context.Context, loc location.Location, opts Options) (io.ReadSeeker, io.Closer, error) {
	switch loc.Kind {
	case location.KindFile:
		f, err := os.Open(loc.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	case location.KindHTTP:
		hr, err := httpreader.Open(ctx, loc.URL, httpreader.WithClient(opts.HTTPClient))
		if err != nil {
			return nil, nil, err
		}
		return hr, hr, nil
	default:
		return nil, nil, fmt.Errorf("%w: %v", location.ErrInvalidLocation, loc)
	}
}

// OpenReader indexes r and returns a source over it. c, if not nil, is
// closed with the source.
func OpenReader(r io.ReadSeeker, c io.Closer, opts Options) (*mp4source.Source, Info, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}

	ix, err := mp4demux.Open(r)
	if err != nil {
		return nil, Info{}, err
	}

	codec, backend, err := NewCodec(ix.Track.Codec, opts)
	if err != nil {
		return nil, Info{}, err
	}
	info := Info{Codec: ix.Track.Codec, Backend: backend, Track: ix.Track}
	log.WithComponent("smartsource").Debug("Selected %s backend for %s track", backend, ix.Track.Codec)

	srcOpts := []mp4source.Option{mp4source.WithLogger(log), mp4source.WithOutputSize(opts.Width, opts.Height)}
	if c != nil {
		srcOpts = append(srcOpts, mp4source.WithCloser(c))
	}
	src, err := mp4source.New(ix, codec, srcOpts...)
	if err != nil {
		codec.Close()
		return nil, Info{}, err
	}
	return src, info, nil
}

// NewCodec returns an unconfigured decoder for codec.
func NewCodec(codec Codec, opts Options) (ports.FrameDecoder, Backend, error) {
	switch {
	case codec == codecdetect.CodecH264:
		if !h264decoder.IsAvailable(opts.FFmpegPath) {
			return nil, "", fmt.Errorf("%w: %s needs ffmpeg", ErrNoDecoderAvailable, codec)
		}
		return h264decoder.New(h264decoder.WithFFmpegPath(opts.FFmpegPath)), BackendFFmpeg, nil

	case codec == codecdetect.CodecAV1:
		if !IsAV1Available() {
			return nil, "", fmt.Errorf("%w: %s needs libaom", ErrNoDecoderAvailable, codec)
		}
		return av1decoder.New(), BackendLibaom, nil

	case codec.IsImage():
		return imagecodec.New(), BackendImage, nil

	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedCodec, codec)
	}
}

// DetectCodec detects the codec from a file without creating a decoder.
func DetectCodec(path string) (Codec, error) {
	return codecdetect.DetectFromFile(path)
}

// IsH264Available checks if H.264 decoding is available.
func IsH264Available(ffmpegPath string) bool {
	return h264decoder.IsAvailable(ffmpegPath)
}

// IsAV1Available reports whether the binary was built with libaom.
func IsAV1Available() bool {
	return av1decoder.Available()
}
