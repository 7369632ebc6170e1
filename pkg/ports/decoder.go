// Package ports defines interfaces for external dependencies.
package ports

import (
	"errors"
	"image"
	"time"
)

// ErrEndOfStream is returned by VideoSource.DecodeNext once the stream has
// no more frames. It is a terminal condition rather than a failure.
var ErrEndOfStream = errors.New("end of stream")

// ErrNeedInput is returned by FrameDecoder.ReceiveFrame when the codec has
// no frame ready and wants another sample.
var ErrNeedInput = errors.New("decoder needs more input")

// ErrFrameDropped is returned by FrameDecoder.ReceiveFrame when the codec
// gave up on one sent sample. No picture will ever be emitted for it.
var ErrFrameDropped = errors.New("decoder dropped a frame")

// Rational is a stream time base: one tick lasts Num/Den seconds.
type Rational struct {
	Num int64
	Den int64
}

// Duration converts a tick count into a wall-clock duration.
func (r Rational) Duration(ticks int64) time.Duration {
	if r.Den == 0 {
		return 0
	}
	n := ticks * r.Num
	sec := n / r.Den
	rem := n % r.Den
	return time.Duration(sec)*time.Second + time.Duration(rem)*time.Second/time.Duration(r.Den)
}

// Ticks converts a duration into the nearest lower tick count.
func (r Rational) Ticks(d time.Duration) int64 {
	if r.Num == 0 {
		return 0
	}
	sec := int64(d / time.Second)
	rem := int64(d % time.Second)
	return (sec*r.Den + rem*r.Den/int64(time.Second)) / r.Num
}

// RawFrame is a decoded picture in the decoder's native pixel layout.
type RawFrame struct {
	Image image.Image
	PTS   int64 // Presentation timestamp in time-base ticks
}

// VideoSource is an opened, seekable video stream.
// Implementations are not safe for concurrent use; callers serialize access.
type VideoSource interface {
	// Size returns the output frame dimensions.
	Size() (width, height int)

	// FrameRate returns the nominal frames per second.
	FrameRate() float64

	// Duration returns the stream length, or 0 when unknown.
	Duration() time.Duration

	// TimeBase returns the unit of RawFrame.PTS.
	TimeBase() Rational

	// DecodeNext blocks until the next frame in presentation order is decoded.
	// It returns ErrEndOfStream when the stream is exhausted.
	DecodeNext() (RawFrame, error)

	// Seek positions the stream so that the next decoded frame is the first
	// frame at or after the given offset in milliseconds.
	Seek(millis int64) error

	// SeekToFrame positions the stream at the given frame index.
	SeekToFrame(frame int64) error

	// SeekToStart rewinds to the first frame.
	SeekToStart() error

	// Close releases decoder resources.
	Close() error
}

// Sample is one coded access unit read from a container.
type Sample struct {
	Data     []byte
	DTS      int64 // Decode timestamp in track timescale units
	PTS      int64 // Presentation timestamp in track timescale units
	Duration int64
	Keyframe bool
}

// TrackInfo describes the video track a FrameDecoder is configured for.
type TrackInfo struct {
	Codec     string
	Width     int
	Height    int
	Timescale uint32
	// ParameterSets holds out-of-band codec configuration (H.264 SPS/PPS in
	// Annex-B form). It is nil for codecs that carry everything in-band.
	ParameterSets []byte
}

// FrameDecoder is a send/receive codec: samples go in decode order, pictures
// come out in presentation order.
type FrameDecoder interface {
	// Configure prepares the codec for a track. It must be called first.
	Configure(track TrackInfo) error

	// SendSample feeds one coded sample.
	SendSample(s Sample) error

	// ReceiveFrame returns the next picture, ErrNeedInput when another sample
	// is required, or ErrEndOfStream after Flush once everything is drained.
	// ErrFrameDropped reports a sample that produced no picture.
	ReceiveFrame() (image.Image, error)

	// Flush signals the end of input so buffered pictures can be drained.
	Flush() error

	// Reset drops all buffered state, used after a seek.
	Reset() error

	// Close releases codec resources.
	Close() error
}
