// Package mp4writer writes image-sequence MP4 files: every sample is a JPEG
// or PNG picture in a single fragment. It is used to synthesize test media.
package mp4writer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/vidplay/pkg/adapters/imagecodec"
	"github.com/user/vidplay/pkg/ports"
)

// Timescale is the track timescale; timestamps are in milliseconds.
const Timescale = 1000

var (
	// ErrNotStarted is returned when frames arrive before Begin.
	ErrNotStarted = errors.New("mp4writer: Begin not called")
	// ErrNoFrames is returned by End when nothing was encoded.
	ErrNoFrames = errors.New("mp4writer: no frames to write")
)

type encodedFrame struct {
	data        []byte
	timestampMs int
	isKeyframe  bool
}

// Encoder implements ports.VideoEncoder.
type Encoder struct {
	mu sync.Mutex

	width   int
	height  int
	fps     float64
	opts    ports.EncoderOptions
	started bool
	frames  []encodedFrame
}

// New creates a new encoder.
func New() *Encoder {
	return &Encoder{}
}

// Begin starts a new file. Options choose the sample format and how often
// a sample is marked as sync.
func (e *Encoder) Begin(width, height int, fps float64, opts ports.EncoderOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if width <= 0 || height <= 0 || width > 0xFFFF || height > 0xFFFF {
		return fmt.Errorf("mp4writer: invalid size %dx%d", width, height)
	}
	if fps <= 0 {
		return fmt.Errorf("mp4writer: invalid frame rate %v", fps)
	}
	if opts.Format != ports.FormatJPEG && opts.Format != ports.FormatPNG {
		return fmt.Errorf("mp4writer: unsupported format %v", opts.Format)
	}

	e.width = width
	e.height = height
	e.fps = fps
	e.opts = opts
	e.frames = nil
	e.started = true
	return nil
}

// EncodeFrame encodes img at timestampMs. Pictures of another size are
// stored as they are; readers scale them.
func (e *Encoder) EncodeFrame(img image.Image, timestampMs int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return ErrNotStarted
	}
	if n := len(e.frames); n > 0 && timestampMs <= e.frames[n-1].timestampMs {
		return fmt.Errorf("mp4writer: timestamp %dms not after %dms", timestampMs, e.frames[n-1].timestampMs)
	}

	data, err := imagecodec.Encode(img, e.opts.Format, e.opts.Quality)
	if err != nil {
		return err
	}

	keyframe := e.opts.KeyframeInterval <= 1 || len(e.frames)%e.opts.KeyframeInterval == 0
	e.frames = append(e.frames, encodedFrame{
		data:        data,
		timestampMs: timestampMs,
		isKeyframe:  keyframe,
	})
	return nil
}

// End returns the finished file.
func (e *Encoder) End() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil, ErrNotStarted
	}
	e.started = false
	return e.buildMP4()
}

func (e *Encoder) sampleEntryName() string {
	if e.opts.Format == ports.FormatPNG {
		return "png "
	}
	return "jpeg"
}

// buildMP4 creates a fragmented MP4 holding the encoded frames.
func (e *Encoder) buildMP4() ([]byte, error) {
	if len(e.frames) == 0 {
		return nil, ErrNoFrames
	}

	trackID := uint32(1)
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(Timescale, "video", "und")

	trak := init.Moov.Trak
	entry := mp4.CreateVisualSampleEntryBox(e.sampleEntryName(), uint16(e.width), uint16(e.height), nil)
	trak.Mdia.Minf.Stbl.Stsd.AddChild(entry)

	trak.Tkhd.Width = mp4.Fixed32(e.width << 16)
	trak.Tkhd.Height = mp4.Fixed32(e.height << 16)

	frag, err := mp4.CreateFragment(1, trackID)
	if err != nil {
		return nil, fmt.Errorf("create fragment: %w", err)
	}

	frameDur := uint32(float64(Timescale)/e.fps + 0.5)
	if frameDur == 0 {
		frameDur = 1
	}
	for i, frame := range e.frames {
		dur := frameDur
		if i < len(e.frames)-1 {
			dur = uint32(e.frames[i+1].timestampMs - frame.timestampMs)
		}

		flags := mp4.NonSyncSampleFlags
		if frame.isKeyframe {
			flags = mp4.SyncSampleFlags
		}

		frag.AddFullSample(mp4.FullSample{
			Sample: mp4.Sample{
				Flags: flags,
				Size:  uint32(len(frame.data)),
				Dur:   dur,
			},
			DecodeTime: uint64(frame.timestampMs),
			Data:       frame.data,
		})
	}

	var buf bytes.Buffer

	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso6", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode moov: %w", err)
	}
	if err := frag.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode fragment: %w", err)
	}

	return buf.Bytes(), nil
}

var _ ports.VideoEncoder = (*Encoder)(nil)
