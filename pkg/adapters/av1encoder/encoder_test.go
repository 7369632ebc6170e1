package av1encoder

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/user/vidplay/pkg/adapters/codecdetect"
	"github.com/user/vidplay/pkg/adapters/mp4demux"
	"github.com/user/vidplay/pkg/ports"
)

// Sequence header OBU (type 1, has_size) followed by a frame OBU (type 6).
var keyframeTU = []byte{0x0A, 0x03, 0x00, 0x00, 0x00, 0x32, 0x01, 0xAA}

// fakeBackend emits one packet per frame, delayed by lag frames.
type fakeBackend struct {
	lag     int
	queue   []packet
	forced  []bool
	closed  bool
	failAt  int
	encodes int
}

func (f *fakeBackend) init(width, height int, fps float64, opts ports.EncoderOptions) error {
	return nil
}

func (f *fakeBackend) encode(img *image.YCbCr, ptsMs, durMs int64, forceKeyframe bool) ([]packet, error) {
	f.encodes++
	if f.failAt > 0 && f.encodes == f.failAt {
		return nil, errors.New("boom")
	}
	f.forced = append(f.forced, forceKeyframe)
	data := []byte{0x32, 0x01, byte(ptsMs)}
	if forceKeyframe {
		data = keyframeTU
	}
	f.queue = append(f.queue, packet{data: data, ptsMs: ptsMs, keyframe: forceKeyframe})
	if len(f.queue) <= f.lag {
		return nil, nil
	}
	out := f.queue[:1]
	f.queue = f.queue[1:]
	return out, nil
}

func (f *fakeBackend) flush() ([]packet, error) {
	out := f.queue
	f.queue = nil
	return out, nil
}

func (f *fakeBackend) close() { f.closed = true }

func newTestEncoder(fb *fakeBackend) *Encoder {
	return &Encoder{newBackend: func() backend { return fb }}
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestEncoder_WritesAV1Track(t *testing.T) {
	fb := &fakeBackend{lag: 2}
	e := newTestEncoder(fb)

	if err := e.Begin(32, 16, 25, ports.EncoderOptions{Quality: 50}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := e.EncodeFrame(solid(32, 16, color.RGBA{R: 200, A: 255}), i*40); err != nil {
			t.Fatalf("EncodeFrame %d failed: %v", i, err)
		}
	}
	data, err := e.End()
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if !fb.closed {
		t.Error("expected backend to be closed")
	}
	wantForced := []bool{true, false, false, false, false}
	if len(fb.forced) != len(wantForced) {
		t.Fatalf("expected %d encode calls, got %d", len(wantForced), len(fb.forced))
	}
	for i := range wantForced {
		if fb.forced[i] != wantForced[i] {
			t.Errorf("frame %d: forced keyframe = %v, want %v", i, fb.forced[i], wantForced[i])
		}
	}

	ix, err := mp4demux.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("demux failed: %v", err)
	}
	if ix.Track.Codec != codecdetect.CodecAV1 {
		t.Errorf("expected codec %s, got %s", codecdetect.CodecAV1, ix.Track.Codec)
	}
	if ix.Track.Width != 32 || ix.Track.Height != 16 {
		t.Errorf("expected 32x16, got %dx%d", ix.Track.Width, ix.Track.Height)
	}
	if ix.Track.Timescale != uint32(Timescale) {
		t.Errorf("expected timescale %d, got %d", Timescale, ix.Track.Timescale)
	}
	if ix.Len() != 5 {
		t.Fatalf("expected 5 samples, got %d", ix.Len())
	}
	if end := ix.EndPTS(); end != 200 {
		t.Errorf("expected end PTS 200, got %d", end)
	}

	for i := 0; i < 5; i++ {
		s, err := ix.Sample(i)
		if err != nil {
			t.Fatalf("Sample(%d) failed: %v", i, err)
		}
		if s.PTS != int64(i*40) {
			t.Errorf("sample %d: expected PTS %d, got %d", i, i*40, s.PTS)
		}
		if s.Keyframe != (i == 0) {
			t.Errorf("sample %d: keyframe = %v", i, s.Keyframe)
		}
	}
}

func TestEncoder_NotStarted(t *testing.T) {
	e := newTestEncoder(&fakeBackend{})
	if err := e.EncodeFrame(solid(2, 2, color.Black), 0); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted from EncodeFrame, got %v", err)
	}
	if _, err := e.End(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted from End, got %v", err)
	}
}

func TestEncoder_InvalidFormat(t *testing.T) {
	e := newTestEncoder(&fakeBackend{})
	if err := e.Begin(0, 16, 25, ports.EncoderOptions{}); err == nil {
		t.Error("expected error for zero width")
	}
	if err := e.Begin(16, 16, 0, ports.EncoderOptions{}); err == nil {
		t.Error("expected error for zero fps")
	}
}

func TestEncoder_NoFrames(t *testing.T) {
	e := newTestEncoder(&fakeBackend{})
	if err := e.Begin(16, 16, 25, ports.EncoderOptions{}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := e.End(); !errors.Is(err, ErrNoFrames) {
		t.Errorf("expected ErrNoFrames, got %v", err)
	}
}

func TestEncoder_EncodeError(t *testing.T) {
	e := newTestEncoder(&fakeBackend{failAt: 2})
	if err := e.Begin(16, 16, 25, ports.EncoderOptions{}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := e.EncodeFrame(solid(16, 16, color.White), 0); err != nil {
		t.Fatalf("first frame failed: %v", err)
	}
	err := e.EncodeFrame(solid(16, 16, color.White), 40)
	if err == nil {
		t.Fatal("expected error on second frame")
	}
	if !strings.Contains(err.Error(), "frame 1") {
		t.Errorf("expected error to name frame 1, got %v", err)
	}
}

func TestToYCbCr(t *testing.T) {
	out := toYCbCr(solid(4, 4, color.RGBA{R: 255, G: 255, B: 255, A: 255}), 4, 4)
	if out.SubsampleRatio != image.YCbCrSubsampleRatio420 {
		t.Errorf("expected 4:2:0, got %v", out.SubsampleRatio)
	}
	for i, v := range out.Y {
		if v != 255 {
			t.Fatalf("Y[%d] = %d, want 255", i, v)
		}
	}
	for i := range out.Cb {
		if out.Cb[i] != 128 || out.Cr[i] != 128 {
			t.Fatalf("chroma[%d] = (%d, %d), want (128, 128)", i, out.Cb[i], out.Cr[i])
		}
	}

	ycc := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420)
	if toYCbCr(ycc, 4, 4) != ycc {
		t.Error("expected matching YCbCr input to pass through")
	}
}

func TestSequenceHeader(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want []byte
	}{
		{"leading", keyframeTU, keyframeTU[:5]},
		{"after temporal delimiter", append([]byte{0x12, 0x00}, keyframeTU...), keyframeTU[:5]},
		{"none", []byte{0x32, 0x01, 0xAA}, nil},
		{"truncated", []byte{0x0A, 0x05, 0x00}, []byte{0x0A, 0x05, 0x00}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sequenceHeader(tt.data)
			if !bytes.Equal(got, tt.want) || (got == nil) != (tt.want == nil) {
				t.Errorf("sequenceHeader() = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestReadLeb128(t *testing.T) {
	tests := []struct {
		data    []byte
		off     int
		want    int
		wantOff int
	}{
		{[]byte{0x05}, 0, 5, 1},
		{[]byte{0xFF, 0x80, 0xE5, 0x8E, 0x26}, 2, 624485, 5},
	}
	for _, tt := range tests {
		v, off := readLeb128(tt.data, tt.off)
		if v != tt.want || off != tt.wantOff {
			t.Errorf("readLeb128(%x, %d) = (%d, %d), want (%d, %d)", tt.data, tt.off, v, off, tt.want, tt.wantOff)
		}
	}
}
