package h264encoder

import (
	"bytes"
	"errors"
	"image"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/user/vidplay/pkg/adapters/codecdetect"
	"github.com/user/vidplay/pkg/adapters/ggrenderer"
	"github.com/user/vidplay/pkg/adapters/mp4demux"
	"github.com/user/vidplay/pkg/adapters/mp4writer"
	"github.com/user/vidplay/pkg/ports"
)

func TestFFmpegArgs(t *testing.T) {
	args := ffmpegArgs(320, 240, 29.97, ports.EncoderOptions{Quality: 100, KeyframeInterval: 12}, "out.mp4")
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-f rawvideo -pix_fmt rgba -s 320x240 -r 29.97 -i pipe:0",
		"-c:v libx264",
		"-crf 0",
		"-g 12 -keyint_min 12",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected args to contain %q, got %q", want, joined)
		}
	}
	if last := args[len(args)-1]; last != "out.mp4" {
		t.Errorf("expected output last, got %q", last)
	}

	args = ffmpegArgs(64, 48, 25, ports.EncoderOptions{}, "out.mp4")
	if slices.Contains(args, "-g") {
		t.Error("expected no -g without a keyframe interval")
	}
	if joined := strings.Join(args, " "); !strings.Contains(joined, "-crf 23") {
		t.Errorf("expected default crf 23, got %q", joined)
	}
}

func TestCRF(t *testing.T) {
	tests := []struct {
		quality int
		want    int
	}{
		{0, 23},
		{-5, 23},
		{101, 23},
		{1, 51},
		{50, 26},
		{85, 8},
		{100, 0},
	}
	for _, tt := range tests {
		if got := crf(tt.quality); got != tt.want {
			t.Errorf("crf(%d) = %d, want %d", tt.quality, got, tt.want)
		}
	}
}

func TestEncoder_BeginValidation(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		fps           float64
	}{
		{"zero width", 0, 240, 25},
		{"zero fps", 320, 240, 0},
		{"odd width", 321, 240, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := New().Begin(tt.width, tt.height, tt.fps, ports.EncoderOptions{}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEncoder_FFmpegMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-ffmpeg")
	if Available(missing) {
		t.Error("expected missing ffmpeg to be unavailable")
	}
	err := New(WithFFmpegPath(missing)).Begin(64, 48, 25, ports.EncoderOptions{})
	if !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("expected ErrFFmpegNotFound, got %v", err)
	}
}

func TestEncoder_NotStarted(t *testing.T) {
	enc := New()
	if err := enc.EncodeFrame(image.NewRGBA(image.Rect(0, 0, 2, 2)), 0); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted from EncodeFrame, got %v", err)
	}
	if _, err := enc.End(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted from End, got %v", err)
	}
}

func TestEncoder_WritesH264Track(t *testing.T) {
	if !Available("") {
		t.Skip("ffmpeg not available")
	}

	data, err := mp4writer.Synthesize(New(), ggrenderer.New(), 64, 48, 25, 10,
		ports.EncoderOptions{Quality: 60, KeyframeInterval: 5})
	if err != nil && strings.Contains(err.Error(), "libx264") {
		t.Skipf("ffmpeg without libx264: %v", err)
	}
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	ix, err := mp4demux.Open(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("demux failed: %v", err)
	}
	if ix.Track.Codec != codecdetect.CodecH264 {
		t.Errorf("expected codec %s, got %s", codecdetect.CodecH264, ix.Track.Codec)
	}
	if ix.Track.Width != 64 || ix.Track.Height != 48 {
		t.Errorf("expected 64x48, got %dx%d", ix.Track.Width, ix.Track.Height)
	}
	if len(ix.Track.ParameterSets) == 0 {
		t.Error("expected parameter sets")
	}
	if ix.Len() != 10 {
		t.Errorf("expected 10 samples, got %d", ix.Len())
	}

	first, err := ix.Sample(0)
	if err != nil {
		t.Fatalf("Sample(0) failed: %v", err)
	}
	if !first.Keyframe {
		t.Error("expected first sample to be a keyframe")
	}
}

func TestEncoder_NoFrames(t *testing.T) {
	if !Available("") {
		t.Skip("ffmpeg not available")
	}

	enc := New()
	if err := enc.Begin(64, 48, 25, ports.EncoderOptions{}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := enc.End(); !errors.Is(err, ErrNoFrames) {
		t.Errorf("expected ErrNoFrames, got %v", err)
	}
}
