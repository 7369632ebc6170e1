package codecdetect

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/vidplay/pkg/adapters/ggrenderer"
	"github.com/user/vidplay/pkg/adapters/mp4writer"
	"github.com/user/vidplay/pkg/ports"
)

func synth(t *testing.T, format ports.ImageFormat) []byte {
	t.Helper()
	data, err := mp4writer.Synthesize(mp4writer.New(), ggrenderer.New(), 32, 24, 10, 2,
		ports.EncoderOptions{Format: format})
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	return data
}

func TestDetectFromBytes(t *testing.T) {
	tests := []struct {
		name   string
		format ports.ImageFormat
		want   Codec
	}{
		{"jpeg", ports.FormatJPEG, CodecJPEG},
		{"png", ports.FormatPNG, CodecPNG},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFromBytes(synth(t, tt.format))
			if err != nil {
				t.Fatalf("DetectFromBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDetectFromReader_Rewinds(t *testing.T) {
	r := bytes.NewReader(synth(t, ports.FormatPNG))
	if _, err := DetectFromReader(r); err != nil {
		t.Fatalf("DetectFromReader: %v", err)
	}
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 0 {
		t.Errorf("expected reader at 0, got %d", pos)
	}
}

func TestDetectFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, synth(t, ports.FormatJPEG), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := DetectFromFile(path)
	if err != nil {
		t.Fatalf("DetectFromFile: %v", err)
	}
	if got != CodecJPEG {
		t.Errorf("expected jpeg, got %s", got)
	}

	if _, err := DetectFromFile(filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCodec_IsImage(t *testing.T) {
	for _, c := range []Codec{CodecJPEG, CodecPNG, CodecWebP} {
		if !c.IsImage() {
			t.Errorf("%s should be an image codec", c)
		}
	}
	for _, c := range []Codec{CodecH264, CodecAV1, CodecUnknown} {
		if c.IsImage() {
			t.Errorf("%s should not be an image codec", c)
		}
	}
}
