package smartencoder

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/user/vidplay/pkg/adapters/codecdetect"
	"github.com/user/vidplay/pkg/adapters/ggrenderer"
	"github.com/user/vidplay/pkg/adapters/logger"
	"github.com/user/vidplay/pkg/adapters/mp4writer"
	"github.com/user/vidplay/pkg/ports"
)

func TestParseCodec(t *testing.T) {
	for _, name := range []string{"jpeg", "png", "h264", "av1"} {
		c, err := ParseCodec(name)
		if err != nil {
			t.Errorf("ParseCodec(%q) failed: %v", name, err)
			continue
		}
		if c != Codec(name) {
			t.Errorf("ParseCodec(%q) = %q", name, c)
		}
	}

	for _, name := range []string{"webp", ""} {
		if _, err := ParseCodec(name); !errors.Is(err, ErrUnsupportedCodec) {
			t.Errorf("ParseCodec(%q): expected ErrUnsupportedCodec, got %v", name, err)
		}
	}
}

func TestNew_ImageCodecs(t *testing.T) {
	tests := []struct {
		codec Codec
		other ports.ImageFormat
	}{
		{codecdetect.CodecJPEG, ports.FormatPNG},
		{codecdetect.CodecPNG, ports.FormatJPEG},
	}
	for _, tt := range tests {
		c := tt.codec
		t.Run(string(c), func(t *testing.T) {
			enc, info, err := New(c, Options{})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			want := Info{Codec: c, Backend: BackendImage, RequestedCodec: c}
			if info != want {
				t.Errorf("expected info %+v, got %+v", want, info)
			}

			// The requested format wins over the options passed to Begin.
			data, err := mp4writer.Synthesize(enc, ggrenderer.New(), 32, 24, 10, 3,
				ports.EncoderOptions{Format: tt.other, Quality: 80})
			if err != nil {
				t.Fatalf("Synthesize failed: %v", err)
			}
			got, err := codecdetect.DetectFromReader(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("detect failed: %v", err)
			}
			if got != c {
				t.Errorf("expected %s track, got %s", c, got)
			}
		})
	}
}

func TestNew_H264WithoutFFmpeg(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-ffmpeg")

	if _, _, err := New(codecdetect.CodecH264, Options{FFmpegPath: missing}); !errors.Is(err, ErrNoEncoderAvailable) {
		t.Errorf("expected ErrNoEncoderAvailable, got %v", err)
	}

	var out, errOut bytes.Buffer
	enc, info, err := New(codecdetect.CodecH264, Options{
		FFmpegPath:    missing,
		AllowFallback: true,
		Logger:        logger.NewWriter(ports.LevelInfo, &out, &errOut),
	})
	if err != nil {
		t.Fatalf("New with fallback failed: %v", err)
	}
	if enc == nil {
		t.Fatal("expected an encoder")
	}
	want := Info{
		Codec:          codecdetect.CodecJPEG,
		Backend:        BackendImage,
		RequestedCodec: codecdetect.CodecH264,
		FallbackUsed:   true,
	}
	if info != want {
		t.Errorf("expected info %+v, got %+v", want, info)
	}
	if errOut.Len() == 0 {
		t.Error("expected a fallback warning")
	}
}

func TestNew_AV1(t *testing.T) {
	enc, info, err := New(codecdetect.CodecAV1, Options{AllowFallback: true})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if enc == nil {
		t.Fatal("expected an encoder")
	}
	if info.RequestedCodec != codecdetect.CodecAV1 {
		t.Errorf("expected requested codec av1, got %s", info.RequestedCodec)
	}
	if IsAV1Available() {
		if info.Backend != BackendLibaom || info.FallbackUsed {
			t.Errorf("expected libaom without fallback, got %+v", info)
		}
	} else if info.Codec != codecdetect.CodecJPEG || !info.FallbackUsed {
		t.Errorf("expected jpeg fallback, got %+v", info)
	}
}

func TestNew_Unsupported(t *testing.T) {
	if _, _, err := New(codecdetect.CodecWebP, Options{AllowFallback: true}); !errors.Is(err, ErrUnsupportedCodec) {
		t.Errorf("expected ErrUnsupportedCodec, got %v", err)
	}
}
