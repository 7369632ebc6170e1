package location

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Location
	}{
		{"relative path", "videos/a.mp4", Location{Kind: KindFile, Path: filepath.Clean("videos/a.mp4")}},
		{"absolute path", "/tmp/a.mp4", Location{Kind: KindFile, Path: filepath.Clean("/tmp/a.mp4")}},
		{"file uri", "file:///tmp/a%20b.mp4", Location{Kind: KindFile, Path: filepath.FromSlash("/tmp/a b.mp4")}},
		{"localhost file uri", "file://localhost/tmp/a.mp4", Location{Kind: KindFile, Path: filepath.FromSlash("/tmp/a.mp4")}},
		{"http", "http://example.com/v.mp4", Location{Kind: KindHTTP, URL: "http://example.com/v.mp4"}},
		{"https upper scheme", "HTTPS://example.com/v.mp4?x=1", Location{Kind: KindHTTP, URL: "https://example.com/v.mp4?x=1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "rtsp://camera/stream", "file://remote/a.mp4", "http:///nohost", "file://"} {
		_, err := Parse(raw)
		if !errors.Is(err, ErrInvalidLocation) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidLocation", raw, err)
		}
	}
}

func TestLocation_String(t *testing.T) {
	loc := Location{Kind: KindHTTP, URL: "https://example.com/a.mp4"}
	if loc.String() != "https://example.com/a.mp4" {
		t.Errorf("unexpected String(): %s", loc.String())
	}
	if KindHTTP.String() != "http" || KindFile.String() != "file" {
		t.Error("unexpected kind names")
	}
}
