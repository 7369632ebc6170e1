package smartsource

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/vidplay/pkg/adapters/codecdetect"
	"github.com/user/vidplay/pkg/adapters/ggrenderer"
	"github.com/user/vidplay/pkg/adapters/mp4writer"
	"github.com/user/vidplay/pkg/location"
	"github.com/user/vidplay/pkg/ports"
)

func synth(t *testing.T) []byte {
	t.Helper()
	data, err := mp4writer.Synthesize(mp4writer.New(), ggrenderer.New(), 64, 48, 25, 5,
		ports.EncoderOptions{Format: ports.FormatJPEG, Quality: 90})
	require.NoError(t, err)
	return data
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, synth(t), 0o644))

	loc, err := location.Parse("file://" + filepath.ToSlash(path))
	require.NoError(t, err)

	src, info, err := Open(context.Background(), loc, Options{})
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, codecdetect.CodecJPEG, info.Codec)
	assert.Equal(t, BackendImage, info.Backend)
	assert.Equal(t, 64, info.Track.Width)

	f, err := src.DecodeNext()
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.PTS)
	assert.Equal(t, 64, f.Image.Bounds().Dx())
}

func TestOpen_HTTP(t *testing.T) {
	data := synth(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "clip.mp4", time.Time{}, bytes.NewReader(data))
	}))
	defer srv.Close()

	loc, err := location.Parse(srv.URL + "/clip.mp4")
	require.NoError(t, err)

	src, _, err := Open(context.Background(), loc, Options{Width: 32, Height: 24, HTTPClient: srv.Client()})
	require.NoError(t, err)
	defer src.Close()

	w, h := src.Size()
	assert.Equal(t, 32, w)
	assert.Equal(t, 24, h)
	assert.Equal(t, 200*time.Millisecond, src.Duration())
}

func TestOpen_MissingFile(t *testing.T) {
	loc := location.Location{Kind: location.KindFile, Path: filepath.Join(t.TempDir(), "missing.mp4")}
	_, _, err := Open(context.Background(), loc, Options{})

	var pathErr *fs.PathError
	assert.True(t, errors.As(err, &pathErr))
}

func TestOpenReader_NotMP4(t *testing.T) {
	_, _, err := OpenReader(bytes.NewReader([]byte("plain text, no boxes here")), nil, Options{})
	assert.Error(t, err)
}

func TestNewCodec(t *testing.T) {
	_, backend, err := NewCodec(codecdetect.CodecPNG, Options{})
	require.NoError(t, err)
	assert.Equal(t, BackendImage, backend)

	_, _, err = NewCodec(codecdetect.CodecUnknown, Options{})
	assert.ErrorIs(t, err, ErrUnsupportedCodec)

	_, _, err = NewCodec(codecdetect.CodecH264, Options{FFmpegPath: filepath.Join(t.TempDir(), "no-ffmpeg")})
	assert.ErrorIs(t, err, ErrNoDecoderAvailable)

	if !IsAV1Available() {
		_, _, err = NewCodec(codecdetect.CodecAV1, Options{})
		assert.ErrorIs(t, err, ErrNoDecoderAvailable)
	}
}

func TestProbeLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, synth(t), 0o644))

	p, err := ProbeLocation(context.Background(), location.Location{Kind: location.KindFile, Path: path}, Options{})
	require.NoError(t, err)

	assert.Equal(t, path, p.Location)
	assert.Equal(t, codecdetect.CodecJPEG, p.Codec)
	assert.Equal(t, BackendImage, p.Backend)
	assert.Equal(t, 64, p.Width)
	assert.Equal(t, 48, p.Height)
	assert.Equal(t, uint32(1000), p.Timescale)
	assert.Equal(t, 5, p.Samples)
	assert.InDelta(t, 25.0, p.FrameRate, 0.001)
	assert.Equal(t, 200*time.Millisecond, p.Duration)
}

func TestProbeLocation_InvalidKind(t *testing.T) {
	_, err := ProbeLocation(context.Background(), location.Location{Kind: location.Kind(99)}, Options{})
	assert.ErrorIs(t, err, location.ErrInvalidLocation)
}
