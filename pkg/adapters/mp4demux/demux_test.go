package mp4demux

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/vidplay/pkg/adapters/codecdetect"
	"github.com/user/vidplay/pkg/adapters/ggrenderer"
	"github.com/user/vidplay/pkg/adapters/mp4writer"
	"github.com/user/vidplay/pkg/ports"
)

func synth(t *testing.T, frames int, fps float64, keyint int) []byte {
	t.Helper()
	data, err := mp4writer.Synthesize(mp4writer.New(), ggrenderer.New(), 64, 48, fps, frames,
		ports.EncoderOptions{Format: ports.FormatPNG, KeyframeInterval: keyint})
	require.NoError(t, err)
	return data
}

func TestOpen_FragmentedImageTrack(t *testing.T) {
	ix, err := Open(bytes.NewReader(synth(t, 10, 25, 4)))
	require.NoError(t, err)

	assert.Equal(t, codecdetect.CodecPNG, ix.Track.Codec)
	assert.Equal(t, 64, ix.Track.Width)
	assert.Equal(t, 48, ix.Track.Height)
	assert.Equal(t, uint32(1000), ix.Track.Timescale)
	assert.Nil(t, ix.Track.ParameterSets)

	assert.Equal(t, 10, ix.Len())
	assert.Equal(t, int64(400), ix.EndPTS())
	assert.InDelta(t, 25.0, ix.FrameRate(), 1e-9)

	for i := 0; i < ix.Len(); i++ {
		assert.Equal(t, int64(i*40), ix.PTS(i))
		pts, ok := ix.FramePTS(i)
		require.True(t, ok)
		assert.Equal(t, int64(i*40), pts)
	}
	_, ok := ix.FramePTS(10)
	assert.False(t, ok)

	s, err := ix.Sample(4)
	require.NoError(t, err)
	assert.True(t, s.Keyframe)
	assert.Equal(t, int64(160), s.PTS)
	assert.Equal(t, int64(40), s.Duration)
	assert.NotEmpty(t, s.Data)

	s, err = ix.Sample(5)
	require.NoError(t, err)
	assert.False(t, s.Keyframe)

	_, err = ix.Sample(10)
	assert.Error(t, err)

	info := ix.Track.Info()
	assert.Equal(t, "png", info.Codec)
	assert.Equal(t, 64, info.Width)
}

func TestIndex_SyncBefore(t *testing.T) {
	ix, err := Open(bytes.NewReader(synth(t, 10, 25, 4)))
	require.NoError(t, err)

	tests := []struct {
		pts       int64
		wantStart int
		wantOK    bool
	}{
		{0, 0, true},
		{40, 0, true},
		{160, 4, true},
		{161, 4, true}, // next frame is 200, still after sync sample 4
		{330, 8, true},
		{360, 8, true},
		{361, 0, false},
		{1000, 0, false},
	}
	for _, tt := range tests {
		start, ok := ix.SyncBefore(tt.pts)
		assert.Equal(t, tt.wantOK, ok, "pts %d", tt.pts)
		if tt.wantOK {
			assert.Equal(t, tt.wantStart, start, "pts %d", tt.pts)
		}
	}
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(bytes.NewReader([]byte("definitely not an mp4 file")))
	assert.Error(t, err)
}
