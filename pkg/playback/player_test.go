package playback

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/vidplay/pkg/mocks"
)

type message struct {
	kind string
	err  error
}

// newTestPlayer keeps the decode loop parked so tests drive the shared state
// directly.
func newTestPlayer(t *testing.T) (*Player[message], *Video) {
	t.Helper()
	v := openVideo(t, mocks.NewVideoSource(8, 6, 25, 100), WithStartPaused(true))
	p := NewPlayer[message](v).
		OnNewFrame(message{kind: "frame"}).
		OnEndOfStream(message{kind: "eos"}).
		OnError(func(err error) message { return message{kind: "error", err: err} })
	return p, v
}

func TestPlayer_PausedTickDoesNothing(t *testing.T) {
	p, _ := newTestPlayer(t)
	shell := &mocks.Shell[message]{}

	p.Update(time.Now(), shell)

	assert.Empty(t, shell.Redraws)
	assert.Empty(t, shell.Messages)
}

func TestPlayer_TickSchedulesAndNotifies(t *testing.T) {
	p, v := newTestPlayer(t)
	shell := &mocks.Shell[message]{}
	// Storing the flag without a wake leaves the decode loop parked.
	v.state.paused.Store(false)

	interval := 40 * time.Millisecond
	t0 := time.Unix(1000, 0)

	p.Update(t0, shell)
	require.Len(t, shell.Redraws, 1)
	assert.Equal(t, t0.Add(interval), shell.Redraws[0])
	assert.Equal(t, []message{{kind: "frame"}}, shell.Messages)

	// Late by 5ms: the next deadline stays on the grid.
	p.Update(t0.Add(interval+5*time.Millisecond), shell)
	assert.Equal(t, t0.Add(2*interval), shell.Redraws[1])

	// Several intervals late: missed ticks are skipped.
	p.Update(t0.Add(5*interval+time.Millisecond), shell)
	assert.Equal(t, t0.Add(6*interval), shell.Redraws[2])

	// Early tick keeps the pending deadline.
	p.Update(t0.Add(5*interval+2*time.Millisecond), shell)
	assert.Equal(t, t0.Add(6*interval), shell.Redraws[3])

	assert.Len(t, shell.Messages, 4, "one notification per unpaused tick")
}

func TestPlayer_EndOfStreamPublishedOnce(t *testing.T) {
	p, v := newTestPlayer(t)
	shell := &mocks.Shell[message]{}

	require.True(t, v.state.halt(v.state.generation(), nil))
	p.Update(time.Now(), shell)
	p.Update(time.Now(), shell)

	assert.Equal(t, []message{{kind: "eos"}}, shell.Messages)
	assert.Empty(t, shell.Redraws, "end of stream pauses presentation")
}

func TestPlayer_StoppedIgnoresResume(t *testing.T) {
	p, v := newTestPlayer(t)
	shell := &mocks.Shell[message]{}

	require.True(t, v.state.halt(v.state.generation(), errors.New("boom")))
	v.Resume()
	p.Update(time.Now(), shell)
	p.Update(time.Now(), shell)

	require.Len(t, shell.Messages, 1)
	assert.Equal(t, "error", shell.Messages[0].kind)
	assert.Empty(t, shell.Redraws)

	// A seek re-arms the loop but leaves it paused until the next resume.
	require.NoError(t, v.Seek(AtTime(0)))
	assert.False(t, v.state.isHalted())
	assert.True(t, v.IsPaused())
}

func TestPlayer_ErrorPublishedOnce(t *testing.T) {
	p, v := newTestPlayer(t)
	shell := &mocks.Shell[message]{}

	boom := errors.New("boom")
	require.True(t, v.state.halt(v.state.generation(), boom))
	p.Update(time.Now(), shell)
	p.Update(time.Now(), shell)

	require.Len(t, shell.Messages, 1)
	assert.Equal(t, "error", shell.Messages[0].kind)
	assert.Equal(t, boom, shell.Messages[0].err)

	// A second failure after a seek is reported again.
	require.NoError(t, v.Seek(AtTime(0)))
	require.True(t, v.state.halt(v.state.generation(), boom))
	p.Update(time.Now(), shell)
	assert.Len(t, shell.Messages, 2)
}

func TestPlayer_DrawDirtyOnlyOnNewFrame(t *testing.T) {
	p, v := newTestPlayer(t)
	surface := &mocks.Surface{}

	// Nothing published yet.
	require.NoError(t, p.Draw(surface))
	assert.Empty(t, surface.Requests())

	frame := make([]byte, 8*6*4)
	v.state.publishFrame(frame, 7, v.state.generation())

	require.NoError(t, p.Draw(surface))
	require.NoError(t, p.Draw(surface))

	reqs := surface.Requests()
	require.Len(t, reqs, 2)
	assert.True(t, reqs[0].Dirty)
	assert.False(t, reqs[1].Dirty)
	for _, req := range reqs {
		assert.Equal(t, v.ID(), req.ID)
		assert.Equal(t, 8, req.Width)
		assert.Equal(t, 6, req.Height)
		assert.Len(t, req.Frame, 8*6*4)
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name             string
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{"wide into square", 1920, 1080, 640, 640, 640, 360},
		{"tall into square", 1080, 1920, 640, 640, 360, 640},
		{"exact", 320, 240, 640, 480, 640, 480},
		{"upscale", 16, 9, 160, 160, 160, 90},
		{"degenerate", 0, 10, 100, 100, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Fit(tt.w, tt.h, tt.maxW, tt.maxH)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestNextDeadline(t *testing.T) {
	t0 := time.Unix(0, 0)
	iv := 33333333 * time.Nanosecond

	next := nextDeadline(t0, time.Time{}, iv)
	assert.Equal(t, t0.Add(iv), next)

	// Ticks arriving exactly on deadlines never drift from the grid.
	for i := 0; i < 1000; i++ {
		next = nextDeadline(next, next, iv)
	}
	assert.Equal(t, t0.Add(1001*iv), next)
	assert.True(t, nextDeadline(next, next, iv).After(next))
}
