package playback

import (
	"time"

	"github.com/user/vidplay/pkg/ports"
)

// Player presents a Video on a host that delivers refresh ticks. It is used
// from the host's event goroutine only.
type Player[M any] struct {
	video *Video

	onNewFrame    func() M
	onEndOfStream func() M
	onError       func(error) M

	next     time.Time
	eosSeen  uint64
	errSeen  uint64
	interval time.Duration
}

// NewPlayer creates a Player for v.
func NewPlayer[M any](v *Video) *Player[M] {
	return &Player[M]{
		video:    v,
		interval: frameInterval(v.FrameRate()),
	}
}

// OnNewFrame sets the message published once per unpaused tick.
func (p *Player[M]) OnNewFrame(msg M) *Player[M] {
	p.onNewFrame = func() M { return msg }
	return p
}

// OnEndOfStream sets the message published once when the stream ends.
func (p *Player[M]) OnEndOfStream(msg M) *Player[M] {
	p.onEndOfStream = func() M { return msg }
	return p
}

// OnError sets the constructor of the message published once per decode error.
func (p *Player[M]) OnError(fn func(error) M) *Player[M] {
	p.onError = fn
	return p
}

// Video returns the presented video.
func (p *Player[M]) Video() *Video { return p.video }

// Update handles one refresh tick at now.
func (p *Player[M]) Update(now time.Time, shell ports.Shell[M]) {
	l := p.video.state.latched()
	if l.eosCount != p.eosSeen {
		p.eosSeen = l.eosCount
		if l.eos && p.onEndOfStream != nil {
			shell.Publish(p.onEndOfStream())
		}
	}
	if l.errCount != p.errSeen {
		p.errSeen = l.errCount
		if l.err != nil && p.onError != nil {
			shell.Publish(p.onError(l.err))
		}
	}

	if p.video.IsPaused() {
		return
	}

	p.next = nextDeadline(now, p.next, p.interval)
	shell.RequestRedraw(p.next)

	if p.onNewFrame != nil {
		shell.Publish(p.onNewFrame())
	}
}

// Draw hands the latest frame to s. Pixels are marked dirty only when a new
// frame was published since the previous Draw.
func (p *Player[M]) Draw(s ports.Surface) error {
	// Clear ready before reading the slot so a frame published in between is
	// uploaded on the next draw rather than lost.
	dirty := p.video.state.takeReady()
	frame, _ := p.video.state.snapshot()
	if frame == nil {
		return nil
	}
	return s.Draw(ports.DrawRequest{
		ID:     p.video.id,
		Frame:  frame,
		Width:  p.video.width,
		Height: p.video.height,
		Dirty:  dirty,
	})
}

// Fit returns the largest size with the video's aspect ratio that fits into
// maxWidth x maxHeight.
func (p *Player[M]) Fit(maxWidth, maxHeight int) (width, height int) {
	return Fit(p.video.width, p.video.height, maxWidth, maxHeight)
}

// Fit scales width x height to fit into maxWidth x maxHeight keeping the
// aspect ratio. Non-positive inputs yield 0x0.
func Fit(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 || maxWidth <= 0 || maxHeight <= 0 {
		return 0, 0
	}
	// Compare width/height against maxWidth/maxHeight without floats.
	if int64(width)*int64(maxHeight) >= int64(height)*int64(maxWidth) {
		h := int(int64(height) * int64(maxWidth) / int64(width))
		return maxWidth, max(h, 1)
	}
	w := int(int64(width) * int64(maxHeight) / int64(height))
	return max(w, 1), maxHeight
}

func frameInterval(fps float64) time.Duration {
	return time.Duration(float64(time.Second) / fps)
}

// nextDeadline returns the first tick boundary strictly after now on the
// grid anchored at prev. A missed boundary is skipped rather than replayed,
// and the phase of the grid is kept so ticks do not drift.
func nextDeadline(now, prev time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		return now
	}
	if prev.IsZero() {
		return now.Add(interval)
	}
	if prev.After(now) {
		return prev
	}
	late := now.Sub(prev) % interval
	return now.Add(interval - late)
}
