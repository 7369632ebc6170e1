// Package texturesurface is a software rendering backend for playback. It
// keeps one texture per video, re-uploads it only when the frame changed and
// composes it onto a canvas with an optional status line.
package texturesurface

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/user/vidplay/pkg/playback"
	"github.com/user/vidplay/pkg/ports"
)

// ErrBadFrame is returned for frames whose size does not match their
// dimensions.
var ErrBadFrame = errors.New("texturesurface: frame size mismatch")

// Options configures a Surface.
type Options struct {
	// Width and Height of the composed canvas. Zero uses the frame size.
	Width  int
	Height int
	// Background fills the letterbox area. Nil means black.
	Background color.Color
	// FontPath is a TrueType font for the status line. Empty uses gg's
	// built-in face.
	FontPath string
	// Sink receives every SnapshotEvery-th composed frame when enabled.
	Sink          ports.DebugSink
	SnapshotEvery int
}

// Stats counts surface activity.
type Stats struct {
	Draws     uint64
	Uploads   uint64
	Snapshots int
}

type texture struct {
	img *image.RGBA
}

// Surface implements ports.Surface on top of a ports.Renderer.
type Surface struct {
	renderer ports.Renderer
	opts     Options

	mu       sync.Mutex
	textures map[uint64]*texture
	status   string
	progress float64
	last     image.Image
	stats    Stats
}

// New creates a surface that composes with r.
func New(r ports.Renderer, opts Options) *Surface {
	if opts.Background == nil {
		opts.Background = color.Black
	}
	return &Surface{
		renderer: r,
		opts:     opts,
		textures: make(map[uint64]*texture),
		progress: -1,
	}
}

// SetStatus sets the status line drawn under the video. progress in [0, 1]
// draws a progress bar; negative hides it. An empty text hides the line.
func (s *Surface) SetStatus(text string, progress float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = text
	s.progress = min(progress, 1)
}

// Draw uploads the frame when needed and composes a new canvas.
func (s *Surface) Draw(req ports.DrawRequest) error {
	if req.Width <= 0 || req.Height <= 0 || len(req.Frame) != req.Width*req.Height*4 {
		return fmt.Errorf("%w: %d bytes for %dx%d", ErrBadFrame, len(req.Frame), req.Width, req.Height)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tex := s.upload(req)
	img := s.compose(tex.img)
	s.last = img
	s.stats.Draws++

	if sink := s.opts.Sink; sink != nil && sink.Enabled() && s.opts.SnapshotEvery > 0 &&
		(s.stats.Draws-1)%uint64(s.opts.SnapshotEvery) == 0 {
		if err := sink.SaveSnapshot(s.stats.Snapshots, img); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		s.stats.Snapshots++
	}
	return nil
}

// upload refreshes the texture for req.ID. Clean requests reuse the texture
// unless it is missing or has another size.
func (s *Surface) upload(req ports.DrawRequest) *texture {
	tex, ok := s.textures[req.ID]
	sameSize := ok && tex.img.Rect.Dx() == req.Width && tex.img.Rect.Dy() == req.Height
	if ok && sameSize && !req.Dirty {
		return tex
	}
	if !sameSize {
		tex = &texture{img: image.NewRGBA(image.Rect(0, 0, req.Width, req.Height))}
		s.textures[req.ID] = tex
	}
	copy(tex.img.Pix, req.Frame)
	s.stats.Uploads++
	return tex
}

func (s *Surface) compose(frame *image.RGBA) image.Image {
	fw, fh := frame.Rect.Dx(), frame.Rect.Dy()
	cw, ch := s.opts.Width, s.opts.Height
	if cw <= 0 || ch <= 0 {
		cw, ch = fw, fh
	}
	canvas := s.renderer.CreateCanvas(cw, ch, s.opts.Background)

	w, h := playback.Fit(fw, fh, cw, ch)
	x, y := (cw-w)/2, (ch-h)/2
	if w == fw && h == fh {
		canvas.DrawImage(frame, x, y)
	} else {
		canvas.DrawImageScaled(frame, x, y, w, h)
	}

	if s.status != "" {
		s.drawStatus(canvas, cw, ch)
	}
	return canvas.ToImage()
}

func (s *Surface) drawStatus(canvas ports.Canvas, cw, ch int) {
	style := ports.TextStyle{
		FontSize: max(float64(ch)/24, 10),
		FontPath: s.opts.FontPath,
		Color:    color.White,
		Align:    ports.AlignLeft,
	}
	_, th := canvas.MeasureText(s.status, style)
	band := int(th*1.6) + 4
	top := ch - band

	canvas.DrawRect(0, top, cw, band, color.RGBA{A: 160})
	canvas.DrawText(s.status, 8, top+band/2, style)

	if s.progress >= 0 {
		end := int(s.progress * float64(cw))
		canvas.DrawLine(0, top, cw, top, color.RGBA{R: 80, G: 80, B: 80, A: 255}, 2)
		canvas.DrawLine(0, top, end, top, color.RGBA{R: 230, G: 40, B: 40, A: 255}, 2)
	}
}

// Release drops the texture of a video that is no longer shown.
func (s *Surface) Release(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.textures, id)
}

// Frame returns the last composed canvas, or nil before the first Draw.
func (s *Surface) Frame() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Stats returns the activity counters.
func (s *Surface) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

var _ ports.Surface = (*Surface)(nil)
