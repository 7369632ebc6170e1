package mp4writer

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/user/vidplay/pkg/ports"
)

// PatternColor is the background of pattern frame index. Red steps by an odd
// amount so 256 consecutive frames stay distinguishable.
func PatternColor(index int) color.RGBA {
	return color.RGBA{
		R: uint8(index * 7),
		G: uint8(64 + index*13),
		B: uint8(255 - index*5),
		A: 255,
	}
}

// Pattern draws one frame of the test sequence. The top band holds a bar that
// sweeps across once per second and the bottom band a frame label.
func Pattern(r ports.Renderer, width, height, index int, ts time.Duration) image.Image {
	canvas := r.CreateCanvas(width, height, PatternColor(index))

	band := max(height/8, 1)
	canvas.DrawRect(0, 0, width, band, color.Black)
	barW := max(width/10, 1)
	frac := float64(ts%time.Second) / float64(time.Second)
	canvas.DrawRect(int(frac*float64(width-barW)), 0, barW, band, color.White)

	canvas.DrawRect(0, height-band, width, band, color.Black)
	style := ports.TextStyle{
		FontSize: float64(band) * 0.7,
		Color:    color.White,
		Align:    ports.AlignLeft,
	}
	canvas.DrawText(fmt.Sprintf("#%d  %.3fs", index, ts.Seconds()), band/2, height-band/2, style)

	return canvas.ToImage()
}

// Synthesize encodes frames pattern frames at fps and returns the file.
func Synthesize(enc ports.VideoEncoder, r ports.Renderer, width, height int, fps float64, frames int, opts ports.EncoderOptions) ([]byte, error) {
	if err := enc.Begin(width, height, fps, opts); err != nil {
		return nil, err
	}
	for i := 0; i < frames; i++ {
		ms := int(float64(i)*1000/fps + 0.5)
		img := Pattern(r, width, height, i, time.Duration(ms)*time.Millisecond)
		if err := enc.EncodeFrame(img, ms); err != nil {
			return nil, fmt.Errorf("encode frame %d: %w", i, err)
		}
	}
	return enc.End()
}
