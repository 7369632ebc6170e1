// Package rgbaconv converts decoded pictures into tightly packed RGBA display
// buffers, scaling them to a fixed output size.
package rgbaconv

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/user/vidplay/pkg/ports"
)

// ErrEmptyImage is returned for nil or zero-sized pictures.
var ErrEmptyImage = errors.New("rgbaconv: empty image")

// Quality selects the scaling filter.
type Quality int

const (
	// QualityFast uses nearest-neighbor sampling.
	QualityFast Quality = iota
	// QualityBalanced uses approximate bilinear filtering.
	QualityBalanced
	// QualityBest uses Catmull-Rom filtering.
	QualityBest
)

// ParseQuality maps a config value to a Quality.
func ParseQuality(s string) (Quality, error) {
	switch s {
	case "fast":
		return QualityFast, nil
	case "", "balanced":
		return QualityBalanced, nil
	case "best":
		return QualityBest, nil
	}
	return 0, fmt.Errorf("rgbaconv: unknown scale quality %q", s)
}

func (q Quality) scaler() draw.Scaler {
	switch q {
	case QualityFast:
		return draw.NearestNeighbor
	case QualityBest:
		return draw.CatmullRom
	default:
		return draw.ApproxBiLinear
	}
}

// Converter implements ports.FrameConverter for a fixed output size.
type Converter struct {
	width   int
	height  int
	quality Quality
}

// New returns a converter producing width x height pictures.
func New(width, height int, quality Quality) *Converter {
	return &Converter{width: width, height: height, quality: quality}
}

// Size returns the output dimensions.
func (c *Converter) Size() (int, int) {
	return c.width, c.height
}

// Convert draws img into a new RGBA buffer. Pictures that already have the
// output size are copied without filtering.
func (c *Converter) Convert(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if c.width <= 0 || c.height <= 0 {
		return nil, fmt.Errorf("rgbaconv: invalid output size %dx%d", c.width, c.height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	src := img.Bounds()
	if src.Dx() == c.width && src.Dy() == c.height {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
	} else {
		c.quality.scaler().Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	}
	return dst.Pix, nil
}

var _ ports.FrameConverter = (*Converter)(nil)
