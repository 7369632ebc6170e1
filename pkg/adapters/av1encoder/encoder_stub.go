//go:build !aom || !cgo

package av1encoder

import (
	"image"

	"github.com/user/vidplay/pkg/ports"
)

const libaomLinked = false

type stubBackend struct{}

func newBackend() backend {
	return stubBackend{}
}

func (stubBackend) init(int, int, float64, ports.EncoderOptions) error { return ErrNotAvailable }

func (stubBackend) encode(*image.YCbCr, int64, int64, bool) ([]packet, error) {
	return nil, ErrNotAvailable
}

func (stubBackend) flush() ([]packet, error) { return nil, ErrNotAvailable }
func (stubBackend) close()                   {}
