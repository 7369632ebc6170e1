//go:build !aom || !cgo

package av1decoder

import "image"

const libaomLinked = false

type stubBackend struct{}

func newBackend() backend {
	return stubBackend{}
}

func (stubBackend) init() error                               { return ErrNotAvailable }
func (stubBackend) decode(data []byte) ([]image.Image, error) { return nil, ErrNotAvailable }
func (stubBackend) flush() ([]image.Image, error)             { return nil, ErrNotAvailable }
func (stubBackend) close()                                    {}
