package mocks

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/user/vidplay/pkg/ports"
)

// FrameConverter is a mock implementation of ports.FrameConverter. By default
// it copies the pixels of *image.RGBA input.
type FrameConverter struct {
	ConvertFunc func(img image.Image) ([]byte, error)

	calls atomic.Int64
}

func (m *FrameConverter) Convert(img image.Image) ([]byte, error) {
	m.calls.Add(1)
	if m.ConvertFunc != nil {
		return m.ConvertFunc(img)
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		return nil, fmt.Errorf("mock: unsupported image %T", img)
	}
	return append([]byte(nil), rgba.Pix...), nil
}

// Calls returns the number of Convert calls.
func (m *FrameConverter) Calls() int64 {
	return m.calls.Load()
}

var _ ports.FrameConverter = (*FrameConverter)(nil)
