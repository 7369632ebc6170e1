package mocks

import (
	"errors"
	"image"
	"sync"

	"github.com/user/vidplay/pkg/ports"
)

// FrameDecoder is a mock ports.FrameDecoder. It holds back Latency pictures
// before emitting, like a codec with frame reordering, and paints each
// picture with the low byte of its sample's DTS. Samples for which Drop
// returns true come back as ports.ErrFrameDropped instead of a picture.
type FrameDecoder struct {
	Latency int
	Drop    func(s ports.Sample) bool

	SendSampleFunc func(s ports.Sample) error

	mu         sync.Mutex
	track      ports.TrackInfo
	configured bool
	flushed    bool
	pending    []ports.Sample
	sent       []ports.Sample
	resets     int
	closed     bool
}

func (m *FrameDecoder) Configure(track ports.TrackInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track = track
	m.configured = true
	return nil
}

func (m *FrameDecoder) SendSample(s ports.Sample) error {
	if m.SendSampleFunc != nil {
		if err := m.SendSampleFunc(s); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.configured {
		return errors.New("mock: decoder not configured")
	}
	m.flushed = false
	m.pending = append(m.pending, s)
	m.sent = append(m.sent, s)
	return nil
}

func (m *FrameDecoder) ReceiveFrame() (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 || (!m.flushed && len(m.pending) <= m.Latency) {
		if m.flushed {
			return nil, ports.ErrEndOfStream
		}
		return nil, ports.ErrNeedInput
	}
	s := m.pending[0]
	m.pending = m.pending[1:]
	if m.Drop != nil && m.Drop(s) {
		return nil, ports.ErrFrameDropped
	}
	img := image.NewGray(image.Rect(0, 0, max(m.track.Width, 1), max(m.track.Height, 1)))
	for i := range img.Pix {
		img.Pix[i] = byte(s.DTS)
	}
	return img, nil
}

func (m *FrameDecoder) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushed = true
	return nil
}

func (m *FrameDecoder) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
	m.flushed = false
	m.resets++
	return nil
}

func (m *FrameDecoder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Sent returns every sample passed to SendSample.
func (m *FrameDecoder) Sent() []ports.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.Sample(nil), m.sent...)
}

// Resets returns the number of Reset calls.
func (m *FrameDecoder) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// Track returns the configured track.
func (m *FrameDecoder) Track() ports.TrackInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.track
}

// Closed reports whether Close was called.
func (m *FrameDecoder) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ ports.FrameDecoder = (*FrameDecoder)(nil)
