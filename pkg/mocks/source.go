package mocks

import (
	"encoding/binary"
	"errors"
	"image"
	"math"
	"sync"
	"time"

	"github.com/user/vidplay/pkg/ports"
)

// ErrOutOfRange is returned by VideoSource seeks past the last frame.
var ErrOutOfRange = errors.New("mock: seek out of range")

// VideoSource is a scripted ports.VideoSource with a millisecond time base.
// Every frame carries its PTS in the first 8 pixel bytes, see FramePTS.
type VideoSource struct {
	Width  int
	Height int
	FPS    float64
	Frames int64
	// Delay is slept before every decode, outside the mock's lock.
	Delay time.Duration

	// DecodeNextFunc replaces decoding of the frame at index when set.
	DecodeNextFunc func(index int64) (ports.RawFrame, error)
	SeekFunc       func(millis int64) error
	CloseFunc      func() error

	mu          sync.Mutex
	next        int64
	decodeCalls int
	returned    []int64
	seeks       []int64
	closed      bool
}

// NewVideoSource creates a source of frames frames at fps.
func NewVideoSource(width, height int, fps float64, frames int64) *VideoSource {
	return &VideoSource{Width: width, Height: height, FPS: fps, Frames: frames}
}

// PTS returns the timestamp of frame index in milliseconds.
func (m *VideoSource) PTS(index int64) int64 {
	return int64(math.Round(float64(index) * 1000 / m.FPS))
}

func (m *VideoSource) Size() (int, int)         { return m.Width, m.Height }
func (m *VideoSource) FrameRate() float64       { return m.FPS }
func (m *VideoSource) TimeBase() ports.Rational { return ports.Rational{Num: 1, Den: 1000} }

func (m *VideoSource) Duration() time.Duration {
	return time.Duration(m.PTS(m.Frames)) * time.Millisecond
}

func (m *VideoSource) DecodeNext() (ports.RawFrame, error) {
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}

	m.mu.Lock()
	m.decodeCalls++
	index := m.next
	m.mu.Unlock()

	var (
		frame ports.RawFrame
		err   error
	)
	switch {
	case m.DecodeNextFunc != nil:
		frame, err = m.DecodeNextFunc(index)
	case index >= m.Frames:
		err = ports.ErrEndOfStream
	default:
		pts := m.PTS(index)
		frame = ports.RawFrame{Image: FrameImage(m.Width, m.Height, pts), PTS: pts}
	}
	if err != nil {
		return frame, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = index + 1
	m.returned = append(m.returned, frame.PTS)
	return frame, nil
}

func (m *VideoSource) Seek(millis int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeks = append(m.seeks, millis)
	if m.SeekFunc != nil {
		return m.SeekFunc(millis)
	}
	index := int64(math.Ceil(float64(millis) * m.FPS / 1000))
	for index > 0 && m.PTS(index-1) >= millis {
		index--
	}
	for index < m.Frames && m.PTS(index) < millis {
		index++
	}
	if index >= m.Frames {
		return ErrOutOfRange
	}
	m.next = index
	return nil
}

func (m *VideoSource) SeekToFrame(frame int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if frame >= m.Frames {
		return ErrOutOfRange
	}
	m.next = frame
	return nil
}

func (m *VideoSource) SeekToStart() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = 0
	return nil
}

func (m *VideoSource) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// DecodeCalls returns how many times DecodeNext was entered.
func (m *VideoSource) DecodeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decodeCalls
}

// Returned returns the PTS of every successfully decoded frame in order.
func (m *VideoSource) Returned() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.returned...)
}

// Seeks returns the millisecond targets passed to Seek.
func (m *VideoSource) Seeks() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.seeks...)
}

// Closed reports whether Close was called.
func (m *VideoSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ ports.VideoSource = (*VideoSource)(nil)

// FrameImage returns an RGBA picture whose first 8 bytes hold pts and whose
// remaining bytes are byte(pts).
func FrameImage(width, height int, pts int64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = byte(pts)
	}
	binary.LittleEndian.PutUint64(img.Pix[:8], uint64(pts))
	return img
}

// FramePTS decodes the PTS stored by FrameImage and reports whether the rest
// of the buffer is consistent with it.
func FramePTS(pix []byte) (int64, bool) {
	if len(pix) < 8 {
		return 0, false
	}
	pts := int64(binary.LittleEndian.Uint64(pix[:8]))
	for _, b := range pix[8:] {
		if b != byte(pts) {
			return pts, false
		}
	}
	return pts, true
}
