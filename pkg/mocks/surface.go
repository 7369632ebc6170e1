package mocks

import (
	"sync"
	"time"

	"github.com/user/vidplay/pkg/ports"
)

// Surface is a mock implementation of ports.Surface that records requests.
type Surface struct {
	DrawFunc func(req ports.DrawRequest) error

	mu       sync.Mutex
	requests []ports.DrawRequest
}

func (m *Surface) Draw(req ports.DrawRequest) error {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.DrawFunc != nil {
		return m.DrawFunc(req)
	}
	return nil
}

// Requests returns the recorded draw requests.
func (m *Surface) Requests() []ports.DrawRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.DrawRequest(nil), m.requests...)
}

var _ ports.Surface = (*Surface)(nil)

// Shell is a mock implementation of ports.Shell that records redraw requests
// and published messages.
type Shell[M any] struct {
	mu       sync.Mutex
	Redraws  []time.Time
	Messages []M
}

func (m *Shell[M]) RequestRedraw(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Redraws = append(m.Redraws, at)
}

func (m *Shell[M]) Publish(msg M) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, msg)
}

// Reset clears the recorded calls.
func (m *Shell[M]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Redraws = nil
	m.Messages = nil
}

var _ ports.Shell[string] = (*Shell[string])(nil)
