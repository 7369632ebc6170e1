package mocks

import (
	"image"
	"sync"

	"github.com/user/vidplay/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	ProbeJSON []byte
	Report    []byte
	Snapshots map[int]image.Image
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:   enabled,
		Snapshots: make(map[int]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveProbeJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProbeJSON = data
	return nil
}

func (m *DebugSink) SaveSnapshot(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Snapshots[index] = img
	return nil
}

func (m *DebugSink) SaveReport(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Report = data
	return nil
}

// SnapshotCount returns the number of saved snapshots.
func (m *DebugSink) SnapshotCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Snapshots)
}

var _ ports.DebugSink = (*DebugSink)(nil)
