package ports

import (
	"image"
)

// DebugSink abstracts debug output for playback sessions.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveProbeJSON saves stream metadata as JSON.
	SaveProbeJSON(data []byte) error

	// SaveSnapshot saves a composed surface image.
	SaveSnapshot(index int, img image.Image) error

	// SaveReport saves the session report.
	SaveReport(data []byte) error
}
