package playback

import (
	"fmt"
	"time"
)

// Position is a seek target: either a time offset or a frame index.
type Position struct {
	frame  int64
	offset time.Duration
	byTime bool
}

// AtTime returns a position at the given offset from the start of the stream.
func AtTime(d time.Duration) Position {
	return Position{offset: d, byTime: true}
}

// AtFrame returns a position at the given zero-based frame index.
func AtFrame(n int64) Position {
	return Position{frame: n}
}

// IsTime reports whether p is a time offset.
func (p Position) IsTime() bool {
	return p.byTime
}

// String formats the position for logs.
func (p Position) String() string {
	if p.byTime {
		return p.offset.String()
	}
	return fmt.Sprintf("frame %d", p.frame)
}

// millis converts a time position into the decoder's millisecond unit.
func (p Position) millis() (int64, error) {
	if p.offset < 0 {
		return 0, fmt.Errorf("%w: negative offset %s", ErrConversion, p.offset)
	}
	return p.offset.Milliseconds(), nil
}

func (p Position) frameIndex() (int64, error) {
	if p.frame < 0 {
		return 0, fmt.Errorf("%w: negative frame %d", ErrConversion, p.frame)
	}
	return p.frame, nil
}
