package playback

import (
	"sync"
	"sync/atomic"
)

// sharedState is the only data touched by both the decode goroutine and the
// presentation side. The frame slot holds at most one frame.
type sharedState struct {
	// mu guards the frame slot and the latches below it. frame and timestamp
	// always change together.
	mu        sync.RWMutex
	frame     []byte
	timestamp int64
	gen       uint64 // bumped by every successful seek
	halted    bool   // loop is Stopped
	eos       bool
	err       error
	eosCount  uint64
	errCount  uint64

	ready  atomic.Bool
	paused atomic.Bool

	// wake carries at most one pending signal.
	wake chan struct{}

	// decoderMu gives exclusive access to the decoder for decode and seek.
	decoderMu sync.Mutex
	poisoned  atomic.Bool

	published atomic.Uint64
	dropped   atomic.Uint64
	decodes   atomic.Uint64
	seeks     atomic.Uint64
}

func newSharedState(paused bool) *sharedState {
	s := &sharedState{wake: make(chan struct{}, 1)}
	s.paused.Store(paused)
	return s
}

// publishFrame replaces the slot contents and marks them ready. Frames decoded
// before the most recent seek (gen mismatch) are discarded.
func (s *sharedState) publishFrame(frame []byte, ts int64, gen uint64) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.frame = frame
	s.timestamp = ts
	s.mu.Unlock()

	s.published.Add(1)
	if s.ready.Swap(true) {
		s.dropped.Add(1)
	}
	return true
}

// takeReady clears the ready flag and returns its previous value.
func (s *sharedState) takeReady() bool {
	return s.ready.Swap(false)
}

// snapshot returns the current frame and its timestamp as one pair.
func (s *sharedState) snapshot() ([]byte, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.timestamp
}

func (s *sharedState) position() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timestamp
}

// setPaused stores the paused flag. While the loop is Stopped the flag stays
// set; only rearm lets a later resume clear it.
func (s *sharedState) setPaused(paused bool) {
	s.mu.Lock()
	s.paused.Store(paused || s.halted)
	s.mu.Unlock()
	s.signal()
}

func (s *sharedState) isPaused() bool {
	return s.paused.Load()
}

// signal queues a wake for the decode loop without ever blocking. A pending
// signal already covers this one.
func (s *sharedState) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *sharedState) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// halt moves the loop to Stopped, latching EOS or err. It is a no-op when a
// seek happened after the failing decode (gen mismatch).
func (s *sharedState) halt(gen uint64, err error) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.halted = true
	if err == nil {
		s.eos = true
		s.eosCount++
	} else {
		s.err = err
		s.errCount++
	}
	s.paused.Store(true)
	s.mu.Unlock()

	s.signal()
	return true
}

// rearm records a successful seek: stale frames are rejected from now on and
// the Stopped latch is cleared. Callers hold decoderMu.
func (s *sharedState) rearm() {
	s.mu.Lock()
	s.gen++
	s.halted = false
	s.eos = false
	s.err = nil
	s.mu.Unlock()

	s.seeks.Add(1)
	s.signal()
}

func (s *sharedState) isHalted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.halted
}

// poison latches a concurrency failure. Unlike halt it ignores seeks: a
// poisoned video never decodes again.
func (s *sharedState) poison(err error) {
	s.poisoned.Store(true)
	s.mu.Lock()
	s.halted = true
	s.err = err
	s.errCount++
	s.paused.Store(true)
	s.mu.Unlock()
	s.signal()
}

// latches is a consistent view of the terminal conditions.
type latches struct {
	eos      bool
	err      error
	eosCount uint64
	errCount uint64
}

func (s *sharedState) latched() latches {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latches{eos: s.eos, err: s.err, eosCount: s.eosCount, errCount: s.errCount}
}
