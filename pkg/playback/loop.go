package playback

import (
	"errors"
	"fmt"

	"github.com/user/vidplay/pkg/ports"
)

type loopState int

const (
	stateDecoding loopState = iota
	stateWaiting
	stateStopped
)

func (s loopState) String() string {
	switch s {
	case stateDecoding:
		return "decoding"
	case stateWaiting:
		return "waiting"
	case stateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// decodeLoop is the producer side: it pulls frames from the source, converts
// them and publishes them into the shared slot.
type decodeLoop struct {
	state     *sharedState
	source    ports.VideoSource
	converter ports.FrameConverter
	frameSize int
	logger    ports.Logger

	stop chan struct{}
	done chan struct{}
}

func (l *decodeLoop) run() {
	defer close(l.done)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrConcurrency, r)
			l.logger.Error("Decode loop panicked: %v", r)
			l.state.poison(err)
		}
	}()

	st := stateDecoding
	for {
		select {
		case <-l.stop:
			return
		default:
		}

		switch st {
		case stateDecoding:
			if l.state.isPaused() {
				st = l.transition(st, stateWaiting)
				continue
			}
			st = l.transition(st, l.step())

		case stateWaiting, stateStopped:
			select {
			case <-l.stop:
				return
			case <-l.state.wake:
			}
			// Re-check both flags after every wake; a coalesced signal may
			// stand for several pause changes.
			switch {
			case l.state.isHalted():
				st = l.transition(st, stateStopped)
			case l.state.isPaused():
				st = l.transition(st, stateWaiting)
			default:
				st = l.transition(st, stateDecoding)
			}
		}
	}
}

func (l *decodeLoop) transition(from, to loopState) loopState {
	if from != to {
		l.logger.Debug("Decode loop %s -> %s", from, to)
	}
	return to
}

// step decodes, converts and publishes one frame.
func (l *decodeLoop) step() loopState {
	frame, gen, err := l.decode()
	switch {
	case errors.Is(err, ports.ErrEndOfStream):
		if l.state.halt(gen, nil) {
			l.logger.Debug("End of stream reached")
			return stateStopped
		}
		return stateDecoding
	case err != nil:
		return l.fail(gen, fmt.Errorf("%w: %w", ErrDecode, err))
	}

	pixels, err := l.converter.Convert(frame.Image)
	if err != nil {
		return l.fail(gen, fmt.Errorf("%w: convert frame: %w", ErrDecode, err))
	}
	if len(pixels) != l.frameSize {
		return l.fail(gen, fmt.Errorf("%w: converted frame is %d bytes, want %d", ErrDecode, len(pixels), l.frameSize))
	}

	l.state.publishFrame(pixels, frame.PTS, gen)
	return stateDecoding
}

// decode runs one DecodeNext under exclusive decoder access. The returned
// generation identifies the seek epoch the frame belongs to.
func (l *decodeLoop) decode() (ports.RawFrame, uint64, error) {
	l.state.decoderMu.Lock()
	defer l.state.decoderMu.Unlock()

	l.state.decodes.Add(1)
	frame, err := l.source.DecodeNext()
	return frame, l.state.generation(), err
}

func (l *decodeLoop) fail(gen uint64, err error) loopState {
	if !l.state.halt(gen, err) {
		// A seek landed after this frame was decoded; the error belongs to
		// the old position.
		return stateDecoding
	}
	l.logger.Error("Decoding stopped: %v", err)
	return stateStopped
}
