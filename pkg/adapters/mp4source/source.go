// Package mp4source implements ports.VideoSource for MP4 files on top of a
// send/receive frame decoder.
package mp4source

import (
	"container/heap"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/user/vidplay/pkg/adapters/logger"
	"github.com/user/vidplay/pkg/adapters/mp4demux"
	"github.com/user/vidplay/pkg/ports"
)

// ErrOutOfRange is returned by seeks beyond the last frame.
var ErrOutOfRange = errors.New("mp4source: seek target beyond last frame")

// Option configures a Source.
type Option func(*Source)

// WithCloser closes c together with the source, typically the file that
// backs the index.
func WithCloser(c io.Closer) Option {
	return func(s *Source) {
		s.closer = c
	}
}

// WithLogger sets the logger.
func WithLogger(l ports.Logger) Option {
	return func(s *Source) {
		s.logger = l.WithComponent("mp4source")
	}
}

// WithOutputSize overrides the reported frame size. The converter paired
// with the source scales pictures to it.
func WithOutputSize(width, height int) Option {
	return func(s *Source) {
		if width > 0 && height > 0 {
			s.width, s.height = width, height
		}
	}
}

// Source decodes the video track of an indexed MP4 file.
type Source struct {
	index  *mp4demux.Index
	codec  ports.FrameDecoder
	closer io.Closer
	logger ports.Logger

	width  int
	height int

	next       int      // decode index of the next sample to send
	pending    ptsQueue // timestamps of samples sent but not yet received
	skipBefore int64    // frames presented before this PTS are discarded
	flushed    bool
}

// New configures codec for the indexed track and returns a source positioned
// at the first frame.
func New(index *mp4demux.Index, codec ports.FrameDecoder, opts ...Option) (*Source, error) {
	s := &Source{
		index:  index,
		codec:  codec,
		logger: logger.NewNoop(),
		width:  index.Track.Width,
		height: index.Track.Height,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := codec.Configure(index.Track.Info()); err != nil {
		return nil, fmt.Errorf("configure %s decoder: %w", index.Track.Codec, err)
	}
	s.logger.Debug("Indexed %d samples of %s track, %dx%d", index.Len(), index.Track.Codec, index.Track.Width, index.Track.Height)
	return s, nil
}

func (s *Source) Size() (int, int) {
	return s.width, s.height
}

func (s *Source) FrameRate() float64 {
	return s.index.FrameRate()
}

func (s *Source) Duration() time.Duration {
	return s.TimeBase().Duration(s.index.EndPTS())
}

func (s *Source) TimeBase() ports.Rational {
	return ports.Rational{Num: 1, Den: int64(s.index.Track.Timescale)}
}

// DecodeNext feeds samples until the codec emits a picture at or after the
// current seek target.
func (s *Source) DecodeNext() (ports.RawFrame, error) {
	for {
		img, err := s.codec.ReceiveFrame()
		switch {
		case err == nil:
			if s.pending.Len() == 0 {
				return ports.RawFrame{}, fmt.Errorf("mp4source: decoder emitted more pictures than samples")
			}
			pts := heap.Pop(&s.pending).(int64)
			if pts < s.skipBefore {
				continue
			}
			return ports.RawFrame{Image: img, PTS: pts}, nil

		case errors.Is(err, ports.ErrNeedInput):
			if s.next >= s.index.Len() {
				if s.flushed {
					return ports.RawFrame{}, ports.ErrEndOfStream
				}
				if err := s.codec.Flush(); err != nil {
					return ports.RawFrame{}, fmt.Errorf("flush decoder: %w", err)
				}
				s.flushed = true
				continue
			}
			if err := s.send(); err != nil {
				return ports.RawFrame{}, err
			}

		case errors.Is(err, ports.ErrFrameDropped):
			// Pictures come out in presentation order, so the earliest
			// pending timestamp is the one that will never be matched.
			if s.pending.Len() > 0 {
				pts := heap.Pop(&s.pending).(int64)
				s.logger.Debug("Decoder dropped the frame at %d", pts)
			}

		case errors.Is(err, ports.ErrEndOfStream):
			return ports.RawFrame{}, ports.ErrEndOfStream

		default:
			return ports.RawFrame{}, fmt.Errorf("receive frame: %w", err)
		}
	}
}

func (s *Source) send() error {
	sample, err := s.index.Sample(s.next)
	if err != nil {
		return err
	}
	if err := s.codec.SendSample(sample); err != nil {
		return fmt.Errorf("send sample %d: %w", s.next, err)
	}
	heap.Push(&s.pending, sample.PTS)
	s.next++
	return nil
}

// Seek positions at the first frame presented at or after millis.
func (s *Source) Seek(millis int64) error {
	ts := int64(s.index.Track.Timescale)
	pts := millis*ts/1000 + boolToInt64(millis*ts%1000 != 0)
	return s.seekPTS(pts)
}

// SeekToFrame positions at the frame-th frame in presentation order.
func (s *Source) SeekToFrame(frame int64) error {
	pts, ok := s.index.FramePTS(int(frame))
	if !ok {
		return fmt.Errorf("%w: frame %d of %d", ErrOutOfRange, frame, s.index.Len())
	}
	return s.seekPTS(pts)
}

// SeekToStart rewinds to the first frame.
func (s *Source) SeekToStart() error {
	return s.seekPTS(0)
}

func (s *Source) seekPTS(pts int64) error {
	start, ok := s.index.SyncBefore(pts)
	if !ok && pts < s.index.EndPTS() {
		// Inside the display time of the last frame.
		pts, _ = s.index.FramePTS(s.index.Len() - 1)
		start, ok = s.index.SyncBefore(pts)
	}
	if !ok {
		return fmt.Errorf("%w: pts %d, track ends at %d", ErrOutOfRange, pts, s.index.EndPTS())
	}
	if err := s.codec.Reset(); err != nil {
		return fmt.Errorf("reset decoder: %w", err)
	}
	s.next = start
	s.pending = s.pending[:0]
	s.skipBefore = pts
	s.flushed = false
	s.logger.Debug("Seek to pts %d starts at sample %d", pts, start)
	return nil
}

// Close releases the codec and the underlying reader.
func (s *Source) Close() error {
	var errs []error
	if err := s.codec.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close decoder: %w", err))
	}
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close reader: %w", err))
		}
	}
	return errors.Join(errs...)
}

var _ ports.VideoSource = (*Source)(nil)

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// ptsQueue is a min-heap of presentation timestamps. Codecs emit pictures in
// presentation order, so each picture takes the smallest pending timestamp.
type ptsQueue []int64

func (q ptsQueue) Len() int           { return len(q) }
func (q ptsQueue) Less(i, j int) bool { return q[i] < q[j] }
func (q ptsQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *ptsQueue) Push(x any)        { *q = append(*q, x.(int64)) }

func (q *ptsQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}
