// Package mp4demux indexes the video track of an MP4 file so samples can be
// read in any order.
package mp4demux

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/vidplay/pkg/adapters/codecdetect"
	"github.com/user/vidplay/pkg/ports"
)

var (
	// ErrNoVideoTrack is returned when the file has no usable video track.
	ErrNoVideoTrack = errors.New("mp4demux: no video track found")
	// ErrNoSamples is returned when the video track is empty.
	ErrNoSamples = errors.New("mp4demux: video track has no samples")
)

// Track describes the indexed video track.
type Track struct {
	ID        uint32
	Codec     codecdetect.Codec
	Width     int
	Height    int
	Timescale uint32
	// ParameterSets holds SPS/PPS in Annex-B form for H.264 tracks.
	ParameterSets []byte
}

// Info returns the codec configuration for a ports.FrameDecoder.
func (t Track) Info() ports.TrackInfo {
	return ports.TrackInfo{
		Codec:         string(t.Codec),
		Width:         t.Width,
		Height:        t.Height,
		Timescale:     t.Timescale,
		ParameterSets: t.ParameterSets,
	}
}

type sampleRef struct {
	dts      int64
	pts      int64
	duration int64
	keyframe bool
	offset   int64  // Progressive files: absolute file offset
	size     uint32 // Progressive files: byte count
	data     []byte // Fragmented files: payload kept in memory
}

// Index is the sample table of one video track. Timestamps are rebased so
// that the first presented sample has PTS 0.
type Index struct {
	Track Track

	samples []sampleRef // decode order
	byPTS   []int       // decode indices sorted by PTS
	end     int64       // PTS at which the last sample stops showing
	reader  io.ReadSeeker
}

// Open parses r and indexes its first video track. r must stay open for as
// long as samples are read from progressive files.
func Open(r io.ReadSeeker) (*Index, error) {
	mp4File, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}

	moov := mp4File.Moov
	if mp4File.Init != nil && mp4File.Init.Moov != nil {
		moov = mp4File.Init.Moov
	}
	if moov == nil {
		return nil, fmt.Errorf("mp4demux: no moov box found")
	}

	var trak *mp4.TrakBox
	for _, t := range moov.Traks {
		if codecdetect.IsVideoTrack(t) {
			trak = t
			break
		}
	}
	if trak == nil {
		return nil, ErrNoVideoTrack
	}

	ix := &Index{Track: describeTrack(trak), reader: r}

	if mp4File.IsFragmented() {
		var trex *mp4.TrexBox
		if moov.Mvex != nil {
			for _, t := range moov.Mvex.Trexs {
				if t.TrackID == ix.Track.ID {
					trex = t
					break
				}
			}
		}
		err = ix.indexFragments(mp4File, trex)
	} else {
		err = ix.indexSampleTable(trak.Mdia.Minf.Stbl)
	}
	if err != nil {
		return nil, err
	}
	if len(ix.samples) == 0 {
		return nil, ErrNoSamples
	}

	ix.finish()
	return ix, nil
}

func describeTrack(trak *mp4.TrakBox) Track {
	t := Track{
		ID:        trak.Tkhd.TrackID,
		Codec:     codecdetect.DetectFromTrack(trak),
		Timescale: 1000,
		// Fixed-point 16.16 dimensions; used when the sample entry has none.
		Width:  int(trak.Tkhd.Width >> 16),
		Height: int(trak.Tkhd.Height >> 16),
	}
	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale > 0 {
		t.Timescale = trak.Mdia.Mdhd.Timescale
	}

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		vse, ok := child.(*mp4.VisualSampleEntryBox)
		if !ok {
			continue
		}
		if vse.Width > 0 && vse.Height > 0 {
			t.Width = int(vse.Width)
			t.Height = int(vse.Height)
		}
		if vse.AvcC != nil {
			t.ParameterSets = annexBParameterSets(vse.AvcC)
		}
		break
	}
	return t
}

// annexBParameterSets joins SPS and PPS NAL units with start codes.
func annexBParameterSets(avcC *mp4.AvcCBox) []byte {
	var out []byte
	for _, sps := range avcC.SPSnalus {
		out = append(out, 0, 0, 0, 1)
		out = append(out, sps...)
	}
	for _, pps := range avcC.PPSnalus {
		out = append(out, 0, 0, 0, 1)
		out = append(out, pps...)
	}
	return out
}

func (ix *Index) indexSampleTable(stbl *mp4.StblBox) error {
	if stbl.Stsz == nil || stbl.Stsc == nil {
		return fmt.Errorf("mp4demux: missing stsz or stsc box")
	}
	if stbl.Stco == nil && stbl.Co64 == nil {
		return fmt.Errorf("mp4demux: no stco or co64 box")
	}

	syncSamples := make(map[uint32]bool)
	if stbl.Stss != nil {
		for _, nr := range stbl.Stss.SampleNumber {
			syncSamples[nr] = true
		}
	}

	count := stbl.Stsz.SampleNumber
	ix.samples = make([]sampleRef, 0, count)

	prevChunk := -1
	var offset uint64
	for nr := uint32(1); nr <= count; nr++ {
		chunkNr, firstInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
		if err != nil {
			return fmt.Errorf("mp4demux: sample %d: %w", nr, err)
		}
		if chunkNr != prevChunk {
			offset, err = chunkOffset(stbl, chunkNr)
			if err != nil {
				return fmt.Errorf("mp4demux: sample %d: %w", nr, err)
			}
			// Samples of a chunk are contiguous; skip those before nr.
			for s := uint32(firstInChunk); s < nr; s++ {
				offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
			}
			prevChunk = chunkNr
		}
		size := stbl.Stsz.GetSampleSize(int(nr))

		var decodeTime uint64
		var dur uint32
		if stbl.Stts != nil {
			decodeTime, dur = stbl.Stts.GetDecodeTime(nr)
		}
		var cto int64
		if stbl.Ctts != nil {
			cto = int64(stbl.Ctts.GetCompositionTimeOffset(nr))
		}

		ix.samples = append(ix.samples, sampleRef{
			dts:      int64(decodeTime),
			pts:      int64(decodeTime) + cto,
			duration: int64(dur),
			keyframe: stbl.Stss == nil || syncSamples[nr],
			offset:   int64(offset),
			size:     size,
		})
		offset += uint64(size)
	}
	return nil
}

func chunkOffset(stbl *mp4.StblBox, chunkNr int) (uint64, error) {
	if stbl.Stco != nil {
		off, err := stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return 0, fmt.Errorf("get chunk offset: %w", err)
		}
		return off, nil
	}
	if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
		return 0, fmt.Errorf("chunk nr %d out of range", chunkNr)
	}
	return stbl.Co64.ChunkOffset[chunkNr-1], nil
}

func (ix *Index) indexFragments(mp4File *mp4.File, trex *mp4.TrexBox) error {
	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != ix.Track.ID {
					continue
				}

				var currentTime uint64
				if traf.Tfdt != nil {
					currentTime = traf.Tfdt.BaseMediaDecodeTime()
				}

				samples, err := frag.GetFullSamples(trex)
				if err != nil {
					return fmt.Errorf("mp4demux: get samples: %w", err)
				}
				for i, s := range samples {
					ix.samples = append(ix.samples, sampleRef{
						dts:      int64(currentTime),
						pts:      int64(currentTime) + int64(s.CompositionTimeOffset),
						duration: int64(s.Dur),
						keyframe: s.Flags == mp4.SyncSampleFlags || (i == 0 && len(ix.samples) == 0),
						data:     s.Data,
					})
					currentTime += uint64(s.Dur)
				}
			}
		}
	}
	return nil
}

// finish rebases timestamps and builds the presentation order.
func (ix *Index) finish() {
	minPTS := ix.samples[0].pts
	for _, s := range ix.samples {
		minPTS = min(minPTS, s.pts)
	}
	for i := range ix.samples {
		s := &ix.samples[i]
		s.pts -= minPTS
		s.dts -= minPTS
		ix.end = max(ix.end, s.pts+s.duration)
	}
	// The first sample must be decodable on its own.
	ix.samples[0].keyframe = true

	ix.byPTS = make([]int, len(ix.samples))
	for i := range ix.byPTS {
		ix.byPTS[i] = i
	}
	sort.SliceStable(ix.byPTS, func(a, b int) bool {
		return ix.samples[ix.byPTS[a]].pts < ix.samples[ix.byPTS[b]].pts
	})
}

// Len returns the number of samples.
func (ix *Index) Len() int { return len(ix.samples) }

// EndPTS returns the presentation end of the track in timescale units.
func (ix *Index) EndPTS() int64 { return ix.end }

// FrameRate returns samples per second over the track's presentation span.
func (ix *Index) FrameRate() float64 {
	if ix.end <= 0 {
		return 0
	}
	return float64(len(ix.samples)) * float64(ix.Track.Timescale) / float64(ix.end)
}

// PTS returns the presentation timestamp of the sample at decode index i.
func (ix *Index) PTS(i int) int64 { return ix.samples[i].pts }

// FramePTS returns the PTS of the n-th frame in presentation order.
func (ix *Index) FramePTS(n int) (int64, bool) {
	if n < 0 || n >= len(ix.byPTS) {
		return 0, false
	}
	return ix.samples[ix.byPTS[n]].pts, true
}

// SyncBefore returns the decode index to start decoding from so that the
// first frame presented at or after pts can be reconstructed. ok is false
// when pts lies beyond the last frame.
func (ix *Index) SyncBefore(pts int64) (start int, ok bool) {
	// First frame in presentation order at or after pts.
	n := sort.Search(len(ix.byPTS), func(k int) bool {
		return ix.samples[ix.byPTS[k]].pts >= pts
	})
	if n == len(ix.byPTS) {
		return 0, false
	}

	// Every frame presented at or after pts must be decodable, so start at a
	// sync sample preceding all of them in decode order.
	first := len(ix.samples)
	for _, d := range ix.byPTS[n:] {
		first = min(first, d)
	}
	for first > 0 && !ix.samples[first].keyframe {
		first--
	}
	return first, true
}

// Sample reads the sample at decode index i.
func (ix *Index) Sample(i int) (ports.Sample, error) {
	if i < 0 || i >= len(ix.samples) {
		return ports.Sample{}, fmt.Errorf("mp4demux: sample %d out of range", i)
	}
	ref := ix.samples[i]
	s := ports.Sample{
		DTS:      ref.dts,
		PTS:      ref.pts,
		Duration: ref.duration,
		Keyframe: ref.keyframe,
		Data:     ref.data,
	}
	if s.Data != nil {
		return s, nil
	}

	if _, err := ix.reader.Seek(ref.offset, io.SeekStart); err != nil {
		return ports.Sample{}, fmt.Errorf("mp4demux: seek to sample %d: %w", i, err)
	}
	s.Data = make([]byte, ref.size)
	if _, err := io.ReadFull(ix.reader, s.Data); err != nil {
		return ports.Sample{}, fmt.Errorf("mp4demux: read sample %d: %w", i, err)
	}
	return s, nil
}
