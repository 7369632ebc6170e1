package av1encoder

import (
	"bytes"
	"fmt"

	"github.com/Eyevinn/mp4ff/av1"
	"github.com/Eyevinn/mp4ff/mp4"
)

// buildMP4 creates a fragmented MP4 with one av01 track.
func buildMP4(width, height int, fps float64, packets []packet) ([]byte, error) {
	if len(packets) == 0 {
		return nil, ErrNoFrames
	}

	trackID := uint32(1)
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(Timescale, "video", "und")

	trak := init.Moov.Trak
	av01 := mp4.CreateVisualSampleEntryBox("av01", uint16(width), uint16(height), configRecord(packets))
	trak.Mdia.Minf.Stbl.Stsd.AddChild(av01)
	trak.Tkhd.Width = mp4.Fixed32(width << 16)
	trak.Tkhd.Height = mp4.Fixed32(height << 16)

	frag, err := mp4.CreateFragment(1, trackID)
	if err != nil {
		return nil, fmt.Errorf("create fragment: %w", err)
	}

	frameDur := uint32(float64(Timescale)/fps + 0.5)
	if frameDur == 0 {
		frameDur = 1
	}
	for i, p := range packets {
		dur := frameDur
		if i < len(packets)-1 && packets[i+1].ptsMs > p.ptsMs {
			dur = uint32(packets[i+1].ptsMs - p.ptsMs)
		}

		flags := mp4.NonSyncSampleFlags
		if p.keyframe {
			flags = mp4.SyncSampleFlags
		}
		frag.AddFullSample(mp4.FullSample{
			Sample: mp4.Sample{
				Flags: flags,
				Size:  uint32(len(p.data)),
				Dur:   dur,
			},
			DecodeTime: uint64(p.ptsMs),
			Data:       p.data,
		})
	}

	var buf bytes.Buffer
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso6", "av01", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode moov: %w", err)
	}
	if err := frag.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode fragment: %w", err)
	}
	return buf.Bytes(), nil
}

// configRecord builds the av1C box around the sequence header of the first
// keyframe.
func configRecord(packets []packet) *mp4.Av1CBox {
	var seqHdr []byte
	for _, p := range packets {
		if p.keyframe {
			seqHdr = sequenceHeader(p.data)
			break
		}
	}

	return &mp4.Av1CBox{
		CodecConfRec: av1.CodecConfRec{
			Version:            1,
			SeqProfile:         0,
			SeqLevelIdx0:       8, // Level 4.0
			ChromaSubsamplingX: 1, // 4:2:0
			ChromaSubsamplingY: 1,
			ConfigOBUs:         seqHdr,
		},
	}
}

const obuSequenceHeader = 1

// sequenceHeader returns the first sequence header OBU in data, header
// included, or nil.
func sequenceHeader(data []byte) []byte {
	offset := 0
	for offset < len(data) {
		start := offset
		header := data[offset]
		obuType := (header >> 3) & 0x0f
		hasExtension := header&0x04 != 0
		hasSize := header&0x02 != 0

		offset++
		if hasExtension {
			offset++
		}

		size := len(data) - offset
		if hasSize {
			size, offset = readLeb128(data, offset)
		}
		end := min(offset+size, len(data))
		if end < offset {
			return nil
		}

		if obuType == obuSequenceHeader {
			return data[start:end]
		}
		offset = end
	}
	return nil
}

// readLeb128 decodes an unsigned LEB128 value at offset and returns it with
// the offset just past it.
func readLeb128(data []byte, offset int) (int, int) {
	value := 0
	for i := 0; i < 8 && offset < len(data); i++ {
		b := data[offset]
		offset++
		value |= int(b&0x7f) << (i * 7)
		if b&0x80 == 0 {
			break
		}
	}
	return value, offset
}
