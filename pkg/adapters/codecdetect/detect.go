// Package codecdetect identifies the video codec of an MP4 file.
package codecdetect

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Codec represents a video codec type.
type Codec string

const (
	CodecH264    Codec = "h264"
	CodecAV1     Codec = "av1"
	CodecJPEG    Codec = "jpeg"
	CodecPNG     Codec = "png"
	CodecWebP    Codec = "webp"
	CodecUnknown Codec = "unknown"
)

// IsImage reports whether every sample of the codec is a standalone still image.
func (c Codec) IsImage() bool {
	switch c {
	case CodecJPEG, CodecPNG, CodecWebP:
		return true
	default:
		return false
	}
}

// DetectFromFile detects the video codec used in an MP4 file.
func DetectFromFile(path string) (Codec, error) {
	f, err := os.Open(path)
	if err != nil {
		return CodecUnknown, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return DetectFromReader(f)
}

// DetectFromReader detects the video codec from an io.ReadSeeker and rewinds it.
func DetectFromReader(reader io.ReadSeeker) (Codec, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return CodecUnknown, fmt.Errorf("decode mp4: %w", err)
	}

	// Reset reader position for subsequent reads
	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		return CodecUnknown, fmt.Errorf("seek: %w", err)
	}

	return DetectFromMP4(mp4File)
}

// DetectFromBytes detects the video codec from MP4 data bytes.
func DetectFromBytes(data []byte) (Codec, error) {
	return DetectFromReader(bytes.NewReader(data))
}

// DetectFromMP4 returns the codec of the first video track with a known codec.
func DetectFromMP4(mp4File *mp4.File) (Codec, error) {
	var traks []*mp4.TrakBox
	if mp4File.Init != nil && mp4File.Init.Moov != nil {
		traks = append(traks, mp4File.Init.Moov.Traks...)
	}
	if mp4File.Moov != nil {
		traks = append(traks, mp4File.Moov.Traks...)
	}

	found := false
	for _, trak := range traks {
		if !IsVideoTrack(trak) {
			continue
		}
		found = true
		if codec := DetectFromTrack(trak); codec != CodecUnknown {
			return codec, nil
		}
	}
	if found {
		return CodecUnknown, nil
	}
	return CodecUnknown, fmt.Errorf("no video track found")
}

// IsVideoTrack reports whether trak carries video with a sample table.
func IsVideoTrack(trak *mp4.TrakBox) bool {
	if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
		return false
	}
	return trak.Mdia.Minf != nil && trak.Mdia.Minf.Stbl != nil && trak.Mdia.Minf.Stbl.Stsd != nil
}

// DetectFromTrack maps the sample entry type of a video track to a codec.
func DetectFromTrack(trak *mp4.TrakBox) Codec {
	if !IsVideoTrack(trak) {
		return CodecUnknown
	}

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		switch child.Type() {
		case "avc1", "avc3":
			return CodecH264
		case "av01":
			return CodecAV1
		case "jpeg", "mjpa", "mjpb":
			return CodecJPEG
		case "png ":
			return CodecPNG
		case "webp":
			return CodecWebP
		case "hvc1", "hev1":
			// H.265/HEVC is recognized but not decodable
			return CodecUnknown
		}
	}

	return CodecUnknown
}
