// Package filesink writes playback debug output into a directory.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/vidplay/pkg/ports"
)

// Sink saves debug output to files.
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveProbeJSON saves the stream metadata as probe.json.
func (s *Sink) SaveProbeJSON(data []byte) error {
	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(s.baseDir, "probe.json"), data)
}

// SaveSnapshot saves a composed surface as snapshots/snapshot-NNNN.png.
func (s *Sink) SaveSnapshot(index int, img image.Image) error {
	dir := filepath.Join(s.baseDir, "snapshots")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("snapshot-%04d.png", index))
	return s.fs.WriteFile(path, data)
}

// SaveReport saves the session report as report.md.
func (s *Sink) SaveReport(data []byte) error {
	if err := s.fs.MkdirAll(s.baseDir); err != nil {
		return err
	}
	return s.fs.WriteFile(filepath.Join(s.baseDir, "report.md"), data)
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
