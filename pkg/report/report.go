// Package report builds and formats playback session reports.
package report

import "time"

// Report contains the data collected during one playback session.
type Report struct {
	GeneratedAt time.Time

	Source   SourceInfo
	Stream   StreamInfo
	Session  SessionInfo
	Counters Counters
}

// SourceInfo describes where the video came from and how it was decoded.
type SourceInfo struct {
	Location string
	Codec    string
	Backend  string
}

// StreamInfo describes the decoded stream.
type StreamInfo struct {
	Width     int
	Height    int
	FrameRate float64
	Duration  time.Duration
}

// SessionInfo describes how playback ended.
type SessionInfo struct {
	Elapsed       time.Duration
	FinalPosition time.Duration
	EndOfStream   bool
	Error         string
}

// Counters are the pipeline counters at the end of the session.
type Counters struct {
	Published uint64
	Dropped   uint64
	Decodes   uint64
	Seeks     uint64
	Draws     uint64
	Uploads   uint64
	Snapshots int
}

// DropRate returns the share of published frames that were never shown.
func (c Counters) DropRate() float64 {
	if c.Published == 0 {
		return 0
	}
	return float64(c.Dropped) / float64(c.Published)
}

// New creates a new Report with the current timestamp.
func New() *Report {
	return &Report{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Report.
type Builder struct {
	report *Report
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		report: New(),
	}
}

// WithSource sets source information.
func (b *Builder) WithSource(location, codec, backend string) *Builder {
	b.report.Source = SourceInfo{
		Location: location,
		Codec:    codec,
		Backend:  backend,
	}
	return b
}

// WithStream sets stream metadata.
func (b *Builder) WithStream(width, height int, fps float64, duration time.Duration) *Builder {
	b.report.Stream = StreamInfo{
		Width:     width,
		Height:    height,
		FrameRate: fps,
		Duration:  duration,
	}
	return b
}

// WithSession sets the session outcome. err may be nil.
func (b *Builder) WithSession(elapsed, position time.Duration, eos bool, err error) *Builder {
	b.report.Session = SessionInfo{
		Elapsed:       elapsed,
		FinalPosition: position,
		EndOfStream:   eos,
	}
	if err != nil {
		b.report.Session.Error = err.Error()
	}
	return b
}

// WithCounters sets the pipeline counters.
func (b *Builder) WithCounters(c Counters) *Builder {
	b.report.Counters = c
	return b
}

// Build returns the constructed Report.
func (b *Builder) Build() *Report {
	return b.report
}
