package h264decoder

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/user/vidplay/pkg/ports"
)

// FindFFmpeg returns the ffmpeg executable, searching PATH and common
// install locations.
// A non-empty custom path is used as is.
func FindFFmpeg(custom string) (string, error) {
	if custom != "" {
		if _, err := os.Stat(custom); err == nil {
			return custom, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", ErrFFmpegNotFound, custom)
	}

	execName := "ffmpeg"
	if runtime.GOOS == "windows" {
		execName = "ffmpeg.exe"
	}

	path, err := exec.LookPath(execName)
	if err == nil {
		return path, nil
	}

	var commonPaths []string
	if runtime.GOOS == "windows" {
		commonPaths = []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files (x86)\ffmpeg\bin\ffmpeg.exe`,
		}
	} else {
		commonPaths = []string{
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/opt/homebrew/bin/ffmpeg",
			"/snap/bin/ffmpeg",
		}
	}

	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", ErrFFmpegNotFound
}

// IsAvailable reports whether an ffmpeg binary can be found. custom may be
// empty to search the default locations.
func IsAvailable(custom string) bool {
	_, err := FindFFmpeg(custom)
	return err == nil
}

// lockedBuffer collects stderr written by the exec copier goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(b.buf.String())
}

// ffmpegLauncher starts ffmpeg reading Annex B from stdin and writing raw
// yuv420p pictures at the track size to stdout.
func ffmpegLauncher(path string) launcher {
	return func(track ports.TrackInfo) (child, error) {
		args := []string{
			"-hide_banner",
			"-loglevel", "error",
			"-f", "h264",
			"-i", "pipe:0",
			"-vsync", "0",
			"-vf", "scale=" + strconv.Itoa(track.Width) + ":" + strconv.Itoa(track.Height),
			"-f", "rawvideo",
			"-pix_fmt", "yuv420p",
			"pipe:1",
		}
		cmd := exec.Command(path, args...)
		stderr := &lockedBuffer{}
		cmd.Stderr = stderr

		stdin, err := cmd.StdinPipe()
		if err != nil {
			return child{}, fmt.Errorf("stdin pipe: %w", err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return child{}, fmt.Errorf("stdout pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return child{}, fmt.Errorf("start %s: %w", path, err)
		}

		return child{
			stdin:  stdin,
			stdout: stdout,
			wait: func() error {
				if err := cmd.Wait(); err != nil {
					if msg := stderr.String(); msg != "" {
						return fmt.Errorf("ffmpeg: %w: %s", err, msg)
					}
					return fmt.Errorf("ffmpeg: %w", err)
				}
				return nil
			},
			kill: func() error {
				return cmd.Process.Kill()
			},
		}, nil
	}
}
