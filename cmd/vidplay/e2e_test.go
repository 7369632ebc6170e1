package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// buildBinary returns the CLI under test. VIDPLAY_BINARY points at a
// pre-built binary; otherwise one is built into a temp directory.
func buildBinary(t *testing.T) string {
	t.Helper()
	if os.Getenv("VIDPLAY_E2E") != "1" {
		t.Skip("Skipping E2E test (set VIDPLAY_E2E=1 to run)")
	}
	if path := os.Getenv("VIDPLAY_BINARY"); path != "" {
		return path
	}

	name := "vidplay-test"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	bin := filepath.Join(t.TempDir(), name)
	build := exec.Command("go", "build", "-o", bin, ".")
	if out, err := build.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build CLI: %v\n%s", err, out)
	}
	return bin
}

func run(t *testing.T, bin string, args ...string) string {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), "LANGUAGE=", "LC_ALL=C", "LANG=C")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("%s failed: %v\nstdout: %s\nstderr: %s", strings.Join(args, " "), err, stdout.String(), stderr.String())
	}
	return stdout.String()
}

func TestE2E_SynthProbePlay(t *testing.T) {
	bin := buildBinary(t)
	dir := t.TempDir()
	video := filepath.Join(dir, "pattern.mp4")

	run(t, bin, "synth", "-o", video, "-W", "96", "-H", "64", "--fps", "30", "-n", "15", "--keyframe", "5")

	var probe struct {
		Codec   string `json:"codec"`
		Width   int    `json:"width"`
		Height  int    `json:"height"`
		Samples int    `json:"samples"`
	}
	if err := json.Unmarshal([]byte(run(t, bin, "-Q", "probe", "--json", video)), &probe); err != nil {
		t.Fatalf("Failed to parse probe output: %v", err)
	}
	if probe.Codec != "jpeg" {
		t.Errorf("Expected codec jpeg, got %q", probe.Codec)
	}
	if probe.Width != 96 || probe.Height != 64 {
		t.Errorf("Expected 96x64, got %dx%d", probe.Width, probe.Height)
	}
	if probe.Samples != 15 {
		t.Errorf("Expected 15 samples, got %d", probe.Samples)
	}

	reportPath := filepath.Join(dir, "report.md")
	snapshot := filepath.Join(dir, "last.png")
	run(t, bin, "-Q", "play", "--no-stdin", "--report", reportPath, "--snapshot", snapshot, video)

	report, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("Report not written: %v", err)
	}
	for _, want := range []string{"# Playback Report", "End of stream"} {
		if !strings.Contains(string(report), want) {
			t.Errorf("Expected report to contain %q", want)
		}
	}

	info, err := os.Stat(snapshot)
	if err != nil {
		t.Fatalf("Snapshot not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Snapshot is empty")
	}
}

func TestE2E_Version(t *testing.T) {
	bin := buildBinary(t)
	if out := run(t, bin, "version"); !strings.Contains(out, "vidplay version") {
		t.Errorf("Unexpected version output: %s", out)
	}
}
