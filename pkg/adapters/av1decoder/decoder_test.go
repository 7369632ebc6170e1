package av1decoder

import (
	"errors"
	"image"
	"testing"

	"github.com/user/vidplay/pkg/ports"
)

// fakeBackend emits one picture per sample and holds one back until flush.
type fakeBackend struct {
	held   []image.Image
	inits  int
	closed int
}

func (f *fakeBackend) init() error { f.inits++; return nil }

func (f *fakeBackend) decode(data []byte) ([]image.Image, error) {
	f.held = append(f.held, image.NewGray(image.Rect(0, 0, int(data[0]), 1)))
	if len(f.held) < 2 {
		return nil, nil
	}
	out := f.held[:1]
	f.held = f.held[1:]
	return out, nil
}

func (f *fakeBackend) flush() ([]image.Image, error) {
	out := f.held
	f.held = nil
	return out, nil
}

func (f *fakeBackend) close() { f.closed++ }

func TestDecoder_SendReceive(t *testing.T) {
	fb := &fakeBackend{}
	d := &Decoder{backend: fb}

	if _, err := d.ReceiveFrame(); !errors.Is(err, ports.ErrNeedInput) {
		t.Fatalf("expected ErrNeedInput, got %v", err)
	}

	for _, w := range []byte{1, 2, 3} {
		if err := d.SendSample(ports.Sample{Data: []byte{w}}); err != nil {
			t.Fatalf("SendSample failed: %v", err)
		}
	}
	if err := d.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	for _, want := range []int{1, 2, 3} {
		img, err := d.ReceiveFrame()
		if err != nil {
			t.Fatalf("ReceiveFrame failed: %v", err)
		}
		if img.Bounds().Dx() != want {
			t.Errorf("expected picture %d, got width %d", want, img.Bounds().Dx())
		}
	}
	if _, err := d.ReceiveFrame(); !errors.Is(err, ports.ErrEndOfStream) {
		t.Errorf("expected ErrEndOfStream after drain, got %v", err)
	}
}

func TestDecoder_ResetRestartsBackend(t *testing.T) {
	fb := &fakeBackend{}
	d := &Decoder{backend: fb}
	d.SendSample(ports.Sample{Data: []byte{1}})
	d.SendSample(ports.Sample{Data: []byte{2}})

	if err := d.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if fb.closed != 1 || fb.inits != 1 {
		t.Errorf("expected backend restart, got closed=%d inits=%d", fb.closed, fb.inits)
	}
	if _, err := d.ReceiveFrame(); !errors.Is(err, ports.ErrNeedInput) {
		t.Errorf("expected empty queue after reset, got %v", err)
	}
}

func TestDecoder_NotConfigured(t *testing.T) {
	d := New()
	if err := d.SendSample(ports.Sample{Data: []byte{1}}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	// Double close should be safe
	d.Close()
}

func TestDecoder_EmptySample(t *testing.T) {
	d := &Decoder{backend: &fakeBackend{}}
	if err := d.SendSample(ports.Sample{}); err == nil {
		t.Error("expected error for empty sample")
	}
}
