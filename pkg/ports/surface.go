package ports

import "time"

// DrawRequest hands the latest frame of one video to a rendering backend.
type DrawRequest struct {
	ID     uint64 // Identifies the video, and with it the backend texture
	Frame  []byte // RGBA pixels, Width*Height*4 bytes
	Width  int
	Height int
	// Dirty is true when Frame differs from the last request with this ID
	// and the backend must upload it.
	Dirty bool
}

// Surface is a rendering backend that displays video frames.
type Surface interface {
	Draw(req DrawRequest) error
}

// Shell is the host's event contract for the presentation adapter.
type Shell[M any] interface {
	// RequestRedraw asks the host to invoke the adapter again at the given time.
	RequestRedraw(at time.Time)

	// Publish delivers a message to the embedding application.
	Publish(msg M)
}
