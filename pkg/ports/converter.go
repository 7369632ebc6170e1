package ports

import "image"

// FrameConverter turns a native decoded picture into display pixels.
type FrameConverter interface {
	// Convert returns a newly allocated, tightly packed RGBA buffer of
	// exactly width*height*4 bytes for the converter's output size.
	Convert(img image.Image) ([]byte, error)
}
