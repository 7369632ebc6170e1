//go:build aom && cgo

package av1decoder

/*
#cgo pkg-config: aom
#include <aom/aom_decoder.h>
#include <aom/aomdx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_iface_t* get_av1_decoder_interface() {
    return aom_codec_av1_dx();
}

// Wrapper for aom_codec_dec_init
static aom_codec_err_t init_decoder(aom_codec_ctx_t *ctx, aom_codec_iface_t *iface) {
    return aom_codec_dec_init(ctx, iface, NULL, 0);
}

static aom_codec_err_t flush_decoder(aom_codec_ctx_t *ctx) {
    return aom_codec_decode(ctx, NULL, 0, NULL);
}

static unsigned char* get_plane(aom_image_t *img, int plane) {
    return img->planes[plane];
}

static int get_stride(aom_image_t *img, int plane) {
    return img->stride[plane];
}

static unsigned int get_width(aom_image_t *img) {
    return img->d_w;
}

static unsigned int get_height(aom_image_t *img) {
    return img->d_h;
}

static int is_i420(aom_image_t *img) {
    return img->fmt == AOM_IMG_FMT_I420;
}
*/
import "C"

import (
	"fmt"
	"image"
	"unsafe"
)

const libaomLinked = true

type aomBackend struct {
	codec *C.aom_codec_ctx_t
}

func newBackend() backend {
	return &aomBackend{}
}

func (b *aomBackend) init() error {
	b.codec = (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if b.codec == nil {
		return fmt.Errorf("av1decoder: failed to allocate decoder context")
	}
	C.memset(unsafe.Pointer(b.codec), 0, C.sizeof_aom_codec_ctx_t)

	iface := C.get_av1_decoder_interface()
	if res := C.init_decoder(b.codec, iface); res != C.AOM_CODEC_OK {
		C.free(unsafe.Pointer(b.codec))
		b.codec = nil
		return fmt.Errorf("av1decoder: failed to initialize decoder: %d", res)
	}
	return nil
}

func (b *aomBackend) decode(data []byte) ([]image.Image, error) {
	if b.codec == nil {
		return nil, ErrNotConfigured
	}
	res := C.aom_codec_decode(
		b.codec,
		(*C.uint8_t)(unsafe.Pointer(&data[0])),
		C.size_t(len(data)),
		nil,
	)
	if res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("av1decoder: decode failed: %d", res)
	}
	return b.frames()
}

func (b *aomBackend) flush() ([]image.Image, error) {
	if b.codec == nil {
		return nil, ErrNotConfigured
	}
	if res := C.flush_decoder(b.codec); res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("av1decoder: flush failed: %d", res)
	}
	return b.frames()
}

// frames copies every picture the codec has ready.
func (b *aomBackend) frames() ([]image.Image, error) {
	var out []image.Image
	var iter C.aom_codec_iter_t
	for img := C.aom_codec_get_frame(b.codec, &iter); img != nil; img = C.aom_codec_get_frame(b.codec, &iter) {
		ycbcr, err := toYCbCr(img)
		if err != nil {
			return out, err
		}
		out = append(out, ycbcr)
	}
	return out, nil
}

func (b *aomBackend) close() {
	if b.codec != nil {
		C.aom_codec_destroy(b.codec)
		C.free(unsafe.Pointer(b.codec))
		b.codec = nil
	}
}

// toYCbCr copies an I420 picture out of codec-owned memory.
func toYCbCr(img *C.aom_image_t) (*image.YCbCr, error) {
	if C.is_i420(img) == 0 {
		return nil, ErrUnsupportedFormat
	}
	width := int(C.get_width(img))
	height := int(C.get_height(img))

	out := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	copyPlane(out.Y, out.YStride, C.get_plane(img, 0), int(C.get_stride(img, 0)), width, height)
	cw, ch := (width+1)/2, (height+1)/2
	copyPlane(out.Cb, out.CStride, C.get_plane(img, 1), int(C.get_stride(img, 1)), cw, ch)
	copyPlane(out.Cr, out.CStride, C.get_plane(img, 2), int(C.get_stride(img, 2)), cw, ch)
	return out, nil
}

func copyPlane(dst []byte, dstStride int, src *C.uchar, srcStride, width, rows int) {
	plane := unsafe.Slice((*byte)(unsafe.Pointer(src)), srcStride*(rows-1)+width)
	for y := 0; y < rows; y++ {
		copy(dst[y*dstStride:y*dstStride+width], plane[y*srcStride:y*srcStride+width])
	}
}
