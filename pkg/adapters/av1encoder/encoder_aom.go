//go:build aom && cgo

package av1encoder

/*
#cgo pkg-config: aom
#include <aom/aom_encoder.h>
#include <aom/aomcx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_iface_t* get_av1_interface() {
    return aom_codec_av1_cx();
}

// Wrapper for aom_codec_enc_init
static aom_codec_err_t init_encoder(aom_codec_ctx_t *ctx, aom_codec_iface_t *iface,
                                     aom_codec_enc_cfg_t *cfg) {
    return aom_codec_enc_init_ver(ctx, iface, cfg, 0, AOM_ENCODER_ABI_VERSION);
}

static int is_frame_packet(const aom_codec_cx_pkt_t *pkt) {
    return pkt->kind == AOM_CODEC_CX_FRAME_PKT;
}

static void* get_frame_buf(const aom_codec_cx_pkt_t *pkt) {
    return pkt->data.frame.buf;
}

static size_t get_frame_sz(const aom_codec_cx_pkt_t *pkt) {
    return pkt->data.frame.sz;
}

static int is_keyframe(const aom_codec_cx_pkt_t *pkt) {
    return (pkt->data.frame.flags & AOM_FRAME_IS_KEY) != 0;
}

static aom_codec_pts_t get_frame_pts(const aom_codec_cx_pkt_t *pkt) {
    return pkt->data.frame.pts;
}

static unsigned char* plane_ptr(aom_image_t *img, int plane) {
    return img->planes[plane];
}

static int plane_stride(aom_image_t *img, int plane) {
    return img->stride[plane];
}

// aom_codec_control is a variadic macro.
static aom_codec_err_t set_cpu_used(aom_codec_ctx_t *ctx, int value) {
    return aom_codec_control(ctx, AOME_SET_CPUUSED, value);
}
*/
import "C"

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/user/vidplay/pkg/ports"
)

const libaomLinked = true

type aomBackend struct {
	codec  *C.aom_codec_ctx_t
	cfg    *C.aom_codec_enc_cfg_t
	raw    *C.aom_image_t
	width  int
	height int
}

func newBackend() backend {
	return &aomBackend{}
}

func (b *aomBackend) init(width, height int, fps float64, opts ports.EncoderOptions) error {
	b.width, b.height = width, height

	b.codec = (*C.aom_codec_ctx_t)(C.calloc(1, C.sizeof_aom_codec_ctx_t))
	b.cfg = (*C.aom_codec_enc_cfg_t)(C.calloc(1, C.sizeof_aom_codec_enc_cfg_t))
	if b.codec == nil || b.cfg == nil {
		b.free()
		return fmt.Errorf("allocate encoder context")
	}

	iface := C.get_av1_interface()
	if res := C.aom_codec_enc_config_default(iface, b.cfg, C.AOM_USAGE_REALTIME); res != C.AOM_CODEC_OK {
		b.free()
		return fmt.Errorf("default config: %d", res)
	}

	b.cfg.g_w = C.uint(width)
	b.cfg.g_h = C.uint(height)
	b.cfg.g_timebase.num = 1
	b.cfg.g_timebase.den = Timescale
	b.cfg.g_usage = C.AOM_USAGE_REALTIME
	b.cfg.g_threads = 4
	// No frame reordering: samples are written in presentation order.
	b.cfg.g_lag_in_frames = 0
	b.cfg.rc_target_bitrate = C.uint(max(width*height/1000, 100))
	if opts.KeyframeInterval > 0 {
		b.cfg.kf_max_dist = C.uint(opts.KeyframeInterval)
	}

	// Quality 1-100 maps onto quantizers 63-0.
	b.cfg.rc_end_usage = C.AOM_CQ
	if opts.Quality > 0 && opts.Quality <= 100 {
		q := 63 - opts.Quality*63/100
		b.cfg.rc_min_quantizer = C.uint(q)
		b.cfg.rc_max_quantizer = C.uint(min(q+10, 63))
	}

	if res := C.init_encoder(b.codec, iface, b.cfg); res != C.AOM_CODEC_OK {
		b.free()
		return fmt.Errorf("initialize encoder: %d", res)
	}
	C.set_cpu_used(b.codec, 8)

	b.raw = (*C.aom_image_t)(C.calloc(1, C.sizeof_aom_image_t))
	if b.raw == nil || C.aom_img_alloc(b.raw, C.AOM_IMG_FMT_I420, C.uint(width), C.uint(height), 32) == nil {
		C.aom_codec_destroy(b.codec)
		b.free()
		return fmt.Errorf("allocate picture")
	}
	return nil
}

func (b *aomBackend) encode(img *image.YCbCr, ptsMs, durMs int64, forceKeyframe bool) ([]packet, error) {
	b.copyPlane(0, img.Y, img.YStride, b.width, b.height)
	cw, ch := (b.width+1)/2, (b.height+1)/2
	b.copyPlane(1, img.Cb, img.CStride, cw, ch)
	b.copyPlane(2, img.Cr, img.CStride, cw, ch)

	flags := C.aom_enc_frame_flags_t(0)
	if forceKeyframe {
		flags = C.AOM_EFLAG_FORCE_KF
	}
	if res := C.aom_codec_encode(b.codec, b.raw, C.aom_codec_pts_t(ptsMs), C.ulong(durMs), flags); res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("aom_codec_encode: %d", res)
	}
	return b.drain(), nil
}

func (b *aomBackend) flush() ([]packet, error) {
	if res := C.aom_codec_encode(b.codec, nil, 0, 1, 0); res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("aom_codec_encode flush: %d", res)
	}
	return b.drain(), nil
}

func (b *aomBackend) drain() []packet {
	var out []packet
	var iter C.aom_codec_iter_t
	for {
		pkt := C.aom_codec_get_cx_data(b.codec, &iter)
		if pkt == nil {
			return out
		}
		if C.is_frame_packet(pkt) == 0 {
			continue
		}
		out = append(out, packet{
			data:     C.GoBytes(C.get_frame_buf(pkt), C.int(C.get_frame_sz(pkt))),
			ptsMs:    int64(C.get_frame_pts(pkt)),
			keyframe: C.is_keyframe(pkt) != 0,
		})
	}
}

func (b *aomBackend) copyPlane(plane int, src []byte, srcStride, width, height int) {
	dst := unsafe.Pointer(C.plane_ptr(b.raw, C.int(plane)))
	dstStride := int(C.plane_stride(b.raw, C.int(plane)))
	for y := 0; y < height; y++ {
		row := src[y*srcStride : y*srcStride+width]
		C.memcpy(unsafe.Add(dst, y*dstStride), unsafe.Pointer(&row[0]), C.size_t(width))
	}
}

func (b *aomBackend) close() {
	if b.codec != nil && b.raw != nil {
		C.aom_codec_destroy(b.codec)
	}
	b.free()
}

func (b *aomBackend) free() {
	if b.raw != nil {
		C.aom_img_free(b.raw)
		C.free(unsafe.Pointer(b.raw))
		b.raw = nil
	}
	if b.codec != nil {
		C.free(unsafe.Pointer(b.codec))
		b.codec = nil
	}
	if b.cfg != nil {
		C.free(unsafe.Pointer(b.cfg))
		b.cfg = nil
	}
}
