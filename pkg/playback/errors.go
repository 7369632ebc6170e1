package playback

import (
	"errors"
	"io/fs"
	"net"
	"net/url"

	"github.com/user/vidplay/pkg/location"
)

// Sentinel errors. Errors returned by this package wrap one of them, so
// callers classify with errors.Is or KindOf.
var (
	ErrConversion  = errors.New("playback: position out of representable range")
	ErrDecode      = errors.New("playback: decode failed")
	ErrSeek        = errors.New("playback: seek failed")
	ErrConcurrency = errors.New("playback: decode loop abandoned mid-operation")
	ErrUnknown     = errors.New("playback: unclassified error")
	ErrClosed      = errors.New("playback: video is closed")

	// ErrInvalidLocation is returned for unparseable media locations.
	ErrInvalidLocation = location.ErrInvalidLocation
)

// Kind classifies playback errors.
type Kind int

const (
	KindUnknown Kind = iota
	KindIO
	KindLocation
	KindConversion
	KindDecode
	KindSeek
	KindConcurrency
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindLocation:
		return "location"
	case KindConversion:
		return "conversion"
	case KindDecode:
		return "decode"
	case KindSeek:
		return "seek"
	case KindConcurrency:
		return "concurrency"
	default:
		return "unknown"
	}
}

// KindOf reports the kind of err. Sentinels of this package take precedence
// over the I/O errors they may wrap.
func KindOf(err error) Kind {
	var (
		pathErr *fs.PathError
		urlErr  *url.Error
		netErr  net.Error
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrConcurrency):
		return KindConcurrency
	case errors.Is(err, ErrSeek):
		return KindSeek
	case errors.Is(err, ErrConversion):
		return KindConversion
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrInvalidLocation):
		return KindLocation
	case errors.As(err, &pathErr), errors.As(err, &urlErr), errors.As(err, &netErr):
		return KindIO
	default:
		return KindUnknown
	}
}
