// Package httpreader exposes a remote file as an io.ReadSeeker backed by HTTP
// range requests.
package httpreader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const defaultBlockSize = 1 << 20

var (
	// ErrStatus is wrapped in a *url.Error when the server answers with an
	// unexpected status code.
	ErrStatus = errors.New("httpreader: unexpected status")
	// ErrClosed is returned by reads after Close.
	ErrClosed = errors.New("httpreader: reader closed")
)

// Option configures a Reader.
type Option func(*Reader)

// WithClient sets the HTTP client. The default is http.DefaultClient.
func WithClient(c *http.Client) Option {
	return func(r *Reader) {
		if c != nil {
			r.client = c
		}
	}
}

// WithBlockSize sets how many bytes each range request fetches.
func WithBlockSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.blockSize = n
		}
	}
}

// Reader reads a remote file in blocks. It is not safe for concurrent use.
type Reader struct {
	ctx       context.Context
	client    *http.Client
	url       string
	blockSize int

	size   int64
	offset int64

	block      []byte
	blockStart int64
	closed     bool
}

// Open probes rawURL with a first range request. Servers without range
// support get their whole body read into memory.
func Open(ctx context.Context, rawURL string, opts ...Option) (*Reader, error) {
	r := &Reader{
		ctx:       ctx,
		client:    http.DefaultClient,
		url:       rawURL,
		blockSize: defaultBlockSize,
	}
	for _, opt := range opts {
		opt(r)
	}

	resp, err := r.get(0)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		size, err := totalSize(resp.Header.Get("Content-Range"))
		if err != nil {
			return nil, r.urlError(err)
		}
		r.size = size
		if r.block, err = io.ReadAll(resp.Body); err != nil {
			return nil, r.urlError(err)
		}
	case http.StatusOK:
		if r.block, err = io.ReadAll(resp.Body); err != nil {
			return nil, r.urlError(err)
		}
		r.size = int64(len(r.block))
		r.blockSize = len(r.block)
	case http.StatusRequestedRangeNotSatisfiable:
		// Empty file.
	default:
		return nil, r.urlError(fmt.Errorf("%w: %s", ErrStatus, resp.Status))
	}
	return r, nil
}

func (r *Reader) get(start int64) (*http.Response, error) {
	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, err
	}
	end := start + int64(r.blockSize) - 1
	req.Header.Set("Range", "bytes="+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10))
	return r.client.Do(req)
}

func (r *Reader) urlError(err error) error {
	return &url.Error{Op: "Get", URL: r.url, Err: err}
}

// totalSize parses the complete length from "bytes 0-99/1234".
func totalSize(contentRange string) (int64, error) {
	i := strings.LastIndexByte(contentRange, '/')
	if !strings.HasPrefix(contentRange, "bytes ") || i < 0 {
		return 0, fmt.Errorf("httpreader: malformed Content-Range %q", contentRange)
	}
	n, err := strconv.ParseInt(contentRange[i+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("httpreader: unknown length in Content-Range %q", contentRange)
	}
	return n, nil
}

// Size returns the length of the remote file.
func (r *Reader) Size() int64 {
	return r.size
}

func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if r.offset >= r.size {
		return 0, io.EOF
	}
	if r.offset < r.blockStart || r.offset >= r.blockStart+int64(len(r.block)) {
		if err := r.fetch(r.offset); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.block[r.offset-r.blockStart:])
	r.offset += int64(n)
	return n, nil
}

func (r *Reader) fetch(start int64) error {
	resp, err := r.get(start)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		return r.urlError(fmt.Errorf("%w: %s for range at %d", ErrStatus, resp.Status, start))
	}
	block, err := io.ReadAll(resp.Body)
	if err != nil {
		return r.urlError(err)
	}
	if len(block) == 0 {
		return r.urlError(io.ErrUnexpectedEOF)
	}
	r.block = block
	r.blockStart = start
	return nil
}

func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.offset + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return 0, errors.New("httpreader: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("httpreader: negative position")
	}
	r.offset = abs
	return abs, nil
}

// Close drops the cached block.
func (r *Reader) Close() error {
	r.closed = true
	r.block = nil
	return nil
}

var _ io.ReadSeekCloser = (*Reader)(nil)
