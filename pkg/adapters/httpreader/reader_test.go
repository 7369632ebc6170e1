package httpreader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 31)
	}
	return b
}

func rangeServer(t *testing.T, data []byte, requests *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.ServeContent(w, r, "clip.mp4", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestReader_RangeRequests(t *testing.T) {
	data := payload(10_000)
	var requests atomic.Int64
	srv := rangeServer(t, data, &requests)

	r, err := Open(context.Background(), srv.URL, WithBlockSize(1024))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, int64(len(data)), r.Size())

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, int64(10), requests.Load(), "one request per block")

	_, err = r.Seek(5000, io.SeekStart)
	require.NoError(t, err)
	buf := make([]byte, 100)
	_, err = io.ReadFull(r, buf)
	require.NoError(t, err)
	assert.Equal(t, data[5000:5100], buf)

	pos, err := r.Seek(-10, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(9990), pos)
	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data[9990:], rest)

	_, err = r.Seek(-1, io.SeekStart)
	assert.Error(t, err)
}

func TestReader_WithoutRangeSupport(t *testing.T) {
	data := payload(3000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	r, err := Open(context.Background(), srv.URL, WithBlockSize(512))
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestReader_BadStatusIsURLError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Open(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatus)

	var uerr *url.Error
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, srv.URL, uerr.URL)
}

func TestReader_ReadAfterClose(t *testing.T) {
	var requests atomic.Int64
	srv := rangeServer(t, payload(100), &requests)

	r, err := Open(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestTotalSize(t *testing.T) {
	n, err := totalSize("bytes 0-99/1234")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), n)

	_, err = totalSize("bytes 0-99/*")
	assert.Error(t, err)
	_, err = totalSize("")
	assert.Error(t, err)
}
