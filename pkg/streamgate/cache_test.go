package streamgate

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResponseCache(t *testing.T) *ResponseCache {
	t.Helper()
	store, err := NewInMemCache(CacheConfig{TTL: time.Minute, SizeMB: 8})
	require.NoError(t, err)
	return NewResponseCache(store, 4*time.Hour, 1024)
}

func TestCacheKey(t *testing.T) {
	get := httptest.NewRequest("GET", "/v/movie.mp4?expiry=1&sig=a", nil)
	head := httptest.NewRequest("HEAD", "/v/movie.mp4?expiry=1&sig=a", nil)
	other := httptest.NewRequest("GET", "/v/movie.mp4?expiry=1&sig=a&dl=true", nil)

	assert.Equal(t, "GET /v/movie.mp4?expiry=1&sig=a", CacheKey(get))
	assert.NotEqual(t, CacheKey(get), CacheKey(head), "method is part of the key")
	assert.NotEqual(t, CacheKey(get), CacheKey(other), "full URL is part of the key")
}

func TestResponseCacheRoundTrip(t *testing.T) {
	cache := newTestResponseCache(t)

	header := http.Header{"Content-Type": []string{"video/mp4"}}
	body := []byte("cached body")

	require.NoError(t, cache.Store("GET /v/movie.mp4", http.StatusOK, header, body))

	got, ok := cache.Lookup("GET /v/movie.mp4")
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, got.Status)
	assert.Equal(t, body, got.Body)
	assert.Equal(t, "video/mp4", got.Header.Get("Content-Type"))
	assert.Equal(t, "public, max-age=14400", got.Header.Get("Cache-Control"))
}

func TestResponseCacheMiss(t *testing.T) {
	cache := newTestResponseCache(t)

	_, ok := cache.Lookup("GET /v/absent.mp4")
	assert.False(t, ok)
}

func TestResponseCacheStoreDoesNotMutateHeader(t *testing.T) {
	cache := newTestResponseCache(t)

	header := http.Header{"Content-Type": []string{"video/mp4"}}
	require.NoError(t, cache.Store("GET /v/movie.mp4", http.StatusOK, header, []byte("x")))

	assert.Empty(t, header.Get("Cache-Control"), "caller's header stays untouched")
}

func TestResponseCacheBodyCap(t *testing.T) {
	cache := newTestResponseCache(t)

	err := cache.Store("GET /v/huge.mp4", http.StatusOK, http.Header{}, make([]byte, 2048))
	assert.Error(t, err)

	_, ok := cache.Lookup("GET /v/huge.mp4")
	assert.False(t, ok)
}

func TestResponseCacheStorable(t *testing.T) {
	cache := newTestResponseCache(t)

	plain := httptest.NewRequest("GET", "/v/movie.mp4", nil)
	ranged := httptest.NewRequest("GET", "/v/movie.mp4", nil)
	ranged.Header.Set("Range", "bytes=0-99")
	head := httptest.NewRequest("HEAD", "/v/movie.mp4", nil)

	assert.True(t, cache.Storable(plain, http.StatusOK))
	assert.False(t, cache.Storable(ranged, http.StatusOK), "range slices are never cached")
	assert.False(t, cache.Storable(ranged, http.StatusPartialContent))
	assert.False(t, cache.Storable(head, http.StatusOK), "HEAD bodies are empty")
	assert.False(t, cache.Storable(plain, http.StatusNotFound))
	assert.False(t, cache.Storable(plain, http.StatusInternalServerError))
}

func TestCaptureWriter(t *testing.T) {
	t.Run("captures under the cap", func(t *testing.T) {
		cw := newCaptureWriter(64)
		n, err := cw.Write([]byte("hello "))
		require.NoError(t, err)
		assert.Equal(t, 6, n)
		_, _ = cw.Write([]byte("world"))

		assert.True(t, cw.Complete())
		assert.Equal(t, []byte("hello world"), cw.Bytes())
	})

	t.Run("drops the buffer on overflow but keeps streaming", func(t *testing.T) {
		cw := newCaptureWriter(8)
		src := io.TeeReader(strings.NewReader(strings.Repeat("x", 1024)), cw)

		var sink bytes.Buffer
		n, err := sink.ReadFrom(src)
		require.NoError(t, err)

		assert.Equal(t, int64(1024), n, "the stream itself is unaffected")
		assert.False(t, cw.Complete())
		assert.Empty(t, cw.Bytes())
	})
}
