package streamgate

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"net/http"
	"time"

	"github.com/allegro/bigcache"
)

// DefaultCacheTTL is the freshness window for cached origin responses.
var DefaultCacheTTL = 4 * time.Hour

// DefaultCacheMaxBody is the largest response body the edge cache will hold.
// Anything bigger is streamed through without a stored copy.
const DefaultCacheMaxBody = 16 << 20

// Cache is a byte-oriented key-value store with a fixed TTL. Entries are
// advisory: a miss is always recoverable by a fresh origin fetch, and
// concurrent writers for the same key may race with last-write-wins.
type Cache interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte) error
}

// CacheConfig sizes the in-memory cache store.
type CacheConfig struct {
	TTL    time.Duration
	SizeMB int
}

// NewInMemCache builds an in-memory Cache on bigcache. Entries self-expire
// after the TTL; there is no explicit invalidation path.
func NewInMemCache(config CacheConfig) (Cache, error) {
	defaults := bigcache.DefaultConfig(DefaultCacheTTL)

	if config.TTL != 0 {
		defaults.LifeWindow = config.TTL
	}

	if config.SizeMB != 0 {
		defaults.HardMaxCacheSize = config.SizeMB / defaults.Shards
	}

	cache, err := bigcache.NewBigCache(defaults)
	if err != nil {
		return nil, err
	}

	return cache, nil
}

// CachedResponse is a stored copy of a proxied origin response. Header
// rewriting is not baked into the stored copy: a cache hit goes through the
// same client-facing post-processing as a fresh fetch.
type CachedResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// CacheKey identifies a cacheable request: method plus the full inbound URL
// including the resolved target parameter.
func CacheKey(r *http.Request) string {
	return r.Method + " " + r.URL.String()
}

// ResponseCache layers the response codec and storage policy over a Cache.
type ResponseCache struct {
	store   Cache
	ttl     time.Duration
	maxBody int
}

// NewResponseCache wraps a Cache store. Zero ttl and maxBody select the
// package defaults.
func NewResponseCache(store Cache, ttl time.Duration, maxBody int) *ResponseCache {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	if maxBody == 0 {
		maxBody = DefaultCacheMaxBody
	}
	return &ResponseCache{store: store, ttl: ttl, maxBody: maxBody}
}

// Lookup returns the stored response for a key, if any. Decode failures are
// treated as misses; the entry will be overwritten by the next store.
func (c *ResponseCache) Lookup(key string) (*CachedResponse, bool) {
	raw, err := c.store.Get(key)
	if err != nil {
		return nil, false
	}

	var cr CachedResponse
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&cr); err != nil {
		return nil, false
	}
	return &cr, true
}

// Storable reports whether a response to this request qualifies for caching.
// Only complete 200 GET responses are stored: a range slice kept under a
// full-URL key would poison later full fetches, and HEAD bodies are empty.
func (c *ResponseCache) Storable(r *http.Request, status int) bool {
	return r.Method == http.MethodGet &&
		status == http.StatusOK &&
		r.Header.Get("Range") == ""
}

// Store encodes and saves a response copy under the key, recording the cache
// freshness directive on the stored headers.
func (c *ResponseCache) Store(key string, status int, header http.Header, body []byte) error {
	if len(body) > c.maxBody {
		return fmt.Errorf("streamgate: response body %d exceeds cache cap %d", len(body), c.maxBody)
	}

	h := cloneHeader(header)
	h.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(c.ttl.Seconds())))

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(CachedResponse{Status: status, Header: h, Body: body}); err != nil {
		return fmt.Errorf("streamgate: encode cache entry: %w", err)
	}

	return c.store.Set(key, buf.Bytes())
}

// MaxBody returns the largest body the cache will store.
func (c *ResponseCache) MaxBody() int {
	return c.maxBody
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vv := range h {
		out[k] = append([]string(nil), vv...)
	}
	return out
}

// captureWriter tees a streamed body into memory up to a cap. Once the cap
// is exceeded the buffer is dropped and the stream continues uncaptured, so
// arbitrarily large objects never accumulate in memory.
type captureWriter struct {
	buf        bytes.Buffer
	max        int
	overflowed bool
}

func newCaptureWriter(max int) *captureWriter {
	return &captureWriter{max: max}
}

func (cw *captureWriter) Write(p []byte) (int, error) {
	if !cw.overflowed {
		if cw.buf.Len()+len(p) > cw.max {
			cw.overflowed = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(p)
		}
	}
	return len(p), nil
}

// Complete reports whether the whole stream fit under the cap.
func (cw *captureWriter) Complete() bool {
	return !cw.overflowed
}

// Bytes returns the captured body. Only meaningful when Complete is true.
func (cw *captureWriter) Bytes() []byte {
	return cw.buf.Bytes()
}
