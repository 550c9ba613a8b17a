package s3origin

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	// Presigning is purely local: static credentials, no network calls.
	r, err := New(Config{
		Region:          "us-east-1",
		Bucket:          "media",
		AccessKeyID:     "testkey",
		SecretAccessKey: "testsecret",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
		PresignDuration: 600,
	})
	require.NoError(t, err)
	return r
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestOriginURLPresignsBareKeys(t *testing.T) {
	r := newTestResolver(t)

	got, err := r.OriginURL(context.Background(), "movie.mp4")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "http://localhost:9000/media/movie.mp4"), "got %s", got)
	assert.Contains(t, got, "X-Amz-Signature=")
	assert.Contains(t, got, "X-Amz-Expires=600")
}

func TestOriginURLStripsLeadingSlash(t *testing.T) {
	r := newTestResolver(t)

	got, err := r.OriginURL(context.Background(), "/movie.mp4")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "http://localhost:9000/media/movie.mp4"), "got %s", got)
}

func TestOriginURLPassesExternalURLsVerbatim(t *testing.T) {
	r := newTestResolver(t)

	got, err := r.OriginURL(context.Background(), "https://other.example/v.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://other.example/v.mp4", got)
}

func TestOriginURLDeterministicPerKey(t *testing.T) {
	r := newTestResolver(t)

	first, err := r.OriginURL(context.Background(), "movie.mp4")
	require.NoError(t, err)
	second, err := r.OriginURL(context.Background(), "movie.mp4")
	require.NoError(t, err)

	// The signing time is part of the presigned URL, so only the object
	// path is stable; both must target the same object.
	assert.Equal(t, pathPart(first), pathPart(second))
}

func pathPart(u string) string {
	if i := strings.Index(u, "?"); i >= 0 {
		return u[:i]
	}
	return u
}
