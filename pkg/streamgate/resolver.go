package streamgate

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// identifierParams are the query parameters that may carry the resource key,
// checked in this order before falling back to the request path.
var identifierParams = []string{"file", "download"}

// contentTypes maps filename extensions to content types for origins that
// answer with no content type or a generic octet-stream. Deliberately a
// small closed table, not general MIME detection.
var contentTypes = map[string]string{
	".mp4": "video/mp4",
	".mkv": "video/x-matroska",
}

// ResourceKeyFromRequest extracts the resource key from an inbound request.
//
// A non-empty "file" or "download" query parameter wins; otherwise the final
// path segment is used, provided the path has at least two non-empty
// segments (the first acts as the route prefix, e.g. /v/movie.mp4). Query
// parameters and path segments arrive percent-decoded, so the returned key
// is already canonical for signing.
//
// Returns ErrNoResourceKey when the request carries no identifier at all;
// the caller then falls back to the admin entry point.
func ResourceKeyFromRequest(r *http.Request) (string, error) {
	q := r.URL.Query()
	for _, p := range identifierParams {
		if v := q.Get(p); v != "" {
			return v, nil
		}
	}

	var segments []string
	for _, s := range strings.Split(r.URL.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) < 2 {
		return "", ErrNoResourceKey
	}

	return segments[len(segments)-1], nil
}

// ResolveOriginURL maps a resource key to the URL it is fetched from.
//
// A key that already carries a scheme is a complete external URL and is used
// verbatim. A bare key is treated as a path relative to the default origin
// domain. Resolution is deterministic: the same key always maps to the same
// origin URL.
func ResolveOriginURL(defaultOrigin, resourceKey string) string {
	if strings.Contains(resourceKey, "://") || strings.HasPrefix(resourceKey, "http") {
		return resourceKey
	}

	if !strings.HasPrefix(resourceKey, "/") {
		resourceKey = "/" + resourceKey
	}
	return strings.TrimSuffix(defaultOrigin, "/") + resourceKey
}

// Basename returns the final path segment of a resource key or URL, with any
// query string stripped. It names the file in Content-Disposition headers.
func Basename(resourceKey string) string {
	if u, err := url.Parse(resourceKey); err == nil && u.Path != "" {
		resourceKey = u.Path
	}
	if i := strings.IndexAny(resourceKey, "?#"); i >= 0 {
		resourceKey = resourceKey[:i]
	}
	resourceKey = strings.TrimSuffix(resourceKey, "/")
	if i := strings.LastIndex(resourceKey, "/"); i >= 0 {
		resourceKey = resourceKey[i+1:]
	}
	return resourceKey
}

// ContentTypeForName returns the content type for a filename based on its
// extension, or "" if the extension is not in the table.
func ContentTypeForName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return contentTypes[strings.ToLower(name[i:])]
	}
	return ""
}

// OriginResolver maps a resource key to the URL the object is fetched from.
// Implementations must be deterministic per key and safe for concurrent use.
type OriginResolver interface {
	OriginURL(ctx context.Context, resourceKey string) (string, error)
}

// DomainOrigin resolves bare resource keys against a fixed public origin
// domain (e.g. an object store's public bucket domain, no trailing slash).
// Fully-qualified keys pass through verbatim.
type DomainOrigin struct {
	Domain string
}

func (d DomainOrigin) OriginURL(_ context.Context, resourceKey string) (string, error) {
	return ResolveOriginURL(d.Domain, resourceKey), nil
}
