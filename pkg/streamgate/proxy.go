package streamgate

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// proxyUserAgent replaces the inbound client identifier on origin fetches.
// Some origins throttle or alter behavior for default library user agents.
const proxyUserAgent = "Mozilla/5.0 (Linux; Android 10; K) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"

// originResponseHeaderTimeout bounds how long the origin may take to start
// answering. The body itself is never subject to a whole-request timeout:
// large media transfers legitimately run for a long time.
const originResponseHeaderTimeout = 30 * time.Second

// Proxy fetches objects from an origin and streams them through. It never
// buffers a whole body and never retries: a partially-delivered stream
// cannot be replayed, so transport failures surface as a proxy error and the
// stateless client is free to re-request.
type Proxy struct {
	client *http.Client
}

// ProxyOption is a functional option for configuring a Proxy
type ProxyOption func(*Proxy)

// WithHTTPClient replaces the origin HTTP client. Used by tests and by
// deployments that need custom transport settings.
func WithHTTPClient(c *http.Client) ProxyOption {
	return func(p *Proxy) {
		p.client = c
	}
}

// NewProxy creates a Proxy with the given options.
func NewProxy(opts ...ProxyOption) *Proxy {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// Never ask the origin for a compressed body: the proxy does not
	// re-decompress, and byte-range arithmetic breaks on encoded bodies.
	transport.DisableCompression = true
	transport.ResponseHeaderTimeout = originResponseHeaderTimeout

	p := &Proxy{
		client: &http.Client{Transport: transport},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Fetch performs the origin request for an accepted redeem. The outbound
// request reuses the inbound method (GET and HEAD behave identically apart
// from the body), overrides the User-Agent, omits Accept-Encoding, and
// forwards the inbound Range header (with its If-Range companion) verbatim
// so seeks and resumed downloads reach the origin intact. Other inbound
// headers are deliberately not copied: the proxy answers from its own cache,
// so origin-side conditional revalidation would return bodies the client
// never asked for.
//
// The inbound request's context is attached to the outbound request, so a
// client disconnect mid-stream cancels the origin transfer instead of
// orphaning it.
func (p *Proxy) Fetch(inbound *http.Request, originURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(inbound.Context(), inbound.Method, originURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOriginUnreachable, err)
	}

	req.Header.Set("User-Agent", proxyUserAgent)
	if rng := inbound.Header.Get("Range"); rng != "" {
		req.Header.Set("Range", rng)
		if ir := inbound.Header.Get("If-Range"); ir != "" {
			req.Header.Set("If-Range", ir)
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOriginUnreachable, err)
	}

	return resp, nil
}

// RewriteHeaders applies the client-facing header contract in place:
// CORS allow-all, forced Accept-Ranges, a rewritten Content-Disposition
// (explicit inline unless a download was requested, since absence of the
// header makes some players default to attachment), and a content-type
// fixup when the origin sent nothing useful.
func RewriteHeaders(h http.Header, resourceKey string, download bool) {
	h.Set("Access-Control-Allow-Origin", "*")

	// The proxy guarantees range pass-through, so it asserts the
	// capability even when an intermediate stage dropped the header.
	h.Set("Accept-Ranges", "bytes")

	h.Del("Content-Disposition")
	name := Basename(resourceKey)
	if download {
		h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	} else {
		h.Set("Content-Disposition", "inline")
	}

	ct := h.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		if inferred := ContentTypeForName(name); inferred != "" {
			h.Set("Content-Type", inferred)
		}
	}
}

// writeProxied relays an origin (or cached) response to the client: headers
// copied and rewritten, status relayed unchanged (206 included, so players
// can tell the origin is seekable), body streamed through unbuffered.
func writeProxied(w http.ResponseWriter, status int, header http.Header, body io.Reader, resourceKey string, download bool) (int64, error) {
	dst := w.Header()
	for k, vv := range header {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	// Hop-by-hop headers are between the proxy and the origin only.
	dst.Del("Connection")
	dst.Del("Keep-Alive")
	dst.Del("Transfer-Encoding")

	RewriteHeaders(dst, resourceKey, download)

	w.WriteHeader(status)
	return io.Copy(flushWriter{w}, body)
}

// flushWriter flushes after every write so media players start rendering as
// soon as bytes arrive instead of waiting on the server's buffer.
type flushWriter struct {
	w http.ResponseWriter
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if f, ok := fw.w.(http.Flusher); ok {
		f.Flush()
	}
	return n, err
}
