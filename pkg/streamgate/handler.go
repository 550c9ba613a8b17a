package streamgate

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

// Handler is the gateway's HTTP entry point. It classifies each inbound
// request as mint, redeem, or no-key, and dispatches accordingly: mints
// redirect to a signed URL, redeems are validated and streamed, and bare
// requests fall through to the admin panel (or a 404 when none is mounted).
type Handler struct {
	signer           *Signer
	origin           OriginResolver
	proxy            *Proxy
	cache            *ResponseCache
	admin            http.Handler
	requireSignature bool
	logger           *slog.Logger
}

// HandlerOption is a functional option for configuring a Handler
type HandlerOption func(*Handler)

// WithProxy replaces the default streaming proxy.
func WithProxy(p *Proxy) HandlerOption {
	return func(h *Handler) {
		h.proxy = p
	}
}

// WithCache enables the edge cache variant. Validation always runs before
// any cache lookup; nothing is ever cached or served for a request that
// failed validation.
func WithCache(c *ResponseCache) HandlerOption {
	return func(h *Handler) {
		h.cache = c
	}
}

// WithAdmin mounts the handler served when no resource key resolves from the
// request. Without it, key-less requests get a 404.
func WithAdmin(admin http.Handler) HandlerOption {
	return func(h *Handler) {
		h.admin = admin
	}
}

// WithSignatureRequired toggles signed-link enforcement. When disabled the
// gateway degrades to a plain streaming proxy: no mint redirects, no
// validation, every resolvable request is fetched and streamed directly.
func WithSignatureRequired(required bool) HandlerOption {
	return func(h *Handler) {
		h.requireSignature = required
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a gateway handler around a signer and origin resolver.
func NewHandler(signer *Signer, origin OriginResolver, opts ...HandlerOption) *Handler {
	h := &Handler{
		signer:           signer,
		origin:           origin,
		proxy:            NewProxy(),
		requireSignature: true,
		logger:           slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, kind := ParseSignedLinkRequest(r)

	switch kind {
	case KindNotFound:
		if h.admin != nil {
			h.admin.ServeHTTP(w, r)
			return
		}
		http.Error(w, "File not found", http.StatusNotFound)

	case KindMint:
		if !h.requireSignature {
			h.stream(w, r, req)
			return
		}
		h.mint(w, r, req)

	case KindRedeem:
		if !h.requireSignature {
			h.stream(w, r, req)
			return
		}
		h.redeem(w, r, req)
	}
}

// mint answers a master-link visit with a 302 to the same URL carrying fresh
// expiry and sig parameters. Stateless: nothing is recorded anywhere.
func (h *Handler) mint(w http.ResponseWriter, r *http.Request, req SignedLinkRequest) {
	expiry, sig, err := h.signer.Issue(req.ResourceKey)
	if err != nil {
		h.logger.Error("failed to mint signed link", "key", req.ResourceKey, "error", err)
		http.Error(w, "Proxy Error", http.StatusInternalServerError)
		return
	}

	u := *r.URL
	q := u.Query()
	q.Set("expiry", strconv.FormatInt(expiry, 10))
	q.Set("sig", sig)
	u.RawQuery = q.Encode()

	http.Redirect(w, r, u.String(), http.StatusFound)
}

// redeem validates expiry then signature and, if both pass, streams the
// object. Validation failures are terminal and never reach the origin. The
// expected signature is never logged or echoed; that would hand a forgery
// oracle to the client.
func (h *Handler) redeem(w http.ResponseWriter, r *http.Request, req SignedLinkRequest) {
	if err := h.signer.Validate(req.ResourceKey, req.Expiry, req.Signature); err != nil {
		h.logger.Info("rejected signed link", "key", req.ResourceKey, "reason", err)

		switch {
		case errors.Is(err, ErrInvalidSignature):
			http.Error(w, "Invalid Signature", http.StatusForbidden)
		case errors.Is(err, ErrExpired), errors.Is(err, ErrMalformedExpiry):
			http.Error(w, "Link Expired", http.StatusForbidden)
		default:
			http.Error(w, "Proxy Error", http.StatusInternalServerError)
		}
		return
	}

	h.stream(w, r, req)
}

// stream serves the object: cache lookup (when enabled), origin fetch on
// miss, header rewrite, unbuffered relay, and a fire-and-forget cache fill
// that never delays the client-facing response.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, req SignedLinkRequest) {
	cacheKey := CacheKey(r)

	if h.cache != nil && r.Header.Get("Range") == "" {
		if cached, ok := h.cache.Lookup(cacheKey); ok {
			if _, err := writeProxied(w, cached.Status, cached.Header, bytes.NewReader(cached.Body), req.ResourceKey, req.Download); err != nil {
				h.logger.Debug("cached stream aborted", "key", req.ResourceKey, "error", err)
			}
			return
		}
	}

	originURL, err := h.origin.OriginURL(r.Context(), req.ResourceKey)
	if err != nil {
		h.logger.Error("failed to resolve origin", "key", req.ResourceKey, "error", err)
		http.Error(w, "Proxy Error", http.StatusInternalServerError)
		return
	}

	resp, err := h.proxy.Fetch(r, originURL)
	if err != nil {
		h.logger.Error("origin fetch failed", "origin", originURL, "error", err)
		http.Error(w, "Proxy Error", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	var capture *captureWriter
	body := io.Reader(resp.Body)
	if h.cache != nil && h.cache.Storable(r, resp.StatusCode) {
		capture = newCaptureWriter(h.cache.MaxBody())
		body = io.TeeReader(resp.Body, capture)
	}

	if _, err := writeProxied(w, resp.StatusCode, resp.Header, body, req.ResourceKey, req.Download); err != nil {
		// Client disconnected or the origin died mid-stream. The inbound
		// context has already cancelled the origin transfer; there is
		// nobody left to report to, and a partial body must not be cached.
		h.logger.Debug("stream aborted", "key", req.ResourceKey, "error", err)
		return
	}

	if capture != nil && capture.Complete() {
		status, header := resp.StatusCode, cloneHeader(resp.Header)
		entry := capture.Bytes()
		go func() {
			if err := h.cache.Store(cacheKey, status, header, entry); err != nil {
				h.logger.Debug("cache store failed", "key", cacheKey, "error", err)
			}
		}()
	}
}
