package streamgate

import (
	"errors"
	"net/http"
)

// RequestKind classifies an inbound request. Exactly one of the three kinds
// applies; the handler switches on it exhaustively instead of re-deriving
// the state from parameter presence at each decision point.
type RequestKind int

const (
	// KindNotFound means no resource key could be resolved; the bare root
	// is a legitimate operator entry point, so this defers to the admin
	// panel rather than a hard error.
	KindNotFound RequestKind = iota

	// KindMint means a resource key is present but no signature: the
	// request asks for a fresh signed link.
	KindMint

	// KindRedeem means both a resource key and a signature are present:
	// the request must be validated before any content is served.
	KindRedeem
)

// SignedLinkRequest is the parsed form of an inbound request. It is built
// fresh from each request's path and query string, never persisted, and not
// mutated after parsing.
type SignedLinkRequest struct {
	// ResourceKey is the canonical (percent-decoded) identifier: a bare
	// filename or a fully-qualified external URL.
	ResourceKey string

	// Expiry is the raw expiry parameter. Kept as a string so that a
	// malformed value is rejected during validation rather than silently
	// coerced.
	Expiry string

	// Signature is the sig parameter, empty on mint requests.
	Signature string

	// Download reports whether dl=true was requested (attachment instead
	// of inline disposition).
	Download bool
}

// ParseSignedLinkRequest extracts the signed-link parameters from an inbound
// request and classifies it. The presence of the sig parameter alone
// distinguishes a redeem from a mint; a mint request may legitimately carry
// a stale expiry parameter, which is overwritten on redirect.
func ParseSignedLinkRequest(r *http.Request) (SignedLinkRequest, RequestKind) {
	key, err := ResourceKeyFromRequest(r)
	if errors.Is(err, ErrNoResourceKey) {
		return SignedLinkRequest{}, KindNotFound
	}

	q := r.URL.Query()
	req := SignedLinkRequest{
		ResourceKey: key,
		Expiry:      q.Get("expiry"),
		Signature:   q.Get("sig"),
		Download:    q.Get("dl") == "true",
	}

	if req.Signature == "" {
		return req, KindMint
	}
	return req, KindRedeem
}
