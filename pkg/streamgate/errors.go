package streamgate

import "errors"

// Validation and proxy errors
var (
	// ErrNoSecretKey is returned when attempting to sign or validate links
	// without a configured secret key
	ErrNoSecretKey = errors.New("streamgate: no secret key configured")

	// ErrMalformedExpiry is returned when the expiry parameter is missing or
	// not a decimal integer; it is handled exactly like ErrExpired (fail closed)
	ErrMalformedExpiry = errors.New("streamgate: missing or malformed expiry parameter")

	// ErrExpired is returned when the signed link has expired
	ErrExpired = errors.New("streamgate: link expired")

	// ErrInvalidSignature is returned when the supplied signature does not
	// match the recomputed one
	ErrInvalidSignature = errors.New("streamgate: invalid signature")

	// ErrNoResourceKey is returned when no identifier can be resolved from
	// the request path or query string
	ErrNoResourceKey = errors.New("streamgate: no resource key in request")

	// ErrOriginUnreachable is returned when the origin fetch fails at the
	// transport level
	ErrOriginUnreachable = errors.New("streamgate: origin unreachable")
)

// IsAuthError returns true if the error is a link validation failure.
// All of these are terminal for the request and are decided strictly before
// any origin network call.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrMalformedExpiry) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrNoSecretKey)
}
