package streamgate

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// DefaultExpiry is the lifetime of a freshly minted signed link.
const DefaultExpiry = 3 * time.Hour

// Signer derives and validates link signatures.
//
// The signature is the lowercase hex SHA-256 digest of
// resourceKey + decimal(expiry) + secret. This is the documented historical
// construction, not an HMAC: the secret must be high-entropy and must never
// be reused for any other purpose. Validation compares digests in constant
// time.
type Signer struct {
	secretKey []byte
	expiry    time.Duration
	now       func() time.Time
}

// SignerOption is a functional option for configuring a Signer
type SignerOption func(*Signer)

// WithSecretKey sets the shared secret used for signing
func WithSecretKey(key string) SignerOption {
	return func(s *Signer) {
		s.secretKey = []byte(key)
	}
}

// WithExpiry sets the lifetime of minted links.
// Default is 3 hours if not specified.
func WithExpiry(d time.Duration) SignerOption {
	return func(s *Signer) {
		s.expiry = d
	}
}

// WithClock overrides the time source. Used by tests to pin the boundary
// between valid and expired links.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// NewSigner creates a new Signer with the given options
func NewSigner(opts ...SignerOption) *Signer {
	s := &Signer{
		expiry: DefaultExpiry,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Sign computes the signature for a resource key and expiry timestamp.
// It is pure and deterministic: identical inputs yield the identical digest
// on any host, which is what allows mint and redeem to be served by
// different process instances.
//
// The resource key must already be in canonical (percent-decoded) form;
// minting and redeeming with differently-encoded forms of the same key
// produces different signatures.
func (s *Signer) Sign(resourceKey string, expiry int64) string {
	h := sha256.New()
	h.Write([]byte(resourceKey))
	h.Write([]byte(strconv.FormatInt(expiry, 10)))
	h.Write(s.secretKey)
	return hex.EncodeToString(h.Sum(nil))
}

// Issue mints a signature for the resource key expiring one configured
// lifetime from now. It returns the expiry timestamp and the signature.
func (s *Signer) Issue(resourceKey string) (int64, string, error) {
	if len(s.secretKey) == 0 {
		return 0, "", ErrNoSecretKey
	}
	expiry := s.now().Add(s.expiry).Unix()
	return expiry, s.Sign(resourceKey, expiry), nil
}

// Validate checks a redeem request's expiry and signature.
//
// The expiry is checked first: a missing or non-numeric expiry fails closed
// as ErrMalformedExpiry, and a timestamp in the past fails as ErrExpired.
// Only then is the signature recomputed and compared in constant time, so a
// failed request never learns anything about the expected signature. No
// origin contact happens here.
func (s *Signer) Validate(resourceKey, expiry, signature string) error {
	if len(s.secretKey) == 0 {
		return ErrNoSecretKey
	}

	expiresAt, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return ErrMalformedExpiry
	}
	if expiresAt < s.now().Unix() {
		return ErrExpired
	}

	expected := s.Sign(resourceKey, expiresAt)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrInvalidSignature
	}

	return nil
}

// Expiry returns the configured link lifetime.
func (s *Signer) Expiry() time.Duration {
	return s.expiry
}
