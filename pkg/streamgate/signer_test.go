package streamgate

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerSign(t *testing.T) {
	signer := NewSigner(WithSecretKey("s3cr3t"))

	t.Run("deterministic", func(t *testing.T) {
		first := signer.Sign("a.mp4", 1700010800)
		second := signer.Sign("a.mp4", 1700010800)
		assert.Equal(t, first, second)
	})

	t.Run("reference vector", func(t *testing.T) {
		// sha256("a.mp4" + "1700010800" + "s3cr3t")
		sig := signer.Sign("a.mp4", 1700010800)
		assert.Equal(t, "5baae739155a71799855e1a757759ef0fc61fee88df193c239b3159695553b9b", sig)
	})

	t.Run("64 lowercase hex chars", func(t *testing.T) {
		sig := signer.Sign("movie.mp4", 1700000000)
		require.Len(t, sig, 64)
		for _, c := range sig {
			assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'), "unexpected char %q", c)
		}
	})

	t.Run("inputs change the digest", func(t *testing.T) {
		base := signer.Sign("a.mp4", 1700010800)
		assert.NotEqual(t, base, signer.Sign("b.mp4", 1700010800))
		assert.NotEqual(t, base, signer.Sign("a.mp4", 1700010801))
		assert.NotEqual(t, base, NewSigner(WithSecretKey("other")).Sign("a.mp4", 1700010800))
	})
}

func TestSignerIssue(t *testing.T) {
	now := time.Unix(1700000000, 0)
	signer := NewSigner(
		WithSecretKey("s3cr3t"),
		WithExpiry(10800*time.Second),
		WithClock(func() time.Time { return now }),
	)

	expiry, sig, err := signer.Issue("a.mp4")
	require.NoError(t, err)
	assert.Equal(t, int64(1700010800), expiry)
	assert.Equal(t, signer.Sign("a.mp4", expiry), sig)

	t.Run("no secret key", func(t *testing.T) {
		_, _, err := NewSigner().Issue("a.mp4")
		assert.ErrorIs(t, err, ErrNoSecretKey)
	})
}

func TestSignerValidate(t *testing.T) {
	now := time.Unix(1700000000, 0)
	signer := NewSigner(
		WithSecretKey("s3cr3t"),
		WithExpiry(10800*time.Second),
		WithClock(func() time.Time { return now }),
	)

	mint := func(key string) (string, string) {
		expiry, sig, err := signer.Issue(key)
		require.NoError(t, err)
		return strconv.FormatInt(expiry, 10), sig
	}

	t.Run("round trip", func(t *testing.T) {
		expiry, sig := mint("a.mp4")
		assert.NoError(t, signer.Validate("a.mp4", expiry, sig))
	})

	t.Run("expiry one second in the future is accepted", func(t *testing.T) {
		expiry := now.Unix() + 1
		sig := signer.Sign("a.mp4", expiry)
		assert.NoError(t, signer.Validate("a.mp4", strconv.FormatInt(expiry, 10), sig))
	})

	t.Run("expiry one second in the past is expired", func(t *testing.T) {
		expiry := now.Unix() - 1
		sig := signer.Sign("a.mp4", expiry)
		err := signer.Validate("a.mp4", strconv.FormatInt(expiry, 10), sig)
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("expiry equal to now is accepted", func(t *testing.T) {
		expiry := now.Unix()
		sig := signer.Sign("a.mp4", expiry)
		assert.NoError(t, signer.Validate("a.mp4", strconv.FormatInt(expiry, 10), sig))
	})

	t.Run("missing expiry fails closed", func(t *testing.T) {
		_, sig := mint("a.mp4")
		err := signer.Validate("a.mp4", "", sig)
		assert.ErrorIs(t, err, ErrMalformedExpiry)
	})

	t.Run("non-numeric expiry fails closed", func(t *testing.T) {
		_, sig := mint("a.mp4")
		err := signer.Validate("a.mp4", "never", sig)
		assert.ErrorIs(t, err, ErrMalformedExpiry)
	})

	t.Run("flipping any signature character is rejected", func(t *testing.T) {
		expiry, sig := mint("a.mp4")
		for i := 0; i < len(sig); i += 7 {
			tampered := []byte(sig)
			if tampered[i] == 'a' {
				tampered[i] = 'b'
			} else {
				tampered[i] = 'a'
			}
			err := signer.Validate("a.mp4", expiry, string(tampered))
			assert.ErrorIs(t, err, ErrInvalidSignature, "flipped position %d", i)
		}
	})

	t.Run("signature does not transfer to another key", func(t *testing.T) {
		expiry, sig := mint("a.mp4")
		err := signer.Validate("b.mp4", expiry, sig)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("expiry check runs before signature check", func(t *testing.T) {
		// Even a correctly signed link is reported expired first.
		expiry := now.Unix() - 10
		sig := signer.Sign("a.mp4", expiry)
		err := signer.Validate("a.mp4", strconv.FormatInt(expiry, 10), sig)
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("no secret key", func(t *testing.T) {
		err := NewSigner().Validate("a.mp4", "1700010800", "whatever")
		assert.ErrorIs(t, err, ErrNoSecretKey)
	})
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(ErrExpired))
	assert.True(t, IsAuthError(ErrMalformedExpiry))
	assert.True(t, IsAuthError(ErrInvalidSignature))
	assert.True(t, IsAuthError(ErrNoSecretKey))
	assert.False(t, IsAuthError(ErrOriginUnreachable))
	assert.False(t, IsAuthError(ErrNoResourceKey))
	assert.False(t, IsAuthError(nil))
}
