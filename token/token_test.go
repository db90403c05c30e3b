package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/minuetaitor/minuet-go/token"
)

const signingSecret = "test-secret"

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingSecret))
	require.NoError(t, err)
	return raw
}

func TestDecodeExpiry_ValidToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	decoded, err := token.DecodeExpiry(signedToken(t, exp))
	require.NoError(t, err)
	require.True(t, decoded.Equal(exp))
}

func TestDecodeExpiry_GarbageToken(t *testing.T) {
	_, err := token.DecodeExpiry("not-a-jwt")
	require.ErrorIs(t, err, token.ErrUnknownExpiry)
}

func TestDecodeExpiry_EmptyToken(t *testing.T) {
	_, err := token.DecodeExpiry("")
	require.ErrorIs(t, err, token.ErrUnknownExpiry)
}

func TestDecodeExpiry_NoExpClaim(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"}).
		SignedString([]byte(signingSecret))
	require.NoError(t, err)

	_, decodeErr := token.DecodeExpiry(raw)
	require.ErrorIs(t, decodeErr, token.ErrUnknownExpiry)
}

func TestNewPair_RecomputesExpiry(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)

	pair := token.NewPair(signedToken(t, exp), "refresh-1")
	require.NotNil(t, pair.ExpiresAt)
	require.True(t, pair.ExpiresAt.Equal(exp))
}

func TestNewPair_UnknownExpiryIsNil(t *testing.T) {
	pair := token.NewPair("opaque-token", "refresh-1")
	require.Nil(t, pair.ExpiresAt)
	require.False(t, pair.Empty())
}

func TestPair_TTLAndExpired(t *testing.T) {
	now := time.Now()
	pair := token.NewPair(signedToken(t, now.Add(time.Hour)), "refresh-1")

	ttl, ok := pair.TTL(now)
	require.True(t, ok)
	require.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 1)

	require.False(t, pair.Expired(now))
	require.True(t, pair.Expired(now.Add(2*time.Hour)))
}

func TestPair_UnknownExpiryNeverReadsExpired(t *testing.T) {
	pair := token.NewPair("opaque-token", "refresh-1")

	_, ok := pair.TTL(time.Now())
	require.False(t, ok)
	require.False(t, pair.Expired(time.Now().Add(1000*time.Hour)))
}

func TestPair_Empty(t *testing.T) {
	require.True(t, token.Pair{}.Empty())
	require.False(t, token.Pair{RefreshToken: "refresh-1"}.Empty())
}
