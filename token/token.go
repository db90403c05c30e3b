package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnknownExpiry reports that an access token's expiry claim could not be
// decoded. The token is still usable; it just needs revalidation on the next
// backend call rather than proactive refresh.
var ErrUnknownExpiry = errors.New("token expiry unknown")

// Pair is the credential pair issued at login and rotated on every refresh.
// ExpiresAt caches the access token's decoded "exp" claim so consumers do
// not decode the token repeatedly; nil means the expiry is unknown.
type Pair struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// NewPair builds a Pair, recomputing ExpiresAt from the access token. Decode
// failure is deliberate leniency, not an error: the pair is returned with a
// nil ExpiresAt.
func NewPair(accessToken, refreshToken string) Pair {
	pair := Pair{AccessToken: accessToken, RefreshToken: refreshToken}
	if expiresAt, err := DecodeExpiry(accessToken); err == nil {
		pair.ExpiresAt = &expiresAt
	}
	return pair
}

// DecodeExpiry extracts the "exp" claim from a raw JWT without verifying the
// signature (the client holds no verification keys; the backend is the
// authority). Returns ErrUnknownExpiry when the claim cannot be read.
func DecodeExpiry(rawToken string) (time.Time, error) {
	if rawToken == "" {
		return time.Time{}, ErrUnknownExpiry
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, ErrUnknownExpiry
	}

	claims, ok := unverified.Claims.(jwt.MapClaims)
	if !ok {
		return time.Time{}, ErrUnknownExpiry
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, ErrUnknownExpiry
	}
	return exp.Time, nil
}

// Empty reports whether the pair holds no credentials at all.
func (p Pair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// TTL returns the remaining lifetime of the access token. ok is false when
// the expiry is unknown.
func (p Pair) TTL(now time.Time) (ttl time.Duration, ok bool) {
	if p.ExpiresAt == nil {
		return 0, false
	}
	return p.ExpiresAt.Sub(now), true
}

// Expired reports whether the access token is known to be past its expiry.
// An unknown expiry reads as not expired; the backend is the tiebreaker.
func (p Pair) Expired(now time.Time) bool {
	ttl, ok := p.TTL(now)
	return ok && ttl <= 0
}
