package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
)

// Claims are the parts of an access token the client cares about.
// Derived on demand from the raw token and never persisted.
type Claims struct {
	ExpiresAt time.Time // exp
	IssuedAt  time.Time // iat, zero if absent
	Subject   string    // sub, empty if absent
}

// ExpiresAtEpochSeconds returns exp as a unix timestamp
func (c Claims) ExpiresAtEpochSeconds() int64 {
	return c.ExpiresAt.Unix()
}

// Decode reads the claims of a JWT without verifying its signature. The client
// cannot verify tokens (it has no key); it only needs to know when they expire.
func Decode(rawToken string) (Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return Claims{}, fmt.Errorf("%w: empty token", dasherrors.ErrMalformedToken)
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", dasherrors.ErrMalformedToken, err)
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return Claims{}, fmt.Errorf("%w: missing exp claim", dasherrors.ErrMalformedToken)
	}

	claims := Claims{ExpiresAt: exp.Time}
	if iat, err := parsed.Claims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if sub, err := parsed.Claims.GetSubject(); err == nil {
		claims.Subject = sub
	}
	return claims, nil
}

// IsExpired reports whether the token has expired at now.
// Undecodable tokens count as expired.
func IsExpired(rawToken string, now time.Time) bool {
	claims, err := Decode(rawToken)
	if err != nil {
		return true
	}
	return !now.Before(claims.ExpiresAt)
}

// IsExpiringWithin reports whether the token expires within threshold of now.
// Undecodable tokens count as expiring.
func IsExpiringWithin(rawToken string, threshold time.Duration, now time.Time) bool {
	claims, err := Decode(rawToken)
	if err != nil {
		return true
	}
	return !now.Add(threshold).Before(claims.ExpiresAt)
}
