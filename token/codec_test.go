package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
	"github.com/jrsteele09/budget-dashboard/token"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := token.NewHMACSigner("codec-test").Sign(claims)
	require.NoError(t, err)
	return raw
}

func TestDecode(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	t.Run("valid token", func(t *testing.T) {
		raw := signedToken(t, jwt.MapClaims{"exp": now.Add(time.Hour).Unix(), "iat": now.Unix(), "sub": "7"})
		claims, err := token.Decode(raw)
		require.NoError(t, err)
		require.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAtEpochSeconds())
		require.Equal(t, now.Unix(), claims.IssuedAt.Unix())
		require.Equal(t, "7", claims.Subject)
	})

	t.Run("signature is not checked", func(t *testing.T) {
		raw, err := token.NewHMACSigner("some-other-key").Sign(jwt.MapClaims{"exp": now.Unix()})
		require.NoError(t, err)
		_, err = token.Decode(raw)
		require.NoError(t, err)
	})

	t.Run("missing exp", func(t *testing.T) {
		raw := signedToken(t, jwt.MapClaims{"sub": "7"})
		_, err := token.Decode(raw)
		require.ErrorIs(t, err, dasherrors.ErrMalformedToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := token.Decode("not.a.jwt")
		require.ErrorIs(t, err, dasherrors.ErrMalformedToken)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := token.Decode("  ")
		require.ErrorIs(t, err, dasherrors.ErrMalformedToken)
	})
}

func TestExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	raw := signedToken(t, jwt.MapClaims{"exp": now.Add(200 * time.Second).Unix()})

	require.False(t, token.IsExpired(raw, now))
	require.True(t, token.IsExpired(raw, now.Add(200*time.Second)))
	require.True(t, token.IsExpired(raw, now.Add(time.Hour)))

	require.True(t, token.IsExpiringWithin(raw, 300*time.Second, now))
	require.False(t, token.IsExpiringWithin(raw, 100*time.Second, now))
}

func TestMalformedTokensFailClosed(t *testing.T) {
	now := time.Now()
	for _, raw := range []string{"", "abc", "a.b.c", signedToken(t, jwt.MapClaims{"sub": "x"})} {
		require.True(t, token.IsExpired(raw, now), raw)
		require.True(t, token.IsExpiringWithin(raw, time.Second, now), raw)
	}
}
