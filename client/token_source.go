package client

import (
	"context"
	"time"

	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
	"github.com/jrsteele09/budget-dashboard/token"
	"golang.org/x/oauth2"
)

// expiryDelta mirrors oauth2's own early-expiry margin.
const expiryDelta = 10 * time.Second

// TokenSource returns an oauth2.TokenSource backed by the session, for SDKs
// that authenticate with an oauth2.Transport. A token about to expire is
// refreshed through the same single-flight path as everything else.
func (c *Client) TokenSource() oauth2.TokenSource {
	return &sessionTokenSource{client: c, nowFunc: time.Now}
}

type sessionTokenSource struct {
	client  *Client
	nowFunc func() time.Time
}

func (ts *sessionTokenSource) Token() (*oauth2.Token, error) {
	s := ts.client.store.Get()
	if !s.IsAuthenticated {
		if s.SessionExpired {
			return nil, dasherrors.ErrSessionExpired
		}
		return nil, dasherrors.ErrNotAuthenticated
	}

	tokens := s.Tokens()
	if token.IsExpiringWithin(tokens.Token, expiryDelta, ts.nowFunc()) {
		refreshed, err := ts.client.coordinator.RefreshRejected(context.Background(), tokens.Token)
		if err != nil {
			return nil, err
		}
		tokens = refreshed
	}

	t := &oauth2.Token{
		AccessToken:  tokens.Token,
		TokenType:    "Bearer",
		RefreshToken: tokens.Refresh,
	}
	if claims, err := token.Decode(tokens.Token); err == nil {
		t.Expiry = claims.ExpiresAt
	}
	return t, nil
}
