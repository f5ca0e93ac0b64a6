package refresh

import (
	"time"
)

// StoredRefreshToken represents the server-side record behind an opaque refresh token.
// The client only receives the Token field. Each record can be exchanged once.
type StoredRefreshToken struct {
	Token     string    // The actual random token string (sent to client)
	UserID    int64     // Owner of the token
	UserLevel string    // Carried into the rotated access token
	Iat       time.Time // Issued at
}

// Repo manages server-side storage of refresh token metadata keyed by the token string.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	// Take atomically removes and returns the record, so a token can only be exchanged once.
	Take(token string) (*StoredRefreshToken, error)
	Get(token string) (*StoredRefreshToken, error)
}
