package sessions

import (
	"encoding/json"
	"fmt"
)

// State is the coarse lifecycle position of a Session.
type State string

const (
	StateLoggedOut      State = "logged_out"
	StateAuthenticated  State = "authenticated"
	StateSessionExpired State = "session_expired"
)

// Tokens is an access/refresh credential pair as issued by the API.
type Tokens struct {
	Token   string `json:"token"`   // Access token (JWT)
	Refresh string `json:"refresh"` // Refresh token, single use on the server
}

// Session is an immutable snapshot of the client's credentials and auth flags.
// IsAuthenticated and SessionExpired are never both true.
type Session struct {
	ID              string // Assigned on login/hydrate, preserved across token rotation
	AccessToken     string
	RefreshToken    string
	UserID          int64
	UserLevel       string
	IsAuthenticated bool
	SessionExpired  bool
}

func (s Session) State() State {
	switch {
	case s.SessionExpired:
		return StateSessionExpired
	case s.IsAuthenticated:
		return StateAuthenticated
	default:
		return StateLoggedOut
	}
}

func (s Session) Tokens() Tokens {
	return Tokens{Token: s.AccessToken, Refresh: s.RefreshToken}
}

// CanRefresh reports whether a silent refresh may be attempted for this session.
func (s Session) CanRefresh() bool {
	return s.IsAuthenticated && s.RefreshToken != ""
}

// snapshot is the persisted form: { user, userLevel, tokens: { token, refresh } }
type snapshot struct {
	User      int64  `json:"user"`
	UserLevel string `json:"userLevel"`
	Tokens    Tokens `json:"tokens"`
}

// MarshalSnapshot encodes the persisted record for a session.
func MarshalSnapshot(s Session) ([]byte, error) {
	return json.Marshal(snapshot{
		User:      s.UserID,
		UserLevel: s.UserLevel,
		Tokens:    s.Tokens(),
	})
}

// UnmarshalSnapshot decodes a persisted record. The returned session carries
// credentials and identity only; the Store decides whether it is authenticated.
func UnmarshalSnapshot(data []byte) (*Session, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("UnmarshalSnapshot: %w", err)
	}
	return &Session{
		AccessToken:  snap.Tokens.Token,
		RefreshToken: snap.Tokens.Refresh,
		UserID:       snap.User,
		UserLevel:    snap.UserLevel,
	}, nil
}
