package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const tokenLength = 32 // bytes, 256 bits

// Manager handles refresh token creation, validation, and rotation
type Manager struct {
	repo   Repo
	expiry time.Duration
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, expiry time.Duration) *Manager {
	return &Manager{
		repo:   repo,
		expiry: expiry,
	}
}

// Create generates a new refresh token and stores it
func (m *Manager) Create(userID int64, userLevel string) (string, error) {
	tokenBytes := make([]byte, tokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:     tokenStr,
		UserID:    userID,
		UserLevel: userLevel,
		Iat:       NowTimeFunc(),
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return tokenStr, nil
}

// Rotate consumes token and issues its replacement. The presented token is
// invalid afterwards whether or not rotation succeeds.
func (m *Manager) Rotate(token string, userID int64) (*StoredRefreshToken, string, error) {
	rt, err := m.repo.Take(token)
	if err != nil {
		return nil, "", dasherrors.ErrInvalidRefreshToken
	}
	if rt.UserID != userID {
		return nil, "", dasherrors.ErrInvalidRefreshToken
	}
	if m.IsExpired(rt) {
		return nil, "", dasherrors.ErrRefreshTokenExpired
	}

	next, err := m.Create(rt.UserID, rt.UserLevel)
	if err != nil {
		return nil, "", err
	}
	return rt, next, nil
}

// Revoke removes a refresh token from storage; unknown tokens are ignored
func (m *Manager) Revoke(token string) {
	_ = m.repo.Delete(token)
}

// IsExpired checks if a refresh token has outlived the configured expiry
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	if m.expiry <= 0 {
		return false
	}
	return NowTimeFunc().Sub(rt.Iat) > m.expiry
}
