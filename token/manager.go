package token

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
)

// AccessClaims is what the dev API knows about the holder of a verified access token.
type AccessClaims struct {
	UserID    int64
	UserLevel string
	ExpiresAt time.Time
	JTI       string
}

// Manager mints and verifies access tokens for the dev API.
type Manager struct {
	signer            Signer
	issuer            string
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithAccessTokenExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = expiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func NewManager(signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		signer: signer,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry == 0 {
		m.accessTokenExpiry = 5 * time.Minute
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// AccessTokenExpiry returns the lifetime of minted access tokens
func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

func (m *Manager) CreateAccessToken(userID int64, userLevel string) (string, error) {
	now := m.nowFunc()
	claims := jwt.MapClaims{
		"iss":        m.issuer,
		"sub":        strconv.FormatInt(userID, 10),
		"user_level": userLevel,
		"iat":        now.Unix(),
		"exp":        now.Add(m.accessTokenExpiry).Unix(),
		"jti":        uuid.New().String(),
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("Manager.CreateAccessToken: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the token's claims
func (m *Manager) Verify(rawToken string) (*AccessClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, dasherrors.ErrUnauthorized
	}

	parsed, err := jwt.Parse(rawToken, m.signer.Keyfunc,
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{m.signer.Method().Alg()}),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", dasherrors.ErrUnauthorized, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: error extracting claims", dasherrors.ErrUnauthorized)
	}

	sub, _ := claims["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", dasherrors.ErrUnauthorized)
	}
	level, _ := claims["user_level"].(string)
	jti, _ := claims["jti"].(string)

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing exp", dasherrors.ErrUnauthorized)
	}

	return &AccessClaims{
		UserID:    userID,
		UserLevel: level,
		ExpiresAt: exp.Time,
		JTI:       jti,
	}, nil
}
