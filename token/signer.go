package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
)

// Signer signs access tokens and supplies the key to verify them.
type Signer interface {
	Sign(claims jwt.MapClaims) (string, error)
	// Keyfunc is handed to jwt.Parse.
	Keyfunc(token *jwt.Token) (any, error)
	Method() jwt.SigningMethod
}

// HMACSigner signs with a shared HS256 secret. The dashboard API and the dev
// server hold the secret; clients never do.
type HMACSigner struct {
	secret []byte
}

var _ Signer = (*HMACSigner)(nil)

func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{secret: []byte(secret)}
}

func (h *HMACSigner) Sign(claims jwt.MapClaims) (string, error) {
	signed, err := jwt.NewWithClaims(h.Method(), claims).SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("HMACSigner.Sign: %w", err)
	}
	return signed, nil
}

func (h *HMACSigner) Keyfunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("%w: unexpected alg %v", dasherrors.ErrMalformedToken, token.Header["alg"])
	}
	return h.secret, nil
}

func (h *HMACSigner) Method() jwt.SigningMethod {
	return jwt.SigningMethodHS256
}
