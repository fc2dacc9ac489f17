// Package token verifies the platform-issued access tokens presented to the
// location API. Token issuance lives in the main SecuryFlex backend; this
// service only validates.
package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"securyflex/internal/platform/middleware"
)

// Validator verifies HMAC-signed access tokens.
type Validator struct {
	signingKey []byte
}

// NewValidator creates a Validator with the shared signing key.
func NewValidator(signingKey string) *Validator {
	return &Validator{signingKey: []byte(signingKey)}
}

type accessClaims struct {
	GuardID        string `json:"guard_id"`
	OrganizationID string `json:"org_id"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

// ValidateToken parses and verifies a token string and returns its claims.
func (v *Validator) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	var claims accessClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return &middleware.JWTClaims{
		GuardID:        claims.GuardID,
		OrganizationID: claims.OrganizationID,
		Role:           claims.Role,
	}, nil
}
