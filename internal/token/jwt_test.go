package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "securyflex/pkg/domain"
)

func signToken(t *testing.T, key string, claims accessClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	guardID := id.NewGuardID().String()
	orgID := id.NewOrganizationID().String()
	validator := NewValidator("test-key")

	signed := signToken(t, "test-key", accessClaims{
		GuardID:        guardID,
		OrganizationID: orgID,
		Role:           "guard",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := validator.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, guardID, claims.GuardID)
	assert.Equal(t, orgID, claims.OrganizationID)
	assert.Equal(t, "guard", claims.Role)
}

func TestValidateTokenWrongKey(t *testing.T) {
	validator := NewValidator("right-key")
	signed := signToken(t, "wrong-key", accessClaims{GuardID: id.NewGuardID().String()})

	_, err := validator.ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	validator := NewValidator("test-key")
	signed := signToken(t, "test-key", accessClaims{
		GuardID: id.NewGuardID().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := validator.ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	validator := NewValidator("test-key")
	_, err := validator.ValidateToken("not.a.token")
	assert.Error(t, err)
}
