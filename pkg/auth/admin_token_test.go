package auth_test

import (
	"testing"
	"time"

	"go-recruitment-intake/pkg/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminToken(t *testing.T) {
	const secret = "test-secret"

	t.Run("Should round trip a valid admin token", func(t *testing.T) {
		token, err := auth.IssueAdminToken(secret, "admin-1", "ops@example.com", time.Hour)
		require.NoError(t, err)

		claims, err := auth.ParseAdminToken(secret, token)
		require.NoError(t, err)
		assert.Equal(t, "admin-1", claims.Subject)
		assert.Equal(t, "ops@example.com", claims.Email)
	})

	t.Run("Should reject a token signed with another secret", func(t *testing.T) {
		token, _ := auth.IssueAdminToken("other", "admin-1", "", time.Hour)
		_, err := auth.ParseAdminToken(secret, token)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("Should reject expired tokens", func(t *testing.T) {
		token, _ := auth.IssueAdminToken(secret, "admin-1", "", -time.Minute)
		_, err := auth.ParseAdminToken(secret, token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("Should reject tokens without the admin role", func(t *testing.T) {
		claims := auth.AdminClaims{
			Role:             "candidate",
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		}
		token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		_, err := auth.ParseAdminToken(secret, token)
		assert.ErrorIs(t, err, auth.ErrNotAdmin)
	})

	t.Run("Should refuse to work without a secret", func(t *testing.T) {
		_, err := auth.ParseAdminToken("", "anything")
		assert.ErrorIs(t, err, auth.ErrMissingSecret)
	})
}
