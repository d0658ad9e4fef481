package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go-recruitment-intake/pkg/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jwksServer(t *testing.T, kid string, key *rsa.PublicKey) (*httptest.Server, *int32) {
	t.Helper()
	var fetches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&fetches, 1)
		_ = json.NewEncoder(w).Encode(auth.JWKS{Keys: []auth.JSONWebKey{{
			Kid: kid,
			Kty: "RSA",
			Alg: "RS256",
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	t.Cleanup(server.Close)
	return server, &fetches
}

func rs256Token(t *testing.T, key *rsa.PrivateKey, kid, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, auth.AdminClaims{
		Email: "ops@example.com",
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin-9",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestVerifierWithJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	t.Run("Should accept RS256 admin tokens signed by a published key", func(t *testing.T) {
		server, fetches := jwksServer(t, "key-1", &key.PublicKey)
		verifier := auth.NewVerifier("", auth.NewProvider(server.URL, nil))

		claims, err := verifier.Parse(rs256Token(t, key, "key-1", auth.RoleAdmin))
		require.NoError(t, err)
		assert.Equal(t, "admin-9", claims.Subject)

		_, err = verifier.Parse(rs256Token(t, key, "key-1", auth.RoleAdmin))
		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(fetches), "keys are cached")
	})

	t.Run("Should reject an unknown kid without hammering the endpoint", func(t *testing.T) {
		server, fetches := jwksServer(t, "key-1", &key.PublicKey)
		verifier := auth.NewVerifier("", auth.NewProvider(server.URL, nil))

		_, err := verifier.Parse(rs256Token(t, key, "key-2", auth.RoleAdmin))
		assert.ErrorIs(t, err, auth.ErrUnknownKey)
		_, err = verifier.Parse(rs256Token(t, key, "key-2", auth.RoleAdmin))
		assert.ErrorIs(t, err, auth.ErrUnknownKey)
		assert.Equal(t, int32(1), atomic.LoadInt32(fetches))
	})

	t.Run("Should still require the admin role", func(t *testing.T) {
		server, _ := jwksServer(t, "key-1", &key.PublicKey)
		verifier := auth.NewVerifier("", auth.NewProvider(server.URL, nil))

		_, err := verifier.Parse(rs256Token(t, key, "key-1", "candidate"))
		assert.ErrorIs(t, err, auth.ErrNotAdmin)
	})

	t.Run("Should reject RS256 tokens when no JWKS is configured", func(t *testing.T) {
		_, err := auth.NewVerifier("shared-secret", nil).Parse(rs256Token(t, key, "key-1", auth.RoleAdmin))
		assert.ErrorIs(t, err, jwt.ErrTokenUnverifiable)
	})

	t.Run("Should accept HS256 and RS256 side by side", func(t *testing.T) {
		server, _ := jwksServer(t, "key-1", &key.PublicKey)
		verifier := auth.NewVerifier("shared-secret", auth.NewProvider(server.URL, nil))

		hs, err := auth.IssueAdminToken("shared-secret", "admin-1", "", time.Hour)
		require.NoError(t, err)

		_, err = verifier.Parse(hs)
		assert.NoError(t, err)
		_, err = verifier.Parse(rs256Token(t, key, "key-1", auth.RoleAdmin))
		assert.NoError(t, err)
	})
}
