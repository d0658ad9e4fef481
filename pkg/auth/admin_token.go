package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

var (
	ErrMissingSecret = errors.New("admin jwt secret is not configured")
	ErrNotAdmin      = errors.New("token does not carry the admin role")
)

// AdminClaims are the claims of an admin dashboard token.
type AdminClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// IssueAdminToken signs an HS256 admin token valid for ttl.
func IssueAdminToken(secret, subject, email string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	now := time.Now()
	claims := AdminClaims{
		Email: email,
		Role:  RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Verifier checks admin tokens. HS256 tokens are verified with the shared
// secret; RS256 tokens from the identity provider are verified through the
// JWKS provider when one is configured.
type Verifier struct {
	secret string
	jwks   *Provider
}

func NewVerifier(secret string, jwks *Provider) *Verifier {
	return &Verifier{secret: secret, jwks: jwks}
}

// ParseAdminToken verifies an HS256 token against secret.
func ParseAdminToken(secret, tokenString string) (*AdminClaims, error) {
	return NewVerifier(secret, nil).Parse(tokenString)
}

// Parse verifies signature, expiry and role.
func (v *Verifier) Parse(tokenString string) (*AdminClaims, error) {
	if v.secret == "" && v.jwks == nil {
		return nil, ErrMissingSecret
	}

	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Role != RoleAdmin {
		return nil, ErrNotAdmin
	}
	return claims, nil
}

func (v *Verifier) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.secret == "" {
			return nil, ErrMissingSecret
		}
		return []byte(v.secret), nil
	case *jwt.SigningMethodRSA:
		if v.jwks == nil {
			return nil, fmt.Errorf("rs256 tokens are not accepted without a jwks url")
		}
		return v.jwks.KeyFunc(token)
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
}
