// Package auth adapts the external identity provider: verifying bearer
// tokens it issued, and registering new identities at signup.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homecook-market/market-svc/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

type Verifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

type UserMetadata struct {
	Name     string `json:"name"`
	UserType string `json:"userType"`
}

// Claims mirrors the identity provider's access token payload.
type Claims struct {
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return domain.Identity{}, ErrInvalidToken
	}

	role := domain.Role(claims.UserMetadata.UserType)
	if !role.Valid() {
		role = domain.RoleCustomer
	}

	return domain.Identity{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  claims.UserMetadata.Name,
		Role:  role,
	}, nil
}

// IssueToken signs a token in the identity provider's format. Used by the
// dev token command and tests; production tokens come from the provider.
func IssueToken(secret string, identity domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: identity.Email,
		UserMetadata: UserMetadata{
			Name:     identity.Name,
			UserType: string(identity.Role),
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
