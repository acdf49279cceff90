// Package auth verifies bearer tokens issued by the external identity
// provider. Tokens are never minted here; the shared secret only lets us
// check signatures and read the actor claims.
package auth

import (
	"errors"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/printops/servicedesk/internal/domain"
)

// TokenVerifier validates JWTs from the identity provider.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier builds a verifier over the shared HS256 secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Claims is the JWT payload stamped by the identity provider.
type Claims struct {
	Role      domain.Role `json:"role"`
	CompanyID string      `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

// Verify validates the token and returns the actor it identifies.
func (v *TokenVerifier) Verify(tokenStr string) (domain.Actor, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Actor{}, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Actor{}, errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return domain.Actor{}, errors.New("token missing subject")
	}
	if !domain.IsValidRole(claims.Role) {
		return domain.Actor{}, errors.New("token carries unknown role")
	}
	if claims.Role == domain.RoleCompany && claims.CompanyID == "" {
		return domain.Actor{}, errors.New("company token missing company_id")
	}

	return domain.Actor{
		ID:        claims.Subject,
		Role:      claims.Role,
		CompanyID: claims.CompanyID,
	}, nil
}
