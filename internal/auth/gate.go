// Package auth is the identity gate: it turns a connection credential
// into a stable identity exactly once, before any other operation runs
// on that connection.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bluesea-chat/bluesea/internal/core"
	"github.com/bluesea-chat/bluesea/internal/domain"
)

// Identity is what a verified credential resolves to. Immutable for the
// lifetime of the connection it was attached to.
type Identity struct {
	UserID      domain.UserID
	DisplayName string
}

type Verifier interface {
	Verify(credential string) (Identity, error)
}

type Issuer interface {
	Issue(id domain.UserID, displayName string) (string, error)
}

type tokenClaims struct {
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

// TokenGate verifies and issues HMAC-signed bearer tokens.
type TokenGate struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenGate(secret string, ttl time.Duration) *TokenGate {
	return &TokenGate{secret: []byte(secret), ttl: ttl}
}

func (g *TokenGate) Issue(id domain.UserID, displayName string) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(id),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
}

func (g *TokenGate) Verify(credential string) (Identity, error) {
	if credential == "" {
		return Identity{}, fmt.Errorf("%w: missing credential", core.ErrUnauthenticated)
	}
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(credential, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return g.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", core.ErrUnauthenticated, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: invalid claims", core.ErrUnauthenticated)
	}
	return Identity{UserID: domain.UserID(claims.Subject), DisplayName: claims.DisplayName}, nil
}
