package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated user behind a session.
type Principal struct {
	Subject  string
	Username string
	Email    string
}

type idClaims struct {
	Email    string `json:"email"`
	Username string `json:"cognito:username"`
	jwt.RegisteredClaims
}

// ParsePrincipal reads the principal and expiry out of an ID token.
//
// The signature is not checked here: the token came straight from the
// provider over TLS and every backend call re-verifies it.
func ParsePrincipal(idToken string) (Principal, time.Time, error) {
	var claims idClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return Principal{}, time.Time{}, fmt.Errorf("parse id token: %w", err)
	}
	if claims.Subject == "" {
		return Principal{}, time.Time{}, errors.New("parse id token: missing sub claim")
	}

	p := Principal{
		Subject:  claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
	}
	if p.Username == "" {
		p.Username = p.Email
	}
	if p.Username == "" {
		p.Username = p.Subject
	}

	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return p, exp, nil
}

func tokenIssuer(idToken string) (string, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return "", fmt.Errorf("parse id token: %w", err)
	}
	return claims.Issuer, nil
}
