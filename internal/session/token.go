package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer = "online-compiler"

	// DefaultTokenLifetime bounds how long one cookie value is accepted.
	// The cookie is re-issued on every page load.
	DefaultTokenLifetime = 24 * time.Hour
)

// Tokens signs and verifies the session cookie. The cookie carries only the
// session id, in the "sub" claim of an HS256 JWT.
type Tokens struct {
	secret   []byte
	lifetime time.Duration
}

// NewTokens creates Tokens with the given secret (at least 16 characters).
func NewTokens(secret string) (*Tokens, error) {
	if len(secret) < 16 {
		return nil, errors.New("session: secret must be at least 16 characters")
	}
	return &Tokens{secret: []byte(secret), lifetime: DefaultTokenLifetime}, nil
}

// RandomSecret returns a hex secret for servers started without one.
// Sessions then do not survive a restart.
func RandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: generating secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Issue signs a token for sessionID.
func (t *Tokens) Issue(sessionID string) (string, error) {
	return t.issueWithLifetime(sessionID, t.lifetime)
}

func (t *Tokens) issueWithLifetime(sessionID string, d time.Duration) (string, error) {
	now := time.Now()
	c := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    tokenIssuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("session: signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry and returns the session id.
func (t *Tokens) Verify(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("session: invalid token: %w", err)
	}
	if !token.Valid || c.Subject == "" {
		return "", errors.New("session: token has no subject")
	}
	return c.Subject, nil
}
