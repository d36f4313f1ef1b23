package portal

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims binds an access token to one stored portal session.
type tokenClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// GenerateToken mints a signed HS256 access token carrying the session id.
// The token's own expiry mirrors the session's; the stored session remains
// the source of truth checked on every access path.
func GenerateToken(sessionID string, secret []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		SessionID: sessionID,
	})
	return token.SignedString(secret)
}

// SessionIDFromToken verifies the signature and returns the embedded session
// id. An expired token yields ErrSessionExpired; anything else invalid yields
// ErrUnauthorized.
func SessionIDFromToken(tokenString string, secret []byte) (string, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrSessionExpired
		}
		return "", ErrUnauthorized
	}
	if !token.Valid || claims.SessionID == "" {
		return "", ErrUnauthorized
	}
	return claims.SessionID, nil
}
