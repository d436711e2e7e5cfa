package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMissing = errors.New("authorization token is missing")
	ErrTokenExpired = errors.New("authorization token has expired")
)

// TokenInfo is what the dashboard can learn from a backend-issued token
// without holding the backend's signing key.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
}

// HasExpiry reports whether the token carries an exp claim
func (i TokenInfo) HasExpiry() bool {
	return !i.ExpiresAt.IsZero()
}

// Expired reports whether the token is past its exp claim at now
func (i TokenInfo) Expired(now time.Time) bool {
	return i.HasExpiry() && !now.Before(i.ExpiresAt)
}

// InspectToken decodes the registered claims of a JWT without verifying the
// signature. Signature checks are the backend's job; the dashboard only uses
// the claims to short-circuit obviously expired sessions. Opaque (non-JWT)
// tokens yield an empty TokenInfo and no error.
func InspectToken(tokenString string) (TokenInfo, error) {
	if tokenString == "" {
		return TokenInfo{}, ErrTokenMissing
	}
	if strings.Count(tokenString, ".") != 2 {
		return TokenInfo{}, nil
	}

	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("failed to parse token: %w", err)
	}

	info := TokenInfo{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// ExtractTokenFromHeader extracts the bearer token from an Authorization header
func ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("authorization header is empty")
	}

	const bearerPrefix = "Bearer "
	if len(authHeader) < len(bearerPrefix) || !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", errors.New("authorization header must start with 'Bearer '")
	}

	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if token == "" {
		return "", ErrTokenMissing
	}
	return token, nil
}
