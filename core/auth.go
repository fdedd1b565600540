package core

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token is a single credential issued by the wallet service
type Token struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// ValidAt reports whether the token is present and expires strictly after now
func (t Token) ValidAt(now time.Time) bool {
	return t.Token != "" && t.Expires.After(now)
}

// TokenPair is the access/refresh pair persisted by the credential store
type TokenPair struct {
	Access  Token `json:"access"`
	Refresh Token `json:"refresh"`
}

// HasAccess reports whether the pair carries an access credential at all
func (p TokenPair) HasAccess() bool {
	return p.Access.Token != ""
}

// TokenPairFromAccessToken builds a pair from a bare access token.
// The expiry is read from the JWT exp claim; the signature is not checked
// because the SDK never holds the service's verification key.
func TokenPairFromAccessToken(raw string) (TokenPair, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return TokenPair{}, fmt.Errorf("failed to parse access token: %w", err)
	}

	if claims.ExpiresAt == nil {
		return TokenPair{}, fmt.Errorf("access token has no exp claim")
	}

	return TokenPair{
		Access: Token{
			Token:   raw,
			Expires: claims.ExpiresAt.Time,
		},
	}, nil
}
