package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims defines the custom claims for the bearer tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the subject the token was issued for.
func (c *Claims) UserID() string {
	return c.Subject
}

// IssueOptions configures a single token.
type IssueOptions struct {
	TTL time.Duration
}

// IssueOption mutates IssueOptions.
type IssueOption func(*IssueOptions)

// WithTTL embeds an expiry of ttl from issuance. Without it the token carries no expiry.
func WithTTL(ttl time.Duration) IssueOption {
	return func(o *IssueOptions) {
		o.TTL = ttl
	}
}

// TokenService defines the interface for issuing and validating bearer tokens.
// This abstracts the details of token creation from the use cases.
type TokenService interface {
	// Issue creates a signed token for the subject.
	Issue(subject string, opts ...IssueOption) (string, error)

	// ValidateToken checks the token and returns its claims.
	// It fails with domainerrors.ErrTokenMalformed, ErrTokenSignatureInvalid or ErrTokenExpired.
	ValidateToken(tokenString string) (*Claims, error)
}
