package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents the verified content of an access token
type AuthClaims interface {
	Subject() string
	UserID() string
	Username() string
	Roles() []string
	HasRole(role string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID        string   `json:"uid,omitempty"`
	Name       string   `json:"username,omitempty"`
	GlobalRole []string `json:"roles,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Username returns the username recorded at issue time
func (c *JWTClaims) Username() string {
	return c.Name
}

// Roles returns the global roles recorded at issue time. Authorization
// decisions re-read the user record, these are informational.
func (c *JWTClaims) Roles() []string {
	return c.GlobalRole
}

// HasRole checks the global roles carried by the token
func (c *JWTClaims) HasRole(role string) bool {
	for _, r := range c.GlobalRole {
		if r == role {
			return true
		}
	}
	return false
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
