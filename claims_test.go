package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-tracker-auth"
	"github.com/stretchr/testify/assert"
)

func TestJWTClaims_Subject(t *testing.T) {
	claims := &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "user123",
		},
	}

	assert.Equal(t, "user123", claims.Subject())
}

func TestJWTClaims_UserID(t *testing.T) {
	t.Run("returns UID when present", func(t *testing.T) {
		claims := &auth.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject: "user123",
			},
			UID: "uid456",
		}

		assert.Equal(t, "uid456", claims.UserID())
	})

	t.Run("fallback to subject when UID is empty", func(t *testing.T) {
		claims := &auth.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject: "user123",
			},
		}

		assert.Equal(t, "user123", claims.UserID())
	})
}

func TestJWTClaims_HasRole(t *testing.T) {
	tests := []struct {
		name     string
		roles    []string
		role     string
		expected bool
	}{
		{"admin holds admin", []string{auth.RoleAdmin}, auth.RoleAdmin, true},
		{"user is not admin", []string{auth.RoleUser}, auth.RoleAdmin, false},
		{"multiple roles", []string{auth.RoleUser, auth.RoleAdmin}, auth.RoleUser, true},
		{"no roles", nil, auth.RoleUser, false},
		{"case sensitive", []string{auth.RoleAdmin}, "admin", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := &auth.JWTClaims{GlobalRole: tt.roles}
			assert.Equal(t, tt.expected, claims.HasRole(tt.role))
		})
	}
}

func TestJWTClaims_Expires(t *testing.T) {
	t.Run("returns expiration time when set", func(t *testing.T) {
		expiry := time.Now().Add(time.Hour).Truncate(time.Second)
		claims := &auth.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(expiry),
			},
		}
		assert.True(t, expiry.Equal(claims.Expires()))
	})

	t.Run("returns zero time when not set", func(t *testing.T) {
		claims := &auth.JWTClaims{}
		assert.True(t, claims.Expires().IsZero())
	})
}

func TestJWTClaims_IssuedAt(t *testing.T) {
	t.Run("returns issued at time when set", func(t *testing.T) {
		issued := time.Now().Truncate(time.Second)
		claims := &auth.JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt: jwt.NewNumericDate(issued),
			},
		}
		assert.True(t, issued.Equal(claims.IssuedAt()))
	})

	t.Run("returns zero time when not set", func(t *testing.T) {
		claims := &auth.JWTClaims{}
		assert.True(t, claims.IssuedAt().IsZero())
	})
}

func TestJWTClaims_AuthClaimsInterface(t *testing.T) {
	var claims auth.AuthClaims = &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user123"},
		Name:             "alice",
		GlobalRole:       []string{auth.RoleUser},
	}

	assert.Equal(t, "user123", claims.Subject())
	assert.Equal(t, "user123", claims.UserID())
	assert.Equal(t, "alice", claims.Username())
	assert.Equal(t, []string{auth.RoleUser}, claims.Roles())
}
