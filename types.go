package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Roles() []string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetPasswordHashCost() int
}

// TokenPair is what register, login and refresh hand back to the caller
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// CredentialStore is the user record collaborator the orchestrator reads and writes
type CredentialStore interface {
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	CountUsers(ctx context.Context) (int, error)
}

// MembershipLookup is the read side of the membership registry used by the
// permission evaluator
type MembershipLookup interface {
	MembershipOf(ctx context.Context, userID, projectID uuid.UUID) (*Membership, error)
}

// Authorizer answers permission questions for an acting user
type Authorizer interface {
	CheckPermission(ctx context.Context, user *User, resource Resource, op Operation) (bool, error)
}
