package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// UserLookup resolves a login identifier to the canonical user record
type UserLookup interface {
	FindUserByIdentifier(ctx context.Context, identifier string) (*User, error)
}

// UserProvider is the credential check used by login. Unknown identifiers and
// wrong passwords fail the same way.
type UserProvider struct {
	store  UserLookup
	hasher PasswordAuthenticator
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserLookup, hasher PasswordAuthenticator) *UserProvider {
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultPasswordHashCost)
	}
	return &UserProvider{
		store:  store,
		hasher: hasher,
		logger: defaultLogger("user_provider"),
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = normalizeLogger(l, "user_provider")
	return u
}

// VerifyIdentity will find the user and compare the password to its hash
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (*User, error) {
	user, err := u.store.FindUserByIdentifier(ctx, identifier)
	if err != nil {
		if isRecordNotFound(err) || errors.IsNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		return nil, ErrMismatchedHashAndPassword
	}

	if err := u.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		u.logger.Debug("password mismatch", "user_id", user.ID.String())
		return nil, ErrMismatchedHashAndPassword
	}

	return user, nil
}
