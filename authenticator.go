package auth

import (
	"context"
	"database/sql"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RegisterRequest is the input to Register
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginRequest is the input to Login, Identifier is a username or an email
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// Auther orchestrates the credential flows: register, login, refresh and
// logout. Every call re-reads the user record, nothing is cached.
type Auther struct {
	repo         RepositoryManager
	provider     *UserProvider
	hasher       PasswordAuthenticator
	tokenService TokenService
	validator    TokenValidator
	refresh      *RefreshTokenManager
	logger       Logger
	activitySink ActivitySink
	registerTx   *sql.TxOptions
	derivedIDs   bool
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, opts Config) *Auther {
	hasher := NewBcryptHasher(opts.GetPasswordHashCost())
	logger := defaultLogger("auth")
	return &Auther{
		repo:         repo,
		hasher:       hasher,
		provider:     NewUserProvider(repo.Users(), hasher),
		tokenService: NewTokenServiceFromConfig(opts),
		refresh:      NewRefreshTokenManager(repo, opts.GetRefreshTokenTTL()),
		logger:       logger,
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger, "auth")
	s.provider.WithLogger(s.logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenService replaces the access token issuer
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// WithRefreshTokenManager replaces the refresh token manager
func (s *Auther) WithRefreshTokenManager(m *RefreshTokenManager) *Auther {
	if m != nil {
		s.refresh = m
	}
	return s
}

// WithRegisterTxOptions sets the isolation used by Register. Postgres
// deployments pass sql.LevelSerializable so only one registrant can observe
// an empty users table.
func (s *Auther) WithRegisterTxOptions(opts *sql.TxOptions) *Auther {
	s.registerTx = opts
	return s
}

// WithDerivedUserIDs makes Register derive user IDs from the email address
func (s *Auther) WithDerivedUserIDs(enabled bool) *Auther {
	s.derivedIDs = enabled
	return s
}

// WithTokenValidator sets the validator Principal verifies access tokens
// with, typically a MultiTokenValidator that also accepts retired keys
func (s *Auther) WithTokenValidator(v TokenValidator) *Auther {
	s.validator = v
	return s
}

// TokenValidator returns the validator used by Principal
func (s *Auther) TokenValidator() TokenValidator {
	if s.validator != nil {
		return s.validator
	}
	return s.tokenService
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Register creates the user, grants ADMIN to the first user ever and USER to
// everyone after, and signs the user in.
func (s *Auther) Register(ctx context.Context, req RegisterRequest) (*TokenPair, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if strings.TrimSpace(req.Password) == "" {
		req.Password = ""
	}
	if err := req.Validate(); err != nil {
		return nil, wrapSource(ErrInvalidInput, err, map[string]any{"validation": err.Error()})
	}

	passwordHash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, richOrInternal(err, "failed to hash password")
	}

	type registered struct {
		user    *User
		refresh string
	}

	out, err := withRetry(ctx, s.logger, "auth.register", func() (registered, error) {
		var res registered
		err := s.repo.RunInTx(ctx, s.registerTx, func(ctx context.Context, tx bun.Tx) error {
			user, err := s.createUserTx(ctx, tx, req, passwordHash)
			if err != nil {
				return err
			}
			token, err := s.refresh.RotateTx(ctx, tx, user.ID)
			if err != nil {
				return err
			}
			res = registered{user: user, refresh: token}
			return nil
		})
		return res, err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, wrapSource(ErrAlreadyExists, err, map[string]any{"username": req.Username, "email": req.Email})
		}
		return nil, richOrInternal(err, "failed to register user")
	}

	access, err := s.tokenService.Issue(NewIdentityFromUser(out.user))
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", out.user.ID.String(), "roles", strings.Join(out.user.Roles, ","))
	s.emit(ctx, ActivityEventRegistered, out.user.ID.String(), map[string]any{
		"roles": out.user.Roles,
	})

	return &TokenPair{AccessToken: access, RefreshToken: out.refresh}, nil
}

func (s *Auther) createUserTx(ctx context.Context, tx bun.IDB, req RegisterRequest, passwordHash string) (*User, error) {
	users := s.repo.Users()

	if _, err := users.FindUserByUsernameTx(ctx, tx, req.Username); err == nil {
		return nil, withMetadata(ErrAlreadyExists, map[string]any{"username": req.Username})
	} else if !isRecordNotFound(err) {
		return nil, err
	}

	if _, err := users.FindUserByEmailTx(ctx, tx, req.Email); err == nil {
		return nil, withMetadata(ErrAlreadyExists, map[string]any{"email": req.Email})
	} else if !isRecordNotFound(err) {
		return nil, err
	}

	count, err := users.CountUsersTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	roleName := RoleUser
	if count == 0 {
		roleName = RoleAdmin
	}

	if _, err := s.repo.Roles().EnsureRoleTx(ctx, tx, roleName); err != nil {
		return nil, err
	}

	user := &User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Roles:        []string{roleName},
	}

	if s.derivedIDs {
		if id, err := hashid.NewUUID(strings.ToLower(req.Email)); err == nil {
			user.ID = id
		} else {
			s.logger.Warn("failed to derive user id, falling back to random", "error", err)
		}
	}

	return users.CreateTx(ctx, tx, user)
}

// Login verifies the credentials, replaces the user's refresh token and
// issues a new access token.
func (s *Auther) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	req.Identifier = strings.TrimSpace(req.Identifier)
	if strings.TrimSpace(req.Password) == "" {
		req.Password = ""
	}
	if err := req.Validate(); err != nil {
		return nil, wrapSource(ErrInvalidInput, err, map[string]any{"validation": err.Error()})
	}

	user, err := s.provider.VerifyIdentity(ctx, req.Identifier, req.Password)
	if err != nil {
		s.logger.Warn("login verify identity error", "error", err)
		s.emit(ctx, ActivityEventLoginFailure, "", map[string]any{
			"identifier": req.Identifier,
			"error":      err.Error(),
		})
		return nil, err
	}

	refresh, err := s.refresh.Rotate(ctx, user.ID)
	if err != nil {
		return nil, richOrInternal(err, "failed to rotate refresh token")
	}

	access, err := s.tokenService.Issue(NewIdentityFromUser(user))
	if err != nil {
		return nil, err
	}

	s.emit(ctx, ActivityEventLoginSuccess, user.ID.String(), nil)

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh issues a new access token for a live refresh token. The refresh
// token itself is returned unchanged.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)

	userID, _, err := s.refresh.Redeem(ctx, refreshToken)
	if err != nil {
		if HasTextCode(err, TextCodeRefreshTokenExpired) || HasTextCode(err, TextCodeRefreshTokenNotFound) {
			s.emit(ctx, ActivityEventRefreshRejected, "", map[string]any{"reason": textCodeOf(err)})
			return nil, wrapSource(ErrInvalidRefreshToken, err, map[string]any{"reason": textCodeOf(err)})
		}
		return nil, richOrInternal(err, "failed to redeem refresh token")
	}

	user, err := s.repo.Users().FindUserByID(ctx, userID)
	if err != nil {
		if isRecordNotFound(err) {
			return nil, wrapSource(ErrInvalidRefreshToken, err, map[string]any{"reason": "user not found"})
		}
		return nil, err
	}

	access, err := s.tokenService.Issue(NewIdentityFromUser(user))
	if err != nil {
		return nil, err
	}

	s.emit(ctx, ActivityEventTokenRefreshed, user.ID.String(), nil)

	return &TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}

// Logout revokes the refresh token. Unknown and expired tokens are a no-op.
func (s *Auther) Logout(ctx context.Context, refreshToken string) error {
	userID, _, err := s.refresh.Redeem(ctx, refreshToken)
	if err != nil {
		if HasTextCode(err, TextCodeRefreshTokenExpired) || HasTextCode(err, TextCodeRefreshTokenNotFound) {
			return nil
		}
		return err
	}

	if err := s.refresh.Revoke(ctx, userID); err != nil {
		return err
	}

	s.emit(ctx, ActivityEventLogout, userID.String(), nil)
	return nil
}

// Principal verifies the access token and loads the current user record
func (s *Auther) Principal(ctx context.Context, accessToken string) (*User, AuthClaims, error) {
	claims, err := s.TokenValidator().Validate(accessToken)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.PrincipalFromClaims(ctx, claims)
	if err != nil {
		return nil, nil, err
	}

	return user, claims, nil
}

// PrincipalFromClaims loads the user named by already verified claims
func (s *Auther) PrincipalFromClaims(ctx context.Context, claims AuthClaims) (*User, error) {
	if claims == nil {
		return nil, ErrTokenMalformed
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, wrapSource(ErrTokenMalformed, err, map[string]any{"subject": claims.Subject()})
	}

	user, err := s.repo.Users().FindUserByID(ctx, userID)
	if err != nil {
		return nil, mapUserLookupError(err, "user_id", userID.String())
	}

	return user, nil
}

func (s *Auther) emit(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: eventType,
		ActorID:   userID,
		UserID:    userID,
		Metadata:  metadata,
	})
}
