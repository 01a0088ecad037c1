package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const refreshTokenBytes = 32

// RefreshTokenManager issues, redeems and revokes refresh tokens. A user holds
// at most one live refresh token: Rotate replaces it, Revoke discards it.
type RefreshTokenManager struct {
	repo   RepositoryManager
	ttl    time.Duration
	logger Logger
	now    func() time.Time
}

type RefreshTokenOption func(*RefreshTokenManager)

func WithRefreshTokenLogger(logger Logger) RefreshTokenOption {
	return func(m *RefreshTokenManager) {
		m.logger = normalizeLogger(logger, "refresh_tokens")
	}
}

func WithRefreshTokenClock(now func() time.Time) RefreshTokenOption {
	return func(m *RefreshTokenManager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewRefreshTokenManager(repo RepositoryManager, ttl time.Duration, opts ...RefreshTokenOption) *RefreshTokenManager {
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}
	m := &RefreshTokenManager{
		repo:   repo,
		ttl:    ttl,
		logger: defaultLogger("refresh_tokens"),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Rotate discards any refresh token the user holds and stores a fresh one.
// The opaque value is returned once, only its digest is persisted.
func (m *RefreshTokenManager) Rotate(ctx context.Context, userID uuid.UUID) (string, error) {
	return withRetry(ctx, m.logger, "refresh_token.rotate", func() (string, error) {
		var value string
		err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			var err error
			value, err = m.RotateTx(ctx, tx, userID)
			return err
		})
		return value, err
	})
}

// RotateTx performs the replacement inside a caller owned transaction
func (m *RefreshTokenManager) RotateTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", withMetadata(ErrInvalidInput, map[string]any{"field": "user_id"})
	}

	value, err := newRefreshTokenValue()
	if err != nil {
		return "", richOrInternal(err, "failed to generate refresh token")
	}

	if _, err := m.repo.RefreshTokens().DeleteByUserIDTx(ctx, tx, userID); err != nil {
		return "", err
	}

	now := m.now().UTC()
	record := &RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: hashRefreshToken(value),
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}
	if err := m.repo.RefreshTokens().InsertTx(ctx, tx, record); err != nil {
		return "", err
	}

	return value, nil
}

// Redeem resolves a refresh token to its owner and stored expiry. Redeeming
// does not rotate. An expired token is deleted before ErrRefreshTokenExpired
// is returned.
func (m *RefreshTokenManager) Redeem(ctx context.Context, token string) (uuid.UUID, time.Time, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return uuid.Nil, time.Time{}, ErrRefreshTokenNotFound
	}

	record, err := m.repo.RefreshTokens().FindByHash(ctx, hashRefreshToken(token))
	if err != nil {
		return uuid.Nil, time.Time{}, err
	}

	if record.IsExpired(m.now()) {
		if err := m.repo.RefreshTokens().DeleteByID(ctx, record.ID); err != nil {
			m.logger.Error("failed to delete expired refresh token", "user_id", record.UserID.String(), "error", err)
		}
		return uuid.Nil, time.Time{}, withMetadata(ErrRefreshTokenExpired, map[string]any{
			"expired_at": record.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}

	return record.UserID, record.ExpiresAt, nil
}

// Revoke deletes the user's refresh token, if any
func (m *RefreshTokenManager) Revoke(ctx context.Context, userID uuid.UUID) error {
	return withRetryFunc(ctx, m.logger, "refresh_token.revoke", func() error {
		return m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			_, err := m.repo.RefreshTokens().DeleteByUserIDTx(ctx, tx, userID)
			return err
		})
	})
}

func newRefreshTokenValue() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// hashRefreshToken is the digest stored in refresh_tokens.token_hash
func hashRefreshToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// TTL returns the lifetime applied to new refresh tokens
func (m *RefreshTokenManager) TTL() time.Duration {
	return m.ttl
}
