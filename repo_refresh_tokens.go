package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshTokens persists refresh token digests, at most one row per user
type RefreshTokens interface {
	FindByHash(ctx context.Context, hash string) (*RefreshToken, error)
	FindByHashTx(ctx context.Context, tx bun.IDB, hash string) (*RefreshToken, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*RefreshToken, error)
	InsertTx(ctx context.Context, tx bun.IDB, token *RefreshToken) error
	DeleteByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

type refreshTokens struct {
	db *bun.DB
}

func NewRefreshTokensRepository(db *bun.DB) RefreshTokens {
	return &refreshTokens{db: db}
}

func (r *refreshTokens) FindByHash(ctx context.Context, hash string) (*RefreshToken, error) {
	return r.FindByHashTx(ctx, r.db, hash)
}

func (r *refreshTokens) FindByHashTx(ctx context.Context, tx bun.IDB, hash string) (*RefreshToken, error) {
	var token RefreshToken
	err := tx.NewSelect().
		Model(&token).
		Where("?TableAlias.token_hash = ?", hash).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *refreshTokens) FindByUserID(ctx context.Context, userID uuid.UUID) (*RefreshToken, error) {
	var token RefreshToken
	err := r.db.NewSelect().
		Model(&token).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *refreshTokens) InsertTx(ctx context.Context, tx bun.IDB, token *RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	_, err := tx.NewInsert().Model(token).Exec(ctx)
	return err
}

func (r *refreshTokens) DeleteByUserIDTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteByID is a no-op when the row is already gone
func (r *refreshTokens) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
