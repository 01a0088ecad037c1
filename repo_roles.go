package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles is the global role catalog
type Roles interface {
	FindRoleByName(ctx context.Context, name string) (*Role, error)
	FindRoleByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error)
	SaveRole(ctx context.Context, name string) (*Role, error)
	SaveRoleTx(ctx context.Context, tx bun.IDB, name string) (*Role, error)
	// EnsureRoleTx returns the catalog entry, creating it on first use
	EnsureRoleTx(ctx context.Context, tx bun.IDB, name string) (*Role, error)
}

type roles struct {
	db *bun.DB
}

func NewRolesRepository(db *bun.DB) Roles {
	return &roles{db: db}
}

func (r *roles) FindRoleByName(ctx context.Context, name string) (*Role, error) {
	return r.FindRoleByNameTx(ctx, r.db, name)
}

func (r *roles) FindRoleByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error) {
	var role Role
	err := tx.NewSelect().
		Model(&role).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, withMetadata(ErrNotFound, map[string]any{"role": name})
		}
		return nil, err
	}
	return &role, nil
}

func (r *roles) SaveRole(ctx context.Context, name string) (*Role, error) {
	return r.SaveRoleTx(ctx, r.db, name)
}

func (r *roles) SaveRoleTx(ctx context.Context, tx bun.IDB, name string) (*Role, error) {
	role := &Role{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := tx.NewInsert().Model(role).Exec(ctx); err != nil {
		return nil, err
	}
	return role, nil
}

// EnsureRoleTx never fails on a concurrent insert of the same name. The
// conflict is absorbed by the insert itself so a Postgres transaction is not
// left aborted.
func (r *roles) EnsureRoleTx(ctx context.Context, tx bun.IDB, name string) (*Role, error) {
	role, err := r.FindRoleByNameTx(ctx, tx, name)
	if err == nil {
		return role, nil
	}
	if !HasTextCode(err, TextCodeNotFound) {
		return nil, err
	}

	candidate := &Role{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := tx.NewInsert().
		Model(candidate).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx); err != nil {
		return nil, err
	}
	return r.FindRoleByNameTx(ctx, tx, name)
}
