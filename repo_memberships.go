package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Memberships stores (project, user, role) rows. Conditional statements keep
// OWNER rows out of reach of updates and deletes.
type Memberships interface {
	FindMembership(ctx context.Context, projectID, userID uuid.UUID) (*Membership, error)
	FindMembershipTx(ctx context.Context, tx bun.IDB, projectID, userID uuid.UUID) (*Membership, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*Membership, error)
	InsertMembershipTx(ctx context.Context, tx bun.IDB, m *Membership) error
	UpdateRoleUnlessProtectedTx(ctx context.Context, tx bun.IDB, projectID, userID uuid.UUID, role ProjectRole) (int64, error)
	DeleteUnlessProtectedTx(ctx context.Context, tx bun.IDB, projectID, userID uuid.UUID) (int64, error)
}

type memberships struct {
	db *bun.DB
}

func NewMembershipsRepository(db *bun.DB) Memberships {
	return &memberships{db: db}
}

func (r *memberships) FindMembership(ctx context.Context, projectID, userID uuid.UUID) (*Membership, error) {
	return r.FindMembershipTx(ctx, r.db, projectID, userID)
}

// FindMembershipTx returns nil, nil when no row exists
func (r *memberships) FindMembershipTx(ctx context.Context, tx bun.IDB, projectID, userID uuid.UUID) (*Membership, error) {
	var m Membership
	err := tx.NewSelect().
		Model(&m).
		Where("?TableAlias.project_id = ? AND ?TableAlias.user_id = ?", projectID, userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *memberships) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*Membership, error) {
	rows := []*Membership{}
	err := r.db.NewSelect().
		Model(&rows).
		Where("?TableAlias.project_id = ?", projectID).
		OrderExpr("?TableAlias.joined_at ASC, ?TableAlias.id ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return rows, nil
}

func (r *memberships) InsertMembershipTx(ctx context.Context, tx bun.IDB, m *Membership) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	_, err := tx.NewInsert().Model(m).Exec(ctx)
	return err
}

func (r *memberships) UpdateRoleUnlessProtectedTx(ctx context.Context, tx bun.IDB, projectID, userID uuid.UUID, role ProjectRole) (int64, error) {
	res, err := tx.NewUpdate().
		Model((*Membership)(nil)).
		Set("role = ?", role).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Where("role <> ?", ProjectRoleOwner).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *memberships) DeleteUnlessProtectedTx(ctx context.Context, tx bun.IDB, projectID, userID uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*Membership)(nil)).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Where("role <> ?", ProjectRoleOwner).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
