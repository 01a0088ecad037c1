package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Users interface {
	repository.Repository[*User]
	CredentialStore

	FindUserByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)
	FindUserByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	FindUserByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	FindUserByIdentifier(ctx context.Context, identifier string) (*User, error)
	FindUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error)
	CountUsersTx(ctx context.Context, tx bun.IDB) (int, error)

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	return a.FindUserByUsernameTx(ctx, a.db, username)
}

func (a *users) FindUserByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	return a.findBy(ctx, tx, "username", strings.TrimSpace(username))
}

func (a *users) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return a.FindUserByEmailTx(ctx, a.db, email)
}

func (a *users) FindUserByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return a.findBy(ctx, tx, "email", strings.TrimSpace(email))
}

func (a *users) FindUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.FindUserByIDTx(ctx, a.db, id)
}

func (a *users) FindUserByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	return a.findBy(ctx, tx, "id", id)
}

// FindUserByIdentifier looks the user up by username first, then by email
func (a *users) FindUserByIdentifier(ctx context.Context, identifier string) (*User, error) {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil, repository.NewRecordNotFound()
	}

	user, err := a.FindUserByUsernameTx(ctx, a.db, trimmed)
	if err == nil {
		return user, nil
	}
	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	if !strings.Contains(trimmed, "@") {
		return nil, err
	}

	return a.FindUserByEmailTx(ctx, a.db, trimmed)
}

func (a *users) FindUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error) {
	records := []*User{}
	if len(ids) == 0 {
		return records, nil
	}
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return records, nil
}

func (a *users) CountUsers(ctx context.Context) (int, error) {
	return a.CountUsersTx(ctx, a.db)
}

func (a *users) CountUsersTx(ctx context.Context, tx bun.IDB) (int, error) {
	return tx.NewSelect().Model((*User)(nil)).Count(ctx)
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) findBy(ctx context.Context, tx bun.IDB, column string, value any) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					column: fmt.Sprint(value),
				})
		}
		return nil, err
	}

	return record, nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.Roles == nil {
		record.Roles = []string{}
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = now
	}
}

// mapUserLookupError turns a missing user into ErrNotFound
func mapUserLookupError(err error, field, value string) error {
	if err == nil {
		return nil
	}
	if repository.IsRecordNotFound(err) {
		return wrapSource(ErrNotFound, err, map[string]any{field: value})
	}
	return err
}

func isRecordNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || HasTextCode(err, TextCodeNotFound)
}
