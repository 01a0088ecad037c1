package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Roles() Roles
	RefreshTokens() RefreshTokens
	Projects() Projects
	Memberships() Memberships
	Tasks() Tasks
}

type mngr struct {
	db            *bun.DB
	users         Users
	roles         Roles
	refreshTokens RefreshTokens
	projects      Projects
	memberships   Memberships
	tasks         Tasks
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:            db,
		users:         NewUsersRepository(db),
		roles:         NewRolesRepository(db),
		refreshTokens: NewRefreshTokensRepository(db),
		projects:      NewProjectsRepository(db),
		memberships:   NewMembershipsRepository(db),
		tasks:         NewTasksRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}
	if m.roles == nil {
		return errors.New("repository roles should be initialized")
	}
	if m.refreshTokens == nil {
		return errors.New("repository refreshTokens should be initialized")
	}
	if m.projects == nil {
		return errors.New("repository projects should be initialized")
	}
	if m.memberships == nil {
		return errors.New("repository memberships should be initialized")
	}
	if m.tasks == nil {
		return errors.New("repository tasks should be initialized")
	}
	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users                 { return m.users }
func (m mngr) Roles() Roles                 { return m.roles }
func (m mngr) RefreshTokens() RefreshTokens { return m.refreshTokens }
func (m mngr) Projects() Projects           { return m.projects }
func (m mngr) Memberships() Memberships     { return m.memberships }
func (m mngr) Tasks() Tasks                 { return m.tasks }
