package auth_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/goliatone/go-tracker-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestIsTransientStoreError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"serialization", errors.New("ERROR: could not serialize access due to concurrent update (SQLSTATE 40001)"), true},
		{"deadlock", fmt.Errorf("tx: %w", errors.New("deadlock detected")), true},
		{"aborted transaction", errors.New("ERROR: current transaction is aborted, commands ignored until end of transaction block (SQLSTATE 25P02)"), true},
		{"refresh token race", errors.New("UNIQUE constraint failed: refresh_tokens.user_id"), true},
		{"membership duplicate", errors.New("UNIQUE constraint failed: project_members.project_id, project_members.user_id"), false},
		{"username duplicate", errors.New(`duplicate key value violates unique constraint "users_username_key"`), false},
		{"domain error", auth.ErrForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.IsTransientStoreError(tt.err))
		})
	}
}

// flakyTxRepo fails the first failures RunInTx calls with err before the
// real store sees them
type flakyTxRepo struct {
	auth.RepositoryManager
	failures int
	err      error
	calls    int
}

func (r *flakyTxRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	r.calls++
	if r.calls <= r.failures {
		return r.err
	}
	return r.RepositoryManager.RunInTx(ctx, opts, fn)
}

func TestRefreshTokenManager_RotateRetriesTransientFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, _ := env.register(t, "alice")

	t.Run("one locked attempt is replayed", func(t *testing.T) {
		repo := &flakyTxRepo{RepositoryManager: env.repo, failures: 1, err: errors.New("database is locked (5) (SQLITE_BUSY)")}
		manager := auth.NewRefreshTokenManager(repo, 0, auth.WithRefreshTokenLogger(auth.NopLogger()))

		token, err := manager.Rotate(ctx, alice.ID)
		require.NoError(t, err)
		assert.Len(t, token, 64)
		assert.Equal(t, 2, repo.calls)
		assert.Equal(t, 1, env.countRefreshTokens(t, alice.ID))

		userID, _, err := env.refresh.Redeem(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, userID)
	})

	t.Run("two locked attempts surface the error", func(t *testing.T) {
		locked := errors.New("database is locked")
		repo := &flakyTxRepo{RepositoryManager: env.repo, failures: 2, err: locked}
		manager := auth.NewRefreshTokenManager(repo, 0, auth.WithRefreshTokenLogger(auth.NopLogger()))

		_, err := manager.Rotate(ctx, alice.ID)
		require.Error(t, err)
		assert.True(t, auth.IsTransientStoreError(err), "got %v", err)
		assert.Equal(t, 2, repo.calls)
	})

	t.Run("domain failures are not replayed", func(t *testing.T) {
		repo := &flakyTxRepo{RepositoryManager: env.repo, failures: 1, err: auth.ErrForbidden}
		manager := auth.NewRefreshTokenManager(repo, 0, auth.WithRefreshTokenLogger(auth.NopLogger()))

		_, err := manager.Rotate(ctx, alice.ID)
		assert.True(t, auth.HasTextCode(err, auth.TextCodeForbidden), "got %v", err)
		assert.Equal(t, 1, repo.calls)
	})
}

func TestMembershipRegistry_ChangeRoleRetries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, _ := env.register(t, "alice")
	bob, _ := env.register(t, "bob")
	p := env.project(t, alice, "apollo")

	_, err := env.registry.AddMember(ctx, p.ID, bob.ID, auth.ProjectRoleViewer)
	require.NoError(t, err)

	t.Run("serialization failure is replayed", func(t *testing.T) {
		repo := &flakyTxRepo{
			RepositoryManager: env.repo,
			failures:          1,
			err:               errors.New("ERROR: could not serialize access due to concurrent update (SQLSTATE 40001)"),
		}
		registry := auth.NewMembershipRegistry(repo, auth.WithMembershipLogger(auth.NopLogger()))

		m, err := registry.ChangeRole(ctx, p.ID, bob.ID, auth.ProjectRoleProjectManager)
		require.NoError(t, err)
		assert.Equal(t, auth.ProjectRoleProjectManager, m.Role)
		assert.Equal(t, 2, repo.calls)
	})

	t.Run("protected owner fails after one attempt", func(t *testing.T) {
		repo := &flakyTxRepo{RepositoryManager: env.repo}
		registry := auth.NewMembershipRegistry(repo, auth.WithMembershipLogger(auth.NopLogger()))

		_, err := registry.ChangeRole(ctx, p.ID, alice.ID, auth.ProjectRoleAdmin)
		assert.True(t, auth.HasTextCode(err, auth.TextCodeProtectedRole), "got %v", err)
		assert.Equal(t, 1, repo.calls)
	})

	t.Run("two transient failures surface", func(t *testing.T) {
		repo := &flakyTxRepo{RepositoryManager: env.repo, failures: 2, err: errors.New("deadlock detected")}
		registry := auth.NewMembershipRegistry(repo, auth.WithMembershipLogger(auth.NopLogger()))

		_, err := registry.ChangeRole(ctx, p.ID, bob.ID, auth.ProjectRoleViewer)
		require.Error(t, err)
		assert.Equal(t, 2, repo.calls)

		current, err := env.registry.MembershipOf(ctx, bob.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, auth.ProjectRoleProjectManager, current.Role)
	})
}
