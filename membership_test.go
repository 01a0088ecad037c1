package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-tracker-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembershipRegistry_AddMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, _ := env.register(t, "alice")
	bob, _ := env.register(t, "bob")
	p := env.project(t, alice, "apollo")

	m, err := env.registry.AddMember(ctx, p.ID, bob.ID, "")
	require.NoError(t, err)
	assert.Equal(t, auth.ProjectRoleTeamMember, m.Role)

	_, err = env.registry.AddMember(ctx, p.ID, bob.ID, auth.ProjectRoleViewer)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeAlreadyMember), "got %v", err)

	got, err := env.registry.MembershipOf(ctx, bob.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.ProjectRoleTeamMember, got.Role)

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := env.registry.AddMember(ctx, p.ID, uuid.New(), auth.ProjectRole("SUPREME"))
		assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidInput))
	})

	t.Run("owner is not assignable", func(t *testing.T) {
		carol, _ := env.register(t, "carol")
		_, err := env.registry.AddMember(ctx, p.ID, carol.ID, auth.ProjectRoleOwner)
		assert.True(t, auth.HasTextCode(err, auth.TextCodeProtectedRole))
	})

	t.Run("unknown project or user", func(t *testing.T) {
		_, err := env.registry.AddMember(ctx, uuid.New(), bob.ID, "")
		assert.True(t, auth.HasTextCode(err, auth.TextCodeNotFound))

		_, err = env.registry.AddMember(ctx, p.ID, uuid.New(), "")
		assert.True(t, auth.HasTextCode(err, auth.TextCodeNotFound))
	})
}

func TestMembershipRegistry_ChangeRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, _ := env.register(t, "alice")
	bob, _ := env.register(t, "bob")
	carol, _ := env.register(t, "carol")
	p := env.project(t, alice, "apollo")

	_, err := env.registry.AddMember(ctx, p.ID, bob.ID, auth.ProjectRoleTeamMember)
	require.NoError(t, err)

	m, err := env.registry.ChangeRole(ctx, p.ID, bob.ID, auth.ProjectRoleProjectManager)
	require.NoError(t, err)
	assert.Equal(t, auth.ProjectRoleProjectManager, m.Role)

	_, err = env.registry.ChangeRole(ctx, p.ID, carol.ID, auth.ProjectRoleAdmin)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeNotAMember), "got %v", err)

	_, err = env.registry.ChangeRole(ctx, p.ID, alice.ID, auth.ProjectRoleViewer)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeProtectedRole), "got %v", err)

	owner, err := env.registry.MembershipOf(ctx, alice.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.ProjectRoleOwner, owner.Role)

	_, err = env.registry.ChangeRole(ctx, p.ID, bob.ID, auth.ProjectRoleOwner)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeProtectedRole))
}

func TestMembershipRegistry_RemoveMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, _ := env.register(t, "alice")
	bob, _ := env.register(t, "bob")
	p := env.project(t, alice, "apollo")

	_, err := env.registry.AddMember(ctx, p.ID, bob.ID, "")
	require.NoError(t, err)

	require.NoError(t, env.registry.RemoveMember(ctx, p.ID, bob.ID))

	err = env.registry.RemoveMember(ctx, p.ID, bob.ID)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeNotAMember))

	err = env.registry.RemoveMember(ctx, p.ID, alice.ID)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeProtectedRole))

	assert.Equal(t, []auth.ActivityEventType{
		auth.ActivityEventRegistered,
		auth.ActivityEventRegistered,
		auth.ActivityEventProjectCreated,
		auth.ActivityEventMemberAdded,
		auth.ActivityEventMemberRemoved,
	}, env.sink.Types())
}

func TestMembershipRegistry_ListMembersOrderedByJoinTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, _ := env.register(t, "alice")
	bob, _ := env.register(t, "bob")
	carol, _ := env.register(t, "carol")
	p := env.project(t, alice, "apollo")

	env.clock.Advance(time.Minute)
	_, err := env.registry.AddMember(ctx, p.ID, carol.ID, auth.ProjectRoleViewer)
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	_, err = env.registry.AddMember(ctx, p.ID, bob.ID, auth.ProjectRoleAdmin)
	require.NoError(t, err)

	members, err := env.registry.ListMembers(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, carol.ID, members[1].UserID)
	assert.Equal(t, bob.ID, members[2].UserID)

	_, err = env.registry.ListMembers(ctx, uuid.New())
	assert.True(t, auth.HasTextCode(err, auth.TextCodeNotFound))
}

func TestMembershipRegistry_IsMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, _ := env.register(t, "alice")
	bob, _ := env.register(t, "bob")
	p := env.legacyProject(t, alice, "legacy")

	ok, err := env.registry.IsMember(ctx, alice.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, ok, "creator counts as member without a row")

	ok, err = env.registry.IsMember(ctx, bob.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = env.registry.AddMember(ctx, p.ID, bob.ID, auth.ProjectRoleViewer)
	require.NoError(t, err)
	ok, err = env.registry.IsMember(ctx, bob.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}
