package auth_test

import (
	"testing"
	"time"

	"github.com/goliatone/go-tracker-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRefreshToken_IsExpired(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		expected  bool
	}{
		{"future", now.Add(time.Second), false},
		{"exactly now", now, true},
		{"past", now.Add(-time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := &auth.RefreshToken{ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.expected, token.IsExpired(now))
		})
	}
}

func TestUser_HasRole(t *testing.T) {
	user := &auth.User{Roles: []string{auth.RoleUser}}
	assert.True(t, user.HasRole(auth.RoleUser))
	assert.False(t, user.HasRole(auth.RoleAdmin))

	var nilUser *auth.User
	assert.False(t, nilUser.HasRole(auth.RoleUser))
}

func TestProject_IsCreator(t *testing.T) {
	creator := uuid.New()
	project := &auth.Project{CreatedBy: creator}

	assert.True(t, project.IsCreator(creator))
	assert.False(t, project.IsCreator(uuid.New()))
	assert.False(t, project.IsCreator(uuid.Nil))
	assert.False(t, (&auth.Project{}).IsCreator(uuid.Nil))

	var nilProject *auth.Project
	assert.False(t, nilProject.IsCreator(creator))
}

func TestTask_Relations(t *testing.T) {
	creator := uuid.New()
	assignee := uuid.New()

	task := &auth.Task{CreatedBy: creator, AssignedTo: &assignee}
	assert.True(t, task.IsCreator(creator))
	assert.False(t, task.IsCreator(assignee))
	assert.True(t, task.IsAssignee(assignee))
	assert.False(t, task.IsAssignee(creator))

	unassigned := &auth.Task{CreatedBy: creator}
	assert.False(t, unassigned.IsAssignee(uuid.Nil))
	assert.False(t, unassigned.IsAssignee(creator))
}
