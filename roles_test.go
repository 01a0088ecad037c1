package auth_test

import (
	"testing"

	"github.com/goliatone/go-tracker-auth"
	"github.com/stretchr/testify/assert"
)

func TestParseProjectRole(t *testing.T) {
	tests := []struct {
		input    string
		expected auth.ProjectRole
		ok       bool
	}{
		{"", auth.DefaultProjectRole, true},
		{"  ", auth.DefaultProjectRole, true},
		{"OWNER", auth.ProjectRoleOwner, true},
		{"admin", auth.ProjectRoleAdmin, true},
		{" project_manager ", auth.ProjectRoleProjectManager, true},
		{"Viewer", auth.ProjectRoleViewer, true},
		{"guest", auth.ProjectRole("GUEST"), false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			role, ok := auth.ParseProjectRole(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, role)
		})
	}
}

func TestProjectRole_IsValid(t *testing.T) {
	for _, role := range auth.GetAllProjectRoles() {
		assert.True(t, role.IsValid(), role.String())
	}
	assert.False(t, auth.ProjectRole("").IsValid())
	assert.False(t, auth.ProjectRole("owner").IsValid())
}

func TestProjectRole_IsProtected(t *testing.T) {
	for _, role := range auth.GetAllProjectRoles() {
		assert.Equal(t, role == auth.ProjectRoleOwner, role.IsProtected(), role.String())
	}
}
