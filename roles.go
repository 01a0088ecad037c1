package auth

import "strings"

// ProjectRole is the role a user holds inside a single project
type ProjectRole string

const (
	ProjectRoleOwner          ProjectRole = "OWNER"
	ProjectRoleAdmin          ProjectRole = "ADMIN"
	ProjectRoleProjectManager ProjectRole = "PROJECT_MANAGER"
	ProjectRoleTeamMember     ProjectRole = "TEAM_MEMBER"
	ProjectRoleViewer         ProjectRole = "VIEWER"
)

// DefaultProjectRole is assigned by addMember when no role is requested
const DefaultProjectRole = ProjectRoleTeamMember

// IsValid checks if the role is one of the predefined project roles
func (r ProjectRole) IsValid() bool {
	switch r {
	case ProjectRoleOwner, ProjectRoleAdmin, ProjectRoleProjectManager, ProjectRoleTeamMember, ProjectRoleViewer:
		return true
	default:
		return false
	}
}

// IsProtected OWNER rows cannot be reassigned or removed through membership
// management
func (r ProjectRole) IsProtected() bool {
	return r == ProjectRoleOwner
}

func (r ProjectRole) String() string {
	return string(r)
}

// GetAllProjectRoles returns all project roles, most authoritative first
func GetAllProjectRoles() []ProjectRole {
	return []ProjectRole{
		ProjectRoleOwner,
		ProjectRoleAdmin,
		ProjectRoleProjectManager,
		ProjectRoleTeamMember,
		ProjectRoleViewer,
	}
}

// ParseProjectRole safely parses a string into a ProjectRole. Matching is case
// insensitive, an empty string yields the default role.
func ParseProjectRole(s string) (ProjectRole, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultProjectRole, true
	}
	role := ProjectRole(strings.ToUpper(s))
	return role, role.IsValid()
}

// roleSet is an explicit allow-set used by the permission table
type roleSet map[ProjectRole]struct{}

func newRoleSet(roles ...ProjectRole) roleSet {
	s := make(roleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

func (s roleSet) allows(m *Membership) bool {
	if m == nil {
		return false
	}
	_, ok := s[m.Role]
	return ok
}

var (
	// project editors may change project fields and edit any task
	editorRoles = newRoleSet(ProjectRoleOwner, ProjectRoleAdmin, ProjectRoleProjectManager)
	// managers may manage members and delete any task
	managerRoles = newRoleSet(ProjectRoleOwner, ProjectRoleAdmin)
	// creators hold one of these global roles
	projectCreatorGlobalRoles = []GlobalRole{RoleAdmin, RoleUser}
)
