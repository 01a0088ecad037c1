package auth

import (
	"context"

	"github.com/google/uuid"
)

// Operation names an action checked by the permission table
type Operation string

const (
	OpCreateProject Operation = "project:create"
	OpViewProject   Operation = "project:view"
	OpEditProject   Operation = "project:edit"
	OpDeleteProject Operation = "project:delete"
	OpCreateTask    Operation = "task:create"
	OpEditTask      Operation = "task:edit"
	OpDeleteTask    Operation = "task:delete"
	OpManageMembers Operation = "project:manage_members"
)

// IsValid checks if the operation is part of the permission table
func (o Operation) IsValid() bool {
	switch o {
	case OpCreateProject, OpViewProject, OpEditProject, OpDeleteProject,
		OpCreateTask, OpEditTask, OpDeleteTask, OpManageMembers:
		return true
	}
	return false
}

// Resource is the subject of a permission check. Project operations need
// Project, task operations need Task, createProject needs neither.
type Resource struct {
	Project *Project
	Task    *Task
}

func ProjectResource(p *Project) Resource { return Resource{Project: p} }

func TaskResource(t *Task) Resource { return Resource{Task: t} }

// PermissionEvaluator answers allow/deny questions. It never mutates state and
// denies unless a rule grants access. A missing membership row is a plain
// denial, never an error.
type PermissionEvaluator struct {
	members MembershipLookup
}

var _ Authorizer = (*PermissionEvaluator)(nil)

func NewPermissionEvaluator(members MembershipLookup) *PermissionEvaluator {
	return &PermissionEvaluator{members: members}
}

// CanCreateProject requires global role ADMIN or USER
func (e *PermissionEvaluator) CanCreateProject(user *User) bool {
	if user == nil {
		return false
	}
	for _, role := range projectCreatorGlobalRoles {
		if user.HasRole(role) {
			return true
		}
	}
	return false
}

// CanViewProject grants the creator and anyone holding a membership row
func (e *PermissionEvaluator) CanViewProject(ctx context.Context, user *User, project *Project) (bool, error) {
	if user == nil || project == nil {
		return false, nil
	}
	if project.IsCreator(user.ID) {
		return true, nil
	}
	m, err := e.membership(ctx, user.ID, project.ID)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

func (e *PermissionEvaluator) CanEditProject(ctx context.Context, user *User, project *Project) (bool, error) {
	if user == nil || project == nil {
		return false, nil
	}
	if project.IsCreator(user.ID) {
		return true, nil
	}
	return e.hasRole(ctx, user.ID, project.ID, editorRoles)
}

// CanDeleteProject is creator only, no membership role substitutes
func (e *PermissionEvaluator) CanDeleteProject(_ context.Context, user *User, project *Project) (bool, error) {
	if user == nil || project == nil {
		return false, nil
	}
	return project.IsCreator(user.ID), nil
}

// CanCreateTask any viewer of the project may create tasks in it
func (e *PermissionEvaluator) CanCreateTask(ctx context.Context, user *User, project *Project) (bool, error) {
	return e.CanViewProject(ctx, user, project)
}

func (e *PermissionEvaluator) CanEditTask(ctx context.Context, user *User, task *Task) (bool, error) {
	if user == nil || task == nil {
		return false, nil
	}
	if task.IsCreator(user.ID) || task.IsAssignee(user.ID) {
		return true, nil
	}
	return e.hasRole(ctx, user.ID, task.ProjectID, editorRoles)
}

func (e *PermissionEvaluator) CanDeleteTask(ctx context.Context, user *User, task *Task) (bool, error) {
	if user == nil || task == nil {
		return false, nil
	}
	if task.IsCreator(user.ID) {
		return true, nil
	}
	return e.hasRole(ctx, user.ID, task.ProjectID, managerRoles)
}

// CanManageMembers requires an OWNER or ADMIN membership. Being the creator
// is not enough on its own.
func (e *PermissionEvaluator) CanManageMembers(ctx context.Context, user *User, project *Project) (bool, error) {
	if user == nil || project == nil {
		return false, nil
	}
	return e.hasRole(ctx, user.ID, project.ID, managerRoles)
}

// RoleOf returns the user's role in the project, ok is false without a row
func (e *PermissionEvaluator) RoleOf(ctx context.Context, userID, projectID uuid.UUID) (ProjectRole, bool, error) {
	m, err := e.membership(ctx, userID, projectID)
	if err != nil || m == nil {
		return "", false, err
	}
	return m.Role, true, nil
}

// CheckPermission dispatches op to its predicate. Unknown operations and
// resources missing the required record are denied.
func (e *PermissionEvaluator) CheckPermission(ctx context.Context, user *User, resource Resource, op Operation) (bool, error) {
	switch op {
	case OpCreateProject:
		return e.CanCreateProject(user), nil
	case OpViewProject:
		return e.CanViewProject(ctx, user, resource.Project)
	case OpEditProject:
		return e.CanEditProject(ctx, user, resource.Project)
	case OpDeleteProject:
		return e.CanDeleteProject(ctx, user, resource.Project)
	case OpCreateTask:
		return e.CanCreateTask(ctx, user, resource.Project)
	case OpEditTask:
		return e.CanEditTask(ctx, user, resource.Task)
	case OpDeleteTask:
		return e.CanDeleteTask(ctx, user, resource.Task)
	case OpManageMembers:
		return e.CanManageMembers(ctx, user, resource.Project)
	default:
		return false, nil
	}
}

func (e *PermissionEvaluator) hasRole(ctx context.Context, userID, projectID uuid.UUID, allowed roleSet) (bool, error) {
	m, err := e.membership(ctx, userID, projectID)
	if err != nil {
		return false, err
	}
	return allowed.allows(m), nil
}

func (e *PermissionEvaluator) membership(ctx context.Context, userID, projectID uuid.UUID) (*Membership, error) {
	if e.members == nil || userID == uuid.Nil {
		return nil, nil
	}
	return e.members.MembershipOf(ctx, userID, projectID)
}
