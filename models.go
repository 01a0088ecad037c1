package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// GlobalRole is a system wide role name
type GlobalRole = string

const (
	// RoleAdmin is granted to the first user ever registered
	RoleAdmin GlobalRole = "ADMIN"
	// RoleUser is granted to every later registrant
	RoleUser GlobalRole = "USER"
)

// Role is an entry in the global role catalog, created lazily on first use
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rl"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string    `bun:"name,notnull,unique" json:"name"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// User is the credential record
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string    `bun:"username,notnull,unique" json:"username"`
	Email         string    `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string    `bun:"password_hash,notnull" json:"-"`
	Roles         []string  `bun:"roles,notnull" json:"roles"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// HasRole reports whether the user holds the global role
func (u *User) HasRole(name string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// RefreshToken is the server side record of a long lived credential. Only the
// SHA-256 digest of the opaque token is persisted.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID `bun:"user_id,notnull,unique,type:uuid" json:"user_id"`
	TokenHash     string    `bun:"token_hash,notnull,unique" json:"-"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// IsExpired is true once now reaches the expiry instant
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// ProjectStatus is the project lifecycle state
type ProjectStatus = string

const (
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusOnHold    ProjectStatus = "ON_HOLD"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
	ProjectStatusCancelled ProjectStatus = "CANCELLED"
)

// Project is owned by its creator, who is the authority of record
type Project struct {
	bun.BaseModel `bun:"table:projects,alias:prj"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string        `bun:"name,notnull" json:"name"`
	Description   string        `bun:"description" json:"description,omitempty"`
	Status        ProjectStatus `bun:"status,notnull" json:"status"`
	CreatedBy     uuid.UUID     `bun:"created_by,notnull,type:uuid" json:"created_by"`
	CreatedAt     time.Time     `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// IsCreator reports whether userID created the project
func (p *Project) IsCreator(userID uuid.UUID) bool {
	return p != nil && userID != uuid.Nil && p.CreatedBy == userID
}

// Membership binds a user to a project with a role. At most one row exists per
// (project, user) pair.
type Membership struct {
	bun.BaseModel `bun:"table:project_members,alias:pm"`
	ID            uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ProjectID     uuid.UUID   `bun:"project_id,notnull,type:uuid,unique:project_member" json:"project_id"`
	UserID        uuid.UUID   `bun:"user_id,notnull,type:uuid,unique:project_member" json:"user_id"`
	Role          ProjectRole `bun:"role,notnull" json:"role"`
	JoinedAt      time.Time   `bun:"joined_at,nullzero,notnull,default:current_timestamp" json:"joined_at"`
}

// TaskStatus is the task board column
type TaskStatus = string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// TaskPriority ranks tasks
type TaskPriority = string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// Task belongs to exactly one project
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:tsk"`
	ID            uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ProjectID     uuid.UUID    `bun:"project_id,notnull,type:uuid" json:"project_id"`
	Title         string       `bun:"title,notnull" json:"title"`
	Description   string       `bun:"description" json:"description,omitempty"`
	Status        TaskStatus   `bun:"status,notnull" json:"status"`
	Priority      TaskPriority `bun:"priority,notnull" json:"priority"`
	CreatedBy     uuid.UUID    `bun:"created_by,notnull,type:uuid" json:"created_by"`
	AssignedTo    *uuid.UUID   `bun:"assigned_to,type:uuid" json:"assigned_to,omitempty"`
	DueDate       *time.Time   `bun:"due_date" json:"due_date,omitempty"`
	Labels        []string     `bun:"labels" json:"labels,omitempty"`
	CreatedAt     time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// IsCreator reports whether userID created the task
func (t *Task) IsCreator(userID uuid.UUID) bool {
	return t != nil && userID != uuid.Nil && t.CreatedBy == userID
}

// IsAssignee reports whether userID is the task's assignee
func (t *Task) IsAssignee(userID uuid.UUID) bool {
	return t != nil && t.AssignedTo != nil && userID != uuid.Nil && *t.AssignedTo == userID
}
