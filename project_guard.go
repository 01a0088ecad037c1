package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewProject is the input to CreateProject
type NewProject struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
}

func (p NewProject) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&p.Status, validation.In(
			ProjectStatusActive,
			ProjectStatusOnHold,
			ProjectStatusCompleted,
			ProjectStatusCancelled,
		)),
	)
}

// NewTask is the input to CreateTask
type NewTask struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	AssignedTo  *uuid.UUID   `json:"assigned_to,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	Labels      []string     `json:"labels,omitempty"`
}

func (t NewTask) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&t.Status, validation.In(TaskStatusTodo, TaskStatusInProgress, TaskStatusDone)),
		validation.Field(&t.Priority, validation.In(TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh)),
	)
}

// ProjectGuard runs project and task mutations behind the permission table.
// Missing records fail with ErrNotFound, denials with ErrForbidden.
type ProjectGuard struct {
	repo        RepositoryManager
	permissions *PermissionEvaluator
	members     *MembershipRegistry
	logger      Logger
	activity    ActivitySink
}

func NewProjectGuard(repo RepositoryManager, members *MembershipRegistry, permissions *PermissionEvaluator) *ProjectGuard {
	return &ProjectGuard{
		repo:        repo,
		members:     members,
		permissions: permissions,
		logger:      defaultLogger("project_guard"),
		activity:    noopActivitySink{},
	}
}

func (g *ProjectGuard) WithLogger(logger Logger) *ProjectGuard {
	g.logger = normalizeLogger(logger, "project_guard")
	return g
}

func (g *ProjectGuard) WithActivitySink(sink ActivitySink) *ProjectGuard {
	g.activity = normalizeActivitySink(sink)
	return g
}

// CreateProject stores the project and the creator's OWNER membership in one
// transaction.
func (g *ProjectGuard) CreateProject(ctx context.Context, actorID uuid.UUID, input NewProject) (*Project, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := input.Validate(); err != nil {
		return nil, wrapSource(ErrInvalidInput, err, map[string]any{"validation": err.Error()})
	}

	actor, err := g.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !g.permissions.CanCreateProject(actor) {
		return nil, g.deny(ctx, actor, OpCreateProject, uuid.Nil)
	}

	project := &Project{
		Name:        input.Name,
		Description: input.Description,
		Status:      input.Status,
		CreatedBy:   actor.ID,
	}

	err = g.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := g.repo.Projects().InsertProjectTx(ctx, tx, project); err != nil {
			return err
		}
		_, _, err := g.members.ensureOwnerTx(ctx, tx, project.ID, actor.ID)
		return err
	})
	if err != nil {
		return nil, richOrInternal(err, "failed to create project")
	}

	recordActivity(ctx, g.activity, g.logger, ActivityEvent{
		EventType: ActivityEventProjectCreated,
		ActorID:   actor.ID.String(),
		UserID:    actor.ID.String(),
		ProjectID: project.ID.String(),
		Role:      ProjectRoleOwner,
	})

	return project, nil
}

// Authorize resolves the acting user and the resource named by resourceID,
// which is a project id for project operations and a task id for task
// operations, and evaluates op against the permission table.
func (g *ProjectGuard) Authorize(ctx context.Context, actorID uuid.UUID, op Operation, resourceID uuid.UUID) error {
	_, _, err := g.authorize(ctx, actorID, op, resourceID)
	return err
}

func (g *ProjectGuard) DeleteProject(ctx context.Context, actorID, projectID uuid.UUID) error {
	actor, _, err := g.authorize(ctx, actorID, OpDeleteProject, projectID)
	if err != nil {
		return err
	}

	err = g.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return g.repo.Projects().DeleteProjectTx(ctx, tx, projectID)
	})
	if err != nil {
		return err
	}

	recordActivity(ctx, g.activity, g.logger, ActivityEvent{
		EventType: ActivityEventProjectDeleted,
		ActorID:   actor.ID.String(),
		ProjectID: projectID.String(),
	})
	return nil
}

func (g *ProjectGuard) CreateTask(ctx context.Context, actorID, projectID uuid.UUID, input NewTask) (*Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := input.Validate(); err != nil {
		return nil, wrapSource(ErrInvalidInput, err, map[string]any{"validation": err.Error()})
	}

	actor, _, err := g.authorize(ctx, actorID, OpCreateTask, projectID)
	if err != nil {
		return nil, err
	}

	if input.AssignedTo != nil {
		if _, err := g.repo.Users().FindUserByID(ctx, *input.AssignedTo); err != nil {
			return nil, mapUserLookupError(err, "assigned_to", input.AssignedTo.String())
		}
	}

	task := &Task{
		ProjectID:   projectID,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		CreatedBy:   actor.ID,
		AssignedTo:  input.AssignedTo,
		DueDate:     input.DueDate,
		Labels:      input.Labels,
	}

	err = g.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := g.repo.Tasks().InsertTaskTx(ctx, tx, task)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (g *ProjectGuard) DeleteTask(ctx context.Context, actorID, taskID uuid.UUID) error {
	if _, _, err := g.authorize(ctx, actorID, OpDeleteTask, taskID); err != nil {
		return err
	}
	return g.repo.Tasks().DeleteTask(ctx, taskID)
}

func (g *ProjectGuard) authorize(ctx context.Context, actorID uuid.UUID, op Operation, resourceID uuid.UUID) (*User, Resource, error) {
	if !op.IsValid() {
		return nil, Resource{}, withMetadata(ErrInvalidInput, map[string]any{"operation": string(op)})
	}

	actor, err := g.actor(ctx, actorID)
	if err != nil {
		return nil, Resource{}, err
	}

	resource, err := g.resolve(ctx, op, resourceID)
	if err != nil {
		return nil, Resource{}, err
	}

	ok, err := g.permissions.CheckPermission(ctx, actor, resource, op)
	if err != nil {
		return nil, Resource{}, err
	}
	if !ok {
		return nil, Resource{}, g.deny(ctx, actor, op, resourceID)
	}

	return actor, resource, nil
}

func (g *ProjectGuard) resolve(ctx context.Context, op Operation, resourceID uuid.UUID) (Resource, error) {
	switch op {
	case OpCreateProject:
		return Resource{}, nil
	case OpEditTask, OpDeleteTask:
		task, err := g.repo.Tasks().FindTask(ctx, resourceID)
		if err != nil {
			return Resource{}, err
		}
		return TaskResource(task), nil
	default:
		project, err := g.repo.Projects().FindProject(ctx, resourceID)
		if err != nil {
			return Resource{}, err
		}
		return ProjectResource(project), nil
	}
}

func (g *ProjectGuard) actor(ctx context.Context, actorID uuid.UUID) (*User, error) {
	user, err := g.repo.Users().FindUserByID(ctx, actorID)
	if err != nil {
		return nil, mapUserLookupError(err, "user_id", actorID.String())
	}
	return user, nil
}

func (g *ProjectGuard) deny(ctx context.Context, actor *User, op Operation, resourceID uuid.UUID) error {
	meta := map[string]any{
		"operation": string(op),
		"user_id":   actor.ID.String(),
	}
	if resourceID != uuid.Nil {
		meta["resource_id"] = resourceID.String()
	}
	g.logger.Debug("permission denied", "operation", string(op), "user_id", actor.ID.String())
	recordActivity(ctx, g.activity, g.logger, ActivityEvent{
		EventType: ActivityEventPermissionDenied,
		ActorID:   actor.ID.String(),
		Metadata:  meta,
	})
	return withMetadata(ErrForbidden, meta)
}
