package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Member is a membership row joined with the member's public profile
type Member struct {
	UserID   uuid.UUID   `json:"user_id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     ProjectRole `json:"role"`
	JoinedAt time.Time   `json:"joined_at"`
}

// ProjectMembers is the actor checked membership surface. Members are named by
// username. Adding, changing and removing require manageMembers, listing
// requires viewProject.
type ProjectMembers struct {
	repo        RepositoryManager
	registry    *MembershipRegistry
	permissions *PermissionEvaluator
	logger      Logger
	activity    ActivitySink
}

func NewProjectMembers(repo RepositoryManager, registry *MembershipRegistry, permissions *PermissionEvaluator) *ProjectMembers {
	return &ProjectMembers{
		repo:        repo,
		registry:    registry,
		permissions: permissions,
		logger:      defaultLogger("project_members"),
		activity:    noopActivitySink{},
	}
}

func (s *ProjectMembers) WithLogger(logger Logger) *ProjectMembers {
	s.logger = normalizeLogger(logger, "project_members")
	return s
}

// WithActivitySink receives a permission_denied event for every rejected
// manageMembers check
func (s *ProjectMembers) WithActivitySink(sink ActivitySink) *ProjectMembers {
	s.activity = normalizeActivitySink(sink)
	return s
}

func (s *ProjectMembers) AddMember(ctx context.Context, actorID, projectID uuid.UUID, username string, role ProjectRole) (*Member, error) {
	project, actor, err := s.load(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManager(ctx, actor, project); err != nil {
		return nil, err
	}

	target, err := s.target(ctx, username)
	if err != nil {
		return nil, err
	}

	m, err := s.registry.AddMember(ctx, project.ID, target.ID, role)
	if err != nil {
		return nil, err
	}
	return toMember(m, target), nil
}

func (s *ProjectMembers) ListMembers(ctx context.Context, actorID, projectID uuid.UUID) ([]Member, error) {
	project, actor, err := s.load(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}

	ok, err := s.permissions.CanViewProject(ctx, actor, project)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, withMetadata(ErrForbidden, map[string]any{
			"operation":  string(OpViewProject),
			"project_id": project.ID.String(),
		})
	}

	rows, err := s.registry.ListMembers(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.UserID)
	}
	users, err := s.repo.Users().FindUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]Member, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toMember(m, byID[m.UserID]))
	}
	return out, nil
}

// ChangeRole fails with ErrProtectedRole for an OWNER target before the
// caller's own authority is considered.
func (s *ProjectMembers) ChangeRole(ctx context.Context, actorID, projectID uuid.UUID, username string, role ProjectRole) (*Member, error) {
	project, actor, err := s.load(ctx, actorID, projectID)
	if err != nil {
		return nil, err
	}

	target, err := s.target(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.rejectProtected(ctx, project.ID, target.ID); err != nil {
		return nil, err
	}
	if err := s.requireManager(ctx, actor, project); err != nil {
		return nil, err
	}

	m, err := s.registry.ChangeRole(ctx, project.ID, target.ID, role)
	if err != nil {
		return nil, err
	}
	return toMember(m, target), nil
}

func (s *ProjectMembers) RemoveMember(ctx context.Context, actorID, projectID uuid.UUID, username string) error {
	project, actor, err := s.load(ctx, actorID, projectID)
	if err != nil {
		return err
	}

	target, err := s.target(ctx, username)
	if err != nil {
		return err
	}
	if err := s.rejectProtected(ctx, project.ID, target.ID); err != nil {
		return err
	}
	if err := s.requireManager(ctx, actor, project); err != nil {
		return err
	}

	return s.registry.RemoveMember(ctx, project.ID, target.ID)
}

// EnsureCreatorIsOwner is the idempotent repair for projects created without
// an OWNER row. An existing row is returned unchanged whatever its role.
func (s *ProjectMembers) EnsureCreatorIsOwner(ctx context.Context, actorID, projectID uuid.UUID) (*Membership, error) {
	project, err := s.repo.Projects().FindProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.IsCreator(actorID) {
		return nil, withMetadata(ErrForbidden, map[string]any{
			"operation":  "project:ensure_owner",
			"project_id": projectID.String(),
			"user_id":    actorID.String(),
		})
	}

	var m *Membership
	var created bool
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		m, created, err = s.registry.ensureOwnerTx(ctx, tx, projectID, actorID)
		return err
	})
	if err != nil {
		if !isUniqueViolation(err) {
			return nil, err
		}
		// a concurrent call inserted the row first
		return s.registry.MembershipOf(ctx, actorID, projectID)
	}

	if created {
		s.logger.Info("bootstrapped owner membership", "project_id", projectID.String(), "user_id", actorID.String())
	}
	return m, nil
}

func (s *ProjectMembers) load(ctx context.Context, actorID, projectID uuid.UUID) (*Project, *User, error) {
	project, err := s.repo.Projects().FindProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	actor, err := s.repo.Users().FindUserByID(ctx, actorID)
	if err != nil {
		return nil, nil, mapUserLookupError(err, "user_id", actorID.String())
	}
	return project, actor, nil
}

func (s *ProjectMembers) target(ctx context.Context, username string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, withMetadata(ErrInvalidInput, map[string]any{"field": "username"})
	}
	user, err := s.repo.Users().FindUserByUsername(ctx, username)
	if err != nil {
		return nil, mapUserLookupError(err, "username", username)
	}
	return user, nil
}

func (s *ProjectMembers) requireManager(ctx context.Context, actor *User, project *Project) error {
	ok, err := s.permissions.CanManageMembers(ctx, actor, project)
	if err != nil {
		return err
	}
	if !ok {
		meta := map[string]any{
			"operation":  string(OpManageMembers),
			"project_id": project.ID.String(),
			"user_id":    actor.ID.String(),
		}
		s.logger.Debug("permission denied", "operation", string(OpManageMembers), "user_id", actor.ID.String())
		recordActivity(ctx, s.activity, s.logger, ActivityEvent{
			EventType: ActivityEventPermissionDenied,
			ActorID:   actor.ID.String(),
			ProjectID: project.ID.String(),
			Metadata:  meta,
		})
		return withMetadata(ErrForbidden, meta)
	}
	return nil
}

func (s *ProjectMembers) rejectProtected(ctx context.Context, projectID, userID uuid.UUID) error {
	current, err := s.registry.MembershipOf(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if current != nil && current.Role.IsProtected() {
		return withMetadata(ErrProtectedRole, membershipMeta(projectID, userID))
	}
	return nil
}

func toMember(m *Membership, u *User) *Member {
	out := &Member{
		UserID:   m.UserID,
		Role:     m.Role,
		JoinedAt: m.JoinedAt,
	}
	if u != nil {
		out.Username = u.Username
		out.Email = u.Email
	}
	return out
}
