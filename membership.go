package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MembershipRegistry is the source of truth for who belongs to which project
// and with what role. It performs no permission checks of its own, see
// ProjectMembers for the actor checked surface.
type MembershipRegistry struct {
	repo     RepositoryManager
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

type MembershipOption func(*MembershipRegistry)

func WithMembershipLogger(logger Logger) MembershipOption {
	return func(r *MembershipRegistry) {
		r.logger = normalizeLogger(logger, "membership")
	}
}

func WithMembershipActivitySink(sink ActivitySink) MembershipOption {
	return func(r *MembershipRegistry) {
		r.activity = normalizeActivitySink(sink)
	}
}

func WithMembershipClock(now func() time.Time) MembershipOption {
	return func(r *MembershipRegistry) {
		if now != nil {
			r.now = now
		}
	}
}

func NewMembershipRegistry(repo RepositoryManager, opts ...MembershipOption) *MembershipRegistry {
	r := &MembershipRegistry{
		repo:     repo,
		logger:   defaultLogger("membership"),
		activity: noopActivitySink{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

var _ MembershipLookup = (*MembershipRegistry)(nil)

// MembershipOf returns the membership row or nil when the user has none
func (r *MembershipRegistry) MembershipOf(ctx context.Context, userID, projectID uuid.UUID) (*Membership, error) {
	return r.repo.Memberships().FindMembership(ctx, projectID, userID)
}

// IsMember counts the project creator as a member even without a row
func (r *MembershipRegistry) IsMember(ctx context.Context, userID, projectID uuid.UUID) (bool, error) {
	project, err := r.repo.Projects().FindProject(ctx, projectID)
	if err != nil {
		return false, err
	}
	if project.IsCreator(userID) {
		return true, nil
	}
	m, err := r.MembershipOf(ctx, userID, projectID)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

// AddMember enrolls userID in the project. An empty role means TEAM_MEMBER.
func (r *MembershipRegistry) AddMember(ctx context.Context, projectID, userID uuid.UUID, role ProjectRole) (*Membership, error) {
	if role == "" {
		role = DefaultProjectRole
	}
	if !role.IsValid() {
		return nil, withMetadata(ErrInvalidInput, map[string]any{"role": string(role)})
	}
	if role.IsProtected() {
		return nil, withMetadata(ErrProtectedRole, map[string]any{"role": string(role)})
	}

	if _, err := r.repo.Projects().FindProject(ctx, projectID); err != nil {
		return nil, err
	}
	if _, err := r.repo.Users().FindUserByID(ctx, userID); err != nil {
		return nil, mapUserLookupError(err, "user_id", userID.String())
	}

	m, err := withRetry(ctx, r.logger, "membership.add", func() (*Membership, error) {
		m := &Membership{
			ProjectID: projectID,
			UserID:    userID,
			Role:      role,
			JoinedAt:  r.now().UTC(),
		}
		err := r.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return r.repo.Memberships().InsertMembershipTx(ctx, tx, m)
		})
		return m, err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, wrapSource(ErrAlreadyMember, err, membershipMeta(projectID, userID))
		}
		return nil, err
	}

	recordActivity(ctx, r.activity, r.logger, ActivityEvent{
		EventType: ActivityEventMemberAdded,
		UserID:    userID.String(),
		ProjectID: projectID.String(),
		Role:      role,
	})

	return m, nil
}

// ChangeRole updates a non OWNER membership in a single conditional statement
// so the protected role check and the write cannot interleave.
func (r *MembershipRegistry) ChangeRole(ctx context.Context, projectID, userID uuid.UUID, role ProjectRole) (*Membership, error) {
	if !role.IsValid() {
		return nil, withMetadata(ErrInvalidInput, map[string]any{"role": string(role)})
	}
	if role.IsProtected() {
		return nil, withMetadata(ErrProtectedRole, map[string]any{"role": string(role)})
	}

	m, err := withRetry(ctx, r.logger, "membership.change_role", func() (*Membership, error) {
		var updated *Membership
		err := r.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			n, err := r.repo.Memberships().UpdateRoleUnlessProtectedTx(ctx, tx, projectID, userID, role)
			if err != nil {
				return err
			}
			current, err := r.repo.Memberships().FindMembershipTx(ctx, tx, projectID, userID)
			if err != nil {
				return err
			}
			if n == 0 {
				return protectedOrMissing(current, projectID, userID)
			}
			updated = current
			return nil
		})
		return updated, err
	})
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, r.activity, r.logger, ActivityEvent{
		EventType: ActivityEventMemberRoleChanged,
		UserID:    userID.String(),
		ProjectID: projectID.String(),
		Role:      role,
	})

	return m, nil
}

// RemoveMember deletes a non OWNER membership
func (r *MembershipRegistry) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	err := withRetryFunc(ctx, r.logger, "membership.remove", func() error {
		return r.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			n, err := r.repo.Memberships().DeleteUnlessProtectedTx(ctx, tx, projectID, userID)
			if err != nil {
				return err
			}
			if n > 0 {
				return nil
			}
			current, err := r.repo.Memberships().FindMembershipTx(ctx, tx, projectID, userID)
			if err != nil {
				return err
			}
			return protectedOrMissing(current, projectID, userID)
		})
	})
	if err != nil {
		return err
	}

	recordActivity(ctx, r.activity, r.logger, ActivityEvent{
		EventType: ActivityEventMemberRemoved,
		UserID:    userID.String(),
		ProjectID: projectID.String(),
	})

	return nil
}

// ListMembers returns memberships ordered by join time
func (r *MembershipRegistry) ListMembers(ctx context.Context, projectID uuid.UUID) ([]*Membership, error) {
	if _, err := r.repo.Projects().FindProject(ctx, projectID); err != nil {
		return nil, err
	}
	return r.repo.Memberships().ListByProject(ctx, projectID)
}

// ensureOwnerTx inserts the OWNER row for the creator unless a row exists
func (r *MembershipRegistry) ensureOwnerTx(ctx context.Context, tx bun.IDB, projectID, userID uuid.UUID) (*Membership, bool, error) {
	existing, err := r.repo.Memberships().FindMembershipTx(ctx, tx, projectID, userID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	m := &Membership{
		ProjectID: projectID,
		UserID:    userID,
		Role:      ProjectRoleOwner,
		JoinedAt:  r.now().UTC(),
	}
	if err := r.repo.Memberships().InsertMembershipTx(ctx, tx, m); err != nil {
		return nil, false, err
	}
	return m, true, nil
}

func protectedOrMissing(current *Membership, projectID, userID uuid.UUID) error {
	if current == nil {
		return withMetadata(ErrNotAMember, membershipMeta(projectID, userID))
	}
	if current.Role.IsProtected() {
		return withMetadata(ErrProtectedRole, membershipMeta(projectID, userID))
	}
	// row was removed between the write and the read back
	return withMetadata(ErrNotAMember, membershipMeta(projectID, userID))
}

func membershipMeta(projectID, userID uuid.UUID) map[string]any {
	return map[string]any{
		"project_id": projectID.String(),
		"user_id":    userID.String(),
	}
}
