package auth

import (
	"context"
	"errors"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventRegistered        ActivityEventType = "auth.register"
	ActivityEventLoginSuccess      ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure      ActivityEventType = "auth.login.failure"
	ActivityEventTokenRefreshed    ActivityEventType = "auth.token.refreshed"
	ActivityEventRefreshRejected   ActivityEventType = "auth.token.refresh_rejected"
	ActivityEventLogout            ActivityEventType = "auth.logout"
	ActivityEventProjectCreated    ActivityEventType = "project.created"
	ActivityEventProjectDeleted    ActivityEventType = "project.deleted"
	ActivityEventMemberAdded       ActivityEventType = "project.member.added"
	ActivityEventMemberRoleChanged ActivityEventType = "project.member.role_changed"
	ActivityEventMemberRemoved     ActivityEventType = "project.member.removed"
	ActivityEventPermissionDenied  ActivityEventType = "authz.denied"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	ActorID    string
	UserID     string
	ProjectID  string
	Role       ProjectRole
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// ActivitySinks fans every event out to each sink in order
type ActivitySinks []ActivitySink

// Record implements ActivitySink. Every sink sees the event even when an
// earlier one fails.
func (s ActivitySinks) Record(ctx context.Context, event ActivityEvent) error {
	var errs []error
	for _, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// recordActivity never fails the calling operation, sink errors are logged
func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := sink.Record(ctx, event); err != nil && logger != nil {
		logger.Warn("activity sink rejected event", "event", string(event.EventType), "error", err)
	}
}
