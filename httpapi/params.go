package httpapi

import (
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-tracker-auth"
	"github.com/google/uuid"
)

// principal is only called behind Authenticate
func principal(ctx router.Context) *auth.User {
	user, _ := ctx.Locals(principalKey).(*auth.User)
	if user == nil {
		user, _ = auth.FromContext(ctx.Context())
	}
	if user == nil {
		return &auth.User{}
	}
	return user
}

func parse(ctx router.Context, out any) error {
	if err := ctx.Bind(out); err != nil {
		return invalid("body", err.Error())
	}
	return nil
}

func paramID(ctx router.Context, name string) (uuid.UUID, error) {
	return parseID(ctx.Param(name), name)
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid(field, "must be a UUID")
	}
	return id, nil
}

func parseRole(raw string) (auth.ProjectRole, error) {
	role, ok := auth.ParseProjectRole(raw)
	if !ok {
		return "", invalid("role", "unknown project role")
	}
	return role, nil
}

func invalid(field, reason string) error {
	return auth.ErrInvalidInput.Clone().WithMetadata(map[string]any{
		"field":  field,
		"reason": reason,
	})
}
