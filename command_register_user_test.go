package auth_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-tracker-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUserHandler(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var pair *auth.TokenPair
	handler := auth.NewRegisterUserHandler(env.auther)
	handler.Registered = func(p *auth.TokenPair) { pair = p }

	msg := auth.RegisterUserMessage{Email: "root@example.com", Password: "s3cret"}
	assert.Equal(t, "user.register", msg.Type())

	require.NoError(t, handler.Execute(ctx, msg))
	require.NotNil(t, pair)
	assert.NotEmpty(t, pair.AccessToken)

	user, err := env.repo.Users().FindUserByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", user.Email)
	assert.True(t, user.HasRole(auth.RoleAdmin), "first account is ADMIN")

	err = handler.Execute(ctx, msg)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeAlreadyExists), "got %v", err)

	err = handler.Execute(ctx, auth.RegisterUserMessage{Email: "not-an-email"})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidInput), "got %v", err)
}

func TestRegisterUserHandler_CancelledContext(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := auth.NewRegisterUserHandler(env.auther).Execute(ctx, auth.RegisterUserMessage{
		Username: "late",
		Email:    "late@example.com",
		Password: "s3cret",
	})
	assert.ErrorIs(t, err, context.Canceled)
}
