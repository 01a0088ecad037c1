package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// RegisterUserMessage provisions an account outside of the HTTP flow
type RegisterUserMessage struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler runs RegisterUserMessage through Auther.Register
type RegisterUserHandler struct {
	auther  *Auther
	timeout time.Duration
	// Registered, if set, receives the created user's token pair
	Registered func(*TokenPair)
}

func NewRegisterUserHandler(auther *Auther) *RegisterUserHandler {
	return &RegisterUserHandler{auther: auther, timeout: 10 * time.Second}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	pair, err := h.auther.Register(ctx, RegisterRequest{
		Username: getUsername(event.Username, event.Email),
		Email:    event.Email,
		Password: event.Password,
	})
	if err != nil {
		return err
	}

	if h.Registered != nil {
		h.Registered(pair)
	}
	return nil
}

func getUsername(username, email string) string {
	if username = strings.TrimSpace(username); username != "" {
		return username
	}

	if at := strings.Index(email, "@"); at > 0 {
		username = strings.TrimSpace(email[:at])
	}

	return username
}
