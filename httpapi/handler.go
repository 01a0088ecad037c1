package httpapi

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-tracker-auth"
	"github.com/goliatone/go-tracker-auth/middleware/jwtware"
	"github.com/google/uuid"
)

const principalKey = "principal"

// Handler maps the core operations to JSON endpoints. It holds no state of
// its own, every request goes through the core services.
type Handler struct {
	auther  *auth.Auther
	members *auth.ProjectMembers
	guard   *auth.ProjectGuard
	logger  auth.Logger
}

// NewHandler creates the HTTP adapter
func NewHandler(auther *auth.Auther, members *auth.ProjectMembers, guard *auth.ProjectGuard) *Handler {
	return &Handler{
		auther:  auther,
		members: members,
		guard:   guard,
		logger:  auth.NopLogger(),
	}
}

func (h *Handler) WithLogger(logger auth.Logger) *Handler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Server is the go-router Fiber adapter with every route mounted
type Server struct {
	srv router.Server[*fiber.App]
	app *fiber.App
}

// NewServer mounts h on a Fiber backed router. Extra fiber handlers run
// before every route.
func NewServer(h *Handler, middleware ...fiber.Handler) *Server {
	var app *fiber.App
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		app = router.DefaultFiberOptions(fiber.New(fiber.Config{
			ErrorHandler:          ErrorHandler,
			DisableStartupMessage: true,
		}))
		for _, m := range middleware {
			app.Use(m)
		}
		return app
	})
	Register(srv.Router(), h)
	return &Server{srv: srv, app: app}
}

func (s *Server) Router() router.Router[*fiber.App] {
	return s.srv.Router()
}

// App is the underlying Fiber app, used for plain fiber routes and tests
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Serve(addr string) error {
	return s.srv.Serve(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// Register mounts every route on r
func Register[T any](r router.Router[T], h *Handler) {
	r.Post("/auth/register", handle(h.register))
	r.Post("/auth/login", handle(h.login))
	r.Post("/auth/refresh", handle(h.refresh))
	r.Post("/auth/logout", handle(h.logout))

	authn := h.Authenticate()
	r.Get("/me", handle(h.me), authn)
	r.Get("/authorize", handle(h.authorize), authn)

	r.Post("/projects", handle(h.createProject), authn)
	r.Delete("/projects/:projectID", handle(h.deleteProject), authn)
	r.Post("/projects/:projectID/owner", handle(h.ensureOwner), authn)
	r.Get("/projects/:projectID/members", handle(h.listMembers), authn)
	r.Post("/projects/:projectID/members", handle(h.addMember), authn)
	r.Put("/projects/:projectID/members/:username", handle(h.changeRole), authn)
	r.Delete("/projects/:projectID/members/:username", handle(h.removeMember), authn)
	r.Post("/projects/:projectID/tasks", handle(h.createTask), authn)
	r.Delete("/tasks/:taskID", handle(h.deleteTask), authn)
}

// Authenticate verifies the bearer token and loads the current user record
// into the request context
func (h *Handler) Authenticate() router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		TokenValidator: h.auther.TokenValidator(),
		ErrorHandler:   unauthorized,
		ValidationListeners: []jwtware.ValidationListener{
			func(ctx router.Context, claims auth.AuthClaims) error {
				user, err := h.auther.PrincipalFromClaims(ctx.Context(), claims)
				if err != nil {
					h.logger.Debug("bearer principal rejected", "subject", claims.Subject(), "error", err)
					return err
				}
				ctx.Locals(principalKey, user)
				ctx.SetContext(auth.WithContext(ctx.Context(), user))
				return nil
			},
		},
	})
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

type memberBody struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type authorizeResult struct {
	Operation  auth.Operation `json:"operation"`
	ResourceID string         `json:"resource_id,omitempty"`
	Allowed    bool           `json:"allowed"`
}

func (h *Handler) register(ctx router.Context) error {
	var req auth.RegisterRequest
	if err := parse(ctx, &req); err != nil {
		return err
	}
	pair, err := h.auther.Register(ctx.Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.StatusCreated, pair)
}

func (h *Handler) login(ctx router.Context) error {
	var req auth.LoginRequest
	if err := parse(ctx, &req); err != nil {
		return err
	}
	pair, err := h.auther.Login(ctx.Context(), req)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.StatusOK, pair)
}

func (h *Handler) refresh(ctx router.Context) error {
	var body refreshBody
	if err := parse(ctx, &body); err != nil {
		return err
	}
	pair, err := h.auther.Refresh(ctx.Context(), body.RefreshToken)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.StatusOK, pair)
}

func (h *Handler) logout(ctx router.Context) error {
	var body refreshBody
	if err := parse(ctx, &body); err != nil {
		return err
	}
	if err := h.auther.Logout(ctx.Context(), body.RefreshToken); err != nil {
		return err
	}
	return ctx.NoContent(fiber.StatusNoContent)
}

func (h *Handler) me(ctx router.Context) error {
	return ctx.JSON(fiber.StatusOK, principal(ctx))
}

func (h *Handler) authorize(ctx router.Context) error {
	op := auth.Operation(strings.TrimSpace(ctx.Query("operation", "")))
	result := authorizeResult{Operation: op, ResourceID: ctx.Query("resource_id", "")}

	resourceID := uuid.Nil
	if result.ResourceID != "" {
		id, err := parseID(result.ResourceID, "resource_id")
		if err != nil {
			return err
		}
		resourceID = id
	}

	err := h.guard.Authorize(ctx.Context(), principal(ctx).ID, op, resourceID)
	switch {
	case err == nil:
		result.Allowed = true
	case auth.HasTextCode(err, auth.TextCodeForbidden):
		result.Allowed = false
	default:
		return err
	}
	return ctx.JSON(fiber.StatusOK, result)
}

func (h *Handler) createProject(ctx router.Context) error {
	var input auth.NewProject
	if err := parse(ctx, &input); err != nil {
		return err
	}
	project, err := h.guard.CreateProject(ctx.Context(), principal(ctx).ID, input)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.StatusCreated, project)
}

func (h *Handler) deleteProject(ctx router.Context) error {
	projectID, err := paramID(ctx, "projectID")
	if err != nil {
		return err
	}
	if err := h.guard.DeleteProject(ctx.Context(), principal(ctx).ID, projectID); err != nil {
		return err
	}
	return ctx.NoContent(fiber.StatusNoContent)
}

func (h *Handler) ensureOwner(ctx router.Context) error {
	projectID, err := paramID(ctx, "projectID")
	if err != nil {
		return err
	}
	membership, err := h.members.EnsureCreatorIsOwner(ctx.Context(), principal(ctx).ID, projectID)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.StatusOK, membership)
}

func (h *Handler) listMembers(ctx router.Context) error {
	projectID, err := paramID(ctx, "projectID")
	if err != nil {
		return err
	}
	members, err := h.members.ListMembers(ctx.Context(), principal(ctx).ID, projectID)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.StatusOK, members)
}

func (h *Handler) addMember(ctx router.Context) error {
	projectID, err := paramID(ctx, "projectID")
	if err != nil {
		return err
	}
	var body memberBody
	if err := parse(ctx, &body); err != nil {
		return err
	}
	role, err := parseRole(body.Role)
	if err != nil {
		return err
	}
	member, err := h.members.AddMember(ctx.Context(), principal(ctx).ID, projectID, body.Username, role)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.StatusCreated, member)
}

func (h *Handler) changeRole(ctx router.Context) error {
	projectID, err := paramID(ctx, "projectID")
	if err != nil {
		return err
	}
	var body memberBody
	if err := parse(ctx, &body); err != nil {
		return err
	}
	if strings.TrimSpace(body.Role) == "" {
		return invalid("role", "role is required")
	}
	role, err := parseRole(body.Role)
	if err != nil {
		return err
	}
	member, err := h.members.ChangeRole(ctx.Context(), principal(ctx).ID, projectID, ctx.Param("username"), role)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.StatusOK, member)
}

func (h *Handler) removeMember(ctx router.Context) error {
	projectID, err := paramID(ctx, "projectID")
	if err != nil {
		return err
	}
	if err := h.members.RemoveMember(ctx.Context(), principal(ctx).ID, projectID, ctx.Param("username")); err != nil {
		return err
	}
	return ctx.NoContent(fiber.StatusNoContent)
}

func (h *Handler) createTask(ctx router.Context) error {
	projectID, err := paramID(ctx, "projectID")
	if err != nil {
		return err
	}
	var input auth.NewTask
	if err := parse(ctx, &input); err != nil {
		return err
	}
	task, err := h.guard.CreateTask(ctx.Context(), principal(ctx).ID, projectID, input)
	if err != nil {
		return err
	}
	return ctx.JSON(fiber.StatusCreated, task)
}

func (h *Handler) deleteTask(ctx router.Context) error {
	taskID, err := paramID(ctx, "taskID")
	if err != nil {
		return err
	}
	if err := h.guard.DeleteTask(ctx.Context(), principal(ctx).ID, taskID); err != nil {
		return err
	}
	return ctx.NoContent(fiber.StatusNoContent)
}
