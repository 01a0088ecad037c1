package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-tracker-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"
)

const testSigningKey = "test-signing-key-0123456789"

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, args ...any) {
	m.Called(msg, args)
}

func (m *MockLogger) Info(msg string, args ...any) {
	m.Called(msg, args)
}

func (m *MockLogger) Warn(msg string, args ...any) {
	m.Called(msg, args)
}

func (m *MockLogger) Error(msg string, args ...any) {
	m.Called(msg, args)
}

// MockMembershipLookup implements auth.MembershipLookup
type MockMembershipLookup struct {
	mock.Mock
}

func (m *MockMembershipLookup) MembershipOf(ctx context.Context, userID, projectID uuid.UUID) (*auth.Membership, error) {
	args := m.Called(ctx, userID, projectID)
	if v := args.Get(0); v != nil {
		return v.(*auth.Membership), args.Error(1)
	}
	return nil, args.Error(1)
}

// testClock is a manually advanced clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSink collects activity events
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Of returns the recorded events of type et, in order
func (s *recordingSink) Of(et auth.ActivityEventType) []auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []auth.ActivityEvent
	for _, e := range s.events {
		if e.EventType == et {
			out = append(out, e)
		}
	}
	return out
}

func (s *recordingSink) Types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, auth.CreateSchema(context.Background(), db))
	return db
}

func testOptions() auth.Options {
	opts := auth.Options{
		SigningKey:       testSigningKey,
		Issuer:           "tracker-test",
		PasswordHashCost: bcrypt.MinCost,
	}
	opts.ApplyDefaults()
	return opts
}

type testEnv struct {
	db       *bun.DB
	repo     auth.RepositoryManager
	clock    *testClock
	sink     *recordingSink
	tokens   *auth.TokenServiceImpl
	refresh  *auth.RefreshTokenManager
	auther   *auth.Auther
	registry *auth.MembershipRegistry
	perms    *auth.PermissionEvaluator
	guard    *auth.ProjectGuard
	members  *auth.ProjectMembers
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	clock := newTestClock()
	sink := &recordingSink{}
	logger := auth.NopLogger()
	opts := testOptions()

	tokens := auth.NewTokenServiceFromConfig(opts, auth.WithTokenClock(clock.Now), auth.WithTokenLogger(logger))
	refresh := auth.NewRefreshTokenManager(repo, opts.GetRefreshTokenTTL(),
		auth.WithRefreshTokenClock(clock.Now),
		auth.WithRefreshTokenLogger(logger),
	)

	auther := auth.NewAuthenticator(repo, opts).
		WithLogger(logger).
		WithActivitySink(sink).
		WithTokenService(tokens).
		WithRefreshTokenManager(refresh)

	registry := auth.NewMembershipRegistry(repo,
		auth.WithMembershipLogger(logger),
		auth.WithMembershipActivitySink(sink),
		auth.WithMembershipClock(clock.Now),
	)
	perms := auth.NewPermissionEvaluator(registry)

	return &testEnv{
		db:       db,
		repo:     repo,
		clock:    clock,
		sink:     sink,
		tokens:   tokens,
		refresh:  refresh,
		auther:   auther,
		registry: registry,
		perms:    perms,
		guard:    auth.NewProjectGuard(repo, registry, perms).WithLogger(logger).WithActivitySink(sink),
		members:  auth.NewProjectMembers(repo, registry, perms).WithLogger(logger).WithActivitySink(sink),
	}
}

// register signs up a user and returns the stored record with its tokens
func (e *testEnv) register(t *testing.T, username string) (*auth.User, *auth.TokenPair) {
	t.Helper()
	ctx := context.Background()

	pair, err := e.auther.Register(ctx, auth.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret-" + username,
	})
	require.NoError(t, err)

	user, err := e.repo.Users().FindUserByUsername(ctx, username)
	require.NoError(t, err)
	return user, pair
}

// project creates a project owned by owner through the guard
func (e *testEnv) project(t *testing.T, owner *auth.User, name string) *auth.Project {
	t.Helper()
	p, err := e.guard.CreateProject(context.Background(), owner.ID, auth.NewProject{Name: name})
	require.NoError(t, err)
	return p
}

// legacyProject inserts a project without the OWNER membership row
func (e *testEnv) legacyProject(t *testing.T, owner *auth.User, name string) *auth.Project {
	t.Helper()
	ctx := context.Background()
	p := &auth.Project{Name: name, CreatedBy: owner.ID}
	err := e.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := e.repo.Projects().InsertProjectTx(ctx, tx, p)
		return err
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) countRefreshTokens(t *testing.T, userID uuid.UUID) int {
	t.Helper()
	n, err := e.db.NewSelect().
		Model((*auth.RefreshToken)(nil)).
		Where("user_id = ?", userID).
		Count(context.Background())
	require.NoError(t, err)
	return n
}
