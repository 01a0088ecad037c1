package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-tracker-auth"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yml", `
auth:
  signing_key: from-yaml-signing-key-0123
  access_token_ttl: 15m
database:
  driver: sqlite
  dsn: "file::memory:"
http:
  addr: ":9090"
`)
	envPath := writeFile(t, dir, ".env", "TRACKER_AUTH_ISSUER=from-dotenv\n")

	t.Setenv("TRACKER_HTTP_ADDR", ":7070")
	t.Setenv("TRACKER_AUTH_ISSUER", "")
	require.NoError(t, os.Unsetenv("TRACKER_AUTH_ISSUER"))
	t.Cleanup(func() { _ = os.Unsetenv("TRACKER_AUTH_ISSUER") })

	cfg, err := loadConfig(cfgPath, envPath)
	require.NoError(t, err)

	assert.Equal(t, "from-yaml-signing-key-0123", cfg.Auth.SigningKey)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, auth.DefaultRefreshTokenTTL, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, "from-dotenv", cfg.Auth.Issuer)
	assert.Equal(t, ":7070", cfg.HTTP.Addr, "environment wins over the file")
	assert.Equal(t, "/metrics", cfg.HTTP.MetricsPath)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.False(t, cfg.Auth.DerivedUserIDs)
}

func TestLoadConfig_DerivedUserIDs(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yml", `
auth:
  signing_key: derived-ids-signing-key-0123
  derived_user_ids: true
`)

	cfg, err := loadConfig(cfgPath, writeFile(t, dir, ".env", ""))
	require.NoError(t, err)
	assert.True(t, cfg.Auth.DerivedUserIDs)
}

func TestLoadConfig_RequiresSigningKey(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yml", "database:\n  driver: sqlite\n")

	_, err := loadConfig(cfgPath, "")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidInput), "got %v", err)
}

func TestOpenDatabase(t *testing.T) {
	_, err := openDatabase(DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)

	db, err := openDatabase(DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.PingContext(context.Background()))

	assert.Nil(t, registerTxOptions(DatabaseConfig{Driver: "sqlite"}))
	assert.NotNil(t, registerTxOptions(DatabaseConfig{Driver: "postgres"}))
}

func TestBuildService(t *testing.T) {
	cfg := Config{
		Auth:     auth.Options{SigningKey: "service-signing-key-0123456789", PasswordHashCost: 4},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"},
		HTTP:     HTTPConfig{MetricsPath: "/metrics"},
		Log:      auth.LoggerOptions{Level: "error", Output: io.Discard},
	}
	cfg.Auth.ApplyDefaults()

	db, err := openDatabase(cfg.Database)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, auth.CreateSchema(context.Background(), db))

	svc, err := buildService(cfg, db)
	require.NoError(t, err)

	raw, err := json.Marshal(map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret-alice",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := svc.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = svc.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `tracker_auth_activity_events_total{event="auth.register"} 1`)
	assert.Contains(t, string(body), "tracker_auth_http_request_duration_seconds")
}

func TestBuildService_DerivedUserIDs(t *testing.T) {
	cfg := Config{
		Auth:     auth.Options{SigningKey: "service-signing-key-0123456789", PasswordHashCost: 4, DerivedUserIDs: true},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"},
		HTTP:     HTTPConfig{MetricsPath: "/metrics"},
		Log:      auth.LoggerOptions{Level: "error", Output: io.Discard},
	}
	cfg.Auth.ApplyDefaults()

	db, err := openDatabase(cfg.Database)
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	require.NoError(t, auth.CreateSchema(ctx, db))

	svc, err := buildService(cfg, db)
	require.NoError(t, err)

	pair, err := svc.auther.Register(ctx, auth.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret-alice",
	})
	require.NoError(t, err)

	user, _, err := svc.auther.Principal(ctx, pair.AccessToken)
	require.NoError(t, err)

	expected, err := hashid.NewUUID("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, expected, user.ID)
}
