package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/goliatone/go-tracker-auth"
	"github.com/goliatone/go-tracker-auth/activitymap"
	"github.com/goliatone/go-tracker-auth/httpapi"
	"github.com/goliatone/go-tracker-auth/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
)

const metricsNamespace = "tracker_auth"

// service is the wired core plus its HTTP surface
type service struct {
	server   *httpapi.Server
	app      *fiber.App
	auther   *auth.Auther
	members  *auth.ProjectMembers
	guard    *auth.ProjectGuard
	registry *prometheus.Registry
}

// auditSink writes every activity event as a normalized log record
func auditSink(logger auth.Logger) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		n := activitymap.Normalize(event)
		logger.Info("activity",
			"verb", n.Verb,
			"actor_id", n.ActorID,
			"object_type", n.ObjectType,
			"object_id", n.ObjectID,
			"metadata", n.Metadata,
			"occurred_at", n.OccurredAt,
		)
		return nil
	})
}

func newLogger(cfg Config, name string) auth.Logger {
	return auth.NewZerologLogger(name, cfg.Log)
}

// buildService wires every component over db
func buildService(cfg Config, db *bun.DB) (*service, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	activityMetrics, err := metrics.NewActivityCollector(reg, metricsNamespace)
	if err != nil {
		return nil, err
	}
	requests, err := metrics.NewRequestObserver(reg, metricsNamespace)
	if err != nil {
		return nil, err
	}

	sink := auth.ActivitySinks{
		activityMetrics,
		auditSink(newLogger(cfg, "audit")),
	}

	repo := auth.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		return nil, err
	}

	refresh := auth.NewRefreshTokenManager(repo, cfg.Auth.GetRefreshTokenTTL(),
		auth.WithRefreshTokenLogger(newLogger(cfg, "refresh_tokens")),
	)

	auther := auth.NewAuthenticator(repo, cfg.Auth).
		WithLogger(newLogger(cfg, "auth")).
		WithActivitySink(sink).
		WithRefreshTokenManager(refresh).
		WithTokenValidator(auth.NewTokenValidatorFromConfig(cfg.Auth)).
		WithRegisterTxOptions(registerTxOptions(cfg.Database)).
		WithDerivedUserIDs(cfg.Auth.DerivedUserIDs)

	registry := auth.NewMembershipRegistry(repo,
		auth.WithMembershipLogger(newLogger(cfg, "membership")),
		auth.WithMembershipActivitySink(sink),
	)
	permissions := auth.NewPermissionEvaluator(registry)

	guard := auth.NewProjectGuard(repo, registry, permissions).
		WithLogger(newLogger(cfg, "project_guard")).
		WithActivitySink(sink)
	members := auth.NewProjectMembers(repo, registry, permissions).
		WithLogger(newLogger(cfg, "project_members")).
		WithActivitySink(sink)

	handler := httpapi.NewHandler(auther, members, guard).
		WithLogger(newLogger(cfg, "http"))

	server := httpapi.NewServer(handler, requests.Middleware())
	server.Router().WithLogger(newLogger(cfg, "router"))

	app := server.App()
	app.Get(cfg.HTTP.MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return &service{
		server:   server,
		app:      app,
		auther:   auther,
		members:  members,
		guard:    guard,
		registry: reg,
	}, nil
}
