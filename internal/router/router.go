// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package router assembles the HTTP middleware stack and routes.
package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ThemedEdits/SignUp/internal/handler"
	"github.com/ThemedEdits/SignUp/internal/middleware"
	"github.com/ThemedEdits/SignUp/internal/session"
)

// RequestTimeout bounds the time spent in a handler.
const RequestTimeout = 30 * time.Second

// staticMaxAge is the Cache-Control max-age for the static directory.
const staticMaxAge = 3600

// Config holds everything the router needs.
type Config struct {
	IsDev       bool
	CSRFKey     []byte
	CORSOrigins []string
	StaticDir   string

	Sessions *session.Manager
	Auth     handler.AuthService
	Health   *handler.HealthHandler

	// Metrics is mounted at /metrics when non-nil.
	Metrics        http.Handler
	MetricsObserve middleware.HTTPObserver
}

// New creates the application router.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	if cfg.MetricsObserve != nil {
		r.Use(middleware.Metrics(cfg.MetricsObserve))
	}
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(chimw.StripSlashes)
	r.Use(middleware.Timeout(RequestTimeout))

	security := middleware.DefaultSecurityHeadersConfig(cfg.IsDev)
	r.Use(middleware.SecurityHeaders(security))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowCredentials: true,
		MaxAge:           600,
	}))
	r.Use(cfg.Sessions.LoadAndSave)

	csrf := middleware.CSRF(middleware.DefaultCSRFConfig(cfg.CSRFKey, cfg.CORSOrigins))
	slog.Info("http stack initialized",
		"hsts", !cfg.IsDev,
		"cors_origins", cfg.CORSOrigins,
		"static_dir", cfg.StaticDir,
		"metrics", cfg.Metrics != nil,
	)

	authHandler := handler.NewAuthHandler(cfg.Auth)
	adminHandler := handler.NewAdminHandler(cfg.Auth)

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Health)
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(csrf)

		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(cfg.Sessions))
			r.Get("/user", authHandler.CurrentUser)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin())
				r.Get("/users", adminHandler.ListUsers)
				r.Delete("/users/{id}", adminHandler.DeleteUser)
			})
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeNotFound(w)
		})
	})

	if cfg.StaticDir != "" {
		r.Handle("/*", middleware.Static(cfg.StaticDir, staticMaxAge))
	}

	return r
}

func writeNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"success":false,"message":"Not found"}` + "\n"))
}
