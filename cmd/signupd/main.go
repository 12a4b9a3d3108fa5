// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command signupd runs the signup account service.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"

	"github.com/ThemedEdits/SignUp/internal/auth"
	"github.com/ThemedEdits/SignUp/internal/config"
	"github.com/ThemedEdits/SignUp/internal/handler"
	"github.com/ThemedEdits/SignUp/internal/logging"
	"github.com/ThemedEdits/SignUp/internal/metrics"
	"github.com/ThemedEdits/SignUp/internal/middleware"
	"github.com/ThemedEdits/SignUp/internal/router"
	"github.com/ThemedEdits/SignUp/internal/service"
	"github.com/ThemedEdits/SignUp/internal/session"
	"github.com/ThemedEdits/SignUp/internal/store"
	"github.com/ThemedEdits/SignUp/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")
	setPassword := flag.String("set-password", "", "Prompt for a new password for `username` and exit")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "signupd - session-based account service\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SIGNUP_SESSION_SECRET   CSRF key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SIGNUP_DB_DRIVER        sqlite|mysql|postgres (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SIGNUP_DB_DSN           Database path or DSN (default: ./data/signup.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SIGNUP_SESSION_STORE    sqlite|memory|redis (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SIGNUP_REDIS_URL        Redis URL for the redis session store\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SIGNUP_SERVER_PORT      Server port (default: 3000)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SIGNUP_ENV              development|production (default: development)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Println(versionInfo().String())
		os.Exit(0)
	}

	if *setPassword != "" {
		if err := runSetPassword(*setPassword); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		_, _ = fmt.Fprintf(os.Stderr, "password updated for %s\n", *setPassword)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func versionInfo() version.Info {
	return version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}
}

// loadConfig reads .env (if present) and the environment, then installs the
// configured logger as the default.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat))
	return cfg, nil
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	info := versionInfo()
	slog.Info("starting signupd", "version", info.Version, "commit", info.GitCommit)

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	hasher, err := auth.NewHasher(cfg.PasswordHash, cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password hasher: %w", err)
	}

	ctx := context.Background()
	queries := store.New(db, cfg.DBDriver)
	if err := store.Seed(ctx, queries, hasher, store.AdminSeed{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	sessStore, err := newSessionStore(cfg, db)
	if err != nil {
		return err
	}
	defer func() {
		if err := sessStore.Close(); err != nil {
			slog.Error("error closing session store", "error", err)
		}
	}()
	sessions := session.New(session.Config{
		IsDev:    cfg.IsDevelopment(),
		Lifetime: cfg.SessionLifetime,
	}, sessStore.Store)
	slog.Info("session manager initialized", "store", cfg.SessionStore, "lifetime", cfg.SessionLifetime)

	// Interface-typed so a disabled registry stays a nil interface.
	var (
		recorder       service.Recorder
		observer       middleware.HTTPObserver
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		m := metrics.New()
		recorder, observer, metricsHandler = m, m, m.Handler()
	}

	svc := service.NewAuthService(queries, sessions, hasher, recorder)

	health := handler.NewHealthHandler(db, sessions, info)
	if sessStore.Check != nil {
		health.AddCheck("sessions", sessStore.Check)
	}

	h := router.New(router.Config{
		IsDev:          cfg.IsDevelopment(),
		CSRFKey:        []byte(cfg.SessionSecret),
		CORSOrigins:    cfg.CORSOrigins,
		StaticDir:      cfg.StaticDir,
		Sessions:       sessions,
		Auth:           svc,
		Health:         health,
		Metrics:        metricsHandler,
		MetricsObserve: observer,
	})

	return serve(newServer(cfg.ServerAddr(), h), cfg.Env)
}

// openDatabase opens the credential store and applies migrations.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	if cfg.DBDriver == store.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0o750); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	slog.Info("initializing database", "driver", cfg.DBDriver)
	db, err := store.NewDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	slog.Info("running database migrations")
	if err := store.Migrate(db, cfg.DBDriver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	return db, nil
}

// sessionStore is the configured scs backend plus its lifecycle hooks.
type sessionStore struct {
	scs.Store
	// Check probes the backend for readiness; nil when it shares the database.
	Check handler.CheckFunc
	stop  func() error
}

func (s sessionStore) Close() error {
	if s.stop == nil {
		return nil
	}
	return s.stop()
}

func newSessionStore(cfg *config.Config, db *sql.DB) (sessionStore, error) {
	switch cfg.SessionStore {
	case config.SessionStoreSQLite:
		st := session.NewSQLiteStore(db)
		return sessionStore{Store: st, stop: func() error { st.StopCleanup(); return nil }}, nil
	case config.SessionStoreMemory:
		slog.Warn("using in-memory session store; sessions are lost on restart")
		st := session.NewMemoryStore()
		return sessionStore{Store: st, stop: func() error { st.StopCleanup(); return nil }}, nil
	case config.SessionStoreRedis:
		opts := session.DefaultRedisOptions()
		opts.URL = cfg.RedisURL
		opts.Prefix = cfg.RedisPrefix
		st, err := session.NewRedisStore(opts)
		if err != nil {
			return sessionStore{}, fmt.Errorf("connecting to redis: %w", err)
		}
		return sessionStore{Store: st, Check: st.Ping, stop: st.Close}, nil
	default:
		return sessionStore{}, fmt.Errorf("unsupported session store %q", cfg.SessionStore)
	}
}

// newServer creates the HTTP server with appropriate timeouts.
func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

// serve runs srv until SIGINT/SIGTERM and then shuts it down gracefully.
func serve(srv *http.Server, env string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr, "env", env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-quit:
	}

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
