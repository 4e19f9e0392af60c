// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer; it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which store backend to open
// - Which URL patterns map to which handler functions
// - Which routes sit behind the authorization gate
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → store (sqlite.DB | postgres.DB)
//	store → auth.Resolver → auth.RequireAuth (gate)
//	store → service.AuthService / service.NoteService → handlers
//
// This is the "composition root" pattern; all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/notes-api/internal/auth"
	"github.com/sakif/notes-api/internal/config"
	"github.com/sakif/notes-api/internal/handler"
	"github.com/sakif/notes-api/internal/middleware"
	"github.com/sakif/notes-api/internal/repository"
	pgRepo "github.com/sakif/notes-api/internal/repository/postgres"
	sqliteRepo "github.com/sakif/notes-api/internal/repository/sqlite"
	"github.com/sakif/notes-api/internal/service"
)

// openTimeout bounds connecting to the database and running migrations.
const openTimeout = 30 * time.Second

// store is what the server needs from a backend: both repositories, a
// health ping and a way to release the connection pool.
type store interface {
	repository.UserRepository
	repository.NoteRepository
	repository.Pinger
	Close() error
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start() closes it after the
// HTTP server has drained, so in-flight requests never see a closed pool.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	db       store
	registry *prometheus.Registry
}

// New opens the configured store and builds the router.
//
// IMPORT ALIASES:
// repository/sqlite and repository/postgres are imported as sqliteRepo and
// pgRepo so they don't read like the driver packages.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: prometheus.NewRegistry(),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// openStore picks the backend named by cfg.DBDriver.
func openStore(ctx context.Context, cfg config.Config) (store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := pgRepo.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return db, nil

	case config.DriverSQLite:
		// os.MkdirAll is `mkdir -p`: create data/ on first run.
		if cfg.DBPath != ":memory:" {
			dir := filepath.Dir(cfg.DBPath)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		db, err := sqliteRepo.New(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /                 → hello world
//	GET    /healthz          → database ping
//	GET    /metrics          → Prometheus (when METRICS_ENABLED)
//	POST   /register         → create account   (alias /auth/register)
//	POST   /login            → issue token      (alias /auth/login)
//	POST   /notes            → create note      [gate]
//	GET    /notes            → list own notes   [gate]
//	GET    /notes/search?q=  → search own notes [gate] (alias /search)
//	GET    /notes/{id}       → one note         [gate]
//	PUT    /notes/{id}       → partial update   [gate]
//	DELETE /notes/{id}       → delete           [gate]
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info and the request id
// 4. Metrics: counts requests per route pattern
// 5. Recoverer: catches panics and returns 500 instead of crashing
//
// The gate is NOT global: it is mounted on the /notes group only, so
// register, login and the probes stay public.
func (s *Server) setupRoutes() error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords, err := auth.NewPasswordServiceWithCost(cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password service: %w", err)
	}

	gateOpts := auth.GateOptions{
		Header: cfg.TokenHeader,
		Logger: s.logger,
	}

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	if cfg.MetricsEnabled {
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		s.router.Use(middleware.Metrics(middleware.NewHTTPMetrics(s.registry)))
		gateOpts.Rejections = auth.NewRejectionCounter(s.registry)
	}
	s.router.Use(chimiddleware.Recoverer)

	// === Services and handlers ===
	// The handlers never touch the database directly.
	// The services never touch HTTP. Clean separation!
	authService := service.NewAuthService(s.db, passwords, tokens, s.logger)
	noteService := service.NewNoteService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, cfg.TokenHeader, s.logger)
	noteHandler := handler.NewNoteHandler(noteService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	gate := auth.RequireAuth(tokens, auth.NewResolver(s.db), gateOpts)

	// === Public routes ===
	s.router.Get("/", handler.HandleRoot)
	s.router.Get("/healthz", healthHandler.HandleHealth)
	if cfg.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Post("/login", authHandler.HandleLogin)
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
	})

	// === Protected routes ===
	s.router.Group(func(r chi.Router) {
		r.Use(gate)

		r.Route("/notes", func(r chi.Router) {
			r.Post("/", noteHandler.HandleCreate)
			r.Get("/", noteHandler.HandleList)
			r.Get("/search", noteHandler.HandleSearch)
			r.Get("/{id}", noteHandler.HandleGet)
			r.Put("/{id}", noteHandler.HandleUpdate)
			r.Delete("/{id}", noteHandler.HandleDelete)
		})
		r.Get("/search", noteHandler.HandleSearch)
	})

	return nil
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database connection. Start does this itself on
// shutdown; Close is for callers that never call Start (tests).
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait up to SHUTDOWN_TIMEOUT for in-flight requests to finish
// 3. Close the database connection
//
// Step 3 is a defer, so it runs last and runs even on a startup error.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("driver", s.config.DBDriver),
			slog.Bool("metrics", s.config.MetricsEnabled),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
