// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects the store, services,
// handlers and middleware, and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → OpenStore → repository.Store
//	Store → AuthService, PostService, Authenticator
//	Services → AuthHandler, PostHandler
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/routes), rather than scattered across the codebase.
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
	"github.com/go-chi/cors"

	"github.com/sakif/inkpost/internal/auth"
	"github.com/sakif/inkpost/internal/config"
	"github.com/sakif/inkpost/internal/handler"
	"github.com/sakif/inkpost/internal/middleware"
	"github.com/sakif/inkpost/internal/repository"
	"github.com/sakif/inkpost/internal/repository/mongodb"
	sqliteRepo "github.com/sakif/inkpost/internal/repository/sqlite"
	"github.com/sakif/inkpost/internal/service"
)

// shutdownGrace is how long in-flight requests get to finish on SIGINT/SIGTERM.
const shutdownGrace = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store. Start closes it after the HTTP server has
// drained, so no request ever sees a closed connection.
type Server struct {
	router chi.Router
	config config.Config
	logger *slog.Logger
	store  repository.Store
}

// OpenStore connects to the backend named by cfg.Driver.
//
// IMPORT ALIAS:
// repository/sqlite is imported as `sqliteRepo` so it can't be confused
// with the modernc.org/sqlite driver it wraps.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if cfg.SQLitePath != ":memory:" {
			// Like `mkdir -p`: the data directory may not exist on a fresh checkout.
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("server: creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverMongo:
		st, err := mongodb.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("server: unknown store driver %q", cfg.Driver)
	}
}

// New creates a Server around an already opened store.
//
// WIRING:
//  1. token + password services from the auth config
//  2. business services on top of the store's repository interfaces
//  3. handlers on top of the services
//  4. routes and middleware
//
// Each layer only receives what it needs: services get repository
// interfaces (not the concrete store), handlers get services.
func New(cfg config.Config, store repository.Store, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	passwords, err := auth.NewPasswordService(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}
	s.routes(tokens, passwords)
	return s, nil
}

// routes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /health                → liveness + store ping
// GET    /metrics               → Prometheus exposition
// POST   /api/auth/register     → create account       (rate limited)
// POST   /api/auth/login        → sign in              (rate limited)
// GET    /api/auth/me           → current user         (auth)
// GET    /api/posts             → list posts
// GET    /api/posts/{id}        → get one post
// POST   /api/posts             → create post          (auth)
// PUT    /api/posts/{id}        → update post          (auth + owner)
// DELETE /api/posts/{id}        → delete post          (auth + owner)
//
// MIDDLEWARE ORDER MATTERS:
// RequestID first so every later log line can carry the id, RealIP before
// anything that looks at the client address (the rate limiter), Recoverer
// innermost of the global chain so a panic still gets logged and counted.
func (s *Server) routes(tokens *auth.TokenService, passwords *auth.PasswordService) {
	metrics := middleware.NewMetrics()

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(metrics.Handler)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	authService := service.NewAuthService(s.store, tokens, passwords, s.logger)
	postService := service.NewPostService(s.store, s.store, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	postHandler := handler.NewPostHandler(postService, s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	// Rejections from RequireAuth are rendered by the same function as every
	// handler error, so clients see one error shape.
	requireAuth := auth.RequireAuth(auth.NewAuthenticator(tokens, s.store), handler.WriteError)
	throttle := middleware.NewRateLimiter(s.config.RateLimit.RPS, s.config.RateLimit.Burst)

	s.router.Get("/health", healthHandler.HandleHealth)
	s.router.Handle("/metrics", metrics.Exposition())

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(throttle.Handler).Post("/register", authHandler.HandleRegister)
			r.With(throttle.Handler).Post("/login", authHandler.HandleLogin)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postHandler.HandleList)
			r.Get("/{id}", postHandler.HandleGetByID)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", postHandler.HandleCreate)
				r.Put("/{id}", postHandler.HandleUpdate)
				r.Delete("/{id}", postHandler.HandleDelete)
			})
		})
	})
}

// Handler exposes the fully wired router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the store
//
// The `defer s.store.Close()` makes step 3 happen on every return path.
func (s *Server) Start() error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("store", s.config.Store.Driver),
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

		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
