// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: New opens the database and wires
// repository → service → handler, setupRoutes attaches them to chi, and
// Start runs the listener until its context is cancelled.
//
// ROUTES:
//
//	GET    /healthz                               liveness + database ping
//	GET    /seed?secret=                          idempotent demo data
//	POST   /webhooks/identity                     signed user sync events
//	GET    /api/recommendations/latest?count=N    public feed
//	GET    /api/recommendations?genre=&mine=      dashboard (identity optional)
//	POST   /api/recommendations                   create          (identity required)
//	DELETE /api/recommendations/{id}              delete          (identity required)
//	POST   /api/recommendations/{id}/staff-pick   set staff pick  (identity required)
//	GET    /api/me                                caller's record (identity required)
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/hypeshelf/internal/auth"
	"github.com/sakif/hypeshelf/internal/config"
	"github.com/sakif/hypeshelf/internal/handler"
	"github.com/sakif/hypeshelf/internal/middleware"
	sqliteRepo "github.com/sakif/hypeshelf/internal/repository/sqlite"
	"github.com/sakif/hypeshelf/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and closes it when Start returns,
// or in Close when Start is never called.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server from cfg.
//
// It fails when the session token secret is missing or too short: without it
// no request could ever be authenticated.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenVerifier(cfg.Auth.TokenSecret, cfg.Auth.Issuer)
	if err != nil {
		return nil, fmt.Errorf("configuring session tokens: %w", err)
	}

	var webhooks handler.WebhookVerifier
	if cfg.Webhook.Secret != "" {
		v, err := auth.NewWebhookVerifier(cfg.Webhook.Secret)
		if err != nil {
			return nil, fmt.Errorf("configuring webhook secret: %w", err)
		}
		webhooks = v
	} else {
		logger.Warn("webhook.secret not set, identity sync events will be refused")
	}

	db, err := OpenDatabase(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(tokens, webhooks)

	return s, nil
}

// OpenDatabase creates the parent directory of path when needed and opens
// the SQLite store.
func OpenDatabase(path string) (*sqliteRepo.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// Handler returns the fully wired router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Only needed when Start was never called.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER:
// RequestID runs first so the logger can print it; RealIP runs before the
// rate limiter so clients behind a proxy are keyed by their own address.
func (s *Server) setupRoutes(tokens auth.Verifier, webhooks handler.WebhookVerifier) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(middleware.CORSOptions{AllowedOrigins: s.config.CORS.AllowedOrigins}))

	feed := service.NewFeedCache(s.config.Feed.CacheSize, s.config.Feed.CacheTTL)
	userService := service.NewUserService(s.db, s.logger)
	recService := service.NewRecommendationService(s.db, userService, feed, s.logger)
	seedService := service.NewSeedService(s.db, feed, s.logger)

	recHandler := handler.NewRecommendationHandler(recService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	webhookHandler := handler.NewWebhookHandler(webhooks, userService, s.logger)
	seedHandler := handler.NewSeedHandler(seedService, auth.NewSecretHasher(), s.config.Seed.SecretHash, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Get("/seed", seedHandler.HandleSeed)
	s.router.Post("/webhooks/identity", webhookHandler.HandleIdentityEvent)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(s.config.RateLimit.Requests, s.config.RateLimit.Window))

		r.Get("/recommendations/latest", recHandler.HandleLatest)
		r.With(auth.OptionalIdentity(tokens)).Get("/recommendations", recHandler.HandleList)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireIdentity(tokens, s.logger))

			r.Post("/recommendations", recHandler.HandleCreate)
			r.Delete("/recommendations/{id}", recHandler.HandleDelete)
			r.Post("/recommendations/{id}/staff-pick", recHandler.HandleStaffPick)
			r.Get("/me", userHandler.HandleMe)
		})
	})
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait up to server.shutdown_timeout for in-flight requests
//  3. Close the database (flushes WAL, releases the file lock)
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("database", s.config.Database.Path),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}
