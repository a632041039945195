// Package main is the entry point for the citizen issue-reporting server.
// Citizens submit geolocated reports with photo evidence; a batch classifier
// (cmd/classify) merges reports into canonical issues; department-scoped
// authorities triage and resolve them.
//
// Architecture:
//   - PostgreSQL with PostGIS for the spatial issue/report index and
//     pgvector for upload embeddings
//   - Cloudinary as the out-of-band evidence store
//   - JWT bearer auth with a typed principal (citizen | authority | higher)
//   - Redis-backed per-IP rate limiting
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/civicpulse/issue-server/internal/auth"
	"github.com/civicpulse/issue-server/internal/config"
	"github.com/civicpulse/issue-server/internal/database"
	"github.com/civicpulse/issue-server/internal/handlers"
	"github.com/civicpulse/issue-server/internal/middleware"
	"github.com/civicpulse/issue-server/internal/services"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load config: %v", err)
	}

	sugar.Infow("Starting issue-reporting server",
		"port", cfg.Port,
		"env", cfg.Environment,
	)

	// Initialize database connection pool and schema
	db, err := database.NewPool(cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Init(ctx, db); err != nil {
		cancel()
		sugar.Fatalf("Failed to initialize schema: %v", err)
	}
	cancel()

	// Redis is optional: the rate limiter fails open without it.
	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		sugar.Warnw("Redis unavailable, rate limiting disabled", "error", err)
		rdb = nil
	}

	// Evidence object store
	store, err := services.NewCloudinaryStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		sugar.Fatalf("Failed to initialize object store: %v", err)
	}

	// Initialize services
	tokens := auth.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret)
	authSvc := services.NewAuthService(db, tokens, sugar)
	authoritySvc := services.NewAuthorityService(db, tokens, sugar)
	reportSvc := services.NewReportService(db, store, sugar)
	issueSvc := services.NewIssueService(db, sugar)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authSvc, sugar)
	authorityHandler := handlers.NewAuthorityHandler(authoritySvc, sugar)
	reportHandler := handlers.NewReportHandler(reportSvc, sugar)
	issueHandler := handlers.NewIssueHandler(issueSvc, cfg.DefaultRadiusKm, cfg.DefaultPageSize, sugar)
	healthHandler := handlers.NewHealthHandler(db, sugar)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rate limiting
	r.Use(middleware.RateLimit(rdb, cfg.RateLimitRPM))

	requireAuth := middleware.RequireAuth(tokens)

	// Liveness
	r.Get("/", healthHandler.Welcome)
	r.Get("/health", healthHandler.Check)
	r.Get("/health/ready", healthHandler.Ready)

	// Citizen auth
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
	})

	// Authority accounts
	r.Route("/authority", func(r chi.Router) {
		r.Post("/login", authorityHandler.Login)
		r.With(requireAuth, middleware.RequireRole(auth.RoleHigher)).
			Post("/register-lower", authorityHandler.RegisterLower)
		r.With(requireAuth, middleware.RequireRole(auth.RoleAuthority)).
			Put("/update-profile", authorityHandler.UpdateProfile)
	})

	// Citizen reports
	r.Route("/reports", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", reportHandler.Submit)
		r.Get("/my-reports", reportHandler.MyReports)
		r.Get("/{id}", reportHandler.Get)
	})

	// Authority-facing issues
	r.Route("/issues", func(r chi.Router) {
		r.Use(requireAuth)
		r.With(middleware.RequireRole(auth.RoleAuthority)).Get("/nearby", issueHandler.Nearby)
		r.With(middleware.RequireRole(auth.RoleHigher)).Get("/department", issueHandler.Department)
		r.With(middleware.RequireRole(auth.RoleHigher, auth.RoleAuthority)).Put("/status", issueHandler.SetStatus)
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infof("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	sugar.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Fatalf("Forced shutdown: %v", err)
	}

	sugar.Info("Server stopped")
}
