package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/nearby/backend/internal/observability"
	"github.com/anonto42/nearby/backend/internal/router"
	"github.com/anonto42/nearby/backend/internal/storage"
	"github.com/anonto42/nearby/backend/internal/validators"
	"github.com/anonto42/nearby/backend/pkg/config"
	"github.com/anonto42/nearby/backend/pkg/firebase"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := observability.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	// Initialize Firebase
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseStorageBucket)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	config.SetupMiddleware(e, cfg, logger)

	background, err := router.SetupRoutes(ctx, e, router.Dependencies{
		Config:   cfg,
		Postgres: db.Postgres,
		Mongo:    db.Database(),
		Redis:    db.Redis,
		Identity: firebaseApp.AuthClient,
		Images:   storage.NewBucketBackend(firebaseApp.Bucket),
		Bucket:   firebaseApp.BucketName,
		Logger:   logger,
	})
	if err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}
	background.Start(ctx)

	if cfg.MetricsPort != "" && cfg.MetricsPort != cfg.Port {
		metrics := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer metrics.Close()
	}

	// Start server
	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	background.Wait()
}
