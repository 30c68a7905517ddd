// Command sweeper runs one expiry sweep and exits. It is meant for cron
// deployments that do not run the sweeper inside the API server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/anonto42/nearby/backend/internal/observability"
	"github.com/anonto42/nearby/backend/internal/repositories"
	"github.com/anonto42/nearby/backend/internal/services"
	"github.com/anonto42/nearby/backend/internal/storage"
	"github.com/anonto42/nearby/backend/pkg/config"
	"github.com/anonto42/nearby/backend/pkg/firebase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := observability.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseStorageBucket)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}
	images := storage.NewImageStore(storage.NewBucketBackend(firebaseApp.Bucket), firebaseApp.BucketName, storage.DefaultMaxUploadSizeMB)

	sweeper := services.NewSweeper(
		repositories.NewMongoPostRepository(db.Database()),
		repositories.NewMongoCommentRepository(db.Database()),
		images,
		cfg.SweepInterval,
		cfg.SweepBatchSize,
		logger,
	)

	removed, err := sweeper.SweepOnce(ctx)
	if err != nil {
		logger.Error("sweep failed", "removed", removed, "error", err)
		os.Exit(1)
	}
	logger.Info("sweep finished", "removed", removed)
}
