// Package main runs one classification batch: unclassified reports are
// linked to existing issues or mint new ones, department- and
// category-scoped within the merge radius. Intended to be triggered
// externally (cron or a job runner), not to run continuously.
package main

import (
	"context"
	"time"

	"github.com/civicpulse/issue-server/internal/config"
	"github.com/civicpulse/issue-server/internal/database"
	"github.com/civicpulse/issue-server/internal/services"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPool(cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	classifier := services.NewClassifier(db, services.KeywordLabeler{}, cfg.ClassifyBatchSize, cfg.MergeRadiusMeters, sugar)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	classified, err := classifier.Run(ctx)
	if err != nil {
		sugar.Fatalf("Classification batch failed: %v", err)
	}

	sugar.Infow("Classification batch complete", "classified", classified)
}
