package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kramikkk/vitalink-ai/internal/config"
	"github.com/kramikkk/vitalink-ai/internal/db"
	"github.com/kramikkk/vitalink-ai/internal/logger"
	"github.com/kramikkk/vitalink-ai/internal/repos"
	"github.com/kramikkk/vitalink-ai/internal/services"
)

// Offline training entrypoint: fits a new model generation from the stored
// metric corpus and exits. The running server picks the new generation up on
// its next prediction.
func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := config.Load(log)

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	metricRepo := repos.NewMetricRepo(thePG, log)
	artifactRepo := repos.NewModelArtifactRepo(thePG, log)
	inferenceService := services.NewInferenceService(thePG, log, artifactRepo, cfg)
	trainingService := services.NewTrainingService(thePG, log, metricRepo, artifactRepo, inferenceService, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	report, err := trainingService.Train(ctx)
	if err != nil {
		log.Fatal("Training failed", "error", err)
	}
	fmt.Printf("Trained generation %d from %d samples (%d discarded) at %s\n",
		report.Generation, report.Samples, report.Discarded, report.TrainedAt.Format(time.RFC3339))
}
