// Command reindex embeds the exercise catalog into the vector index and prints a summary.
package main

import (
	"alcyxob/workout-recommender/internal/app"
	"alcyxob/workout-recommender/internal/config"
	"alcyxob/workout-recommender/internal/logger"
	"alcyxob/workout-recommender/internal/repository/mongo"
	"alcyxob/workout-recommender/internal/service"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	exerciseID := flag.String("exercise", "", "re-index a single exercise by ID instead of the whole catalog")
	concurrency := flag.Int("concurrency", 0, "parallel workers (0 uses reindex.concurrency)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	appLogger, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("FATAL: Could not build logger: %v", err)
	}
	defer appLogger.Sync()

	if err := run(appLogger, cfg, *exerciseID, *concurrency); err != nil {
		appLogger.Error("reindex failed", "error", err)
		appLogger.Sync()
		os.Exit(1)
	}
}

func run(appLogger *logger.Logger, cfg config.Config, exerciseID string, concurrency int) error {
	if !cfg.VectorEnabled() {
		return fmt.Errorf("embedding.api_key and qdrant.url are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := mongo.ConnectDB(ctx, cfg.Database.URI)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	defer func() {
		if err := mongo.DisconnectDB(dbClient); err != nil {
			appLogger.Error("Failed to disconnect MongoDB", "error", err)
		}
	}()
	exerciseRepo := mongo.NewMongoExerciseRepository(dbClient.Database(cfg.Database.Name))

	vectors, err := app.NewVectorStack(ctx, appLogger, cfg)
	if err != nil {
		return err
	}
	defer vectors.Close()

	indexingService := service.NewIndexingService(appLogger, exerciseRepo, vectors.Embedder, vectors.Index)

	if exerciseID != "" {
		id, err := primitive.ObjectIDFromHex(exerciseID)
		if err != nil {
			return fmt.Errorf("invalid exercise id %q: %w", exerciseID, err)
		}
		vectorID, err := indexingService.ReindexExercise(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("exercise %s indexed as point %s\n", exerciseID, vectorID)
		return nil
	}

	opts := service.IndexOptions{
		Concurrency:   cfg.Reindex.Concurrency,
		RatePerSecond: cfg.Reindex.RatePerSecond,
		Timeout:       cfg.Reindex.Timeout,
	}
	if concurrency > 0 {
		opts.Concurrency = concurrency
	}
	summary, err := indexingService.IndexCatalog(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Printf("total=%d indexed=%d skipped=%d failed=%d duration=%s\n",
		summary.Total, summary.Indexed, summary.Skipped, summary.Failed, summary.Duration)
	if summary.Failed > 0 {
		return fmt.Errorf("%d exercises failed to index", summary.Failed)
	}
	return nil
}
