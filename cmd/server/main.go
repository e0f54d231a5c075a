package main

import (
	"alcyxob/workout-recommender/internal/api"
	"alcyxob/workout-recommender/internal/app"
	"alcyxob/workout-recommender/internal/config"
	"alcyxob/workout-recommender/internal/logger"
	"alcyxob/workout-recommender/internal/repository/mongo"
	"alcyxob/workout-recommender/internal/service"
	"alcyxob/workout-recommender/internal/storage"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// @title Workout Recommender API
// @version 1.0
// @description Recovery-aware exercise recommendations backed by semantic search over the exercise catalog.
// @contact.name API Support
// @contact.email support@example.com
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	appLogger, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("FATAL: Could not build logger: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info("Starting Workout Recommender Server...", "address", cfg.Server.Address, "vector_enabled", cfg.VectorEnabled())

	if cfg.JWT.Secret == "" {
		appLogger.Fatal("jwt.secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(ctx, cfg.Database.URI)
	if err != nil {
		appLogger.Fatal("Could not connect to MongoDB", "error", err)
	}
	defer func() {
		appLogger.Info("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			appLogger.Error("Failed to disconnect MongoDB", "error", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	appLogger.Info("Database connection established.", "database", cfg.Database.Name)

	// --- Ensure Indexes ---
	go func() {
		indexCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := mongo.EnsureIndexes(indexCtx, appDB); err != nil {
			appLogger.Error("Index creation finished with errors", "error", err)
			return
		}
		appLogger.Info("Index creation process completed.")
	}()

	// --- Initialize Storage ---
	var images storage.ImageStorage
	if cfg.S3.BucketName != "" {
		images, err = storage.NewS3Storage(ctx, appLogger, cfg.S3)
		if err != nil {
			appLogger.Fatal("Failed to initialize S3 storage", "error", err)
		}
	} else {
		appLogger.Warn("s3.bucket_name not set, exercise image links disabled")
	}

	// --- Vector Stack ---
	vectors, err := app.NewVectorStack(ctx, appLogger, cfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize vector stack", "error", err)
	}
	defer vectors.Close()

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)
	sessionRepo := mongo.NewMongoWorkoutSessionRepository(appDB)
	recoveryRepo := mongo.NewMongoRecoveryRepository(appDB)
	activityRepo := mongo.NewMongoRecoveryActivityRepository(appDB)

	// --- Initialize Services ---
	// Interfaces stay nil when the vector stack is off so the services see a disabled path.
	var embedder = vectors.Embedder
	var index service.VectorIndex
	if vectors.Index != nil {
		index = vectors.Index
	}

	recoveryService := service.NewRecoveryService(appLogger, userRepo, recoveryRepo, activityRepo, exerciseRepo)
	exerciseService := service.NewExerciseService(appLogger, exerciseRepo, images)
	indexingService := service.NewIndexingService(appLogger, exerciseRepo, embedder, index)
	recommendationService := service.NewRecommendationService(appLogger, service.RecommendationConfig{
		DefaultLimit:     cfg.Recommendation.DefaultLimit,
		MaxLimit:         cfg.Recommendation.MaxLimit,
		SearchMultiplier: cfg.Recommendation.SearchMultiplier,
		MinScore:         cfg.Recommendation.MinScore,
		VectorTimeout:    cfg.Recommendation.VectorTimeout,
		MinVectorBudget:  cfg.Recommendation.MinVectorBudget,
		BreakerFailures:  cfg.Recommendation.BreakerFailures,
		BreakerCooldown:  cfg.Recommendation.BreakerCooldown,
	}, userRepo, exerciseRepo, sessionRepo, recoveryService, embedder, index)

	indexOpts := service.IndexOptions{
		Concurrency:   cfg.Reindex.Concurrency,
		RatePerSecond: cfg.Reindex.RatePerSecond,
		Timeout:       cfg.Reindex.Timeout,
	}
	if cfg.Reindex.OnStartup && vectors.Enabled() {
		go func() {
			summary, err := indexingService.IndexCatalog(ctx, indexOpts)
			if err != nil {
				appLogger.Error("Startup catalog indexing failed", "error", err)
				return
			}
			appLogger.Info("Startup catalog indexing finished",
				"total", summary.Total, "indexed", summary.Indexed, "skipped", summary.Skipped,
				"failed", summary.Failed, "duration", summary.Duration.String())
		}()
	}

	// --- Initialize Gin Engine ---
	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	api.SetupRoutes(router, appLogger, api.RouteOptions{
		JWTSecret:      cfg.JWT.Secret,
		RequestTimeout: cfg.Server.RequestTimeout,
		IndexOptions:   indexOpts,
	}, api.Services{
		Recommendation: recommendationService,
		Recovery:       recoveryService,
		Exercise:       exerciseService,
		Indexing:       indexingService,
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		appLogger.Info("Server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("ListenAndServe error", "error", err)
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	appLogger.Info("Server exiting.")
}
