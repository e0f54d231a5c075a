package api

import (
	"alcyxob/workout-recommender/internal/domain" // Needed for RoleMiddleware
	"alcyxob/workout-recommender/internal/logger"
	"alcyxob/workout-recommender/internal/service"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services groups the services the HTTP layer depends on.
type Services struct {
	Recommendation service.RecommendationService
	Recovery       service.RecoveryService
	Exercise       service.ExerciseService
	Indexing       service.IndexingService
}

// RouteOptions carries the HTTP-level settings.
type RouteOptions struct {
	JWTSecret      string
	RequestTimeout time.Duration
	IndexOptions   service.IndexOptions
}

func SetupRoutes(router *gin.Engine, log *logger.Logger, opts RouteOptions, services Services) {
	recommendationHandler := NewRecommendationHandler(services.Recommendation, services.Exercise)
	recoveryHandler := NewRecoveryHandler(services.Recovery)
	exerciseHandler := NewExerciseHandler(services.Exercise)
	adminHandler := NewAdminHandler(log, services.Indexing, opts.IndexOptions)

	authMiddleware := AuthMiddleware(opts.JWTSecret)

	router.Use(RequestLogger(log))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := router.Group("/api/v1")
	protected := apiV1.Group("")
	protected.Use(authMiddleware, RequestTimeout(opts.RequestTimeout))
	{
		protected.GET("/me", func(c *gin.Context) {
			userID, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userID.Hex(), "role": role})
		})

		// GET /api/v1/recommendations
		protected.GET("/recommendations", recommendationHandler.GetRecommendations)

		// --- Recovery Routes ---
		recoveryGroup := protected.Group("/recovery")
		{
			recoveryGroup.GET("", recoveryHandler.GetRecoveryStatus)
			recoveryGroup.POST("/workouts", recoveryHandler.CompleteWorkout)
			recoveryGroup.POST("/feelings", recoveryHandler.ReportFeeling)
			recoveryGroup.POST("/activities", recoveryHandler.RecordActivity)
			recoveryGroup.GET("/activities", recoveryHandler.ListActivities)
		}

		// --- Exercise Routes ---
		exerciseGroup := protected.Group("/exercises")
		{
			exerciseGroup.GET("/match", exerciseHandler.MatchExercise)
			exerciseGroup.GET("/:id", exerciseHandler.GetExercise)
		}

		// --- Admin Routes ---
		adminGroup := protected.Group("/admin")
		adminGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			adminGroup.POST("/index", adminHandler.IndexCatalog)
			adminGroup.POST("/exercises/:id/index", adminHandler.ReindexExercise)
			adminGroup.DELETE("/exercises/:id/index", adminHandler.UnindexExercise)
		}
	}
}
