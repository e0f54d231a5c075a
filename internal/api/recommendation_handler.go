package api

import (
	"alcyxob/workout-recommender/internal/domain"
	"alcyxob/workout-recommender/internal/service"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RecommendationHandler serves exercise recommendations.
type RecommendationHandler struct {
	recommendationService service.RecommendationService
	exerciseService       service.ExerciseService
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(recommendationService service.RecommendationService, exerciseService service.ExerciseService) *RecommendationHandler {
	return &RecommendationHandler{
		recommendationService: recommendationService,
		exerciseService:       exerciseService,
	}
}

// RecommendationQuery defines the accepted query parameters.
type RecommendationQuery struct {
	Duration    int    `form:"duration" binding:"omitempty,min=1,max=300"`
	Target      string `form:"target"`
	Equipment   string `form:"equipment"`
	Difficulty  string `form:"difficulty"`
	WorkoutType string `form:"workoutType"`
	Limit       int    `form:"limit" binding:"omitempty,min=1"`
}

// RecommendationResponse is the DTO for a recommendation.
type RecommendationResponse struct {
	Exercises      []ExerciseResponse `json:"exercises"`
	Path           string             `json:"path"`
	FallbackReason string             `json:"fallbackReason,omitempty"`
	AvoidMuscles   []string           `json:"avoidMuscles"`
}

// GetRecommendations godoc
// @Summary Recommend exercises
// @Description Recommends exercises for the authenticated user, avoiding muscles that are still recovering.
// @Tags Recommendations
// @Produce json
// @Security BearerAuth
// @Param duration query int false "Session length in minutes"
// @Param target query string false "Target muscle group or region (upper, lower, legs, ...)"
// @Param equipment query string false "Required equipment"
// @Param difficulty query string false "Preferred difficulty"
// @Param workoutType query string false "Workout split (PUSH, PULL, LEGS, ...)"
// @Param limit query int false "Maximum number of exercises"
// @Success 200 {object} RecommendationResponse
// @Failure 400 {object} gin.H "Invalid query"
// @Failure 404 {object} gin.H "User not found"
// @Router /recommendations [get]
func (h *RecommendationHandler) GetRecommendations(c *gin.Context) {
	var q RecommendationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	rec, err := h.recommendationService.Recommend(c.Request.Context(), userID, service.RecommendationRequest{
		DurationMinutes: q.Duration,
		TargetMuscle:    q.Target,
		Equipment:       domain.Equipment(strings.ToLower(strings.TrimSpace(q.Equipment))),
		Difficulty:      q.Difficulty,
		WorkoutType:     domain.WorkoutType(strings.ToUpper(strings.TrimSpace(q.WorkoutType))),
		Limit:           q.Limit,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	avoid := make([]string, len(rec.AvoidMuscles))
	for i, mg := range rec.AvoidMuscles {
		avoid[i] = string(mg)
	}
	c.JSON(http.StatusOK, RecommendationResponse{
		Exercises:      MapExercisesToResponse(h.exerciseService.Views(c.Request.Context(), rec.Exercises)),
		Path:           rec.Path,
		FallbackReason: rec.FallbackReason,
		AvoidMuscles:   avoid,
	})
}
