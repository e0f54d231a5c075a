package api

import (
	"alcyxob/workout-recommender/internal/domain"
	"alcyxob/workout-recommender/internal/service"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecoveryHandler exposes muscle recovery tracking.
type RecoveryHandler struct {
	recoveryService service.RecoveryService
}

// NewRecoveryHandler creates a new RecoveryHandler.
func NewRecoveryHandler(recoveryService service.RecoveryService) *RecoveryHandler {
	return &RecoveryHandler{recoveryService: recoveryService}
}

// --- DTOs ---

// CompleteWorkoutRequest marks muscles as trained, either directly or via catalog exercises.
type CompleteWorkoutRequest struct {
	MuscleGroups []string `json:"muscleGroups"`
	ExerciseIDs  []string `json:"exerciseIds"`
}

// ReportFeelingRequest is a self-reported muscle condition.
type ReportFeelingRequest struct {
	MuscleGroup string `json:"muscleGroup" binding:"required"`
	Feeling     int    `json:"feeling" binding:"required,min=1,max=10"`
	Soreness    *int   `json:"soreness" binding:"required,min=0,max=10"`
}

// RecordActivityRequest logs a recovery activity.
type RecordActivityRequest struct {
	Type        string     `json:"type" binding:"required"`
	Duration    int        `json:"duration" binding:"required,min=1"` // minutes
	Intensity   string     `json:"intensity"`
	BodyParts   []string   `json:"bodyParts"`
	Notes       string     `json:"notes"`
	PerformedAt *time.Time `json:"performedAt"`
}

// --- Handler Methods ---

// GetRecoveryStatus godoc
// @Summary Get recovery status
// @Description Returns the recovery state of every muscle group for the authenticated user.
// @Tags Recovery
// @Produce json
// @Security BearerAuth
// @Success 200 {array} service.MuscleRecoveryStatus
// @Failure 404 {object} gin.H "User not found"
// @Router /recovery [get]
func (h *RecoveryHandler) GetRecoveryStatus(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	statuses, err := h.recoveryService.GetRecoveryStatus(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, statuses)
}

// CompleteWorkout godoc
// @Summary Record a completed workout
// @Description Marks the given muscle groups, and those of the given exercises, as trained now.
// @Tags Recovery
// @Accept json
// @Security BearerAuth
// @Param workout body CompleteWorkoutRequest true "Trained muscles or exercises"
// @Success 204 "Recovery updated"
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "User or exercise not found"
// @Router /recovery/workouts [post]
func (h *RecoveryHandler) CompleteWorkout(c *gin.Context) {
	var req CompleteWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if len(req.MuscleGroups) == 0 && len(req.ExerciseIDs) == 0 {
		abortWithError(c, http.StatusBadRequest, "muscleGroups or exerciseIds is required")
		return
	}

	exerciseIDs := make([]primitive.ObjectID, 0, len(req.ExerciseIDs))
	for _, raw := range req.ExerciseIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid exercise ID format: "+raw)
			return
		}
		exerciseIDs = append(exerciseIDs, id)
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	ctx := c.Request.Context()
	if len(req.MuscleGroups) > 0 {
		if err := h.recoveryService.UpdateAfterWorkout(ctx, userID, muscleGroupsFromStrings(req.MuscleGroups)); err != nil {
			respondServiceError(c, err)
			return
		}
	}
	if len(exerciseIDs) > 0 {
		if err := h.recoveryService.UpdateAfterExercises(ctx, userID, exerciseIDs); err != nil {
			respondServiceError(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

// ReportFeeling godoc
// @Summary Report how a muscle feels
// @Tags Recovery
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param feeling body ReportFeelingRequest true "Feeling (1-10) and soreness (0-10)"
// @Success 200 {object} service.MuscleRecoveryStatus
// @Failure 400 {object} gin.H "Invalid input"
// @Router /recovery/feelings [post]
func (h *RecoveryHandler) ReportFeeling(c *gin.Context) {
	var req ReportFeelingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	mg := domain.MuscleGroup(strings.ToLower(strings.TrimSpace(req.MuscleGroup)))
	status, err := h.recoveryService.ReportFeeling(c.Request.Context(), userID, mg, req.Feeling, *req.Soreness)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// RecordActivity godoc
// @Summary Log a recovery activity
// @Description Logs stretching, foam rolling, massage, cold bath, sauna or sleep and boosts recovery of the given body parts.
// @Tags Recovery
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param activity body RecordActivityRequest true "Activity details"
// @Success 201 {object} service.RecordActivityResult
// @Failure 400 {object} gin.H "Invalid input"
// @Router /recovery/activities [post]
func (h *RecoveryHandler) RecordActivity(c *gin.Context) {
	var req RecordActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	in := service.RecordActivityInput{
		Type:            domain.RecoveryActivityType(strings.ToUpper(strings.TrimSpace(req.Type))),
		DurationMinutes: req.Duration,
		Intensity:       domain.Intensity(strings.ToUpper(strings.TrimSpace(req.Intensity))),
		BodyParts:       muscleGroupsFromStrings(req.BodyParts),
		Notes:           req.Notes,
	}
	if req.PerformedAt != nil {
		in.PerformedAt = req.PerformedAt.UTC()
	}

	result, err := h.recoveryService.RecordActivity(c.Request.Context(), userID, in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ListActivities godoc
// @Summary List recent recovery activities
// @Tags Recovery
// @Produce json
// @Security BearerAuth
// @Param days query int false "Look-back window in days (default 7)"
// @Success 200 {array} domain.RecoveryActivity
// @Failure 400 {object} gin.H "Invalid days"
// @Router /recovery/activities [get]
func (h *RecoveryHandler) ListActivities(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 90 {
			abortWithError(c, http.StatusBadRequest, "Query parameter 'days' must be between 1 and 90")
			return
		}
		days = n
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	activities, err := h.recoveryService.RecentActivities(c.Request.Context(), userID, days)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, activities)
}
