package api

import (
	"alcyxob/workout-recommender/internal/repository"
	"alcyxob/workout-recommender/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondServiceError maps service sentinels to HTTP status codes.
// Anything unrecognized is a 500 with a generic message.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrExerciseNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidMuscleGroup),
		errors.Is(err, service.ErrInvalidWorkoutType),
		errors.Is(err, service.ErrInvalidActivity),
		errors.Is(err, service.ErrValidationFailed):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrConflict):
		abortWithError(c, http.StatusConflict, "The resource was modified concurrently, please retry")
	case errors.Is(err, service.ErrIndexUnavailable):
		abortWithError(c, http.StatusServiceUnavailable, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}
