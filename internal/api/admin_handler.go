package api

import (
	"alcyxob/workout-recommender/internal/logger"
	"alcyxob/workout-recommender/internal/service"
	"context"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminHandler exposes vector index maintenance to administrators.
type AdminHandler struct {
	log             *logger.Logger
	indexingService service.IndexingService
	indexOpts       service.IndexOptions
	indexing        atomic.Bool // a catalog run is in flight
}

// NewAdminHandler creates a new AdminHandler. opts bounds catalog re-index runs.
func NewAdminHandler(log *logger.Logger, indexingService service.IndexingService, opts service.IndexOptions) *AdminHandler {
	return &AdminHandler{
		log:             log.With("handler", "AdminHandler"),
		indexingService: indexingService,
		indexOpts:       opts,
	}
}

// IndexCatalog godoc
// @Summary Index the exercise catalog
// @Description Starts a background run that embeds and indexes every exercise that has no vector yet.
// @Description The run summary is logged; cmd/reindex runs the same job in the foreground.
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 202 {object} gin.H "Run started"
// @Failure 403 {object} gin.H "Admin role required"
// @Failure 409 {object} gin.H "A run is already in progress"
// @Failure 503 {object} gin.H "Vector index not configured"
// @Router /admin/index [post]
func (h *AdminHandler) IndexCatalog(c *gin.Context) {
	if !h.indexingService.Enabled() {
		respondServiceError(c, service.ErrIndexUnavailable)
		return
	}
	if !h.indexing.CompareAndSwap(false, true) {
		abortWithError(c, http.StatusConflict, "Catalog indexing is already running")
		return
	}

	// Detached from the request; opts.Timeout bounds the run.
	ctx := context.WithoutCancel(c.Request.Context())
	go func() {
		defer h.indexing.Store(false)
		summary, err := h.indexingService.IndexCatalog(ctx, h.indexOpts)
		if err != nil {
			h.log.Error("catalog indexing failed", "error", err)
			return
		}
		h.log.Info("catalog indexing finished",
			"total", summary.Total, "indexed", summary.Indexed, "skipped", summary.Skipped,
			"failed", summary.Failed, "duration", summary.Duration.String())
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

// ReindexExercise godoc
// @Summary Re-index one exercise
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Success 200 {object} gin.H "New vector ID"
// @Failure 400 {object} gin.H "Invalid exercise ID"
// @Failure 404 {object} gin.H "Exercise not found"
// @Router /admin/exercises/{id}/index [post]
func (h *AdminHandler) ReindexExercise(c *gin.Context) {
	exerciseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid exercise ID format")
		return
	}

	vectorID, err := h.indexingService.ReindexExercise(c.Request.Context(), exerciseID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exerciseId": exerciseID.Hex(), "vectorId": vectorID})
}

// UnindexExercise godoc
// @Summary Remove one exercise from the vector index
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Success 204 "Removed"
// @Failure 400 {object} gin.H "Invalid exercise ID"
// @Failure 404 {object} gin.H "Exercise not found"
// @Router /admin/exercises/{id}/index [delete]
func (h *AdminHandler) UnindexExercise(c *gin.Context) {
	exerciseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid exercise ID format")
		return
	}

	if err := h.indexingService.UnindexExercise(c.Request.Context(), exerciseID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
