package api

import (
	"alcyxob/workout-recommender/internal/domain"
	"alcyxob/workout-recommender/internal/service"
	"alcyxob/workout-recommender/internal/textenc"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExerciseHandler holds the exercise service dependency.
type ExerciseHandler struct {
	exerciseService service.ExerciseService
}

// NewExerciseHandler creates a new ExerciseHandler.
func NewExerciseHandler(exerciseService service.ExerciseService) *ExerciseHandler {
	return &ExerciseHandler{exerciseService: exerciseService}
}

// --- DTOs for API (Data Transfer Objects) ---

// ExerciseResponse is the DTO for returning exercise details.
type ExerciseResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	CategoryLabel string   `json:"categoryLabel"`
	MuscleGroups  []string `json:"muscleGroups"`
	Equipment     string   `json:"equipment,omitempty"`
	Instructions  string   `json:"instructions,omitempty"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	Difficulty    int      `json:"difficulty"`
	Popularity    int      `json:"popularity"`
	Tier          string   `json:"tier,omitempty"`
	IsBasic       bool     `json:"isBasic"`
	Compound      bool     `json:"compound"`
	Indexed       bool     `json:"indexed"`
}

// MapExerciseToResponse converts an exercise view to ExerciseResponse DTO.
func MapExerciseToResponse(v *service.ExerciseView) ExerciseResponse {
	if v == nil {
		return ExerciseResponse{}
	}
	muscles := make([]string, len(v.MuscleGroups))
	for i, mg := range v.MuscleGroups {
		muscles[i] = string(mg)
	}
	return ExerciseResponse{
		ID:            v.ID.Hex(),
		Name:          v.Name,
		Category:      string(v.Category),
		CategoryLabel: textenc.CategoryLabel(v.Category),
		MuscleGroups:  muscles,
		Equipment:     string(v.Equipment),
		Instructions:  v.Instructions,
		ImageURL:      v.ImageURL,
		Difficulty:    v.Difficulty,
		Popularity:    v.Popularity,
		Tier:          string(v.Tier),
		IsBasic:       v.IsBasic,
		Compound:      service.IsCompound(&v.Exercise),
		Indexed:       v.VectorID != "",
	}
}

// MapExercisesToResponse converts a slice of exercise views to a slice of ExerciseResponse DTO.
func MapExercisesToResponse(views []service.ExerciseView) []ExerciseResponse {
	responses := make([]ExerciseResponse, len(views))
	for i := range views {
		responses[i] = MapExerciseToResponse(&views[i])
	}
	return responses
}

// ExerciseMatchResponse is returned by the name lookup.
type ExerciseMatchResponse struct {
	Exercise   ExerciseResponse `json:"exercise"`
	Distance   int              `json:"distance"`
	Normalized string           `json:"normalized"`
}

// --- Handler Methods ---

// GetExercise godoc
// @Summary Get an exercise
// @Description Returns one catalog exercise with a temporary image link.
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exercise ID"
// @Success 200 {object} ExerciseResponse
// @Failure 400 {object} gin.H "Invalid exercise ID"
// @Failure 404 {object} gin.H "Exercise not found"
// @Router /exercises/{id} [get]
func (h *ExerciseHandler) GetExercise(c *gin.Context) {
	exerciseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid exercise ID format")
		return
	}

	view, err := h.exerciseService.GetExercise(c.Request.Context(), exerciseID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapExerciseToResponse(view))
}

// MatchExercise godoc
// @Summary Find an exercise by name
// @Description Matches a free-text name against the catalog, tolerating spelling variants and small typos.
// @Tags Exercises
// @Produce json
// @Security BearerAuth
// @Param name query string true "Exercise name"
// @Success 200 {object} ExerciseMatchResponse
// @Failure 400 {object} gin.H "Missing name"
// @Failure 404 {object} gin.H "No close match"
// @Router /exercises/match [get]
func (h *ExerciseHandler) MatchExercise(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		abortWithError(c, http.StatusBadRequest, "Query parameter 'name' is required")
		return
	}

	match, err := h.exerciseService.MatchExerciseByName(c.Request.Context(), name)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ExerciseMatchResponse{
		Exercise:   MapExerciseToResponse(&match.Exercise),
		Distance:   match.Distance,
		Normalized: match.Normalized,
	})
}

func muscleGroupsFromStrings(in []string) []domain.MuscleGroup {
	out := make([]domain.MuscleGroup, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, domain.MuscleGroup(s))
		}
	}
	return out
}
