package service

import (
	"alcyxob/workout-recommender/internal/domain"
	"alcyxob/workout-recommender/internal/logger"
	"alcyxob/workout-recommender/internal/normalizer"
	"alcyxob/workout-recommender/internal/repository"
	"alcyxob/workout-recommender/internal/storage"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrValidationFailed = errors.New("validation failed")
)

// ExerciseView is a catalog exercise with a temporary image link.
type ExerciseView struct {
	domain.Exercise
	ImageURL string `json:"imageUrl,omitempty"`
}

// ExerciseMatch is the result of a fuzzy name lookup.
type ExerciseMatch struct {
	Exercise   ExerciseView `json:"exercise"`
	Distance   int          `json:"distance"`
	Normalized string       `json:"normalized"`
}

// --- Service Interface ---
type ExerciseService interface {
	GetExercise(ctx context.Context, exerciseID primitive.ObjectID) (*ExerciseView, error)
	// MatchExerciseByName returns the catalog exercise whose normalized name is
	// closest to name, if it is within normalizer.DefaultThreshold edits.
	MatchExerciseByName(ctx context.Context, name string) (*ExerciseMatch, error)
	// Views attaches image links to exercises, keeping their order.
	Views(ctx context.Context, exercises []domain.Exercise) []ExerciseView
}

// --- Service Implementation ---

// exerciseService implements the ExerciseService interface.
type exerciseService struct {
	log          *logger.Logger
	exerciseRepo repository.ExerciseRepository
	images       storage.ImageStorage // nil disables image links
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(log *logger.Logger, exerciseRepo repository.ExerciseRepository, images storage.ImageStorage) ExerciseService {
	return &exerciseService{
		log:          log.With("service", "ExerciseService"),
		exerciseRepo: exerciseRepo,
		images:       images,
	}
}

func (s *exerciseService) GetExercise(ctx context.Context, exerciseID primitive.ObjectID) (*ExerciseView, error) {
	exercise, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err // Propagate other repository errors
	}
	view := s.view(ctx, exercise)
	return &view, nil
}

func (s *exerciseService) MatchExerciseByName(ctx context.Context, name string) (*ExerciseMatch, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidationFailed)
	}

	exercises, err := s.exerciseRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load exercise catalog: %w", err)
	}

	// First exercise wins when several share a name.
	byName := make(map[string]*domain.Exercise, len(exercises))
	names := make([]string, 0, len(exercises))
	for i := range exercises {
		if _, dup := byName[exercises[i].Name]; dup {
			continue
		}
		byName[exercises[i].Name] = &exercises[i]
		names = append(names, exercises[i].Name)
	}

	// A stored spelling of the query wins before any fuzzy match.
	for _, v := range normalizer.GenerateVariations(name) {
		if ex, ok := byName[v]; ok {
			s.log.Debug("exercise name matched", "query", name, "match", ex.Name, "variation", v)
			return &ExerciseMatch{
				Exercise:   s.view(ctx, ex),
				Distance:   0,
				Normalized: normalizer.Normalize(name),
			}, nil
		}
	}

	best, ok := normalizer.FindBestMatch(name, names)
	if !ok || best.Distance > normalizer.DefaultThreshold {
		return nil, ErrExerciseNotFound
	}
	s.log.Debug("exercise name matched", "query", name, "match", best.Candidate, "distance", best.Distance)

	return &ExerciseMatch{
		Exercise:   s.view(ctx, byName[best.Candidate]),
		Distance:   best.Distance,
		Normalized: normalizer.Normalize(name),
	}, nil
}

func (s *exerciseService) Views(ctx context.Context, exercises []domain.Exercise) []ExerciseView {
	out := make([]ExerciseView, len(exercises))
	for i := range exercises {
		out[i] = s.view(ctx, &exercises[i])
	}
	return out
}

// view never fails: a missing image link is logged and left empty.
func (s *exerciseService) view(ctx context.Context, ex *domain.Exercise) ExerciseView {
	v := ExerciseView{Exercise: *ex}
	if s.images == nil || ex.ImageKey == "" {
		return v
	}
	url, err := s.images.GeneratePresignedDownloadURL(ctx, ex.ImageKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		s.log.Warn("failed to presign exercise image", "exercise_id", ex.ID.Hex(), "error", err)
		return v
	}
	v.ImageURL = url
	return v
}
