package service

import (
	"alcyxob/workout-recommender/internal/domain"
	"alcyxob/workout-recommender/internal/embedding"
	"alcyxob/workout-recommender/internal/logger"
	"alcyxob/workout-recommender/internal/metrics"
	"alcyxob/workout-recommender/internal/repository"
	"alcyxob/workout-recommender/internal/textenc"
	"alcyxob/workout-recommender/internal/vectorindex"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	ErrIndexUnavailable     = errors.New("vector index is not configured")
	errEmbeddingUnavailable = errors.New("embedding provider unavailable")
)

// VectorIndex is the subset of the vector store client the indexer and recommender use.
type VectorIndex interface {
	VectorSearcher
	Upsert(ctx context.Context, exerciseID string, vector []float32, payload map[string]any) (string, error)
	Delete(ctx context.Context, pointID string) error
	DeleteByExerciseID(ctx context.Context, exerciseID string) error
}

// IndexOptions bounds a catalog re-index run. Zero values take the defaults.
type IndexOptions struct {
	Concurrency   int
	RatePerSecond float64 // Embedding calls per second
	Timeout       time.Duration
}

func (o IndexOptions) withDefaults() IndexOptions {
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.RatePerSecond <= 0 {
		o.RatePerSecond = 5
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Minute
	}
	return o
}

// IndexSummary reports a catalog re-index run.
type IndexSummary struct {
	Total    int           `json:"total"`
	Indexed  int           `json:"indexed"`
	Skipped  int           `json:"skipped"` // Already carried a vector pointer
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// --- Service Interface ---
type IndexingService interface {
	// Enabled reports whether an embedder and vector index are configured.
	Enabled() bool
	// IndexCatalog embeds and upserts every exercise without a vector pointer.
	// Per-item failures are counted, not returned. It is safe to interrupt and re-run.
	IndexCatalog(ctx context.Context, opts IndexOptions) (IndexSummary, error)
	ReindexExercise(ctx context.Context, exerciseID primitive.ObjectID) (string, error)
	UnindexExercise(ctx context.Context, exerciseID primitive.ObjectID) error
}

// --- Service Implementation ---

type indexingService struct {
	log          *logger.Logger
	exerciseRepo repository.ExerciseRepository
	embedder     embedding.Embedder
	index        VectorIndex
}

// NewIndexingService creates a new instance of indexingService.
func NewIndexingService(log *logger.Logger, exerciseRepo repository.ExerciseRepository, embedder embedding.Embedder, index VectorIndex) IndexingService {
	return &indexingService{
		log:          log.With("service", "IndexingService"),
		exerciseRepo: exerciseRepo,
		embedder:     embedder,
		index:        index,
	}
}

func (s *indexingService) Enabled() bool {
	return s.embedder != nil && s.index != nil
}

func (s *indexingService) IndexCatalog(ctx context.Context, opts IndexOptions) (IndexSummary, error) {
	if !s.Enabled() {
		return IndexSummary{}, ErrIndexUnavailable
	}
	opts = opts.withDefaults()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	exercises, err := s.exerciseRepo.GetAll(ctx)
	if err != nil {
		return IndexSummary{}, fmt.Errorf("load exercise catalog: %w", err)
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	var indexed, skipped, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)

	for i := range exercises {
		ex := &exercises[i]
		if ex.VectorID != "" {
			skipped.Add(1)
			metrics.ReindexItems.WithLabelValues(metrics.OutcomeSkipped).Inc()
			continue
		}
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				failed.Add(1)
				metrics.ReindexItems.WithLabelValues(metrics.OutcomeFailed).Inc()
				return nil
			}
			if _, err := s.indexOne(ctx, ex); err != nil {
				failed.Add(1)
				metrics.ReindexItems.WithLabelValues(metrics.OutcomeFailed).Inc()
				s.log.Warn("failed to index exercise", "exercise_id", ex.ID.Hex(), "name", ex.Name, "error", err)
				return nil
			}
			indexed.Add(1)
			metrics.ReindexItems.WithLabelValues(metrics.OutcomeIndexed).Inc()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	summary := IndexSummary{
		Total:    len(exercises),
		Indexed:  int(indexed.Load()),
		Skipped:  int(skipped.Load()),
		Failed:   int(failed.Load()),
		Duration: time.Since(start),
	}
	s.log.Info("catalog indexing finished",
		"total", summary.Total, "indexed", summary.Indexed, "skipped", summary.Skipped,
		"failed", summary.Failed, "duration", summary.Duration.String())
	return summary, nil
}

func (s *indexingService) ReindexExercise(ctx context.Context, exerciseID primitive.ObjectID) (string, error) {
	if s.embedder == nil || s.index == nil {
		return "", ErrIndexUnavailable
	}
	ex, err := s.getExercise(ctx, exerciseID)
	if err != nil {
		return "", err
	}
	if err := s.index.DeleteByExerciseID(ctx, ex.ID.Hex()); err != nil {
		return "", fmt.Errorf("delete existing vector: %w", err)
	}
	pointID, err := s.indexOne(ctx, ex)
	if err != nil {
		return "", err
	}
	s.log.Info("exercise reindexed", "exercise_id", ex.ID.Hex(), "point_id", pointID)
	return pointID, nil
}

func (s *indexingService) UnindexExercise(ctx context.Context, exerciseID primitive.ObjectID) error {
	if s.index == nil {
		return ErrIndexUnavailable
	}
	ex, err := s.getExercise(ctx, exerciseID)
	if err != nil {
		return err
	}
	if ex.VectorID != "" {
		err = s.index.Delete(ctx, ex.VectorID)
	} else {
		err = s.index.DeleteByExerciseID(ctx, ex.ID.Hex())
	}
	if err != nil {
		return fmt.Errorf("delete vector: %w", err)
	}
	if err := s.exerciseRepo.SetVectorID(ctx, ex.ID, ""); err != nil {
		return fmt.Errorf("clear vector pointer: %w", err)
	}
	return nil
}

// indexOne embeds ex, upserts its point and stores the pointer on the catalog row.
func (s *indexingService) indexOne(ctx context.Context, ex *domain.Exercise) (string, error) {
	res := s.embedder.Embed(ctx, textenc.ExerciseToText(ex))
	if res.Degraded {
		return "", errEmbeddingUnavailable
	}

	payload := map[string]any{
		vectorindex.PayloadName:     ex.Name,
		vectorindex.PayloadCategory: string(ex.Category),
	}
	if ex.Equipment != "" {
		payload[vectorindex.PayloadEquipment] = string(ex.Equipment)
	}

	pointID, err := s.index.Upsert(ctx, ex.ID.Hex(), res.Vector, payload)
	if err != nil {
		return "", fmt.Errorf("upsert vector: %w", err)
	}
	if err := s.exerciseRepo.SetVectorID(ctx, ex.ID, pointID); err != nil {
		return "", fmt.Errorf("save vector pointer: %w", err)
	}
	return pointID, nil
}

func (s *indexingService) getExercise(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	ex, err := s.exerciseRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, fmt.Errorf("load exercise: %w", err)
	}
	return ex, nil
}
