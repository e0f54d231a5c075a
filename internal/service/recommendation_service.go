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
	"time"

	"github.com/sony/gobreaker/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidWorkoutType = errors.New("invalid workout type")
)

// Muscles trained within this window are not recommended again.
const recentTrainingWindow = 48 * time.Hour

const weeklyVolumeWindow = 7 * 24 * time.Hour

// Fallback reasons, used as metric labels.
const (
	FallbackVectorDisabled    = "vector_disabled"
	FallbackDeadline          = "deadline"
	FallbackEmbeddingDegraded = "embedding_degraded"
	FallbackBreakerOpen       = "breaker_open"
	FallbackSearchError       = "search_error"
	FallbackCatalogError      = "catalog_error"
	FallbackNoCandidates      = "no_candidates"
	FallbackSessionError      = "session_error"
)

// VectorSearcher runs similarity searches against the exercise index.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64, filter map[string]any) ([]vectorindex.Match, error)
}

// RecommendationConfig tunes the orchestrator. Zero values take the defaults.
type RecommendationConfig struct {
	DefaultLimit     int
	MaxLimit         int
	SearchMultiplier int
	MinScore         float64
	VectorTimeout    time.Duration // Budget for embed + search
	MinVectorBudget  time.Duration // Skip the vector path when less time remains
	BreakerFailures  uint32
	BreakerCooldown  time.Duration
}

func (c RecommendationConfig) withDefaults() RecommendationConfig {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 10
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 50
	}
	if c.SearchMultiplier <= 0 {
		c.SearchMultiplier = 3
	}
	if c.MinScore <= 0 {
		c.MinScore = 0.2
	}
	if c.VectorTimeout <= 0 {
		c.VectorTimeout = 3 * time.Second
	}
	if c.MinVectorBudget <= 0 {
		c.MinVectorBudget = 500 * time.Millisecond
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	return c
}

// RecommendationRequest holds the optional parameters of a recommendation.
type RecommendationRequest struct {
	DurationMinutes int
	TargetMuscle    string // A muscle group or a region such as "upper"; wins over WorkoutType
	Equipment       domain.Equipment
	Difficulty      string
	WorkoutType     domain.WorkoutType
	Limit           int
}

// Recommendation is the ordered result plus how it was produced.
type Recommendation struct {
	Exercises      []domain.Exercise    `json:"exercises"`
	Path           string               `json:"path"` // "vector" or "fallback"
	FallbackReason string               `json:"fallbackReason,omitempty"`
	AvoidMuscles   []domain.MuscleGroup `json:"avoidMuscles"`
}

// --- Service Interface ---
type RecommendationService interface {
	// Recommend never fails because of the vector path; it errors only on invalid
	// input, an unknown user, or a failure to read the user's own data.
	Recommend(ctx context.Context, userID primitive.ObjectID, req RecommendationRequest) (*Recommendation, error)
}

// --- Service Implementation ---

type recommendationService struct {
	log          *logger.Logger
	cfg          RecommendationConfig
	userRepo     repository.UserRepository
	exerciseRepo repository.ExerciseRepository
	sessionRepo  repository.WorkoutSessionRepository
	recovery     RecoveryService
	embedder     embedding.Embedder // nil disables the vector path
	searcher     VectorSearcher     // nil disables the vector path
	breaker      *gobreaker.CircuitBreaker[[]vectorindex.Match]
	now          func() time.Time
}

// NewRecommendationService creates a new instance of recommendationService.
func NewRecommendationService(
	log *logger.Logger,
	cfg RecommendationConfig,
	userRepo repository.UserRepository,
	exerciseRepo repository.ExerciseRepository,
	sessionRepo repository.WorkoutSessionRepository,
	recovery RecoveryService,
	embedder embedding.Embedder,
	searcher VectorSearcher,
) RecommendationService {
	cfg = cfg.withDefaults()
	log = log.With("service", "RecommendationService")

	const breakerName = "vector-search"
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	breaker := gobreaker.NewCircuitBreaker[[]vectorindex.Match](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})

	return &recommendationService{
		log:          log,
		cfg:          cfg,
		userRepo:     userRepo,
		exerciseRepo: exerciseRepo,
		sessionRepo:  sessionRepo,
		recovery:     recovery,
		embedder:     embedder,
		searcher:     searcher,
		breaker:      breaker,
		now:          time.Now,
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// trainingContext is what the user's history says about today's session.
type trainingContext struct {
	user         *domain.User
	targets      []domain.MuscleGroup
	avoid        []domain.MuscleGroup
	weeklyVolume map[domain.MuscleGroup]int
	sessions     int
	historyErr   bool // session history could not be read
}

func (s *recommendationService) Recommend(ctx context.Context, userID primitive.ObjectID, req RecommendationRequest) (*Recommendation, error) {
	start := time.Now()

	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	targets, err := resolveTargetMuscles(req.TargetMuscle, req.WorkoutType)
	if err != nil {
		return nil, err
	}

	tc, err := s.loadContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	tc.targets = targets

	base := candidateFilter{avoid: muscleSet(tc.avoid), equipment: req.Equipment}

	var exercises []domain.Exercise
	reason := FallbackSessionError
	if !tc.historyErr {
		exercises, reason = s.vectorPath(ctx, tc, req, base, limit)
	}
	rec := &Recommendation{Path: metrics.PathVector, AvoidMuscles: tc.avoid}
	if reason == "" {
		rec.Exercises = exercises
	} else {
		s.log.Info("using fallback recommendation", "user_id", userID.Hex(), "reason", reason)
		metrics.RecordFallback(reason)

		all, err := s.exerciseRepo.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load exercise catalog: %w", err)
		}
		withTargets := base
		withTargets.targets = muscleSet(targets)
		rec.Path = metrics.PathFallback
		rec.FallbackReason = reason
		rec.Exercises = selectExercises(all, withTargets, limit)
	}

	metrics.RecommendationsTotal.WithLabelValues(rec.Path).Inc()
	metrics.RecommendationDuration.WithLabelValues(rec.Path).Observe(time.Since(start).Seconds())
	s.log.Debug("recommendation served",
		"user_id", userID.Hex(), "path", rec.Path, "count", len(rec.Exercises), "avoid", len(tc.avoid))
	return rec, nil
}

// vectorPath returns the recommended exercises, or a non-empty fallback reason.
func (s *recommendationService) vectorPath(ctx context.Context, tc *trainingContext, req RecommendationRequest, f candidateFilter, limit int) ([]domain.Exercise, string) {
	if s.embedder == nil || s.searcher == nil {
		return nil, FallbackVectorDisabled
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < s.cfg.MinVectorBudget {
		return nil, FallbackDeadline
	}

	vctx, cancel := context.WithDeadline(ctx, s.vectorDeadline(ctx))
	defer cancel()

	text := textenc.RequestToText(textenc.Request{
		Goals:           tc.user.Profile.Goals,
		TargetMuscles:   tc.targets,
		AvoidMuscles:    tc.avoid,
		WeeklyVolume:    tc.weeklyVolume,
		Equipment:       req.Equipment,
		Difficulty:      req.Difficulty,
		DurationMinutes: req.DurationMinutes,
		UserLevel:       tc.user.Profile.ExperienceLevel,
		RecentWorkouts:  recentWorkoutsText(tc.sessions),
	})
	s.log.Debug("vector search query", "text", text)

	emb := s.embedder.Embed(vctx, text)
	if emb.Degraded {
		return nil, FallbackEmbeddingDegraded
	}

	var filter map[string]any
	if req.Equipment != "" {
		filter = map[string]any{vectorindex.PayloadEquipment: string(req.Equipment)}
	}
	matches, err := s.breaker.Execute(func() ([]vectorindex.Match, error) {
		return s.searcher.Search(vctx, emb.Vector, limit*s.cfg.SearchMultiplier, s.cfg.MinScore, filter)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, FallbackBreakerOpen
		}
		s.log.Warn("vector search failed", "error", err)
		return nil, FallbackSearchError
	}

	ids := make([]primitive.ObjectID, 0, len(matches))
	for _, m := range matches {
		id, err := primitive.ObjectIDFromHex(m.ExerciseID)
		if err != nil {
			s.log.Warn("skipping vector match with invalid exercise id", "exercise_id", m.ExerciseID)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, FallbackNoCandidates
	}

	candidates, err := s.exerciseRepo.GetByIDs(vctx, ids)
	if err != nil {
		s.log.Warn("resolving vector matches failed", "error", err)
		return nil, FallbackCatalogError
	}
	selected := selectExercises(candidates, f, limit)
	if len(selected) == 0 {
		return nil, FallbackNoCandidates
	}
	return selected, ""
}

// vectorDeadline bounds the vector path by VectorTimeout and leaves half of
// MinVectorBudget before the request deadline for the fallback catalog read.
func (s *recommendationService) vectorDeadline(ctx context.Context) time.Time {
	d := time.Now().Add(s.cfg.VectorTimeout)
	if deadline, ok := ctx.Deadline(); ok {
		if reserved := deadline.Add(-s.cfg.MinVectorBudget / 2); reserved.Before(d) {
			d = reserved
		}
	}
	return d
}

// loadContext reads the user, recovery state and last week of sessions.
// Muscles trained in the last 48 hours, recovering, or over the weekly volume cap are avoided.
// A session history read failure leaves only the recovering muscles and sets historyErr.
func (s *recommendationService) loadContext(ctx context.Context, userID primitive.ObjectID) (*trainingContext, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	recovering, err := s.recovery.MusclesToAvoid(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sessions, err := s.sessionRepo.GetByUserSince(ctx, userID, now.Add(-weeklyVolumeWindow))
	if err != nil {
		s.log.Warn("loading workout sessions failed", "user_id", userID.Hex(), "error", err)
		return historyless(user, recovering), nil
	}

	musclesOf, err := s.sessionMuscles(ctx, sessions)
	if err != nil {
		s.log.Warn("resolving session exercises failed", "user_id", userID.Hex(), "error", err)
		return historyless(user, recovering), nil
	}

	weekly := make(map[domain.MuscleGroup]int)
	avoid := append([]domain.MuscleGroup(nil), recovering...)
	recentCutoff := now.Add(-recentTrainingWindow)
	for _, session := range sessions {
		recent := !session.StartedAt.Before(recentCutoff)
		for _, se := range session.Exercises {
			sets := se.CompletedSets()
			for _, mg := range musclesOf[se.ExerciseID] {
				weekly[mg] += sets
				if recent {
					avoid = append(avoid, mg)
				}
			}
		}
	}
	for mg, sets := range weekly {
		if sets > textenc.HighVolumeSets {
			avoid = append(avoid, mg)
		}
	}

	return &trainingContext{
		user:         user,
		avoid:        textenc.SortMuscles(avoid),
		weeklyVolume: weekly,
		sessions:     len(sessions),
	}, nil
}

func historyless(user *domain.User, recovering []domain.MuscleGroup) *trainingContext {
	return &trainingContext{
		user:         user,
		avoid:        textenc.SortMuscles(recovering),
		weeklyVolume: map[domain.MuscleGroup]int{},
		historyErr:   true,
	}
}

// sessionMuscles resolves the muscle groups of every exercise referenced by sessions.
func (s *recommendationService) sessionMuscles(ctx context.Context, sessions []domain.WorkoutSession) (map[primitive.ObjectID][]domain.MuscleGroup, error) {
	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	for _, session := range sessions {
		for _, se := range session.Exercises {
			if _, ok := seen[se.ExerciseID]; ok {
				continue
			}
			seen[se.ExerciseID] = struct{}{}
			ids = append(ids, se.ExerciseID)
		}
	}
	out := make(map[primitive.ObjectID][]domain.MuscleGroup, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	exercises, err := s.exerciseRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load session exercises: %w", err)
	}
	for _, ex := range exercises {
		if muscles := ex.TrainedMuscles(); len(muscles) > 0 {
			out[ex.ID] = muscles
		}
	}
	return out, nil
}

func recentWorkoutsText(sessions int) string {
	if sessions == 0 {
		return ""
	}
	return fmt.Sprintf("최근 7일간 %d회 운동", sessions)
}
