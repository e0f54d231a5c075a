package service

import (
	"alcyxob/workout-recommender/internal/domain"
	"alcyxob/workout-recommender/internal/logger"
	"alcyxob/workout-recommender/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrInvalidMuscleGroup = errors.New("invalid muscle group")
	ErrInvalidActivity    = errors.New("invalid recovery activity")
)

// maxSaveAttempts bounds read-modify-write retries on a version conflict.
const maxSaveAttempts = 3

const defaultActivityHistoryDays = 7

// MuscleRecoveryStatus is the reported recovery state of one muscle group.
type MuscleRecoveryStatus struct {
	MuscleGroup            domain.MuscleGroup `json:"muscleGroup"`
	RecoveryPercentage     int                `json:"recoveryPercentage"`
	LastTrained            *time.Time         `json:"lastTrained,omitempty"`
	Status                 string             `json:"status"`
	EstimatedRecoveryHours int                `json:"estimatedRecoveryHours"`
	FeelingScore           int                `json:"feelingScore,omitempty"`
	SorenessScore          int                `json:"sorenessScore"`
}

// RecordActivityInput describes a recovery activity to log.
type RecordActivityInput struct {
	Type            domain.RecoveryActivityType
	DurationMinutes int
	Intensity       domain.Intensity
	BodyParts       []domain.MuscleGroup
	Notes           string
	PerformedAt     time.Time // zero means now
}

// RecordActivityResult is returned after logging a recovery activity.
type RecordActivityResult struct {
	ActivityID         string `json:"activityId"`
	RecoveryScore      int    `json:"recoveryScore"`
	RecoveryBoost      int    `json:"recoveryBoost"`
	NextRecommendation string `json:"nextRecommendation"`
}

// --- Service Interface ---
type RecoveryService interface {
	// GetRecoveryStatus reports every known muscle group; groups never trained report 100%.
	GetRecoveryStatus(ctx context.Context, userID primitive.ObjectID) ([]MuscleRecoveryStatus, error)
	UpdateAfterWorkout(ctx context.Context, userID primitive.ObjectID, muscleGroups []domain.MuscleGroup) error
	// UpdateAfterExercises marks the muscle groups of the given catalog exercises as trained.
	UpdateAfterExercises(ctx context.Context, userID primitive.ObjectID, exerciseIDs []primitive.ObjectID) error
	ReportFeeling(ctx context.Context, userID primitive.ObjectID, mg domain.MuscleGroup, feeling, soreness int) (*MuscleRecoveryStatus, error)
	RecordActivity(ctx context.Context, userID primitive.ObjectID, in RecordActivityInput) (*RecordActivityResult, error)
	// RecentActivities lists activities from the last days days, newest first.
	RecentActivities(ctx context.Context, userID primitive.ObjectID, days int) ([]domain.RecoveryActivity, error)
	// MusclesToAvoid lists muscle groups currently below RecoveringThreshold.
	// It does not check that the user exists.
	MusclesToAvoid(ctx context.Context, userID primitive.ObjectID) ([]domain.MuscleGroup, error)
}

// --- Service Implementation ---

type recoveryService struct {
	log          *logger.Logger
	userRepo     repository.UserRepository
	recoveryRepo repository.RecoveryRepository
	activityRepo repository.RecoveryActivityRepository
	exerciseRepo repository.ExerciseRepository
	now          func() time.Time
}

// NewRecoveryService creates a new instance of recoveryService.
func NewRecoveryService(
	log *logger.Logger,
	userRepo repository.UserRepository,
	recoveryRepo repository.RecoveryRepository,
	activityRepo repository.RecoveryActivityRepository,
	exerciseRepo repository.ExerciseRepository,
) RecoveryService {
	return &recoveryService{
		log:          log.With("service", "RecoveryService"),
		userRepo:     userRepo,
		recoveryRepo: recoveryRepo,
		activityRepo: activityRepo,
		exerciseRepo: exerciseRepo,
		now:          time.Now,
	}
}

func (s *recoveryService) GetRecoveryStatus(ctx context.Context, userID primitive.ObjectID) ([]MuscleRecoveryStatus, error) {
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	states, err := s.recoveryRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load recovery states: %w", err)
	}
	return buildStatuses(states, s.now()), nil
}

// buildStatuses unions the stored rows with the default muscle groups.
// Known groups come first in catalog order, followed by any extra stored groups.
func buildStatuses(states []domain.MuscleRecoveryState, now time.Time) []MuscleRecoveryStatus {
	byMuscle := make(map[domain.MuscleGroup]*domain.MuscleRecoveryState, len(states))
	for i := range states {
		byMuscle[states[i].MuscleGroup] = &states[i]
	}

	out := make([]MuscleRecoveryStatus, 0, len(domain.AllMuscleGroups))
	for _, mg := range domain.AllMuscleGroups {
		out = append(out, statusOf(mg, byMuscle[mg], now))
		delete(byMuscle, mg)
	}
	for i := range states {
		if st, ok := byMuscle[states[i].MuscleGroup]; ok {
			out = append(out, statusOf(st.MuscleGroup, st, now))
			delete(byMuscle, st.MuscleGroup)
		}
	}
	return out
}

func statusOf(mg domain.MuscleGroup, st *domain.MuscleRecoveryState, now time.Time) MuscleRecoveryStatus {
	pct := CurrentRecovery(st, now)
	status := MuscleRecoveryStatus{
		MuscleGroup:        mg,
		RecoveryPercentage: pct,
		Status:             RecoveryStatusLabel(pct),
	}
	if st != nil {
		status.LastTrained = st.LastTrained
		status.FeelingScore = st.FeelingScore
		status.SorenessScore = st.SorenessScore
		status.EstimatedRecoveryHours = EstimatedRecoveryHours(pct, st.SorenessScore)
	}
	return status
}

func (s *recoveryService) MusclesToAvoid(ctx context.Context, userID primitive.ObjectID) ([]domain.MuscleGroup, error) {
	states, err := s.recoveryRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load recovery states: %w", err)
	}
	now := s.now()
	var out []domain.MuscleGroup
	for i := range states {
		if CurrentRecovery(&states[i], now) < RecoveringThreshold {
			out = append(out, states[i].MuscleGroup)
		}
	}
	return out, nil
}

func (s *recoveryService) UpdateAfterWorkout(ctx context.Context, userID primitive.ObjectID, muscleGroups []domain.MuscleGroup) error {
	for _, mg := range muscleGroups {
		if !mg.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidMuscleGroup, mg)
		}
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}

	trainedAt := s.now().UTC()
	for _, mg := range uniqueMuscles(muscleGroups) {
		err := s.mutate(ctx, userID, mg, true, func(st *domain.MuscleRecoveryState) {
			st.LastTrained = &trainedAt
			st.RecoveryPercentage = 0
			st.Boost = 0
		})
		if err != nil {
			return fmt.Errorf("update %s: %w", mg, err)
		}
	}
	s.log.Debug("recovery updated after workout", "user_id", userID.Hex(), "muscles", len(muscleGroups))
	return nil
}

func (s *recoveryService) UpdateAfterExercises(ctx context.Context, userID primitive.ObjectID, exerciseIDs []primitive.ObjectID) error {
	if len(exerciseIDs) == 0 {
		return nil
	}
	exercises, err := s.exerciseRepo.GetByIDs(ctx, exerciseIDs)
	if err != nil {
		return fmt.Errorf("load exercises: %w", err)
	}
	found := make(map[primitive.ObjectID]struct{}, len(exercises))
	var muscles []domain.MuscleGroup
	for _, ex := range exercises {
		found[ex.ID] = struct{}{}
		for _, mg := range ex.TrainedMuscles() {
			if mg.IsValid() {
				muscles = append(muscles, mg)
			}
		}
	}
	for _, id := range exerciseIDs {
		if _, ok := found[id]; !ok {
			return fmt.Errorf("%w: %s", ErrExerciseNotFound, id.Hex())
		}
	}
	return s.UpdateAfterWorkout(ctx, userID, muscles)
}

func (s *recoveryService) ReportFeeling(ctx context.Context, userID primitive.ObjectID, mg domain.MuscleGroup, feeling, soreness int) (*MuscleRecoveryStatus, error) {
	if !mg.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMuscleGroup, mg)
	}
	if feeling < 1 || feeling > 10 || soreness < 0 || soreness > 10 {
		return nil, fmt.Errorf("%w: feeling must be 1-10 and soreness 0-10", ErrValidationFailed)
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	var saved domain.MuscleRecoveryState
	err := s.mutate(ctx, userID, mg, true, func(st *domain.MuscleRecoveryState) {
		st.FeelingScore = feeling
		st.SorenessScore = soreness
		saved = *st
	})
	if err != nil {
		return nil, err
	}
	status := statusOf(mg, &saved, s.now())
	return &status, nil
}

func (s *recoveryService) RecordActivity(ctx context.Context, userID primitive.ObjectID, in RecordActivityInput) (*RecordActivityResult, error) {
	if !in.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidActivity, in.Type)
	}
	if in.Intensity == "" {
		in.Intensity = domain.IntensityModerate
	}
	if !in.Intensity.IsValid() {
		return nil, fmt.Errorf("%w: unknown intensity %q", ErrInvalidActivity, in.Intensity)
	}
	if in.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidActivity)
	}
	for _, mg := range in.BodyParts {
		if !mg.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMuscleGroup, mg)
		}
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	bodyParts := uniqueMuscles(in.BodyParts)
	activity := &domain.RecoveryActivity{
		UserID:          userID,
		Type:            in.Type,
		DurationMinutes: in.DurationMinutes,
		Intensity:       in.Intensity,
		BodyParts:       bodyParts,
		Notes:           in.Notes,
		Score:           ActivityScore(in.Type, in.DurationMinutes, in.Intensity),
		Boost:           ActivityBoost(in.Type, in.DurationMinutes, in.Intensity),
		PerformedAt:     in.PerformedAt,
	}
	if activity.PerformedAt.IsZero() {
		activity.PerformedAt = s.now().UTC()
	}

	activityID, err := s.activityRepo.Create(ctx, activity)
	if err != nil {
		return nil, fmt.Errorf("save recovery activity: %w", err)
	}

	// Untrained groups have no row and are already at 100%.
	for _, mg := range bodyParts {
		err := s.mutate(ctx, userID, mg, false, func(st *domain.MuscleRecoveryState) {
			st.Boost = clamp(st.Boost+activity.Boost, 0, 100)
			st.RecoveryPercentage = CurrentRecovery(st, s.now())
		})
		if err != nil {
			return nil, fmt.Errorf("apply recovery boost to %s: %w", mg, err)
		}
	}

	s.log.Info("recovery activity recorded",
		"user_id", userID.Hex(), "type", in.Type, "score", activity.Score, "boost", activity.Boost)

	return &RecordActivityResult{
		ActivityID:         activityID.Hex(),
		RecoveryScore:      activity.Score,
		RecoveryBoost:      activity.Boost,
		NextRecommendation: NextActivityHint(in.Type),
	}, nil
}

func (s *recoveryService) RecentActivities(ctx context.Context, userID primitive.ObjectID, days int) ([]domain.RecoveryActivity, error) {
	if days <= 0 {
		days = defaultActivityHistoryDays
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	activities, err := s.activityRepo.GetByUserSince(ctx, userID, s.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("load recovery activities: %w", err)
	}
	return activities, nil
}

// mutate applies fn to the (user, muscle group) row and saves it, retrying on version conflicts.
// A missing row is created only when create is true; otherwise mutate is a no-op for it.
func (s *recoveryService) mutate(ctx context.Context, userID primitive.ObjectID, mg domain.MuscleGroup, create bool, fn func(*domain.MuscleRecoveryState)) error {
	var lastErr error
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		st, err := s.recoveryRepo.GetByUserAndMuscle(ctx, userID, mg)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			if !create {
				return nil
			}
			st = &domain.MuscleRecoveryState{
				UserID:             userID,
				MuscleGroup:        mg,
				RecoveryPercentage: 100,
				FeelingScore:       5,
			}
		case err != nil:
			return err
		}

		fn(st)
		st.RecoveryPercentage = clamp(st.RecoveryPercentage, 0, 100)

		err = s.recoveryRepo.Save(ctx, st)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
		lastErr = err
		s.log.Debug("recovery row changed concurrently, retrying", "muscle_group", mg, "attempt", attempt+1)
	}
	return lastErr
}

func (s *recoveryService) ensureUser(ctx context.Context, userID primitive.ObjectID) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	return nil
}

func uniqueMuscles(in []domain.MuscleGroup) []domain.MuscleGroup {
	seen := make(map[domain.MuscleGroup]struct{}, len(in))
	out := make([]domain.MuscleGroup, 0, len(in))
	for _, mg := range in {
		if _, ok := seen[mg]; ok {
			continue
		}
		seen[mg] = struct{}{}
		out = append(out, mg)
	}
	return out
}
