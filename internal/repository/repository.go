package repository

import (
	"alcyxob/workout-recommender/internal/domain" // Import our defined domain models
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive" // For using ObjectIDs
)

// Error constants for repository layer
var (
	ErrNotFound = RepositoryError("not found")
	// ErrConflict means an optimistic-concurrency check failed; re-read and retry.
	ErrConflict = RepositoryError("version conflict")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository reads user accounts. Accounts are managed elsewhere.
type UserRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// ExerciseRepository defines the interface for interacting with the exercise catalog.
// The recommender only reads the catalog, except for the vector pointer.
type ExerciseRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Exercise, error) // Unknown ids are skipped
	GetAll(ctx context.Context) ([]domain.Exercise, error)
	SetVectorID(ctx context.Context, id primitive.ObjectID, vectorID string) error // Empty vectorID clears it
}

// WorkoutSessionRepository reads session history.
type WorkoutSessionRepository interface {
	GetByUserSince(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]domain.WorkoutSession, error)
}

// RecoveryRepository stores per (user, muscle group) recovery rows.
type RecoveryRepository interface {
	GetByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.MuscleRecoveryState, error)
	GetByUserAndMuscle(ctx context.Context, userID primitive.ObjectID, mg domain.MuscleGroup) (*domain.MuscleRecoveryState, error)
	// Save inserts a row with a zero ID, otherwise updates it if its Version still matches.
	// On success state.Version is advanced. A lost race returns ErrConflict.
	Save(ctx context.Context, state *domain.MuscleRecoveryState) error
}

// RecoveryActivityRepository stores the recovery activity log.
type RecoveryActivityRepository interface {
	Create(ctx context.Context, activity *domain.RecoveryActivity) (primitive.ObjectID, error)
	GetByUserSince(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]domain.RecoveryActivity, error)
}
