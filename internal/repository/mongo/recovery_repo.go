package mongo

import (
	"context"
	"errors"
	"alcyxob/workout-recommender/internal/domain"
	"alcyxob/workout-recommender/internal/repository"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const recoveryCollectionName = "muscle_recovery"

// mongoRecoveryRepository implements repository.RecoveryRepository.
// Writes are guarded by the row's version field.
type mongoRecoveryRepository struct {
	collection *mongo.Collection
}

// NewMongoRecoveryRepository creates a new recovery-state repository.
func NewMongoRecoveryRepository(db *mongo.Database) repository.RecoveryRepository {
	return &mongoRecoveryRepository{
		collection: db.Collection(recoveryCollectionName),
	}
}

// GetByUser returns every stored recovery row of a user.
func (r *mongoRecoveryRepository) GetByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.MuscleRecoveryState, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	states := []domain.MuscleRecoveryState{}
	if err = cursor.All(ctx, &states); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return states, nil
}

// GetByUserAndMuscle returns one row or repository.ErrNotFound.
func (r *mongoRecoveryRepository) GetByUserAndMuscle(ctx context.Context, userID primitive.ObjectID, mg domain.MuscleGroup) (*domain.MuscleRecoveryState, error) {
	var state domain.MuscleRecoveryState
	filter := bson.M{"userId": userID, "muscleGroup": mg}

	err := r.collection.FindOne(ctx, filter).Decode(&state)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &state, nil
}

// Save inserts or conditionally updates a row.
func (r *mongoRecoveryRepository) Save(ctx context.Context, state *domain.MuscleRecoveryState) error {
	now := time.Now().UTC()

	if state.ID.IsZero() {
		state.ID = primitive.NewObjectID()
		state.Version = 1
		state.UpdatedAt = now
		if _, err := r.collection.InsertOne(ctx, state); err != nil {
			state.ID = primitive.NilObjectID
			state.Version = 0
			// Unique (userId, muscleGroup): another writer created the row first
			if mongo.IsDuplicateKeyError(err) {
				return repository.ErrConflict
			}
			return err
		}
		return nil
	}

	filter := bson.M{"_id": state.ID, "version": state.Version}
	update := bson.M{
		"$set": bson.M{
			"lastTrained":        state.LastTrained,
			"recoveryPercentage": state.RecoveryPercentage,
			"feelingScore":       state.FeelingScore,
			"sorenessScore":      state.SorenessScore,
			"boost":              state.Boost,
			"updatedAt":          now,
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrConflict // Row changed (or vanished) since it was read
	}
	state.Version++
	state.UpdatedAt = now
	return nil
}

// EnsureRecoveryIndexes creates necessary indexes for the muscle_recovery collection.
func EnsureRecoveryIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "muscleGroup", Value: 1}},
			Options: options.Index().SetUnique(true), // One row per (user, muscle group)
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
