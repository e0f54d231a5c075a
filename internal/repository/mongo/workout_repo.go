package mongo

import (
	"context"
	"alcyxob/workout-recommender/internal/domain"
	"alcyxob/workout-recommender/internal/repository"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const workoutSessionCollectionName = "workout_sessions"

// mongoWorkoutSessionRepository implements repository.WorkoutSessionRepository
type mongoWorkoutSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoWorkoutSessionRepository creates a new session-history repository.
func NewMongoWorkoutSessionRepository(db *mongo.Database) repository.WorkoutSessionRepository {
	return &mongoWorkoutSessionRepository{
		collection: db.Collection(workoutSessionCollectionName),
	}
}

// GetByUserSince returns the user's sessions started at or after since, newest first.
func (r *mongoWorkoutSessionRepository) GetByUserSince(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]domain.WorkoutSession, error) {
	filter := bson.M{
		"userId":    userID,
		"startedAt": bson.M{"$gte": since},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sessions := []domain.WorkoutSession{}
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// EnsureWorkoutSessionIndexes creates necessary indexes for the workout_sessions collection.
func EnsureWorkoutSessionIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Recent-history lookups per user
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "startedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
