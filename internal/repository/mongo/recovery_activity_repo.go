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

const recoveryActivityCollectionName = "recovery_activities"

type mongoRecoveryActivityRepository struct {
	collection *mongo.Collection
}

// NewMongoRecoveryActivityRepository creates a new recovery activity log repository.
func NewMongoRecoveryActivityRepository(db *mongo.Database) repository.RecoveryActivityRepository {
	return &mongoRecoveryActivityRepository{
		collection: db.Collection(recoveryActivityCollectionName),
	}
}

// Create inserts a new activity. PerformedAt defaults to now.
func (r *mongoRecoveryActivityRepository) Create(ctx context.Context, activity *domain.RecoveryActivity) (primitive.ObjectID, error) {
	if activity.UserID.IsZero() || activity.Type == "" {
		return primitive.NilObjectID, errors.New("activity user ID and type are required")
	}

	activity.ID = primitive.NewObjectID()
	if activity.PerformedAt.IsZero() {
		activity.PerformedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, activity)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByUserSince returns activities performed at or after since, newest first.
func (r *mongoRecoveryActivityRepository) GetByUserSince(ctx context.Context, userID primitive.ObjectID, since time.Time) ([]domain.RecoveryActivity, error) {
	filter := bson.M{"userId": userID, "performedAt": bson.M{"$gte": since}}
	findOptions := options.Find().SetSort(bson.D{{Key: "performedAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	activities := []domain.RecoveryActivity{}
	if err = cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// EnsureRecoveryActivityIndexes creates necessary indexes for the recovery_activities collection.
func EnsureRecoveryActivityIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "performedAt", Value: -1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
