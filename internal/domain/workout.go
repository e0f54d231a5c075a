package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutSession is a completed or in-progress training session of a user.
// Sessions are owned by the session-history collaborator; the core only reads them.
type WorkoutSession struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	StartedAt time.Time          `bson:"startedAt" json:"startedAt"`
	EndedAt   *time.Time         `bson:"endedAt,omitempty" json:"endedAt,omitempty"`
	Exercises []SessionExercise  `bson:"exercises" json:"exercises"`
}

// SessionExercise links a session to a catalog exercise and the sets performed.
type SessionExercise struct {
	ExerciseID primitive.ObjectID `bson:"exerciseId" json:"exerciseId"`
	Sets       []ExerciseSet      `bson:"sets" json:"sets"`
}

// ExerciseSet is a single set within a session exercise.
type ExerciseSet struct {
	Weight    float64 `bson:"weight" json:"weight"`
	Reps      int     `bson:"reps" json:"reps"`
	Completed bool    `bson:"completed" json:"completed"`
}

// CompletedSets counts the sets flagged completed.
func (se SessionExercise) CompletedSets() int {
	n := 0
	for _, s := range se.Sets {
		if s.Completed {
			n++
		}
	}
	return n
}
