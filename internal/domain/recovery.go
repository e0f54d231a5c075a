package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MuscleRecoveryState is the per (user, muscle group) recovery row.
// RecoveryPercentage is a cached value; readers recompute it from LastTrained.
type MuscleRecoveryState struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID             primitive.ObjectID `bson:"userId" json:"userId"`
	MuscleGroup        MuscleGroup        `bson:"muscleGroup" json:"muscleGroup"`
	LastTrained        *time.Time         `bson:"lastTrained,omitempty" json:"lastTrained,omitempty"`
	RecoveryPercentage int                `bson:"recoveryPercentage" json:"recoveryPercentage"`
	FeelingScore       int                `bson:"feelingScore" json:"feelingScore"` // 1-10
	SorenessScore      int                `bson:"sorenessScore" json:"sorenessScore"` // 0-10
	Boost              int                `bson:"boost" json:"boost"` // from recovery activities since LastTrained
	Version            int64              `bson:"version" json:"-"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RecoveryActivityType names a recovery-boosting activity.
type RecoveryActivityType string

const (
	ActivityStretching  RecoveryActivityType = "STRETCHING"
	ActivityFoamRolling RecoveryActivityType = "FOAM_ROLLING"
	ActivityMassage     RecoveryActivityType = "MASSAGE"
	ActivityColdBath    RecoveryActivityType = "COLD_BATH"
	ActivitySauna       RecoveryActivityType = "SAUNA"
	ActivitySleep       RecoveryActivityType = "SLEEP"
)

func (t RecoveryActivityType) IsValid() bool {
	switch t {
	case ActivityStretching, ActivityFoamRolling, ActivityMassage,
		ActivityColdBath, ActivitySauna, ActivitySleep:
		return true
	}
	return false
}

// Intensity of a recovery activity.
type Intensity string

const (
	IntensityLight    Intensity = "LIGHT"
	IntensityModerate Intensity = "MODERATE"
	IntensityIntense  Intensity = "INTENSE"
)

func (i Intensity) IsValid() bool {
	return i == IntensityLight || i == IntensityModerate || i == IntensityIntense
}

// RecoveryActivity is a logged recovery session.
type RecoveryActivity struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID   `bson:"userId" json:"userId"`
	Type            RecoveryActivityType `bson:"type" json:"type"`
	DurationMinutes int                  `bson:"durationMinutes" json:"durationMinutes"`
	Intensity       Intensity            `bson:"intensity" json:"intensity"`
	BodyParts       []MuscleGroup        `bson:"bodyParts,omitempty" json:"bodyParts,omitempty"`
	Notes           string               `bson:"notes,omitempty" json:"notes,omitempty"`
	Score           int                  `bson:"score" json:"score"`
	Boost           int                  `bson:"boost" json:"boost"`
	PerformedAt     time.Time            `bson:"performedAt" json:"performedAt"`
}
