// internal/domain/exercise.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MuscleGroup is one of the fixed muscle groups the catalog and recovery model use.
type MuscleGroup string

const (
	MuscleChest      MuscleGroup = "chest"
	MuscleBack       MuscleGroup = "back"
	MuscleShoulders  MuscleGroup = "shoulders"
	MuscleBiceps     MuscleGroup = "biceps"
	MuscleTriceps    MuscleGroup = "triceps"
	MuscleLegs       MuscleGroup = "legs"
	MuscleCore       MuscleGroup = "core"
	MuscleAbs        MuscleGroup = "abs"
	MuscleGlutes     MuscleGroup = "glutes"
	MuscleCalves     MuscleGroup = "calves"
	MuscleForearms   MuscleGroup = "forearms"
	MuscleNeck       MuscleGroup = "neck"
	MuscleQuadriceps MuscleGroup = "quadriceps"
	MuscleHamstrings MuscleGroup = "hamstrings"
	MuscleLats       MuscleGroup = "lats"
	MuscleTraps      MuscleGroup = "traps"
)

// AllMuscleGroups lists every muscle group in catalog order.
// Recovery status starts from this list so untouched groups report 100%.
var AllMuscleGroups = []MuscleGroup{
	MuscleChest, MuscleBack, MuscleShoulders, MuscleBiceps,
	MuscleTriceps, MuscleLegs, MuscleCore, MuscleAbs,
	MuscleGlutes, MuscleCalves, MuscleForearms, MuscleNeck,
	MuscleQuadriceps, MuscleHamstrings, MuscleLats, MuscleTraps,
}

// IsValid reports whether m is one of the known muscle groups.
func (m MuscleGroup) IsValid() bool {
	for _, known := range AllMuscleGroups {
		if m == known {
			return true
		}
	}
	return false
}

// Category is the coarse body-region classification of an exercise.
type Category string

const (
	CategoryChest     Category = "CHEST"
	CategoryBack      Category = "BACK"
	CategoryLegs      Category = "LEGS"
	CategoryShoulders Category = "SHOULDERS"
	CategoryArms      Category = "ARMS"
	CategoryCore      Category = "CORE"
	CategoryCardio    Category = "CARDIO"
	CategoryFullBody  Category = "FULL_BODY"
)

// PrimaryMuscle returns the muscle group an exercise of this category trains
// when the exercise itself lists none.
func (c Category) PrimaryMuscle() (MuscleGroup, bool) {
	switch c {
	case CategoryChest:
		return MuscleChest, true
	case CategoryBack:
		return MuscleBack, true
	case CategoryLegs:
		return MuscleLegs, true
	case CategoryShoulders:
		return MuscleShoulders, true
	case CategoryArms:
		return MuscleBiceps, true
	case CategoryCore:
		return MuscleCore, true
	default:
		return "", false
	}
}

// Equipment needed to perform an exercise. Empty means unspecified.
type Equipment string

const (
	EquipmentBarbell        Equipment = "barbell"
	EquipmentDumbbell       Equipment = "dumbbell"
	EquipmentBodyweight     Equipment = "bodyweight"
	EquipmentMachine        Equipment = "machine"
	EquipmentCable          Equipment = "cable"
	EquipmentResistanceBand Equipment = "resistance_band"
	EquipmentKettlebell     Equipment = "kettlebell"
	EquipmentOther          Equipment = "other"
)

// RecommendationTier biases ranking. It never removes an exercise from the catalog.
type RecommendationTier string

const (
	TierEssential   RecommendationTier = "essential"
	TierStandard    RecommendationTier = "standard"
	TierAdvanced    RecommendationTier = "advanced"
	TierSpecialized RecommendationTier = "specialized"
)

// Rank orders tiers for sorting; unknown tiers sort after specialized.
func (t RecommendationTier) Rank() int {
	switch t {
	case TierEssential:
		return 0
	case TierStandard:
		return 1
	case TierAdvanced:
		return 2
	case TierSpecialized:
		return 3
	default:
		return 4
	}
}

// Exercise represents a single exercise definition in the catalog.
// The core only reads it, except for VectorID which the indexer maintains.
type Exercise struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Category     Category           `bson:"category" json:"category"`
	MuscleGroups []MuscleGroup      `bson:"muscleGroups" json:"muscleGroups"`
	Equipment    Equipment          `bson:"equipment,omitempty" json:"equipment,omitempty"`
	Instructions string             `bson:"instructions,omitempty" json:"instructions,omitempty"`
	ImageKey     string             `bson:"imageKey,omitempty" json:"imageKey,omitempty"` // S3 object key

	Popularity int                `bson:"popularity" json:"popularity"` // 1-100
	Difficulty int                `bson:"difficulty" json:"difficulty"` // 1-100
	IsBasic    bool               `bson:"isBasic" json:"isBasic"`
	Tier       RecommendationTier `bson:"tier" json:"tier"`

	// VectorID points at this exercise's vector in the external index. Empty until indexed.
	VectorID string `bson:"vectorId,omitempty" json:"vectorId,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// TrainedMuscles returns the exercise's muscle groups, or its category's
// primary muscle when it lists none.
func (e *Exercise) TrainedMuscles() []MuscleGroup {
	if len(e.MuscleGroups) > 0 {
		return e.MuscleGroups
	}
	if mg, ok := e.Category.PrimaryMuscle(); ok {
		return []MuscleGroup{mg}
	}
	return nil
}

// TargetsAny reports whether the exercise trains any muscle group in set.
func (e *Exercise) TargetsAny(set map[MuscleGroup]struct{}) bool {
	if len(set) == 0 {
		return false
	}
	for _, mg := range e.TrainedMuscles() {
		if _, ok := set[mg]; ok {
			return true
		}
	}
	return false
}

// WorkoutType is a named split used to derive target muscles when none is given.
type WorkoutType string

const (
	WorkoutPush      WorkoutType = "PUSH"
	WorkoutPull      WorkoutType = "PULL"
	WorkoutLegs      WorkoutType = "LEGS"
	WorkoutUpper     WorkoutType = "UPPER"
	WorkoutLower     WorkoutType = "LOWER"
	WorkoutFullBody  WorkoutType = "FULL_BODY"
	WorkoutChest     WorkoutType = "CHEST"
	WorkoutBack      WorkoutType = "BACK"
	WorkoutShoulders WorkoutType = "SHOULDERS"
	WorkoutArms      WorkoutType = "ARMS"
)
