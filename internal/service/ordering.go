package service

import (
	"alcyxob/workout-recommender/internal/domain"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// compoundKeywords mark multi-joint movements by name.
var compoundKeywords = []string{
	"프레스", "스쿼트", "데드리프트", "로우", "풀업", "친업", "딥스", "런지",
	"press", "squat", "deadlift", "row", "pull-up", "chin-up", "dip", "lunge",
}

// Larger muscle groups are trained first.
func categoryPriority(c domain.Category) int {
	switch c {
	case domain.CategoryLegs:
		return 1
	case domain.CategoryBack:
		return 2
	case domain.CategoryChest:
		return 3
	case domain.CategoryShoulders:
		return 4
	case domain.CategoryArms:
		return 5
	case domain.CategoryCore:
		return 6
	case domain.CategoryCardio:
		return 7
	default:
		return 8
	}
}

// IsCompound reports whether ex engages two or more muscle groups or is named
// after a known multi-joint movement.
func IsCompound(ex *domain.Exercise) bool {
	if len(ex.MuscleGroups) >= 2 {
		return true
	}
	name := strings.ToLower(ex.Name)
	for _, kw := range compoundKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// orderExercises sorts in place: category priority, compound first, then tier,
// basic first, popularity desc, difficulty asc and id for a total order.
func orderExercises(exercises []domain.Exercise) {
	sort.SliceStable(exercises, func(i, j int) bool {
		a, b := &exercises[i], &exercises[j]
		if pa, pb := categoryPriority(a.Category), categoryPriority(b.Category); pa != pb {
			return pa < pb
		}
		if ca, cb := IsCompound(a), IsCompound(b); ca != cb {
			return ca
		}
		if ta, tb := a.Tier.Rank(), b.Tier.Rank(); ta != tb {
			return ta < tb
		}
		if a.IsBasic != b.IsBasic {
			return a.IsBasic
		}
		if a.Popularity != b.Popularity {
			return a.Popularity > b.Popularity
		}
		if a.Difficulty != b.Difficulty {
			return a.Difficulty < b.Difficulty
		}
		return a.ID.Hex() < b.ID.Hex()
	})
}

// candidateFilter is the policy both retrieval paths apply to catalog exercises.
type candidateFilter struct {
	avoid     map[domain.MuscleGroup]struct{}
	equipment domain.Equipment
	targets   map[domain.MuscleGroup]struct{} // nil disables the target check
}

func (f candidateFilter) accepts(ex *domain.Exercise) bool {
	if ex.TargetsAny(f.avoid) {
		return false
	}
	if f.equipment != "" && ex.Equipment != f.equipment {
		return false
	}
	if len(f.targets) > 0 && !ex.TargetsAny(f.targets) {
		return false
	}
	return true
}

// selectExercises filters, orders, de-duplicates by id and truncates to limit.
func selectExercises(candidates []domain.Exercise, f candidateFilter, limit int) []domain.Exercise {
	kept := make([]domain.Exercise, 0, len(candidates))
	seen := make(map[primitive.ObjectID]struct{}, len(candidates))
	for i := range candidates {
		ex := &candidates[i]
		if _, dup := seen[ex.ID]; dup {
			continue
		}
		if !f.accepts(ex) {
			continue
		}
		seen[ex.ID] = struct{}{}
		kept = append(kept, *ex)
	}
	orderExercises(kept)
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

func muscleSet(mgs []domain.MuscleGroup) map[domain.MuscleGroup]struct{} {
	set := make(map[domain.MuscleGroup]struct{}, len(mgs))
	for _, mg := range mgs {
		set[mg] = struct{}{}
	}
	return set
}

// Body regions accepted as an explicit target besides single muscle groups.
var regionMuscles = map[string][]domain.MuscleGroup{
	"full_body": nil,
	"legs": {domain.MuscleLegs, domain.MuscleQuadriceps, domain.MuscleHamstrings,
		domain.MuscleGlutes, domain.MuscleCalves},
	"lower": {domain.MuscleLegs, domain.MuscleQuadriceps, domain.MuscleHamstrings,
		domain.MuscleGlutes, domain.MuscleCalves},
	"upper": {domain.MuscleChest, domain.MuscleBack, domain.MuscleLats,
		domain.MuscleShoulders, domain.MuscleBiceps, domain.MuscleTriceps},
	"chest":     {domain.MuscleChest},
	"back":      {domain.MuscleBack, domain.MuscleLats},
	"shoulders": {domain.MuscleShoulders},
	"arms":      {domain.MuscleBiceps, domain.MuscleTriceps, domain.MuscleForearms},
	"core":      {domain.MuscleAbs, domain.MuscleCore},
}

var workoutTypeMuscles = map[domain.WorkoutType][]domain.MuscleGroup{
	domain.WorkoutPush: {domain.MuscleChest, domain.MuscleShoulders, domain.MuscleTriceps},
	domain.WorkoutPull: {domain.MuscleBack, domain.MuscleLats, domain.MuscleBiceps},
	domain.WorkoutLegs: {domain.MuscleLegs, domain.MuscleQuadriceps, domain.MuscleHamstrings, domain.MuscleGlutes},
	domain.WorkoutUpper: {domain.MuscleChest, domain.MuscleBack, domain.MuscleShoulders,
		domain.MuscleBiceps, domain.MuscleTriceps},
	domain.WorkoutLower: {domain.MuscleLegs, domain.MuscleQuadriceps, domain.MuscleHamstrings,
		domain.MuscleGlutes, domain.MuscleCalves},
	domain.WorkoutChest:     {domain.MuscleChest},
	domain.WorkoutBack:      {domain.MuscleBack},
	domain.WorkoutShoulders: {domain.MuscleShoulders},
	domain.WorkoutArms:      {domain.MuscleBiceps, domain.MuscleTriceps},
}

// resolveTargetMuscles maps an explicit target (a region or a muscle group) or,
// failing that, a workout type onto muscle groups. No target and no workout type
// (or FULL_BODY) yields none; an unknown target returns ErrInvalidMuscleGroup and
// an unknown workout type ErrInvalidWorkoutType.
func resolveTargetMuscles(target string, wt domain.WorkoutType) ([]domain.MuscleGroup, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	if target != "" {
		key := strings.ReplaceAll(target, "-", "_")
		if mgs, ok := regionMuscles[key]; ok {
			return append([]domain.MuscleGroup(nil), mgs...), nil
		}
		if mg := domain.MuscleGroup(key); mg.IsValid() {
			return []domain.MuscleGroup{mg}, nil
		}
		return nil, ErrInvalidMuscleGroup
	}
	if wt == "" {
		return nil, nil
	}
	mgs, ok := workoutTypeMuscles[domain.WorkoutType(strings.ToUpper(string(wt)))]
	if !ok && domain.WorkoutType(strings.ToUpper(string(wt))) != domain.WorkoutFullBody {
		return nil, ErrInvalidWorkoutType
	}
	return append([]domain.MuscleGroup(nil), mgs...), nil
}
