// Package textenc builds the canonical natural-language text that gets embedded
// for exercises and recommendation requests. Output is deterministic: identical
// inputs always produce byte-identical text.
package textenc

import (
	"sort"
	"strconv"
	"strings"

	"alcyxob/workout-recommender/internal/domain"
)

const clauseSep = ". "

// Weekly volume thresholds, in completed sets.
const (
	LowVolumeSets  = 10
	HighVolumeSets = 20
)

// ExerciseToText renders an exercise as labelled clauses.
func ExerciseToText(ex *domain.Exercise) string {
	parts := make([]string, 0, 5)
	parts = append(parts, "운동명: "+ex.Name)
	parts = append(parts, "카테고리: "+CategoryLabel(ex.Category))
	if len(ex.MuscleGroups) > 0 {
		parts = append(parts, "타겟 근육: "+joinMuscles(ex.MuscleGroups))
	}
	if ex.Equipment != "" {
		parts = append(parts, "필요 장비: "+EquipmentLabel(ex.Equipment))
	}
	if ex.Instructions != "" {
		parts = append(parts, "설명: "+ex.Instructions)
	}
	return strings.Join(parts, clauseSep)
}

// Request is everything known about a recommendation request that is worth embedding.
type Request struct {
	Goals           []string
	TargetMuscles   []domain.MuscleGroup
	AvoidMuscles    []domain.MuscleGroup
	WeeklyVolume    map[domain.MuscleGroup]int
	Equipment       domain.Equipment
	Difficulty      string
	DurationMinutes int
	UserLevel       string
	RecentWorkouts  string
}

// RequestToText renders a recommendation request. Target muscles keep the caller's
// order; avoid and volume lists are sorted into catalog order.
func RequestToText(r Request) string {
	parts := make([]string, 0, 10)

	if goals := nonEmpty(r.Goals); len(goals) > 0 {
		parts = append(parts, "목표: "+strings.Join(goals, ", "))
	}
	if len(r.TargetMuscles) > 0 {
		parts = append(parts, "타겟 근육: "+joinMuscles(r.TargetMuscles))
	}
	if len(r.AvoidMuscles) > 0 {
		parts = append(parts, "피해야 할 근육 (회복 중): "+joinMuscles(SortMuscles(r.AvoidMuscles)))
	}

	var low, high []domain.MuscleGroup
	for mg, sets := range r.WeeklyVolume {
		switch {
		case sets < LowVolumeSets:
			low = append(low, mg)
		case sets > HighVolumeSets:
			high = append(high, mg)
		}
	}
	if len(low) > 0 {
		parts = append(parts, "볼륨 부족 근육 (우선 선택): "+joinMuscles(SortMuscles(low)))
	}
	if len(high) > 0 {
		parts = append(parts, "볼륨 과다 근육 (피하기): "+joinMuscles(SortMuscles(high)))
	}

	if r.Equipment != "" {
		parts = append(parts, "장비: "+EquipmentLabel(r.Equipment))
	}
	if r.Difficulty != "" {
		parts = append(parts, "난이도: "+r.Difficulty)
	}
	if r.DurationMinutes > 0 {
		parts = append(parts, "운동 시간: "+strconv.Itoa(r.DurationMinutes)+"분")
	}
	if r.UserLevel != "" {
		parts = append(parts, "경험 수준: "+r.UserLevel)
	}
	if r.RecentWorkouts != "" {
		parts = append(parts, "최근 운동: "+r.RecentWorkouts)
	}
	return strings.Join(parts, clauseSep)
}

// SortMuscles returns a copy of mgs in catalog order without duplicates.
// Unknown values sort after known ones, alphabetically.
func SortMuscles(mgs []domain.MuscleGroup) []domain.MuscleGroup {
	out := make([]domain.MuscleGroup, 0, len(mgs))
	seen := make(map[domain.MuscleGroup]struct{}, len(mgs))
	for _, m := range mgs {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := muscleOrder(out[i]), muscleOrder(out[j])
		if oi != oj {
			return oi < oj
		}
		return out[i] < out[j]
	})
	return out
}

func muscleOrder(m domain.MuscleGroup) int {
	for i, known := range domain.AllMuscleGroups {
		if m == known {
			return i
		}
	}
	return len(domain.AllMuscleGroups)
}

func joinMuscles(mgs []domain.MuscleGroup) string {
	labels := make([]string, len(mgs))
	for i, m := range mgs {
		labels[i] = MuscleGroupLabel(m)
	}
	return strings.Join(labels, ", ")
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
