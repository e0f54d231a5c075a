package textenc

import "alcyxob/workout-recommender/internal/domain"

// Canonical Korean labels. Every component that needs a display or embedding
// label for a catalog enum goes through these lookups.
var (
	categoryLabels = map[domain.Category]string{
		domain.CategoryChest:     "가슴",
		domain.CategoryBack:      "등",
		domain.CategoryLegs:      "하체",
		domain.CategoryShoulders: "어깨",
		domain.CategoryArms:      "팔",
		domain.CategoryCore:      "코어",
		domain.CategoryCardio:    "유산소",
		domain.CategoryFullBody:  "전신",
	}

	muscleGroupLabels = map[domain.MuscleGroup]string{
		domain.MuscleChest:      "가슴",
		domain.MuscleBack:       "등",
		domain.MuscleShoulders:  "어깨",
		domain.MuscleBiceps:     "이두",
		domain.MuscleTriceps:    "삼두",
		domain.MuscleLegs:       "다리",
		domain.MuscleCore:       "코어",
		domain.MuscleAbs:        "복근",
		domain.MuscleGlutes:     "둔근",
		domain.MuscleCalves:     "종아리",
		domain.MuscleForearms:   "전완",
		domain.MuscleNeck:       "목",
		domain.MuscleQuadriceps: "대퇴사두",
		domain.MuscleHamstrings: "햄스트링",
		domain.MuscleLats:       "광배근",
		domain.MuscleTraps:      "승모근",
	}

	equipmentLabels = map[domain.Equipment]string{
		domain.EquipmentBarbell:        "바벨",
		domain.EquipmentDumbbell:       "덤벨",
		domain.EquipmentBodyweight:     "맨몸",
		domain.EquipmentMachine:        "머신",
		domain.EquipmentCable:          "케이블",
		domain.EquipmentResistanceBand: "밴드",
		domain.EquipmentKettlebell:     "케틀벨",
		domain.EquipmentOther:          "기타",
	}
)

// CategoryLabel returns the Korean label for c, or the raw value when unknown.
func CategoryLabel(c domain.Category) string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// MuscleGroupLabel returns the Korean label for m, or the raw value when unknown.
func MuscleGroupLabel(m domain.MuscleGroup) string {
	if l, ok := muscleGroupLabels[m]; ok {
		return l
	}
	return string(m)
}

// EquipmentLabel returns the Korean label for e, or the raw value when unknown.
func EquipmentLabel(e domain.Equipment) string {
	if l, ok := equipmentLabels[e]; ok {
		return l
	}
	return string(e)
}
