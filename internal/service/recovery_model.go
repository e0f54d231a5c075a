package service

import (
	"alcyxob/workout-recommender/internal/domain"
	"time"
)

// RecoveringThreshold is the recovery percentage below which a muscle group
// counts as recovering and is kept out of recommendations.
const RecoveringThreshold = 80

// Recovery status labels
const (
	StatusRecovered  = "recovered"
	StatusReady      = "ready"
	StatusRecovering = "recovering"
)

// BaseRecovery is the time-decay recovery curve over whole hours since training.
// It is non-decreasing and reaches 100 at 72 hours.
func BaseRecovery(hours int) int {
	switch {
	case hours <= 0:
		return 0
	case hours < 24:
		return 2 * hours
	case hours < 48:
		return 50 + (hours-24)*3/2
	case hours < 72:
		return 85 + (hours-48)/2
	default:
		return 100
	}
}

// AdjustForSoreness scales base down by 5% per soreness point, truncating.
func AdjustForSoreness(base, soreness int) int {
	soreness = clamp(soreness, 0, 10)
	return int(float64(base) * (1 - float64(soreness)*0.05))
}

// HoursSince returns whole hours elapsed from t to now, never negative.
func HoursSince(t, now time.Time) int {
	h := int(now.Sub(t).Hours())
	if h < 0 {
		return 0
	}
	return h
}

// CurrentRecovery computes the recovery percentage of a stored row at now.
// A row that was never trained is fully recovered.
func CurrentRecovery(state *domain.MuscleRecoveryState, now time.Time) int {
	if state == nil || state.LastTrained == nil {
		return 100
	}
	pct := AdjustForSoreness(BaseRecovery(HoursSince(*state.LastTrained, now)), state.SorenessScore)
	return clamp(pct+state.Boost, 0, 100)
}

// RecoveryStatusLabel maps a percentage to its status label.
func RecoveryStatusLabel(pct int) string {
	switch {
	case pct >= 100:
		return StatusRecovered
	case pct >= RecoveringThreshold:
		return StatusReady
	default:
		return StatusRecovering
	}
}

// EstimatedRecoveryHours estimates hours until full recovery. Soreness slows the rate.
func EstimatedRecoveryHours(pct, soreness int) int {
	if pct >= 100 {
		return 0
	}
	rate := 100.0 / float64(48+clamp(soreness, 0, 10)*4)
	return int(float64(100-pct) / rate)
}

// ActivityBoost is the recovery percentage a recovery activity adds to each targeted muscle group.
func ActivityBoost(t domain.RecoveryActivityType, durationMinutes int, intensity domain.Intensity) int {
	switch t {
	case domain.ActivitySleep:
		if durationMinutes >= 420 {
			return 15
		}
		return 10
	case domain.ActivityMassage:
		return 12
	case domain.ActivityStretching:
		switch intensity {
		case domain.IntensityIntense:
			return 8
		case domain.IntensityModerate:
			return 5
		default:
			return 3
		}
	case domain.ActivityFoamRolling:
		return 7
	case domain.ActivityColdBath:
		return 6
	case domain.ActivitySauna:
		return 5
	default:
		return 0
	}
}

// ActivityScore rates a recovery activity on a 0-100 scale.
func ActivityScore(t domain.RecoveryActivityType, durationMinutes int, intensity domain.Intensity) int {
	score := 50

	switch t {
	case domain.ActivitySleep:
		score += 30
	case domain.ActivityMassage:
		score += 25
	case domain.ActivityStretching, domain.ActivityFoamRolling:
		score += 20
	case domain.ActivityColdBath, domain.ActivitySauna:
		score += 15
	}

	switch {
	case durationMinutes >= 60:
		score += 20
	case durationMinutes >= 30:
		score += 15
	case durationMinutes >= 15:
		score += 10
	default:
		score += 5
	}

	switch intensity {
	case domain.IntensityIntense:
		score += 10
	case domain.IntensityModerate:
		score += 5
	}

	return clamp(score, 0, 100)
}

// NextActivityHint suggests what to do after a recovery activity.
func NextActivityHint(t domain.RecoveryActivityType) string {
	switch t {
	case domain.ActivityStretching:
		return "다음 운동 전 폼롤링을 추천합니다"
	case domain.ActivityFoamRolling:
		return "충분한 수분 섭취를 잊지 마세요"
	case domain.ActivityMassage:
		return "가벼운 스트레칭으로 마무리하세요"
	case domain.ActivityColdBath:
		return "체온 회복을 위해 따뜻한 차를 드세요"
	case domain.ActivitySauna:
		return "수분 보충이 중요합니다"
	case domain.ActivitySleep:
		return "일어나서 가벼운 스트레칭을 해보세요"
	default:
		return ""
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
