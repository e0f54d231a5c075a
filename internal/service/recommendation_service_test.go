package service

import (
	"alcyxob/workout-recommender/internal/domain"
	"alcyxob/workout-recommender/internal/logger"
	"alcyxob/workout-recommender/internal/vectorindex"
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func oid(hex string) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		panic(err)
	}
	return id
}

var (
	squat       = domain.Exercise{ID: oid("000000000000000000000001"), Name: "바벨 스쿼트", Category: domain.CategoryLegs, MuscleGroups: []domain.MuscleGroup{domain.MuscleQuadriceps, domain.MuscleGlutes}, Equipment: domain.EquipmentBarbell, Tier: domain.TierEssential, Popularity: 95, Difficulty: 50, IsBasic: true}
	legPress    = domain.Exercise{ID: oid("000000000000000000000002"), Name: "레그 프레스", Category: domain.CategoryLegs, MuscleGroups: []domain.MuscleGroup{domain.MuscleQuadriceps}, Equipment: domain.EquipmentMachine, Tier: domain.TierStandard, Popularity: 80, Difficulty: 30}
	deadlift    = domain.Exercise{ID: oid("000000000000000000000003"), Name: "데드리프트", Category: domain.CategoryBack, MuscleGroups: []domain.MuscleGroup{domain.MuscleBack, domain.MuscleHamstrings}, Equipment: domain.EquipmentBarbell, Tier: domain.TierEssential, Popularity: 90, Difficulty: 60, IsBasic: true}
	latPulldown = domain.Exercise{ID: oid("000000000000000000000004"), Name: "랫 풀다운", Category: domain.CategoryBack, MuscleGroups: []domain.MuscleGroup{domain.MuscleLats}, Equipment: domain.EquipmentCable, Tier: domain.TierEssential, Popularity: 85, Difficulty: 25}
	bench       = domain.Exercise{ID: oid("000000000000000000000005"), Name: "벤치 프레스", Category: domain.CategoryChest, MuscleGroups: []domain.MuscleGroup{domain.MuscleChest, domain.MuscleTriceps}, Equipment: domain.EquipmentBarbell, Tier: domain.TierEssential, Popularity: 95, Difficulty: 45, IsBasic: true}
	dbFly       = domain.Exercise{ID: oid("000000000000000000000006"), Name: "덤벨 플라이", Category: domain.CategoryChest, MuscleGroups: []domain.MuscleGroup{domain.MuscleChest}, Equipment: domain.EquipmentDumbbell, Tier: domain.TierStandard, Popularity: 60, Difficulty: 35}
	ohp         = domain.Exercise{ID: oid("000000000000000000000007"), Name: "오버헤드 프레스", Category: domain.CategoryShoulders, MuscleGroups: []domain.MuscleGroup{domain.MuscleShoulders, domain.MuscleTriceps}, Equipment: domain.EquipmentBarbell, Tier: domain.TierEssential, Popularity: 80, Difficulty: 50, IsBasic: true}
	curl        = domain.Exercise{ID: oid("000000000000000000000008"), Name: "덤벨 컬", Category: domain.CategoryArms, MuscleGroups: []domain.MuscleGroup{domain.MuscleBiceps}, Equipment: domain.EquipmentDumbbell, Tier: domain.TierStandard, Popularity: 70, Difficulty: 20}
	plank       = domain.Exercise{ID: oid("000000000000000000000009"), Name: "플랭크", Category: domain.CategoryCore, MuscleGroups: []domain.MuscleGroup{domain.MuscleCore}, Equipment: domain.EquipmentBodyweight, Tier: domain.TierEssential, Popularity: 75, Difficulty: 15}
	pushup      = domain.Exercise{ID: oid("00000000000000000000000a"), Name: "푸시업", Category: domain.CategoryChest, MuscleGroups: []domain.MuscleGroup{domain.MuscleChest, domain.MuscleShoulders, domain.MuscleTriceps}, Equipment: domain.EquipmentBodyweight, Tier: domain.TierEssential, Popularity: 85, Difficulty: 20, IsBasic: true}
)

func testCatalog() []domain.Exercise {
	return []domain.Exercise{squat, legPress, deadlift, latPulldown, bench, dbFly, ohp, curl, plank, pushup}
}

func matchesFor(exercises ...domain.Exercise) []vectorindex.Match {
	out := make([]vectorindex.Match, len(exercises))
	for i, ex := range exercises {
		out[i] = vectorindex.Match{ExerciseID: ex.ID.Hex(), PointID: vectorindex.PointID(ex.ID.Hex()), Score: 0.9 - float64(i)*0.01}
	}
	return out
}

func completedSets(n int) []domain.ExerciseSet {
	sets := make([]domain.ExerciseSet, n)
	for i := range sets {
		sets[i] = domain.ExerciseSet{Weight: 40, Reps: 10, Completed: true}
	}
	return sets
}

type recommendFixture struct {
	user      *domain.User
	users     *fakeUserRepo
	exercises *fakeExerciseRepo
	sessions  *fakeSessionRepo
	recovery  *fakeRecoveryRepo
	embedder  *fakeEmbedder
	index     *fakeIndex
	cfg       RecommendationConfig
}

func newRecommendFixture() *recommendFixture {
	user := &domain.User{
		ID:      primitive.NewObjectID(),
		Name:    "lifter",
		Profile: domain.UserProfile{Goals: []string{"근력 향상"}, ExperienceLevel: "INTERMEDIATE"},
	}
	return &recommendFixture{
		user:      user,
		users:     newFakeUserRepo(user),
		exercises: &fakeExerciseRepo{exercises: testCatalog()},
		sessions:  &fakeSessionRepo{},
		recovery:  newFakeRecoveryRepo(),
		embedder:  &fakeEmbedder{dim: 8},
		index:     newFakeIndex(),
	}
}

func (f *recommendFixture) trainedHoursAgo(mg domain.MuscleGroup, h int) {
	f.recovery.rows[recoveryKey{f.user.ID, mg}] = domain.MuscleRecoveryState{
		ID: primitive.NewObjectID(), UserID: f.user.ID, MuscleGroup: mg, LastTrained: hoursAgo(h), Version: 1,
	}
}

func (f *recommendFixture) service() *recommendationService {
	recovery := NewRecoveryService(logger.Nop(), f.users, f.recovery, &fakeActivityRepo{}, f.exercises).(*recoveryService)
	recovery.now = fixedClock(testNow)

	svc := NewRecommendationService(logger.Nop(), f.cfg, f.users, f.exercises, f.sessions, recovery, f.embedder, f.index).(*recommendationService)
	svc.now = fixedClock(testNow)
	return svc
}

func names(exercises []domain.Exercise) []string {
	out := make([]string, len(exercises))
	for i, ex := range exercises {
		out[i] = ex.Name
	}
	return out
}

func assertNames(t *testing.T, got []domain.Exercise, want ...domain.Exercise) {
	t.Helper()
	g, w := names(got), names(want)
	if len(g) != len(w) {
		t.Fatalf("got %v, want %v", g, w)
	}
	for i := range g {
		if g[i] != w[i] {
			t.Fatalf("got %v, want %v", g, w)
		}
	}
}

func assertNoAvoided(t *testing.T, exercises []domain.Exercise, avoid ...domain.MuscleGroup) {
	t.Helper()
	set := muscleSet(avoid)
	for _, ex := range exercises {
		if ex.TargetsAny(set) {
			t.Errorf("%s targets an avoided muscle %v", ex.Name, avoid)
		}
	}
}

func TestRecommendVectorPath(t *testing.T) {
	f := newRecommendFixture()
	f.trainedHoursAgo(domain.MuscleChest, 10)
	// Duplicate hit and a malformed id must not leak into the result.
	f.index.matches = append(matchesFor(testCatalog()...), matchesFor(squat)[0], vectorindex.Match{ExerciseID: "not-an-id", Score: 0.5})

	rec, err := f.service().Recommend(context.Background(), f.user.ID, RecommendationRequest{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Path != "vector" || rec.FallbackReason != "" {
		t.Fatalf("path = %q reason = %q", rec.Path, rec.FallbackReason)
	}
	assertNames(t, rec.Exercises, squat, legPress, deadlift, latPulldown, ohp, curl, plank)
	assertNoAvoided(t, rec.Exercises, domain.MuscleChest)

	if f.index.lastLimit != 10*3 {
		t.Errorf("search limit = %d, want 30", f.index.lastLimit)
	}
	if f.index.lastFilter != nil {
		t.Errorf("filter = %v, want none", f.index.lastFilter)
	}
}

func TestRecommendRespectsLimit(t *testing.T) {
	f := newRecommendFixture()
	f.index.matches = matchesFor(testCatalog()...)
	f.cfg.MaxLimit = 4

	svc := f.service()
	rec, err := svc.Recommend(context.Background(), f.user.ID, RecommendationRequest{Limit: 3})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(rec.Exercises) != 3 {
		t.Fatalf("got %d exercises, want 3", len(rec.Exercises))
	}

	rec, err = svc.Recommend(context.Background(), f.user.ID, RecommendationRequest{Limit: 100})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(rec.Exercises) != 4 {
		t.Fatalf("got %d exercises, want max limit 4", len(rec.Exercises))
	}
	seen := map[primitive.ObjectID]bool{}
	for _, ex := range rec.Exercises {
		if seen[ex.ID] {
			t.Fatalf("duplicate exercise %s", ex.Name)
		}
		seen[ex.ID] = true
	}
}

func TestRecommendEquipmentFilterOnVectorPath(t *testing.T) {
	f := newRecommendFixture()
	f.index.matches = matchesFor(testCatalog()...)

	rec, err := f.service().Recommend(context.Background(), f.user.ID, RecommendationRequest{Equipment: domain.EquipmentDumbbell})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if got := f.index.lastFilter[vectorindex.PayloadEquipment]; got != "dumbbell" {
		t.Errorf("search filter = %v", f.index.lastFilter)
	}
	assertNames(t, rec.Exercises, dbFly, curl)
}

func TestRecommendFallbackOnSearchError(t *testing.T) {
	f := newRecommendFixture()
	f.trainedHoursAgo(domain.MuscleChest, 10)
	f.index.searchErr = errors.New("connection refused")

	rec, err := f.service().Recommend(context.Background(), f.user.ID, RecommendationRequest{Equipment: domain.EquipmentBarbell})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Path != "fallback" || rec.FallbackReason != FallbackSearchError {
		t.Fatalf("path = %q reason = %q", rec.Path, rec.FallbackReason)
	}
	assertNames(t, rec.Exercises, squat, deadlift, ohp)
	assertNoAvoided(t, rec.Exercises, domain.MuscleChest)
	for _, ex := range rec.Exercises {
		if ex.Equipment != domain.EquipmentBarbell {
			t.Errorf("%s uses %s", ex.Name, ex.Equipment)
		}
	}
}

func TestRecommendFallbackOnDegradedEmbedding(t *testing.T) {
	f := newRecommendFixture()
	f.embedder.degraded = true
	f.index.matches = matchesFor(testCatalog()...)

	rec, err := f.service().Recommend(context.Background(), f.user.ID, RecommendationRequest{Limit: 2})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.FallbackReason != FallbackEmbeddingDegraded {
		t.Fatalf("reason = %q", rec.FallbackReason)
	}
	if f.index.searches != 0 {
		t.Error("search must be skipped for a degraded embedding")
	}
	assertNames(t, rec.Exercises, squat, legPress)
}

func TestRecommendFallbackWithTarget(t *testing.T) {
	f := newRecommendFixture()
	f.index.searchErr = errors.New("boom")

	rec, err := f.service().Recommend(context.Background(), f.user.ID, RecommendationRequest{TargetMuscle: "back"})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	assertNames(t, rec.Exercises, deadlift, latPulldown)

	rec, err = f.service().Recommend(context.Background(), f.user.ID, RecommendationRequest{WorkoutType: domain.WorkoutPush})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	assertNames(t, rec.Exercises, bench, pushup, dbFly, ohp)
}

func TestRecommendAvoidsRecentAndHighVolumeMuscles(t *testing.T) {
	f := newRecommendFixture()
	f.index.matches = matchesFor(testCatalog()...)
	f.sessions.sessions = []domain.WorkoutSession{
		{
			UserID:    f.user.ID,
			StartedAt: testNow.Add(-24 * time.Hour),
			Exercises: []domain.SessionExercise{{ExerciseID: deadlift.ID, Sets: completedSets(3)}},
		},
		{
			UserID:    f.user.ID,
			StartedAt: testNow.Add(-5 * 24 * time.Hour),
			Exercises: []domain.SessionExercise{{ExerciseID: curl.ID, Sets: completedSets(21)}},
		},
	}

	rec, err := f.service().Recommend(context.Background(), f.user.ID, RecommendationRequest{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	want := []domain.MuscleGroup{domain.MuscleBack, domain.MuscleBiceps, domain.MuscleHamstrings}
	if len(rec.AvoidMuscles) != len(want) {
		t.Fatalf("avoid = %v, want %v", rec.AvoidMuscles, want)
	}
	assertNoAvoided(t, rec.Exercises, want...)
	if len(rec.Exercises) == 0 {
		t.Fatal("expected recommendations")
	}
}

func TestRecommendBreakerOpensAfterFailures(t *testing.T) {
	f := newRecommendFixture()
	f.cfg.BreakerFailures = 2
	f.cfg.BreakerCooldown = time.Hour
	f.index.searchErr = errors.New("timeout")
	svc := f.service()

	var reasons []string
	for i := 0; i < 3; i++ {
		rec, err := svc.Recommend(context.Background(), f.user.ID, RecommendationRequest{})
		if err != nil {
			t.Fatalf("Recommend: %v", err)
		}
		reasons = append(reasons, rec.FallbackReason)
	}
	if reasons[2] != FallbackBreakerOpen {
		t.Errorf("reasons = %v, want breaker open on third call", reasons)
	}
	if f.index.searches != 2 {
		t.Errorf("searches = %d, want 2", f.index.searches)
	}
}

func TestRecommendSkipsVectorPathNearDeadline(t *testing.T) {
	f := newRecommendFixture()
	f.index.matches = matchesFor(testCatalog()...)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	rec, err := f.service().Recommend(ctx, f.user.ID, RecommendationRequest{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.FallbackReason != FallbackDeadline {
		t.Fatalf("reason = %q", rec.FallbackReason)
	}
	if f.embedder.calls.Load() != 0 {
		t.Error("embedder must not be called without budget")
	}
}

func TestRecommendVectorPathLeavesTimeForFallback(t *testing.T) {
	f := newRecommendFixture()
	f.exercises.honorCtx = true
	recovery := NewRecoveryService(logger.Nop(), f.users, f.recovery, &fakeActivityRepo{}, f.exercises)
	svc := NewRecommendationService(logger.Nop(), RecommendationConfig{VectorTimeout: 3 * time.Second, MinVectorBudget: 500 * time.Millisecond},
		f.users, f.exercises, f.sessions, recovery, blockingEmbedder{dim: 8}, f.index)

	ctx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	defer cancel()
	rec, err := svc.Recommend(ctx, f.user.ID, RecommendationRequest{Limit: 3})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Path != "fallback" || rec.FallbackReason != FallbackEmbeddingDegraded {
		t.Fatalf("path = %q reason = %q", rec.Path, rec.FallbackReason)
	}
	if len(rec.Exercises) != 3 {
		t.Fatalf("got %d exercises, want 3", len(rec.Exercises))
	}
}

func TestRecommendFallbackOnSessionHistoryError(t *testing.T) {
	f := newRecommendFixture()
	f.trainedHoursAgo(domain.MuscleChest, 10)
	f.sessions.err = errors.New("db down")
	f.index.matches = matchesFor(testCatalog()...)

	rec, err := f.service().Recommend(context.Background(), f.user.ID, RecommendationRequest{Limit: 5})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Path != "fallback" || rec.FallbackReason != FallbackSessionError {
		t.Fatalf("path = %q reason = %q", rec.Path, rec.FallbackReason)
	}
	if len(rec.AvoidMuscles) != 1 || rec.AvoidMuscles[0] != domain.MuscleChest {
		t.Errorf("avoid = %v, want [chest]", rec.AvoidMuscles)
	}
	if len(rec.Exercises) != 5 {
		t.Fatalf("got %d exercises, want 5", len(rec.Exercises))
	}
	assertNoAvoided(t, rec.Exercises, domain.MuscleChest)
	if f.embedder.calls.Load() != 0 {
		t.Error("vector path must be skipped without session history")
	}
}

func TestRecommendAvoidsCategoryMuscleOfUntaggedExercise(t *testing.T) {
	crossover := domain.Exercise{ID: oid("00000000000000000000000b"), Name: "케이블 크로스오버", Category: domain.CategoryChest, Equipment: domain.EquipmentCable, Tier: domain.TierEssential, Popularity: 99, Difficulty: 30}

	for _, forceFallback := range []bool{false, true} {
		f := newRecommendFixture()
		f.exercises.exercises = append(testCatalog(), crossover)
		f.index.matches = matchesFor(append([]domain.Exercise{crossover}, testCatalog()...)...)
		f.trainedHoursAgo(domain.MuscleChest, 10)
		if forceFallback {
			f.index.searchErr = errors.New("down")
		}

		rec, err := f.service().Recommend(context.Background(), f.user.ID, RecommendationRequest{Limit: 20})
		if err != nil {
			t.Fatalf("Recommend: %v", err)
		}
		if forceFallback != (rec.Path == "fallback") {
			t.Fatalf("path = %q, fallback forced = %v", rec.Path, forceFallback)
		}
		for _, ex := range rec.Exercises {
			if ex.ID == crossover.ID {
				t.Errorf("path %s returned %s while chest is recovering", rec.Path, ex.Name)
			}
		}
		if len(rec.Exercises) == 0 {
			t.Errorf("path %s returned nothing", rec.Path)
		}
	}
}

func TestRecommendWithoutVectorIndex(t *testing.T) {
	f := newRecommendFixture()
	recovery := NewRecoveryService(logger.Nop(), f.users, f.recovery, &fakeActivityRepo{}, f.exercises)
	svc := NewRecommendationService(logger.Nop(), RecommendationConfig{}, f.users, f.exercises, f.sessions, recovery, nil, nil)

	rec, err := svc.Recommend(context.Background(), f.user.ID, RecommendationRequest{Limit: 5})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.FallbackReason != FallbackVectorDisabled || len(rec.Exercises) != 5 {
		t.Fatalf("rec = %+v", rec)
	}
}

func TestRecommendErrors(t *testing.T) {
	t.Run("unknown user", func(t *testing.T) {
		f := newRecommendFixture()
		_, err := f.service().Recommend(context.Background(), primitive.NewObjectID(), RecommendationRequest{})
		if !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("err = %v, want ErrUserNotFound", err)
		}
	})
	t.Run("invalid target", func(t *testing.T) {
		f := newRecommendFixture()
		_, err := f.service().Recommend(context.Background(), f.user.ID, RecommendationRequest{TargetMuscle: "wings"})
		if !errors.Is(err, ErrInvalidMuscleGroup) {
			t.Fatalf("err = %v, want ErrInvalidMuscleGroup", err)
		}
	})
	t.Run("invalid workout type", func(t *testing.T) {
		f := newRecommendFixture()
		_, err := f.service().Recommend(context.Background(), f.user.ID, RecommendationRequest{WorkoutType: "CARDIO_DANCE"})
		if !errors.Is(err, ErrInvalidWorkoutType) {
			t.Fatalf("err = %v, want ErrInvalidWorkoutType", err)
		}
	})
	t.Run("catalog unavailable on fallback", func(t *testing.T) {
		f := newRecommendFixture()
		f.index.searchErr = errors.New("down")
		f.exercises.getAllErr = errors.New("db down")
		if _, err := f.service().Recommend(context.Background(), f.user.ID, RecommendationRequest{}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestRecommendEmptyCatalog(t *testing.T) {
	f := newRecommendFixture()
	f.exercises.exercises = nil
	rec, err := f.service().Recommend(context.Background(), f.user.ID, RecommendationRequest{})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(rec.Exercises) != 0 || rec.Path != "fallback" {
		t.Fatalf("rec = %+v", rec)
	}
}
