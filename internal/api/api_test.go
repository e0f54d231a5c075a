package api

import (
	"alcyxob/workout-recommender/internal/domain"
	"alcyxob/workout-recommender/internal/logger"
	"alcyxob/workout-recommender/internal/repository"
	"alcyxob/workout-recommender/internal/service"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

type fakeRecommender struct {
	lastUser primitive.ObjectID
	lastReq  service.RecommendationRequest
	result   *service.Recommendation
	err      error
}

func (f *fakeRecommender) Recommend(_ context.Context, userID primitive.ObjectID, req service.RecommendationRequest) (*service.Recommendation, error) {
	f.lastUser, f.lastReq = userID, req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeRecovery struct {
	statuses     []service.MuscleRecoveryStatus
	trained      []domain.MuscleGroup
	exerciseIDs  []primitive.ObjectID
	feeling      int
	soreness     int
	activity     service.RecordActivityInput
	err          error
	hasDeadline  bool
	deadlineLeft time.Duration
	days         int
}

func (f *fakeRecovery) GetRecoveryStatus(ctx context.Context, _ primitive.ObjectID) ([]service.MuscleRecoveryStatus, error) {
	if dl, ok := ctx.Deadline(); ok {
		f.hasDeadline, f.deadlineLeft = true, time.Until(dl)
	}
	return f.statuses, f.err
}

func (f *fakeRecovery) UpdateAfterWorkout(_ context.Context, _ primitive.ObjectID, mgs []domain.MuscleGroup) error {
	f.trained = mgs
	return f.err
}

func (f *fakeRecovery) UpdateAfterExercises(_ context.Context, _ primitive.ObjectID, ids []primitive.ObjectID) error {
	f.exerciseIDs = ids
	return f.err
}

func (f *fakeRecovery) ReportFeeling(_ context.Context, _ primitive.ObjectID, mg domain.MuscleGroup, feeling, soreness int) (*service.MuscleRecoveryStatus, error) {
	f.feeling, f.soreness = feeling, soreness
	if f.err != nil {
		return nil, f.err
	}
	return &service.MuscleRecoveryStatus{MuscleGroup: mg, RecoveryPercentage: 90, Status: "ready", SorenessScore: soreness}, nil
}

func (f *fakeRecovery) RecordActivity(_ context.Context, _ primitive.ObjectID, in service.RecordActivityInput) (*service.RecordActivityResult, error) {
	f.activity = in
	if f.err != nil {
		return nil, f.err
	}
	return &service.RecordActivityResult{ActivityID: "a1", RecoveryScore: 95, RecoveryBoost: 12}, nil
}

func (f *fakeRecovery) RecentActivities(_ context.Context, userID primitive.ObjectID, days int) ([]domain.RecoveryActivity, error) {
	f.days = days
	if f.err != nil {
		return nil, f.err
	}
	return []domain.RecoveryActivity{{ID: primitive.NewObjectID(), UserID: userID, Type: domain.ActivitySleep, DurationMinutes: 480}}, nil
}

func (f *fakeRecovery) MusclesToAvoid(context.Context, primitive.ObjectID) ([]domain.MuscleGroup, error) {
	return nil, nil
}

type fakeExercises struct {
	byID  map[primitive.ObjectID]domain.Exercise
	match *service.ExerciseMatch
}

func (f *fakeExercises) GetExercise(_ context.Context, id primitive.ObjectID) (*service.ExerciseView, error) {
	ex, ok := f.byID[id]
	if !ok {
		return nil, service.ErrExerciseNotFound
	}
	return &service.ExerciseView{Exercise: ex}, nil
}

func (f *fakeExercises) MatchExerciseByName(context.Context, string) (*service.ExerciseMatch, error) {
	if f.match == nil {
		return nil, service.ErrExerciseNotFound
	}
	return f.match, nil
}

func (f *fakeExercises) Views(_ context.Context, exercises []domain.Exercise) []service.ExerciseView {
	views := make([]service.ExerciseView, len(exercises))
	for i, ex := range exercises {
		views[i] = service.ExerciseView{Exercise: ex, ImageURL: "https://img/" + ex.ID.Hex()}
	}
	return views
}

type fakeIndexing struct {
	summary  service.IndexSummary
	err      error
	disabled bool
	reindex  primitive.ObjectID
	unindex  primitive.ObjectID
	ctxAlive bool
	release  chan struct{} // holds IndexCatalog open until closed
	ran      chan struct{}
}

func (f *fakeIndexing) Enabled() bool { return !f.disabled }

func (f *fakeIndexing) IndexCatalog(ctx context.Context, _ service.IndexOptions) (service.IndexSummary, error) {
	if f.release != nil {
		<-f.release
	}
	_, hasDeadline := ctx.Deadline()
	f.ctxAlive = !hasDeadline && ctx.Err() == nil
	f.ran <- struct{}{}
	return f.summary, f.err
}

func (f *fakeIndexing) ReindexExercise(_ context.Context, id primitive.ObjectID) (string, error) {
	f.reindex = id
	return "vec-1", f.err
}

func (f *fakeIndexing) UnindexExercise(_ context.Context, id primitive.ObjectID) error {
	f.unindex = id
	return f.err
}

type apiFixture struct {
	router   *gin.Engine
	rec      *fakeRecommender
	recovery *fakeRecovery
	ex       *fakeExercises
	idx      *fakeIndexing
	userID   primitive.ObjectID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &apiFixture{
		router:   gin.New(),
		rec:      &fakeRecommender{result: &service.Recommendation{Path: "vector"}},
		recovery: &fakeRecovery{},
		ex:       &fakeExercises{byID: map[primitive.ObjectID]domain.Exercise{}},
		idx:      &fakeIndexing{ran: make(chan struct{}, 1)},
		userID:   primitive.NewObjectID(),
	}
	SetupRoutes(f.router, logger.Nop(), RouteOptions{
		JWTSecret:      testSecret,
		RequestTimeout: 5 * time.Second,
	}, Services{
		Recommendation: f.rec,
		Recovery:       f.recovery,
		Exercise:       f.ex,
		Indexing:       f.idx,
	})
	return f
}

func signToken(t *testing.T, secret, uid string, role domain.Role, expires time.Time) string {
	t.Helper()
	claims := jwtClaims{
		UserID: uid,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, role domain.Role) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, f.userID.Hex(), role, time.Now().Add(time.Hour)))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestPingIsPublic(t *testing.T) {
	f := newAPIFixture(t)
	if w := f.do(t, http.MethodGet, "/ping", nil, ""); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	f := newAPIFixture(t)
	uid := f.userID.Hex()

	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic abc"},
		{"wrong secret", "Bearer " + signToken(t, "other", uid, domain.RoleUser, time.Now().Add(time.Hour))},
		{"expired", "Bearer " + signToken(t, testSecret, uid, domain.RoleUser, time.Now().Add(-time.Minute))},
		{"missing role", "Bearer " + signToken(t, testSecret, uid, "", time.Now().Add(time.Hour))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/recovery", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestGetRecommendations(t *testing.T) {
	f := newAPIFixture(t)
	squat := domain.Exercise{ID: primitive.NewObjectID(), Name: "바벨 스쿼트", Category: domain.CategoryLegs,
		MuscleGroups: []domain.MuscleGroup{domain.MuscleQuadriceps, domain.MuscleGlutes}}
	f.rec.result = &service.Recommendation{
		Exercises:      []domain.Exercise{squat},
		Path:           "fallback",
		FallbackReason: service.FallbackBreakerOpen,
		AvoidMuscles:   []domain.MuscleGroup{domain.MuscleChest},
	}

	w := f.do(t, http.MethodGet, "/api/v1/recommendations?target=lower&equipment=Barbell&workoutType=legs&limit=5&duration=45", nil, domain.RoleUser)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var resp RecommendationResponse
	decodeBody(t, w, &resp)

	if f.rec.lastUser != f.userID {
		t.Errorf("user = %v, want %v", f.rec.lastUser, f.userID)
	}
	got := f.rec.lastReq
	if got.TargetMuscle != "lower" || got.Equipment != "barbell" || got.WorkoutType != "LEGS" || got.Limit != 5 || got.DurationMinutes != 45 {
		t.Errorf("request = %+v", got)
	}
	if resp.Path != "fallback" || resp.FallbackReason != service.FallbackBreakerOpen {
		t.Errorf("path = %q reason = %q", resp.Path, resp.FallbackReason)
	}
	if len(resp.Exercises) != 1 || resp.Exercises[0].ID != squat.ID.Hex() || !resp.Exercises[0].Compound {
		t.Errorf("exercises = %+v", resp.Exercises)
	}
	if resp.Exercises[0].ImageURL == "" {
		t.Error("image url not attached")
	}
	if len(resp.AvoidMuscles) != 1 || resp.AvoidMuscles[0] != "chest" {
		t.Errorf("avoid = %v", resp.AvoidMuscles)
	}
}

func TestGetRecommendationsErrors(t *testing.T) {
	cases := []struct {
		name  string
		query string
		err   error
		want  int
	}{
		{"bad limit", "?limit=0x", nil, http.StatusBadRequest},
		{"invalid workout type", "?workoutType=DANCE", service.ErrInvalidWorkoutType, http.StatusBadRequest},
		{"invalid target", "?target=wings", service.ErrInvalidMuscleGroup, http.StatusBadRequest},
		{"unknown user", "", service.ErrUserNotFound, http.StatusNotFound},
		{"storage failure", "", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAPIFixture(t)
			f.rec.err = tc.err
			w := f.do(t, http.MethodGet, "/api/v1/recommendations"+tc.query, nil, domain.RoleUser)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestRecoveryStatusCarriesRequestDeadline(t *testing.T) {
	f := newAPIFixture(t)
	f.recovery.statuses = []service.MuscleRecoveryStatus{{MuscleGroup: domain.MuscleChest, RecoveryPercentage: 68, Status: "recovering"}}

	w := f.do(t, http.MethodGet, "/api/v1/recovery", nil, domain.RoleUser)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var statuses []service.MuscleRecoveryStatus
	decodeBody(t, w, &statuses)
	if len(statuses) != 1 || statuses[0].RecoveryPercentage != 68 {
		t.Errorf("statuses = %+v", statuses)
	}
	if !f.recovery.hasDeadline || f.recovery.deadlineLeft > 5*time.Second {
		t.Errorf("deadline = %v (set %v)", f.recovery.deadlineLeft, f.recovery.hasDeadline)
	}
}

func TestCompleteWorkout(t *testing.T) {
	f := newAPIFixture(t)
	exID := primitive.NewObjectID()

	w := f.do(t, http.MethodPost, "/api/v1/recovery/workouts", gin.H{
		"muscleGroups": []string{" Chest ", "triceps"},
		"exerciseIds":  []string{exID.Hex()},
	}, domain.RoleUser)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if len(f.recovery.trained) != 2 || f.recovery.trained[0] != domain.MuscleChest {
		t.Errorf("trained = %v", f.recovery.trained)
	}
	if len(f.recovery.exerciseIDs) != 1 || f.recovery.exerciseIDs[0] != exID {
		t.Errorf("exercise ids = %v", f.recovery.exerciseIDs)
	}

	if w := f.do(t, http.MethodPost, "/api/v1/recovery/workouts", gin.H{}, domain.RoleUser); w.Code != http.StatusBadRequest {
		t.Errorf("empty body status = %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/api/v1/recovery/workouts", gin.H{"exerciseIds": []string{"nope"}}, domain.RoleUser); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", w.Code)
	}

	f.recovery.err = repository.ErrConflict
	if w := f.do(t, http.MethodPost, "/api/v1/recovery/workouts", gin.H{"muscleGroups": []string{"chest"}}, domain.RoleUser); w.Code != http.StatusConflict {
		t.Errorf("conflict status = %d", w.Code)
	}
}

func TestReportFeeling(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/recovery/feelings", gin.H{"muscleGroup": "Quadriceps", "feeling": 7, "soreness": 0}, domain.RoleUser)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var status service.MuscleRecoveryStatus
	decodeBody(t, w, &status)
	if status.MuscleGroup != domain.MuscleQuadriceps || f.recovery.feeling != 7 || f.recovery.soreness != 0 {
		t.Errorf("status = %+v feeling=%d soreness=%d", status, f.recovery.feeling, f.recovery.soreness)
	}

	for _, body := range []gin.H{
		{"muscleGroup": "quads", "feeling": 11, "soreness": 2},
		{"muscleGroup": "quads", "feeling": 5},
		{"feeling": 5, "soreness": 2},
	} {
		if w := f.do(t, http.MethodPost, "/api/v1/recovery/feelings", body, domain.RoleUser); w.Code != http.StatusBadRequest {
			t.Errorf("body %v: status = %d", body, w.Code)
		}
	}
}

func TestRecordActivity(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/recovery/activities", gin.H{
		"type":      "massage",
		"duration":  30,
		"intensity": "intense",
		"bodyParts": []string{"chest"},
	}, domain.RoleUser)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var result service.RecordActivityResult
	decodeBody(t, w, &result)
	if result.RecoveryBoost != 12 || result.RecoveryScore != 95 {
		t.Errorf("result = %+v", result)
	}
	in := f.recovery.activity
	if in.Type != domain.ActivityMassage || in.Intensity != domain.IntensityIntense || in.DurationMinutes != 30 {
		t.Errorf("input = %+v", in)
	}

	f.recovery.err = service.ErrInvalidActivity
	if w := f.do(t, http.MethodPost, "/api/v1/recovery/activities", gin.H{"type": "dancing", "duration": 10}, domain.RoleUser); w.Code != http.StatusBadRequest {
		t.Errorf("invalid activity status = %d", w.Code)
	}
}

func TestExerciseRoutes(t *testing.T) {
	f := newAPIFixture(t)
	bench := domain.Exercise{ID: primitive.NewObjectID(), Name: "벤치 프레스", Category: domain.CategoryChest,
		MuscleGroups: []domain.MuscleGroup{domain.MuscleChest}, VectorID: "v1"}
	f.ex.byID[bench.ID] = bench
	f.ex.match = &service.ExerciseMatch{Exercise: service.ExerciseView{Exercise: bench}, Distance: 1, Normalized: "벤치프레스"}

	w := f.do(t, http.MethodGet, "/api/v1/exercises/"+bench.ID.Hex(), nil, domain.RoleUser)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var resp ExerciseResponse
	decodeBody(t, w, &resp)
	if resp.Name != bench.Name || !resp.Indexed || !resp.Compound {
		t.Errorf("exercise = %+v", resp)
	}

	w = f.do(t, http.MethodGet, "/api/v1/exercises/match?name=%EB%B2%A4%EC%B9%98%ED%94%84%EB%A0%88%EC%8A%A4", nil, domain.RoleUser)
	if w.Code != http.StatusOK {
		t.Fatalf("match status = %d", w.Code)
	}
	var match ExerciseMatchResponse
	decodeBody(t, w, &match)
	if match.Exercise.ID != bench.ID.Hex() || match.Distance != 1 {
		t.Errorf("match = %+v", match)
	}

	if w := f.do(t, http.MethodGet, "/api/v1/exercises/match", nil, domain.RoleUser); w.Code != http.StatusBadRequest {
		t.Errorf("missing name status = %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/api/v1/exercises/xyz", nil, domain.RoleUser); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/api/v1/exercises/"+primitive.NewObjectID().Hex(), nil, domain.RoleUser); w.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d", w.Code)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	f := newAPIFixture(t)
	f.idx.summary = service.IndexSummary{Total: 3, Indexed: 2, Skipped: 1, Duration: 1500 * time.Millisecond}
	f.idx.release = make(chan struct{})

	if w := f.do(t, http.MethodPost, "/api/v1/admin/index", nil, domain.RoleUser); w.Code != http.StatusForbidden {
		t.Fatalf("user status = %d, want 403", w.Code)
	}

	w := f.do(t, http.MethodPost, "/api/v1/admin/index", nil, domain.RoleAdmin)
	if w.Code != http.StatusAccepted {
		t.Fatalf("admin status = %d body=%s", w.Code, w.Body.String())
	}
	var started map[string]string
	decodeBody(t, w, &started)
	if started["status"] != "started" {
		t.Errorf("body = %v", started)
	}
	if w := f.do(t, http.MethodPost, "/api/v1/admin/index", nil, domain.RoleAdmin); w.Code != http.StatusConflict {
		t.Errorf("second run status = %d, want 409", w.Code)
	}

	// The request has completed; the run must still see a live context.
	close(f.idx.release)
	select {
	case <-f.idx.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("catalog indexing did not run")
	}
	if !f.idx.ctxAlive {
		t.Error("catalog indexing should not inherit the request deadline")
	}

	id := primitive.NewObjectID()
	if w := f.do(t, http.MethodPost, "/api/v1/admin/exercises/"+id.Hex()+"/index", nil, domain.RoleAdmin); w.Code != http.StatusOK || f.idx.reindex != id {
		t.Errorf("reindex status = %d id = %v", w.Code, f.idx.reindex)
	}
	if w := f.do(t, http.MethodDelete, "/api/v1/admin/exercises/"+id.Hex()+"/index", nil, domain.RoleAdmin); w.Code != http.StatusNoContent || f.idx.unindex != id {
		t.Errorf("unindex status = %d id = %v", w.Code, f.idx.unindex)
	}

	f.idx.disabled = true
	if w := f.do(t, http.MethodPost, "/api/v1/admin/index", nil, domain.RoleAdmin); w.Code != http.StatusServiceUnavailable {
		t.Errorf("unavailable status = %d", w.Code)
	}
}

func TestListActivities(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/recovery/activities?days=14", nil, domain.RoleUser)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var activities []domain.RecoveryActivity
	decodeBody(t, w, &activities)
	if len(activities) != 1 || activities[0].Type != domain.ActivitySleep || f.recovery.days != 14 {
		t.Errorf("activities = %+v days = %d", activities, f.recovery.days)
	}

	if w := f.do(t, http.MethodGet, "/api/v1/recovery/activities", nil, domain.RoleUser); w.Code != http.StatusOK || f.recovery.days != 0 {
		t.Errorf("default status = %d days = %d", w.Code, f.recovery.days)
	}
	for _, q := range []string{"0", "91", "week"} {
		if w := f.do(t, http.MethodGet, "/api/v1/recovery/activities?days="+q, nil, domain.RoleUser); w.Code != http.StatusBadRequest {
			t.Errorf("days=%s status = %d", q, w.Code)
		}
	}
}
