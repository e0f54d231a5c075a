package service

import (
	"alcyxob/workout-recommender/internal/domain"
	"alcyxob/workout-recommender/internal/embedding"
	"alcyxob/workout-recommender/internal/repository"
	"alcyxob/workout-recommender/internal/vectorindex"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeUserRepo struct {
	users map[primitive.ObjectID]*domain.User
	err   error
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[primitive.ObjectID]*domain.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type fakeExerciseRepo struct {
	mu         sync.Mutex
	exercises  []domain.Exercise
	getAllErr  error
	getByIDErr error
	setErr     error
	honorCtx   bool // fail reads once ctx is done, like the Mongo driver
}

func (r *fakeExerciseRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.exercises {
		if r.exercises[i].ID == id {
			ex := r.exercises[i]
			return &ex, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeExerciseRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.honorCtx && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if r.getByIDErr != nil {
		return nil, r.getByIDErr
	}
	want := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []domain.Exercise
	for _, ex := range r.exercises {
		if _, ok := want[ex.ID]; ok {
			out = append(out, ex)
		}
	}
	return out, nil
}

func (r *fakeExerciseRepo) GetAll(ctx context.Context) ([]domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.honorCtx && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if r.getAllErr != nil {
		return nil, r.getAllErr
	}
	return append([]domain.Exercise(nil), r.exercises...), nil
}

func (r *fakeExerciseRepo) SetVectorID(_ context.Context, id primitive.ObjectID, vectorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	for i := range r.exercises {
		if r.exercises[i].ID == id {
			r.exercises[i].VectorID = vectorID
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeExerciseRepo) vectorID(id primitive.ObjectID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.exercises {
		if ex.ID == id {
			return ex.VectorID
		}
	}
	return ""
}

type fakeSessionRepo struct {
	sessions []domain.WorkoutSession
	err      error
}

func (r *fakeSessionRepo) GetByUserSince(_ context.Context, userID primitive.ObjectID, since time.Time) ([]domain.WorkoutSession, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []domain.WorkoutSession
	for _, s := range r.sessions {
		if s.UserID == userID && !s.StartedAt.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

type recoveryKey struct {
	user primitive.ObjectID
	mg   domain.MuscleGroup
}

// fakeRecoveryRepo mirrors the version check of the Mongo repository.
// conflicts makes the next N saves fail as if another writer won.
type fakeRecoveryRepo struct {
	mu        sync.Mutex
	rows      map[recoveryKey]domain.MuscleRecoveryState
	conflicts int
	saves     int
	err       error
}

func newFakeRecoveryRepo(states ...domain.MuscleRecoveryState) *fakeRecoveryRepo {
	r := &fakeRecoveryRepo{rows: map[recoveryKey]domain.MuscleRecoveryState{}}
	for _, st := range states {
		if st.ID.IsZero() {
			st.ID = primitive.NewObjectID()
		}
		if st.Version == 0 {
			st.Version = 1
		}
		r.rows[recoveryKey{st.UserID, st.MuscleGroup}] = st
	}
	return r
}

func (r *fakeRecoveryRepo) GetByUser(_ context.Context, userID primitive.ObjectID) ([]domain.MuscleRecoveryState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	var out []domain.MuscleRecoveryState
	for _, mg := range domain.AllMuscleGroups {
		if st, ok := r.rows[recoveryKey{userID, mg}]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *fakeRecoveryRepo) GetByUserAndMuscle(_ context.Context, userID primitive.ObjectID, mg domain.MuscleGroup) (*domain.MuscleRecoveryState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.rows[recoveryKey{userID, mg}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}

func (r *fakeRecoveryRepo) Save(_ context.Context, state *domain.MuscleRecoveryState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	key := recoveryKey{state.UserID, state.MuscleGroup}
	if r.conflicts > 0 {
		r.conflicts--
		// Simulate a concurrent writer bumping the stored row.
		if cur, ok := r.rows[key]; ok {
			cur.Version++
			r.rows[key] = cur
		}
		return repository.ErrConflict
	}
	cur, exists := r.rows[key]
	if state.ID.IsZero() {
		if exists {
			return repository.ErrConflict
		}
		state.ID = primitive.NewObjectID()
		state.Version = 1
		r.rows[key] = *state
		return nil
	}
	if !exists || cur.Version != state.Version {
		return repository.ErrConflict
	}
	state.Version++
	r.rows[key] = *state
	return nil
}

func (r *fakeRecoveryRepo) row(userID primitive.ObjectID, mg domain.MuscleGroup) (domain.MuscleRecoveryState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.rows[recoveryKey{userID, mg}]
	return st, ok
}

type fakeActivityRepo struct {
	created []domain.RecoveryActivity
}

func (r *fakeActivityRepo) Create(_ context.Context, a *domain.RecoveryActivity) (primitive.ObjectID, error) {
	a.ID = primitive.NewObjectID()
	r.created = append(r.created, *a)
	return a.ID, nil
}

func (r *fakeActivityRepo) GetByUserSince(_ context.Context, userID primitive.ObjectID, since time.Time) ([]domain.RecoveryActivity, error) {
	var out []domain.RecoveryActivity
	for _, a := range r.created {
		if a.UserID == userID && !a.PerformedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeEmbedder struct {
	dim      int
	degraded bool
	calls    atomic.Int64
}

func (e *fakeEmbedder) Dimension() int { return e.dim }

func (e *fakeEmbedder) Embed(_ context.Context, text string) embedding.Result {
	e.calls.Add(1)
	if e.degraded {
		return embedding.Result{Vector: embedding.ZeroVector(e.dim), Degraded: true}
	}
	v := make([]float32, e.dim)
	for i := range v {
		v[i] = float32(len(text)%7+1) / 10
	}
	return embedding.Result{Vector: v}
}

// blockingEmbedder hangs until the caller gives up.
type blockingEmbedder struct{ dim int }

func (e blockingEmbedder) Dimension() int { return e.dim }

func (e blockingEmbedder) Embed(ctx context.Context, _ string) embedding.Result {
	<-ctx.Done()
	return embedding.Result{Vector: embedding.ZeroVector(e.dim), Degraded: true}
}

type fakeIndex struct {
	mu          sync.Mutex
	matches     []vectorindex.Match
	searchErr   error
	upsertErr   map[string]error // by exercise id
	searches    int
	lastFilter  map[string]any
	lastLimit   int
	upserts     map[string]map[string]any
	deleted     []string
	deletedByEx []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{upserts: map[string]map[string]any{}, upsertErr: map[string]error{}}
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, limit int, _ float64, filter map[string]any) ([]vectorindex.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	f.lastFilter = filter
	f.lastLimit = limit
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.matches, nil
}

func (f *fakeIndex) Upsert(_ context.Context, exerciseID string, _ []float32, payload map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.upsertErr[exerciseID]; err != nil {
		return "", err
	}
	f.upserts[exerciseID] = payload
	return vectorindex.PointID(exerciseID), nil
}

func (f *fakeIndex) Delete(_ context.Context, pointID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, pointID)
	return nil
}

func (f *fakeIndex) DeleteByExerciseID(_ context.Context, exerciseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedByEx = append(f.deletedByEx, exerciseID)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
