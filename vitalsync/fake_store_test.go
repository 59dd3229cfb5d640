package vitalsync

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory Store used to exercise the engine without
// PostgreSQL. Failure injection mirrors the real failure surfaces:
// per-record upsert errors, filtered-query errors (forcing the
// compatibility fallback) and fallback errors.
type fakeStore struct {
	mu sync.Mutex

	food       map[string]FoodEntry
	workouts   map[string]WorkoutEntry
	biomarkers map[string]BiomarkerEntry
	goals      map[string]Goal
	profiles   map[string]UserProfile

	schemaWarnings []SchemaWarning
	upsertErr      map[string]error // keyed by record id
	sinceErr       map[EntityKind]error
	allErr         map[EntityKind]error

	ops    []string // method call order, for phase-ordering assertions
	closed bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		food:       make(map[string]FoodEntry),
		workouts:   make(map[string]WorkoutEntry),
		biomarkers: make(map[string]BiomarkerEntry),
		goals:      make(map[string]Goal),
		profiles:   make(map[string]UserProfile),
		upsertErr:  make(map[string]error),
		sinceErr:   make(map[EntityKind]error),
		allErr:     make(map[EntityKind]error),
	}
}

func (f *fakeStore) record(op string) {
	f.ops = append(f.ops, op)
}

func (f *fakeStore) EnsureSchema(ctx context.Context) []SchemaWarning {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("schema")
	return f.schemaWarnings
}

func (f *fakeStore) UpsertFoodEntry(ctx context.Context, e *FoodEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("upsert")
	if err := f.upsertErr[e.ID]; err != nil {
		return err
	}
	f.food[e.ID] = *e
	return nil
}

func (f *fakeStore) UpsertWorkoutEntry(ctx context.Context, e *WorkoutEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("upsert")
	if err := f.upsertErr[e.ID]; err != nil {
		return err
	}
	f.workouts[e.ID] = *e
	return nil
}

func (f *fakeStore) UpsertBiomarkerEntry(ctx context.Context, e *BiomarkerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("upsert")
	if err := f.upsertErr[e.ID]; err != nil {
		return err
	}
	f.biomarkers[e.ID] = *e
	return nil
}

func (f *fakeStore) UpsertGoal(ctx context.Context, g *Goal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("upsert")
	if err := f.upsertErr[g.ID]; err != nil {
		return err
	}
	f.goals[g.ID] = *g
	return nil
}

func (f *fakeStore) UpsertUserProfile(ctx context.Context, p *UserProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("upsert")
	if err := f.upsertErr[p.ID]; err != nil {
		return err
	}
	f.profiles[p.ID] = *p
	return nil
}

func (f *fakeStore) FoodEntriesSince(ctx context.Context, cutoff int64) ([]FoodEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("read")
	if err := f.sinceErr[KindFoodEntries]; err != nil {
		return nil, err
	}
	var out []FoodEntry
	for _, e := range f.food {
		if e.Timestamp > cutoff {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

func (f *fakeStore) WorkoutEntriesSince(ctx context.Context, cutoff int64) ([]WorkoutEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("read")
	if err := f.sinceErr[KindWorkoutEntries]; err != nil {
		return nil, err
	}
	var out []WorkoutEntry
	for _, e := range f.workouts {
		if e.Timestamp > cutoff {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

func (f *fakeStore) BiomarkerEntriesSince(ctx context.Context, cutoff int64) ([]BiomarkerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("read")
	if err := f.sinceErr[KindBiomarkerEntries]; err != nil {
		return nil, err
	}
	var out []BiomarkerEntry
	for _, e := range f.biomarkers {
		if e.Timestamp > cutoff {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

func (f *fakeStore) GoalsSince(ctx context.Context, cutoff int64) ([]Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("read")
	if err := f.sinceErr[KindGoals]; err != nil {
		return nil, err
	}
	var out []Goal
	for _, g := range f.goals {
		if g.CreatedAt > cutoff {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (f *fakeStore) LatestUserProfileSince(ctx context.Context, cutoff int64) (*UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("read")
	if err := f.sinceErr[KindUserProfile]; err != nil {
		return nil, err
	}
	var latest *UserProfile
	for _, p := range f.profiles {
		p := p
		if p.UpdatedAt <= cutoff {
			continue
		}
		if latest == nil || p.UpdatedAt > latest.UpdatedAt {
			latest = &p
		}
	}
	return latest, nil
}

func (f *fakeStore) AllFoodEntries(ctx context.Context) ([]FoodEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("read")
	if err := f.allErr[KindFoodEntries]; err != nil {
		return nil, err
	}
	var out []FoodEntry
	for _, e := range f.food {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) AllWorkoutEntries(ctx context.Context) ([]WorkoutEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("read")
	if err := f.allErr[KindWorkoutEntries]; err != nil {
		return nil, err
	}
	var out []WorkoutEntry
	for _, e := range f.workouts {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) AllBiomarkerEntries(ctx context.Context) ([]BiomarkerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("read")
	if err := f.allErr[KindBiomarkerEntries]; err != nil {
		return nil, err
	}
	var out []BiomarkerEntry
	for _, e := range f.biomarkers {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) AllGoals(ctx context.Context) ([]Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("read")
	if err := f.allErr[KindGoals]; err != nil {
		return nil, err
	}
	var out []Goal
	for _, g := range f.goals {
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeStore) AllUserProfiles(ctx context.Context) ([]UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("read")
	if err := f.allErr[KindUserProfile]; err != nil {
		return nil, err
	}
	var out []UserProfile
	for _, p := range f.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) Close(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

type fakeConnector struct {
	store   *fakeStore
	openErr error
	opened  int
}

func (c *fakeConnector) Open(ctx context.Context, connString string) (Store, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	c.opened++
	return c.store, nil
}

// newTestService wires a service to the fake store with a frozen clock.
func newTestService(store *fakeStore, now time.Time) (*SyncService, *fakeConnector) {
	connector := &fakeConnector{store: store}
	svc := NewSyncService(connector, &ServiceConfig{AppName: "vitalsync-test"}, testLogger())
	svc.clock = func() time.Time { return now }
	return svc, connector
}
