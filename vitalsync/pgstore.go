// Copyright 2025 The vitalsync Authors
// SPDX-License-Identifier: Apache-2.0

package vitalsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGConnector opens per-session stores against PostgreSQL. Pools are
// cached per connection string; every opened Store holds exactly one
// acquired connection, released by Close.
type PGConnector struct {
	logger  *slog.Logger
	appName string

	mu    sync.Mutex
	pools map[string]*pgxpool.Pool
}

// NewPGConnector creates a connector. appName is reported to Postgres
// via application_name for connection tracking.
func NewPGConnector(appName string, logger *slog.Logger) *PGConnector {
	if logger == nil {
		logger = slog.Default()
	}
	if appName == "" {
		appName = "vitalsync"
	}
	return &PGConnector{
		logger:  logger,
		appName: appName,
		pools:   make(map[string]*pgxpool.Pool),
	}
}

// Open acquires one connection for one sync session. Any failure here
// is a ConnectivityError and fails the session atomically.
func (c *PGConnector) Open(ctx context.Context, connString string) (Store, error) {
	pool, err := c.pool(ctx, connString)
	if err != nil {
		return nil, &ConnectivityError{Err: err}
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, &ConnectivityError{Err: err}
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Release()
		return nil, &ConnectivityError{Err: err}
	}
	return &pgStore{conn: conn, logger: c.logger}, nil
}

func (c *PGConnector) pool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pool, ok := c.pools[connString]; ok {
		return pool, nil
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.ConnConfig.RuntimeParams["application_name"] = c.appName

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	c.pools[connString] = pool
	return pool, nil
}

// Close shuts down all cached pools. Intended for process shutdown.
func (c *PGConnector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for dsn, pool := range c.pools {
		pool.Close()
		delete(c.pools, dsn)
	}
}

// pgStore is one session's acquired connection.
type pgStore struct {
	conn   *pgxpool.Conn
	logger *slog.Logger
}

func (p *pgStore) Close(ctx context.Context) {
	p.conn.Release()
}

// --- push: idempotent upserts, full-column overwrite ---------------------

// Every mutable column is set to the local value unconditionally (push
// always wins for whatever it writes); the audit updated_at column is
// refreshed on every upsert even when no domain field changed.

const upsertFoodEntrySQL = `
INSERT INTO food_entries (id, user_id, name, calories, protein, carbs, fat, meal_type, ts)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	user_id    = EXCLUDED.user_id,
	name       = EXCLUDED.name,
	calories   = EXCLUDED.calories,
	protein    = EXCLUDED.protein,
	carbs      = EXCLUDED.carbs,
	fat        = EXCLUDED.fat,
	meal_type  = EXCLUDED.meal_type,
	ts         = EXCLUDED.ts,
	updated_at = now()`

func (p *pgStore) UpsertFoodEntry(ctx context.Context, e *FoodEntry) error {
	_, err := p.conn.Exec(ctx, upsertFoodEntrySQL,
		e.ID, e.UserID, e.Name, e.Calories, e.Protein, e.Carbs, e.Fat, e.MealType, e.Timestamp)
	return err
}

const upsertWorkoutEntrySQL = `
INSERT INTO workout_entries (id, user_id, name, workout_type, duration_min, calories_burned, exercises, notes, ts)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	user_id         = EXCLUDED.user_id,
	name            = EXCLUDED.name,
	workout_type    = EXCLUDED.workout_type,
	duration_min    = EXCLUDED.duration_min,
	calories_burned = EXCLUDED.calories_burned,
	exercises       = EXCLUDED.exercises,
	notes           = EXCLUDED.notes,
	ts              = EXCLUDED.ts,
	updated_at      = now()`

func (p *pgStore) UpsertWorkoutEntry(ctx context.Context, e *WorkoutEntry) error {
	_, err := p.conn.Exec(ctx, upsertWorkoutEntrySQL,
		e.ID, e.UserID, e.Name, e.WorkoutType, e.DurationMin, e.CaloriesBurned,
		encodeBlob(e.Exercises), e.Notes, e.Timestamp)
	return err
}

const upsertBiomarkerEntrySQL = `
INSERT INTO biomarker_entries (id, user_id, marker_type, value, unit, notes, ts)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	user_id     = EXCLUDED.user_id,
	marker_type = EXCLUDED.marker_type,
	value       = EXCLUDED.value,
	unit        = EXCLUDED.unit,
	notes       = EXCLUDED.notes,
	ts          = EXCLUDED.ts,
	updated_at  = now()`

func (p *pgStore) UpsertBiomarkerEntry(ctx context.Context, e *BiomarkerEntry) error {
	_, err := p.conn.Exec(ctx, upsertBiomarkerEntrySQL,
		e.ID, e.UserID, e.MarkerType, e.Value, e.Unit, e.Notes, e.Timestamp)
	return err
}

const upsertGoalSQL = `
INSERT INTO goals (id, user_id, title, description, category, target_value, current_value, unit, status, milestones, created_at_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
	user_id       = EXCLUDED.user_id,
	title         = EXCLUDED.title,
	description   = EXCLUDED.description,
	category      = EXCLUDED.category,
	target_value  = EXCLUDED.target_value,
	current_value = EXCLUDED.current_value,
	unit          = EXCLUDED.unit,
	status        = EXCLUDED.status,
	milestones    = EXCLUDED.milestones,
	created_at_ms = EXCLUDED.created_at_ms,
	updated_at    = now()`

func (p *pgStore) UpsertGoal(ctx context.Context, g *Goal) error {
	_, err := p.conn.Exec(ctx, upsertGoalSQL,
		g.ID, g.UserID, g.Title, g.Description, g.Category, g.TargetValue, g.CurrentValue,
		g.Unit, g.Status, encodeBlob(g.Milestones), g.CreatedAt)
	return err
}

const upsertUserProfileSQL = `
INSERT INTO user_profiles (id, name, age, height_cm, weight_kg, gender, activity_level, preferences, created_at_ms, updated_at_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
	name           = EXCLUDED.name,
	age            = EXCLUDED.age,
	height_cm      = EXCLUDED.height_cm,
	weight_kg      = EXCLUDED.weight_kg,
	gender         = EXCLUDED.gender,
	activity_level = EXCLUDED.activity_level,
	preferences    = EXCLUDED.preferences,
	created_at_ms  = EXCLUDED.created_at_ms,
	updated_at_ms  = EXCLUDED.updated_at_ms,
	updated_at     = now()`

func (p *pgStore) UpsertUserProfile(ctx context.Context, up *UserProfile) error {
	_, err := p.conn.Exec(ctx, upsertUserProfileSQL,
		up.ID, up.Name, up.Age, up.HeightCm, up.WeightKg, up.Gender, up.ActivityLevel,
		encodeBlob(up.Preferences), up.CreatedAt, up.UpdatedAt)
	return err
}

// --- pull: primary timestamp-filtered queries ----------------------------

const selectFoodEntriesSinceSQL = `
SELECT id, COALESCE(user_id,''), COALESCE(name,''), COALESCE(calories,0),
       COALESCE(protein,0), COALESCE(carbs,0), COALESCE(fat,0),
       COALESCE(meal_type,''), ts
FROM food_entries
WHERE ts > $1
ORDER BY ts DESC`

func (p *pgStore) FoodEntriesSince(ctx context.Context, cutoff int64) ([]FoodEntry, error) {
	rows, err := p.conn.Query(ctx, selectFoodEntriesSinceSQL, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FoodEntry
	for rows.Next() {
		var e FoodEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.Calories, &e.Protein,
			&e.Carbs, &e.Fat, &e.MealType, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const selectWorkoutEntriesSinceSQL = `
SELECT id, COALESCE(user_id,''), COALESCE(name,''), COALESCE(workout_type,''),
       COALESCE(duration_min,0), COALESCE(calories_burned,0), exercises,
       COALESCE(notes,''), ts
FROM workout_entries
WHERE ts > $1
ORDER BY ts DESC`

func (p *pgStore) WorkoutEntriesSince(ctx context.Context, cutoff int64) ([]WorkoutEntry, error) {
	rows, err := p.conn.Query(ctx, selectWorkoutEntriesSinceSQL, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WorkoutEntry
	for rows.Next() {
		var e WorkoutEntry
		var exercises *string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.WorkoutType, &e.DurationMin,
			&e.CaloriesBurned, &exercises, &e.Notes, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Exercises = decodeExercises(exercises)
		out = append(out, e)
	}
	return out, rows.Err()
}

const selectBiomarkerEntriesSinceSQL = `
SELECT id, COALESCE(user_id,''), COALESCE(marker_type,''), COALESCE(value,0),
       COALESCE(unit,''), COALESCE(notes,''), ts
FROM biomarker_entries
WHERE ts > $1
ORDER BY ts DESC`

func (p *pgStore) BiomarkerEntriesSince(ctx context.Context, cutoff int64) ([]BiomarkerEntry, error) {
	rows, err := p.conn.Query(ctx, selectBiomarkerEntriesSinceSQL, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BiomarkerEntry
	for rows.Next() {
		var e BiomarkerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.MarkerType, &e.Value, &e.Unit,
			&e.Notes, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const selectGoalsSinceSQL = `
SELECT id, COALESCE(user_id,''), COALESCE(title,''), COALESCE(description,''),
       COALESCE(category,''), COALESCE(target_value,0), COALESCE(current_value,0),
       COALESCE(unit,''), COALESCE(status,''), milestones, COALESCE(created_at_ms,0)
FROM goals
WHERE created_at_ms > $1
ORDER BY created_at_ms DESC`

func (p *pgStore) GoalsSince(ctx context.Context, cutoff int64) ([]Goal, error) {
	rows, err := p.conn.Query(ctx, selectGoalsSinceSQL, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Goal
	for rows.Next() {
		var g Goal
		var milestones *string
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.Category,
			&g.TargetValue, &g.CurrentValue, &g.Unit, &g.Status, &milestones,
			&g.CreatedAt); err != nil {
			return nil, err
		}
		g.Milestones = decodeMilestones(milestones)
		out = append(out, g)
	}
	return out, rows.Err()
}

const selectLatestUserProfileSinceSQL = `
SELECT id, COALESCE(name,''), COALESCE(age,0), COALESCE(height_cm,0),
       COALESCE(weight_kg,0), COALESCE(gender,''), COALESCE(activity_level,''),
       preferences, COALESCE(created_at_ms,0), COALESCE(updated_at_ms,0)
FROM user_profiles
WHERE updated_at_ms > $1
ORDER BY updated_at_ms DESC
LIMIT 1`

func (p *pgStore) LatestUserProfileSince(ctx context.Context, cutoff int64) (*UserProfile, error) {
	var up UserProfile
	var preferences *string
	err := p.conn.QueryRow(ctx, selectLatestUserProfileSinceSQL, cutoff).Scan(
		&up.ID, &up.Name, &up.Age, &up.HeightCm, &up.WeightKg, &up.Gender,
		&up.ActivityLevel, &preferences, &up.CreatedAt, &up.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	up.Preferences = decodePreferences(preferences)
	return &up, nil
}

// --- pull: unfiltered compatibility reads --------------------------------

// The fallback reads select each row as a single JSON document so they
// stay valid against legacy schemas that predate the additive millis
// columns. Ordering is on the server audit column. Domain timestamps
// missing from a row are backfilled from the audit columns so the
// engine's application-side cutoff still applies; rows with no usable
// timestamp at all decode with a zero timestamp and are excluded there.

func (p *pgStore) rowsAsJSON(ctx context.Context, table string) ([][]byte, error) {
	// Table names are fixed engine constants, never caller input.
	q := fmt.Sprintf(`SELECT to_jsonb(t) FROM %s AS t ORDER BY t.updated_at DESC NULLS LAST`, table)
	rows, err := p.conn.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

type auditTimes struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a auditTimes) createdMillis() int64 {
	if a.CreatedAt.IsZero() {
		return 0
	}
	return a.CreatedAt.UnixMilli()
}

func (a auditTimes) updatedMillis() int64 {
	if a.UpdatedAt.IsZero() {
		return 0
	}
	return a.UpdatedAt.UnixMilli()
}

// Row documents decoded from to_jsonb use database column names, not
// the client-facing camelCase names on the domain entities.

type foodEntryRow struct {
	ID       string  `json:"id"`
	UserID   string  `json:"user_id"`
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	MealType string  `json:"meal_type"`
	TS       int64   `json:"ts"`
	auditTimes
}

func (r *foodEntryRow) toEntity() FoodEntry {
	ts := r.TS
	if ts == 0 {
		ts = r.createdMillis()
	}
	return FoodEntry{
		ID: r.ID, UserID: r.UserID, Name: r.Name,
		Calories: r.Calories, Protein: r.Protein, Carbs: r.Carbs, Fat: r.Fat,
		MealType: r.MealType, Timestamp: ts,
	}
}

func (p *pgStore) AllFoodEntries(ctx context.Context) ([]FoodEntry, error) {
	docs, err := p.rowsAsJSON(ctx, "food_entries")
	if err != nil {
		return nil, err
	}
	out := make([]FoodEntry, 0, len(docs))
	for _, doc := range docs {
		var row foodEntryRow
		if err := json.Unmarshal(doc, &row); err != nil {
			p.logger.Debug("Skipping undecodable food entry row", "error", err)
			continue
		}
		out = append(out, row.toEntity())
	}
	return out, nil
}

type workoutEntryRow struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	Name           string  `json:"name"`
	WorkoutType    string  `json:"workout_type"`
	DurationMin    int     `json:"duration_min"`
	CaloriesBurned float64 `json:"calories_burned"`
	Exercises      *string `json:"exercises"`
	Notes          string  `json:"notes"`
	TS             int64   `json:"ts"`
	auditTimes
}

func (r *workoutEntryRow) toEntity() WorkoutEntry {
	ts := r.TS
	if ts == 0 {
		ts = r.createdMillis()
	}
	return WorkoutEntry{
		ID: r.ID, UserID: r.UserID, Name: r.Name, WorkoutType: r.WorkoutType,
		DurationMin: r.DurationMin, CaloriesBurned: r.CaloriesBurned,
		Exercises: decodeExercises(r.Exercises), Notes: r.Notes, Timestamp: ts,
	}
}

func (p *pgStore) AllWorkoutEntries(ctx context.Context) ([]WorkoutEntry, error) {
	docs, err := p.rowsAsJSON(ctx, "workout_entries")
	if err != nil {
		return nil, err
	}
	out := make([]WorkoutEntry, 0, len(docs))
	for _, doc := range docs {
		var row workoutEntryRow
		if err := json.Unmarshal(doc, &row); err != nil {
			p.logger.Debug("Skipping undecodable workout entry row", "error", err)
			continue
		}
		out = append(out, row.toEntity())
	}
	return out, nil
}

type biomarkerEntryRow struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	MarkerType string  `json:"marker_type"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	Notes      string  `json:"notes"`
	TS         int64   `json:"ts"`
	auditTimes
}

func (r *biomarkerEntryRow) toEntity() BiomarkerEntry {
	ts := r.TS
	if ts == 0 {
		ts = r.createdMillis()
	}
	return BiomarkerEntry{
		ID: r.ID, UserID: r.UserID, MarkerType: r.MarkerType,
		Value: r.Value, Unit: r.Unit, Notes: r.Notes, Timestamp: ts,
	}
}

func (p *pgStore) AllBiomarkerEntries(ctx context.Context) ([]BiomarkerEntry, error) {
	docs, err := p.rowsAsJSON(ctx, "biomarker_entries")
	if err != nil {
		return nil, err
	}
	out := make([]BiomarkerEntry, 0, len(docs))
	for _, doc := range docs {
		var row biomarkerEntryRow
		if err := json.Unmarshal(doc, &row); err != nil {
			p.logger.Debug("Skipping undecodable biomarker entry row", "error", err)
			continue
		}
		out = append(out, row.toEntity())
	}
	return out, nil
}

type goalRow struct {
	ID           string  `json:"id"`
	UserID       string  `json:"user_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	TargetValue  float64 `json:"target_value"`
	CurrentValue float64 `json:"current_value"`
	Unit         string  `json:"unit"`
	Status       string  `json:"status"`
	Milestones   *string `json:"milestones"`
	CreatedAtMs  int64   `json:"created_at_ms"`
	auditTimes
}

func (r *goalRow) toEntity() Goal {
	createdAt := r.CreatedAtMs
	if createdAt == 0 {
		createdAt = r.createdMillis()
	}
	return Goal{
		ID: r.ID, UserID: r.UserID, Title: r.Title, Description: r.Description,
		Category: r.Category, TargetValue: r.TargetValue, CurrentValue: r.CurrentValue,
		Unit: r.Unit, Status: r.Status, Milestones: decodeMilestones(r.Milestones),
		CreatedAt: createdAt,
	}
}

func (p *pgStore) AllGoals(ctx context.Context) ([]Goal, error) {
	docs, err := p.rowsAsJSON(ctx, "goals")
	if err != nil {
		return nil, err
	}
	out := make([]Goal, 0, len(docs))
	for _, doc := range docs {
		var row goalRow
		if err := json.Unmarshal(doc, &row); err != nil {
			p.logger.Debug("Skipping undecodable goal row", "error", err)
			continue
		}
		out = append(out, row.toEntity())
	}
	return out, nil
}

type userProfileRow struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Age           int     `json:"age"`
	HeightCm      float64 `json:"height_cm"`
	WeightKg      float64 `json:"weight_kg"`
	Gender        string  `json:"gender"`
	ActivityLevel string  `json:"activity_level"`
	Preferences   *string `json:"preferences"`
	CreatedAtMs   int64   `json:"created_at_ms"`
	UpdatedAtMs   int64   `json:"updated_at_ms"`
	auditTimes
}

func (r *userProfileRow) toEntity() UserProfile {
	createdAt := r.CreatedAtMs
	if createdAt == 0 {
		createdAt = r.createdMillis()
	}
	updatedAt := r.UpdatedAtMs
	if updatedAt == 0 {
		updatedAt = r.updatedMillis()
	}
	return UserProfile{
		ID: r.ID, Name: r.Name, Age: r.Age, HeightCm: r.HeightCm, WeightKg: r.WeightKg,
		Gender: r.Gender, ActivityLevel: r.ActivityLevel,
		Preferences: decodePreferences(r.Preferences),
		CreatedAt:   createdAt, UpdatedAt: updatedAt,
	}
}

func (p *pgStore) AllUserProfiles(ctx context.Context) ([]UserProfile, error) {
	docs, err := p.rowsAsJSON(ctx, "user_profiles")
	if err != nil {
		return nil, err
	}
	out := make([]UserProfile, 0, len(docs))
	for _, doc := range docs {
		var row userProfileRow
		if err := json.Unmarshal(doc, &row); err != nil {
			p.logger.Debug("Skipping undecodable profile row", "error", err)
			continue
		}
		out = append(out, row.toEntity())
	}
	return out, nil
}
