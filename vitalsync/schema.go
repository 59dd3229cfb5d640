// Copyright 2025 The vitalsync Authors
// SPDX-License-Identifier: Apache-2.0

package vitalsync

import "context"

// Schema maintenance for the five remote tables. Every statement is
// idempotent and independent: a failure is recorded as a SchemaWarning
// and the pass continues, because partial schema is still more usable
// than no schema and the pull path has its own legacy fallback. This
// runs on every sync call, with no migration versioning.

type schemaStatement struct {
	table string
	sql   string
}

var schemaStatements = []schemaStatement{
	{"food_entries", /*language=postgresql*/ `CREATE TABLE IF NOT EXISTS food_entries (
		id         TEXT PRIMARY KEY,
		user_id    TEXT,
		name       TEXT,
		calories   DOUBLE PRECISION,
		protein    DOUBLE PRECISION,
		carbs      DOUBLE PRECISION,
		fat        DOUBLE PRECISION,
		meal_type  TEXT,
		ts         BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"workout_entries", /*language=postgresql*/ `CREATE TABLE IF NOT EXISTS workout_entries (
		id              TEXT PRIMARY KEY,
		user_id         TEXT,
		name            TEXT,
		workout_type    TEXT,
		duration_min    INTEGER,
		calories_burned DOUBLE PRECISION,
		exercises       TEXT,
		notes           TEXT,
		ts              BIGINT NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"biomarker_entries", /*language=postgresql*/ `CREATE TABLE IF NOT EXISTS biomarker_entries (
		id          TEXT PRIMARY KEY,
		user_id     TEXT,
		marker_type TEXT,
		value       DOUBLE PRECISION,
		unit        TEXT,
		notes       TEXT,
		ts          BIGINT NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"goals", /*language=postgresql*/ `CREATE TABLE IF NOT EXISTS goals (
		id            TEXT PRIMARY KEY,
		user_id       TEXT,
		title         TEXT,
		description   TEXT,
		category      TEXT,
		target_value  DOUBLE PRECISION,
		current_value DOUBLE PRECISION,
		unit          TEXT,
		status        TEXT,
		milestones    TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},
	{"user_profiles", /*language=postgresql*/ `CREATE TABLE IF NOT EXISTS user_profiles (
		id             TEXT PRIMARY KEY,
		name           TEXT,
		age            INTEGER,
		height_cm      DOUBLE PRECISION,
		weight_kg      DOUBLE PRECISION,
		gender         TEXT,
		activity_level TEXT,
		preferences    TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`},

	// Late-added columns, backfillable onto pre-existing tables without
	// breaking older rows. Older rows keep NULL and the pull fallback
	// derives their timestamps from the audit columns.
	{"goals", `ALTER TABLE goals ADD COLUMN IF NOT EXISTS created_at_ms BIGINT`},
	{"user_profiles", `ALTER TABLE user_profiles ADD COLUMN IF NOT EXISTS created_at_ms BIGINT`},
	{"user_profiles", `ALTER TABLE user_profiles ADD COLUMN IF NOT EXISTS updated_at_ms BIGINT`},

	{"food_entries", `CREATE INDEX IF NOT EXISTS food_entries_ts_idx ON food_entries (ts)`},
	{"workout_entries", `CREATE INDEX IF NOT EXISTS workout_entries_ts_idx ON workout_entries (ts)`},
	{"biomarker_entries", `CREATE INDEX IF NOT EXISTS biomarker_entries_ts_idx ON biomarker_entries (ts)`},
	{"goals", `CREATE INDEX IF NOT EXISTS goals_created_at_ms_idx ON goals (created_at_ms)`},
	{"user_profiles", `CREATE INDEX IF NOT EXISTS user_profiles_updated_at_ms_idx ON user_profiles (updated_at_ms)`},
}

// EnsureSchema runs the statement list, continuing past individual
// failures. The returned warnings let callers assert degradation
// instead of digging through logs.
func (p *pgStore) EnsureSchema(ctx context.Context) []SchemaWarning {
	var warnings []SchemaWarning
	for i, stmt := range schemaStatements {
		if _, err := p.conn.Exec(ctx, stmt.sql); err != nil {
			p.logger.Warn("Schema statement failed, continuing",
				"step", i+1, "total", len(schemaStatements), "table", stmt.table, "error", err)
			warnings = append(warnings, SchemaWarning{Table: stmt.table, Err: err})
		}
	}
	return warnings
}
