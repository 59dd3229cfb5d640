// Copyright 2025 The vitalsync Authors
// SPDX-License-Identifier: Apache-2.0

package vitalsync

import (
	"context"
	"fmt"
)

// Store is one session's handle on the remote relational store. A Store
// is opened at session start and must be closed on every exit path; the
// engine never shares one Store across sessions.
//
// The Since queries are the primary, timestamp-filtered reads (strictly
// greater than cutoff, most-recent-first on the domain timestamp). The
// unfiltered reads back them up: they must succeed against legacy
// schemas that predate the additive timestamp columns, ordering by the
// server audit column instead. The engine applies the cutoff in
// application code when it has to fall back.
type Store interface {
	// EnsureSchema runs the idempotent table/column statements,
	// continuing past individual failures. Safe on every call.
	EnsureSchema(ctx context.Context) []SchemaWarning

	UpsertFoodEntry(ctx context.Context, e *FoodEntry) error
	UpsertWorkoutEntry(ctx context.Context, e *WorkoutEntry) error
	UpsertBiomarkerEntry(ctx context.Context, e *BiomarkerEntry) error
	UpsertGoal(ctx context.Context, g *Goal) error
	UpsertUserProfile(ctx context.Context, p *UserProfile) error

	FoodEntriesSince(ctx context.Context, cutoff int64) ([]FoodEntry, error)
	WorkoutEntriesSince(ctx context.Context, cutoff int64) ([]WorkoutEntry, error)
	BiomarkerEntriesSince(ctx context.Context, cutoff int64) ([]BiomarkerEntry, error)
	GoalsSince(ctx context.Context, cutoff int64) ([]Goal, error)
	// LatestUserProfileSince returns the most recently updated profile
	// row newer than cutoff, or nil when none qualifies.
	LatestUserProfileSince(ctx context.Context, cutoff int64) (*UserProfile, error)

	AllFoodEntries(ctx context.Context) ([]FoodEntry, error)
	AllWorkoutEntries(ctx context.Context) ([]WorkoutEntry, error)
	AllBiomarkerEntries(ctx context.Context) ([]BiomarkerEntry, error)
	AllGoals(ctx context.Context) ([]Goal, error)
	AllUserProfiles(ctx context.Context) ([]UserProfile, error)

	Close(ctx context.Context)
}

// Connector opens a Store for one session from a connection descriptor.
// Implementations may pool underlying connections per descriptor; each
// opened Store still represents exactly one acquired connection.
type Connector interface {
	Open(ctx context.Context, connString string) (Store, error)
}

// ConnectivityError reports that the remote store could not be reached.
// It is the one fatal error class of a session: the whole call fails
// atomically and no partial counts are returned.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("remote store unreachable: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// SchemaWarning records one failed schema statement. Schema maintenance
// is non-transactional; a failed statement is recorded and the rest of
// the pass continues.
type SchemaWarning struct {
	Table string
	Err   error
}

func (w SchemaWarning) String() string {
	return fmt.Sprintf("schema: %s: %v", w.Table, w.Err)
}

// RowError records one failed upsert during push. Row failures are
// isolated per record; remaining records and entity types proceed.
type RowError struct {
	Kind EntityKind
	ID   string
	Err  error
}

func (e RowError) String() string {
	return fmt.Sprintf("push %s id=%s: %v", e.Kind, e.ID, e.Err)
}
