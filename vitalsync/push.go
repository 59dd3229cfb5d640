// Copyright 2025 The vitalsync Authors
// SPDX-License-Identifier: Apache-2.0

package vitalsync

import "context"

// Push reconciliation: upsert-by-id with full-column overwrite, so push
// always wins for whatever it writes. A failed upsert is isolated to
// its record; the remaining records and entity types proceed, and the
// failure is recorded for the response warnings.

// pushReport collects the push phase outcome across all entity types.
type pushReport struct {
	Counts SyncCounts
	Errors []RowError
}

func (r *pushReport) total() int {
	return r.Counts.FoodEntries + r.Counts.WorkoutEntries +
		r.Counts.BiomarkerEntries + r.Counts.Goals + r.Counts.UserProfile
}

func (r *pushReport) fail(kind EntityKind, id string, err error) {
	r.Errors = append(r.Errors, RowError{Kind: kind, ID: id, Err: err})
}

func (s *SyncService) pushAll(ctx context.Context, store Store, local *LocalSnapshot, sess session) pushReport {
	var rep pushReport
	rep.Counts.FoodEntries = s.pushFoodEntries(ctx, store, local.FoodEntries, sess, &rep)
	rep.Counts.WorkoutEntries = s.pushWorkoutEntries(ctx, store, local.WorkoutEntries, sess, &rep)
	rep.Counts.BiomarkerEntries = s.pushBiomarkerEntries(ctx, store, local.BiomarkerEntries, sess, &rep)
	rep.Counts.Goals = s.pushGoals(ctx, store, local.Goals, sess, &rep)
	rep.Counts.UserProfile = s.pushUserProfile(ctx, store, local.UserProfile, sess, &rep)
	return rep
}

func (s *SyncService) pushFoodEntries(ctx context.Context, store Store, entries []FoodEntry, sess session, rep *pushReport) int {
	count := 0
	for i := range entries {
		e := &entries[i]
		if !sess.entryEligible(e.Timestamp) {
			continue
		}
		if err := store.UpsertFoodEntry(ctx, e); err != nil {
			s.logger.Warn("Food entry upsert failed, continuing", "id", e.ID, "error", err)
			rep.fail(KindFoodEntries, e.ID, err)
			continue
		}
		count++
	}
	return count
}

func (s *SyncService) pushWorkoutEntries(ctx context.Context, store Store, entries []WorkoutEntry, sess session, rep *pushReport) int {
	count := 0
	for i := range entries {
		e := &entries[i]
		if !sess.entryEligible(e.Timestamp) {
			continue
		}
		if err := store.UpsertWorkoutEntry(ctx, e); err != nil {
			s.logger.Warn("Workout entry upsert failed, continuing", "id", e.ID, "error", err)
			rep.fail(KindWorkoutEntries, e.ID, err)
			continue
		}
		count++
	}
	return count
}

func (s *SyncService) pushBiomarkerEntries(ctx context.Context, store Store, entries []BiomarkerEntry, sess session, rep *pushReport) int {
	count := 0
	for i := range entries {
		e := &entries[i]
		if !sess.entryEligible(e.Timestamp) {
			continue
		}
		if err := store.UpsertBiomarkerEntry(ctx, e); err != nil {
			s.logger.Warn("Biomarker entry upsert failed, continuing", "id", e.ID, "error", err)
			rep.fail(KindBiomarkerEntries, e.ID, err)
			continue
		}
		count++
	}
	return count
}

func (s *SyncService) pushGoals(ctx context.Context, store Store, goals []Goal, sess session, rep *pushReport) int {
	count := 0
	for i := range goals {
		g := &goals[i]
		if !sess.goalEligible(g.CreatedAt) {
			continue
		}
		if err := store.UpsertGoal(ctx, g); err != nil {
			s.logger.Warn("Goal upsert failed, continuing", "id", g.ID, "error", err)
			rep.fail(KindGoals, g.ID, err)
			continue
		}
		count++
	}
	return count
}

func (s *SyncService) pushUserProfile(ctx context.Context, store Store, profile *UserProfile, sess session, rep *pushReport) int {
	if profile == nil || !sess.profileEligible(profile) {
		return 0
	}
	if err := store.UpsertUserProfile(ctx, profile); err != nil {
		s.logger.Warn("Profile upsert failed, continuing", "id", profile.ID, "error", err)
		rep.fail(KindUserProfile, profile.ID, err)
		return 0
	}
	return 1
}
