// Copyright 2025 The vitalsync Authors
// SPDX-License-Identifier: Apache-2.0

package vitalsync

import (
	"context"
	"fmt"
	"sort"
)

// Pull reconciliation: one session-wide cutoff, per-entity fetches of
// strictly newer remote rows, most-recent-first. When a filtered query
// fails (typically a legacy remote schema predating the additive
// timestamp columns) the entity falls back to an unfiltered
// compatibility read with the cutoff applied here in application code.
// A failed fallback empties that entity's list only; pull never fails a
// session.

// pullReport collects the pull phase outcome across all entity types.
type pullReport struct {
	Counts   SyncCounts
	Data     PulledData
	Warnings []string
}

func (r *pullReport) total() int {
	return r.Counts.FoodEntries + r.Counts.WorkoutEntries +
		r.Counts.BiomarkerEntries + r.Counts.Goals + r.Counts.UserProfile
}

func (r *pullReport) degrade(kind EntityKind, stage string, err error) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("pull %s: %s: %v", kind, stage, err))
}

func (s *SyncService) pullAll(ctx context.Context, store Store, cutoff int64) pullReport {
	rep := pullReport{
		Data: PulledData{
			FoodEntries:      []FoodEntry{},
			WorkoutEntries:   []WorkoutEntry{},
			BiomarkerEntries: []BiomarkerEntry{},
			Goals:            []Goal{},
		},
	}

	if entries := s.pullFoodEntries(ctx, store, cutoff, &rep); entries != nil {
		rep.Data.FoodEntries = entries
	}
	rep.Counts.FoodEntries = len(rep.Data.FoodEntries)

	if entries := s.pullWorkoutEntries(ctx, store, cutoff, &rep); entries != nil {
		rep.Data.WorkoutEntries = entries
	}
	rep.Counts.WorkoutEntries = len(rep.Data.WorkoutEntries)

	if entries := s.pullBiomarkerEntries(ctx, store, cutoff, &rep); entries != nil {
		rep.Data.BiomarkerEntries = entries
	}
	rep.Counts.BiomarkerEntries = len(rep.Data.BiomarkerEntries)

	if goals := s.pullGoals(ctx, store, cutoff, &rep); goals != nil {
		rep.Data.Goals = goals
	}
	rep.Counts.Goals = len(rep.Data.Goals)

	rep.Data.UserProfile = s.pullUserProfile(ctx, store, cutoff, &rep)
	if rep.Data.UserProfile != nil {
		rep.Counts.UserProfile = 1
	}

	return rep
}

func (s *SyncService) pullFoodEntries(ctx context.Context, store Store, cutoff int64, rep *pullReport) []FoodEntry {
	entries, err := store.FoodEntriesSince(ctx, cutoff)
	if err == nil {
		return entries
	}
	s.logger.Warn("Filtered food entry pull failed, trying compatibility fallback", "error", err)
	rep.degrade(KindFoodEntries, "filtered query", err)

	all, err := store.AllFoodEntries(ctx)
	if err != nil {
		s.logger.Warn("Food entry fallback pull failed, returning empty", "error", err)
		rep.degrade(KindFoodEntries, "fallback query", err)
		return nil
	}
	kept := all[:0]
	for _, e := range all {
		if e.Timestamp > cutoff {
			kept = append(kept, e)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Timestamp > kept[j].Timestamp })
	return kept
}

func (s *SyncService) pullWorkoutEntries(ctx context.Context, store Store, cutoff int64, rep *pullReport) []WorkoutEntry {
	entries, err := store.WorkoutEntriesSince(ctx, cutoff)
	if err == nil {
		return entries
	}
	s.logger.Warn("Filtered workout entry pull failed, trying compatibility fallback", "error", err)
	rep.degrade(KindWorkoutEntries, "filtered query", err)

	all, err := store.AllWorkoutEntries(ctx)
	if err != nil {
		s.logger.Warn("Workout entry fallback pull failed, returning empty", "error", err)
		rep.degrade(KindWorkoutEntries, "fallback query", err)
		return nil
	}
	kept := all[:0]
	for _, e := range all {
		if e.Timestamp > cutoff {
			kept = append(kept, e)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Timestamp > kept[j].Timestamp })
	return kept
}

func (s *SyncService) pullBiomarkerEntries(ctx context.Context, store Store, cutoff int64, rep *pullReport) []BiomarkerEntry {
	entries, err := store.BiomarkerEntriesSince(ctx, cutoff)
	if err == nil {
		return entries
	}
	s.logger.Warn("Filtered biomarker entry pull failed, trying compatibility fallback", "error", err)
	rep.degrade(KindBiomarkerEntries, "filtered query", err)

	all, err := store.AllBiomarkerEntries(ctx)
	if err != nil {
		s.logger.Warn("Biomarker entry fallback pull failed, returning empty", "error", err)
		rep.degrade(KindBiomarkerEntries, "fallback query", err)
		return nil
	}
	kept := all[:0]
	for _, e := range all {
		if e.Timestamp > cutoff {
			kept = append(kept, e)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Timestamp > kept[j].Timestamp })
	return kept
}

func (s *SyncService) pullGoals(ctx context.Context, store Store, cutoff int64, rep *pullReport) []Goal {
	goals, err := store.GoalsSince(ctx, cutoff)
	if err == nil {
		return goals
	}
	s.logger.Warn("Filtered goal pull failed, trying compatibility fallback", "error", err)
	rep.degrade(KindGoals, "filtered query", err)

	all, err := store.AllGoals(ctx)
	if err != nil {
		s.logger.Warn("Goal fallback pull failed, returning empty", "error", err)
		rep.degrade(KindGoals, "fallback query", err)
		return nil
	}
	kept := all[:0]
	for _, g := range all {
		if g.CreatedAt > cutoff {
			kept = append(kept, g)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].CreatedAt > kept[j].CreatedAt })
	return kept
}

// pullUserProfile returns the single most recently updated profile row
// newer than the cutoff, or nil.
func (s *SyncService) pullUserProfile(ctx context.Context, store Store, cutoff int64, rep *pullReport) *UserProfile {
	profile, err := store.LatestUserProfileSince(ctx, cutoff)
	if err == nil {
		return profile
	}
	s.logger.Warn("Filtered profile pull failed, trying compatibility fallback", "error", err)
	rep.degrade(KindUserProfile, "filtered query", err)

	all, err := store.AllUserProfiles(ctx)
	if err != nil {
		s.logger.Warn("Profile fallback pull failed, returning empty", "error", err)
		rep.degrade(KindUserProfile, "fallback query", err)
		return nil
	}
	var latest *UserProfile
	for i := range all {
		p := &all[i]
		if p.UpdatedAt <= cutoff {
			continue
		}
		if latest == nil || p.UpdatedAt > latest.UpdatedAt {
			latest = p
		}
	}
	return latest
}
