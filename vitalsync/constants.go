// Copyright 2025 The vitalsync Authors
// SPDX-License-Identifier: Apache-2.0

package vitalsync

import "time"

// EntityKind identifies one of the five synchronized collections.
type EntityKind string

const (
	KindFoodEntries      EntityKind = "foodEntries"
	KindWorkoutEntries   EntityKind = "workoutEntries"
	KindBiomarkerEntries EntityKind = "biomarkerEntries"
	KindGoals            EntityKind = "goals"
	KindUserProfile      EntityKind = "userProfile"
)

// Session windows. All eligibility comparisons are strict (>), never >=.
const (
	// A session whose lastSyncTimestamp predates this horizon is treated
	// as a first sync (bootstrap against a possibly fresh remote).
	bootstrapHorizon = 30 * 24 * time.Hour

	// First-sync push windows: only recent activity is assumed relevant
	// on first contact with the remote store.
	firstSyncEntryWindow = 24 * time.Hour
	firstSyncGoalWindow  = 30 * 24 * time.Hour

	// First-sync pull window.
	firstSyncPullWindow = 7 * 24 * time.Hour

	// Incremental pulls always re-scan at least this trailing window to
	// catch writes from devices whose delivery or clocks lagged. The
	// resulting duplicates are deduplicated by the caller using id.
	pullRescanFloor = 3 * 24 * time.Hour
)
