// Copyright 2025 The vitalsync Authors
// SPDX-License-Identifier: Apache-2.0

package vitalsync

// REST/JSON models for the sync request/response cycle.

// SyncRequest is one client-triggered sync session: a connection
// descriptor, the client-resident snapshot, and the last timestamp the
// client considers successfully synced (0 = never synced).
//
// Type is accepted for wire compatibility but never branched on; every
// session syncs all five collections.
type SyncRequest struct {
	ConnectionString  string        `json:"connectionString"`
	Type              string        `json:"type,omitempty"`
	LocalData         LocalSnapshot `json:"localData"`
	LastSyncTimestamp int64         `json:"lastSyncTimestamp"`
}

// LocalSnapshot is the client-resident view of the five collections.
// Absent collections simply have nothing to push.
type LocalSnapshot struct {
	FoodEntries      []FoodEntry      `json:"foodEntries,omitempty"`
	WorkoutEntries   []WorkoutEntry   `json:"workoutEntries,omitempty"`
	BiomarkerEntries []BiomarkerEntry `json:"biomarkerEntries,omitempty"`
	Goals            []Goal           `json:"goals,omitempty"`
	UserProfile      *UserProfile     `json:"userProfile,omitempty"`
}

// SyncCounts holds one integer per entity kind.
type SyncCounts struct {
	FoodEntries      int `json:"foodEntries"`
	WorkoutEntries   int `json:"workoutEntries"`
	BiomarkerEntries int `json:"biomarkerEntries"`
	Goals            int `json:"goals"`
	UserProfile      int `json:"userProfile"`
}

// PulledData carries the full hydrated records fetched by the pull
// phase, most-recent-first. Returning whole records rather than deltas
// lets the caller replace-or-insert locally by id without a follow-up
// fetch. The caller owns merge-and-persist.
type PulledData struct {
	FoodEntries      []FoodEntry      `json:"foodEntries"`
	WorkoutEntries   []WorkoutEntry   `json:"workoutEntries"`
	BiomarkerEntries []BiomarkerEntry `json:"biomarkerEntries"`
	Goals            []Goal           `json:"goals"`
	UserProfile      *UserProfile     `json:"userProfile"`
}

// SyncResponse is the aggregated result of one session.
//
// Warnings surfaces the non-fatal degradations the session absorbed
// (failed schema statements, per-record push failures, pull fallbacks)
// so graceful degradation is observable rather than log-only.
type SyncResponse struct {
	Success      bool       `json:"success"`
	Message      string     `json:"message"`
	SyncedCounts SyncCounts `json:"syncedCounts"`
	PullCounts   SyncCounts `json:"pullCounts"`
	PulledData   PulledData `json:"pulledData"`
	Warnings     []string   `json:"warnings,omitempty"`
}

// FailureResponse is the envelope returned with a non-success HTTP
// status when a session fails atomically (no partial counts).
type FailureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
