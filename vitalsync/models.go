// Copyright 2025 The vitalsync Authors
// SPDX-License-Identifier: Apache-2.0

package vitalsync

// Domain entities for the five synchronized collections.
//
// Identity is the client-assigned id string; it is stable across devices
// and is the conflict-resolution key for upserts. Authoring timestamps
// (epoch milliseconds) are stamped by the originating device and never
// altered by the sync engine. Blob fields (Exercises, Milestones,
// Preferences) are native structures locally and serialized JSON text in
// the remote store.

// FoodEntry is a single logged meal or food item.
type FoodEntry struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId,omitempty"`
	Name      string  `json:"name"`
	Calories  float64 `json:"calories"`
	Protein   float64 `json:"protein"`
	Carbs     float64 `json:"carbs"`
	Fat       float64 `json:"fat"`
	MealType  string  `json:"mealType,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

// Exercise is one element of a workout's structured exercise list.
type Exercise struct {
	Name        string  `json:"name"`
	Sets        int     `json:"sets,omitempty"`
	Reps        int     `json:"reps,omitempty"`
	WeightKg    float64 `json:"weightKg,omitempty"`
	DurationSec int     `json:"durationSec,omitempty"`
}

// WorkoutEntry is a single logged workout.
type WorkoutEntry struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId,omitempty"`
	Name           string     `json:"name"`
	WorkoutType    string     `json:"type,omitempty"`
	DurationMin    int        `json:"durationMinutes,omitempty"`
	CaloriesBurned float64    `json:"caloriesBurned,omitempty"`
	Exercises      []Exercise `json:"exercises,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	Timestamp      int64      `json:"timestamp"`
}

// BiomarkerEntry is a single logged biomarker measurement (weight,
// blood pressure, glucose, ...).
type BiomarkerEntry struct {
	ID         string  `json:"id"`
	UserID     string  `json:"userId,omitempty"`
	MarkerType string  `json:"type"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit,omitempty"`
	Notes      string  `json:"notes,omitempty"`
	Timestamp  int64   `json:"timestamp"`
}

// Milestone is one element of a goal's milestone list.
type Milestone struct {
	Title       string  `json:"title"`
	TargetValue float64 `json:"targetValue,omitempty"`
	Achieved    bool    `json:"achieved,omitempty"`
	AchievedAt  int64   `json:"achievedAt,omitempty"`
}

// Goal is a long-running health goal. Its authoring timestamp is
// CreatedAt rather than a per-edit timestamp.
type Goal struct {
	ID           string      `json:"id"`
	UserID       string      `json:"userId,omitempty"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	Category     string      `json:"category,omitempty"`
	TargetValue  float64     `json:"targetValue,omitempty"`
	CurrentValue float64     `json:"currentValue,omitempty"`
	Unit         string      `json:"unit,omitempty"`
	Status       string      `json:"status,omitempty"`
	Milestones   []Milestone `json:"milestones,omitempty"`
	CreatedAt    int64       `json:"createdAt"`
}

// UserProfile is the per-account singleton profile record. Pull
// eligibility is decided on UpdatedAt; push on a first sync is
// unconditional.
type UserProfile struct {
	ID            string         `json:"id"`
	Name          string         `json:"name,omitempty"`
	Age           int            `json:"age,omitempty"`
	HeightCm      float64        `json:"heightCm,omitempty"`
	WeightKg      float64        `json:"weightKg,omitempty"`
	Gender        string         `json:"gender,omitempty"`
	ActivityLevel string         `json:"activityLevel,omitempty"`
	Preferences   map[string]any `json:"preferences,omitempty"`
	CreatedAt     int64          `json:"createdAt"`
	UpdatedAt     int64          `json:"updatedAt"`
}
