// Copyright 2025 The vitalsync Authors
// SPDX-License-Identifier: Apache-2.0

package vitalsync

import "encoding/json"

// Blob codec for the structured fields stored as serialized text in the
// remote store (workout exercises, goal milestones, profile
// preferences). Encoding and decoding never fail a record: an empty or
// unrepresentable value stores as NULL, and malformed or absent stored
// text decodes to the zero value.

// encodeBlob serializes v for storage as a text column. Returns nil for
// nil/empty values so the column stays NULL instead of holding "null"
// or "[]" noise.
func encodeBlob(v any) *string {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(b)
	if s == "null" || s == "[]" || s == "{}" {
		return nil
	}
	return &s
}

// decodeBlob parses stored text into dst. Reports whether dst was
// populated; malformed text leaves dst untouched.
func decodeBlob(s *string, dst any) bool {
	if s == nil || *s == "" {
		return false
	}
	return json.Unmarshal([]byte(*s), dst) == nil
}

func decodeExercises(s *string) []Exercise {
	var out []Exercise
	if !decodeBlob(s, &out) {
		return nil
	}
	return out
}

func decodeMilestones(s *string) []Milestone {
	var out []Milestone
	if !decodeBlob(s, &out) {
		return nil
	}
	return out
}

func decodePreferences(s *string) map[string]any {
	var out map[string]any
	if !decodeBlob(s, &out) {
		return nil
	}
	return out
}
