// Copyright 2025 The vitalsync Authors
// SPDX-License-Identifier: Apache-2.0

package vitalsync

import "fmt"

// aggregateResponse merges the per-phase reports into the single
// response envelope. Success stays true through absorbed degradations;
// only a failed connection (handled before the phases run) fails a
// session.
func aggregateResponse(push pushReport, pull pullReport, schemaWarnings []SchemaWarning) *SyncResponse {
	var warnings []string
	for _, w := range schemaWarnings {
		warnings = append(warnings, w.String())
	}
	for _, e := range push.Errors {
		warnings = append(warnings, e.String())
	}
	warnings = append(warnings, pull.Warnings...)

	message := "sync completed"
	if n := len(warnings); n > 0 {
		message = fmt.Sprintf("sync completed with %d warning(s)", n)
	}

	return &SyncResponse{
		Success:      true,
		Message:      message,
		SyncedCounts: push.Counts,
		PullCounts:   pull.Counts,
		PulledData:   pull.Data,
		Warnings:     warnings,
	}
}
