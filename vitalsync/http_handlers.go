// Copyright 2025 The vitalsync Authors
// SPDX-License-Identifier: Apache-2.0

package vitalsync

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// ClientAuthenticator extracts user and device identity from HTTP
// requests. Implementations should validate auth (e.g., JWT) and
// provide both identifiers.
type ClientAuthenticator interface {
	GetUserID(r *http.Request) (string, error)
	GetDeviceID(r *http.Request) (string, error)
}

// HTTPSyncHandlers provides the HTTP surface of the sync engine.
type HTTPSyncHandlers struct {
	service       *SyncService
	authenticator ClientAuthenticator
	logger        *slog.Logger
}

// NewHTTPSyncHandlers creates a new instance of sync handlers.
func NewHTTPSyncHandlers(service *SyncService, authenticator ClientAuthenticator, logger *slog.Logger) *HTTPSyncHandlers {
	return &HTTPSyncHandlers{
		service:       service,
		authenticator: authenticator,
		logger:        logger,
	}
}

// HandleSync runs one sync session for the authenticated device.
func (h *HTTPSyncHandlers) HandleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeFailure(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	userID, err := h.authenticator.GetUserID(r)
	if err != nil {
		h.writeFailure(w, http.StatusUnauthorized, "authentication failed")
		return
	}
	deviceID, err := h.authenticator.GetDeviceID(r)
	if err != nil {
		h.writeFailure(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeFailure(w, http.StatusBadRequest, "failed to parse sync request")
		return
	}

	response, err := h.service.Sync(r.Context(), &req)
	if err != nil {
		var connErr *ConnectivityError
		if errors.As(err, &connErr) {
			h.logger.Error("Sync session failed: remote store unreachable",
				"error", err, "user_id", userID, "device_id", deviceID)
			h.writeFailure(w, http.StatusServiceUnavailable, "remote store unreachable")
			return
		}
		h.logger.Error("Sync session failed",
			"error", err, "user_id", userID, "device_id", deviceID)
		h.writeFailure(w, http.StatusInternalServerError, "failed to process sync")
		return
	}

	h.logger.Info("Sync session served",
		"user_id", userID,
		"device_id", deviceID,
		"pushed", response.SyncedCounts,
		"pulled", response.PullCounts)

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode sync response", "error", err, "user_id", userID)
	}
}

// HandleHealth reports process liveness.
func (h *HTTPSyncHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// writeFailure writes the failure envelope with a non-success status.
func (h *HTTPSyncHandlers) writeFailure(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(FailureResponse{Success: false, Message: message})

	h.logger.Debug("HTTP failure response", "status_code", statusCode, "message", message)
}
