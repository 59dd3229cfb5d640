// Copyright 2025 The vitalsync Authors
// SPDX-License-Identifier: Apache-2.0

package vitalsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// SyncService drives one discrete, client-triggered sync session:
// schema maintenance, then push for all entity types, then pull for all
// entity types, then aggregation. There is no background scheduling and
// no cross-entity transaction; each entity type is an independent unit
// of work.
type SyncService struct {
	connector Connector
	logger    *slog.Logger
	config    *ServiceConfig
	clock     func() time.Time

	mu     sync.RWMutex
	closed bool
}

// ServiceConfig holds configuration for the sync service.
type ServiceConfig struct {
	AppName string

	// DefaultConnectionString is used when a request carries no
	// connection descriptor of its own.
	DefaultConnectionString string

	StageMetrics    StageMetricsRecorder
	LogStageTimings bool
}

// NewSyncService creates a sync service on top of an injected
// connector. The connector owns connection pooling; the service opens
// and releases exactly one store per session.
func NewSyncService(connector Connector, config *ServiceConfig, logger *slog.Logger) *SyncService {
	if config == nil {
		config = &ServiceConfig{AppName: "vitalsync"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		connector: connector,
		logger:    logger,
		config:    config,
		clock:     time.Now,
	}
}

// Close marks the service as shut down. It does not close the
// connector; the caller owns that lifecycle. Safe to call repeatedly.
func (s *SyncService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.logger.Debug("Shutting down sync service")
	s.closed = true
	return nil
}

func (s *SyncService) checkClosed() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("sync service has been closed")
	}
	return nil
}

// session captures the classification of one sync call. A session whose
// lastSyncTimestamp predates the 30-day bootstrap horizon is a first
// sync, which narrows push eligibility and widens the pull window.
type session struct {
	now      time.Time
	lastSync int64
	first    bool
}

func (s *SyncService) newSession(lastSync int64) session {
	now := s.clock()
	return session{
		now:      now,
		lastSync: lastSync,
		first:    lastSync < now.Add(-bootstrapHorizon).UnixMilli(),
	}
}

// entryEligible decides push eligibility for food, workout and
// biomarker entries. Strictly greater: a record stamped exactly at the
// boundary was already pushed by the session that set the boundary.
func (sess session) entryEligible(ts int64) bool {
	if sess.first {
		return ts > sess.now.Add(-firstSyncEntryWindow).UnixMilli()
	}
	return ts > sess.lastSync
}

func (sess session) goalEligible(createdAt int64) bool {
	if sess.first {
		return createdAt > sess.now.Add(-firstSyncGoalWindow).UnixMilli()
	}
	return createdAt > sess.lastSync
}

// profileEligible: the singleton profile always travels on a first
// sync; incrementally it follows the standard strict rule on its
// update timestamp.
func (sess session) profileEligible(p *UserProfile) bool {
	if sess.first {
		return true
	}
	ts := p.UpdatedAt
	if ts == 0 {
		ts = p.CreatedAt
	}
	return ts > sess.lastSync
}

// pullCutoff computes the single session-wide timestamp below which
// remote rows are not returned. Incremental sessions never shrink the
// window below the trailing re-scan floor, so writes from other devices
// with lagging clocks or delivery still surface; callers deduplicate
// the resulting over-fetch by id.
func (sess session) pullCutoff() int64 {
	if sess.first {
		return sess.now.Add(-firstSyncPullWindow).UnixMilli()
	}
	floor := sess.now.Add(-pullRescanFloor).UnixMilli()
	if sess.lastSync < floor {
		return sess.lastSync
	}
	return floor
}

// Sync runs one full session and returns the aggregated response.
//
// Failure to obtain a connection fails the whole session atomically
// (no partial counts). Everything past that point degrades gracefully:
// schema statements, individual row writes and per-entity pulls absorb
// their own failures into the response warnings.
func (s *SyncService) Sync(ctx context.Context, req *SyncRequest) (*SyncResponse, error) {
	if err := s.checkClosed(); err != nil {
		return nil, err
	}

	totalStart := s.stageStart()

	connString := req.ConnectionString
	if connString == "" {
		connString = s.config.DefaultConnectionString
	}
	if connString == "" {
		return nil, &ConnectivityError{Err: errors.New("no connection string provided")}
	}

	store, err := s.connector.Open(ctx, connString)
	if err != nil {
		var connErr *ConnectivityError
		if !errors.As(err, &connErr) {
			err = &ConnectivityError{Err: err}
		}
		s.observeStage(ctx, stageOpSync, stageTotal, totalStart, 0, true)
		return nil, err
	}
	defer store.Close(ctx)

	sess := s.newSession(req.LastSyncTimestamp)
	s.logger.Info("Sync session started",
		"first_sync", sess.first,
		"last_sync_timestamp", req.LastSyncTimestamp,
		"type", req.Type) // type is accepted but never branched on

	schemaStart := s.stageStart()
	schemaWarnings := store.EnsureSchema(ctx)
	s.observeStage(ctx, stageOpSync, stageSchema, schemaStart, len(schemaWarnings), len(schemaWarnings) > 0)

	// Push for all entity types completes before any pull begins, so a
	// device does not re-pull rows it is about to push as foreign
	// changes. Some self-pulled echo from the trailing window remains
	// expected.
	pushStart := s.stageStart()
	push := s.pushAll(ctx, store, &req.LocalData, sess)
	s.observeStage(ctx, stageOpSync, stagePush, pushStart, push.total(), len(push.Errors) > 0)

	pullStart := s.stageStart()
	pull := s.pullAll(ctx, store, sess.pullCutoff())
	s.observeStage(ctx, stageOpSync, stagePull, pullStart, pull.total(), len(pull.Warnings) > 0)

	resp := aggregateResponse(push, pull, schemaWarnings)
	s.observeStage(ctx, stageOpSync, stageTotal, totalStart, push.total()+pull.total(), false)
	s.logger.Info("Sync session finished",
		"pushed", resp.SyncedCounts, "pulled", resp.PullCounts, "warnings", len(resp.Warnings))
	return resp, nil
}
