package vitalsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncFirstSessionThenImmediateRepeat(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, testNow)

	entry := foodAt(ms(testNow.Add(-time.Hour)))
	snapshot := LocalSnapshot{FoodEntries: []FoodEntry{entry}}

	// First-ever sync pushes the fresh entry.
	resp, err := svc.Sync(context.Background(), &SyncRequest{
		ConnectionString:  "postgres://test",
		LocalData:         snapshot,
		LastSyncTimestamp: 0,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.SyncedCounts.FoodEntries)

	// Immediate repeat with lastSync=now: nothing new to push, but the
	// trailing pull window re-surfaces the entry for deduplication by
	// the caller.
	resp, err = svc.Sync(context.Background(), &SyncRequest{
		ConnectionString:  "postgres://test",
		LocalData:         snapshot,
		LastSyncTimestamp: ms(testNow),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.SyncedCounts.FoodEntries)
	assert.Equal(t, 1, resp.PullCounts.FoodEntries)
}

func TestSyncConnectionFailureIsAtomic(t *testing.T) {
	connector := &fakeConnector{openErr: &ConnectivityError{Err: errors.New("dial refused")}}
	svc := NewSyncService(connector, nil, testLogger())

	resp, err := svc.Sync(context.Background(), &SyncRequest{ConnectionString: "postgres://down"})
	require.Error(t, err)
	assert.Nil(t, resp)

	var connErr *ConnectivityError
	assert.True(t, errors.As(err, &connErr))
}

func TestSyncMissingConnectionString(t *testing.T) {
	svc, _ := newTestService(newFakeStore(), testNow)

	_, err := svc.Sync(context.Background(), &SyncRequest{})
	require.Error(t, err)

	var connErr *ConnectivityError
	assert.True(t, errors.As(err, &connErr))
}

func TestSyncDefaultConnectionString(t *testing.T) {
	store := newFakeStore()
	connector := &fakeConnector{store: store}
	svc := NewSyncService(connector, &ServiceConfig{
		DefaultConnectionString: "postgres://default",
	}, testLogger())
	svc.clock = func() time.Time { return testNow }

	resp, err := svc.Sync(context.Background(), &SyncRequest{LastSyncTimestamp: ms(testNow)})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, connector.opened)
}

func TestSyncPushPhaseCompletesBeforePull(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, testNow)

	_, err := svc.Sync(context.Background(), &SyncRequest{
		ConnectionString: "postgres://test",
		LocalData: LocalSnapshot{
			FoodEntries: []FoodEntry{foodAt(ms(testNow.Add(-time.Hour)))},
			Goals:       []Goal{{ID: "g1", Title: "goal", CreatedAt: ms(testNow.Add(-time.Hour))}},
		},
		LastSyncTimestamp: ms(testNow.Add(-24 * time.Hour)),
	})
	require.NoError(t, err)

	lastUpsert, firstRead := -1, -1
	for i, op := range store.ops {
		if op == "upsert" {
			lastUpsert = i
		}
		if op == "read" && firstRead == -1 {
			firstRead = i
		}
	}
	require.GreaterOrEqual(t, lastUpsert, 0)
	require.GreaterOrEqual(t, firstRead, 0)
	assert.Less(t, lastUpsert, firstRead, "all pushes must complete before the first pull")
}

func TestSyncSurfacesSchemaWarnings(t *testing.T) {
	store := newFakeStore()
	store.schemaWarnings = []SchemaWarning{
		{Table: "goals", Err: errors.New("permission denied")},
	}
	svc, _ := newTestService(store, testNow)

	resp, err := svc.Sync(context.Background(), &SyncRequest{
		ConnectionString:  "postgres://test",
		LastSyncTimestamp: ms(testNow),
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "goals")
	assert.Contains(t, resp.Message, "1 warning")
}

func TestSyncReleasesStoreOnEveryPath(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, testNow)

	_, err := svc.Sync(context.Background(), &SyncRequest{
		ConnectionString:  "postgres://test",
		LastSyncTimestamp: ms(testNow),
	})
	require.NoError(t, err)
	assert.True(t, store.closed)
}

func TestSyncAfterClose(t *testing.T) {
	svc, _ := newTestService(newFakeStore(), testNow)
	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close()) // safe to repeat

	_, err := svc.Sync(context.Background(), &SyncRequest{ConnectionString: "postgres://test"})
	assert.Error(t, err)
}

func TestSyncStageMetrics(t *testing.T) {
	store := newFakeStore()
	connector := &fakeConnector{store: store}

	var stages []string
	svc := NewSyncService(connector, &ServiceConfig{
		StageMetrics: StageMetricsRecorderFunc(func(ctx context.Context, timing StageTiming) {
			stages = append(stages, timing.Stage)
		}),
	}, testLogger())
	svc.clock = func() time.Time { return testNow }

	_, err := svc.Sync(context.Background(), &SyncRequest{
		ConnectionString:  "postgres://test",
		LastSyncTimestamp: ms(testNow),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{stageSchema, stagePush, stagePull, stageTotal}, stages)
}
