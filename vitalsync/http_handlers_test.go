package vitalsync

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAuth struct {
	userID, deviceID string
	err              error
}

func (a *staticAuth) GetUserID(r *http.Request) (string, error)   { return a.userID, a.err }
func (a *staticAuth) GetDeviceID(r *http.Request) (string, error) { return a.deviceID, a.err }

func newTestHandlers(store *fakeStore) *HTTPSyncHandlers {
	svc, _ := newTestService(store, testNow)
	return NewHTTPSyncHandlers(svc, &staticAuth{userID: "u1", deviceID: "d1"}, testLogger())
}

func postSync(h *HTTPSyncHandlers, body []byte) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/sync", bytes.NewReader(body))
	h.HandleSync(rec, r)
	return rec
}

func TestHandleSyncSuccess(t *testing.T) {
	store := newFakeStore()
	h := newTestHandlers(store)

	reqBody, err := json.Marshal(SyncRequest{
		ConnectionString: "postgres://test",
		LocalData: LocalSnapshot{
			FoodEntries: []FoodEntry{foodAt(ms(testNow.Add(-time.Hour)))},
		},
		LastSyncTimestamp: 0,
	})
	require.NoError(t, err)

	rec := postSync(h, reqBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SyncResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.SyncedCounts.FoodEntries)
	assert.NotNil(t, resp.PulledData.FoodEntries)
}

func TestHandleSyncBadJSON(t *testing.T) {
	h := newTestHandlers(newFakeStore())

	rec := postSync(h, []byte(`{"connectionString":`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp FailureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
}

func TestHandleSyncMethodNotAllowed(t *testing.T) {
	h := newTestHandlers(newFakeStore())

	rec := httptest.NewRecorder()
	h.HandleSync(rec, httptest.NewRequest(http.MethodGet, "/sync", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleSyncAuthFailure(t *testing.T) {
	svc, _ := newTestService(newFakeStore(), testNow)
	h := NewHTTPSyncHandlers(svc, &staticAuth{err: errors.New("bad token")}, testLogger())

	rec := postSync(h, []byte(`{}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp FailureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}

func TestHandleSyncConnectivityFailure(t *testing.T) {
	connector := &fakeConnector{openErr: &ConnectivityError{Err: errors.New("dial refused")}}
	svc := NewSyncService(connector, nil, testLogger())
	h := NewHTTPSyncHandlers(svc, &staticAuth{userID: "u1", deviceID: "d1"}, testLogger())

	rec := postSync(h, []byte(`{"connectionString":"postgres://down"}`))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp FailureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)
}
