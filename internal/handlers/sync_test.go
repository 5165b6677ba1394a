package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"watchtower/internal/models"
	"watchtower/internal/store"
)

type fakeStatusStore struct {
	statuses []models.SyncStatus
	err      error
}

func (f *fakeStatusStore) ListSyncStatus(context.Context) ([]models.SyncStatus, error) {
	return f.statuses, f.err
}

func (f *fakeStatusStore) GetSyncStatus(_ context.Context, jobName string) (models.SyncStatus, error) {
	if f.err != nil {
		return models.SyncStatus{}, f.err
	}
	for _, st := range f.statuses {
		if st.JobName == jobName {
			return st, nil
		}
	}
	return models.SyncStatus{}, store.ErrNotFound
}

func setupRouter(t *testing.T, jobTable map[string]func(context.Context) models.SyncReport, st StatusStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	Init(jobTable, st, logger)

	router := gin.New()
	router.POST("/api/sync/:job", TriggerSync)
	router.GET("/api/sync/status", ListSyncStatus)
	router.GET("/api/sync/status/:job", GetSyncStatus)
	router.GET("/api/sync/jobs", ListJobs)
	return router
}

func TestTriggerSyncUnknownJob(t *testing.T) {
	router := setupRouter(t, map[string]func(context.Context) models.SyncReport{}, &fakeStatusStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sync/sync-nonsense", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Contains(t, body["error"], "unknown sync job")
}

func TestTriggerSyncReturnsReport(t *testing.T) {
	jobTable := map[string]func(context.Context) models.SyncReport{
		"sync-hazards": func(context.Context) models.SyncReport {
			return models.SyncReport{
				Success:    true,
				Function:   "sync-hazards",
				Upserted:   12,
				DurationMs: 834,
				Sources:    map[string]int{"earthquakes": 12},
			}
		},
	}
	router := setupRouter(t, jobTable, &fakeStatusStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sync/sync-hazards", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var report models.SyncReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.True(t, report.Success)
	require.Equal(t, 12, report.Upserted)
	require.Equal(t, 12, report.Sources["earthquakes"])
}

func TestTriggerSyncAcceptsShortJobName(t *testing.T) {
	called := false
	jobTable := map[string]func(context.Context) models.SyncReport{
		"sync-markets": func(context.Context) models.SyncReport {
			called = true
			return models.SyncReport{Success: true, Function: "sync-markets"}
		},
	}
	router := setupRouter(t, jobTable, &fakeStatusStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sync/markets", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, called)
}

func TestTriggerSyncFailedRunReturns500(t *testing.T) {
	jobTable := map[string]func(context.Context) models.SyncReport{
		"sync-news": func(context.Context) models.SyncReport {
			return models.SyncReport{Success: false, Function: "sync-news", Errors: 3, LastError: "upsert failed"}
		},
	}
	router := setupRouter(t, jobTable, &fakeStatusStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/sync/sync-news", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var report models.SyncReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.False(t, report.Success)
	require.Equal(t, 3, report.Errors)
}

func TestListSyncStatus(t *testing.T) {
	st := &fakeStatusStore{statuses: []models.SyncStatus{
		{JobName: "sync-hazards", Success: true, Upserted: 12, RanAt: time.Now()},
		{JobName: "sync-news", Success: false, Errors: 1, LastError: "boom", RanAt: time.Now()},
	}}
	router := setupRouter(t, map[string]func(context.Context) models.SyncReport{}, st)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sync/status", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []models.SyncStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	require.Equal(t, "sync-hazards", body.Data[0].JobName)
}

func TestGetSyncStatus(t *testing.T) {
	jobTable := map[string]func(context.Context) models.SyncReport{
		"sync-hazards": func(context.Context) models.SyncReport { return models.SyncReport{} },
	}
	st := &fakeStatusStore{statuses: []models.SyncStatus{
		{JobName: "sync-hazards", Success: true, Upserted: 12, RanAt: time.Now()},
	}}
	router := setupRouter(t, jobTable, st)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sync/status/hazards", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var status models.SyncStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Equal(t, "sync-hazards", status.JobName)
	require.Equal(t, 12, status.Upserted)
}

func TestGetSyncStatusNeverRan(t *testing.T) {
	router := setupRouter(t, map[string]func(context.Context) models.SyncReport{}, &fakeStatusStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sync/status/sync-nonsense", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Contains(t, body["error"], "no sync status")
}

func TestListSyncStatusStoreError(t *testing.T) {
	router := setupRouter(t, map[string]func(context.Context) models.SyncReport{}, &fakeStatusStore{err: errors.New("db down")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sync/status", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListJobs(t *testing.T) {
	jobTable := map[string]func(context.Context) models.SyncReport{
		"sync-markets": func(context.Context) models.SyncReport { return models.SyncReport{} },
		"sync-news":    func(context.Context) models.SyncReport { return models.SyncReport{} },
	}
	router := setupRouter(t, jobTable, &fakeStatusStore{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sync/jobs", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Jobs []string `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, []string{"sync-markets", "sync-news"}, body.Jobs)
}
