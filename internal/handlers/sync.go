package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"watchtower/internal/models"
	"watchtower/internal/store"
	"watchtower/pkg/logging"
	"watchtower/pkg/middleware"
)

// StatusStore reads the sync-status ledger.
type StatusStore interface {
	ListSyncStatus(ctx context.Context) ([]models.SyncStatus, error)
	GetSyncStatus(ctx context.Context, jobName string) (models.SyncStatus, error)
}

var (
	jobs      map[string]func(context.Context) models.SyncReport
	dataStore StatusStore
	logger    logging.Logger
)

// Init initializes the handlers with the job table, ledger store and logger
func Init(jobTable map[string]func(context.Context) models.SyncReport, st StatusStore, log logging.Logger) {
	jobs = jobTable
	dataStore = st
	logger = log
}

// TriggerSync runs one ingestion job synchronously and returns its
// report. The job parameter accepts both "markets" and "sync-markets".
func TriggerSync(c middleware.Context) {
	name := c.Param("job")
	run, ok := jobs[name]
	if !ok {
		run, ok = jobs["sync-"+strings.TrimPrefix(name, "sync-")]
	}
	if !ok {
		c.JSON(http.StatusNotFound, middleware.H{"error": "unknown sync job: " + name})
		return
	}

	report := run(c.Request.Context())

	status := http.StatusOK
	if !report.Success {
		// Counters are still useful to the caller on failure, so the
		// full report is returned rather than a bare error.
		status = http.StatusInternalServerError
	}
	c.JSON(status, report)
}

// ListSyncStatus returns the sync-status ledger, one row per job.
func ListSyncStatus(c middleware.Context) {
	statuses, err := dataStore.ListSyncStatus(c.Request.Context())
	if err != nil {
		logger.WithError(err).Error("Failed to list sync status")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "failed to read sync status"})
		return
	}
	c.JSON(http.StatusOK, middleware.H{"data": statuses})
}

// GetSyncStatus returns the ledger row for one job. The job parameter
// accepts both "markets" and "sync-markets".
func GetSyncStatus(c middleware.Context) {
	name := c.Param("job")
	if _, ok := jobs[name]; !ok {
		name = "sync-" + strings.TrimPrefix(name, "sync-")
	}

	status, err := dataStore.GetSyncStatus(c.Request.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, middleware.H{"error": "no sync status for job: " + name})
		return
	}
	if err != nil {
		logger.WithError(err).Error("Failed to get sync status")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "failed to read sync status"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// ListJobs returns the known job names, for discovery and tooling.
func ListJobs(c middleware.Context) {
	names := make([]string, 0, len(jobs))
	for name := range jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	c.JSON(http.StatusOK, middleware.H{"jobs": names})
}
