package syncer

import (
	"context"
	"time"

	"watchtower/internal/models"
	"watchtower/pkg/config"
	"watchtower/pkg/logging"
)

const initialRunDelay = 10 * time.Second

// JobManager runs the ingestion jobs on their schedules. Every job can
// also be triggered on demand over HTTP; the manager just provides the
// steady-state cadence.
type JobManager struct {
	syncer *Syncer
	logger logging.Logger
	stopCh chan struct{}
}

// NewJobManager creates a job manager over a syncer.
func NewJobManager(s *Syncer, log logging.Logger) *JobManager {
	return &JobManager{
		syncer: s,
		logger: log,
		stopCh: make(chan struct{}),
	}
}

// jobIntervals are the default cadences, overridable per job through
// SYNC_INTERVAL_<NAME> environment variables.
func jobIntervals() map[string]time.Duration {
	return map[string]time.Duration{
		"sync-markets":     config.GetEnvDuration("SYNC_INTERVAL_MARKETS", 5*time.Minute),
		"sync-news":        config.GetEnvDuration("SYNC_INTERVAL_NEWS", 10*time.Minute),
		"sync-hazards":     config.GetEnvDuration("SYNC_INTERVAL_HAZARDS", 10*time.Minute),
		"sync-environment": config.GetEnvDuration("SYNC_INTERVAL_ENVIRONMENT", 30*time.Minute),
		"sync-intel":       config.GetEnvDuration("SYNC_INTERVAL_INTEL", 10*time.Minute),
		"sync-storms":      config.GetEnvDuration("SYNC_INTERVAL_STORMS", 15*time.Minute),
		"sync-weather":     config.GetEnvDuration("SYNC_INTERVAL_WEATHER", 10*time.Minute),
		"sync-slow":        config.GetEnvDuration("SYNC_INTERVAL_SLOW", 6*time.Hour),
		"sync-fed":         config.GetEnvDuration("SYNC_INTERVAL_FED", 12*time.Hour),
	}
}

// Start launches one scheduling goroutine per job. Each job runs once
// shortly after startup so a fresh deployment has data before the first
// full interval elapses.
func (jm *JobManager) Start(ctx context.Context) {
	jm.logger.Info("Starting sync job manager")

	jobs := jm.syncer.Jobs()
	for name, interval := range jobIntervals() {
		run, ok := jobs[name]
		if !ok {
			continue
		}
		go jm.runJob(ctx, name, interval, run)
	}
}

// Stop stops all scheduled jobs.
func (jm *JobManager) Stop() {
	jm.logger.Info("Stopping sync job manager")
	close(jm.stopCh)
}

func (jm *JobManager) runJob(ctx context.Context, name string, interval time.Duration, run func(context.Context) models.SyncReport) {
	jm.logger.WithFields(logging.Fields{"job": name, "interval": interval.String()}).Info("Scheduling sync job")

	// Short delay before the first run so the HTTP server is up first.
	select {
	case <-ctx.Done():
		return
	case <-jm.stopCh:
		return
	case <-time.After(initialRunDelay):
	}
	run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-jm.stopCh:
			return
		case <-ticker.C:
			run(ctx)
		}
	}
}
