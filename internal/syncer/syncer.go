// Package syncer runs the per-domain ingestion jobs. Each job fetches
// its sources concurrently with settle-all semantics, upserts every
// record best-effort, applies the domain's retention rule, writes the
// sync-status ledger and returns a structured report. A degraded
// fetcher contributes zero records and one error; only persistence
// failures mark the run unsuccessful.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"watchtower/internal/models"
	"watchtower/pkg/logging"
)

// Store is the persistence surface the orchestrators need.
type Store interface {
	UpsertNewsItem(ctx context.Context, n models.NewsItem) error
	UpsertMarketDatum(ctx context.Context, m models.MarketDatum) error
	UpsertEarthquake(ctx context.Context, q models.EarthquakeRecord) error
	UpsertGridStress(ctx context.Context, g models.GridStressRecord) error
	UpsertOutage(ctx context.Context, o models.OutageRecord) error
	UpsertRadiationReading(ctx context.Context, r models.RadiationReading) error
	UpsertDiseaseOutbreak(ctx context.Context, d models.DiseaseOutbreak) error
	UpsertPrediction(ctx context.Context, p models.PolymarketPrediction) error
	UpsertWhaleTransaction(ctx context.Context, w models.WhaleTransaction) error
	UpsertConflictHotspot(ctx context.Context, c models.ConflictHotspot) error
	UpsertStorm(ctx context.Context, t models.TropicalCyclone) error
	UpsertConvectiveOutlook(ctx context.Context, o models.ConvectiveOutlook) error
	UpsertWeatherAlert(ctx context.Context, a models.WeatherAlert) error
	UpsertGovContract(ctx context.Context, g models.GovContract) error
	UpsertLayoff(ctx context.Context, l models.Layoff) error
	UpsertWorldLeader(ctx context.Context, w models.WorldLeader) error
	UpsertFedBalance(ctx context.Context, f models.FedBalanceSnapshot) error

	DeleteOlderThan(ctx context.Context, table string, window time.Duration) (int64, error)
	DeleteInactiveOutages(ctx context.Context, window time.Duration) (int64, error)
	TrimFedBalance(ctx context.Context, keep int) (int64, error)

	UpsertSyncStatus(ctx context.Context, status models.SyncStatus) error
}

// Sources is the fetcher surface. Tests substitute fakes per source.
type Sources interface {
	FetchNews(ctx context.Context) ([]models.NewsItem, error)
	FetchCryptoPrices(ctx context.Context) ([]models.MarketDatum, error)
	FetchEquityQuotes(ctx context.Context) ([]models.MarketDatum, error)
	FetchEarthquakes(ctx context.Context) ([]models.EarthquakeRecord, error)
	FetchGridStress(ctx context.Context) ([]models.GridStressRecord, error)
	FetchOutages(ctx context.Context) ([]models.OutageRecord, error)
	FetchRadiation(ctx context.Context) ([]models.RadiationReading, error)
	FetchOutbreaks(ctx context.Context) ([]models.DiseaseOutbreak, error)
	FetchPredictions(ctx context.Context) ([]models.PolymarketPrediction, error)
	FetchWhaleTransactions(ctx context.Context) ([]models.WhaleTransaction, error)
	FetchConflictHotspots(ctx context.Context) ([]models.ConflictHotspot, error)
	FetchStorms(ctx context.Context) ([]models.TropicalCyclone, error)
	FetchConvectiveOutlooks(ctx context.Context) ([]models.ConvectiveOutlook, error)
	FetchWeatherAlerts(ctx context.Context) ([]models.WeatherAlert, error)
	FetchGovContracts(ctx context.Context) ([]models.GovContract, error)
	FetchLayoffs(ctx context.Context) ([]models.Layoff, error)
	FetchWorldLeaders(ctx context.Context) ([]models.WorldLeader, error)
	FetchFedBalance(ctx context.Context) ([]models.FedBalanceSnapshot, error)
}

// Metrics are the optional Prometheus instruments for sync runs.
type Metrics struct {
	Runs     *prometheus.CounterVec   // labels: job, status
	Records  *prometheus.CounterVec   // labels: job, outcome
	Duration *prometheus.HistogramVec // labels: job
}

// Syncer owns the orchestration of all ingestion jobs.
type Syncer struct {
	store   Store
	sources Sources
	logger  logging.Logger
	metrics *Metrics
	now     func() time.Time
}

// New creates a syncer. Metrics may be nil.
func New(store Store, sources Sources, logger logging.Logger, metrics *Metrics) *Syncer {
	return &Syncer{
		store:   store,
		sources: sources,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Jobs maps job names to their runners, in the order the scheduler and
// the trigger endpoint expose them.
func (s *Syncer) Jobs() map[string]func(context.Context) models.SyncReport {
	return map[string]func(context.Context) models.SyncReport{
		"sync-markets":     s.SyncMarkets,
		"sync-news":        s.SyncNews,
		"sync-hazards":     s.SyncHazards,
		"sync-environment": s.SyncEnvironment,
		"sync-intel":       s.SyncIntel,
		"sync-storms":      s.SyncStorms,
		"sync-weather":     s.SyncWeather,
		"sync-slow":        s.SyncSlow,
		"sync-fed":         s.SyncFed,
	}
}

// state accumulates one run's counters across concurrent sources.
type state struct {
	mu            sync.Mutex
	sources       map[string]int
	upserted      int
	errors        int
	persistFailed bool
	lastErr       string
}

func newState() *state {
	return &state{sources: make(map[string]int)}
}

func (st *state) sourceDone(name string, upserted int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sources[name] = upserted
	st.upserted += upserted
}

func (st *state) fetchFailure(name string, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sources[name] = 0
	st.errors++
	st.lastErr = err.Error()
}

func (st *state) persistFailure(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.errors++
	st.persistFailed = true
	st.lastErr = err.Error()
}

// syncSource returns an errgroup closure that fetches one source and
// upserts its records. The closure always returns nil so one failing
// source never cancels its siblings.
func syncSource[T any](ctx context.Context, st *state, logger logging.Logger, name string,
	fetch func(context.Context) ([]T, error),
	upsert func(context.Context, T) error,
	externalID func(T) string,
) func() error {
	return func() error {
		// Last line of defense: a bug in one source must not take the
		// process down or abort its sibling sources.
		defer func() {
			if r := recover(); r != nil {
				logger.WithField("source", name).Errorf("Source panicked: %v", r)
				st.persistFailure(fmt.Errorf("panic in %s: %v", name, r))
			}
		}()

		records, err := fetch(ctx)
		if err != nil {
			st.fetchFailure(name, err)
			return nil
		}

		count := 0
		for _, rec := range records {
			if err := upsert(ctx, rec); err != nil {
				logger.WithError(err).WithFields(logging.Fields{
					"source":      name,
					"external_id": externalID(rec),
				}).Error("Upsert failed")
				st.persistFailure(err)
				continue
			}
			count++
		}
		st.sourceDone(name, count)
		return nil
	}
}

// cleanup applies one retention rule, treating delete failures like
// upsert failures.
func (s *Syncer) cleanup(ctx context.Context, st *state, table string, window time.Duration) {
	deleted, err := s.store.DeleteOlderThan(ctx, table, window)
	if err != nil {
		s.logger.WithError(err).WithField("table", table).Error("Retention cleanup failed")
		st.persistFailure(err)
		return
	}
	if deleted > 0 {
		s.logger.WithFields(logging.Fields{"table": table, "deleted": deleted}).Debug("Retention cleanup")
	}
}

// run executes one job under panic protection, writes the ledger row
// and emits metrics. The ledger write itself is best-effort; a failed
// ledger write is logged but does not alter the report.
func (s *Syncer) run(ctx context.Context, job string, work func(context.Context, *state)) models.SyncReport {
	start := s.now()
	st := newState()

	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.WithField("job", job).Errorf("Sync job panicked: %v", r)
				st.persistFailure(fmt.Errorf("panic: %v", r))
			}
		}()
		work(ctx, st)
	}()

	durationMs := s.now().Sub(start).Milliseconds()

	st.mu.Lock()
	report := models.SyncReport{
		Success:    !st.persistFailed,
		Function:   job,
		Upserted:   st.upserted,
		Errors:     st.errors,
		DurationMs: durationMs,
		Sources:    st.sources,
		LastError:  st.lastErr,
	}
	st.mu.Unlock()

	if err := s.store.UpsertSyncStatus(ctx, models.SyncStatus{
		JobName:    job,
		Success:    report.Success,
		Upserted:   report.Upserted,
		Errors:     report.Errors,
		DurationMs: report.DurationMs,
		LastError:  report.LastError,
		RanAt:      s.now().UTC(),
	}); err != nil {
		s.logger.WithError(err).WithField("job", job).Error("Failed to write sync status")
	}

	if s.metrics != nil {
		status := "success"
		if !report.Success {
			status = "failure"
		}
		s.metrics.Runs.WithLabelValues(job, status).Inc()
		s.metrics.Records.WithLabelValues(job, "upserted").Add(float64(report.Upserted))
		s.metrics.Records.WithLabelValues(job, "error").Add(float64(report.Errors))
		s.metrics.Duration.WithLabelValues(job).Observe(float64(durationMs) / 1000)
	}

	s.logger.WithFields(logging.Fields{
		"job":         job,
		"success":     report.Success,
		"upserted":    report.Upserted,
		"errors":      report.Errors,
		"duration_ms": report.DurationMs,
	}).Info("Sync job finished")

	return report
}

// SyncMarkets ingests crypto and equity quotes.
func (s *Syncer) SyncMarkets(ctx context.Context) models.SyncReport {
	return s.run(ctx, "sync-markets", func(ctx context.Context, st *state) {
		var g errgroup.Group
		g.Go(syncSource(ctx, st, s.logger, "crypto", s.sources.FetchCryptoPrices, s.store.UpsertMarketDatum,
			func(m models.MarketDatum) string { return m.ExternalID }))
		g.Go(syncSource(ctx, st, s.logger, "equities", s.sources.FetchEquityQuotes, s.store.UpsertMarketDatum,
			func(m models.MarketDatum) string { return m.ExternalID }))
		_ = g.Wait()
	})
}

// SyncNews ingests geocoded headlines.
func (s *Syncer) SyncNews(ctx context.Context) models.SyncReport {
	return s.run(ctx, "sync-news", func(ctx context.Context, st *state) {
		var g errgroup.Group
		g.Go(syncSource(ctx, st, s.logger, "news", s.sources.FetchNews, s.store.UpsertNewsItem,
			func(n models.NewsItem) string { return n.ExternalID }))
		_ = g.Wait()

		s.cleanup(ctx, st, "news_items", 7*24*time.Hour)
	})
}

// SyncHazards ingests earthquakes, grid stress and connectivity outages.
func (s *Syncer) SyncHazards(ctx context.Context) models.SyncReport {
	return s.run(ctx, "sync-hazards", func(ctx context.Context, st *state) {
		var g errgroup.Group
		g.Go(syncSource(ctx, st, s.logger, "earthquakes", s.sources.FetchEarthquakes, s.store.UpsertEarthquake,
			func(q models.EarthquakeRecord) string { return q.ExternalID }))
		g.Go(syncSource(ctx, st, s.logger, "grid", s.sources.FetchGridStress, s.store.UpsertGridStress,
			func(gr models.GridStressRecord) string { return gr.ExternalID }))
		g.Go(syncSource(ctx, st, s.logger, "outages", s.sources.FetchOutages, s.store.UpsertOutage,
			func(o models.OutageRecord) string { return o.ExternalID }))
		_ = g.Wait()

		s.cleanup(ctx, st, "earthquakes", 7*24*time.Hour)
		if _, err := s.store.DeleteInactiveOutages(ctx, 24*time.Hour); err != nil {
			s.logger.WithError(err).Error("Outage cleanup failed")
			st.persistFailure(err)
		}
	})
}

// SyncEnvironment ingests radiation readings and disease outbreaks.
func (s *Syncer) SyncEnvironment(ctx context.Context) models.SyncReport {
	return s.run(ctx, "sync-environment", func(ctx context.Context, st *state) {
		var g errgroup.Group
		g.Go(syncSource(ctx, st, s.logger, "radiation", s.sources.FetchRadiation, s.store.UpsertRadiationReading,
			func(r models.RadiationReading) string { return r.ExternalID }))
		g.Go(syncSource(ctx, st, s.logger, "outbreaks", s.sources.FetchOutbreaks, s.store.UpsertDiseaseOutbreak,
			func(d models.DiseaseOutbreak) string { return d.ExternalID }))
		_ = g.Wait()

		s.cleanup(ctx, st, "radiation_readings", 3*24*time.Hour)
	})
}

// SyncIntel ingests prediction markets, whale transfers and conflict
// forecasts.
func (s *Syncer) SyncIntel(ctx context.Context) models.SyncReport {
	return s.run(ctx, "sync-intel", func(ctx context.Context, st *state) {
		var g errgroup.Group
		g.Go(syncSource(ctx, st, s.logger, "predictions", s.sources.FetchPredictions, s.store.UpsertPrediction,
			func(p models.PolymarketPrediction) string { return p.ExternalID }))
		g.Go(syncSource(ctx, st, s.logger, "whales", s.sources.FetchWhaleTransactions, s.store.UpsertWhaleTransaction,
			func(w models.WhaleTransaction) string { return w.ExternalID }))
		g.Go(syncSource(ctx, st, s.logger, "conflicts", s.sources.FetchConflictHotspots, s.store.UpsertConflictHotspot,
			func(c models.ConflictHotspot) string { return c.ExternalID }))
		_ = g.Wait()

		s.cleanup(ctx, st, "predictions", 7*24*time.Hour)
		s.cleanup(ctx, st, "whale_transactions", 24*time.Hour)
	})
}

// SyncStorms ingests tropical cyclones and convective outlooks.
func (s *Syncer) SyncStorms(ctx context.Context) models.SyncReport {
	return s.run(ctx, "sync-storms", func(ctx context.Context, st *state) {
		var g errgroup.Group
		g.Go(syncSource(ctx, st, s.logger, "storms", s.sources.FetchStorms, s.store.UpsertStorm,
			func(t models.TropicalCyclone) string { return t.ExternalID }))
		g.Go(syncSource(ctx, st, s.logger, "convective", s.sources.FetchConvectiveOutlooks, s.store.UpsertConvectiveOutlook,
			func(o models.ConvectiveOutlook) string { return o.ExternalID }))
		_ = g.Wait()

		s.cleanup(ctx, st, "storms", 2*24*time.Hour)
		s.cleanup(ctx, st, "convective_outlooks", 24*time.Hour)
	})
}

// SyncWeather ingests active weather alerts.
func (s *Syncer) SyncWeather(ctx context.Context) models.SyncReport {
	return s.run(ctx, "sync-weather", func(ctx context.Context, st *state) {
		var g errgroup.Group
		g.Go(syncSource(ctx, st, s.logger, "alerts", s.sources.FetchWeatherAlerts, s.store.UpsertWeatherAlert,
			func(a models.WeatherAlert) string { return a.ExternalID }))
		_ = g.Wait()

		s.cleanup(ctx, st, "weather_alerts", 24*time.Hour)
	})
}

// SyncSlow ingests the slow-moving datasets: federal contracts, layoff
// coverage and world leaders.
func (s *Syncer) SyncSlow(ctx context.Context) models.SyncReport {
	return s.run(ctx, "sync-slow", func(ctx context.Context, st *state) {
		var g errgroup.Group
		g.Go(syncSource(ctx, st, s.logger, "contracts", s.sources.FetchGovContracts, s.store.UpsertGovContract,
			func(c models.GovContract) string { return c.ExternalID }))
		g.Go(syncSource(ctx, st, s.logger, "layoffs", s.sources.FetchLayoffs, s.store.UpsertLayoff,
			func(l models.Layoff) string { return l.ExternalID }))
		g.Go(syncSource(ctx, st, s.logger, "leaders", s.sources.FetchWorldLeaders, s.store.UpsertWorldLeader,
			func(w models.WorldLeader) string { return w.ExternalID }))
		_ = g.Wait()

		s.cleanup(ctx, st, "gov_contracts", 30*24*time.Hour)
		s.cleanup(ctx, st, "layoffs", 30*24*time.Hour)
		s.cleanup(ctx, st, "world_leaders", 30*24*time.Hour)
	})
}

// SyncFed ingests the Fed balance-sheet series and trims it to a year
// of weekly observations.
func (s *Syncer) SyncFed(ctx context.Context) models.SyncReport {
	return s.run(ctx, "sync-fed", func(ctx context.Context, st *state) {
		var g errgroup.Group
		g.Go(syncSource(ctx, st, s.logger, "fed", s.sources.FetchFedBalance, s.store.UpsertFedBalance,
			func(f models.FedBalanceSnapshot) string { return f.ExternalID }))
		_ = g.Wait()

		if _, err := s.store.TrimFedBalance(ctx, 52); err != nil {
			s.logger.WithError(err).Error("Fed balance trim failed")
			st.persistFailure(err)
		}
	})
}
