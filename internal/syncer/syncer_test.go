package syncer

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"watchtower/internal/models"
)

// fakeStore records upserts and can be told to fail specific tables.
type fakeStore struct {
	mu       sync.Mutex
	upserts  map[string][]string // table -> external ids
	failOn   map[string]error    // table -> error to return
	deletes  []string
	statuses []models.SyncStatus
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		upserts: make(map[string][]string),
		failOn:  make(map[string]error),
	}
}

func (f *fakeStore) record(table, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[table]; err != nil {
		return err
	}
	f.upserts[table] = append(f.upserts[table], id)
	return nil
}

func (f *fakeStore) count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts[table])
}

func (f *fakeStore) lastStatus() models.SyncStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[len(f.statuses)-1]
}

func (f *fakeStore) UpsertNewsItem(_ context.Context, n models.NewsItem) error {
	return f.record("news_items", n.ExternalID)
}
func (f *fakeStore) UpsertMarketDatum(_ context.Context, m models.MarketDatum) error {
	return f.record("market_data", m.ExternalID)
}
func (f *fakeStore) UpsertEarthquake(_ context.Context, q models.EarthquakeRecord) error {
	return f.record("earthquakes", q.ExternalID)
}
func (f *fakeStore) UpsertGridStress(_ context.Context, g models.GridStressRecord) error {
	return f.record("grid_stress", g.ExternalID)
}
func (f *fakeStore) UpsertOutage(_ context.Context, o models.OutageRecord) error {
	return f.record("outages", o.ExternalID)
}
func (f *fakeStore) UpsertRadiationReading(_ context.Context, r models.RadiationReading) error {
	return f.record("radiation_readings", r.ExternalID)
}
func (f *fakeStore) UpsertDiseaseOutbreak(_ context.Context, d models.DiseaseOutbreak) error {
	return f.record("disease_outbreaks", d.ExternalID)
}
func (f *fakeStore) UpsertPrediction(_ context.Context, p models.PolymarketPrediction) error {
	return f.record("predictions", p.ExternalID)
}
func (f *fakeStore) UpsertWhaleTransaction(_ context.Context, w models.WhaleTransaction) error {
	return f.record("whale_transactions", w.ExternalID)
}
func (f *fakeStore) UpsertConflictHotspot(_ context.Context, c models.ConflictHotspot) error {
	return f.record("conflict_hotspots", c.ExternalID)
}
func (f *fakeStore) UpsertStorm(_ context.Context, t models.TropicalCyclone) error {
	return f.record("storms", t.ExternalID)
}
func (f *fakeStore) UpsertConvectiveOutlook(_ context.Context, o models.ConvectiveOutlook) error {
	return f.record("convective_outlooks", o.ExternalID)
}
func (f *fakeStore) UpsertWeatherAlert(_ context.Context, a models.WeatherAlert) error {
	return f.record("weather_alerts", a.ExternalID)
}
func (f *fakeStore) UpsertGovContract(_ context.Context, g models.GovContract) error {
	return f.record("gov_contracts", g.ExternalID)
}
func (f *fakeStore) UpsertLayoff(_ context.Context, l models.Layoff) error {
	return f.record("layoffs", l.ExternalID)
}
func (f *fakeStore) UpsertWorldLeader(_ context.Context, w models.WorldLeader) error {
	return f.record("world_leaders", w.ExternalID)
}
func (f *fakeStore) UpsertFedBalance(_ context.Context, fb models.FedBalanceSnapshot) error {
	return f.record("fed_balance", fb.ExternalID)
}

func (f *fakeStore) DeleteOlderThan(_ context.Context, table string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn["delete:"+table]; err != nil {
		return 0, err
	}
	f.deletes = append(f.deletes, table)
	return 0, nil
}

func (f *fakeStore) DeleteInactiveOutages(_ context.Context, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, "outages")
	return 0, nil
}

func (f *fakeStore) TrimFedBalance(_ context.Context, _ int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, "fed_balance")
	return 0, nil
}

func (f *fakeStore) UpsertSyncStatus(_ context.Context, status models.SyncStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

// stubSources returns canned data per source, with overridable behavior.
type stubSources struct {
	news        func(context.Context) ([]models.NewsItem, error)
	crypto      func(context.Context) ([]models.MarketDatum, error)
	equities    func(context.Context) ([]models.MarketDatum, error)
	earthquakes func(context.Context) ([]models.EarthquakeRecord, error)
	gridStress  func(context.Context) ([]models.GridStressRecord, error)
	outages     func(context.Context) ([]models.OutageRecord, error)
}

func (s *stubSources) FetchNews(ctx context.Context) ([]models.NewsItem, error) {
	if s.news != nil {
		return s.news(ctx)
	}
	return nil, nil
}

func (s *stubSources) FetchCryptoPrices(ctx context.Context) ([]models.MarketDatum, error) {
	if s.crypto != nil {
		return s.crypto(ctx)
	}
	return nil, nil
}

func (s *stubSources) FetchEquityQuotes(ctx context.Context) ([]models.MarketDatum, error) {
	if s.equities != nil {
		return s.equities(ctx)
	}
	return nil, nil
}

func (s *stubSources) FetchEarthquakes(ctx context.Context) ([]models.EarthquakeRecord, error) {
	if s.earthquakes != nil {
		return s.earthquakes(ctx)
	}
	return nil, nil
}

func (s *stubSources) FetchGridStress(ctx context.Context) ([]models.GridStressRecord, error) {
	if s.gridStress != nil {
		return s.gridStress(ctx)
	}
	return nil, nil
}

func (s *stubSources) FetchOutages(ctx context.Context) ([]models.OutageRecord, error) {
	if s.outages != nil {
		return s.outages(ctx)
	}
	return nil, nil
}

func (s *stubSources) FetchRadiation(context.Context) ([]models.RadiationReading, error) {
	return nil, nil
}
func (s *stubSources) FetchOutbreaks(context.Context) ([]models.DiseaseOutbreak, error) {
	return nil, nil
}
func (s *stubSources) FetchPredictions(context.Context) ([]models.PolymarketPrediction, error) {
	return nil, nil
}
func (s *stubSources) FetchWhaleTransactions(context.Context) ([]models.WhaleTransaction, error) {
	return nil, nil
}
func (s *stubSources) FetchConflictHotspots(context.Context) ([]models.ConflictHotspot, error) {
	return nil, nil
}
func (s *stubSources) FetchStorms(context.Context) ([]models.TropicalCyclone, error) {
	return nil, nil
}
func (s *stubSources) FetchConvectiveOutlooks(context.Context) ([]models.ConvectiveOutlook, error) {
	return nil, nil
}
func (s *stubSources) FetchWeatherAlerts(context.Context) ([]models.WeatherAlert, error) {
	return nil, nil
}
func (s *stubSources) FetchGovContracts(context.Context) ([]models.GovContract, error) {
	return nil, nil
}
func (s *stubSources) FetchLayoffs(context.Context) ([]models.Layoff, error) { return nil, nil }
func (s *stubSources) FetchWorldLeaders(context.Context) ([]models.WorldLeader, error) {
	return nil, nil
}
func (s *stubSources) FetchFedBalance(context.Context) ([]models.FedBalanceSnapshot, error) {
	return nil, nil
}

func newTestSyncer(store Store, sources Sources) *Syncer {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(store, sources, logger, nil)
}

func quakes(ids ...string) []models.EarthquakeRecord {
	out := make([]models.EarthquakeRecord, len(ids))
	for i, id := range ids {
		out[i] = models.EarthquakeRecord{ExternalID: id, Magnitude: 5.5}
	}
	return out
}

func TestSyncHazardsPartialFailureIsolation(t *testing.T) {
	store := newFakeStore()
	sources := &stubSources{
		earthquakes: func(context.Context) ([]models.EarthquakeRecord, error) {
			return quakes("usgs-1", "usgs-2", "usgs-3"), nil
		},
		gridStress: func(context.Context) ([]models.GridStressRecord, error) {
			return nil, errors.New("watttime is down")
		},
		outages: func(context.Context) ([]models.OutageRecord, error) {
			return []models.OutageRecord{{ExternalID: "ioda-IR"}}, nil
		},
	}

	report := newTestSyncer(store, sources).SyncHazards(context.Background())

	// The failing source contributes one error; its siblings still land.
	require.True(t, report.Success)
	require.Equal(t, 4, report.Upserted)
	require.Equal(t, 1, report.Errors)
	require.Equal(t, 3, store.count("earthquakes"))
	require.Equal(t, 1, store.count("outages"))
	require.Equal(t, 0, store.count("grid_stress"))
	require.Equal(t, 3, report.Sources["earthquakes"])
	require.Equal(t, 0, report.Sources["grid"])
	require.Equal(t, 1, report.Sources["outages"])
}

func TestSyncHazardsUpsertFailureFlipsSuccess(t *testing.T) {
	store := newFakeStore()
	store.failOn["earthquakes"] = errors.New("connection reset")
	sources := &stubSources{
		earthquakes: func(context.Context) ([]models.EarthquakeRecord, error) {
			return quakes("usgs-1", "usgs-2"), nil
		},
		outages: func(context.Context) ([]models.OutageRecord, error) {
			return []models.OutageRecord{{ExternalID: "ioda-SY"}}, nil
		},
	}

	report := newTestSyncer(store, sources).SyncHazards(context.Background())

	require.False(t, report.Success)
	require.Equal(t, 2, report.Errors)
	require.Equal(t, 1, report.Upserted) // the outage still landed
	require.Contains(t, report.LastError, "connection reset")
}

func TestSyncHazardsEmptyOptionalSourceIsSuccess(t *testing.T) {
	// Grid stress with absent credentials returns ([], nil): zero
	// records for that sub-source, no error, run still succeeds.
	store := newFakeStore()
	report := newTestSyncer(store, &stubSources{}).SyncHazards(context.Background())

	require.True(t, report.Success)
	require.Equal(t, 0, report.Upserted)
	require.Equal(t, 0, report.Errors)
	require.Equal(t, 0, report.Sources["grid"])
}

func TestSyncWritesLedgerRow(t *testing.T) {
	store := newFakeStore()
	sources := &stubSources{
		news: func(context.Context) ([]models.NewsItem, error) {
			return []models.NewsItem{{ExternalID: "news-1"}}, nil
		},
	}

	report := newTestSyncer(store, sources).SyncNews(context.Background())

	require.True(t, report.Success)
	status := store.lastStatus()
	require.Equal(t, "sync-news", status.JobName)
	require.True(t, status.Success)
	require.Equal(t, 1, status.Upserted)
	require.False(t, status.RanAt.IsZero())
	require.Contains(t, store.deletes, "news_items")
}

func TestSyncRetentionFailureFlipsSuccess(t *testing.T) {
	store := newFakeStore()
	store.failOn["delete:news_items"] = errors.New("permission denied")

	report := newTestSyncer(store, &stubSources{}).SyncNews(context.Background())

	require.False(t, report.Success)
	require.Equal(t, 1, report.Errors)
	require.Contains(t, report.LastError, "permission denied")
}

func TestSyncRecoversFromPanic(t *testing.T) {
	store := newFakeStore()
	sources := &stubSources{
		crypto: func(context.Context) ([]models.MarketDatum, error) {
			panic("unexpected nil dereference")
		},
	}

	var report models.SyncReport
	require.NotPanics(t, func() {
		report = newTestSyncer(store, sources).SyncMarkets(context.Background())
	})
	require.False(t, report.Success)
	require.Contains(t, report.LastError, "panic")
}

func TestJobsExposesEveryOrchestrator(t *testing.T) {
	s := newTestSyncer(newFakeStore(), &stubSources{})
	jobs := s.Jobs()

	for _, name := range []string{
		"sync-markets", "sync-news", "sync-hazards", "sync-environment",
		"sync-intel", "sync-storms", "sync-weather", "sync-slow", "sync-fed",
	} {
		require.Contains(t, jobs, name)
	}
	require.Len(t, jobs, 9)
}
