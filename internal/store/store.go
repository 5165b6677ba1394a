// Package store is the persistence layer for normalized records. Every
// write is an upsert keyed on the domain table's unique external
// identifier, so re-running a sync with unchanged upstream data never
// duplicates rows. Row-level atomicity is delegated to Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"watchtower/internal/models"
)

var ErrNotFound = errors.New("record not found")

// retentionTables whitelists the tables DeleteOlderThan may touch and
// maps them to their schema-qualified names.
var retentionTables = map[string]string{
	"news_items":          "lookout.news_items",
	"earthquakes":         "lookout.earthquakes",
	"radiation_readings":  "lookout.radiation_readings",
	"disease_outbreaks":   "lookout.disease_outbreaks",
	"predictions":         "lookout.predictions",
	"whale_transactions":  "lookout.whale_transactions",
	"conflict_hotspots":   "lookout.conflict_hotspots",
	"storms":              "lookout.storms",
	"convective_outlooks": "lookout.convective_outlooks",
	"weather_alerts":      "lookout.weather_alerts",
	"gov_contracts":       "lookout.gov_contracts",
	"layoffs":             "lookout.layoffs",
	"world_leaders":       "lookout.world_leaders",
	"grid_stress":         "lookout.grid_stress",
	"market_data":         "lookout.market_data",
}

// Store wraps the Postgres connection used by the sync orchestrators.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an established database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// UpsertNewsItem inserts or fully overwrites a news item by external id.
func (s *Store) UpsertNewsItem(ctx context.Context, n models.NewsItem) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.news_items (external_id, title, url, source, country, lat, lon, published_at, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			title = EXCLUDED.title,
			url = EXCLUDED.url,
			source = EXCLUDED.source,
			country = EXCLUDED.country,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			published_at = EXCLUDED.published_at,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, n.ExternalID, n.Title, n.URL, n.Source, n.Country, n.Lat, n.Lon, n.PublishedAt, n.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert news item %s: %w", n.ExternalID, err)
	}
	return nil
}

// UpsertMarketDatum inserts or fully overwrites a market quote by external id.
func (s *Store) UpsertMarketDatum(ctx context.Context, m models.MarketDatum) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.market_data (external_id, symbol, kind, price, change_pct, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			kind = EXCLUDED.kind,
			price = EXCLUDED.price,
			change_pct = EXCLUDED.change_pct,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, m.ExternalID, m.Symbol, m.Kind, m.Price, m.ChangePct, m.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert market datum %s: %w", m.ExternalID, err)
	}
	return nil
}

// UpsertEarthquake inserts or fully overwrites an earthquake by external id.
func (s *Store) UpsertEarthquake(ctx context.Context, q models.EarthquakeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.earthquakes (external_id, magnitude, severity, place, lat, lon, occurred_at, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			magnitude = EXCLUDED.magnitude,
			severity = EXCLUDED.severity,
			place = EXCLUDED.place,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			occurred_at = EXCLUDED.occurred_at,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, q.ExternalID, q.Magnitude, q.Severity, q.Place, q.Lat, q.Lon, q.OccurredAt, q.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert earthquake %s: %w", q.ExternalID, err)
	}
	return nil
}

// UpsertGridStress inserts or fully overwrites a grid-stress reading.
func (s *Store) UpsertGridStress(ctx context.Context, g models.GridStressRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.grid_stress (external_id, region, percentile, level, lat, lon, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			region = EXCLUDED.region,
			percentile = EXCLUDED.percentile,
			level = EXCLUDED.level,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, g.ExternalID, g.Region, g.Percentile, g.Level, g.Lat, g.Lon, g.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert grid stress %s: %w", g.ExternalID, err)
	}
	return nil
}

// UpsertOutage inserts or fully overwrites an outage signal.
func (s *Store) UpsertOutage(ctx context.Context, o models.OutageRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.outages (external_id, entity, severity, ratio, active, lat, lon, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			entity = EXCLUDED.entity,
			severity = EXCLUDED.severity,
			ratio = EXCLUDED.ratio,
			active = EXCLUDED.active,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, o.ExternalID, o.Entity, o.Severity, o.Ratio, o.Active, o.Lat, o.Lon, o.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert outage %s: %w", o.ExternalID, err)
	}
	return nil
}

// UpsertRadiationReading inserts or fully overwrites a radiation reading.
func (s *Store) UpsertRadiationReading(ctx context.Context, r models.RadiationReading) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.radiation_readings (external_id, cpm, level, lat, lon, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			cpm = EXCLUDED.cpm,
			level = EXCLUDED.level,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, r.ExternalID, r.CPM, r.Level, r.Lat, r.Lon, r.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert radiation reading %s: %w", r.ExternalID, err)
	}
	return nil
}

// UpsertDiseaseOutbreak inserts or fully overwrites an outbreak record.
func (s *Store) UpsertDiseaseOutbreak(ctx context.Context, d models.DiseaseOutbreak) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.disease_outbreaks (external_id, disease, country, severity, cases, deaths, lat, lon, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			disease = EXCLUDED.disease,
			country = EXCLUDED.country,
			severity = EXCLUDED.severity,
			cases = EXCLUDED.cases,
			deaths = EXCLUDED.deaths,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, d.ExternalID, d.Disease, d.Country, d.Severity, d.Cases, d.Deaths, d.Lat, d.Lon, d.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert disease outbreak %s: %w", d.ExternalID, err)
	}
	return nil
}

// UpsertPrediction inserts or fully overwrites a prediction-market entry.
func (s *Store) UpsertPrediction(ctx context.Context, p models.PolymarketPrediction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.predictions (external_id, question, probability, volume, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			question = EXCLUDED.question,
			probability = EXCLUDED.probability,
			volume = EXCLUDED.volume,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, p.ExternalID, p.Question, p.Probability, p.Volume, p.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert prediction %s: %w", p.ExternalID, err)
	}
	return nil
}

// UpsertWhaleTransaction inserts or fully overwrites a whale transaction.
func (s *Store) UpsertWhaleTransaction(ctx context.Context, w models.WhaleTransaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.whale_transactions (external_id, blockchain, symbol, amount_usd, occurred_at, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			blockchain = EXCLUDED.blockchain,
			symbol = EXCLUDED.symbol,
			amount_usd = EXCLUDED.amount_usd,
			occurred_at = EXCLUDED.occurred_at,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, w.ExternalID, w.Blockchain, w.Symbol, w.AmountUSD, w.OccurredAt, w.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert whale transaction %s: %w", w.ExternalID, err)
	}
	return nil
}

// UpsertConflictHotspot inserts or fully overwrites a conflict forecast.
func (s *Store) UpsertConflictHotspot(ctx context.Context, c models.ConflictHotspot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.conflict_hotspots (external_id, country, severity, fatalities, probability, lat, lon, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			country = EXCLUDED.country,
			severity = EXCLUDED.severity,
			fatalities = EXCLUDED.fatalities,
			probability = EXCLUDED.probability,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, c.ExternalID, c.Country, c.Severity, c.Fatalities, c.Probability, c.Lat, c.Lon, c.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert conflict hotspot %s: %w", c.ExternalID, err)
	}
	return nil
}

// UpsertStorm inserts or fully overwrites a tropical cyclone.
func (s *Store) UpsertStorm(ctx context.Context, t models.TropicalCyclone) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.storms (external_id, name, classification, intensity_kt, lat, lon, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name,
			classification = EXCLUDED.classification,
			intensity_kt = EXCLUDED.intensity_kt,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, t.ExternalID, t.Name, t.Classification, t.IntensityKt, t.Lat, t.Lon, t.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert storm %s: %w", t.ExternalID, err)
	}
	return nil
}

// UpsertConvectiveOutlook inserts or fully overwrites an outlook area.
func (s *Store) UpsertConvectiveOutlook(ctx context.Context, o models.ConvectiveOutlook) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.convective_outlooks (external_id, risk, lat, lon, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			risk = EXCLUDED.risk,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, o.ExternalID, o.Risk, o.Lat, o.Lon, o.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert convective outlook %s: %w", o.ExternalID, err)
	}
	return nil
}

// UpsertWeatherAlert inserts or fully overwrites a weather alert.
func (s *Store) UpsertWeatherAlert(ctx context.Context, a models.WeatherAlert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.weather_alerts (external_id, event, severity, area, lat, lon, expires_at, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			event = EXCLUDED.event,
			severity = EXCLUDED.severity,
			area = EXCLUDED.area,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			expires_at = EXCLUDED.expires_at,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, a.ExternalID, a.Event, a.Severity, a.Area, a.Lat, a.Lon, a.ExpiresAt, a.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert weather alert %s: %w", a.ExternalID, err)
	}
	return nil
}

// UpsertGovContract inserts or fully overwrites an award.
func (s *Store) UpsertGovContract(ctx context.Context, g models.GovContract) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.gov_contracts (external_id, recipient, agency, amount_usd, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			recipient = EXCLUDED.recipient,
			agency = EXCLUDED.agency,
			amount_usd = EXCLUDED.amount_usd,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, g.ExternalID, g.Recipient, g.Agency, g.AmountUSD, g.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert gov contract %s: %w", g.ExternalID, err)
	}
	return nil
}

// UpsertLayoff inserts or fully overwrites a layoff story.
func (s *Store) UpsertLayoff(ctx context.Context, l models.Layoff) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.layoffs (external_id, title, url, posted_at, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			title = EXCLUDED.title,
			url = EXCLUDED.url,
			posted_at = EXCLUDED.posted_at,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, l.ExternalID, l.Title, l.URL, l.PostedAt, l.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert layoff %s: %w", l.ExternalID, err)
	}
	return nil
}

// UpsertWorldLeader inserts or fully overwrites a leader entry.
func (s *Store) UpsertWorldLeader(ctx context.Context, w models.WorldLeader) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.world_leaders (external_id, country, name, title, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			country = EXCLUDED.country,
			name = EXCLUDED.name,
			title = EXCLUDED.title,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, w.ExternalID, w.Country, w.Name, w.Title, w.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert world leader %s: %w", w.ExternalID, err)
	}
	return nil
}

// UpsertFedBalance inserts or fully overwrites a weekly balance observation.
func (s *Store) UpsertFedBalance(ctx context.Context, f models.FedBalanceSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.fed_balance (external_id, observed_on, total_assets_musd, approximate, data, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (external_id) DO UPDATE SET
			observed_on = EXCLUDED.observed_on,
			total_assets_musd = EXCLUDED.total_assets_musd,
			approximate = EXCLUDED.approximate,
			data = EXCLUDED.data,
			updated_at = NOW()
	`, f.ExternalID, f.ObservedOn, f.TotalAssetsMUSD, f.Approximate, f.Data)
	if err != nil {
		return fmt.Errorf("failed to upsert fed balance %s: %w", f.ExternalID, err)
	}
	return nil
}

// DeleteOlderThan purges rows whose updated_at exceeds the retention
// window. Table names are restricted to a fixed whitelist.
func (s *Store) DeleteOlderThan(ctx context.Context, table string, window time.Duration) (int64, error) {
	qualified, ok := retentionTables[table]
	if !ok {
		return 0, fmt.Errorf("table %s is not retention-managed", table)
	}

	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE updated_at < NOW() - $1::interval`, qualified),
		fmt.Sprintf("%d seconds", int(window.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("failed retention delete on %s: %w", table, err)
	}

	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// DeleteInactiveOutages purges outages that have been inactive for
// longer than the window. Active outages are kept regardless of age.
func (s *Store) DeleteInactiveOutages(ctx context.Context, window time.Duration) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM lookout.outages
		WHERE active = FALSE AND updated_at < NOW() - $1::interval
	`, fmt.Sprintf("%d seconds", int(window.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("failed to delete inactive outages: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// TrimFedBalance keeps only the most recent keep observations.
func (s *Store) TrimFedBalance(ctx context.Context, keep int) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM lookout.fed_balance
		WHERE external_id NOT IN (
			SELECT external_id FROM lookout.fed_balance
			ORDER BY observed_on DESC
			LIMIT $1
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to trim fed balance: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// UpsertSyncStatus writes the per-job ledger row, last write wins.
func (s *Store) UpsertSyncStatus(ctx context.Context, status models.SyncStatus) error {
	var lastErr sql.NullString
	if status.LastError != "" {
		lastErr = sql.NullString{String: status.LastError, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookout.sync_status (job_name, success, upserted, errors, duration_ms, last_error, ran_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (job_name) DO UPDATE SET
			success = EXCLUDED.success,
			upserted = EXCLUDED.upserted,
			errors = EXCLUDED.errors,
			duration_ms = EXCLUDED.duration_ms,
			last_error = EXCLUDED.last_error,
			ran_at = NOW()
	`, status.JobName, status.Success, status.Upserted, status.Errors, status.DurationMs, lastErr)
	if err != nil {
		return fmt.Errorf("failed to upsert sync status for %s: %w", status.JobName, err)
	}
	return nil
}

// GetSyncStatus returns the ledger row for one job, or ErrNotFound if
// the job has never run.
func (s *Store) GetSyncStatus(ctx context.Context, jobName string) (models.SyncStatus, error) {
	var st models.SyncStatus
	var lastErr sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT job_name, success, upserted, errors, duration_ms, last_error, ran_at
		FROM lookout.sync_status
		WHERE job_name = $1
	`, jobName).Scan(&st.JobName, &st.Success, &st.Upserted, &st.Errors, &st.DurationMs, &lastErr, &st.RanAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SyncStatus{}, ErrNotFound
	}
	if err != nil {
		return models.SyncStatus{}, fmt.Errorf("failed to get sync status for %s: %w", jobName, err)
	}
	st.LastError = lastErr.String
	return st, nil
}

// ListSyncStatus returns the full ledger for monitoring consumers.
func (s *Store) ListSyncStatus(ctx context.Context) ([]models.SyncStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_name, success, upserted, errors, duration_ms, last_error, ran_at
		FROM lookout.sync_status
		ORDER BY job_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync status: %w", err)
	}
	defer rows.Close()

	var statuses []models.SyncStatus
	for rows.Next() {
		var st models.SyncStatus
		var lastErr sql.NullString
		if err := rows.Scan(&st.JobName, &st.Success, &st.Upserted, &st.Errors, &st.DurationMs, &lastErr, &st.RanAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync status: %w", err)
		}
		st.LastError = lastErr.String
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}
