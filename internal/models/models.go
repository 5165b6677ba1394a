// Package models defines the normalized record shapes the ingestion
// pipeline writes to storage. Every record carries an external
// identifier that is stable across repeated fetches of the same
// real-world entity, making upserts idempotent.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSONB is a custom type for handling JSONB fields
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Severity is an ordinal threat/severity level shared by several domains.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityElevated Severity = "elevated"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"

	// Radiation and grid-stress scales
	LevelNormal    Severity = "normal"
	LevelDangerous Severity = "dangerous"

	// Outage scale
	OutagePartial Severity = "partial"
	OutageMajor   Severity = "major"
)

// NewsItem is a normalized news article. The external identifier is a
// stable hash of the article URL.
type NewsItem struct {
	ExternalID  string    `json:"external_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Country     string    `json:"country"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Data        JSONB     `json:"data,omitempty"`
}

// MarketDatum is a single instrument quote. Markets have no location
// semantics, so it carries no coordinates.
type MarketDatum struct {
	ExternalID string  `json:"external_id"`
	Symbol     string  `json:"symbol"`
	Kind       string  `json:"kind"` // crypto | equity
	Price      float64 `json:"price"`
	ChangePct  float64 `json:"change_pct"`
	Data       JSONB   `json:"data,omitempty"`
}

// EarthquakeRecord is a normalized USGS event.
type EarthquakeRecord struct {
	ExternalID string    `json:"external_id"`
	Magnitude  float64   `json:"magnitude"`
	Severity   Severity  `json:"severity"`
	Place      string    `json:"place"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       JSONB     `json:"data,omitempty"`
}

// GridStressRecord is a carbon-signal percentile reading for one grid region.
type GridStressRecord struct {
	ExternalID string   `json:"external_id"`
	Region     string   `json:"region"`
	Percentile float64  `json:"percentile"`
	Level      Severity `json:"level"`
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
	Data       JSONB    `json:"data,omitempty"`
}

// OutageRecord is a connectivity-drop signal for a country or AS.
type OutageRecord struct {
	ExternalID string   `json:"external_id"`
	Entity     string   `json:"entity"`
	Severity   Severity `json:"severity"`
	Ratio      float64  `json:"ratio"` // current connectivity vs baseline
	Active     bool     `json:"active"`
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
	Data       JSONB    `json:"data,omitempty"`
}

// RadiationReading is a deduplicated sensor reading in counts per minute.
type RadiationReading struct {
	ExternalID string   `json:"external_id"`
	CPM        float64  `json:"cpm"`
	Level      Severity `json:"level"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	Data       JSONB    `json:"data,omitempty"`
}

// DiseaseOutbreak is a normalized ReliefWeb disaster entry of type epidemic.
type DiseaseOutbreak struct {
	ExternalID string   `json:"external_id"`
	Disease    string   `json:"disease"`
	Country    string   `json:"country"`
	Severity   Severity `json:"severity"`
	Cases      int64    `json:"cases"`
	Deaths     int64    `json:"deaths"`
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	Data       JSONB    `json:"data,omitempty"`
}

// PolymarketPrediction is a prediction-market question with its current price.
type PolymarketPrediction struct {
	ExternalID  string  `json:"external_id"`
	Question    string  `json:"question"`
	Probability float64 `json:"probability"`
	Volume      float64 `json:"volume"`
	Data        JSONB   `json:"data,omitempty"`
}

// WhaleTransaction is a large on-chain transfer. The external identifier
// is the transaction hash.
type WhaleTransaction struct {
	ExternalID string    `json:"external_id"`
	Blockchain string    `json:"blockchain"`
	Symbol     string    `json:"symbol"`
	AmountUSD  float64   `json:"amount_usd"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       JSONB     `json:"data,omitempty"`
}

// ConflictHotspot is a VIEWS conflict-forecast cell aggregated per country.
type ConflictHotspot struct {
	ExternalID  string   `json:"external_id"`
	Country     string   `json:"country"`
	Severity    Severity `json:"severity"`
	Fatalities  float64  `json:"fatalities"`
	Probability float64  `json:"probability"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	Data        JSONB    `json:"data,omitempty"`
}

// TropicalCyclone is an active NHC storm.
type TropicalCyclone struct {
	ExternalID     string  `json:"external_id"`
	Name           string  `json:"name"`
	Classification string  `json:"classification"`
	IntensityKt    float64 `json:"intensity_kt"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Data           JSONB   `json:"data,omitempty"`
}

// ConvectiveOutlook is an SPC severe-weather outlook area, reduced to
// its polygon centroid.
type ConvectiveOutlook struct {
	ExternalID string  `json:"external_id"`
	Risk       string  `json:"risk"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Data       JSONB   `json:"data,omitempty"`
}

// WeatherAlert is an active NWS alert with resolvable geometry.
type WeatherAlert struct {
	ExternalID string    `json:"external_id"`
	Event      string    `json:"event"`
	Severity   Severity  `json:"severity"`
	Area       string    `json:"area"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	ExpiresAt  time.Time `json:"expires_at"`
	Data       JSONB     `json:"data,omitempty"`
}

// GovContract is a USASpending award.
type GovContract struct {
	ExternalID string  `json:"external_id"`
	Recipient  string  `json:"recipient"`
	Agency     string  `json:"agency"`
	AmountUSD  float64 `json:"amount_usd"`
	Data       JSONB   `json:"data,omitempty"`
}

// Layoff is a workforce-reduction story surfaced via HN search.
type Layoff struct {
	ExternalID string    `json:"external_id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	PostedAt   time.Time `json:"posted_at"`
	Data       JSONB     `json:"data,omitempty"`
}

// WorldLeader is a head-of-state/government entry.
type WorldLeader struct {
	ExternalID string `json:"external_id"`
	Country    string `json:"country"`
	Name       string `json:"name"`
	Title      string `json:"title"`
	Data       JSONB  `json:"data,omitempty"`
}

// FedBalanceSnapshot is one weekly WALCL observation in millions of USD.
// Approximate is set when the value is a fallback rather than a FRED
// observation; downstream consumers always expect a value.
type FedBalanceSnapshot struct {
	ExternalID      string    `json:"external_id"` // observation date, YYYY-MM-DD
	ObservedOn      time.Time `json:"observed_on"`
	TotalAssetsMUSD float64   `json:"total_assets_musd"`
	Approximate     bool      `json:"approximate"`
	Data            JSONB     `json:"data,omitempty"`
}

// SyncStatus is the per-job ledger row, overwritten on every run.
type SyncStatus struct {
	JobName    string    `json:"job_name"`
	Success    bool      `json:"success"`
	Upserted   int       `json:"upserted"`
	Errors     int       `json:"errors"`
	DurationMs int64     `json:"duration_ms"`
	LastError  string    `json:"last_error,omitempty"`
	RanAt      time.Time `json:"ran_at"`
}

// SyncReport is the structured outcome returned to the trigger caller.
type SyncReport struct {
	Success    bool           `json:"success"`
	Function   string         `json:"function"`
	Upserted   int            `json:"upserted"`
	Errors     int            `json:"errors"`
	DurationMs int64          `json:"duration_ms"`
	Sources    map[string]int `json:"sources,omitempty"` // records per sub-source
	LastError  string         `json:"last_error,omitempty"`
}
