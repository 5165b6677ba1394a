package fetchers

import (
	"context"
	"math"
	"strconv"
	"time"

	"watchtower/internal/models"
)

const (
	fredBaseURL = "https://api.stlouisfed.org/fred"

	// fredObservationLimit keeps a year of weekly balance-sheet data.
	fredObservationLimit = 52

	// fallbackFedAssetsMUSD approximates the Fed balance sheet in
	// millions of USD when FRED is unreachable. Downstream consumers
	// always expect a value; an approximate one is marked as such.
	fallbackFedAssetsMUSD = 6_600_000
)

type fredObservations struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"` // FRED encodes missing values as "."
	} `json:"observations"`
}

// FetchFedBalance pulls the weekly WALCL series from FRED. Unlike the
// other fetchers this one never returns empty: when the API key is
// missing or the fetch fails it emits a single approximate snapshot
// dated today.
func (f *Fetcher) FetchFedBalance(ctx context.Context) ([]models.FedBalanceSnapshot, error) {
	if f.cfg.FredAPIKey == "" {
		f.logger.WithField("source", "fred").Warn("FRED API key not set, using approximate balance snapshot")
		return []models.FedBalanceSnapshot{f.approximateFedSnapshot()}, nil
	}

	base := f.cfg.FredBaseURL
	if base == "" {
		base = fredBaseURL
	}
	endpoint := base + "/series/observations?series_id=WALCL&file_type=json&sort_order=desc" +
		"&limit=" + strconv.Itoa(fredObservationLimit) + "&api_key=" + f.cfg.FredAPIKey

	var resp fredObservations
	if err := f.fast.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		f.logger.WithError(err).WithField("source", "fred").Warn("FRED fetch failed, using approximate balance snapshot")
		return []models.FedBalanceSnapshot{f.approximateFedSnapshot()}, nil
	}

	snapshots := make([]models.FedBalanceSnapshot, 0, len(resp.Observations))
	for _, obs := range resp.Observations {
		value, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil || math.IsNaN(value) || value <= 0 {
			continue
		}
		observedOn := parseTime(obs.Date, "2006-01-02")
		if observedOn.IsZero() {
			continue
		}
		snapshots = append(snapshots, models.FedBalanceSnapshot{
			ExternalID:      obs.Date,
			ObservedOn:      observedOn,
			TotalAssetsMUSD: value,
		})
	}

	if len(snapshots) == 0 {
		return []models.FedBalanceSnapshot{f.approximateFedSnapshot()}, nil
	}
	return snapshots, nil
}

func (f *Fetcher) approximateFedSnapshot() models.FedBalanceSnapshot {
	today := f.now().UTC().Truncate(24 * time.Hour)
	return models.FedBalanceSnapshot{
		ExternalID:      today.Format("2006-01-02"),
		ObservedOn:      today,
		TotalAssetsMUSD: fallbackFedAssetsMUSD,
		Approximate:     true,
	}
}
