package fetchers

import (
	"context"
	"fmt"
	"math"
	"time"

	"watchtower/internal/models"
	"watchtower/pkg/geo"
)

const (
	polymarketBaseURL = "https://clob.polymarket.com"
	whaleAlertBaseURL = "https://api.whale-alert.io/v1"
	viewsBaseURL      = "https://api.viewsforecasting.org"

	// whaleMinValueUSD filters WhaleAlert down to transfers large enough
	// to move markets.
	whaleMinValueUSD = 1_000_000
)

type polymarketMarkets struct {
	Data []struct {
		ConditionID string  `json:"condition_id"`
		Question    string  `json:"question"`
		Active      bool    `json:"active"`
		Closed      bool    `json:"closed"`
		Volume      float64 `json:"volume"`
		Tokens      []struct {
			Outcome string  `json:"outcome"`
			Price   float64 `json:"price"`
		} `json:"tokens"`
	} `json:"data"`
}

// FetchPredictions pulls active Polymarket markets and records the
// current Yes price as the event probability.
func (f *Fetcher) FetchPredictions(ctx context.Context) ([]models.PolymarketPrediction, error) {
	base := f.cfg.PolymarketBaseURL
	if base == "" {
		base = polymarketBaseURL
	}

	var markets polymarketMarkets
	if err := f.bulk.GetJSON(ctx, base+"/markets", nil, &markets); err != nil {
		f.logger.WithError(err).WithField("source", "polymarket").Warn("Prediction fetch degraded to empty")
		return nil, fmt.Errorf("polymarket fetch: %w", err)
	}

	predictions := make([]models.PolymarketPrediction, 0, len(markets.Data))
	for _, m := range markets.Data {
		if m.ConditionID == "" || m.Question == "" || !m.Active || m.Closed {
			continue
		}

		var probability float64
		found := false
		for _, tok := range m.Tokens {
			if tok.Outcome == "Yes" {
				probability = tok.Price
				found = true
				break
			}
		}
		if !found || math.IsNaN(probability) || probability < 0 || probability > 1 {
			continue
		}

		predictions = append(predictions, models.PolymarketPrediction{
			ExternalID:  "polymarket-" + m.ConditionID,
			Question:    m.Question,
			Probability: probability,
			Volume:      m.Volume,
		})
	}

	return predictions, nil
}

type whaleAlertResponse struct {
	Result       string `json:"result"`
	Transactions []struct {
		Hash       string  `json:"hash"`
		Blockchain string  `json:"blockchain"`
		Symbol     string  `json:"symbol"`
		AmountUSD  float64 `json:"amount_usd"`
		Timestamp  int64   `json:"timestamp"`
	} `json:"transactions"`
}

// FetchWhaleTransactions pulls large on-chain transfers from the last
// hour. The transaction hash is the natural external identifier, so
// overlapping windows upsert onto the same rows.
func (f *Fetcher) FetchWhaleTransactions(ctx context.Context) ([]models.WhaleTransaction, error) {
	if f.cfg.WhaleAlertAPIKey == "" {
		f.logger.WithField("source", "whale-alert").Warn("WhaleAlert API key not set, skipping whale transactions")
		return nil, nil
	}

	base := f.cfg.WhaleAlertBaseURL
	if base == "" {
		base = whaleAlertBaseURL
	}

	start := f.now().Add(-1 * time.Hour).Unix()
	endpoint := fmt.Sprintf("%s/transactions?api_key=%s&min_value=%d&start=%d",
		base, f.cfg.WhaleAlertAPIKey, whaleMinValueUSD, start)

	var resp whaleAlertResponse
	if err := f.fast.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		f.logger.WithError(err).WithField("source", "whale-alert").Warn("Whale fetch degraded to empty")
		return nil, fmt.Errorf("whale-alert fetch: %w", err)
	}
	if resp.Result != "success" {
		return nil, fmt.Errorf("whale-alert fetch: result %q", resp.Result)
	}

	txs := make([]models.WhaleTransaction, 0, len(resp.Transactions))
	for _, t := range resp.Transactions {
		if t.Hash == "" || t.AmountUSD <= 0 || math.IsNaN(t.AmountUSD) {
			continue
		}
		txs = append(txs, models.WhaleTransaction{
			ExternalID: "whale-" + t.Hash,
			Blockchain: t.Blockchain,
			Symbol:     t.Symbol,
			AmountUSD:  t.AmountUSD,
			OccurredAt: time.Unix(t.Timestamp, 0).UTC(),
		})
	}

	return txs, nil
}

type viewsForecast struct {
	Data []struct {
		Name        string  `json:"name"` // country name
		MainMean    float64 `json:"main_mean"`
		MainDich    float64 `json:"main_dich"`
		MonthID     int     `json:"month_id"`
		CountryCode string  `json:"isoab"`
	} `json:"data"`
}

// FetchConflictHotspots pulls the VIEWS country-month fatality forecast
// and keeps countries whose predicted fatalities or conflict probability
// clear the elevated threshold. Countries without a known centroid are
// dropped.
func (f *Fetcher) FetchConflictHotspots(ctx context.Context) ([]models.ConflictHotspot, error) {
	base := f.cfg.ViewsBaseURL
	if base == "" {
		base = viewsBaseURL
	}

	var forecast viewsForecast
	endpoint := base + "/fatalities/cm?pagesize=250"
	if err := f.bulk.GetJSON(ctx, endpoint, nil, &forecast); err != nil {
		f.logger.WithError(err).WithField("source", "views").Warn("Conflict fetch degraded to empty")
		return nil, fmt.Errorf("views fetch: %w", err)
	}

	hotspots := make([]models.ConflictHotspot, 0, len(forecast.Data))
	for _, row := range forecast.Data {
		if row.Name == "" {
			continue
		}
		fatalities, prob := row.MainMean, row.MainDich
		if math.IsNaN(fatalities) || math.IsNaN(prob) || fatalities < 0 {
			continue
		}

		severity := ConflictSeverity(fatalities, prob)
		if severity == models.SeverityLow {
			continue
		}

		centroid, ok := geo.ResolveCountry(row.Name)
		if !ok {
			f.logger.WithField("country", row.Name).Debug("Dropping conflict hotspot with unresolvable country")
			continue
		}

		hotspots = append(hotspots, models.ConflictHotspot{
			ExternalID:  stableID("views", row.Name),
			Country:     row.Name,
			Severity:    severity,
			Fatalities:  fatalities,
			Probability: prob,
			Lat:         centroid.Lat,
			Lon:         centroid.Lon,
			Data: models.JSONB{
				"month_id": row.MonthID,
				"iso":      row.CountryCode,
			},
		})
	}

	return hotspots, nil
}
