package fetchers

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"

	"watchtower/internal/models"
	"watchtower/pkg/logging"
)

const (
	coinGeckoBaseURL = "https://api.coingecko.com/api/v3"
	finnhubBaseURL   = "https://finnhub.io/api/v1"
)

type coinGeckoPrice struct {
	USD       float64 `json:"usd"`
	USDChange float64 `json:"usd_24h_change"`
}

type finnhubQuote struct {
	Current       float64 `json:"c"`
	PercentChange float64 `json:"dp"`
	PrevClose     float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// FetchCryptoPrices pulls the batched CoinGecko simple-price endpoint.
func (f *Fetcher) FetchCryptoPrices(ctx context.Context) ([]models.MarketDatum, error) {
	base := f.cfg.CoinGeckoBaseURL
	if base == "" {
		base = coinGeckoBaseURL
	}

	ids := strings.Join(f.cfg.CryptoIDs, ",")
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true",
		base, url.QueryEscape(ids))

	prices := map[string]coinGeckoPrice{}
	if err := f.fast.GetJSON(ctx, endpoint, nil, &prices); err != nil {
		f.logger.WithError(err).WithField("source", "coingecko").Warn("Crypto price fetch degraded to empty")
		return nil, fmt.Errorf("coingecko fetch: %w", err)
	}

	data := make([]models.MarketDatum, 0, len(prices))
	for _, id := range f.cfg.CryptoIDs {
		price, ok := prices[id]
		if !ok {
			continue
		}
		if price.USD <= 0 || math.IsNaN(price.USD) || math.IsNaN(price.USDChange) {
			continue
		}

		data = append(data, models.MarketDatum{
			ExternalID: "crypto-" + id,
			Symbol:     id,
			Kind:       "crypto",
			Price:      price.USD,
			ChangePct:  price.USDChange,
			Data: models.JSONB{
				"vs_currency": "usd",
			},
		})
	}

	return data, nil
}

// FetchEquityQuotes pulls one Finnhub quote per configured symbol.
// Finnhub's free tier is rate limited, so calls are strictly sequential
// with a pacing delay; a missing API key degrades to an empty result.
func (f *Fetcher) FetchEquityQuotes(ctx context.Context) ([]models.MarketDatum, error) {
	if f.cfg.FinnhubAPIKey == "" {
		f.logger.WithField("source", "finnhub").Warn("FINNHUB_API_KEY not set, skipping equity quotes")
		return nil, nil
	}

	base := f.cfg.FinnhubBaseURL
	if base == "" {
		base = finnhubBaseURL
	}

	data := make([]models.MarketDatum, 0, len(f.cfg.EquitySymbols))
	for _, symbol := range f.cfg.EquitySymbols {
		if err := f.pacer.Wait(ctx); err != nil {
			return data, err
		}

		endpoint := fmt.Sprintf("%s/quote?symbol=%s&token=%s", base, url.QueryEscape(symbol), f.cfg.FinnhubAPIKey)

		var quote finnhubQuote
		if err := f.fast.GetJSON(ctx, endpoint, nil, &quote); err != nil {
			// One bad symbol must not sink the rest of the batch.
			f.logger.WithError(err).WithFields(logging.Fields{
				"source": "finnhub",
				"symbol": symbol,
			}).Warn("Equity quote fetch failed, skipping symbol")
			continue
		}

		if quote.Current <= 0 || math.IsNaN(quote.Current) || math.IsNaN(quote.PercentChange) {
			continue
		}

		data = append(data, models.MarketDatum{
			ExternalID: "equity-" + symbol,
			Symbol:     symbol,
			Kind:       "equity",
			Price:      quote.Current,
			ChangePct:  quote.PercentChange,
			Data: models.JSONB{
				"prev_close": quote.PrevClose,
				"quoted_at":  quote.Timestamp,
			},
		})
	}

	return data, nil
}
