// Package fetchers pulls heterogeneous external feeds and normalizes
// them into the record shapes in internal/models. Every fetcher
// validates upstream JSON at the boundary, drops records that fail
// parsing or geocoding, and degrades to an empty (or documented
// fallback) result instead of propagating upstream failures.
package fetchers

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"watchtower/pkg/clients"
	"watchtower/pkg/config"
	"watchtower/pkg/logging"
)

// Config carries upstream credentials and endpoint overrides. Endpoint
// fields exist so tests can point a fetcher at a local server; empty
// values mean the real upstream.
type Config struct {
	FinnhubAPIKey    string
	WhaleAlertAPIKey string
	FredAPIKey       string
	WattTimeUser     string
	WattTimePass     string

	// GridRegions are the WattTime balancing authorities to poll.
	GridRegions []string

	// CryptoIDs are CoinGecko coin ids for the batched price call.
	CryptoIDs []string

	// EquitySymbols are Finnhub symbols, quoted sequentially.
	EquitySymbols []string

	GDELTBaseURL      string
	CoinGeckoBaseURL  string
	FinnhubBaseURL    string
	USGSFeedURL       string
	WattTimeBaseURL   string
	IODABaseURL       string
	SafecastBaseURL   string
	ReliefWebBaseURL  string
	PolymarketBaseURL string
	WhaleAlertBaseURL string
	ViewsBaseURL      string
	NHCStormsURL      string
	SPCOutlookURL     string
	NWSAlertsURL      string
	USASpendingURL    string
	HNSearchURL       string
	LeadersURL        string
	FredBaseURL       string
}

// ConfigFromEnv builds a fetcher config from the environment. Missing
// optional credentials are tolerated; the affected fetchers degrade to
// empty results with a warning.
func ConfigFromEnv() Config {
	return Config{
		FinnhubAPIKey:    config.GetEnv("FINNHUB_API_KEY", ""),
		WhaleAlertAPIKey: config.GetEnv("WHALE_ALERT_API_KEY", ""),
		FredAPIKey:       config.GetEnv("FRED_API_KEY", ""),
		WattTimeUser:     config.GetEnv("WATTTIME_USERNAME", ""),
		WattTimePass:     config.GetEnv("WATTTIME_PASSWORD", ""),
		GridRegions:      []string{"CAISO_NORTH", "ERCOT_EASTTX", "PJM_NJ", "NYISO_NYC"},
		CryptoIDs:        []string{"bitcoin", "ethereum", "solana", "monero"},
		EquitySymbols:    []string{"SPY", "QQQ", "GLD", "USO", "VIX"},
	}
}

// Fetcher holds the shared HTTP plumbing for all source fetchers.
// Methods are spread across per-upstream files in this package.
type Fetcher struct {
	cfg    Config
	logger logging.Logger

	// fast covers high-frequency quote/feed APIs, bulk covers
	// report-style APIs with larger payloads and slower backends.
	fast *clients.FetchClient
	bulk *clients.FetchClient

	// pacer spaces sequential calls against rate-limited upstreams.
	pacer *clients.Pacer

	now func() time.Time
}

// New creates a fetcher set with the given configuration. Each client
// carries a circuit breaker so a hard-down upstream family stops
// consuming retry budget until it recovers.
func New(cfg Config, logger logging.Logger) *Fetcher {
	fastBreaker := clients.NewCircuitBreaker(clients.CircuitBreakerConfig{
		Name:   "fetch-fast",
		Logger: logger,
	})
	bulkBreaker := clients.NewCircuitBreaker(clients.CircuitBreakerConfig{
		Name:   "fetch-bulk",
		Logger: logger,
	})

	return &Fetcher{
		cfg:    cfg,
		logger: logger,
		fast: clients.NewFetchClient(clients.FetchConfig{
			Timeout:   10 * time.Second,
			UserAgent: "watchtower-lookout/1.0",
			Breaker:   fastBreaker,
			Logger:    logger,
		}),
		bulk: clients.NewFetchClient(clients.FetchConfig{
			Timeout:   30 * time.Second,
			UserAgent: "watchtower-lookout/1.0",
			Breaker:   bulkBreaker,
			Logger:    logger,
		}),
		pacer: clients.NewPacer(1100 * time.Millisecond),
		now:   time.Now,
	}
}

// stableID derives a stable external identifier from upstream fields
// that lack a natural key (e.g. article URLs).
func stableID(prefix, input string) string {
	sum := sha256.Sum256([]byte(input))
	return prefix + "-" + hex.EncodeToString(sum[:8])
}

// parseTime tries the given layouts in order, returning the zero time
// when nothing matches.
func parseTime(value string, layouts ...string) time.Time {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
