package fetchers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"watchtower/internal/models"
)

const nwsAlertsURL = "https://api.weather.gov/alerts/active?status=actual&severity=Extreme,Severe"

type nwsAlertsFeed struct {
	Features []struct {
		ID         string `json:"id"`
		Properties struct {
			Event    string `json:"event"`
			Severity string `json:"severity"`
			AreaDesc string `json:"areaDesc"`
			Expires  string `json:"expires"`
		} `json:"properties"`
		Geometry *struct {
			Type        string          `json:"type"`
			Coordinates json.RawMessage `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// FetchWeatherAlerts pulls active NWS alerts. Alerts without geometry
// (zone-only alerts) cannot be placed on a map and are skipped.
func (f *Fetcher) FetchWeatherAlerts(ctx context.Context) ([]models.WeatherAlert, error) {
	feedURL := f.cfg.NWSAlertsURL
	if feedURL == "" {
		feedURL = nwsAlertsURL
	}

	var feed nwsAlertsFeed
	if err := f.bulk.GetJSON(ctx, feedURL, nil, &feed); err != nil {
		f.logger.WithError(err).WithField("source", "nws").Warn("Weather alert fetch degraded to empty")
		return nil, fmt.Errorf("nws fetch: %w", err)
	}

	alerts := make([]models.WeatherAlert, 0, len(feed.Features))
	for _, feat := range feed.Features {
		if feat.ID == "" || feat.Geometry == nil {
			continue
		}

		lat, lon, ok := geometryCentroid(feat.Geometry.Type, feat.Geometry.Coordinates)
		if !ok {
			continue
		}

		alerts = append(alerts, models.WeatherAlert{
			ExternalID: stableID("nws", feat.ID),
			Event:      feat.Properties.Event,
			Severity:   nwsSeverity(feat.Properties.Severity),
			Area:       feat.Properties.AreaDesc,
			Lat:        lat,
			Lon:        lon,
			ExpiresAt:  parseTime(feat.Properties.Expires, time.RFC3339),
		})
	}

	return alerts, nil
}

// nwsSeverity maps the NWS severity vocabulary onto the shared scale.
func nwsSeverity(s string) models.Severity {
	switch s {
	case "Extreme":
		return models.SeverityCritical
	case "Severe":
		return models.SeverityHigh
	case "Moderate":
		return models.SeverityModerate
	default:
		return models.SeverityLow
	}
}
