package fetchers

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"net/url"
	"time"

	"watchtower/internal/models"
	"watchtower/pkg/geo"
	"watchtower/pkg/logging"
)

const (
	usgsFeedURL     = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/2.5_day.geojson"
	wattTimeBaseURL = "https://api.watttime.org"
	iodaBaseURL     = "https://api.ioda.inetintel.cc.gatech.edu/v2"
)

type usgsFeed struct {
	Features []usgsFeature `json:"features"`
}

type usgsFeature struct {
	ID         string `json:"id"`
	Properties struct {
		Mag   *float64 `json:"mag"`
		Place string   `json:"place"`
		Time  int64    `json:"time"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // lon, lat, depth
	} `json:"geometry"`
}

// FetchEarthquakes pulls the USGS 2.5+ day feed. Events with a missing
// magnitude or invalid coordinates are dropped rather than stored with
// guessed values.
func (f *Fetcher) FetchEarthquakes(ctx context.Context) ([]models.EarthquakeRecord, error) {
	feedURL := f.cfg.USGSFeedURL
	if feedURL == "" {
		feedURL = usgsFeedURL
	}

	var feed usgsFeed
	if err := f.bulk.GetJSON(ctx, feedURL, nil, &feed); err != nil {
		f.logger.WithError(err).WithField("source", "usgs").Warn("Earthquake fetch degraded to empty")
		return nil, fmt.Errorf("usgs fetch: %w", err)
	}

	quakes := make([]models.EarthquakeRecord, 0, len(feed.Features))
	for _, feat := range feed.Features {
		if feat.ID == "" || feat.Properties.Mag == nil {
			continue
		}
		mag := *feat.Properties.Mag
		if math.IsNaN(mag) {
			continue
		}
		if len(feat.Geometry.Coordinates) < 2 {
			continue
		}
		lon, lat := feat.Geometry.Coordinates[0], feat.Geometry.Coordinates[1]
		if !geo.IsValidLatLon(lat, lon) {
			continue
		}

		var depth float64
		if len(feat.Geometry.Coordinates) > 2 {
			depth = feat.Geometry.Coordinates[2]
		}

		quakes = append(quakes, models.EarthquakeRecord{
			ExternalID: "usgs-" + feat.ID,
			Magnitude:  mag,
			Severity:   QuakeSeverity(mag),
			Place:      feat.Properties.Place,
			Lat:        lat,
			Lon:        lon,
			OccurredAt: time.UnixMilli(feat.Properties.Time).UTC(),
			Data: models.JSONB{
				"depth_km": depth,
			},
		})
	}

	return quakes, nil
}

type wattTimeLogin struct {
	Token string `json:"token"`
}

type wattTimeSignal struct {
	Data []struct {
		Value float64 `json:"value"`
	} `json:"data"`
}

// FetchGridStress logs into WattTime and reads the signal index for each
// configured grid region. Absent credentials short-circuit to an empty
// result; missing an optional upstream is not an error.
func (f *Fetcher) FetchGridStress(ctx context.Context) ([]models.GridStressRecord, error) {
	if f.cfg.WattTimeUser == "" || f.cfg.WattTimePass == "" {
		f.logger.WithField("source", "watttime").Warn("WattTime credentials not set, skipping grid stress")
		return nil, nil
	}

	base := f.cfg.WattTimeBaseURL
	if base == "" {
		base = wattTimeBaseURL
	}

	basic := base64.StdEncoding.EncodeToString([]byte(f.cfg.WattTimeUser + ":" + f.cfg.WattTimePass))
	var login wattTimeLogin
	if err := f.fast.GetJSON(ctx, base+"/login", map[string]string{"Authorization": "Basic " + basic}, &login); err != nil {
		f.logger.WithError(err).WithField("source", "watttime").Warn("WattTime login failed, skipping grid stress")
		return nil, fmt.Errorf("watttime login: %w", err)
	}
	if login.Token == "" {
		return nil, fmt.Errorf("watttime login: empty token")
	}

	auth := map[string]string{"Authorization": "Bearer " + login.Token}
	records := make([]models.GridStressRecord, 0, len(f.cfg.GridRegions))
	for _, region := range f.cfg.GridRegions {
		endpoint := fmt.Sprintf("%s/v3/signal-index?region=%s&signal_type=co2_moer", base, url.QueryEscape(region))

		var signal wattTimeSignal
		if err := f.fast.GetJSON(ctx, endpoint, auth, &signal); err != nil {
			f.logger.WithError(err).WithFields(logging.Fields{
				"source": "watttime",
				"region": region,
			}).Warn("Grid signal fetch failed, skipping region")
			continue
		}
		if len(signal.Data) == 0 {
			continue
		}

		pct := signal.Data[0].Value
		if math.IsNaN(pct) || pct < 0 || pct > 100 {
			continue
		}

		records = append(records, models.GridStressRecord{
			ExternalID: "watttime-" + region,
			Region:     region,
			Percentile: pct,
			Level:      GridStressLevel(pct),
			Data: models.JSONB{
				"signal_type": "co2_moer",
			},
		})
	}

	return records, nil
}

type iodaSummary struct {
	Data []iodaEntity `json:"data"`
}

type iodaEntity struct {
	Entity struct {
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"entity"`
	Scores struct {
		Overall float64 `json:"overall"`
	} `json:"scores"`
	Value        float64 `json:"value"`
	HistoryValue float64 `json:"historyValue"`
}

// FetchOutages reads IODA country-level outage summaries and classifies
// each by its connectivity ratio against baseline. Entities at or above
// 80% of baseline are not outages and are not emitted.
func (f *Fetcher) FetchOutages(ctx context.Context) ([]models.OutageRecord, error) {
	base := f.cfg.IODABaseURL
	if base == "" {
		base = iodaBaseURL
	}

	var summary iodaSummary
	if err := f.bulk.GetJSON(ctx, base+"/outages/summary?entityType=country", nil, &summary); err != nil {
		f.logger.WithError(err).WithField("source", "ioda").Warn("Outage fetch degraded to empty")
		return nil, fmt.Errorf("ioda fetch: %w", err)
	}

	outages := make([]models.OutageRecord, 0, len(summary.Data))
	for _, e := range summary.Data {
		if e.Entity.Code == "" || e.HistoryValue <= 0 {
			continue
		}

		ratio := e.Value / e.HistoryValue
		if math.IsNaN(ratio) || ratio < 0 {
			continue
		}

		severity := OutageSeverity(ratio)
		if severity == "" {
			continue
		}

		record := models.OutageRecord{
			ExternalID: "ioda-" + e.Entity.Code,
			Entity:     e.Entity.Name,
			Severity:   severity,
			Ratio:      ratio,
			Active:     true,
			Data: models.JSONB{
				"overall_score": e.Scores.Overall,
			},
		}

		if centroid, ok := geo.ResolveCountry(e.Entity.Name); ok {
			lat, lon := centroid.Lat, centroid.Lon
			record.Lat = &lat
			record.Lon = &lon
		}

		outages = append(outages, record)
	}

	return outages, nil
}
