package fetchers

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"watchtower/internal/models"
	"watchtower/pkg/geo"
)

const (
	safecastBaseURL  = "https://api.safecast.org"
	reliefWebBaseURL = "https://api.reliefweb.int/v1"
)

type safecastMeasurement struct {
	ID         int64    `json:"id"`
	Value      *float64 `json:"value"`
	Unit       string   `json:"unit"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	CapturedAt string   `json:"captured_at"`
}

// FetchRadiation pulls recent Safecast measurements, converts them to
// counts per minute and collapses nearby sensors into one reading per
// rounded coordinate bucket, keeping the maximum value. Sensors within
// roughly a kilometer of each other report the same event; the highest
// reading is the one worth alerting on.
func (f *Fetcher) FetchRadiation(ctx context.Context) ([]models.RadiationReading, error) {
	base := f.cfg.SafecastBaseURL
	if base == "" {
		base = safecastBaseURL
	}

	var measurements []safecastMeasurement
	endpoint := base + "/measurements.json?order=captured_at+desc&per_page=200"
	if err := f.bulk.GetJSON(ctx, endpoint, nil, &measurements); err != nil {
		f.logger.WithError(err).WithField("source", "safecast").Warn("Radiation fetch degraded to empty")
		return nil, fmt.Errorf("safecast fetch: %w", err)
	}

	buckets := make(map[string]models.RadiationReading)
	for _, m := range measurements {
		if m.Value == nil || m.Latitude == nil || m.Longitude == nil {
			continue
		}
		lat, lon := *m.Latitude, *m.Longitude
		if !geo.IsValidLatLon(lat, lon) {
			continue
		}

		cpm := *m.Value
		switch strings.ToLower(m.Unit) {
		case "cpm":
		case "usv", "usv/h", "µsv/h", "microsievert":
			cpm *= MicroSvPerHourToCPM
		default:
			continue
		}
		if math.IsNaN(cpm) || cpm < 0 {
			continue
		}

		key := geo.BucketKey(lat, lon)
		if existing, ok := buckets[key]; ok && existing.CPM >= cpm {
			continue
		}
		buckets[key] = models.RadiationReading{
			ExternalID: "safecast-" + key,
			CPM:        cpm,
			Level:      RadiationLevel(cpm),
			Lat:        lat,
			Lon:        lon,
			Data: models.JSONB{
				"captured_at": m.CapturedAt,
			},
		}
	}

	readings := make([]models.RadiationReading, 0, len(buckets))
	for _, r := range buckets {
		readings = append(readings, r)
	}
	return readings, nil
}

type reliefWebResponse struct {
	Data []struct {
		ID     int64 `json:"id"`
		Fields struct {
			Name           string `json:"name"`
			Description    string `json:"description"`
			PrimaryCountry struct {
				Name string `json:"name"`
			} `json:"primary_country"`
		} `json:"fields"`
	} `json:"data"`
}

var (
	casesPattern  = regexp.MustCompile(`(?i)([\d,]+)\s+(?:confirmed\s+|suspected\s+)?cases`)
	deathsPattern = regexp.MustCompile(`(?i)([\d,]+)\s+deaths`)
)

// FetchOutbreaks pulls current epidemic-type disasters from ReliefWeb.
// ReliefWeb has no structured case counts, so counts are extracted from
// the report text when present. Entries whose country cannot be
// resolved to a centroid are dropped.
func (f *Fetcher) FetchOutbreaks(ctx context.Context) ([]models.DiseaseOutbreak, error) {
	base := f.cfg.ReliefWebBaseURL
	if base == "" {
		base = reliefWebBaseURL
	}

	endpoint := base + "/disasters?appname=watchtower&limit=50" +
		"&filter[field]=type.name&filter[value]=Epidemic" +
		"&fields[include][]=name&fields[include][]=description&fields[include][]=primary_country.name"

	var resp reliefWebResponse
	if err := f.bulk.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		f.logger.WithError(err).WithField("source", "reliefweb").Warn("Outbreak fetch degraded to empty")
		return nil, fmt.Errorf("reliefweb fetch: %w", err)
	}

	outbreaks := make([]models.DiseaseOutbreak, 0, len(resp.Data))
	for _, d := range resp.Data {
		country := d.Fields.PrimaryCountry.Name
		centroid, ok := geo.ResolveCountry(country)
		if !ok {
			f.logger.WithField("country", country).Debug("Dropping outbreak with unresolvable country")
			continue
		}

		disease := diseaseFromDisasterName(d.Fields.Name)
		text := d.Fields.Name + " " + d.Fields.Description
		cases := extractCount(casesPattern, text)
		deaths := extractCount(deathsPattern, text)

		outbreaks = append(outbreaks, models.DiseaseOutbreak{
			ExternalID: fmt.Sprintf("reliefweb-%d", d.ID),
			Disease:    disease,
			Country:    country,
			Severity:   OutbreakSeverity(disease, cases, deaths),
			Cases:      cases,
			Deaths:     deaths,
			Lat:        centroid.Lat,
			Lon:        centroid.Lon,
			Data: models.JSONB{
				"name": d.Fields.Name,
			},
		})
	}

	return outbreaks, nil
}

// diseaseFromDisasterName strips ReliefWeb naming conventions like
// "Cholera Outbreak - Haiti - Oct 2022" down to the disease itself.
func diseaseFromDisasterName(name string) string {
	if idx := strings.Index(name, " - "); idx > 0 {
		name = name[:idx]
	}
	name = strings.TrimSpace(name)
	for _, suffix := range []string{" Outbreak", " Epidemic", " outbreak", " epidemic"} {
		name = strings.TrimSuffix(name, suffix)
	}
	// Trailing country in "Haiti: Cholera" style names.
	if idx := strings.LastIndex(name, ": "); idx >= 0 {
		name = name[idx+2:]
	}
	return strings.TrimSpace(name)
}

func extractCount(pattern *regexp.Regexp, text string) int64 {
	match := pattern.FindStringSubmatch(text)
	if len(match) < 2 {
		return 0
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(match[1], ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
