package fetchers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"watchtower/internal/models"
	"watchtower/pkg/geo"
)

const (
	nhcStormsURL  = "https://www.nhc.noaa.gov/CurrentStorms.json"
	spcOutlookURL = "https://www.spc.noaa.gov/products/outlook/day1otlk_cat.lyr.geojson"
)

type nhcCurrentStorms struct {
	ActiveStorms []struct {
		ID               string  `json:"id"`
		Name             string  `json:"name"`
		Classification   string  `json:"classification"`
		Intensity        string  `json:"intensity"` // knots, as a string
		LatitudeNumeric  float64 `json:"latitudeNumeric"`
		LongitudeNumeric float64 `json:"longitudeNumeric"`
		MovementDir      int     `json:"movementDir"`
		MovementSpeed    int     `json:"movementSpeed"`
	} `json:"activeStorms"`
}

// FetchStorms pulls the NHC active tropical cyclone list.
func (f *Fetcher) FetchStorms(ctx context.Context) ([]models.TropicalCyclone, error) {
	feedURL := f.cfg.NHCStormsURL
	if feedURL == "" {
		feedURL = nhcStormsURL
	}

	var current nhcCurrentStorms
	if err := f.fast.GetJSON(ctx, feedURL, nil, &current); err != nil {
		f.logger.WithError(err).WithField("source", "nhc").Warn("Storm fetch degraded to empty")
		return nil, fmt.Errorf("nhc fetch: %w", err)
	}

	storms := make([]models.TropicalCyclone, 0, len(current.ActiveStorms))
	for _, s := range current.ActiveStorms {
		if s.ID == "" || !geo.IsValidLatLon(s.LatitudeNumeric, s.LongitudeNumeric) {
			continue
		}

		intensity, err := strconv.ParseFloat(s.Intensity, 64)
		if err != nil || intensity < 0 {
			intensity = 0
		}

		storms = append(storms, models.TropicalCyclone{
			ExternalID:     "nhc-" + s.ID,
			Name:           s.Name,
			Classification: s.Classification,
			IntensityKt:    intensity,
			Lat:            s.LatitudeNumeric,
			Lon:            s.LongitudeNumeric,
			Data: models.JSONB{
				"movement_dir":   s.MovementDir,
				"movement_speed": s.MovementSpeed,
			},
		})
	}

	return storms, nil
}

type spcOutlookFeed struct {
	Features []struct {
		Properties struct {
			Label  string `json:"LABEL"`
			Label2 string `json:"LABEL2"`
			Valid  string `json:"VALID"`
		} `json:"properties"`
		Geometry struct {
			Type        string          `json:"type"`
			Coordinates json.RawMessage `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// FetchConvectiveOutlooks pulls the SPC day-1 categorical outlook and
// reduces each risk polygon to its centroid. One record per risk
// category per valid time; reruns of the same outlook upsert in place.
func (f *Fetcher) FetchConvectiveOutlooks(ctx context.Context) ([]models.ConvectiveOutlook, error) {
	feedURL := f.cfg.SPCOutlookURL
	if feedURL == "" {
		feedURL = spcOutlookURL
	}

	var feed spcOutlookFeed
	if err := f.bulk.GetJSON(ctx, feedURL, nil, &feed); err != nil {
		f.logger.WithError(err).WithField("source", "spc").Warn("Convective outlook fetch degraded to empty")
		return nil, fmt.Errorf("spc fetch: %w", err)
	}

	outlooks := make([]models.ConvectiveOutlook, 0, len(feed.Features))
	for _, feat := range feed.Features {
		risk := feat.Properties.Label
		if risk == "" {
			continue
		}

		lat, lon, ok := geometryCentroid(feat.Geometry.Type, feat.Geometry.Coordinates)
		if !ok {
			continue
		}

		outlooks = append(outlooks, models.ConvectiveOutlook{
			ExternalID: stableID("spc", risk+"|"+feat.Properties.Valid),
			Risk:       risk,
			Lat:        lat,
			Lon:        lon,
			Data: models.JSONB{
				"label": feat.Properties.Label2,
				"valid": feat.Properties.Valid,
			},
		})
	}

	return outlooks, nil
}

// geometryCentroid reduces a GeoJSON Polygon or MultiPolygon to the
// centroid of its first outer ring. Good enough for map placement;
// exact area-weighted centroids are not needed for outlook markers.
func geometryCentroid(geomType string, raw json.RawMessage) (lat, lon float64, ok bool) {
	var rings [][][]float64
	switch geomType {
	case "Polygon":
		if err := json.Unmarshal(raw, &rings); err != nil {
			return 0, 0, false
		}
	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(raw, &polys); err != nil || len(polys) == 0 {
			return 0, 0, false
		}
		rings = polys[0]
	default:
		return 0, 0, false
	}
	return ringCentroid(rings)
}

func ringCentroid(rings [][][]float64) (lat, lon float64, ok bool) {
	if len(rings) == 0 || len(rings[0]) == 0 {
		return 0, 0, false
	}

	var sumLat, sumLon float64
	count := 0
	for _, point := range rings[0] {
		if len(point) < 2 {
			continue
		}
		sumLon += point[0]
		sumLat += point[1]
		count++
	}
	if count == 0 {
		return 0, 0, false
	}

	lat, lon = sumLat/float64(count), sumLon/float64(count)
	if math.IsNaN(lat) || math.IsNaN(lon) || !geo.IsValidLatLon(lat, lon) {
		return 0, 0, false
	}
	return lat, lon, true
}
