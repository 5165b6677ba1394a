// Package geo provides coordinate validation, location dedupe buckets,
// and a static country-name-to-centroid resolver used as a geocoding
// fallback when upstreams report place names without coordinates.
package geo

import (
	"fmt"
	"math"
)

// IsValidLatLon validates geographic coordinates.
// Rejects NaN, Inf, out-of-range, and 0,0 (common default value, located in the ocean).
func IsValidLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	if lat < -90 || lat > 90 {
		return false
	}
	if lon < -180 || lon > 180 {
		return false
	}
	if lat == 0 && lon == 0 {
		return false
	}
	return true
}

// BucketKey rounds coordinates to two decimal places (~1km) and returns
// a stable key. Readings falling in the same bucket are treated as the
// same physical location for dedupe purposes.
func BucketKey(lat, lon float64) string {
	return fmt.Sprintf("%.2f,%.2f", round2(lat), round2(lon))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
