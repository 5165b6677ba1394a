package fetchers

import (
	"strings"

	"watchtower/internal/models"
)

// Classification thresholds are business rules shared with downstream
// alerting; they are exact, not tunable heuristics.

// MicroSvPerHourToCPM is the fixed conversion multiplier applied when a
// sensor reports µSv/h instead of counts per minute.
const MicroSvPerHourToCPM = 350.0

// RadiationLevel classifies a counts-per-minute reading.
func RadiationLevel(cpm float64) models.Severity {
	switch {
	case cpm >= 350:
		return models.LevelDangerous
	case cpm >= 100:
		return models.SeverityHigh
	case cpm >= 50:
		return models.SeverityElevated
	default:
		return models.LevelNormal
	}
}

// GridStressLevel classifies a carbon-signal percentile.
func GridStressLevel(percentile float64) models.Severity {
	switch {
	case percentile >= 98:
		return models.SeverityCritical
	case percentile >= 95:
		return models.SeverityHigh
	case percentile >= 85:
		return models.SeverityElevated
	default:
		return models.LevelNormal
	}
}

// QuakeSeverity classifies an earthquake magnitude.
func QuakeSeverity(magnitude float64) models.Severity {
	switch {
	case magnitude >= 7.0:
		return models.SeverityCritical
	case magnitude >= 6.0:
		return models.SeverityHigh
	case magnitude >= 5.0:
		return models.SeverityModerate
	default:
		return models.SeverityLow
	}
}

// ConflictSeverity classifies a conflict forecast from a fatality
// estimate and a dichotomous probability. Either signal alone can
// escalate the level.
func ConflictSeverity(fatalities, probability float64) models.Severity {
	switch {
	case fatalities >= 100 || probability >= 0.99:
		return models.SeverityCritical
	case fatalities >= 25 || probability >= 0.75:
		return models.SeverityHigh
	case fatalities >= 5 || probability >= 0.25:
		return models.SeverityElevated
	default:
		return models.SeverityLow
	}
}

// highFatalityDiseases are scored primarily on deaths, not case counts.
var highFatalityDiseases = []string{
	"ebola",
	"marburg",
	"lassa",
	"crimean-congo",
	"hemorrhagic fever",
	"mpox",
	"monkeypox",
	"avian influenza",
	"h5n1",
	"h7n9",
	"nipah",
	"plague",
}

func isHighFatalityDisease(disease string) bool {
	name := strings.ToLower(disease)
	for _, d := range highFatalityDiseases {
		if strings.Contains(name, d) {
			return true
		}
	}
	return false
}

// OutbreakSeverity classifies a disease outbreak. High-fatality diseases
// are scored on deaths; everything else on cases, falling back to deaths
// when case counts are unreported.
func OutbreakSeverity(disease string, cases, deaths int64) models.Severity {
	if isHighFatalityDisease(disease) {
		switch {
		case deaths >= 100:
			return models.SeverityCritical
		case deaths >= 10:
			return models.SeverityHigh
		default:
			return models.SeverityModerate
		}
	}

	switch {
	case cases >= 10000:
		return models.SeverityCritical
	case cases >= 1000:
		return models.SeverityHigh
	case cases >= 100:
		return models.SeverityModerate
	}

	switch {
	case deaths >= 100:
		return models.SeverityCritical
	case deaths >= 10:
		return models.SeverityHigh
	case deaths >= 1:
		return models.SeverityModerate
	default:
		return models.SeverityLow
	}
}

// OutageSeverity classifies a connectivity ratio against baseline.
// Ratios at or above 0.8 are not considered an outage and return "".
func OutageSeverity(ratio float64) models.Severity {
	switch {
	case ratio < 0.5:
		return models.OutageMajor
	case ratio < 0.8:
		return models.OutagePartial
	default:
		return ""
	}
}
