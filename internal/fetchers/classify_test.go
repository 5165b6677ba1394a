package fetchers

import (
	"testing"

	"watchtower/internal/models"
)

func TestRadiationLevel(t *testing.T) {
	tests := []struct {
		cpm  float64
		want models.Severity
	}{
		{0, models.LevelNormal},
		{49.999, models.LevelNormal},
		{50.0, models.SeverityElevated},
		{99.999, models.SeverityElevated},
		{100.0, models.SeverityHigh},
		{349.999, models.SeverityHigh},
		{350.0, models.LevelDangerous},
		{5000, models.LevelDangerous},
	}

	for _, tt := range tests {
		if got := RadiationLevel(tt.cpm); got != tt.want {
			t.Errorf("RadiationLevel(%v) = %q, want %q", tt.cpm, got, tt.want)
		}
	}
}

func TestGridStressLevel(t *testing.T) {
	tests := []struct {
		pct  float64
		want models.Severity
	}{
		{0, models.LevelNormal},
		{84.999, models.LevelNormal},
		{85.0, models.SeverityElevated},
		{94.999, models.SeverityElevated},
		{95.0, models.SeverityHigh},
		{97.999, models.SeverityHigh},
		{98.0, models.SeverityCritical},
		{100, models.SeverityCritical},
	}

	for _, tt := range tests {
		if got := GridStressLevel(tt.pct); got != tt.want {
			t.Errorf("GridStressLevel(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestQuakeSeverity(t *testing.T) {
	tests := []struct {
		mag  float64
		want models.Severity
	}{
		{2.5, models.SeverityLow},
		{4.999, models.SeverityLow},
		{5.0, models.SeverityModerate},
		{5.999, models.SeverityModerate},
		{6.0, models.SeverityHigh},
		{6.2, models.SeverityHigh},
		{6.999, models.SeverityHigh},
		{7.0, models.SeverityCritical},
		{9.5, models.SeverityCritical},
	}

	for _, tt := range tests {
		if got := QuakeSeverity(tt.mag); got != tt.want {
			t.Errorf("QuakeSeverity(%v) = %q, want %q", tt.mag, got, tt.want)
		}
	}
}

func TestConflictSeverity(t *testing.T) {
	tests := []struct {
		name       string
		fatalities float64
		prob       float64
		want       models.Severity
	}{
		{"quiet", 0, 0, models.SeverityLow},
		{"fatalities alone elevate", 5, 0, models.SeverityElevated},
		{"probability alone elevates", 0, 0.25, models.SeverityElevated},
		{"fatalities alone high", 25, 0, models.SeverityHigh},
		{"probability alone high", 0, 0.75, models.SeverityHigh},
		{"fatalities alone critical", 100, 0, models.SeverityCritical},
		{"probability alone critical", 0, 0.99, models.SeverityCritical},
		{"below both thresholds", 4.9, 0.24, models.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConflictSeverity(tt.fatalities, tt.prob); got != tt.want {
				t.Errorf("ConflictSeverity(%v, %v) = %q, want %q", tt.fatalities, tt.prob, got, tt.want)
			}
		})
	}
}

func TestOutbreakSeverity(t *testing.T) {
	tests := []struct {
		name    string
		disease string
		cases   int64
		deaths  int64
		want    models.Severity
	}{
		{"ebola few deaths", "Ebola Virus Disease", 50, 5, models.SeverityModerate},
		{"ebola deadly", "Ebola Virus Disease", 50, 10, models.SeverityHigh},
		{"ebola catastrophic", "Ebola", 500, 100, models.SeverityCritical},
		{"mpox scored on deaths not cases", "Mpox", 20000, 5, models.SeverityModerate},
		{"cholera small", "Cholera", 99, 0, models.SeverityLow},
		{"cholera moderate", "Cholera", 100, 0, models.SeverityModerate},
		{"cholera high", "Cholera", 1000, 0, models.SeverityHigh},
		{"cholera critical", "Cholera", 10000, 0, models.SeverityCritical},
		{"no cases falls back to deaths", "Measles", 0, 12, models.SeverityHigh},
		{"nothing reported", "Measles", 0, 0, models.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutbreakSeverity(tt.disease, tt.cases, tt.deaths); got != tt.want {
				t.Errorf("OutbreakSeverity(%q, %d, %d) = %q, want %q",
					tt.disease, tt.cases, tt.deaths, got, tt.want)
			}
		})
	}
}

func TestOutageSeverity(t *testing.T) {
	tests := []struct {
		ratio float64
		want  models.Severity
	}{
		{0.1, models.OutageMajor},
		{0.499, models.OutageMajor},
		{0.5, models.OutagePartial},
		{0.799, models.OutagePartial},
		{0.8, ""},
		{1.0, ""},
	}

	for _, tt := range tests {
		if got := OutageSeverity(tt.ratio); got != tt.want {
			t.Errorf("OutageSeverity(%v) = %q, want %q", tt.ratio, got, tt.want)
		}
	}
}

func TestMicroSvConversion(t *testing.T) {
	if got := 0.5 * MicroSvPerHourToCPM; got != 175 {
		t.Errorf("0.5 uSv/h = %v cpm, want 175", got)
	}
}
