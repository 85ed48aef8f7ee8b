package forecast

import (
	"testing"
	"time"

	"github.com/powdercast/powdercast/internal/models"
)

func fptr(v float64) *float64 { return &v }

func TestSnowLiquidRatio(t *testing.T) {
	tests := []struct {
		tempF float64
		want  float64
	}{
		{-5, 20},
		{0, 20},
		{5, 18},
		{10, 18},
		{15, 15},
		{20, 15},
		{25, 12},
		{28, 12},
		{30, 10},
		{32, 10},
		{33, 8},
		{45, 8},
	}

	for _, tt := range tests {
		if got := SnowLiquidRatio(tt.tempF); got != tt.want {
			t.Errorf("SnowLiquidRatio(%v) = %v, want %v", tt.tempF, got, tt.want)
		}
	}
}

func TestElevationMultiplier(t *testing.T) {
	tests := []struct {
		elevationFt float64
		want        float64
	}{
		{0, 1.0},
		{3000, 1.0},
		{6000, 1.1},
		{8500, 1.2},
		{10500, 1.3},
		{12000, 1.5},
		{14000, 1.5},
	}

	for _, tt := range tests {
		if got := ElevationMultiplier(tt.elevationFt); got != tt.want {
			t.Errorf("ElevationMultiplier(%v) = %v, want %v", tt.elevationFt, got, tt.want)
		}
	}
}

func TestEstimateSnowFromPrecip(t *testing.T) {
	// 15°F gives ratio 18, 10,500ft gives multiplier 1.3.
	got := EstimateSnowFromPrecip(1.0, 15, 10500)
	if diff := got - 23.4; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("EstimateSnowFromPrecip(1.0, 15, 10500) = %v, want 23.4", got)
	}

	if got := EstimateSnowFromPrecip(1.0, 33, 10500); got != 0 {
		t.Errorf("above freezing should estimate 0, got %v", got)
	}
	if got := EstimateSnowFromPrecip(0, 15, 10500); got != 0 {
		t.Errorf("zero precip should estimate 0, got %v", got)
	}
}

func TestEstimateSnowMonotonicInPrecip(t *testing.T) {
	prev := 0.0
	for p := 0.0; p <= 3.0; p += 0.1 {
		got := EstimateSnowFromPrecip(p, 20, 9000)
		if got < prev {
			t.Fatalf("estimate decreased at precip %v: %v < %v", p, got, prev)
		}
		prev = got
	}
}

func TestReconcileSnowfall(t *testing.T) {
	tests := []struct {
		name        string
		rawSnow     *float64
		precipIn    float64
		avgTempF    float64
		elevationFt float64
		want        float64
	}{
		{
			name:     "missing raw with freezing precip uses estimate",
			rawSnow:  nil,
			precipIn: 0.5, avgTempF: 25, elevationFt: 0,
			want: 6.0, // 0.5 * 12 * 1.0
		},
		{
			name:    "zero raw with freezing precip uses estimate",
			rawSnow: fptr(0),
			precipIn: 0.5, avgTempF: 25, elevationFt: 0,
			want: 6.0,
		},
		{
			name:    "trusted raw when estimate is close",
			rawSnow: fptr(5.0),
			precipIn: 0.5, avgTempF: 25, elevationFt: 0, // estimate 6.0 <= 7.5
			want: 5.0,
		},
		{
			name:    "blend when estimate exceeds 1.5x raw",
			rawSnow: fptr(3.0),
			precipIn: 0.5, avgTempF: 25, elevationFt: 0, // estimate 6.0 > 4.5
			want: 0.6*3.0 + 0.4*6.0, // 4.2
		},
		{
			name:    "warm day keeps raw even with precip",
			rawSnow: fptr(2.0),
			precipIn: 1.0, avgTempF: 40, elevationFt: 0,
			want: 2.0,
		},
		{
			name:    "negative raw treated as absent",
			rawSnow: fptr(-1.0),
			precipIn: 0.5, avgTempF: 25, elevationFt: 0,
			want: 6.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReconcileSnowfall(tt.rawSnow, tt.precipIn, tt.avgTempF, tt.elevationFt)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("ReconcileSnowfall = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReconcileSnowfallIdempotent(t *testing.T) {
	cases := []struct {
		name        string
		rawSnow     *float64
		precipIn    float64
		avgTempF    float64
		elevationFt float64
	}{
		{"substituted estimate", nil, 0.5, 25, 0},
		{"trusted raw", fptr(5.0), 0.5, 25, 0},
		{"mild blend", fptr(3.0), 0.5, 25, 0},
		{"severe under-report", fptr(0.5), 1.0, 10, 12000}, // estimate far above raw
		{"warm day", fptr(2.0), 1.0, 40, 0},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			first := ReconcileSnowfall(tt.rawSnow, tt.precipIn, tt.avgTempF, tt.elevationFt)
			second := ReconcileSnowfall(&first, tt.precipIn, tt.avgTempF, tt.elevationFt)
			if diff := second - first; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("reconcile not idempotent: first %v, second %v", first, second)
			}
		})
	}
}

func TestReconcileDay(t *testing.T) {
	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	raw := models.RawDay{
		Date:          date,
		TempMaxF:      fptr(30),
		TempMinF:      fptr(20),
		PrecipIn:      fptr(0.5),
		SnowfallIn:    nil,
		PrecipProbPct: fptr(80),
		WindSpeedMph:  fptr(12),
		WindGustMph:   fptr(25),
	}

	day := ReconcileDay(raw, 0, "test-source")

	if day.Source != "test-source" {
		t.Errorf("Source = %q, want test-source", day.Source)
	}
	if day.TempMaxF != 30 || day.TempMinF != 20 {
		t.Errorf("temps = %v/%v, want 30/20", day.TempMaxF, day.TempMinF)
	}
	// avg 25°F, ratio 12, sea level: 0.5in precip estimates 6in of snow
	if diff := day.SnowfallIn - 6.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("SnowfallIn = %v, want 6.0", day.SnowfallIn)
	}
	if day.Confidence != "" {
		t.Errorf("single-source day must not carry a confidence tag, got %q", day.Confidence)
	}
}

func TestReconcileDayMissingTemps(t *testing.T) {
	raw := models.RawDay{
		Date:       time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		PrecipIn:   fptr(1.0),
		SnowfallIn: fptr(3.0),
	}

	day := ReconcileDay(raw, 10000, "test-source")

	// Without a temperature pair we can't estimate, so raw snow passes
	// through untouched.
	if day.SnowfallIn != 3.0 {
		t.Errorf("SnowfallIn = %v, want raw 3.0", day.SnowfallIn)
	}
}
