package models

import "time"

// Region tags group locations by which forecast providers cover them well.
type Region string

const (
	RegionUS     Region = "us"
	RegionCanada Region = "canada"
	RegionJapan  Region = "japan"
	RegionEurope Region = "europe"
)

// Location describes one mountain in the catalog. Immutable for the
// lifetime of a forecast run.
type Location struct {
	ID          string
	Name        string
	Latitude    float64
	Longitude   float64
	ElevationFt float64
	Timezone    string // IANA name, or "auto" to let the provider resolve it
	Region      Region
}

// RawDay is a single provider's forecast for one calendar day, already in
// °F/inches/mph but not yet reconciled for missing snowfall. Nil pointers
// mean the provider omitted the field.
type RawDay struct {
	Date          time.Time // midnight, provider-local calendar day
	TempMaxF      *float64
	TempMinF      *float64
	PrecipIn      *float64
	SnowfallIn    *float64
	PrecipProbPct *float64
	WindSpeedMph  *float64
	WindGustMph   *float64
	WeatherCode   *int
}

// Confidence is the ensemble merger's agreement grade for one day.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ForecastDay is one normalized, reconciled day of a location's forecast.
// Confidence and SourceAgreement are set only by the ensemble merger;
// spliced and single-source days carry no synthetic confidence claim.
type ForecastDay struct {
	Date            time.Time  `json:"date"`
	TempMaxF        float64    `json:"tempMax"`
	TempMinF        float64    `json:"tempMin"`
	SnowfallIn      float64    `json:"snowfallInches"`
	PrecipIn        float64    `json:"precipitationInches"`
	PrecipProbPct   float64    `json:"precipProbabilityPercent"`
	WindSpeedMph    float64    `json:"windSpeedMph"`
	WindGustMph     float64    `json:"windGustsMph"`
	Source          string     `json:"sourceTag"`
	Confidence      Confidence `json:"confidenceTag,omitempty"`
	SourceAgreement string     `json:"sourceAgreementTag,omitempty"`
}

// CurrentConditions is an optional point-in-time snapshot from the
// long-range provider's current-weather block.
type CurrentConditions struct {
	Time         time.Time `json:"time"`
	TempF        float64   `json:"temp"`
	WindSpeedMph float64   `json:"windSpeed"`
	WeatherCode  int       `json:"weatherCode"`
}

// SnowTotals holds the aggregate windows, each a sum over the
// corresponding prefix of the daily forecast.
type SnowTotals struct {
	Next24H float64 `json:"24h"`
	Next48H float64 `json:"48h"`
	Next5D  float64 `json:"5d"`
	Next7D  float64 `json:"7d"`
	Next10D float64 `json:"10d"`
	Next15D float64 `json:"15d"`
}

// SparklinePoint is one bar of the 15-day mini chart.
type SparklinePoint struct {
	Day  string  `json:"day"` // short weekday label, e.g. "Thu"
	Date string  `json:"date"`
	Snow float64 `json:"snow"`
}

// LocationForecast is the unit of output: one location's merged forecast
// for one orchestration run. Built fresh every run and superseded
// wholesale by the next run's output.
type LocationForecast struct {
	LocationID  string             `json:"locationId"`
	Name        string             `json:"name"`
	LastUpdated time.Time          `json:"lastUpdated"`
	Latitude    float64            `json:"latitude"`
	Longitude   float64            `json:"longitude"`
	ElevationFt float64            `json:"elevation"`
	Current     *CurrentConditions `json:"currentConditions,omitempty"`
	Daily       []ForecastDay      `json:"dailyForecast"`
	SnowTotals  SnowTotals         `json:"snowTotals"`
	IsPowderDay bool               `json:"isPowderDay"`
	BiggestDay  *ForecastDay       `json:"biggestDay,omitempty"`
	Sparkline   []SparklinePoint   `json:"sparklineData"`
}
