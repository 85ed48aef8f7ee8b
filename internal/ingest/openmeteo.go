package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/powdercast/powdercast/internal/models"
)

const openMeteoBaseURL = "https://api.open-meteo.com/v1/forecast"

// openMeteoHorizonDays is the global models' full horizon.
const openMeteoHorizonDays = 16

// OpenMeteo fetches 16-day daily forecasts from the Open-Meteo model API.
// One endpoint hosts many models, so one adapter instance per model covers
// every region's regional member and the universal GFS fallback. The
// request asks for imperial units directly; no key is required.
type OpenMeteo struct {
	model   string
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewOpenMeteo creates an adapter bound to one forecast model, e.g.
// "gfs_seamless" or "jma_seamless".
func NewOpenMeteo(client *http.Client, model string) *OpenMeteo {
	name := "openmeteo/" + model
	return &OpenMeteo{
		model:   model,
		baseURL: openMeteoBaseURL,
		client:  client,
		breaker: newBreaker(name),
		logger:  slog.Default().With("component", name),
	}
}

func (o *OpenMeteo) Name() string {
	return "openmeteo/" + o.model
}

type openMeteoResponse struct {
	Daily struct {
		Time          []string   `json:"time"`
		TempMax       []*float64 `json:"temperature_2m_max"`
		TempMin       []*float64 `json:"temperature_2m_min"`
		PrecipSum     []*float64 `json:"precipitation_sum"`
		SnowfallSum   []*float64 `json:"snowfall_sum"`
		PrecipProbMax []*float64 `json:"precipitation_probability_max"`
		WindSpeedMax  []*float64 `json:"windspeed_10m_max"`
		WindGustMax   []*float64 `json:"windgusts_10m_max"`
		WeatherCode   []*int     `json:"weathercode"`
	} `json:"daily"`
	CurrentWeather *struct {
		Time        string  `json:"time"`
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
}

func (o *OpenMeteo) Fetch(ctx context.Context, loc models.Location) (Series, error) {
	body, err := fetchJSON(ctx, o.client, o.breaker, o.Name(), o.requestURL(loc), nil)
	if err != nil {
		return Series{}, err
	}

	var data openMeteoResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return Series{}, malformedErr(o.Name(), fmt.Errorf("unmarshal: %w", err))
	}

	series := Series{Days: make([]models.RawDay, 0, len(data.Daily.Time))}
	for i, dateStr := range data.Daily.Time {
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			o.logger.Warn("skipping unparseable date", "date", dateStr, "error", err)
			continue
		}

		day := models.RawDay{Date: date}
		// Arrays can run short of the requested horizon; index guards keep
		// missing tails as nil fields.
		day.TempMaxF = at(data.Daily.TempMax, i)
		day.TempMinF = at(data.Daily.TempMin, i)
		day.PrecipIn = at(data.Daily.PrecipSum, i)
		day.SnowfallIn = at(data.Daily.SnowfallSum, i)
		day.PrecipProbPct = at(data.Daily.PrecipProbMax, i)
		day.WindSpeedMph = at(data.Daily.WindSpeedMax, i)
		day.WindGustMph = at(data.Daily.WindGustMax, i)
		day.WeatherCode = at(data.Daily.WeatherCode, i)
		series.Days = append(series.Days, day)
	}

	if cw := data.CurrentWeather; cw != nil {
		obsTime, err := time.Parse("2006-01-02T15:04", cw.Time)
		if err != nil {
			obsTime = time.Now().UTC()
		}
		series.Current = &models.CurrentConditions{
			Time:         obsTime,
			TempF:        cw.Temperature,
			WindSpeedMph: cw.WindSpeed,
			WeatherCode:  cw.WeatherCode,
		}
	}

	return series, nil
}

func (o *OpenMeteo) requestURL(loc models.Location) string {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%.4f", loc.Latitude))
	values.Set("longitude", fmt.Sprintf("%.4f", loc.Longitude))
	values.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,snowfall_sum,precipitation_probability_max,windspeed_10m_max,windgusts_10m_max,weathercode")
	values.Set("temperature_unit", "fahrenheit")
	values.Set("precipitation_unit", "inch")
	values.Set("windspeed_unit", "mph")
	values.Set("forecast_days", fmt.Sprintf("%d", openMeteoHorizonDays))
	values.Set("current_weather", "true")
	values.Set("models", o.model)

	tz := loc.Timezone
	if tz == "" {
		tz = "auto"
	}
	values.Set("timezone", tz)

	if loc.ElevationFt > 0 {
		values.Set("elevation", fmt.Sprintf("%.0f", loc.ElevationFt*0.3048))
	}

	return o.baseURL + "?" + values.Encode()
}

func at[T any](s []*T, i int) *T {
	if i < len(s) {
		return s[i]
	}
	return nil
}
