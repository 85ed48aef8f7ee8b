package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/powdercast/powdercast/internal/models"
)

const nwsBaseURL = "https://api.weather.gov"

// nwsHorizonDays is how far out the gridpoint forecast is authoritative.
const nwsHorizonDays = 7

// NWS fetches short-range forecasts from the National Weather Service
// gridpoint API. Resolution is two-step: /points maps coordinates to a
// forecast grid (memoized in the injected cache, the lookup never changes
// for fixed catalog coordinates), then the gridpoint endpoint returns
// sub-daily time series in WMO units which the adapter aggregates to
// calendar days in °F/inches/mph.
type NWS struct {
	userAgent string
	baseURL   string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker
	cache     *GridCache
	logger    *slog.Logger
}

// NewNWS creates the adapter. The user agent is required by the NWS API
// terms and acts as the credential.
func NewNWS(client *http.Client, userAgent string, cache *GridCache) *NWS {
	return &NWS{
		userAgent: userAgent,
		baseURL:   nwsBaseURL,
		client:    client,
		breaker:   newBreaker("nws"),
		cache:     cache,
		logger:    slog.Default().With("component", "nws"),
	}
}

func (n *NWS) Name() string {
	return "nws"
}

type nwsPointsResponse struct {
	Properties struct {
		ForecastGridData string `json:"forecastGridData"`
	} `json:"properties"`
}

type nwsValue struct {
	ValidTime string   `json:"validTime"` // "2026-02-03T06:00:00+00:00/PT6H"
	Value     *float64 `json:"value"`
}

type nwsLayer struct {
	UOM    string     `json:"uom"`
	Values []nwsValue `json:"values"`
}

type nwsGridResponse struct {
	Properties struct {
		Temperature                nwsLayer `json:"temperature"`
		MaxTemperature             nwsLayer `json:"maxTemperature"`
		MinTemperature             nwsLayer `json:"minTemperature"`
		QuantitativePrecipitation  nwsLayer `json:"quantitativePrecipitation"`
		SnowfallAmount             nwsLayer `json:"snowfallAmount"`
		ProbabilityOfPrecipitation nwsLayer `json:"probabilityOfPrecipitation"`
		WindSpeed                  nwsLayer `json:"windSpeed"`
		WindGust                   nwsLayer `json:"windGust"`
	} `json:"properties"`
}

func (n *NWS) Fetch(ctx context.Context, loc models.Location) (Series, error) {
	gridURL, err := n.resolveGrid(ctx, loc)
	if err != nil {
		return Series{}, err
	}

	body, err := fetchJSON(ctx, n.client, n.breaker, n.Name(), gridURL, n.header())
	if err != nil {
		return Series{}, err
	}

	var data nwsGridResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return Series{}, malformedErr(n.Name(), fmt.Errorf("unmarshal gridpoint: %w", err))
	}

	days := n.aggregateDays(data, loc)
	return Series{Days: days}, nil
}

// resolveGrid returns the gridpoint forecast URL for the coordinates,
// consulting the injected cache before hitting /points.
func (n *NWS) resolveGrid(ctx context.Context, loc models.Location) (string, error) {
	if url, ok := n.cache.Get(loc.Latitude, loc.Longitude); ok {
		return url, nil
	}

	pointsURL := fmt.Sprintf("%s/points/%.4f,%.4f", n.baseURL, loc.Latitude, loc.Longitude)
	body, err := fetchJSON(ctx, n.client, n.breaker, n.Name(), pointsURL, n.header())
	if err != nil {
		return "", err
	}

	var points nwsPointsResponse
	if err := json.Unmarshal(body, &points); err != nil {
		return "", malformedErr(n.Name(), fmt.Errorf("unmarshal points: %w", err))
	}
	gridURL := points.Properties.ForecastGridData
	if gridURL == "" {
		return "", malformedErr(n.Name(), fmt.Errorf("points response missing forecastGridData"))
	}

	n.cache.Put(loc.Latitude, loc.Longitude, gridURL)
	return gridURL, nil
}

func (n *NWS) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", n.userAgent)
	h.Set("Accept", "application/geo+json")
	return h
}

type nwsDayBucket struct {
	date     time.Time
	tempMaxF *float64
	tempMinF *float64
	precipIn *float64
	snowIn   *float64
	popPct   *float64
	windMph  *float64
	gustMph  *float64
}

// aggregateDays folds the sub-daily gridpoint layers into one record per
// provider-local calendar day: max/min for temperature, sum for
// precipitation and snow, max for wind and precipitation probability.
func (n *NWS) aggregateDays(data nwsGridResponse, loc models.Location) []models.RawDay {
	tz := locationTZ(loc)
	buckets := make(map[string]*nwsDayBucket)

	bucketFor := func(t time.Time) *nwsDayBucket {
		local := t.In(tz)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
		key := day.Format("2006-01-02")
		b, ok := buckets[key]
		if !ok {
			b = &nwsDayBucket{date: day}
			buckets[key] = b
		}
		return b
	}

	props := data.Properties

	applyLayer(n, props.MaxTemperature, tz, bucketFor, func(b *nwsDayBucket, v float64) {
		b.tempMaxF = foldMax(b.tempMaxF, v)
	})
	applyLayer(n, props.MinTemperature, tz, bucketFor, func(b *nwsDayBucket, v float64) {
		b.tempMinF = foldMin(b.tempMinF, v)
	})
	// Some grids publish only the hourly temperature curve; derive the
	// daily extremes from it when the dedicated layers are empty.
	if len(props.MaxTemperature.Values) == 0 {
		applyLayer(n, props.Temperature, tz, bucketFor, func(b *nwsDayBucket, v float64) {
			b.tempMaxF = foldMax(b.tempMaxF, v)
		})
	}
	if len(props.MinTemperature.Values) == 0 {
		applyLayer(n, props.Temperature, tz, bucketFor, func(b *nwsDayBucket, v float64) {
			b.tempMinF = foldMin(b.tempMinF, v)
		})
	}

	applyLayer(n, props.QuantitativePrecipitation, tz, bucketFor, func(b *nwsDayBucket, v float64) {
		b.precipIn = foldSum(b.precipIn, v)
	})
	applyLayer(n, props.SnowfallAmount, tz, bucketFor, func(b *nwsDayBucket, v float64) {
		b.snowIn = foldSum(b.snowIn, v)
	})
	applyLayer(n, props.ProbabilityOfPrecipitation, tz, bucketFor, func(b *nwsDayBucket, v float64) {
		b.popPct = foldMax(b.popPct, v)
	})
	applyLayer(n, props.WindSpeed, tz, bucketFor, func(b *nwsDayBucket, v float64) {
		b.windMph = foldMax(b.windMph, v)
	})
	applyLayer(n, props.WindGust, tz, bucketFor, func(b *nwsDayBucket, v float64) {
		b.gustMph = foldMax(b.gustMph, v)
	})

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > nwsHorizonDays {
		keys = keys[:nwsHorizonDays]
	}

	days := make([]models.RawDay, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		days = append(days, models.RawDay{
			Date:          b.date,
			TempMaxF:      b.tempMaxF,
			TempMinF:      b.tempMinF,
			PrecipIn:      b.precipIn,
			SnowfallIn:    b.snowIn,
			PrecipProbPct: b.popPct,
			WindSpeedMph:  b.windMph,
			WindGustMph:   b.gustMph,
		})
	}
	return days
}

// applyLayer converts each layer value to the output unit and folds it into
// the calendar-day bucket of its period start.
func applyLayer(n *NWS, layer nwsLayer, tz *time.Location, bucketFor func(time.Time) *nwsDayBucket, fold func(*nwsDayBucket, float64)) {
	for _, v := range layer.Values {
		if v.Value == nil {
			continue
		}
		start, err := parseValidTimeStart(v.ValidTime)
		if err != nil {
			n.logger.Warn("skipping value with bad validTime", "validTime", v.ValidTime, "error", err)
			continue
		}
		converted, ok := convertWMOUnit(layer.UOM, *v.Value)
		if !ok {
			n.logger.Warn("skipping value with unknown unit", "uom", layer.UOM)
			continue
		}
		fold(bucketFor(start), converted)
	}
}

// parseValidTimeStart extracts the period start from an NWS validTime,
// which is an ISO interval like "2026-02-03T06:00:00+00:00/PT6H".
func parseValidTimeStart(validTime string) (time.Time, error) {
	startStr, _, _ := strings.Cut(validTime, "/")
	return time.Parse(time.RFC3339, startStr)
}

// convertWMOUnit converts a WMO-unit value to the adapter's output
// convention (°F, inches, mph).
func convertWMOUnit(uom string, v float64) (float64, bool) {
	switch uom {
	case "wmoUnit:degC":
		return v*9/5 + 32, true
	case "wmoUnit:degF":
		return v, true
	case "wmoUnit:mm":
		return v / 25.4, true
	case "wmoUnit:cm":
		return v / 2.54, true
	case "wmoUnit:in":
		return v, true
	case "wmoUnit:km_h-1":
		return v * 0.621371, true
	case "wmoUnit:m_s-1":
		return v * 2.236936, true
	case "wmoUnit:percent", "":
		return v, true
	default:
		return 0, false
	}
}

func locationTZ(loc models.Location) *time.Location {
	if loc.Timezone == "" || loc.Timezone == "auto" {
		return time.UTC
	}
	tz, err := time.LoadLocation(loc.Timezone)
	if err != nil {
		return time.UTC
	}
	return tz
}

func foldMax(cur *float64, v float64) *float64 {
	if cur == nil || v > *cur {
		return &v
	}
	return cur
}

func foldMin(cur *float64, v float64) *float64 {
	if cur == nil || v < *cur {
		return &v
	}
	return cur
}

func foldSum(cur *float64, v float64) *float64 {
	if cur == nil {
		return &v
	}
	sum := *cur + v
	return &sum
}
