package forecast

import (
	"sort"
	"time"

	"github.com/powdercast/powdercast/internal/models"
)

// DefaultPowderThresholdIn is the 48-hour snowfall that flags a powder day.
const DefaultPowderThresholdIn = 6.0

// sparklineDays is how many leading days feed the mini chart.
const sparklineDays = 15

// biggestDayWindow bounds the "biggest day" search to the trustworthy part
// of the forecast.
const biggestDayWindow = 7

// BuildLocationForecast assembles the final output for one location from a
// merged daily series: it sorts, deduplicates, and caps the series, then
// derives every aggregate from that same slice so the windows can never
// drift from the days they summarize.
func BuildLocationForecast(loc models.Location, daily []models.ForecastDay, current *models.CurrentConditions, powderThresholdIn float64, now time.Time) models.LocationForecast {
	days := normalizeSeries(daily)

	fc := models.LocationForecast{
		LocationID:  loc.ID,
		Name:        loc.Name,
		LastUpdated: now.UTC(),
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		ElevationFt: loc.ElevationFt,
		Current:     current,
		Daily:       days,
	}

	fc.SnowTotals = models.SnowTotals{
		Next24H: prefixSnowSum(days, 1),
		Next48H: prefixSnowSum(days, 2),
		Next5D:  prefixSnowSum(days, 5),
		Next7D:  prefixSnowSum(days, 7),
		Next10D: prefixSnowSum(days, 10),
		Next15D: prefixSnowSum(days, 15),
	}
	fc.IsPowderDay = fc.SnowTotals.Next48H >= powderThresholdIn
	fc.BiggestDay = biggestDay(days)
	fc.Sparkline = sparkline(days)

	return fc
}

// normalizeSeries enforces the series invariants: ascending dates, no
// duplicates, non-negative snow, at most 16 entries.
func normalizeSeries(daily []models.ForecastDay) []models.ForecastDay {
	days := make([]models.ForecastDay, 0, len(daily))
	seen := make(map[string]bool, len(daily))

	for _, d := range daily {
		key := d.Date.Format("2006-01-02")
		if seen[key] {
			continue
		}
		seen[key] = true
		if d.SnowfallIn < 0 {
			d.SnowfallIn = 0
		}
		days = append(days, d)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	if len(days) > maxForecastDays {
		days = days[:maxForecastDays]
	}
	return days
}

func prefixSnowSum(days []models.ForecastDay, n int) float64 {
	if n > len(days) {
		n = len(days)
	}
	var total float64
	for _, d := range days[:n] {
		total += d.SnowfallIn
	}
	return total
}

func biggestDay(days []models.ForecastDay) *models.ForecastDay {
	window := days
	if len(window) > biggestDayWindow {
		window = window[:biggestDayWindow]
	}
	if len(window) == 0 {
		return nil
	}

	best := window[0]
	for _, d := range window[1:] {
		if d.SnowfallIn > best.SnowfallIn {
			best = d
		}
	}
	return &best
}

func sparkline(days []models.ForecastDay) []models.SparklinePoint {
	window := days
	if len(window) > sparklineDays {
		window = window[:sparklineDays]
	}

	points := make([]models.SparklinePoint, 0, len(window))
	for _, d := range window {
		points = append(points, models.SparklinePoint{
			Day:  d.Date.Weekday().String()[:3],
			Date: d.Date.Format("2006-01-02"),
			Snow: d.SnowfallIn,
		})
	}
	return points
}
