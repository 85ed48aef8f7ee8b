package forecast

import "github.com/powdercast/powdercast/internal/models"

// SnowLiquidRatio returns inches of snow per inch of melted-water-equivalent
// precipitation for a given temperature. Colder air yields fluffier snow and
// a higher ratio.
func SnowLiquidRatio(tempF float64) float64 {
	switch {
	case tempF <= 0:
		return 20
	case tempF <= 10:
		return 18
	case tempF <= 20:
		return 15
	case tempF <= 28:
		return 12
	case tempF <= 32:
		return 10
	default:
		return 8 // wet, heavy
	}
}

// ElevationMultiplier accounts for orographic enhancement: air forced up
// over terrain wrings out more precipitation at higher elevations.
func ElevationMultiplier(elevationFt float64) float64 {
	switch {
	case elevationFt >= 12000:
		return 1.5
	case elevationFt >= 10000:
		return 1.3
	case elevationFt >= 8000:
		return 1.2
	case elevationFt >= 6000:
		return 1.1
	default:
		return 1.0
	}
}

// EstimateSnowFromPrecip converts liquid precipitation to a snowfall estimate
// using the temperature-banded ratio and the orographic multiplier. Above
// freezing there is no snow to estimate.
func EstimateSnowFromPrecip(precipIn, avgTempF, elevationFt float64) float64 {
	if avgTempF > 32 || precipIn <= 0 {
		return 0
	}
	return precipIn * SnowLiquidRatio(avgTempF) * ElevationMultiplier(elevationFt)
}

// ReconcileSnowfall decides the final snowfall value for a day, given the
// provider's raw figure and our own precip-derived estimate. Providers often
// report zero snow on days with sub-freezing precipitation, and under-report
// fluffy low-density snow.
//
//   - raw absent/zero with freezing precip: use the estimate
//   - estimate more than 1.5x the raw value: blend 60% raw / 40% estimate
//   - otherwise: trust the raw value
//
// The rule is idempotent: reconciling an already-reconciled value returns it
// unchanged, because the estimate is recomputed from the same precip inputs.
func ReconcileSnowfall(rawSnowIn *float64, precipIn, avgTempF, elevationFt float64) float64 {
	estimate := EstimateSnowFromPrecip(precipIn, avgTempF, elevationFt)

	raw := 0.0
	if rawSnowIn != nil {
		raw = *rawSnowIn
	}
	if raw < 0 {
		raw = 0
	}

	if raw == 0 {
		return estimate
	}
	if estimate > raw*1.5 {
		blended := 0.6*raw + 0.4*estimate
		// Floor at estimate/1.5 so the blended value itself passes the
		// trust check; without it a second reconcile would re-blend.
		if floor := estimate / 1.5; blended < floor {
			blended = floor
		}
		return blended
	}
	return raw
}

// ReconcileDay applies the snowfall reconciliation rule to a raw provider
// day and returns the normalized record. Missing optional fields become
// zero values; a missing temperature pair disables estimation (we can't
// claim snow without knowing it was cold).
func ReconcileDay(raw models.RawDay, elevationFt float64, source string) models.ForecastDay {
	day := models.ForecastDay{
		Date:   raw.Date,
		Source: source,
	}

	if raw.TempMaxF != nil {
		day.TempMaxF = *raw.TempMaxF
	}
	if raw.TempMinF != nil {
		day.TempMinF = *raw.TempMinF
	}
	if raw.PrecipIn != nil && *raw.PrecipIn > 0 {
		day.PrecipIn = *raw.PrecipIn
	}
	if raw.PrecipProbPct != nil {
		day.PrecipProbPct = *raw.PrecipProbPct
	}
	if raw.WindSpeedMph != nil {
		day.WindSpeedMph = *raw.WindSpeedMph
	}
	if raw.WindGustMph != nil {
		day.WindGustMph = *raw.WindGustMph
	}

	if raw.TempMaxF != nil && raw.TempMinF != nil {
		avgTemp := (*raw.TempMaxF + *raw.TempMinF) / 2
		day.SnowfallIn = ReconcileSnowfall(raw.SnowfallIn, day.PrecipIn, avgTemp, elevationFt)
	} else if raw.SnowfallIn != nil && *raw.SnowfallIn > 0 {
		day.SnowfallIn = *raw.SnowfallIn
	}

	return day
}
