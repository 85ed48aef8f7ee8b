package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/powdercast/powdercast/internal/models"
)

// SourceSeries is one adapter's output, tagged with the adapter name.
type SourceSeries struct {
	Name string
	Days []models.RawDay
}

// maxForecastDays caps a merged series at the longest horizon any provider
// offers.
const maxForecastDays = 16

// MergeEnsemble blends two or more simultaneous source series covering the
// same date range into one series with per-day confidence tagging.
//
// Per date: temperatures are averaged across sources, each source's snowfall
// is reconciled against the averaged temperature, and the blend leans toward
// the across-source maximum when the averaged precipitation probability
// signals a storm regime — independent models systematically under-call
// orographic snow during active storms.
func MergeEnsemble(sources []SourceSeries, elevationFt, stormProbThreshold float64) []models.ForecastDay {
	type bucket struct {
		date time.Time
		days []models.RawDay
	}

	buckets := make(map[string]*bucket)
	for _, src := range sources {
		for _, d := range src.Days {
			key := d.Date.Format("2006-01-02")
			b, ok := buckets[key]
			if !ok {
				b = &bucket{date: d.Date}
				buckets[key] = b
			}
			b.days = append(b.days, d)
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > maxForecastDays {
		keys = keys[:maxForecastDays]
	}

	totalSources := len(sources)
	merged := make([]models.ForecastDay, 0, len(keys))

	for dayIdx, k := range keys {
		b := buckets[k]
		day, estimates := blendDay(b.date, b.days, elevationFt, stormProbThreshold)
		day.Confidence = gradeConfidence(dayIdx, len(b.days), stddev(estimates))
		day.SourceAgreement = fmt.Sprintf("%d/%d", len(b.days), totalSources)
		merged = append(merged, day)
	}

	return merged
}

func blendDay(date time.Time, days []models.RawDay, elevationFt, stormProbThreshold float64) (models.ForecastDay, []float64) {
	var (
		sumMax, sumMin     float64
		nMax, nMin         int
		sumPrecip, sumProb float64
		nPrecip, nProb     int
		sumWind, sumGust   float64
		nWind, nGust       int
	)

	for _, d := range days {
		if d.TempMaxF != nil {
			sumMax += *d.TempMaxF
			nMax++
		}
		if d.TempMinF != nil {
			sumMin += *d.TempMinF
			nMin++
		}
		if d.PrecipIn != nil {
			sumPrecip += *d.PrecipIn
			nPrecip++
		}
		if d.PrecipProbPct != nil {
			sumProb += *d.PrecipProbPct
			nProb++
		}
		if d.WindSpeedMph != nil {
			sumWind += *d.WindSpeedMph
			nWind++
		}
		if d.WindGustMph != nil {
			sumGust += *d.WindGustMph
			nGust++
		}
	}

	day := models.ForecastDay{Date: date, Source: "ensemble"}
	if nMax > 0 {
		day.TempMaxF = sumMax / float64(nMax)
	}
	if nMin > 0 {
		day.TempMinF = sumMin / float64(nMin)
	}
	if nPrecip > 0 {
		day.PrecipIn = sumPrecip / float64(nPrecip)
	}
	if nProb > 0 {
		day.PrecipProbPct = sumProb / float64(nProb)
	}
	if nWind > 0 {
		day.WindSpeedMph = sumWind / float64(nWind)
	}
	if nGust > 0 {
		day.WindGustMph = sumGust / float64(nGust)
	}

	estimates := snowEstimates(days, day, elevationFt, nMax > 0 && nMin > 0)

	var avgSnow, maxSnow float64
	for _, e := range estimates {
		avgSnow += e
		if e > maxSnow {
			maxSnow = e
		}
	}
	if len(estimates) > 0 {
		avgSnow /= float64(len(estimates))
	}

	if day.PrecipProbPct > stormProbThreshold {
		day.SnowfallIn = 0.4*avgSnow + 0.6*maxSnow
	} else {
		day.SnowfallIn = 0.5*avgSnow + 0.5*maxSnow
	}

	return day, estimates
}

// snowEstimates reconciles each source's snowfall for the date using the
// blended temperature. Without a usable temperature pair we fall back to
// whatever raw snow the sources reported.
func snowEstimates(days []models.RawDay, blended models.ForecastDay, elevationFt float64, haveTemp bool) []float64 {
	estimates := make([]float64, 0, len(days))
	avgTemp := (blended.TempMaxF + blended.TempMinF) / 2

	for _, d := range days {
		if haveTemp {
			precip := 0.0
			if d.PrecipIn != nil && *d.PrecipIn > 0 {
				precip = *d.PrecipIn
			}
			estimates = append(estimates, ReconcileSnowfall(d.SnowfallIn, precip, avgTemp, elevationFt))
			continue
		}
		if d.SnowfallIn != nil && *d.SnowfallIn > 0 {
			estimates = append(estimates, *d.SnowfallIn)
		} else {
			estimates = append(estimates, 0)
		}
	}
	return estimates
}

// gradeConfidence assigns high/medium/low from forecast lead time, source
// count, and the spread of the per-source snow estimates.
func gradeConfidence(dayIdx, sourceCount int, dev float64) models.Confidence {
	switch {
	case dayIdx >= 10 || dev > 3 || sourceCount < 2:
		return models.ConfidenceLow
	case dayIdx < 5 && dev < 1.5:
		return models.ConfidenceHigh
	default:
		return models.ConfidenceMedium
	}
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)))
}
