package forecast

import (
	"sort"

	"github.com/powdercast/powdercast/internal/models"
)

// SourceExtended tags days taken from the long-range model beyond the
// short-range provider's horizon.
const SourceExtended = "extended"

// spliceMaxDays caps the stitched series.
const spliceMaxDays = 15

// SpliceHorizons stitches a short-range authoritative series onto a
// long-range series at the day boundary where the short range runs out.
// Short-range days are kept verbatim; long-range days for dates the short
// range already covers are discarded, and the remainder is re-tagged as
// extended. The result is sorted ascending, deduplicated, and capped at 15
// days. Aggregates must be recomputed from the spliced series afterwards.
func SpliceHorizons(shortRange, longRange []models.ForecastDay) []models.ForecastDay {
	covered := make(map[string]bool, len(shortRange))
	out := make([]models.ForecastDay, 0, spliceMaxDays)

	for _, d := range shortRange {
		key := d.Date.Format("2006-01-02")
		if covered[key] {
			continue
		}
		covered[key] = true
		out = append(out, d)
	}

	for _, d := range longRange {
		key := d.Date.Format("2006-01-02")
		if covered[key] {
			continue
		}
		covered[key] = true
		d.Source = SourceExtended
		// Spliced days make no multi-source agreement claim.
		d.Confidence = ""
		d.SourceAgreement = ""
		out = append(out, d)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	if len(out) > spliceMaxDays {
		out = out[:spliceMaxDays]
	}
	return out
}
