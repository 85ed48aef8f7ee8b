package forecast

import "github.com/powdercast/powdercast/internal/models"

// Strategy selects how a region's two sources are combined.
type Strategy string

const (
	// StrategySplice stitches a short-range authoritative series with the
	// long-range series beyond its horizon.
	StrategySplice Strategy = "splice"
	// StrategyEnsemble blends both sources over the same window.
	StrategyEnsemble Strategy = "ensemble"
)

// RateClass buckets providers by how aggressively they rate limit.
type RateClass string

const (
	// RateClassLimited providers get smaller batches and longer
	// inter-batch delays.
	RateClassLimited RateClass = "rate-limited"
	RateClassGlobal  RateClass = "global"
)

// SourceRef names an adapter, plus the model parameter for providers that
// host several models behind one endpoint.
type SourceRef struct {
	Provider string
	Model    string
}

// Route is one region's source selection: a designated primary and the
// long-range source that doubles as the universal fallback.
type Route struct {
	Strategy  Strategy
	Primary   SourceRef
	Fallback  SourceRef
	RateClass RateClass
}

// gfs is the global long-range model every region falls back to.
var gfs = SourceRef{Provider: "openmeteo", Model: "gfs_seamless"}

// routes is the authoritative region table. US splices NWS (human-corrected,
// ~7 days) onto GFS; other regions blend their regional model with GFS.
var routes = map[models.Region]Route{
	models.RegionUS: {
		Strategy:  StrategySplice,
		Primary:   SourceRef{Provider: "nws"},
		Fallback:  gfs,
		RateClass: RateClassLimited,
	},
	models.RegionCanada: {
		Strategy:  StrategyEnsemble,
		Primary:   SourceRef{Provider: "openmeteo", Model: "gem_seamless"},
		Fallback:  gfs,
		RateClass: RateClassGlobal,
	},
	models.RegionJapan: {
		Strategy:  StrategyEnsemble,
		Primary:   SourceRef{Provider: "openmeteo", Model: "jma_seamless"},
		Fallback:  gfs,
		RateClass: RateClassGlobal,
	},
	models.RegionEurope: {
		Strategy:  StrategyEnsemble,
		Primary:   SourceRef{Provider: "openmeteo", Model: "ecmwf_ifs025"},
		Fallback:  gfs,
		RateClass: RateClassGlobal,
	},
}

// SelectSources returns the route for a region. Unknown regions get a
// GFS-only splice route: no short-range primary, so the splicer relies
// entirely on the long-range component.
func SelectSources(region models.Region) Route {
	if r, ok := routes[region]; ok {
		return r
	}
	return Route{
		Strategy:  StrategySplice,
		Fallback:  gfs,
		RateClass: RateClassGlobal,
	}
}
