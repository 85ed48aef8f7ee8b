package orchestrator

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/powdercast/powdercast/internal/forecast"
	"github.com/powdercast/powdercast/internal/ingest"
	"github.com/powdercast/powdercast/internal/metrics"
	"github.com/powdercast/powdercast/internal/models"
)

// BatchPolicy bounds how many locations of one rate class are in flight at
// once, and how long to pause between batches.
type BatchPolicy struct {
	Size  int
	Delay time.Duration
}

// Config tunes a run. Zero values are filled with defaults by New.
type Config struct {
	Policies           map[forecast.RateClass]BatchPolicy
	StormProbThreshold float64
	PowderThresholdIn  float64
	AdapterTimeout     time.Duration
}

// DefaultConfig mirrors the providers' observed rate limits: NWS-class
// endpoints get small batches with a long pause, globally-hosted model
// endpoints tolerate wider fan-out.
func DefaultConfig() Config {
	return Config{
		Policies: map[forecast.RateClass]BatchPolicy{
			forecast.RateClassLimited: {Size: 3, Delay: 1500 * time.Millisecond},
			forecast.RateClassGlobal:  {Size: 6, Delay: 500 * time.Millisecond},
		},
		StormProbThreshold: 60,
		PowderThresholdIn:  forecast.DefaultPowderThresholdIn,
		AdapterTimeout:     30 * time.Second,
	}
}

// Registry resolves router source references to adapter instances.
type Registry struct {
	adapters map[string]ingest.Adapter
}

// NewRegistry indexes adapters by name. Open-Meteo adapters register as
// "openmeteo/<model>", NWS as "nws".
func NewRegistry(adapters ...ingest.Adapter) *Registry {
	r := &Registry{adapters: make(map[string]ingest.Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

func (r *Registry) resolve(ref forecast.SourceRef) (ingest.Adapter, bool) {
	key := ref.Provider
	if ref.Model != "" {
		key = ref.Provider + "/" + ref.Model
	}
	a, ok := r.adapters[key]
	return a, ok
}

// FetchLog records per-provider call outcomes. The store satisfies it; a
// nil log disables recording.
type FetchLog interface {
	LogFetch(provider, locationID string, ok bool, errorKind, errMsg string) error
}

// Orchestrator runs the router/merge/splice pipeline for a whole location
// catalog under bounded concurrency. The clock is injected so tests can
// drive the inter-batch delays.
type Orchestrator struct {
	registry *Registry
	cfg      Config
	clock    clockwork.Clock
	fetchLog FetchLog
	logger   *slog.Logger
}

func New(registry *Registry, cfg Config, clock clockwork.Clock) *Orchestrator {
	def := DefaultConfig()
	if cfg.Policies == nil {
		cfg.Policies = def.Policies
	}
	if cfg.StormProbThreshold == 0 {
		cfg.StormProbThreshold = def.StormProbThreshold
	}
	if cfg.PowderThresholdIn == 0 {
		cfg.PowderThresholdIn = def.PowderThresholdIn
	}
	if cfg.AdapterTimeout == 0 {
		cfg.AdapterTimeout = def.AdapterTimeout
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Orchestrator{
		registry: registry,
		cfg:      cfg,
		clock:    clock,
		logger:   slog.Default().With("component", "orchestrator"),
	}
}

// SetFetchLog enables persistent recording of provider call outcomes.
func (o *Orchestrator) SetFetchLog(log FetchLog) {
	o.fetchLog = log
}

// Run forecasts every location in the catalog and returns a map keyed by
// location id. A location whose every adapter failed is simply absent:
// callers treat absence as "forecast unavailable", never as zero snow.
// Nothing a provider does can abort the run.
func (o *Orchestrator) Run(ctx context.Context, locations []models.Location) map[string]models.LocationForecast {
	start := o.clock.Now()
	results := make(map[string]models.LocationForecast, len(locations))
	var mu sync.Mutex

	// Locations are batched per rate class so the NWS-class partition's
	// tighter pacing doesn't slow down the globally-hosted providers.
	partitions := make(map[forecast.RateClass][]models.Location)
	for _, loc := range locations {
		class := forecast.SelectSources(loc.Region).RateClass
		partitions[class] = append(partitions[class], loc)
	}

	classes := make([]forecast.RateClass, 0, len(partitions))
	for class := range partitions {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	for _, class := range classes {
		o.runPartition(ctx, class, partitions[class], results, &mu)
	}

	metrics.ForecastRunsTotal.Inc()
	metrics.ForecastRunDuration.Observe(o.clock.Since(start).Seconds())
	o.logger.Info("run complete",
		"locations", len(locations),
		"forecasted", len(results),
		"elapsed", o.clock.Since(start),
	)
	return results
}

func (o *Orchestrator) runPartition(ctx context.Context, class forecast.RateClass, locations []models.Location, results map[string]models.LocationForecast, mu *sync.Mutex) {
	policy, ok := o.cfg.Policies[class]
	if !ok || policy.Size <= 0 {
		policy = BatchPolicy{Size: 3, Delay: time.Second}
	}

	for batchStart := 0; batchStart < len(locations); batchStart += policy.Size {
		end := batchStart + policy.Size
		if end > len(locations) {
			end = len(locations)
		}

		var wg sync.WaitGroup
		for _, loc := range locations[batchStart:end] {
			wg.Add(1)
			go func(loc models.Location) {
				defer wg.Done()
				fc, ok := o.forecastLocation(ctx, loc)
				if !ok {
					metrics.LocationsUnavailable.Inc()
					return
				}
				metrics.LocationsForecasted.Inc()
				mu.Lock()
				results[loc.ID] = fc
				mu.Unlock()
			}(loc)
		}
		wg.Wait()

		if end < len(locations) && policy.Delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-o.clock.After(policy.Delay):
			}
		}
	}
}

// forecastLocation resolves the region route, fetches both sources, and
// combines them per the route's strategy. Returns false when no source
// produced usable data.
func (o *Orchestrator) forecastLocation(ctx context.Context, loc models.Location) (models.LocationForecast, bool) {
	route := forecast.SelectSources(loc.Region)

	var (
		primary, fallback         *ingest.Series
		primaryName, fallbackName string
	)
	if route.Strategy == forecast.StrategyEnsemble {
		// Ensemble members are fetched in parallel; the merge waits for
		// both to settle, so a slow member never blocks the other.
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			primary, primaryName = o.fetchSource(ctx, loc, route.Primary)
		}()
		go func() {
			defer wg.Done()
			fallback, fallbackName = o.fetchSource(ctx, loc, route.Fallback)
		}()
		wg.Wait()
	} else {
		// Splice pairs fetch sequentially: short-range first, then the
		// long-range extension.
		primary, primaryName = o.fetchSource(ctx, loc, route.Primary)
		fallback, fallbackName = o.fetchSource(ctx, loc, route.Fallback)
	}

	var daily []models.ForecastDay
	switch route.Strategy {
	case forecast.StrategyEnsemble:
		var sources []forecast.SourceSeries
		if primary != nil && len(primary.Days) > 0 {
			sources = append(sources, forecast.SourceSeries{Name: primaryName, Days: primary.Days})
		}
		if fallback != nil && len(fallback.Days) > 0 {
			sources = append(sources, forecast.SourceSeries{Name: fallbackName, Days: fallback.Days})
		}
		if len(sources) == 0 {
			o.logger.Warn("no ensemble members available", "location", loc.ID)
			return models.LocationForecast{}, false
		}
		daily = forecast.MergeEnsemble(sources, loc.ElevationFt, o.cfg.StormProbThreshold)

	default: // splice
		var short, long []models.ForecastDay
		if primary != nil {
			for _, raw := range primary.Days {
				short = append(short, forecast.ReconcileDay(raw, loc.ElevationFt, primaryName))
			}
		}
		if fallback != nil {
			for _, raw := range fallback.Days {
				long = append(long, forecast.ReconcileDay(raw, loc.ElevationFt, fallbackName))
			}
		}
		if len(short) == 0 && len(long) == 0 {
			o.logger.Warn("no splice components available", "location", loc.ID)
			return models.LocationForecast{}, false
		}
		if len(short) == 0 {
			// Degraded: the long-range series carries the whole window.
			o.logger.Warn("short-range source unavailable, long-range only", "location", loc.ID, "source", primaryName)
		}
		daily = forecast.SpliceHorizons(short, long)
	}

	current := pickCurrent(primary, fallback)
	fc := forecast.BuildLocationForecast(loc, daily, current, o.cfg.PowderThresholdIn, o.clock.Now())
	return fc, true
}

// fetchSource runs one adapter with its own timeout. Any failure, timeouts
// included, comes back as nil: the caller's strategy decides what a missing
// component means.
func (o *Orchestrator) fetchSource(ctx context.Context, loc models.Location, ref forecast.SourceRef) (*ingest.Series, string) {
	if ref.Provider == "" {
		return nil, ""
	}

	adapter, ok := o.registry.resolve(ref)
	if !ok {
		o.logger.Error("no adapter registered for source", "provider", ref.Provider, "model", ref.Model)
		return nil, ref.Provider
	}

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.AdapterTimeout)
	defer cancel()

	series, err := adapter.Fetch(callCtx, loc)
	if err != nil {
		kind := ingest.ErrorKindOf(err)
		if kind == "" {
			kind = ingest.ErrorTransient
		}
		metrics.AdapterFailures.WithLabelValues(adapter.Name(), string(kind)).Inc()
		o.logger.Warn("adapter fetch failed", "location", loc.ID, "adapter", adapter.Name(), "kind", kind, "error", err)
		o.recordFetch(adapter.Name(), loc.ID, false, string(kind), err.Error())
		return nil, adapter.Name()
	}
	o.recordFetch(adapter.Name(), loc.ID, true, "", "")
	return &series, adapter.Name()
}

func (o *Orchestrator) recordFetch(provider, locationID string, ok bool, kind, errMsg string) {
	if o.fetchLog == nil {
		return
	}
	if err := o.fetchLog.LogFetch(provider, locationID, ok, kind, errMsg); err != nil {
		o.logger.Warn("fetch log write failed", "error", err)
	}
}

func pickCurrent(series ...*ingest.Series) *models.CurrentConditions {
	for _, s := range series {
		if s != nil && s.Current != nil {
			return s.Current
		}
	}
	return nil
}
