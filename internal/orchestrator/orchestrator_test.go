package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/powdercast/powdercast/internal/forecast"
	"github.com/powdercast/powdercast/internal/ingest"
	"github.com/powdercast/powdercast/internal/models"
)

type fakeAdapter struct {
	name   string
	mu     sync.Mutex
	calls  []string
	series map[string]ingest.Series // keyed by location ID; missing means failure
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(ctx context.Context, loc models.Location) (ingest.Series, error) {
	f.mu.Lock()
	f.calls = append(f.calls, loc.ID)
	f.mu.Unlock()

	s, ok := f.series[loc.ID]
	if !ok {
		return ingest.Series{}, &ingest.ProviderError{
			Provider: f.name,
			Kind:     ingest.ErrorTransient,
			Err:      errors.New("rate limited: status 429"),
		}
	}
	return s, nil
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func rawDays(start time.Time, n int, snow float64) []models.RawDay {
	days := make([]models.RawDay, 0, n)
	for i := 0; i < n; i++ {
		s := snow
		days = append(days, models.RawDay{
			Date:       start.AddDate(0, 0, i),
			SnowfallIn: &s,
		})
	}
	return days
}

func usLocation(id string) models.Location {
	return models.Location{ID: id, Name: id, Region: models.RegionUS, ElevationFt: 9000}
}

func caLocation(id string) models.Location {
	return models.Location{ID: id, Name: id, Region: models.RegionCanada, ElevationFt: 6000}
}

func TestRunPartialFailure(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	nws := &fakeAdapter{name: "nws", series: map[string]ingest.Series{
		"alta": {Days: rawDays(start, 7, 2)},
	}}
	gfs := &fakeAdapter{name: "openmeteo/gfs_seamless", series: map[string]ingest.Series{
		"alta": {Days: rawDays(start, 16, 1)},
	}}
	o := New(NewRegistry(nws, gfs), Config{}, clockwork.NewFakeClock())

	results := o.Run(context.Background(), []models.Location{usLocation("alta"), usLocation("doomed")})

	if _, ok := results["doomed"]; ok {
		t.Error("location with every adapter failing must be absent, not zeroed")
	}
	fc, ok := results["alta"]
	if !ok {
		t.Fatal("alta missing from results")
	}
	if fc.SnowTotals.Next48H != 4 {
		t.Errorf("Next48H = %v, want 4", fc.SnowTotals.Next48H)
	}
	if len(fc.Daily) != 15 {
		t.Errorf("len(Daily) = %d, want 15", len(fc.Daily))
	}
}

func TestRunSpliceRoute(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	nws := &fakeAdapter{name: "nws", series: map[string]ingest.Series{
		"alta": {Days: rawDays(start, 7, 3)},
	}}
	gfs := &fakeAdapter{name: "openmeteo/gfs_seamless", series: map[string]ingest.Series{
		"alta": {Days: rawDays(start, 16, 1)},
	}}
	o := New(NewRegistry(nws, gfs), Config{}, clockwork.NewFakeClock())

	results := o.Run(context.Background(), []models.Location{usLocation("alta")})

	fc := results["alta"]
	for i := 0; i < 7; i++ {
		if fc.Daily[i].Source != "nws" {
			t.Errorf("day %d source = %q, want nws", i+1, fc.Daily[i].Source)
		}
		if fc.Daily[i].SnowfallIn != 3 {
			t.Errorf("day %d snow = %v, want 3", i+1, fc.Daily[i].SnowfallIn)
		}
	}
	for i := 7; i < len(fc.Daily); i++ {
		if fc.Daily[i].Source != forecast.SourceExtended {
			t.Errorf("day %d source = %q, want %q", i+1, fc.Daily[i].Source, forecast.SourceExtended)
		}
	}
}

func TestRunSpliceDegradedToLongRange(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	nws := &fakeAdapter{name: "nws"} // fails every location
	gfs := &fakeAdapter{name: "openmeteo/gfs_seamless", series: map[string]ingest.Series{
		"alta": {Days: rawDays(start, 16, 1)},
	}}
	o := New(NewRegistry(nws, gfs), Config{}, clockwork.NewFakeClock())

	results := o.Run(context.Background(), []models.Location{usLocation("alta")})

	fc, ok := results["alta"]
	if !ok {
		t.Fatal("long-range-only forecast should still be produced")
	}
	if len(fc.Daily) != 15 {
		t.Fatalf("len(Daily) = %d, want 15", len(fc.Daily))
	}
	for _, d := range fc.Daily {
		if d.Source != forecast.SourceExtended {
			t.Errorf("source = %q, want %q", d.Source, forecast.SourceExtended)
		}
	}
}

func TestRunEnsembleRoute(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	gem := &fakeAdapter{name: "openmeteo/gem_seamless", series: map[string]ingest.Series{
		"whistler": {Days: rawDays(start, 16, 4)},
	}}
	gfs := &fakeAdapter{name: "openmeteo/gfs_seamless", series: map[string]ingest.Series{
		"whistler": {Days: rawDays(start, 16, 10)},
	}}
	o := New(NewRegistry(gem, gfs), Config{}, clockwork.NewFakeClock())

	results := o.Run(context.Background(), []models.Location{caLocation("whistler")})

	fc, ok := results["whistler"]
	if !ok {
		t.Fatal("whistler missing from results")
	}
	d := fc.Daily[0]
	if d.Source != "ensemble" {
		t.Errorf("Source = %q, want ensemble", d.Source)
	}
	if d.SnowfallIn != 8.5 { // calm regime, half mean half max of 4 and 10
		t.Errorf("SnowfallIn = %v, want 8.5", d.SnowfallIn)
	}
	if d.SourceAgreement != "2/2" {
		t.Errorf("SourceAgreement = %q, want 2/2", d.SourceAgreement)
	}
}

func TestRunEnsembleSingleMember(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	gem := &fakeAdapter{name: "openmeteo/gem_seamless"} // fails
	gfs := &fakeAdapter{name: "openmeteo/gfs_seamless", series: map[string]ingest.Series{
		"whistler": {Days: rawDays(start, 16, 5)},
	}}
	o := New(NewRegistry(gem, gfs), Config{}, clockwork.NewFakeClock())

	results := o.Run(context.Background(), []models.Location{caLocation("whistler")})

	fc, ok := results["whistler"]
	if !ok {
		t.Fatal("single surviving member should still yield a forecast")
	}
	d := fc.Daily[0]
	if d.SnowfallIn != 5 {
		t.Errorf("SnowfallIn = %v, want 5", d.SnowfallIn)
	}
	if d.Confidence != models.ConfidenceLow {
		t.Errorf("Confidence = %q, want low with one member", d.Confidence)
	}
}

func TestRunBatchPacing(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	gem := &fakeAdapter{name: "openmeteo/gem_seamless", series: map[string]ingest.Series{
		"a": {Days: rawDays(start, 3, 1)},
		"b": {Days: rawDays(start, 3, 1)},
	}}
	gfs := &fakeAdapter{name: "openmeteo/gfs_seamless", series: map[string]ingest.Series{
		"a": {Days: rawDays(start, 3, 1)},
		"b": {Days: rawDays(start, 3, 1)},
	}}

	fc := clockwork.NewFakeClock()
	delay := 500 * time.Millisecond
	cfg := Config{Policies: map[forecast.RateClass]BatchPolicy{
		forecast.RateClassGlobal:  {Size: 1, Delay: delay},
		forecast.RateClassLimited: {Size: 1, Delay: delay},
	}}
	o := New(NewRegistry(gem, gfs), cfg, fc)

	done := make(chan map[string]models.LocationForecast, 1)
	go func() {
		done <- o.Run(context.Background(), []models.Location{caLocation("a"), caLocation("b")})
	}()

	// First batch completes, then Run parks on the inter-batch timer.
	fc.BlockUntil(1)
	if got := gem.callCount(); got != 1 {
		t.Errorf("calls before advancing clock = %d, want 1", got)
	}
	fc.Advance(delay)

	results := <-done
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if gem.callCount() != 2 || gfs.callCount() != 2 {
		t.Errorf("call counts = %d/%d, want 2/2", gem.callCount(), gfs.callCount())
	}
}

func TestRunCancelledBetweenBatches(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	gem := &fakeAdapter{name: "openmeteo/gem_seamless", series: map[string]ingest.Series{
		"a": {Days: rawDays(start, 3, 1)},
		"b": {Days: rawDays(start, 3, 1)},
	}}
	gfs := &fakeAdapter{name: "openmeteo/gfs_seamless", series: map[string]ingest.Series{
		"a": {Days: rawDays(start, 3, 1)},
		"b": {Days: rawDays(start, 3, 1)},
	}}

	fc := clockwork.NewFakeClock()
	cfg := Config{Policies: map[forecast.RateClass]BatchPolicy{
		forecast.RateClassGlobal:  {Size: 1, Delay: time.Second},
		forecast.RateClassLimited: {Size: 1, Delay: time.Second},
	}}
	o := New(NewRegistry(gem, gfs), cfg, fc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan map[string]models.LocationForecast, 1)
	go func() {
		done <- o.Run(ctx, []models.Location{caLocation("a"), caLocation("b")})
	}()

	fc.BlockUntil(1)
	cancel()

	results := <-done
	if len(results) != 1 {
		t.Errorf("len(results) = %d, want 1 (second batch cancelled)", len(results))
	}
}

type memFetchLog struct {
	mu      sync.Mutex
	entries []string
}

func (m *memFetchLog) LogFetch(provider, locationID string, ok bool, errorKind, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := "ok"
	if !ok {
		status = errorKind
	}
	m.entries = append(m.entries, provider+"/"+locationID+"/"+status)
	return nil
}

func TestRunRecordsFetchOutcomes(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	nws := &fakeAdapter{name: "nws"} // fails
	gfs := &fakeAdapter{name: "openmeteo/gfs_seamless", series: map[string]ingest.Series{
		"alta": {Days: rawDays(start, 16, 1)},
	}}
	o := New(NewRegistry(nws, gfs), Config{}, clockwork.NewFakeClock())
	log := &memFetchLog{}
	o.SetFetchLog(log)

	o.Run(context.Background(), []models.Location{usLocation("alta")})

	want := map[string]bool{
		"nws/alta/transient":             true,
		"openmeteo/gfs_seamless/alta/ok": true,
	}
	if len(log.entries) != 2 {
		t.Fatalf("entries = %v, want 2", log.entries)
	}
	for _, e := range log.entries {
		if !want[e] {
			t.Errorf("unexpected entry %q", e)
		}
	}
}

func TestRegistryResolve(t *testing.T) {
	nws := &fakeAdapter{name: "nws"}
	gfs := &fakeAdapter{name: "openmeteo/gfs_seamless"}
	r := NewRegistry(nws, gfs)

	if a, ok := r.resolve(forecast.SourceRef{Provider: "nws"}); !ok || a.Name() != "nws" {
		t.Errorf("resolve nws = %v, %v", a, ok)
	}
	if a, ok := r.resolve(forecast.SourceRef{Provider: "openmeteo", Model: "gfs_seamless"}); !ok || a.Name() != "openmeteo/gfs_seamless" {
		t.Errorf("resolve gfs = %v, %v", a, ok)
	}
	if _, ok := r.resolve(forecast.SourceRef{Provider: "openmeteo", Model: "icon_seamless"}); ok {
		t.Error("unregistered model should not resolve")
	}
}
