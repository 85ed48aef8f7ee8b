package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/powdercast/powdercast/internal/models"
)

// fetchLogRetention bounds the provider fetch log.
const fetchLogRetention = 7 * 24 * time.Hour

// Runner produces a full-catalog result map.
type Runner interface {
	Run(ctx context.Context, locations []models.Location) map[string]models.LocationForecast
}

// Saver persists one run's results.
type Saver interface {
	SaveRun(results map[string]models.LocationForecast) error
	PruneFetchLog(olderThan time.Time) (int64, error)
}

// Scheduler refreshes the whole catalog on a fixed interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	saver     Saver
	locations []models.Location
	interval  time.Duration
	logger    *slog.Logger
}

func New(runner Runner, saver Saver, locations []models.Location, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    runner,
		saver:     saver,
		locations: locations,
		interval:  interval,
		logger:    slog.Default().With("component", "scheduler"),
	}
}

// RunOnce executes a single full-catalog refresh and persists the results.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	results := s.runner.Run(ctx, s.locations)
	if err := s.saver.SaveRun(results); err != nil {
		return err
	}
	s.logger.Info("refresh complete", "locations", len(s.locations), "forecasted", len(results))

	if pruned, err := s.saver.PruneFetchLog(time.Now().UTC().Add(-fetchLogRetention)); err != nil {
		s.logger.Warn("fetch log prune failed", "error", err)
	} else if pruned > 0 {
		s.logger.Debug("fetch log pruned", "rows", pruned)
	}
	return nil
}

// Start schedules periodic refreshes, running one immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.locations) == 0 {
		s.logger.Info("no locations configured, nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		if err := s.RunOnce(ctx); err != nil {
			s.logger.Error("scheduled refresh failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop halts future refreshes. In-flight runs are not interrupted.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
