package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/clearskies-io/clearskies/internal/airquality"
	"github.com/clearskies-io/clearskies/internal/assessment"
)

// Scheduler periodically observes air quality for tracked locations so the
// forecast predictor accumulates history.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *assessment.Service
	locations []airquality.Location
	interval  time.Duration
	logger    *zap.SugaredLogger
}

// New creates a new Scheduler.
func New(locations []airquality.Location, interval time.Duration, service *assessment.Service, logger *zap.SugaredLogger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		service:   service,
		locations: locations,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic observation job and starts the underlying
// scheduler.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		s.logger.Info("scheduler: no tracked locations configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		s.logger.Debug("scheduler: running observation job")

		var wg sync.WaitGroup
		for _, loc := range s.locations {
			loc := loc
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := s.service.Observe(ctx, loc); err != nil {
					s.logger.Warnw("scheduler: observation failed",
						"lat", loc.Lat, "lon", loc.Lon, "err", err)
				}
			}()
		}
		wg.Wait()
		s.logger.Debug("scheduler: completed observation job")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
