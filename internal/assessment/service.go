// Package assessment orchestrates the air-quality pipeline: source fan-out,
// fusion, caching, forecasting, and breath scoring.
package assessment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clearskies-io/clearskies/internal/airquality"
	"github.com/clearskies-io/clearskies/internal/breath"
	"github.com/clearskies-io/clearskies/internal/cache"
	"github.com/clearskies-io/clearskies/internal/forecast"
)

// ReadingSource abstracts a pollutant data source (satellite retrieval
// service, ground sensor network). Implementations live in sources/ or in
// tests as synthetic fixtures.
type ReadingSource interface {
	Name() string
	Source() airquality.SourceType
	FetchReadings(ctx context.Context, loc airquality.Location) ([]airquality.Reading, error)
}

// WeatherSource abstracts the weather context provider.
type WeatherSource interface {
	Name() string
	FetchWeather(ctx context.Context, loc airquality.Location) (*airquality.WeatherSnapshot, error)
}

// History is the contract the observation store must satisfy.
type History interface {
	Append(cell string, obs airquality.Observation)
	Latest(cell string) (airquality.Observation, error)
	All(cell string) ([]airquality.Observation, error)
	Range(cell string, from, to time.Time) ([]airquality.Observation, error)
}

// Config carries the service's cache and resolution settings.
type Config struct {
	ConditionsTTL time.Duration // cache TTL for fused conditions
	ForecastTTL   time.Duration // cache TTL for forecasts
	Resolution    int           // spatial cell resolution, decimal places
}

// Dashboard bundles everything a client needs for one location.
type Dashboard struct {
	Location            airquality.Location         `json:"location"`
	GeneratedAt         time.Time                   `json:"generatedAt"`
	Conditions          airquality.FusedConditions  `json:"conditions"`
	Weather             *airquality.WeatherSnapshot `json:"weather,omitempty"`
	Forecast            *forecast.Result            `json:"forecast,omitempty"`
	ForecastUnavailable bool                        `json:"forecastUnavailable,omitempty"`
	BreathScore         breath.Score                `json:"breathScore"`
	Alerts              []breath.Alert              `json:"alerts,omitempty"`
}

// Service wires the engine components together. Safe for concurrent use;
// the only shared mutable state is the cache and the history store.
type Service struct {
	sources   []ReadingSource
	weather   WeatherSource
	fuser     *airquality.Fuser
	predictor *forecast.Predictor
	scorer    *breath.Engine
	cache     *cache.SpatialCache
	history   History
	cfg       Config
	logger    *zap.SugaredLogger
}

// NewService creates a Service. The weather source may be nil; breath
// scoring then runs without weather modifiers.
func NewService(
	srcs []ReadingSource,
	weather WeatherSource,
	fuser *airquality.Fuser,
	predictor *forecast.Predictor,
	scorer *breath.Engine,
	spatialCache *cache.SpatialCache,
	history History,
	cfg Config,
	logger *zap.SugaredLogger,
) *Service {
	if cfg.ConditionsTTL <= 0 {
		cfg.ConditionsTTL = 15 * time.Minute
	}
	if cfg.ForecastTTL <= 0 {
		cfg.ForecastTTL = 30 * time.Minute
	}
	if cfg.Resolution <= 0 {
		cfg.Resolution = 2
	}
	return &Service{
		sources:   srcs,
		weather:   weather,
		fuser:     fuser,
		predictor: predictor,
		scorer:    scorer,
		cache:     spatialCache,
		history:   history,
		cfg:       cfg,
		logger:    logger,
	}
}

// CurrentConditions returns the fused conditions for a location, memoized
// per spatial cell.
func (s *Service) CurrentConditions(ctx context.Context, loc airquality.Location) (airquality.FusedConditions, error) {
	v, err := s.cache.GetOrCompute("conditions", loc.Lat, loc.Lon, nil, s.cfg.ConditionsTTL, func() (any, error) {
		return s.fuseNow(ctx, loc)
	})
	if err != nil {
		return airquality.FusedConditions{}, err
	}
	return v.(airquality.FusedConditions), nil
}

// fuseNow fans out to all reading sources, tolerating partial failure, and
// fuses whatever came back.
func (s *Service) fuseNow(ctx context.Context, loc airquality.Location) (airquality.FusedConditions, error) {
	if len(s.sources) == 0 {
		return airquality.FusedConditions{}, fmt.Errorf("no reading sources configured")
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		readings []airquality.Reading
	)

	for _, src := range s.sources {
		src := src
		wg.Add(1)
		go func() {
			defer wg.Done()

			rs, err := src.FetchReadings(ctx, loc)
			if err != nil {
				// Log and continue; we want partial success when possible.
				s.logger.Warnw("source fetch failed",
					"source", src.Name(), "lat", loc.Lat, "lon", loc.Lon, "err", err)
				return
			}

			mu.Lock()
			readings = append(readings, rs...)
			mu.Unlock()
		}()
	}

	wg.Wait()

	return s.fuser.Fuse(airquality.Dedupe(readings), loc, time.Now().UTC())
}

// Observe fetches and fuses current conditions, then records the overall
// AQI in the history store. Run periodically by the scheduler so that
// forecasting has a series to fit.
func (s *Service) Observe(ctx context.Context, loc airquality.Location) error {
	fused, err := s.fuseNow(ctx, loc)
	if err != nil {
		return err
	}
	s.history.Append(loc.Cell(s.cfg.Resolution), airquality.Observation{
		Timestamp: fused.Timestamp,
		AQI:       fused.OverallAQI,
	})
	return nil
}

// Forecast extrapolates the next horizonHours of AQI for a location from
// the cell's observation history. Memoized per spatial cell and horizon.
func (s *Service) Forecast(ctx context.Context, loc airquality.Location, horizonHours int) (forecast.Result, error) {
	params := map[string]string{"hours": fmt.Sprintf("%d", horizonHours)}
	v, err := s.cache.GetOrCompute("forecast", loc.Lat, loc.Lon, params, s.cfg.ForecastTTL, func() (any, error) {
		history, err := s.history.All(loc.Cell(s.cfg.Resolution))
		if err != nil {
			return nil, fmt.Errorf("%w: no observation history", forecast.ErrInsufficientHistory)
		}
		return s.predictor.Forecast(history, horizonHours)
	})
	if err != nil {
		return forecast.Result{}, err
	}
	return v.(forecast.Result), nil
}

// BreathScore derives the personalized wellness score for a location. The
// forecast trend degrades to stable when history is insufficient, and the
// weather context is optional.
func (s *Service) BreathScore(ctx context.Context, loc airquality.Location, group breath.AgeGroup) (breath.Score, error) {
	fused, err := s.CurrentConditions(ctx, loc)
	if err != nil {
		return breath.Score{}, err
	}

	trend := forecast.TrendStable
	if result, err := s.Forecast(ctx, loc, forecast.MaxHorizonHours); err == nil {
		trend = result.Trend
	}

	weather := s.fetchWeather(ctx, loc)

	return s.scorer.Score(fused, trend, weather, group), nil
}

// Alerts returns the active health advisories for a location.
func (s *Service) Alerts(ctx context.Context, loc airquality.Location) ([]breath.Alert, error) {
	fused, err := s.CurrentConditions(ctx, loc)
	if err != nil {
		return nil, err
	}
	return breath.BuildAlerts(fused, time.Now().UTC()), nil
}

// History returns the retained observations for the location's cell within
// [from, to].
func (s *Service) History(loc airquality.Location, from, to time.Time) ([]airquality.Observation, error) {
	return s.history.Range(loc.Cell(s.cfg.Resolution), from, to)
}

// LatestObservation returns the most recent recorded observation for the
// location's cell.
func (s *Service) LatestObservation(loc airquality.Location) (airquality.Observation, error) {
	return s.history.Latest(loc.Cell(s.cfg.Resolution))
}

// CacheStats exposes cache counters for the health endpoint.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// Dashboard aggregates conditions, weather, forecast, breath score, and
// alerts into a single response. A missing forecast is reported with an
// explicit marker rather than a fabricated flat line.
func (s *Service) Dashboard(ctx context.Context, loc airquality.Location, group breath.AgeGroup) (Dashboard, error) {
	fused, err := s.CurrentConditions(ctx, loc)
	if err != nil {
		return Dashboard{}, err
	}

	dash := Dashboard{
		Location:    loc,
		GeneratedAt: time.Now().UTC(),
		Conditions:  fused,
		Weather:     s.fetchWeather(ctx, loc),
	}

	trend := forecast.TrendStable
	if result, err := s.Forecast(ctx, loc, forecast.MaxHorizonHours); err == nil {
		dash.Forecast = &result
		trend = result.Trend
	} else {
		dash.ForecastUnavailable = true
		s.logger.Debugw("forecast unavailable", "lat", loc.Lat, "lon", loc.Lon, "err", err)
	}

	dash.BreathScore = s.scorer.Score(fused, trend, dash.Weather, group)
	dash.Alerts = breath.BuildAlerts(fused, dash.GeneratedAt)

	return dash, nil
}

func (s *Service) fetchWeather(ctx context.Context, loc airquality.Location) *airquality.WeatherSnapshot {
	if s.weather == nil {
		return nil
	}
	snapshot, err := s.weather.FetchWeather(ctx, loc)
	if err != nil {
		s.logger.Warnw("weather fetch failed", "lat", loc.Lat, "lon", loc.Lon, "err", err)
		return nil
	}
	return snapshot
}
