// Package forecast fits a linear trend to recent AQI observations and
// extrapolates a short-horizon hourly trajectory.
package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/clearskies-io/clearskies/internal/airquality"
)

// ErrInsufficientHistory is returned when fewer than two observations are
// available; a trend cannot be fitted.
var ErrInsufficientHistory = errors.New("insufficient history")

// MaxHorizonHours bounds the forecast length.
const MaxHorizonHours = 24

// Confidence grades how well the fitted trend explains the observations.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Trend classifies the direction of the fitted slope.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendWorsening Trend = "worsening"
)

// Point is one hourly forecast value.
type Point struct {
	HourOffset   int        `json:"hourOffset"`
	PredictedAQI int        `json:"predictedAqi"`
	Confidence   Confidence `json:"confidence"`
}

// Result is a fitted trend plus its extrapolated trajectory.
type Result struct {
	Points     []Point    `json:"points"`
	Slope      float64    `json:"slope"` // AQI per hour
	Intercept  float64    `json:"intercept"`
	RSquared   float64    `json:"rSquared"`
	Confidence Confidence `json:"confidence"`
	Trend      Trend      `json:"trend"`
	DataPoints int        `json:"dataPoints"`
}

// Config carries the predictor's tunable thresholds.
type Config struct {
	// HighR2 and MediumR2 are the coefficient-of-determination cutoffs for
	// confidence grading.
	HighR2   float64
	MediumR2 float64

	// StableSlope is the absolute slope (AQI/hour) below which the trend
	// is considered flat.
	StableSlope float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{HighR2: 0.6, MediumR2: 0.3, StableSlope: 0.5}
}

// Predictor extrapolates AQI trajectories from historical observations.
type Predictor struct {
	cfg Config
}

// New creates a Predictor.
func New(cfg Config) *Predictor {
	if cfg.HighR2 == 0 {
		cfg.HighR2 = 0.6
	}
	if cfg.MediumR2 == 0 {
		cfg.MediumR2 = 0.3
	}
	if cfg.StableSlope == 0 {
		cfg.StableSlope = 0.5
	}
	return &Predictor{cfg: cfg}
}

// Forecast fits ordinary least squares over the historical window and
// extrapolates one point per hour up to horizonHours (capped at 24).
// Predicted values are clamped to [0, 500].
func (p *Predictor) Forecast(history []airquality.Observation, horizonHours int) (Result, error) {
	if len(history) < 2 {
		return Result{}, fmt.Errorf("%w: need at least 2 observations, have %d", ErrInsufficientHistory, len(history))
	}
	if horizonHours <= 0 || horizonHours > MaxHorizonHours {
		horizonHours = MaxHorizonHours
	}

	// Hours elapsed since the first observation form the regressor.
	t0 := history[0].Timestamp
	xs := make([]float64, len(history))
	ys := make([]float64, len(history))
	for i, obs := range history {
		xs[i] = obs.Timestamp.Sub(t0).Hours()
		ys[i] = float64(obs.AQI)
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)

	// Identical timestamps leave the regressor with zero variance and the
	// fit degenerates to NaN. Fall back to a flat line at the mean.
	if !isFinite(intercept) || !isFinite(slope) {
		intercept = stat.Mean(ys, nil)
		slope = 0
	}

	estimates := make([]float64, len(xs))
	for i, x := range xs {
		estimates[i] = intercept + slope*x
	}
	r2 := stat.RSquaredFrom(estimates, ys, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		// Flat data carries no predictive signal.
		r2 = 0
		slope = 0
	}

	confidence := p.confidenceFor(r2)

	lastX := xs[len(xs)-1]
	points := make([]Point, 0, horizonHours)
	for h := 1; h <= horizonHours; h++ {
		predicted := intercept + slope*(lastX+float64(h))
		points = append(points, Point{
			HourOffset:   h,
			PredictedAQI: clampAQI(predicted),
			Confidence:   confidence,
		})
	}

	return Result{
		Points:     points,
		Slope:      slope,
		Intercept:  intercept,
		RSquared:   r2,
		Confidence: confidence,
		Trend:      p.trendFor(slope),
		DataPoints: len(history),
	}, nil
}

func (p *Predictor) confidenceFor(r2 float64) Confidence {
	switch {
	case r2 >= p.cfg.HighR2:
		return ConfidenceHigh
	case r2 >= p.cfg.MediumR2:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func (p *Predictor) trendFor(slope float64) Trend {
	switch {
	case slope > p.cfg.StableSlope:
		return TrendWorsening
	case slope < -p.cfg.StableSlope:
		return TrendImproving
	default:
		return TrendStable
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clampAQI(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 500 {
		return 500
	}
	return int(math.Round(v))
}
