package forecast

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/clearskies-io/clearskies/internal/airquality"
)

func hourlyHistory(aqis ...int) []airquality.Observation {
	t0 := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	history := make([]airquality.Observation, len(aqis))
	for i, aqi := range aqis {
		history[i] = airquality.Observation{Timestamp: t0.Add(time.Duration(i) * time.Hour), AQI: aqi}
	}
	return history
}

func TestForecastRisingTrend(t *testing.T) {
	p := New(DefaultConfig())

	result, err := p.Forecast(hourlyHistory(50, 60, 70), 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Slope <= 0 {
		t.Errorf("slope = %g, want positive for a rising series", result.Slope)
	}
	if result.Confidence == ConfidenceLow {
		t.Errorf("confidence = %s, want better than low for a perfect line", result.Confidence)
	}
	if result.Trend != TrendWorsening {
		t.Errorf("trend = %s, want %s", result.Trend, TrendWorsening)
	}
	if result.DataPoints != 3 {
		t.Errorf("dataPoints = %d, want 3", result.DataPoints)
	}

	if len(result.Points) != 6 {
		t.Fatalf("got %d points, want 6", len(result.Points))
	}
	// A perfectly linear 10 AQI/hour series continues from 70.
	for i, point := range result.Points {
		if point.HourOffset != i+1 {
			t.Errorf("point %d has offset %d, want %d", i, point.HourOffset, i+1)
		}
		want := 70 + 10*(i+1)
		if point.PredictedAQI != want {
			t.Errorf("point %d predicted %d, want %d", i, point.PredictedAQI, want)
		}
	}
}

func TestForecastInsufficientHistory(t *testing.T) {
	p := New(DefaultConfig())

	for _, history := range [][]airquality.Observation{nil, hourlyHistory(80)} {
		_, err := p.Forecast(history, 24)
		if !errors.Is(err, ErrInsufficientHistory) {
			t.Errorf("err = %v for %d observations, want ErrInsufficientHistory", err, len(history))
		}
	}
}

func TestForecastFlatSeries(t *testing.T) {
	p := New(DefaultConfig())

	result, err := p.Forecast(hourlyHistory(42, 42, 42, 42), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Slope != 0 {
		t.Errorf("slope = %g, want 0 for a flat series", result.Slope)
	}
	if result.Confidence != ConfidenceLow {
		t.Errorf("confidence = %s, want %s", result.Confidence, ConfidenceLow)
	}
	if result.Trend != TrendStable {
		t.Errorf("trend = %s, want %s", result.Trend, TrendStable)
	}
	for _, point := range result.Points {
		if point.PredictedAQI != 42 {
			t.Errorf("offset %d predicted %d, want 42", point.HourOffset, point.PredictedAQI)
		}
	}
}

// TestForecastDuplicateTimestamps verifies that observations sharing one
// instant degrade to a flat mean line instead of propagating NaN.
func TestForecastDuplicateTimestamps(t *testing.T) {
	p := New(DefaultConfig())

	t0 := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	history := []airquality.Observation{
		{Timestamp: t0, AQI: 50},
		{Timestamp: t0, AQI: 70},
	}

	result, err := p.Forecast(history, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Slope != 0 {
		t.Errorf("slope = %g, want 0 for a degenerate fit", result.Slope)
	}
	if math.IsNaN(result.Intercept) {
		t.Error("intercept is NaN")
	}
	if result.Confidence != ConfidenceLow {
		t.Errorf("confidence = %s, want %s", result.Confidence, ConfidenceLow)
	}
	for _, point := range result.Points {
		if point.PredictedAQI < 0 || point.PredictedAQI > 500 {
			t.Errorf("offset %d predicted %d, want within [0, 500]", point.HourOffset, point.PredictedAQI)
		}
		if point.PredictedAQI != 60 {
			t.Errorf("offset %d predicted %d, want the mean 60", point.HourOffset, point.PredictedAQI)
		}
	}
}

func TestForecastClampsPredictions(t *testing.T) {
	p := New(DefaultConfig())

	// Steeply falling series extrapolates below zero.
	result, err := p.Forecast(hourlyHistory(200, 100, 0), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, point := range result.Points {
		if point.PredictedAQI < 0 {
			t.Errorf("offset %d predicted %d, want clamped at 0", point.HourOffset, point.PredictedAQI)
		}
	}

	// Steeply rising series extrapolates past the scale ceiling.
	result, err = p.Forecast(hourlyHistory(300, 400, 490), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := result.Points[len(result.Points)-1]
	if last.PredictedAQI != 500 {
		t.Errorf("offset %d predicted %d, want clamped at 500", last.HourOffset, last.PredictedAQI)
	}
}

func TestForecastHorizonCapped(t *testing.T) {
	p := New(DefaultConfig())

	for _, hours := range []int{0, -3, 100} {
		result, err := p.Forecast(hourlyHistory(50, 55), hours)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Points) != MaxHorizonHours {
			t.Errorf("hours=%d produced %d points, want %d", hours, len(result.Points), MaxHorizonHours)
		}
	}
}

func TestForecastIrregularSpacing(t *testing.T) {
	p := New(DefaultConfig())

	t0 := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	history := []airquality.Observation{
		{Timestamp: t0, AQI: 100},
		{Timestamp: t0.Add(30 * time.Minute), AQI: 105},
		{Timestamp: t0.Add(3 * time.Hour), AQI: 130},
	}

	result, err := p.Forecast(history, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 10 AQI/hour through unevenly spaced samples.
	if math.Abs(result.Slope-10) > 0.5 {
		t.Errorf("slope = %g, want close to 10", result.Slope)
	}
}
