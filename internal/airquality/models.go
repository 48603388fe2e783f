package airquality

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput is returned when a concentration or unit cannot be
	// scored. Caller-correctable; not retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientData is returned when no usable readings remain after
	// staleness filtering.
	ErrInsufficientData = errors.New("insufficient data")
)

// Pollutant identifies a measured air pollutant.
type Pollutant string

const (
	NO2  Pollutant = "no2"
	O3   Pollutant = "o3"
	HCHO Pollutant = "hcho"
	PM25 Pollutant = "pm25"
	PM10 Pollutant = "pm10"
	SO2  Pollutant = "so2"
	CO   Pollutant = "co"
)

// pollutantOrder fixes the tie-break order when two pollutants share the
// overall maximum index.
var pollutantOrder = []Pollutant{NO2, O3, HCHO, PM25, PM10, SO2, CO}

// Unit is the measurement unit a concentration is expressed in.
type Unit string

const (
	UnitUGM3         Unit = "ug/m3"
	UnitPPB          Unit = "ppb"
	UnitPPM          Unit = "ppm"
	UnitMoleculesCm2 Unit = "molec/cm2" // satellite vertical column density
)

// SourceType identifies the class of data source a reading came from.
type SourceType string

const (
	SourceSatellite SourceType = "satellite"
	SourceGround    SourceType = "ground"
	SourceWeather   SourceType = "weather"
)

// Quality describes how directly a reading was measured.
type Quality string

const (
	QualityMeasured     Quality = "measured"
	QualityInterpolated Quality = "interpolated"
	QualityEstimated    Quality = "estimated"
)

// Location is a geographic point.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Cell returns a canonical string key for the spatial cell this location
// falls into at the given decimal resolution. Nearby points within the same
// cell share the key.
func (l Location) Cell(decimals int) string {
	return fmt.Sprintf("%.*f:%.*f", decimals, l.Lat, decimals, l.Lon)
}

// Reading is one normalized pollutant measurement. Immutable once created.
type Reading struct {
	Pollutant     Pollutant  `json:"pollutant"`
	Concentration float64    `json:"concentration"`
	Unit          Unit       `json:"unit"`
	Timestamp     time.Time  `json:"timestamp"` // always UTC
	Source        SourceType `json:"source"`
	Location      Location   `json:"location"`
	Quality       Quality    `json:"quality"`
}

// Category is an EPA AQI category.
type Category string

const (
	CategoryGood               Category = "good"
	CategoryModerate           Category = "moderate"
	CategoryUnhealthySensitive Category = "unhealthy-sensitive"
	CategoryUnhealthy          Category = "unhealthy"
	CategoryVeryUnhealthy      Category = "very-unhealthy"
	CategoryHazardous          Category = "hazardous"
)

// CategoryForIndex maps an AQI index to its EPA category.
func CategoryForIndex(index int) Category {
	switch {
	case index <= 50:
		return CategoryGood
	case index <= 100:
		return CategoryModerate
	case index <= 150:
		return CategoryUnhealthySensitive
	case index <= 200:
		return CategoryUnhealthy
	case index <= 300:
		return CategoryVeryUnhealthy
	default:
		return CategoryHazardous
	}
}

// AQIResult is a standardized index for a single pollutant.
type AQIResult struct {
	Pollutant Pollutant `json:"pollutant"`
	Index     int       `json:"index"`
	Category  Category  `json:"category"`
	Dominant  bool      `json:"dominant"`
}

// FusedConditions is the authoritative current-conditions record for a
// location, reconciled across sources.
type FusedConditions struct {
	Location        Location                `json:"location"`
	Timestamp       time.Time               `json:"timestamp"`
	PerPollutant    map[Pollutant]AQIResult `json:"perPollutant"`
	OverallAQI      int                     `json:"overallAqi"`
	OverallCategory Category                `json:"overallCategory"`

	// SourceAgreement is nil when no pollutant was reported by more than
	// one source.
	SourceAgreement *float64 `json:"sourceAgreement,omitempty"`
}

// Observation is a single historical AQI data point for a spatial cell.
type Observation struct {
	Timestamp time.Time `json:"timestamp"`
	AQI       int       `json:"aqi"`
}

// WeatherSnapshot is the weather context consumed by the breath score
// engine. Produced by the weather source collaborator.
type WeatherSnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperatureC"`
	Humidity    float64   `json:"humidityPercent"`
	WindSpeed   float64   `json:"windSpeedMs"`
	Pressure    float64   `json:"pressureHpa"`
	Conditions  string    `json:"conditions,omitempty"`
}
