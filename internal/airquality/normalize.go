package airquality

import (
	"strings"
	"time"
)

// Empirical conversion for satellite vertical column densities:
// 1e15 molecules/cm^2 of NO2 corresponds to roughly 20 ppb at the surface.
const ppbPerColumnUnit = 20.0 / 1e15

// SatelliteRetrieval is one raw column-density retrieval from the satellite
// source collaborator.
type SatelliteRetrieval struct {
	Pollutant     Pollutant
	ColumnDensity float64 // molecules/cm^2
	Timestamp     time.Time
	Quality       Quality
}

// GroundMeasurement is one raw measurement from the ground sensor network
// collaborator (OpenAQ-style parameter/value/unit triples).
type GroundMeasurement struct {
	Parameter string
	Value     float64
	Unit      string
	Timestamp time.Time
}

// NormalizeSatellite converts raw satellite retrievals into Readings,
// translating column densities to surface-level ppb estimates.
func NormalizeSatellite(retrievals []SatelliteRetrieval, loc Location) []Reading {
	readings := make([]Reading, 0, len(retrievals))
	for _, r := range retrievals {
		quality := r.Quality
		if quality == "" {
			quality = QualityEstimated
		}
		readings = append(readings, Reading{
			Pollutant:     r.Pollutant,
			Concentration: r.ColumnDensity * ppbPerColumnUnit,
			Unit:          UnitPPB,
			Timestamp:     r.Timestamp.UTC(),
			Source:        SourceSatellite,
			Location:      loc,
			Quality:       quality,
		})
	}
	return Dedupe(readings)
}

// NormalizeGround converts raw ground-station measurements into Readings.
// Measurements with unrecognized parameters or units are dropped.
func NormalizeGround(measurements []GroundMeasurement, loc Location) []Reading {
	readings := make([]Reading, 0, len(measurements))
	for _, m := range measurements {
		pollutant, ok := parseParameter(m.Parameter)
		if !ok {
			continue
		}
		unit, ok := parseUnit(m.Unit)
		if !ok {
			continue
		}
		readings = append(readings, Reading{
			Pollutant:     pollutant,
			Concentration: m.Value,
			Unit:          unit,
			Timestamp:     m.Timestamp.UTC(),
			Source:        SourceGround,
			Location:      loc,
			Quality:       QualityMeasured,
		})
	}
	return Dedupe(readings)
}

// Dedupe resolves duplicate readings for the same (pollutant, source,
// location): the most recent timestamp wins.
func Dedupe(readings []Reading) []Reading {
	type key struct {
		pollutant Pollutant
		source    SourceType
		location  Location
	}

	best := make(map[key]Reading, len(readings))
	order := make([]key, 0, len(readings))

	for _, r := range readings {
		k := key{r.Pollutant, r.Source, r.Location}
		existing, seen := best[k]
		if !seen {
			order = append(order, k)
			best[k] = r
			continue
		}
		if r.Timestamp.After(existing.Timestamp) {
			best[k] = r
		}
	}

	out := make([]Reading, 0, len(best))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

func parseParameter(param string) (Pollutant, bool) {
	switch strings.ToLower(strings.ReplaceAll(param, ".", "")) {
	case "pm25":
		return PM25, true
	case "pm10":
		return PM10, true
	case "no2":
		return NO2, true
	case "o3", "ozone":
		return O3, true
	case "so2":
		return SO2, true
	case "co":
		return CO, true
	case "hcho", "ch2o":
		return HCHO, true
	default:
		return "", false
	}
}

func parseUnit(unit string) (Unit, bool) {
	switch strings.ToLower(unit) {
	case "µg/m³", "ug/m3", "ugm3":
		return UnitUGM3, true
	case "ppb":
		return UnitPPB, true
	case "ppm":
		return UnitPPM, true
	case "molec/cm2", "molecules/cm2", "molecules/cm²":
		return UnitMoleculesCm2, true
	default:
		return "", false
	}
}
