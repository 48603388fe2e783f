package airquality

import (
	"math"
	"testing"
	"time"
)

func TestNormalizeSatelliteConversion(t *testing.T) {
	now := time.Now().UTC()
	retrievals := []SatelliteRetrieval{
		{Pollutant: NO2, ColumnDensity: 1e15, Timestamp: now, Quality: QualityMeasured},
		{Pollutant: HCHO, ColumnDensity: 2.5e15, Timestamp: now},
	}

	readings := NormalizeSatellite(retrievals, testLoc)
	if len(readings) != 2 {
		t.Fatalf("got %d readings, want 2", len(readings))
	}

	if math.Abs(readings[0].Concentration-20) > 1e-9 {
		t.Errorf("NO2 concentration = %g ppb, want 20", readings[0].Concentration)
	}
	if readings[0].Unit != UnitPPB {
		t.Errorf("unit = %s, want %s", readings[0].Unit, UnitPPB)
	}
	if readings[0].Source != SourceSatellite {
		t.Errorf("source = %s, want %s", readings[0].Source, SourceSatellite)
	}

	if math.Abs(readings[1].Concentration-50) > 1e-9 {
		t.Errorf("HCHO concentration = %g ppb, want 50", readings[1].Concentration)
	}
	// Quality defaults to estimated when the retrieval omits it.
	if readings[1].Quality != QualityEstimated {
		t.Errorf("quality = %s, want %s", readings[1].Quality, QualityEstimated)
	}
}

func TestNormalizeGroundDropsUnknown(t *testing.T) {
	now := time.Now().UTC()
	measurements := []GroundMeasurement{
		{Parameter: "pm25", Value: 12.5, Unit: "µg/m³", Timestamp: now},
		{Parameter: "pm2.5", Value: 13.0, Unit: "ug/m3", Timestamp: now.Add(-time.Minute)},
		{Parameter: "bc", Value: 1.0, Unit: "ug/m3", Timestamp: now},    // unknown parameter
		{Parameter: "no2", Value: 30, Unit: "furlongs", Timestamp: now}, // unknown unit
		{Parameter: "ozone", Value: 41, Unit: "PPB", Timestamp: now},
	}

	readings := NormalizeGround(measurements, testLoc)
	if len(readings) != 2 {
		t.Fatalf("got %d readings, want 2 (pm25 deduped, ozone)", len(readings))
	}

	if readings[0].Pollutant != PM25 || readings[0].Concentration != 12.5 {
		t.Errorf("first reading = %+v, want the fresher pm25 value 12.5", readings[0])
	}
	if readings[1].Pollutant != O3 || readings[1].Unit != UnitPPB {
		t.Errorf("second reading = %+v, want ozone in ppb", readings[1])
	}
	for _, r := range readings {
		if r.Quality != QualityMeasured {
			t.Errorf("quality = %s, want %s", r.Quality, QualityMeasured)
		}
	}
}

func TestDedupeMostRecentWins(t *testing.T) {
	now := time.Now().UTC()
	readings := []Reading{
		{Pollutant: NO2, Concentration: 10, Unit: UnitPPB, Timestamp: now.Add(-time.Hour), Source: SourceGround, Location: testLoc},
		{Pollutant: NO2, Concentration: 20, Unit: UnitPPB, Timestamp: now, Source: SourceGround, Location: testLoc},
		{Pollutant: NO2, Concentration: 30, Unit: UnitPPB, Timestamp: now, Source: SourceSatellite, Location: testLoc},
	}

	out := Dedupe(readings)
	if len(out) != 2 {
		t.Fatalf("got %d readings, want 2", len(out))
	}
	if out[0].Concentration != 20 {
		t.Errorf("ground NO2 = %g, want the most recent value 20", out[0].Concentration)
	}
	if out[1].Source != SourceSatellite || out[1].Concentration != 30 {
		t.Errorf("second reading = %+v, want the satellite reading", out[1])
	}
}
