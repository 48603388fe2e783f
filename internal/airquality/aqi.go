package airquality

import (
	"fmt"
	"math"
)

// Breakpoint is one segment of the EPA piecewise-linear concentration to
// index mapping.
type Breakpoint struct {
	CLo, CHi float64
	ILo, IHi int
}

// BreakpointTable holds the breakpoint segments for one pollutant and the
// unit concentrations must be expressed in.
type BreakpointTable struct {
	Unit Unit
	Rows []Breakpoint
}

// AQIConfig carries the per-pollutant breakpoint tables. Passed explicitly
// so regional variants can be swapped in for testing.
type AQIConfig struct {
	Tables map[Pollutant]BreakpointTable
}

// DefaultAQIConfig returns the standard EPA breakpoint tables. HCHO has no
// EPA table and is intentionally absent.
func DefaultAQIConfig() AQIConfig {
	return AQIConfig{
		Tables: map[Pollutant]BreakpointTable{
			PM25: {Unit: UnitUGM3, Rows: []Breakpoint{
				{0.0, 12.0, 0, 50},
				{12.1, 35.4, 51, 100},
				{35.5, 55.4, 101, 150},
				{55.5, 150.4, 151, 200},
				{150.5, 250.4, 201, 300},
				{250.5, 500.4, 301, 500},
			}},
			PM10: {Unit: UnitUGM3, Rows: []Breakpoint{
				{0, 54, 0, 50},
				{55, 154, 51, 100},
				{155, 254, 101, 150},
				{255, 354, 151, 200},
				{355, 424, 201, 300},
				{425, 604, 301, 500},
			}},
			NO2: {Unit: UnitPPB, Rows: []Breakpoint{
				{0, 53, 0, 50},
				{54, 100, 51, 100},
				{101, 360, 101, 150},
				{361, 649, 151, 200},
				{650, 1249, 201, 300},
				{1250, 2049, 301, 500},
			}},
			O3: {Unit: UnitPPB, Rows: []Breakpoint{
				{0, 54, 0, 50},
				{55, 70, 51, 100},
				{71, 85, 101, 150},
				{86, 105, 151, 200},
				{106, 200, 201, 300},
			}},
			SO2: {Unit: UnitPPB, Rows: []Breakpoint{
				{0, 35, 0, 50},
				{36, 75, 51, 100},
				{76, 185, 101, 150},
				{186, 304, 151, 200},
				{305, 604, 201, 300},
				{605, 1004, 301, 500},
			}},
			CO: {Unit: UnitPPM, Rows: []Breakpoint{
				{0.0, 4.4, 0, 50},
				{4.5, 9.4, 51, 100},
				{9.5, 12.4, 101, 150},
				{12.5, 15.4, 151, 200},
				{15.5, 30.4, 201, 300},
				{30.5, 50.4, 301, 500},
			}},
		},
	}
}

// Calculator computes standardized AQI values from pollutant concentrations.
type Calculator struct {
	cfg AQIConfig
}

// NewCalculator creates a Calculator with the given breakpoint tables.
func NewCalculator(cfg AQIConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Compute maps a concentration to a 0-500 index and category via breakpoint
// interpolation. It is deterministic and has no side effects.
func (c *Calculator) Compute(pollutant Pollutant, concentration float64, unit Unit) (AQIResult, error) {
	if concentration < 0 {
		return AQIResult{}, fmt.Errorf("%w: negative concentration %g for %s", ErrInvalidInput, concentration, pollutant)
	}

	table, ok := c.cfg.Tables[pollutant]
	if !ok {
		return AQIResult{}, fmt.Errorf("%w: no breakpoint table for pollutant %s", ErrInvalidInput, pollutant)
	}
	if table.Unit != unit {
		return AQIResult{}, fmt.Errorf("%w: unit %s not supported for %s (want %s)", ErrInvalidInput, unit, pollutant, table.Unit)
	}

	rows := table.Rows

	// Below the lowest defined breakpoint.
	if concentration < rows[0].CLo {
		return AQIResult{Pollutant: pollutant, Index: 0, Category: CategoryGood}, nil
	}

	for _, bp := range rows {
		if concentration <= bp.CHi {
			// Concentrations falling in the reporting gap between two
			// segments snap to the lower bound of the higher segment.
			c := math.Max(concentration, bp.CLo)
			ratio := float64(bp.IHi-bp.ILo) / (bp.CHi - bp.CLo)
			index := int(math.Round(float64(bp.ILo) + ratio*(c-bp.CLo)))
			return AQIResult{
				Pollutant: pollutant,
				Index:     index,
				Category:  CategoryForIndex(index),
			}, nil
		}
	}

	// Above the highest defined breakpoint: clamp rather than extrapolate.
	return AQIResult{Pollutant: pollutant, Index: 500, Category: CategoryHazardous}, nil
}
