package airquality

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// FusionConfig carries the tunable parameters of the fusion engine.
type FusionConfig struct {
	// StalenessWindow excludes readings older than this relative to the
	// as-of instant.
	StalenessWindow time.Duration
}

// Fuser combines readings from multiple sources at a location into a single
// authoritative current-conditions record.
type Fuser struct {
	cfg    FusionConfig
	calc   *Calculator
	logger *zap.SugaredLogger
}

// NewFuser creates a Fuser. The calculator supplies per-pollutant AQI values.
func NewFuser(cfg FusionConfig, calc *Calculator, logger *zap.SugaredLogger) *Fuser {
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = 3 * time.Hour
	}
	return &Fuser{cfg: cfg, calc: calc, logger: logger}
}

// Fuse groups readings by pollutant, selects the freshest non-stale reading
// per source, scores each, and reconciles multiple sources per pollutant.
// Returns ErrInsufficientData when nothing usable remains.
func (f *Fuser) Fuse(readings []Reading, loc Location, asOf time.Time) (FusedConditions, error) {
	cutoff := asOf.Add(-f.cfg.StalenessWindow)

	// Freshest reading per (pollutant, source).
	type cellKey struct {
		pollutant Pollutant
		source    SourceType
	}
	freshest := make(map[cellKey]Reading)
	for _, r := range readings {
		if r.Timestamp.Before(cutoff) {
			continue
		}
		k := cellKey{r.Pollutant, r.Source}
		if cur, ok := freshest[k]; !ok || r.Timestamp.After(cur.Timestamp) {
			freshest[k] = r
		}
	}

	// Score each per-source candidate, collecting indices per pollutant.
	indices := make(map[Pollutant][]int)
	for k, r := range freshest {
		result, err := f.calc.Compute(r.Pollutant, r.Concentration, r.Unit)
		if err != nil {
			if f.logger != nil {
				f.logger.Debugw("skipping unscorable reading",
					"pollutant", r.Pollutant, "source", r.Source, "err", err)
			}
			continue
		}
		indices[k.pollutant] = append(indices[k.pollutant], result.Index)
	}

	if len(indices) == 0 {
		return FusedConditions{}, fmt.Errorf("%w: no usable readings at %.4f,%.4f as of %s",
			ErrInsufficientData, loc.Lat, loc.Lon, asOf.Format(time.RFC3339))
	}

	perPollutant := make(map[Pollutant]AQIResult, len(indices))
	var agreements []float64
	for pollutant, idxs := range indices {
		// The worst source wins.
		lo, hi := idxs[0], idxs[0]
		for _, idx := range idxs[1:] {
			if idx > hi {
				hi = idx
			}
			if idx < lo {
				lo = idx
			}
		}
		perPollutant[pollutant] = AQIResult{
			Pollutant: pollutant,
			Index:     hi,
			Category:  CategoryForIndex(hi),
		}
		if len(idxs) > 1 {
			agreement := 1 - float64(hi-lo)/500
			if agreement < 0 {
				agreement = 0
			}
			agreements = append(agreements, agreement)
		}
	}

	fused := FusedConditions{
		Location:     loc,
		Timestamp:    asOf,
		PerPollutant: perPollutant,
	}

	// Overall AQI is the maximum per-pollutant index; ties break by
	// pollutant declaration order. Exactly one dominant pollutant.
	var dominant Pollutant
	overall := -1
	for _, pollutant := range pollutantOrder {
		result, ok := perPollutant[pollutant]
		if !ok {
			continue
		}
		if result.Index > overall {
			overall = result.Index
			dominant = pollutant
		}
	}
	winner := perPollutant[dominant]
	winner.Dominant = true
	perPollutant[dominant] = winner

	fused.OverallAQI = overall
	fused.OverallCategory = CategoryForIndex(overall)

	if len(agreements) > 0 {
		sum := 0.0
		for _, a := range agreements {
			sum += a
		}
		mean := sum / float64(len(agreements))
		fused.SourceAgreement = &mean
	}

	return fused, nil
}
