package breath

import (
	"time"

	"github.com/google/uuid"

	"github.com/clearskies-io/clearskies/internal/airquality"
)

// Alert is a threshold-driven health advisory derived from fused conditions.
type Alert struct {
	ID              string              `json:"id"`
	Severity        string              `json:"severity"`
	Category        airquality.Category `json:"category"`
	Priority        int                 `json:"priority"`
	Title           string              `json:"title"`
	Message         string              `json:"message"`
	AffectedGroups  []string            `json:"affectedGroups"`
	Recommendations []string            `json:"recommendations"`
	ValidFrom       time.Time           `json:"validFrom"`
	ValidTo         time.Time           `json:"validTo"`
}

// alertValidity is how long an advisory stays in effect before reassessment.
const alertValidity = 8 * time.Hour

// BuildAlerts generates active advisories for the given conditions. Below
// the moderate threshold no alerts are raised.
func BuildAlerts(fused airquality.FusedConditions, now time.Time) []Alert {
	aqi := fused.OverallAQI
	if aqi <= 100 {
		return nil
	}

	severity := "warning"
	priority := 2
	if aqi > 150 {
		severity = "critical"
		priority = 3
	}

	recommendations := []string{
		"sensitive individuals should limit prolonged outdoor exertion",
		"keep windows closed during high-traffic hours",
		"use HEPA air purifiers indoors if available",
	}
	affected := []string{
		"people with asthma",
		"children under 5",
		"elderly (65+)",
		"people with heart disease",
	}

	if aqi > 150 {
		recommendations = append(recommendations,
			"wear an N95 mask outdoors",
			"avoid outdoor exercise",
		)
	}
	if aqi > 200 {
		recommendations = append(recommendations,
			"stay indoors as much as possible",
			"seek medical attention if experiencing symptoms",
		)
		affected = append(affected, "everyone")
	}

	return []Alert{{
		ID:              uuid.NewString(),
		Severity:        severity,
		Category:        fused.OverallCategory,
		Priority:        priority,
		Title:           "Air Quality Advisory",
		Message:         healthMessage(aqi),
		AffectedGroups:  affected,
		Recommendations: recommendations,
		ValidFrom:       now,
		ValidTo:         now.Add(alertValidity),
	}}
}

func healthMessage(aqi int) string {
	switch {
	case aqi <= 50:
		return "air quality is excellent"
	case aqi <= 100:
		return "air quality is acceptable for most people"
	case aqi <= 150:
		return "sensitive groups should limit prolonged outdoor exertion"
	case aqi <= 200:
		return "everyone should reduce prolonged outdoor exertion"
	case aqi <= 300:
		return "avoid outdoor activities"
	default:
		return "health alert: remain indoors with air filtration"
	}
}
