// Package breath derives a personalized 0-100 wellness score and categorical
// guidance from fused air-quality conditions, forecast trend, and weather
// context. All guidance text is data-driven templates, never generated.
package breath

import (
	"fmt"
	"math"
	"sort"

	"github.com/clearskies-io/clearskies/internal/airquality"
	"github.com/clearskies-io/clearskies/internal/forecast"
)

// AgeGroup identifies a guidance audience.
type AgeGroup string

const (
	GroupChildren  AgeGroup = "children"
	GroupAdults    AgeGroup = "adults"
	GroupSeniors   AgeGroup = "seniors"
	GroupSensitive AgeGroup = "sensitive"
)

// AllGroups returns every supported age group.
func AllGroups() []AgeGroup {
	return []AgeGroup{GroupChildren, GroupAdults, GroupSeniors, GroupSensitive}
}

// Rating is the categorical label attached to a breath score.
type Rating string

const (
	RatingExcellent          Rating = "excellent"
	RatingGood               Rating = "good"
	RatingModerate           Rating = "moderate"
	RatingUnhealthySensitive Rating = "unhealthy-sensitive"
	RatingUnhealthy          Rating = "unhealthy"
	RatingVeryUnhealthy      Rating = "very-unhealthy"
	RatingHazardous          Rating = "hazardous"
)

// ActivityLevel grades how much outdoor activity a time window supports.
type ActivityLevel string

const (
	ActivityUnrestricted ActivityLevel = "unrestricted"
	ActivityModerate     ActivityLevel = "moderate"
	ActivityLimited      ActivityLevel = "limited"
	ActivityLightOnly    ActivityLevel = "light-only"
	ActivityStayIndoors  ActivityLevel = "stay-indoors"
)

// MaskGuidance recommends respiratory protection.
type MaskGuidance struct {
	Required bool   `json:"required"`
	Type     string `json:"type,omitempty"`
}

// OutdoorWindows grades the day's three activity windows.
type OutdoorWindows struct {
	Morning   ActivityLevel `json:"morning"`
	Afternoon ActivityLevel `json:"afternoon"`
	Evening   ActivityLevel `json:"evening"`
}

// Score is the full breath score assessment.
type Score struct {
	Score          int                 `json:"score"`
	Rating         Rating              `json:"rating"`
	Mask           MaskGuidance        `json:"mask"`
	AgeGuidance    map[AgeGroup]string `json:"ageGuidance"`
	RiskFactors    []string            `json:"riskFactors"`
	OutdoorWindows OutdoorWindows      `json:"outdoorWindows"`
}

// Config carries the engine's tunable thresholds.
type Config struct {
	// MaskThreshold is the overall AQI above which a mask is required.
	MaskThreshold int
}

// Engine computes breath scores. Deterministic given the same inputs.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) *Engine {
	if cfg.MaskThreshold <= 0 {
		cfg.MaskThreshold = 100
	}
	return &Engine{cfg: cfg}
}

// Score derives the wellness score and guidance. A nil weather snapshot
// skips the weather modifiers. When group is empty, guidance covers all
// groups; otherwise only the requested one.
func (e *Engine) Score(fused airquality.FusedConditions, trend forecast.Trend, weather *airquality.WeatherSnapshot, group AgeGroup) Score {
	base := aqiToBase(float64(fused.OverallAQI))
	modifier := e.weatherModifier(fused, weather)

	value := clampScore(base + modifier)

	return Score{
		Score:          value,
		Rating:         ratingForScore(value),
		Mask:           e.maskFor(fused.OverallAQI),
		AgeGuidance:    guidanceFor(fused.OverallCategory, group),
		RiskFactors:    e.riskFactors(fused, trend, weather),
		OutdoorWindows: outdoorWindows(fused.OverallAQI, trend),
	}
}

// aqiToBase maps AQI (0-500) onto the 100-0 breath scale, piecewise over
// the EPA categories so the penalty step function tracks category edges.
func aqiToBase(aqi float64) float64 {
	switch {
	case aqi <= 50:
		return 100 - (aqi/50)*15 // good: 100-85
	case aqi <= 100:
		return 85 - ((aqi-50)/50)*15 // moderate: 85-70
	case aqi <= 150:
		return 70 - ((aqi-100)/50)*20 // unhealthy-sensitive: 70-50
	case aqi <= 200:
		return 50 - ((aqi-150)/50)*20 // unhealthy: 50-30
	case aqi <= 300:
		return 30 - ((aqi-200)/100)*20 // very unhealthy: 30-10
	default:
		return math.Max(0, 10-((aqi-300)/200)*10) // hazardous: 10-0
	}
}

func (e *Engine) weatherModifier(fused airquality.FusedConditions, weather *airquality.WeatherSnapshot) float64 {
	if weather == nil {
		return 0
	}

	modifier := 0.0

	// Optimal humidity band eases breathing; extremes irritate airways.
	switch {
	case weather.Humidity >= 30 && weather.Humidity <= 60:
		modifier += 2
	case weather.Humidity < 20 || weather.Humidity > 80:
		modifier -= 3
	}

	// High humidity traps particulates near the surface.
	if weather.Humidity > 80 && particulateDominant(fused) {
		modifier -= 4
	}

	// Temperature extremes strain breathing capacity.
	if weather.Temperature < 0 || weather.Temperature > 35 {
		modifier -= 2
	}

	// Strong wind disperses pollutants.
	if weather.WindSpeed >= 7 {
		modifier += 3
	}

	return modifier
}

func particulateDominant(fused airquality.FusedConditions) bool {
	for _, result := range fused.PerPollutant {
		if result.Dominant {
			return result.Pollutant == airquality.PM25 || result.Pollutant == airquality.PM10
		}
	}
	return false
}

func (e *Engine) maskFor(aqi int) MaskGuidance {
	if aqi <= e.cfg.MaskThreshold {
		return MaskGuidance{Required: false}
	}
	switch {
	case aqi <= 150:
		return MaskGuidance{Required: true, Type: "surgical or KN95"}
	case aqi <= 200:
		return MaskGuidance{Required: true, Type: "N95 (properly fitted)"}
	case aqi <= 300:
		return MaskGuidance{Required: true, Type: "N95 or P100 respirator"}
	default:
		return MaskGuidance{Required: true, Type: "P100 respirator"}
	}
}

func (e *Engine) riskFactors(fused airquality.FusedConditions, trend forecast.Trend, weather *airquality.WeatherSnapshot) []string {
	var risks []string

	if fused.OverallAQI > 150 {
		risks = append(risks, fmt.Sprintf("very high AQI (%d)", fused.OverallAQI))
	}

	// Stable ordering: report elevated pollutants sorted by pollutant name.
	type elevated struct {
		pollutant airquality.Pollutant
		text      string
	}
	var pollutantRisks []elevated
	for pollutant, result := range fused.PerPollutant {
		if result.Index <= 100 {
			continue
		}
		if text, ok := pollutantRiskText[pollutant]; ok {
			pollutantRisks = append(pollutantRisks, elevated{pollutant, text})
		}
	}
	sort.Slice(pollutantRisks, func(i, j int) bool {
		return pollutantRisks[i].pollutant < pollutantRisks[j].pollutant
	})
	for _, r := range pollutantRisks {
		risks = append(risks, r.text)
	}

	if weather != nil {
		if weather.Humidity > 80 {
			risks = append(risks, "high humidity may worsen respiratory symptoms")
		} else if weather.Humidity < 20 {
			risks = append(risks, "low humidity increases airway irritation")
		}
		if weather.Temperature > 35 {
			risks = append(risks, "heat stress affects breathing capacity")
		} else if weather.Temperature < 0 {
			risks = append(risks, "cold air may trigger asthma or bronchospasm")
		}
	}

	if trend == forecast.TrendWorsening {
		risks = append(risks, "air quality expected to worsen over the next 24 hours")
	}

	if len(risks) == 0 {
		risks = append(risks, "no significant respiratory risks detected")
	}
	return risks
}

var pollutantRiskText = map[airquality.Pollutant]string{
	airquality.PM25: "elevated fine particulate matter (PM2.5)",
	airquality.PM10: "high coarse particulate matter (PM10)",
	airquality.O3:   "ground-level ozone exceeds safe limits",
	airquality.NO2:  "nitrogen dioxide pollution",
	airquality.SO2:  "elevated sulfur dioxide",
	airquality.CO:   "elevated carbon monoxide",
}

// outdoorWindows projects the current AQI through the forecast trend to
// grade morning, afternoon, and evening activity. The score contract only
// carries the trend classification, so the projection is a fixed step per
// window rather than a point-by-point forecast.
func outdoorWindows(aqi int, trend forecast.Trend) OutdoorWindows {
	step := 0
	switch trend {
	case forecast.TrendWorsening:
		step = 15
	case forecast.TrendImproving:
		step = -15
	}
	return OutdoorWindows{
		Morning:   activityFor(aqi),
		Afternoon: activityFor(aqi + step),
		Evening:   activityFor(aqi + 2*step),
	}
}

func activityFor(aqi int) ActivityLevel {
	switch {
	case aqi <= 50:
		return ActivityUnrestricted
	case aqi <= 100:
		return ActivityModerate
	case aqi <= 150:
		return ActivityLimited
	case aqi <= 200:
		return ActivityLightOnly
	default:
		return ActivityStayIndoors
	}
}

func ratingForScore(score int) Rating {
	switch {
	case score >= 90:
		return RatingExcellent
	case score >= 75:
		return RatingGood
	case score >= 60:
		return RatingModerate
	case score >= 45:
		return RatingUnhealthySensitive
	case score >= 30:
		return RatingUnhealthy
	case score >= 15:
		return RatingVeryUnhealthy
	default:
		return RatingHazardous
	}
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}

// guidanceTemplates is keyed by AQI category, then group. Deterministic
// lookup, no computed text.
var guidanceTemplates = map[airquality.Category]map[AgeGroup]string{
	airquality.CategoryGood: {
		GroupChildren:  "safe for outdoor play and sports",
		GroupAdults:    "all outdoor activities safe",
		GroupSeniors:   "normal outdoor activities fine",
		GroupSensitive: "safe for those with respiratory conditions",
	},
	airquality.CategoryModerate: {
		GroupChildren:  "outdoor play OK, but watch for symptoms",
		GroupAdults:    "unusually sensitive people should consider reducing prolonged exertion",
		GroupSeniors:   "take breaks during extended outdoor activities",
		GroupSensitive: "watch for symptoms such as coughing or shortness of breath",
	},
	airquality.CategoryUnhealthySensitive: {
		GroupChildren:  "limit prolonged outdoor play",
		GroupAdults:    "reduce prolonged outdoor exertion",
		GroupSeniors:   "take frequent breaks, prefer indoor activity",
		GroupSensitive: "limit outdoor exposure, keep relief medication handy",
	},
	airquality.CategoryUnhealthy: {
		GroupChildren:  "limit outdoor play, stay indoors when possible",
		GroupAdults:    "avoid strenuous outdoor activities",
		GroupSeniors:   "stay indoors, use air filtration if available",
		GroupSensitive: "avoid outdoor exposure, keep rescue medication handy",
	},
	airquality.CategoryVeryUnhealthy: {
		GroupChildren:  "keep children indoors, close windows",
		GroupAdults:    "avoid all outdoor exertion",
		GroupSeniors:   "stay indoors, seek medical help if symptoms appear",
		GroupSensitive: "stay indoors, contact a doctor if breathing worsens",
	},
	airquality.CategoryHazardous: {
		GroupChildren:  "keep children indoors with filtered air",
		GroupAdults:    "avoid all outdoor activities",
		GroupSeniors:   "stay indoors, seek medical help if symptoms appear",
		GroupSensitive: "stay indoors; breathing difficulty is a medical emergency",
	},
}

func guidanceFor(category airquality.Category, group AgeGroup) map[AgeGroup]string {
	templates, ok := guidanceTemplates[category]
	if !ok {
		templates = guidanceTemplates[airquality.CategoryHazardous]
	}

	if group != "" {
		if text, ok := templates[group]; ok {
			return map[AgeGroup]string{group: text}
		}
	}

	out := make(map[AgeGroup]string, len(templates))
	for g, text := range templates {
		out[g] = text
	}
	return out
}
