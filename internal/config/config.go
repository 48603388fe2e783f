package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/clearskies-io/clearskies/internal/airquality"
)

// AppConfig is the immutable application configuration, loaded once at
// startup and passed explicitly to each component.
type AppConfig struct {
	OpenAQAPIKey      string
	OpenWeatherAPIKey string
	TempoBaseURL      string

	// FetchInterval controls how often the scheduler observes each
	// tracked location.
	FetchInterval time.Duration

	// Locations to track for history building.
	Locations []airquality.Location

	// Observation history retention.
	StoreMaxHistory int           // max observations per cell (0 = unlimited)
	StoreMaxAge     time.Duration // max age of observations (0 = unlimited)

	// Engine knobs.
	StalenessWindow time.Duration // readings older than this are excluded from fusion
	MaskThreshold   int           // AQI above which a mask is required
	GroundRadiusKm  float64       // ground station search radius

	// Cache configuration.
	CacheResolution  int // coordinate rounding, decimal places
	CacheMaxSize     int
	ConditionsTTL    time.Duration
	ForecastCacheTTL time.Duration

	Port  string
	Debug bool
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenAQAPIKey = os.Getenv("OPENAQ_API_KEY")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.TempoBaseURL = os.Getenv("TEMPO_BASE_URL")

	interval, err := getenvDuration("FETCH_INTERVAL", "15m")
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL: %w", err)
	}
	cfg.FetchInterval = interval

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 96) // roughly 24h at 15-minute intervals

	maxAge, err := getenvDuration("STORE_MAX_AGE", "24h")
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_MAX_AGE: %w", err)
	}
	cfg.StoreMaxAge = maxAge

	staleness, err := getenvDuration("STALENESS_WINDOW", "3h")
	if err != nil {
		return nil, fmt.Errorf("invalid STALENESS_WINDOW: %w", err)
	}
	cfg.StalenessWindow = staleness

	cfg.MaskThreshold = getenvInt("MASK_AQI_THRESHOLD", 100)
	cfg.GroundRadiusKm = float64(getenvInt("GROUND_RADIUS_KM", 25))

	cfg.CacheResolution = getenvInt("CACHE_RESOLUTION", 2)
	cfg.CacheMaxSize = getenvInt("CACHE_MAX_SIZE", 1000)

	conditionsTTL, err := getenvDuration("CONDITIONS_TTL", "15m")
	if err != nil {
		return nil, fmt.Errorf("invalid CONDITIONS_TTL: %w", err)
	}
	cfg.ConditionsTTL = conditionsTTL

	forecastTTL, err := getenvDuration("FORECAST_CACHE_TTL", "30m")
	if err != nil {
		return nil, fmt.Errorf("invalid FORECAST_CACHE_TTL: %w", err)
	}
	cfg.ForecastCacheTTL = forecastTTL

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.Debug = strings.EqualFold(os.Getenv("DEBUG"), "true")

	locs, err := loadTrackedLocations()
	if err != nil {
		return nil, err
	}
	cfg.Locations = locs

	return cfg, nil
}

// loadTrackedLocations parses TRACKED_LOCATIONS, a semicolon-separated list
// of "lat,lon" pairs, e.g. "40.71,-74.01;34.05,-118.24".
func loadTrackedLocations() ([]airquality.Location, error) {
	raw := os.Getenv("TRACKED_LOCATIONS")
	if raw == "" {
		return nil, nil
	}

	var locs []airquality.Location
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid TRACKED_LOCATIONS entry %q: want lat,lon", pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude in %q: %w", pair, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude in %q: %w", pair, err)
		}
		locs = append(locs, airquality.Location{Lat: lat, Lon: lon})
	}

	return locs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	return time.ParseDuration(getenvDefault(key, def))
}
