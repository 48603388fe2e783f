package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/clearskies-io/clearskies/internal/airquality"
)

// OpenWeatherSource fetches current weather context from OpenWeatherMap.
type OpenWeatherSource struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenWeatherSource creates the weather client.
func NewOpenWeatherSource(client *http.Client, apiKey string) *OpenWeatherSource {
	return &OpenWeatherSource{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
		},
		circuit: newBreaker("openweather"),
	}
}

func (s *OpenWeatherSource) Name() string {
	return s.name
}

// FetchWeather returns the current weather snapshot at loc.
func (s *OpenWeatherSource) FetchWeather(ctx context.Context, loc airquality.Location) (*airquality.WeatherSnapshot, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", s.apiKey)
		values.Set("units", "metric")
		values.Set("lat", fmt.Sprintf("%f", loc.Lat))
		values.Set("lon", fmt.Sprintf("%f", loc.Lon))

		u := fmt.Sprintf("%s?%s", s.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity float64 `json:"humidity"`
			Pressure float64 `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	}

	if err := fetchJSON(ctx, s.httpCfg, s.circuit, buildRequest, &payload); err != nil {
		return nil, err
	}

	ts := time.Unix(payload.Dt, 0).UTC()
	if payload.Dt == 0 {
		ts = time.Now().UTC()
	}

	conditions := ""
	if len(payload.Weather) > 0 {
		conditions = payload.Weather[0].Description
	}

	return &airquality.WeatherSnapshot{
		Timestamp:   ts,
		Temperature: payload.Main.Temp,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed,
		Pressure:    payload.Main.Pressure,
		Conditions:  conditions,
	}, nil
}
