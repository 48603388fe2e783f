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

// OpenAQSource fetches ground sensor measurements from the OpenAQ v3 API.
type OpenAQSource struct {
	name     string
	apiKey   string
	baseURL  string
	radiusKm float64
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

// NewOpenAQSource creates the ground-network client. An API key is optional
// for low request volumes.
func NewOpenAQSource(client *http.Client, apiKey string, radiusKm float64) *OpenAQSource {
	if radiusKm <= 0 {
		radiusKm = 25
	}
	return &OpenAQSource{
		name:     "openaq",
		apiKey:   apiKey,
		baseURL:  "https://api.openaq.org/v3/latest",
		radiusKm: radiusKm,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
		},
		circuit: newBreaker("openaq"),
	}
}

func (s *OpenAQSource) Name() string {
	return s.name
}

func (s *OpenAQSource) Source() airquality.SourceType {
	return airquality.SourceGround
}

// FetchReadings returns normalized readings for the stations near loc.
func (s *OpenAQSource) FetchReadings(ctx context.Context, loc airquality.Location) ([]airquality.Reading, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("coordinates", fmt.Sprintf("%f,%f", loc.Lat, loc.Lon))
		values.Set("radius", fmt.Sprintf("%d", int(s.radiusKm*1000)))
		values.Set("limit", "100")

		u := fmt.Sprintf("%s?%s", s.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		if s.apiKey != "" {
			req.Header.Set("X-API-Key", s.apiKey)
		}
		return req, nil
	}

	var payload struct {
		Results []struct {
			Parameter string  `json:"parameter"`
			Value     float64 `json:"value"`
			Unit      string  `json:"unit"`
			Datetime  struct {
				UTC string `json:"utc"`
			} `json:"datetime"`
		} `json:"results"`
	}

	if err := fetchJSON(ctx, s.httpCfg, s.circuit, buildRequest, &payload); err != nil {
		return nil, err
	}

	measurements := make([]airquality.GroundMeasurement, 0, len(payload.Results))
	for _, r := range payload.Results {
		ts, err := time.Parse(time.RFC3339, r.Datetime.UTC)
		if err != nil {
			ts = time.Now().UTC()
		}
		measurements = append(measurements, airquality.GroundMeasurement{
			Parameter: r.Parameter,
			Value:     r.Value,
			Unit:      r.Unit,
			Timestamp: ts,
		})
	}

	return airquality.NormalizeGround(measurements, loc), nil
}
