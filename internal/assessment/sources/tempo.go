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

// TempoSource fetches satellite column-density retrievals from a TEMPO
// retrieval service. The service resolves the nearest gridded retrieval for
// a coordinate; this client only consumes its normalized JSON.
type TempoSource struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewTempoSource creates the satellite client against the given retrieval
// service base URL.
func NewTempoSource(client *http.Client, baseURL string) *TempoSource {
	return &TempoSource{
		name:    "tempo",
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
		},
		circuit: newBreaker("tempo"),
	}
}

func (s *TempoSource) Name() string {
	return s.name
}

func (s *TempoSource) Source() airquality.SourceType {
	return airquality.SourceSatellite
}

// FetchReadings returns normalized readings for the retrievals at loc.
func (s *TempoSource) FetchReadings(ctx context.Context, loc airquality.Location) ([]airquality.Reading, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("tempo retrieval service URL is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", fmt.Sprintf("%f", loc.Lat))
		values.Set("lon", fmt.Sprintf("%f", loc.Lon))

		u := fmt.Sprintf("%s/retrievals?%s", s.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload struct {
		Retrievals []struct {
			Pollutant     string  `json:"pollutant"`
			ColumnDensity float64 `json:"columnDensity"` // molecules/cm^2
			Timestamp     string  `json:"timestamp"`
			Quality       string  `json:"quality"`
		} `json:"retrievals"`
	}

	if err := fetchJSON(ctx, s.httpCfg, s.circuit, buildRequest, &payload); err != nil {
		return nil, err
	}

	retrievals := make([]airquality.SatelliteRetrieval, 0, len(payload.Retrievals))
	for _, r := range payload.Retrievals {
		ts, err := time.Parse(time.RFC3339, r.Timestamp)
		if err != nil {
			ts = time.Now().UTC()
		}
		retrievals = append(retrievals, airquality.SatelliteRetrieval{
			Pollutant:     airquality.Pollutant(r.Pollutant),
			ColumnDensity: r.ColumnDensity,
			Timestamp:     ts,
			Quality:       airquality.Quality(r.Quality),
		})
	}

	return airquality.NormalizeSatellite(retrievals, loc), nil
}
