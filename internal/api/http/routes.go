package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/clearskies-io/clearskies/internal/airquality"
	"github.com/clearskies-io/clearskies/internal/assessment"
	"github.com/clearskies-io/clearskies/internal/breath"
	"github.com/clearskies-io/clearskies/internal/forecast"
	"github.com/clearskies-io/clearskies/internal/store"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *assessment.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/conditions", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		fused, err := service.CurrentConditions(c.Context(), loc)
		if err != nil {
			if errors.Is(err, airquality.ErrInsufficientData) {
				// Degraded-but-structured: upstream callers expect
				// partial results, not a hard failure.
				return c.JSON(fiber.Map{
					"available": false,
					"reason":    "no usable readings for requested location",
				})
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to assess air quality")
		}

		return c.JSON(fused)
	})

	v1.Get("/forecast", func(c *fiber.Ctx) error {
		var req forecastQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := service.Forecast(c.Context(), req.Location, req.Hours)
		if err != nil {
			if errors.Is(err, forecast.ErrInsufficientHistory) {
				return c.JSON(fiber.Map{
					"available": false,
					"reason":    "forecast unavailable: insufficient observation history",
				})
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to compute forecast")
		}

		return c.JSON(result)
	})

	v1.Get("/breath-score", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		group, err := parseGroupQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		score, err := service.BreathScore(c.Context(), loc, group)
		if err != nil {
			if errors.Is(err, airquality.ErrInsufficientData) {
				return c.JSON(fiber.Map{
					"available": false,
					"reason":    "no usable readings for requested location",
				})
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to compute breath score")
		}

		return c.JSON(score)
	})

	v1.Get("/alerts", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		alerts, err := service.Alerts(c.Context(), loc)
		if err != nil {
			if errors.Is(err, airquality.ErrInsufficientData) {
				return c.JSON(fiber.Map{
					"available": false,
					"reason":    "no usable readings for requested location",
				})
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to assess air quality")
		}

		return c.JSON(fiber.Map{
			"alerts": alerts,
			"count":  len(alerts),
		})
	})

	v1.Get("/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		observations, err := service.History(req.Location, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no observation history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch history")
		}

		resp := fiber.Map{
			"location":     req.Location,
			"from":         req.From,
			"to":           req.To,
			"observations": observations,
		}
		if latest, err := service.LatestObservation(req.Location); err == nil {
			resp["latest"] = latest
		}
		return c.JSON(resp)
	})

	v1.Get("/dashboard", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		group, err := parseGroupQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		dash, err := service.Dashboard(c.Context(), loc, group)
		if err != nil {
			if errors.Is(err, airquality.ErrInsufficientData) {
				return c.JSON(fiber.Map{
					"available": false,
					"reason":    "no usable readings for requested location",
				})
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to build dashboard")
		}

		return c.JSON(dash)
	})
}

// locationQuery holds the parsed coordinate parameters.
type locationQuery struct {
	Lat float64 `validate:"min=-90,max=90"`
	Lon float64 `validate:"min=-180,max=180"`
}

func parseLocationQuery(c *fiber.Ctx) (airquality.Location, error) {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr == "" || lonStr == "" {
		return airquality.Location{}, errors.New("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return airquality.Location{}, errors.New("invalid lat: must be a number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return airquality.Location{}, errors.New("invalid lon: must be a number")
	}

	if err := validate.Struct(locationQuery{Lat: lat, Lon: lon}); err != nil {
		return airquality.Location{}, err
	}

	return airquality.Location{Lat: lat, Lon: lon}, nil
}

// groupQuery validates the optional age-group parameter.
type groupQuery struct {
	Group string `validate:"omitempty,oneof=children adults seniors sensitive"`
}

func parseGroupQuery(c *fiber.Ctx) (breath.AgeGroup, error) {
	q := groupQuery{Group: c.Query("group")}
	if err := validate.Struct(q); err != nil {
		return "", err
	}
	return breath.AgeGroup(q.Group), nil
}

// forecastQuery holds query parameters for the forecast endpoint.
type forecastQuery struct {
	Location airquality.Location
	Hours    int `validate:"required,min=1,max=24"`
}

func (f *forecastQuery) bind(c *fiber.Ctx) error {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return err
	}
	f.Location = loc

	hoursStr := c.Query("hours", "24")
	hours, err := strconv.Atoi(hoursStr)
	if err != nil {
		return errors.New("invalid hours: must be an integer")
	}
	f.Hours = hours

	return validate.Struct(f)
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Location airquality.Location
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return err
	}
	h.Location = loc

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return validate.Struct(h)
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
