package httpapi

import (
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/i474232898/weather-monitor/internal/metrics"
	"github.com/i474232898/weather-monitor/internal/weather"
)

const fetchFailedMessage = "Failed to fetch weather data."

var validate = validator.New()

// ErrorHandler renders every handler error as {"error": message}.
// Anything that is not a *fiber.Error is reported as a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, m *metrics.Metrics, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	// Browser dashboards call the API from another origin.
	api := app.Group("/api/weather", cors.New())

	// On-demand collection; nothing is persisted.
	api.Get("/fetch-weather", func(c *fiber.Ctx) error {
		readings, err := service.FetchCurrent(c.UserContext())
		if err != nil {
			logger.Error("error fetching weather data", "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, fetchFailedMessage)
		}

		out := make([]readingResponse, 0, len(readings))
		for _, r := range readings {
			out = append(out, newReadingResponse(r))
		}
		return c.Status(fiber.StatusOK).JSON(out)
	})

	api.Get("/daily", func(c *fiber.Ctx) error {
		var q dailyQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		aggs, err := service.DailyHistory(c.UserContext(), q.City, q.from, q.to)
		if err != nil {
			if errors.Is(err, weather.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for requested range")
			}
			logger.Error("error loading daily aggregates", "city", q.City, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load weather history")
		}

		out := make([]dailyResponse, 0, len(aggs))
		for _, a := range aggs {
			out = append(out, newDailyResponse(a))
		}
		return c.JSON(fiber.Map{
			"city": q.City,
			"from": q.From,
			"to":   q.To,
			"days": out,
		})
	})
}

// readingResponse is the wire shape of a Reading.
type readingResponse struct {
	City        string `json:"city"`
	Temperature string `json:"temperature"`
	Condition   string `json:"condition"`
	Timestamp   int64  `json:"timestamp"`
}

func newReadingResponse(r weather.Reading) readingResponse {
	return readingResponse{
		City:        r.City,
		Temperature: r.Temperature.StringFixed(2),
		Condition:   r.Condition,
		Timestamp:   r.ObservedAt.Unix(),
	}
}

type dailyResponse struct {
	City            string   `json:"city"`
	Date            string   `json:"date"`
	Temperatures    []string `json:"temperatures"`
	MaxTemp         string   `json:"maxTemp"`
	MinTemp         string   `json:"minTemp"`
	AvgTemp         string   `json:"avgTemp"`
	DominantWeather string   `json:"dominantWeather"`
	AlertTriggered  bool     `json:"alertTriggered"`
}

func newDailyResponse(a weather.DailyAggregate) dailyResponse {
	temps := make([]string, 0, len(a.Temperatures))
	for _, t := range a.Temperatures {
		temps = append(temps, t.StringFixed(2))
	}
	return dailyResponse{
		City:            a.City,
		Date:            a.Date,
		Temperatures:    temps,
		MaxTemp:         a.MaxTemp.StringFixed(2),
		MinTemp:         a.MinTemp.StringFixed(2),
		AvgTemp:         a.AvgTemp.StringFixed(2),
		DominantWeather: a.DominantWeather,
		AlertTriggered:  a.AlertTriggered,
	}
}

// dailyQuery holds query parameters for the daily endpoint.
// to defaults to today (UTC) and from defaults to to.
type dailyQuery struct {
	City string `validate:"required"`
	From string `validate:"omitempty,datetime=2006-01-02"`
	To   string `validate:"omitempty,datetime=2006-01-02"`

	from, to time.Time
}

func (q *dailyQuery) bind(c *fiber.Ctx) error {
	q.City = c.Query("city")
	q.From = c.Query("from")
	q.To = c.Query("to")

	if err := validate.Struct(q); err != nil {
		return err
	}

	if q.To == "" {
		q.To = time.Now().UTC().Format(weather.DateLayout)
	}
	if q.From == "" {
		q.From = q.To
	}

	var err error
	if q.from, err = time.Parse(weather.DateLayout, q.From); err != nil {
		return err
	}
	if q.to, err = time.Parse(weather.DateLayout, q.To); err != nil {
		return err
	}
	if q.to.Before(q.from) {
		return errors.New("to must not be before from")
	}
	return nil
}
