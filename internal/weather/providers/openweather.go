package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-monitor/internal/weather"
)

// DefaultOpenWeatherURL is the OpenWeatherMap current-weather endpoint.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

var validate = validator.New()

// OpenWeatherConfig configures the OpenWeatherMap provider.
type OpenWeatherConfig struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
}

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
// Temperatures are requested in the provider's native Kelvin and converted locally.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, cfg OpenWeatherConfig) *OpenWeatherProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      retries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owmPayload struct {
	Dt      *int64         `json:"dt" validate:"required"`
	Main    *owmMain       `json:"main" validate:"required"`
	Weather []owmCondition `json:"weather" validate:"required,min=1,dive"`
}

type owmMain struct {
	Temp *json.Number `json:"temp" validate:"required"`
}

type owmCondition struct {
	Main string `json:"main" validate:"required"`
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, city string) (weather.Reading, error) {
	r, err := p.fetch(ctx, city)
	if err != nil {
		return weather.Reading{}, &weather.FetchError{City: city, Provider: p.name, Err: err}
	}
	return r, nil
}

func (p *OpenWeatherProvider) fetch(ctx context.Context, city string) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, errors.New("openweather api key is not configured")
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("q", city)
		values.Set("appid", p.apiKey)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Reading{}, err
	}
	defer resp.Body.Close()

	var payload owmPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Reading{}, fmt.Errorf("%w: %v", weather.ErrMalformedResponse, err)
	}
	if err := validate.Struct(payload); err != nil {
		return weather.Reading{}, fmt.Errorf("%w: %v", weather.ErrMalformedResponse, err)
	}

	kelvin, err := decimal.NewFromString(payload.Main.Temp.String())
	if err != nil {
		return weather.Reading{}, fmt.Errorf("%w: temp %q: %v", weather.ErrMalformedResponse, payload.Main.Temp.String(), err)
	}

	return weather.Reading{
		City:        city,
		Temperature: weather.ToCelsius(kelvin),
		Condition:   payload.Weather[0].Main,
		ObservedAt:  time.Unix(*payload.Dt, 0).UTC(),
	}, nil
}
