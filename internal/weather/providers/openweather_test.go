package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-monitor/internal/weather"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc, retries int) *OpenWeatherProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewOpenWeatherProvider(srv.Client(), OpenWeatherConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		MaxRetries: retries,
	})
	// Keep retry tests fast.
	p.httpCfg.Backoff.InitialInterval = time.Millisecond
	p.httpCfg.Backoff.MaxInterval = 5 * time.Millisecond
	return p
}

func TestOpenWeatherFetchConvertsKelvin(t *testing.T) {
	var gotQuery, gotKey, gotUnits string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.URL.Query().Get("appid")
		gotUnits = r.URL.Query().Get("units")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"dt":1717236000,"main":{"temp":299.15},"weather":[{"main":"Clear"},{"main":"Haze"}]}`))
	}, 0)

	r, err := p.Fetch(context.Background(), "Delhi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery != "Delhi" || gotKey != "test-key" {
		t.Fatalf("unexpected query q=%q appid=%q", gotQuery, gotKey)
	}
	if gotUnits != "" {
		t.Fatalf("units must not be requested, got %q", gotUnits)
	}
	if r.City != "Delhi" {
		t.Fatalf("city = %q", r.City)
	}
	if r.Temperature.StringFixed(2) != "26.00" {
		t.Fatalf("temperature = %s, want 26.00", r.Temperature.StringFixed(2))
	}
	if r.Condition != "Clear" {
		t.Fatalf("condition = %q, want first entry", r.Condition)
	}
	if want := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC); !r.ObservedAt.Equal(want) {
		t.Fatalf("observedAt = %s, want %s", r.ObservedAt, want)
	}
	if r.ObservedAt.Location() != time.UTC {
		t.Fatalf("observedAt must be UTC")
	}
}

func TestOpenWeatherFetchMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty weather", `{"dt":1717236000,"main":{"temp":299.15},"weather":[]}`},
		{"missing weather", `{"dt":1717236000,"main":{"temp":299.15}}`},
		{"missing main", `{"dt":1717236000,"weather":[{"main":"Clear"}]}`},
		{"missing temp", `{"dt":1717236000,"main":{},"weather":[{"main":"Clear"}]}`},
		{"missing dt", `{"main":{"temp":299.15},"weather":[{"main":"Clear"}]}`},
		{"blank condition", `{"dt":1717236000,"main":{"temp":299.15},"weather":[{"main":""}]}`},
		{"not json", `<html>oops</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}, 0)

			_, err := p.Fetch(context.Background(), "Delhi")
			if !errors.Is(err, weather.ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
			var fe *weather.FetchError
			if !errors.As(err, &fe) || fe.City != "Delhi" || fe.Provider != "openweathermap" {
				t.Fatalf("expected FetchError for Delhi, got %#v", err)
			}
		})
	}
}

func TestOpenWeatherFetchUnknownCityIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	}, 3)

	_, err := p.Fetch(context.Background(), "Atlantis")
	var fe *weather.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !errors.Is(err, errUnexpected) {
		t.Fatalf("expected unexpected status error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("404 should not be retried, got %d calls", calls.Load())
	}
}

func TestOpenWeatherFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"dt":1717236000,"main":{"temp":273.15},"weather":[{"main":"Snow"}]}`))
	}, 3)

	r, err := p.Fetch(context.Background(), "Shimla")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if !r.Temperature.IsZero() {
		t.Fatalf("temperature = %s, want 0", r.Temperature)
	}
}

func TestOpenWeatherFetchNoRetriesByDefault(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, 0)

	_, err := p.Fetch(context.Background(), "Delhi")
	if !errors.Is(err, errServerError) {
		t.Fatalf("expected server error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestOpenWeatherFetchWithoutAPIKey(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), OpenWeatherConfig{BaseURL: srv.URL})
	if _, err := p.Fetch(context.Background(), "Delhi"); err == nil {
		t.Fatalf("expected an error without an api key")
	}
	if calls.Load() != 0 {
		t.Fatalf("no request should be sent without an api key")
	}
}

func TestOpenWeatherFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := srv.Client()
	client.Timeout = 50 * time.Millisecond
	p := NewOpenWeatherProvider(client, OpenWeatherConfig{APIKey: "k", BaseURL: srv.URL})

	start := time.Now()
	_, err := p.Fetch(context.Background(), "Delhi")
	if err == nil {
		t.Fatalf("expected a timeout error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("fetch did not respect the client timeout")
	}
}
