package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

var configKeys = []string{
	"APP_ENV", "LOG_LEVEL", "PORT",
	"OPENWEATHER_API_KEY", "OPENWEATHER_BASE_URL", "HTTP_TIMEOUT", "PROVIDER_MAX_RETRIES",
	"WEATHER_CITIES", "FETCH_INTERVAL", "SCHEDULER_OVERLAP",
	"ALERT_THRESHOLD_C", "ALERT_RECIPIENT", "ALERT_QUEUE_SIZE", "ALERT_FROM",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD",
	"STORE_DRIVER", "DATABASE_DSN",
}

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
	t.Setenv("OPENWEATHER_API_KEY", "test-key")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AppEnv != "dev" || cfg.Port != "8080" || cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected app settings: %+v", cfg)
	}
	if len(cfg.Cities) != len(DefaultCities) || cfg.Cities[0] != "Delhi" {
		t.Fatalf("cities = %v", cfg.Cities)
	}
	if cfg.FetchInterval != 5*time.Minute || cfg.HTTPTimeout != 10*time.Second {
		t.Fatalf("intervals = %s / %s", cfg.FetchInterval, cfg.HTTPTimeout)
	}
	if cfg.OverlapPolicy != "skip" {
		t.Fatalf("overlap = %q", cfg.OverlapPolicy)
	}
	if cfg.AlertThreshold.String() != "25" || cfg.AlertRecipient != "user@example.com" {
		t.Fatalf("alert settings = %s %s", cfg.AlertThreshold, cfg.AlertRecipient)
	}
	if cfg.StoreDriver != "sqlite" || cfg.DatabaseDSN != "weather.db" {
		t.Fatalf("store = %s %s", cfg.StoreDriver, cfg.DatabaseDSN)
	}
	if cfg.ProviderMaxRetries != 0 {
		t.Fatalf("retries = %d", cfg.ProviderMaxRetries)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_CITIES", " Pune, Jaipur ,,Goa ")
	t.Setenv("FETCH_INTERVAL", "30s")
	t.Setenv("SCHEDULER_OVERLAP", "ALLOW")
	t.Setenv("ALERT_THRESHOLD_C", "30.5")
	t.Setenv("ALERT_RECIPIENT", "ops@example.com")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SMTP_USERNAME", "bot@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(cfg.Cities, "|") != "Pune|Jaipur|Goa" {
		t.Fatalf("cities = %v", cfg.Cities)
	}
	if cfg.FetchInterval != 30*time.Second || cfg.OverlapPolicy != "allow" {
		t.Fatalf("scheduler = %s %s", cfg.FetchInterval, cfg.OverlapPolicy)
	}
	if cfg.AlertThreshold.String() != "30.5" || cfg.AlertRecipient != "ops@example.com" {
		t.Fatalf("alert settings = %s %s", cfg.AlertThreshold, cfg.AlertRecipient)
	}
	if cfg.StoreDriver != "memory" || cfg.DatabaseDSN != "" {
		t.Fatalf("store = %s %q", cfg.StoreDriver, cfg.DatabaseDSN)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("log level = %v", cfg.LogLevel)
	}
	if cfg.SMTP.From != "bot@example.com" {
		t.Fatalf("smtp from should default to username, got %q", cfg.SMTP.From)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing api key", map[string]string{"OPENWEATHER_API_KEY": ""}},
		{"bad overlap", map[string]string{"SCHEDULER_OVERLAP": "queue"}},
		{"bad interval", map[string]string{"FETCH_INTERVAL": "often"}},
		{"zero interval", map[string]string{"FETCH_INTERVAL": "0s"}},
		{"bad threshold", map[string]string{"ALERT_THRESHOLD_C": "hot"}},
		{"bad recipient", map[string]string{"ALERT_RECIPIENT": "not-an-email"}},
		{"bad driver", map[string]string{"STORE_DRIVER": "mongo"}},
		{"postgres without dsn", map[string]string{"STORE_DRIVER": "postgres"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad env", map[string]string{"APP_ENV": "staging"}},
		{"non-numeric retries", map[string]string{"PROVIDER_MAX_RETRIES": "three"}},
		{"non-numeric queue size", map[string]string{"ALERT_QUEUE_SIZE": "lots"}},
		{"too many retries", map[string]string{"PROVIDER_MAX_RETRIES": "11"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
