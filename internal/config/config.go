package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/i474232898/weather-monitor/internal/common"
)

// DefaultCities is the city list monitored when WEATHER_CITIES is unset.
var DefaultCities = []string{"Delhi", "Mumbai", "Chennai", "Bangalore", "Kolkata", "Hyderabad"}

var validate = validator.New()

// SMTPConfig holds the notification account.
type SMTPConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	Username string
	Password string
	From     string
}

// AppConfig is built once at startup and handed to every component.
type AppConfig struct {
	AppEnv   string     `validate:"oneof=dev prod"`
	LogLevel slog.Level `validate:"-"`
	Port     string     `validate:"required,numeric"`

	OpenWeatherAPIKey  string        `validate:"required"`
	OpenWeatherBaseURL string        `validate:"required,url"`
	HTTPTimeout        time.Duration `validate:"gt=0"`
	ProviderMaxRetries int           `validate:"gte=0,lte=10"`

	// Cities to track.
	Cities []string `validate:"required,min=1,dive,required"`

	// FetchInterval controls how often all cities are collected.
	FetchInterval  time.Duration   `validate:"gt=0"`
	OverlapPolicy  string          `validate:"oneof=skip allow"`
	AlertThreshold decimal.Decimal `validate:"-"`
	AlertRecipient string          `validate:"required,email"`
	AlertQueueSize int             `validate:"gt=0"`
	SMTP           SMTPConfig

	StoreDriver string `validate:"oneof=postgres sqlite memory"`
	DatabaseDSN string `validate:"required_unless=StoreDriver memory"`
}

// Load reads configuration from environment with sensible defaults.
// A .env file in the working directory is applied first when present;
// variables already set in the environment win.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level
	cfg.Port = getenvDefault("PORT", "8080")

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5/weather")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.ProviderMaxRetries, err = getenvInt("PROVIDER_MAX_RETRIES", 0); err != nil {
		return nil, err
	}

	cfg.Cities = common.SplitList(os.Getenv("WEATHER_CITIES"))
	if len(cfg.Cities) == 0 {
		cfg.Cities = append([]string(nil), DefaultCities...)
	}

	// Scheduler interval: default 5 minutes.
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	cfg.OverlapPolicy = strings.ToLower(getenvDefault("SCHEDULER_OVERLAP", "skip"))

	thresholdStr := getenvDefault("ALERT_THRESHOLD_C", "25")
	cfg.AlertThreshold, err = decimal.NewFromString(thresholdStr)
	if err != nil {
		return nil, fmt.Errorf("invalid ALERT_THRESHOLD_C: %w", err)
	}
	cfg.AlertRecipient = getenvDefault("ALERT_RECIPIENT", "user@example.com")
	if cfg.AlertQueueSize, err = getenvInt("ALERT_QUEUE_SIZE", 64); err != nil {
		return nil, err
	}

	cfg.SMTP = SMTPConfig{
		Host:     getenvDefault("SMTP_HOST", "smtp.gmail.com"),
		Port:     getenvDefault("SMTP_PORT", "587"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("ALERT_FROM"),
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	cfg.StoreDriver = strings.ToLower(getenvDefault("STORE_DRIVER", "sqlite"))
	cfg.DatabaseDSN = os.Getenv("DATABASE_DSN")
	if cfg.DatabaseDSN == "" && cfg.StoreDriver == "sqlite" {
		cfg.DatabaseDSN = "weather.db"
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
