package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	httpapi "github.com/i474232898/weather-monitor/internal/api/http"
	"github.com/i474232898/weather-monitor/internal/config"
	"github.com/i474232898/weather-monitor/internal/logging"
	"github.com/i474232898/weather-monitor/internal/metrics"
	"github.com/i474232898/weather-monitor/internal/notify"
	"github.com/i474232898/weather-monitor/internal/scheduler"
	"github.com/i474232898/weather-monitor/internal/store"
	"github.com/i474232898/weather-monitor/internal/weather"
	"github.com/i474232898/weather-monitor/internal/weather/providers"
)

const appName = "weather-monitor"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg := logging.New(cfg.AppEnv, cfg.LogLevel, appName)
	m := metrics.New("weather_monitor")

	// Persistence.
	var (
		db        *gorm.DB
		dailyRepo weather.Store
	)
	if cfg.StoreDriver == "memory" {
		logg.Warn("using in-memory store; daily aggregates are lost on restart")
		dailyRepo = store.NewMemoryStore()
	} else {
		db, err = store.Open(cfg.StoreDriver, cfg.DatabaseDSN, logg)
		if err != nil {
			logg.Error("db connect failed", "error", err)
			os.Exit(1)
		}
		gs, err := store.NewGormStore(db)
		if err != nil {
			logg.Error("db migrate failed", "error", err)
			os.Exit(1)
		}
		dailyRepo = gs
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provider := providers.NewOpenWeatherProvider(httpClient, providers.OpenWeatherConfig{
		APIKey:     cfg.OpenWeatherAPIKey,
		BaseURL:    cfg.OpenWeatherBaseURL,
		MaxRetries: cfg.ProviderMaxRetries,
	})

	// Alerts are queued by the aggregator and sent in the background.
	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	dispatcher := notify.NewDispatcher(mailer, cfg.AlertRecipient, cfg.AlertQueueSize, logg, m)

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	var dispatchWG sync.WaitGroup
	dispatchWG.Add(1)
	go func() {
		defer dispatchWG.Done()
		dispatcher.Run(dispatchCtx)
	}()

	collector := weather.NewCollector(provider, logg, m)
	aggregator := weather.NewAggregator(dailyRepo, dispatcher, cfg.AlertThreshold, logg, m)
	service := weather.NewService(collector, aggregator, dailyRepo, cfg.Cities, logg)

	// Scheduler that periodically fetches and stores data.
	sched := scheduler.New(service, cfg.FetchInterval, scheduler.OverlapPolicy(cfg.OverlapPolicy), logg, m)
	if err := sched.Start(); err != nil {
		logg.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          60 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	httpapi.RegisterRoutes(app, service, m, logg)

	go func() {
		logg.Info("server listening", "port", cfg.Port, "cities", cfg.Cities)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logg.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logg.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Error("error during shutdown", "error", err)
	}
	sched.Stop()

	stopDispatch()
	dispatchWG.Wait()

	if err := store.Close(db); err != nil {
		logg.Error("error closing database", "error", err)
	}
}
