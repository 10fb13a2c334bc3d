package weather

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/i474232898/weather-monitor/internal/metrics"
)

var errNoProvider = errors.New("no weather provider configured")

// Collector fans provider calls out across a city list.
type Collector struct {
	provider Provider
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewCollector creates a Collector. m may be nil.
func NewCollector(provider Provider, logger *slog.Logger, m *metrics.Metrics) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		provider: provider,
		logger:   logger,
		metrics:  m,
	}
}

// Collect fetches every city concurrently and returns the successful readings
// in city-list order. Individual failures are logged and dropped; they never
// cancel sibling fetches. An error is returned only when no fetch could be
// attempted at all.
func (c *Collector) Collect(ctx context.Context, cities []string) ([]Reading, error) {
	if c.provider == nil {
		return nil, errNoProvider
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		wg      sync.WaitGroup
		results = make([]*Reading, len(cities))
	)

	for i, city := range cities {
		wg.Add(1)
		go func(i int, city string) {
			defer wg.Done()

			start := time.Now()
			r, err := c.provider.Fetch(ctx, city)
			c.metrics.ObserveFetch(city, err, time.Since(start))
			if err != nil {
				c.logger.Warn("weather fetch failed",
					"city", city,
					"provider", c.provider.Name(),
					"error", err,
				)
				return
			}
			results[i] = &r
		}(i, city)
	}

	wg.Wait()

	readings := make([]Reading, 0, len(cities))
	for _, r := range results {
		if r != nil {
			readings = append(readings, *r)
		}
	}

	c.logger.Debug("weather collection finished",
		"requested", len(cities),
		"succeeded", len(readings),
	)
	return readings, nil
}
