package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Service wires the Collector and Aggregator to the configured city list.
type Service struct {
	collector  *Collector
	aggregator *Aggregator
	store      Store
	cities     []string
	logger     *slog.Logger
}

// NewService creates a new Service.
func NewService(collector *Collector, aggregator *Aggregator, store Store, cities []string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		collector:  collector,
		aggregator: aggregator,
		store:      store,
		cities:     cities,
		logger:     logger,
	}
}

// Cities returns the configured city list.
func (s *Service) Cities() []string {
	return s.cities
}

// FetchCurrent collects readings for all configured cities without persisting them.
func (s *Service) FetchCurrent(ctx context.Context) ([]Reading, error) {
	return s.collector.Collect(ctx, s.cities)
}

// RunReport summarizes one collect-and-merge run.
type RunReport struct {
	Requested int
	Fetched   int
	Persisted int
	Duration  time.Duration
}

// CollectAndStore fetches every configured city and merges each reading into
// its daily aggregate.
func (s *Service) CollectAndStore(ctx context.Context) (RunReport, error) {
	start := time.Now()
	report := RunReport{Requested: len(s.cities)}

	readings, err := s.collector.Collect(ctx, s.cities)
	if err != nil {
		return report, fmt.Errorf("collect: %w", err)
	}
	report.Fetched = len(readings)

	if len(readings) == 0 {
		s.logger.Warn("no successful weather readings in this run", "cities", len(s.cities))
	}

	report.Persisted = s.aggregator.MergeBatch(ctx, readings)
	report.Duration = time.Since(start)
	return report, nil
}

// DailyHistory returns the stored aggregates for a city between two dates (inclusive).
func (s *Service) DailyHistory(ctx context.Context, city string, from, to time.Time) ([]DailyAggregate, error) {
	aggs, err := s.store.ListDaily(ctx, city, from.UTC().Format(DateLayout), to.UTC().Format(DateLayout))
	if err != nil {
		return nil, err
	}
	if len(aggs) == 0 {
		return nil, ErrNotFound
	}
	return aggs, nil
}
