package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/i474232898/weather-monitor/internal/metrics"
	"github.com/i474232898/weather-monitor/internal/weather"
)

// DefaultInterval is used when no positive interval is configured.
const DefaultInterval = 5 * time.Minute

// OverlapPolicy decides what happens when a tick fires while the previous
// run is still in progress.
type OverlapPolicy string

const (
	// OverlapSkip drops the new tick.
	OverlapSkip OverlapPolicy = "skip"
	// OverlapAllow starts the new run alongside the old one.
	OverlapAllow OverlapPolicy = "allow"
)

// Runner performs one collect-and-store cycle.
type Runner interface {
	CollectAndStore(ctx context.Context) (weather.RunReport, error)
}

// Scheduler periodically runs the collection pipeline for the configured cities.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	interval  time.Duration
	overlap   OverlapPolicy
	inFlight  atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a new Scheduler. m may be nil.
func New(runner Runner, interval time.Duration, overlap OverlapPolicy, logger *slog.Logger, m *metrics.Metrics) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if overlap != OverlapAllow {
		overlap = OverlapSkip
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	cron := gocron.NewScheduler(time.UTC)
	if overlap == OverlapSkip {
		// A tick that finds the previous run still going is dropped, not queued.
		cron.SetMaxConcurrentJobs(1, gocron.RescheduleMode)
	}
	return &Scheduler{
		scheduler: cron,
		runner:    runner,
		interval:  interval,
		overlap:   overlap,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
		metrics:   m,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run fires immediately.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.RunOnce(s.ctx)
	})
	if err != nil {
		return err
	}

	s.logger.Info("scheduler started",
		"interval", s.interval.String(),
		"overlap", string(s.overlap),
	)
	s.scheduler.StartAsync()
	return nil
}

// RunOnce performs a single collect-and-store run. It returns false when the
// run was skipped because another one is still in progress under OverlapSkip.
// Scheduled ticks are already limited by gocron; the in-flight count covers
// direct callers and is logged under OverlapAllow.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)

	runID := uuid.NewString()
	log := s.logger.With("run_id", runID)

	if n > 1 {
		if s.overlap == OverlapSkip {
			log.Warn("scheduler: previous run still in progress, skipping tick")
			s.metrics.ObserveRun("skipped", 0)
			return false
		}
		log.Warn("scheduler: previous run still in progress, overlapping", "in_flight", n)
	}

	log.Info("scheduler: running weather fetch job")
	report, err := s.runner.CollectAndStore(ctx)
	if err != nil {
		log.Error("scheduler: weather fetch job failed", "error", err)
		s.metrics.ObserveRun("error", report.Duration)
		return true
	}

	s.metrics.ObserveRun("success", report.Duration)
	log.Info("scheduler: completed weather fetch job",
		"requested", report.Requested,
		"fetched", report.Fetched,
		"persisted", report.Persisted,
		"duration", report.Duration.String(),
	)
	return true
}

// Stop cancels in-flight runs and stops future ones.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
