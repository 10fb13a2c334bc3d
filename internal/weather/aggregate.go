package weather

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/i474232898/weather-monitor/internal/metrics"
)

// DefaultAlertThreshold is the Celsius temperature above which an alert fires.
var DefaultAlertThreshold = decimal.NewFromInt(25)

// MergeSample folds r into existing and returns the updated aggregate.
// A nil existing starts a new day. existing is not modified.
func MergeSample(existing *DailyAggregate, r Reading, alertTriggered bool) DailyAggregate {
	var agg DailyAggregate
	if existing != nil {
		agg = *existing
	} else {
		agg = DailyAggregate{
			City: r.City,
			Date: r.Date(),
		}
	}

	temps := make([]decimal.Decimal, 0, len(agg.Temperatures)+1)
	temps = append(temps, agg.Temperatures...)
	temps = append(temps, r.Temperature)

	agg.Temperatures = temps
	agg.MaxTemp, agg.MinTemp, agg.AvgTemp = summarize(temps)
	agg.DominantWeather = r.Condition
	agg.AlertTriggered = alertTriggered
	agg.CorruptSamples = false
	return agg
}

// summarize returns max, min and the average rounded to 2 decimals.
// temps must not be empty.
func summarize(temps []decimal.Decimal) (maxT, minT, avgT decimal.Decimal) {
	maxT, minT = temps[0], temps[0]
	sum := decimal.Zero
	for _, t := range temps {
		if t.GreaterThan(maxT) {
			maxT = t
		}
		if t.LessThan(minT) {
			minT = t
		}
		sum = sum.Add(t)
	}
	avgT = sum.Div(decimal.NewFromInt(int64(len(temps)))).Round(2)
	return maxT, minT, avgT
}

// Aggregator merges readings into their daily aggregate and raises alerts.
type Aggregator struct {
	store     Store
	alerts    AlertPublisher
	threshold decimal.Decimal
	locks     *keyLock
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewAggregator creates an Aggregator. alerts and m may be nil.
func NewAggregator(store Store, alerts AlertPublisher, threshold decimal.Decimal, logger *slog.Logger, m *metrics.Metrics) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		store:     store,
		alerts:    alerts,
		threshold: threshold,
		locks:     newKeyLock(),
		logger:    logger,
		metrics:   m,
	}
}

// Threshold returns the configured alert threshold in Celsius.
func (a *Aggregator) Threshold() decimal.Decimal {
	return a.threshold
}

// MergeAndPersist loads or creates the aggregate for the reading's city and
// UTC date, appends the sample and stores the result. The alert event is
// published before persistence, so a storage failure never suppresses it.
// Storage failures are logged and returned as *PersistError; nothing is retried
// apart from a single re-merge when a concurrent insert won the unique key.
func (a *Aggregator) MergeAndPersist(ctx context.Context, r Reading) (MergeResult, error) {
	date := r.Date()

	triggered := r.Temperature.GreaterThan(a.threshold)
	if triggered && a.alerts != nil {
		a.alerts.Publish(ctx, Alert{
			City:        r.City,
			Temperature: r.Temperature,
			Threshold:   a.threshold,
			ObservedAt:  r.ObservedAt,
		})
	}

	unlock := a.locks.Lock(r.City + "|" + date)
	defer unlock()

	start := time.Now()
	res, err := a.persist(ctx, r, date, triggered)
	if errors.Is(err, ErrDuplicate) {
		a.logger.Info("daily aggregate inserted concurrently, merging into existing row",
			"city", r.City, "date", date)
		res, err = a.persist(ctx, r, date, triggered)
	}
	a.metrics.ObserveMerge(err, time.Since(start))

	if err != nil {
		a.logger.Error("saving weather data failed",
			"city", r.City,
			"date", date,
			"error", err,
		)
		return MergeResult{}, err
	}

	if res.Created {
		a.logger.Info("inserted weather data", "city", r.City, "date", date)
	} else {
		a.logger.Info("updated weather data", "city", r.City, "date", date,
			"samples", len(res.Aggregate.Temperatures))
	}
	return res, nil
}

// MergeBatch merges each reading independently and returns how many were
// persisted. A failing reading never stops the rest of the batch.
func (a *Aggregator) MergeBatch(ctx context.Context, readings []Reading) int {
	ok := 0
	for _, r := range readings {
		if _, err := a.MergeAndPersist(ctx, r); err == nil {
			ok++
		}
	}
	return ok
}

func (a *Aggregator) persist(ctx context.Context, r Reading, date string, triggered bool) (MergeResult, error) {
	var res MergeResult
	err := a.store.Atomically(ctx, func(tx Store) error {
		existing, err := tx.FindDaily(ctx, r.City, date)
		if errors.Is(err, ErrNotFound) {
			agg := MergeSample(nil, r, triggered)
			if err := tx.InsertDaily(ctx, &agg); err != nil {
				return &PersistError{City: r.City, Date: date, Op: "insert", Err: err}
			}
			res = MergeResult{Aggregate: agg, Created: true, AlertTriggered: triggered}
			return nil
		}
		if err != nil {
			return &PersistError{City: r.City, Date: date, Op: "load", Err: err}
		}

		if existing.CorruptSamples {
			a.logger.Warn("stored temperatures are not a valid sequence, starting over",
				"city", r.City, "date", date)
		}

		agg := MergeSample(&existing, r, triggered)
		if err := tx.UpdateDaily(ctx, &agg); err != nil {
			return &PersistError{City: r.City, Date: date, Op: "update", Err: err}
		}
		res = MergeResult{Aggregate: agg, AlertTriggered: triggered}
		return nil
	})
	if err != nil {
		var pe *PersistError
		if !errors.As(err, &pe) {
			err = &PersistError{City: r.City, Date: date, Op: "commit", Err: err}
		}
		return MergeResult{}, err
	}
	return res, nil
}
