package weather

import (
	"context"
)

// Provider abstracts a current-weather data source.
// Fetch returns a *FetchError on any request, status or payload problem.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, city string) (Reading, error)
}

// Store is the contract for persisting daily aggregates.
// Implementations must enforce at most one row per (city, date) and report
// a conflicting insert as ErrDuplicate.
type Store interface {
	FindDaily(ctx context.Context, city, date string) (DailyAggregate, error)
	InsertDaily(ctx context.Context, agg *DailyAggregate) error
	UpdateDaily(ctx context.Context, agg *DailyAggregate) error
	ListDaily(ctx context.Context, city, from, to string) ([]DailyAggregate, error)

	// Atomically runs fn against a store view bound to a single transaction.
	Atomically(ctx context.Context, fn func(tx Store) error) error
}

// AlertPublisher receives threshold-exceeded events from the Aggregator.
// Publish must return promptly; it is called on the merge path.
type AlertPublisher interface {
	Publish(ctx context.Context, alert Alert)
}
