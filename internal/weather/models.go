package weather

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used to key daily aggregates.
const DateLayout = "2006-01-02"

// Reading is a single normalized observation for one city.
// Temperature is always in Celsius with two fractional digits.
type Reading struct {
	City        string          `json:"city"`
	Temperature decimal.Decimal `json:"temperature"`
	Condition   string          `json:"condition"`
	ObservedAt  time.Time       `json:"timestamp"` // always UTC
}

// Date returns the UTC calendar date the reading belongs to.
func (r Reading) Date() string {
	return r.ObservedAt.UTC().Format(DateLayout)
}

// DailyAggregate is the rolling per-city, per-day summary.
//
// Temperatures keeps every sample in arrival order. Max, Min and Avg are
// always derived from the full sequence. DominantWeather holds the most
// recently observed condition and AlertTriggered reflects the latest merge only.
type DailyAggregate struct {
	ID              uuid.UUID         `json:"id"`
	City            string            `json:"city"`
	Date            string            `json:"date"`
	Temperatures    []decimal.Decimal `json:"temperatures"`
	MaxTemp         decimal.Decimal   `json:"maxTemp"`
	MinTemp         decimal.Decimal   `json:"minTemp"`
	AvgTemp         decimal.Decimal   `json:"avgTemp"`
	DominantWeather string            `json:"dominantWeather"`
	AlertTriggered  bool              `json:"alertTriggered"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`

	// CorruptSamples is set by stores when the persisted sequence could not
	// be decoded as an array and Temperatures was reset.
	CorruptSamples bool `json:"-"`
}

// MergeResult describes the outcome of merging one reading.
type MergeResult struct {
	Aggregate      DailyAggregate
	Created        bool
	AlertTriggered bool
}

// Alert is emitted when a reading exceeds the configured threshold.
type Alert struct {
	City        string
	Temperature decimal.Decimal
	Threshold   decimal.Decimal
	ObservedAt  time.Time
}
