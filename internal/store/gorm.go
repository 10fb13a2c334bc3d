package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/i474232898/weather-monitor/internal/common"
	"github.com/i474232898/weather-monitor/internal/weather"
)

// dailyRow is the persisted shape of a weather.DailyAggregate.
type dailyRow struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	City            string          `gorm:"size:128;not null;uniqueIndex:idx_weather_daily_city_date,priority:1"`
	Date            string          `gorm:"size:10;not null;uniqueIndex:idx_weather_daily_city_date,priority:2"`
	Temperatures    datatypes.JSON  `gorm:"not null"`
	MaxTemp         decimal.Decimal `gorm:"type:decimal(6,2)"`
	MinTemp         decimal.Decimal `gorm:"type:decimal(6,2)"`
	AvgTemp         decimal.Decimal `gorm:"type:decimal(6,2)"`
	DominantWeather string          `gorm:"size:64"`
	AlertTriggered  bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (dailyRow) TableName() string { return "weather_daily" }

func (r dailyRow) toAggregate() weather.DailyAggregate {
	temps, ok := weather.DecodeSamples(r.Temperatures)
	return weather.DailyAggregate{
		ID:              r.ID,
		City:            r.City,
		Date:            r.Date,
		Temperatures:    temps,
		MaxTemp:         r.MaxTemp,
		MinTemp:         r.MinTemp,
		AvgTemp:         r.AvgTemp,
		DominantWeather: r.DominantWeather,
		AlertTriggered:  r.AlertTriggered,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		CorruptSamples:  !ok,
	}
}

func fromAggregate(a *weather.DailyAggregate) dailyRow {
	return dailyRow{
		ID:              a.ID,
		City:            a.City,
		Date:            a.Date,
		Temperatures:    datatypes.JSON(weather.EncodeSamples(a.Temperatures)),
		MaxTemp:         a.MaxTemp,
		MinTemp:         a.MinTemp,
		AvgTemp:         a.AvgTemp,
		DominantWeather: a.DominantWeather,
		AlertTriggered:  a.AlertTriggered,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// Open connects to the configured database driver.
// driver is "postgres" or "sqlite"; dsn is passed through to the driver.
func Open(driver, dsn string, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	if log != nil {
		log.Info("connecting to database", "driver", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if driver == "sqlite" {
		// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// GormStore persists daily aggregates through gorm.
type GormStore struct {
	db *gorm.DB

	// lockRows makes FindDaily take a row lock; set inside Atomically on
	// databases with row-level locking.
	lockRows bool
}

// NewGormStore runs migrations and returns a ready store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&dailyRow{}); err != nil {
		return nil, fmt.Errorf("auto-migration failed: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) FindDaily(ctx context.Context, city, date string) (weather.DailyAggregate, error) {
	var row dailyRow
	err := s.findQuery(ctx, city, date).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return weather.DailyAggregate{}, weather.ErrNotFound
	}
	if err != nil {
		return weather.DailyAggregate{}, err
	}
	return row.toAggregate(), nil
}

func (s *GormStore) findQuery(ctx context.Context, city, date string) *gorm.DB {
	q := s.db.WithContext(ctx).Where("city = ? AND date = ?", city, date)
	if s.lockRows {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (s *GormStore) InsertDaily(ctx context.Context, agg *weather.DailyAggregate) error {
	if agg.ID == uuid.Nil {
		agg.ID = uuid.New()
	}
	row := fromAggregate(agg)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", weather.ErrDuplicate, err)
		}
		return err
	}
	agg.CreatedAt, agg.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

// UpdateDaily rewrites the mutable columns of the row identified by agg.ID.
func (s *GormStore) UpdateDaily(ctx context.Context, agg *weather.DailyAggregate) error {
	if agg.ID == uuid.Nil {
		return errors.New("update requires a row id")
	}
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(&dailyRow{}).
		Where("id = ?", agg.ID).
		Updates(map[string]any{
			"temperatures":     datatypes.JSON(weather.EncodeSamples(agg.Temperatures)),
			"max_temp":         agg.MaxTemp,
			"min_temp":         agg.MinTemp,
			"avg_temp":         agg.AvgTemp,
			"dominant_weather": agg.DominantWeather,
			"alert_triggered":  agg.AlertTriggered,
			"updated_at":       now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return weather.ErrNotFound
	}
	agg.UpdatedAt = now
	return nil
}

// ListDaily returns aggregates for city with from <= date <= to, oldest first.
// Empty bounds are open.
func (s *GormStore) ListDaily(ctx context.Context, city, from, to string) ([]weather.DailyAggregate, error) {
	q := s.db.WithContext(ctx).Where("city = ?", city)
	if from != "" {
		q = q.Where("date >= ?", from)
	}
	if to != "" {
		q = q.Where("date <= ?", to)
	}

	var rows []dailyRow
	if err := q.Order("date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]weather.DailyAggregate, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toAggregate())
	}
	return out, nil
}

// Atomically runs fn inside a database transaction. On postgres the row read
// by FindDaily stays locked until commit, so concurrent writers in other
// processes merge one after another.
func (s *GormStore) Atomically(ctx context.Context, fn func(tx weather.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, lockRows: tx.Dialector.Name() == "postgres"})
	})
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return common.HasAny(msg, "unique constraint", "duplicate key", "sqlstate 23505")
}
