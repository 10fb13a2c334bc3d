package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-monitor/internal/weather"
)

// memoryRow keeps the encoded sample sequence so decoding behaves exactly
// like the database-backed store.
type memoryRow struct {
	agg          weather.DailyAggregate
	temperatures []byte
}

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: city|date
	data map[string]*memoryRow
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*memoryRow),
	}
}

func memoryKey(city, date string) string {
	return city + "|" + date
}

func (s *MemoryStore) FindDaily(ctx context.Context, city, date string) (weather.DailyAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(city, date)
}

func (s *MemoryStore) InsertDaily(ctx context.Context, agg *weather.DailyAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(agg)
}

func (s *MemoryStore) UpdateDaily(ctx context.Context, agg *weather.DailyAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(agg)
}

// ListDaily returns aggregates for city between from and to (inclusive), oldest first.
func (s *MemoryStore) ListDaily(ctx context.Context, city, from, to string) ([]weather.DailyAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(city, from, to), nil
}

// Atomically holds the write lock for the duration of fn.
func (s *MemoryStore) Atomically(ctx context.Context, fn func(tx weather.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(memoryTx{s: s})
}

// SetRawTemperatures overwrites the encoded sample sequence for a row.
// It exists to reproduce corrupt persisted state.
func (s *MemoryStore) SetRawTemperatures(city, date string, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.data[memoryKey(city, date)]
	if !ok {
		return weather.ErrNotFound
	}
	row.temperatures = append([]byte(nil), raw...)
	return nil
}

func (s *MemoryStore) find(city, date string) (weather.DailyAggregate, error) {
	row, ok := s.data[memoryKey(city, date)]
	if !ok {
		return weather.DailyAggregate{}, weather.ErrNotFound
	}
	return s.decode(row), nil
}

func (s *MemoryStore) list(city, from, to string) []weather.DailyAggregate {
	var result []weather.DailyAggregate
	for _, row := range s.data {
		a := row.agg
		if a.City != city {
			continue
		}
		if (from == "" || a.Date >= from) && (to == "" || a.Date <= to) {
			result = append(result, s.decode(row))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result
}

func (s *MemoryStore) decode(row *memoryRow) weather.DailyAggregate {
	a := row.agg
	temps, ok := weather.DecodeSamples(row.temperatures)
	a.Temperatures = temps
	a.CorruptSamples = !ok
	return a
}

func (s *MemoryStore) insert(agg *weather.DailyAggregate) error {
	key := memoryKey(agg.City, agg.Date)
	if _, exists := s.data[key]; exists {
		return weather.ErrDuplicate
	}
	if agg.ID == uuid.Nil {
		agg.ID = uuid.New()
	}
	now := time.Now().UTC()
	agg.CreatedAt, agg.UpdatedAt = now, now

	stored := *agg
	stored.Temperatures = nil
	s.data[key] = &memoryRow{agg: stored, temperatures: weather.EncodeSamples(agg.Temperatures)}
	return nil
}

func (s *MemoryStore) update(agg *weather.DailyAggregate) error {
	for _, row := range s.data {
		if row.agg.ID != agg.ID {
			continue
		}
		agg.UpdatedAt = time.Now().UTC()
		stored := *agg
		stored.Temperatures = nil
		stored.CreatedAt = row.agg.CreatedAt
		stored.City, stored.Date = row.agg.City, row.agg.Date
		row.agg = stored
		row.temperatures = weather.EncodeSamples(agg.Temperatures)
		return nil
	}
	return weather.ErrNotFound
}

// memoryTx is the view handed to Atomically callbacks; the caller already
// holds the store's write lock.
type memoryTx struct {
	s *MemoryStore
}

func (t memoryTx) FindDaily(ctx context.Context, city, date string) (weather.DailyAggregate, error) {
	return t.s.find(city, date)
}

func (t memoryTx) InsertDaily(ctx context.Context, agg *weather.DailyAggregate) error {
	return t.s.insert(agg)
}

func (t memoryTx) UpdateDaily(ctx context.Context, agg *weather.DailyAggregate) error {
	return t.s.update(agg)
}

func (t memoryTx) ListDaily(ctx context.Context, city, from, to string) ([]weather.DailyAggregate, error) {
	return t.s.list(city, from, to), nil
}

func (t memoryTx) Atomically(ctx context.Context, fn func(tx weather.Store) error) error {
	return fn(t)
}

var _ weather.Store = (*MemoryStore)(nil)
