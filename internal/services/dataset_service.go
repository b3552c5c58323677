package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"recibos/internal/cache"
	"recibos/internal/core"
	"recibos/internal/log"
	"recibos/internal/source"
)

// DataServiceConfig tunes the caches of a DataService.
type DataServiceConfig struct {
	// TTL is how long a loaded document stays cached (default: 5m).
	TTL time.Duration
	// MaxYears bounds the number of cached invoice years (default: 16).
	MaxYears int
	// Fallback fills the thresholds config.json leaves out.
	Fallback core.Settings
}

func DefaultDataServiceConfig() DataServiceConfig {
	return DataServiceConfig{TTL: 5 * time.Minute, MaxYears: 16}
}

// RefreshResult summarises a RefreshAll run.
type RefreshResult struct {
	Years    []int
	Invoices int
	Skipped  int
	Entities int
	Duration time.Duration
}

// DataService serves the data set of a source through per-key caches.
// Concurrent loads of the same key share one upstream call.
type DataService struct {
	src      source.Source
	fallback core.Settings
	logger   *log.Logger

	years    *cache.LRUCache[[]int]
	invoices *cache.LRUCache[core.InvoiceBatch]
	entities *cache.LRUCache[core.EntityMap]
	schedule *cache.LRUCache[[]core.ScheduleEntry]
	holidays *cache.LRUCache[core.HolidaySet]
	settings *cache.LRUCache[core.Settings]

	group singleflight.Group

	mu          sync.RWMutex
	lastRefresh time.Time
}

var _ source.Source = (*DataService)(nil)

const docKey = "doc"

func NewDataService(src source.Source, cfg DataServiceConfig) *DataService {
	def := DefaultDataServiceConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxYears <= 0 {
		cfg.MaxYears = def.MaxYears
	}
	return &DataService{
		src:      src,
		fallback: cfg.Fallback,
		logger:   log.Default(log.ComponentCache),
		years:    cache.NewLRUCache[[]int](1, cfg.TTL),
		invoices: cache.NewLRUCache[core.InvoiceBatch](cfg.MaxYears, cfg.TTL),
		entities: cache.NewLRUCache[core.EntityMap](1, cfg.TTL),
		schedule: cache.NewLRUCache[[]core.ScheduleEntry](1, cfg.TTL),
		holidays: cache.NewLRUCache[core.HolidaySet](1, cfg.TTL),
		settings: cache.NewLRUCache[core.Settings](1, cfg.TTL),
	}
}

// cached returns the value under key, loading it once on a miss.
func cached[T any](ctx context.Context, s *DataService, c *cache.LRUCache[T], group, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err, _ := s.group.Do(group+":"+key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		c.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (s *DataService) Years(ctx context.Context) ([]int, error) {
	years, err := cached(ctx, s, s.years, "years", docKey, s.src.Years)
	if err != nil {
		return nil, fmt.Errorf("load years: %w", err)
	}
	return years, nil
}

func (s *DataService) Invoices(ctx context.Context, year int) (core.InvoiceBatch, error) {
	batch, err := cached(ctx, s, s.invoices, "invoices", strconv.Itoa(year), func(ctx context.Context) (core.InvoiceBatch, error) {
		b, err := s.src.Invoices(ctx, year)
		if err == nil {
			log.NewStructuredLogger(s.logger).LogInvoicesLoaded(ctx, year, len(b.Invoices), len(b.Skipped), b.Total().String())
		}
		return b, err
	})
	if err != nil {
		return core.InvoiceBatch{Year: year}, fmt.Errorf("load invoices %d: %w", year, err)
	}
	return batch, nil
}

func (s *DataService) Entities(ctx context.Context) (core.EntityMap, error) {
	m, err := cached(ctx, s, s.entities, "entities", docKey, s.src.Entities)
	if err != nil {
		return core.EntityMap{}, fmt.Errorf("load entities: %w", err)
	}
	return m, nil
}

func (s *DataService) Schedule(ctx context.Context) ([]core.ScheduleEntry, error) {
	entries, err := cached(ctx, s, s.schedule, "schedule", docKey, s.src.Schedule)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	return entries, nil
}

func (s *DataService) Holidays(ctx context.Context) (core.HolidaySet, error) {
	hs, err := cached(ctx, s, s.holidays, "holidays", docKey, s.src.Holidays)
	if err != nil {
		return core.NewHolidaySet(), fmt.Errorf("load holidays: %w", err)
	}
	return hs, nil
}

// Settings returns config.json merged with the configured fallbacks.
func (s *DataService) Settings(ctx context.Context) (core.Settings, error) {
	st, err := cached(ctx, s, s.settings, "settings", docKey, s.src.Settings)
	if err != nil {
		return s.fallback, fmt.Errorf("load settings: %w", err)
	}
	return source.MergeSettings(st, s.fallback), nil
}

// DefaultYear picks the current year when it has invoices, else the newest year.
func (s *DataService) DefaultYear(ctx context.Context, now time.Time) int {
	years, err := s.Years(ctx)
	if err != nil || len(years) == 0 {
		return now.Year()
	}
	for _, y := range years {
		if y == now.Year() {
			return y
		}
	}
	return years[0]
}

// RefreshAll drops every cached document and reloads the data set.
func (s *DataService) RefreshAll(ctx context.Context) (RefreshResult, error) {
	start := time.Now()
	s.Clear()

	var (
		res RefreshResult
		mu  sync.Mutex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		years, err := s.Years(gctx)
		if err != nil {
			return err
		}
		yg, yctx := errgroup.WithContext(gctx)
		for _, year := range years {
			yg.Go(func() error {
				batch, err := s.Invoices(yctx, year)
				if err != nil {
					return err
				}
				mu.Lock()
				res.Invoices += len(batch.Invoices)
				res.Skipped += len(batch.Skipped)
				mu.Unlock()
				return nil
			})
		}
		if err := yg.Wait(); err != nil {
			return err
		}
		mu.Lock()
		res.Years = years
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		m, err := s.Entities(gctx)
		if err != nil {
			return err
		}
		mu.Lock()
		res.Entities = len(m)
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		_, err := s.Schedule(gctx)
		return err
	})
	g.Go(func() error {
		_, err := s.Holidays(gctx)
		return err
	})
	g.Go(func() error {
		_, err := s.Settings(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Data refresh failed", log.FieldError, err)
		return res, fmt.Errorf("refresh data set: %w", err)
	}

	res.Duration = time.Since(start)
	s.mu.Lock()
	s.lastRefresh = time.Now()
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Data set refreshed",
		log.FieldCount, len(res.Years),
		log.FieldTotal, res.Invoices,
		log.FieldSkipped, res.Skipped,
		log.FieldDuration, res.Duration.Milliseconds())
	return res, nil
}

// Clear drops every cached document.
func (s *DataService) Clear() {
	s.years.Clear()
	s.invoices.Clear()
	s.entities.Clear()
	s.schedule.Clear()
	s.holidays.Clear()
	s.settings.Clear()
}

// Cleaners returns the caches for periodic expiry by a cache.Manager.
func (s *DataService) Cleaners() []cache.Cleaner {
	return []cache.Cleaner{s.years, s.invoices, s.entities, s.schedule, s.holidays, s.settings}
}

// InvoiceCacheStats reports lookups of the per-year invoice cache.
func (s *DataService) InvoiceCacheStats() cache.Stats {
	return s.invoices.Stats()
}

// LastRefresh returns when RefreshAll last succeeded.
func (s *DataService) LastRefresh() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefresh
}
