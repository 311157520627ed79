package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/config"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/festival"
)

const (
	calendarKeyPrefix     = "festival:calendar"
	calendarScanBatchSize = 100
)

// CalendarCache stores calendar lookups keyed by snapshot version, regions and date range.
type CalendarCache interface {
	Get(ctx context.Context, regions []string, dateRange domain.DateRange) ([]domain.FestivalEvent, bool, error)
	Set(ctx context.Context, regions []string, dateRange domain.DateRange, events []domain.FestivalEvent) error
	InvalidateAll(ctx context.Context) error
}

type redisCalendarCache struct {
	client  *redis.Client
	ttl     time.Duration
	version string
}

type noopCalendarCache struct{}

// NewCalendarCache connects to redis when caching is enabled and returns a noop cache otherwise.
func NewCalendarCache(cfg config.CacheConfig) (CalendarCache, error) {
	if !cfg.Enabled {
		return &noopCalendarCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisCalendarCache(client, ttl, cfg.CalendarVersion), nil
}

func NewRedisCalendarCache(client *redis.Client, ttl time.Duration, version string) CalendarCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if version == "" {
		version = "v1"
	}
	return &redisCalendarCache{client: client, ttl: ttl, version: version}
}

func NewNoopCalendarCache() CalendarCache {
	return &noopCalendarCache{}
}

func (c *redisCalendarCache) Get(ctx context.Context, regions []string, dateRange domain.DateRange) ([]domain.FestivalEvent, bool, error) {
	key := c.key(regions, dateRange)

	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var events []domain.FestivalEvent
	if err := json.Unmarshal(payload, &events); err != nil {
		return nil, false, fmt.Errorf("decode calendar cache: %w", err)
	}
	return events, true, nil
}

func (c *redisCalendarCache) Set(ctx context.Context, regions []string, dateRange domain.DateRange, events []domain.FestivalEvent) error {
	if events == nil {
		events = []domain.FestivalEvent{}
	}
	payload, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("encode calendar cache: %w", err)
	}

	if err := c.client.Set(ctx, c.key(regions, dateRange), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisCalendarCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, calendarKeyPrefix+":", calendarScanBatchSize)
}

func (c *redisCalendarCache) key(regions []string, dateRange domain.DateRange) string {
	return fmt.Sprintf("%s:%s:%s", calendarKeyPrefix, c.version, lookupHash(regions, dateRange))
}

func (n *noopCalendarCache) Get(ctx context.Context, regions []string, dateRange domain.DateRange) ([]domain.FestivalEvent, bool, error) {
	return nil, false, nil
}

func (n *noopCalendarCache) Set(ctx context.Context, regions []string, dateRange domain.DateRange, events []domain.FestivalEvent) error {
	return nil
}

func (n *noopCalendarCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// lookupHash is independent of region order and case.
func lookupHash(regions []string, dateRange domain.DateRange) string {
	parts := make([]string, 0, len(regions))
	for _, r := range regions {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			parts = append(parts, r)
		}
	}
	sort.Strings(parts)

	raw := fmt.Sprintf("%s|%s|%s", strings.Join(parts, ","), domain.DateKey(dateRange.Start), domain.DateKey(dateRange.End))
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// CachedCalendar serves calendar lookups from the cache and falls through to the store on a
// miss. Cache failures are logged and never fail the lookup.
type CachedCalendar struct {
	next  festival.CalendarLookup
	cache CalendarCache
}

func NewCachedCalendar(next festival.CalendarLookup, cache CalendarCache) *CachedCalendar {
	if cache == nil {
		cache = NewNoopCalendarCache()
	}
	return &CachedCalendar{next: next, cache: cache}
}

func (c *CachedCalendar) Lookup(ctx context.Context, regions []string, dateRange domain.DateRange) ([]domain.FestivalEvent, error) {
	events, ok, err := c.cache.Get(ctx, regions, dateRange)
	if err != nil {
		log.Warn().Err(err).Msg("calendar cache read failed")
	}
	if ok {
		return events, nil
	}

	events, err = c.next.Lookup(ctx, regions, dateRange)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, regions, dateRange, events); err != nil {
		log.Warn().Err(err).Msg("calendar cache write failed")
	}
	return events, nil
}
