package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/config"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/domain"
)

var (
	nov     = domain.NewDateRange(time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), 14)
	diwali  = domain.FestivalEvent{FestivalID: "diwali-2026", Name: "Diwali", StartDate: time.Date(2026, 11, 8, 0, 0, 0, 0, time.UTC), Regions: []string{"all"}, DemandMultipliers: map[string]float64{"sweets": 2.5}, DurationDays: 5}
	regions = []string{"north", "bihar"}
)

type countingLookup struct {
	calls  int
	events []domain.FestivalEvent
	err    error
}

func (l *countingLookup) Lookup(ctx context.Context, regions []string, dateRange domain.DateRange) ([]domain.FestivalEvent, error) {
	l.calls++
	return l.events, l.err
}

func TestLookupHash_IgnoresRegionOrderAndCase(t *testing.T) {
	a := lookupHash([]string{"North", "bihar"}, nov)
	b := lookupHash([]string{"bihar ", "north"}, nov)
	c := lookupHash([]string{"bihar"}, nov)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, lookupHash(regions, domain.NewDateRange(nov.Start, 7)))
}

func TestRedisCalendarCache_Hit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCalendarCache(client, time.Hour, "v3").(*redisCalendarCache)
	key := c.key(regions, nov)
	assert.Contains(t, key, "festival:calendar:v3:")

	payload, err := json.Marshal([]domain.FestivalEvent{diwali})
	require.NoError(t, err)
	mock.ExpectGet(key).SetVal(string(payload))

	events, ok, err := c.Get(context.Background(), regions, nov)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, events, 1)
	assert.Equal(t, "diwali-2026", events[0].FestivalID)
	assert.Equal(t, 2.5, events[0].DemandMultipliers["sweets"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCalendarCache_Miss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCalendarCache(client, time.Hour, "v1").(*redisCalendarCache)
	mock.ExpectGet(c.key(regions, nov)).RedisNil()

	events, ok, err := c.Get(context.Background(), regions, nov)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, events)
}

func TestRedisCalendarCache_Set(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCalendarCache(client, 30*time.Minute, "v1").(*redisCalendarCache)

	payload, err := json.Marshal([]domain.FestivalEvent{diwali})
	require.NoError(t, err)
	mock.ExpectSet(c.key(regions, nov), payload, 30*time.Minute).SetVal("OK")

	require.NoError(t, c.Set(context.Background(), regions, nov, []domain.FestivalEvent{diwali}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCalendarCache_InvalidateAll(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCalendarCache(client, time.Hour, "v1")

	mock.ExpectScan(0, "festival:calendar:*", calendarScanBatchSize).SetVal([]string{"festival:calendar:v1:abc", "festival:calendar:v0:def"}, 0)
	mock.ExpectDel("festival:calendar:v1:abc", "festival:calendar:v0:def").SetVal(2)

	require.NoError(t, c.InvalidateAll(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedCalendar_HitSkipsStore(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCalendarCache(client, time.Hour, "v1")
	payload, _ := json.Marshal([]domain.FestivalEvent{diwali})
	mock.ExpectGet(c.(*redisCalendarCache).key(regions, nov)).SetVal(string(payload))

	store := &countingLookup{}
	events, err := NewCachedCalendar(store, c).Lookup(context.Background(), regions, nov)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Zero(t, store.calls)
}

func TestCachedCalendar_MissFillsCache(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCalendarCache(client, time.Hour, "v1")
	key := c.(*redisCalendarCache).key(regions, nov)
	payload, _ := json.Marshal([]domain.FestivalEvent{diwali})

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, payload, time.Hour).SetVal("OK")

	store := &countingLookup{events: []domain.FestivalEvent{diwali}}
	events, err := NewCachedCalendar(store, c).Lookup(context.Background(), regions, nov)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 1, store.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedCalendar_CacheErrorsFallThrough(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCalendarCache(client, time.Hour, "v1")
	key := c.(*redisCalendarCache).key(regions, nov)
	payload, _ := json.Marshal([]domain.FestivalEvent{diwali})

	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	mock.ExpectSet(key, payload, time.Hour).SetErr(errors.New("connection refused"))

	store := &countingLookup{events: []domain.FestivalEvent{diwali}}
	events, err := NewCachedCalendar(store, c).Lookup(context.Background(), regions, nov)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 1, store.calls)
}

func TestCachedCalendar_StoreErrorIsReturned(t *testing.T) {
	store := &countingLookup{err: errors.New("db down")}
	_, err := NewCachedCalendar(store, nil).Lookup(context.Background(), regions, nov)
	assert.EqualError(t, err, "db down")
}

func TestNewCalendarCache_DisabledIsNoop(t *testing.T) {
	c, err := NewCalendarCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)

	events, ok, err := c.Get(context.Background(), regions, nov)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, events)
	assert.NoError(t, c.Set(context.Background(), regions, nov, nil))
	assert.NoError(t, c.InvalidateAll(context.Background()))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache.local", RedisPort: "6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache.local:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@10.0.0.5:6379/1"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 1, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)
}
