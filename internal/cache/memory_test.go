package cache_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqoutlook/aqoutlook/internal/airquality"
	"github.com/aqoutlook/aqoutlook/internal/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testSnapshot() *airquality.Snapshot {
	sensorID := int64(9001)
	wind := 1.1
	return &airquality.Snapshot{
		City:         "almaty",
		CityDisplay:  "Almaty",
		Coords:       airquality.Coordinate{Lat: 43.238949, Lon: 76.889709},
		PM25:         42.3,
		Unit:         "µg/m³",
		AQI:          117,
		Category:     "Unhealthy for Sensitive Groups",
		RiskScore:    61,
		Confidence:   0.82,
		Trend:        "rising",
		TimestampUTC: "2026-01-10T08:00:00Z",
		SensorID:     &sensorID,
		LocationID:   77,
		LocationName: "Almaty-Central",
		Source:       airquality.SourceFresh,
		Weather:      airquality.WeatherReading{WindMS: &wind},
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "aq:current:almaty:43.2389:76.8897",
		cache.Key("Almaty", airquality.Coordinate{Lat: 43.238949, Lon: 76.889709}))
	assert.Equal(t, cache.Key("astana", airquality.Coordinate{Lat: 51.16941, Lon: 71.44907}),
		cache.Key("astana", airquality.Coordinate{Lat: 51.169392, Lon: 71.449074}))
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)}
	c := cache.NewMemoryCache(clock.Now)
	ctx := context.Background()
	snap := testSnapshot()

	require.NoError(t, c.Put(ctx, "k", snap, 10*time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
	assert.NotSame(t, snap, got)

	// Mutating the result does not affect the stored entry.
	got.PM25 = 1
	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 42.3, again.PM25)
}

func TestMemoryCache_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)}
	c := cache.NewMemoryCache(clock.Now)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", testSnapshot(), 10*time.Minute))

	clock.Advance(9*time.Minute + 59*time.Second)
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_MissAndOverwrite(t *testing.T) {
	c := cache.NewMemoryCache(nil)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	first := testSnapshot()
	second := testSnapshot()
	second.PM25 = 12

	require.NoError(t, c.Put(ctx, "k", first, 0))
	require.NoError(t, c.Put(ctx, "k", second, 0))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 12.0, got.PM25)
	assert.Equal(t, "memory", c.Backend())
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := cache.NewMemoryCache(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Put(ctx, "shared", testSnapshot(), time.Minute)
			_, _ = c.Get(ctx, "shared")
		}()
	}
	wg.Wait()

	_, err := c.Get(ctx, "shared")
	assert.NoError(t, err)
}
