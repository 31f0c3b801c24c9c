package analysis

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/frontier/internal/domain"
)

func testCache(t *testing.T) *Cache {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	cache := NewCache(db, zerolog.Nop())
	require.NoError(t, cache.Init())
	return cache
}

func sampleReport() domain.Report {
	return domain.Report{
		ID:        "report-1",
		Symbols:   []string{"AAA", "BBB"},
		Benchmark: "SPY",
		Stats: []domain.AssetStats{
			{Symbol: "AAA", AnnualReturn: 0.12, AnnualVol: 0.20},
			{Symbol: "BBB", AnnualReturn: 0.08, AnnualVol: 0.10},
		},
		GMVP: domain.WeightVector{"AAA": 0.3, "BBB": 0.7},
	}
}

func TestCache_RoundTrip(t *testing.T) {
	cache := testCache(t)

	report := sampleReport()
	require.NoError(t, cache.Set("key-1", report, time.Hour))

	got, ok := cache.Get("key-1")
	require.True(t, ok)
	assert.Equal(t, report.ID, got.ID)
	assert.Equal(t, report.Symbols, got.Symbols)
	assert.InDelta(t, 0.3, got.GMVP["AAA"], 1e-12)
}

func TestCache_Miss(t *testing.T) {
	cache := testCache(t)

	_, ok := cache.Get("nope")
	assert.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	cache := testCache(t)

	require.NoError(t, cache.Set("key-1", sampleReport(), -time.Second))

	_, ok := cache.Get("key-1")
	assert.False(t, ok, "expired entries must not be served")
}

func TestCache_SetOverwrites(t *testing.T) {
	cache := testCache(t)

	first := sampleReport()
	require.NoError(t, cache.Set("key-1", first, time.Hour))

	second := first
	second.ID = "report-2"
	require.NoError(t, cache.Set("key-1", second, time.Hour))

	got, ok := cache.Get("key-1")
	require.True(t, ok)
	assert.Equal(t, "report-2", got.ID)
}

func TestCache_Purge(t *testing.T) {
	cache := testCache(t)

	require.NoError(t, cache.Set("stale", sampleReport(), -time.Second))
	require.NoError(t, cache.Set("fresh", sampleReport(), time.Hour))
	require.NoError(t, cache.Purge())

	_, ok := cache.Get("stale")
	assert.False(t, ok)
	_, ok = cache.Get("fresh")
	assert.True(t, ok)
}

func TestCacheKey_SymbolOrderInsensitive(t *testing.T) {
	a := cacheKey([]string{"AAA", "BBB"}, "SPY", "params")
	b := cacheKey([]string{"BBB", "AAA"}, "SPY", "params")
	assert.Equal(t, a, b)

	c := cacheKey([]string{"AAA", "BBB"}, "SPY", "other")
	assert.NotEqual(t, a, c)

	d := cacheKey([]string{"AAA", "BBB"}, "QQQ", "params")
	assert.NotEqual(t, a, d)
}
