package telemetry_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LegoTypes/synthformula/internal/classify"
	"github.com/LegoTypes/synthformula/internal/compilecache"
	"github.com/LegoTypes/synthformula/internal/telemetry"
)

func TestMetricsExposesCacheAndCycleObservations(t *testing.T) {
	m := telemetry.New(nil)
	m.ObserveCacheStats(compilecache.Stats{Entries: 3, Hits: 10, Misses: 2, HitRate: 10.0 / 12.0, Capacity: 100})
	m.ObserveCycleDuration(0.25)
	m.ObserveSensorDuration("panel", 0.01)
	m.RecordBreakerTrip("panel", classify.CategoryMissingDependency)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	text := string(body)

	require.Contains(t, text, "synthformula_compile_cache_entries 3")
	require.Contains(t, text, "synthformula_cycle_duration_seconds")
	require.Contains(t, text, `synthformula_sensor_evaluation_duration_seconds_count{sensor="panel"} 1`)
	require.Contains(t, text, `synthformula_breaker_trips_total{category="missing_dependency",sensor="panel"} 1`)
}
