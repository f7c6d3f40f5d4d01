package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	assert.Equal(t, "repopulse", cfg.ServiceName)
	assert.Equal(t, ModeCLI, cfg.Mode)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, defaultShutdownTimeoutSec, cfg.ShutdownTimeoutSec)
}

func TestInitNoopWithoutEndpoint(t *testing.T) {
	cfg := DefaultConfig()

	providers, err := Init(cfg)
	require.NoError(t, err)

	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.Logger)
	require.NotNil(t, providers.Shutdown)

	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestTracingHandlerServiceAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(NewTracingHandler(inner, "repopulse", "dev", ModeCLI))

	logger.Info("hello", "key", "value")

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "repopulse", record[attrService])
	assert.Equal(t, "dev", record[attrEnv])
	assert.Equal(t, string(ModeCLI), record[attrMode])
	assert.Equal(t, "value", record["key"])
}

func TestTracingHandlerOmitsEmptyEnv(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(NewTracingHandler(inner, "repopulse", "", ModeMCP))

	logger.Info("hello")

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	_, hasEnv := record[attrEnv]
	assert.False(t, hasEnv)
	assert.Equal(t, string(ModeMCP), record[attrMode])
}

func TestNewPipelineMetrics(t *testing.T) {
	t.Parallel()

	meter := noopmetric.NewMeterProvider().Meter("test")

	pm, err := NewPipelineMetrics(meter)
	require.NoError(t, err)
	require.NotNil(t, pm)

	// Recording against no-op instruments must not panic.
	pm.RecordRun(context.Background(), "git", RunStats{
		Commits:     100,
		ParseErrors: 2,
		Fetches:     40,
		FetchErrors: 1,
		CacheHits:   60,
		CacheMisses: 40,
		Duration:    3 * time.Second,
	})
}

func TestPipelineMetricsNilReceiver(t *testing.T) {
	t.Parallel()

	var pm *PipelineMetrics

	pm.RecordRun(context.Background(), "git", RunStats{})
}

func TestPrometheusHandler(t *testing.T) {
	t.Parallel()

	handler, err := PrometheusHandler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
}

func TestParseOTLPHeaders(t *testing.T) {
	t.Parallel()

	assert.Nil(t, ParseOTLPHeaders(""))
	assert.Nil(t, ParseOTLPHeaders("no-equals-sign"))

	headers := ParseOTLPHeaders("authorization=Bearer tok, x-tenant = acme")
	require.Len(t, headers, 2)
	assert.Equal(t, "Bearer tok", headers["authorization"])
	assert.Equal(t, "acme", headers["x-tenant"])
}
