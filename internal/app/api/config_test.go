package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "POSTGRES_DSN", "REDIS_ADDR", "STOCK_BACKEND", "ORDER_STEP_TIMEOUT",
		"ORDER_UNWIND_TIMEOUT", "TEMPORAL_ADDRESS", "TEMPORAL_NAMESPACE", "TEMPORAL_DISABLED",
		"RABBITMQ_URL", "ORDER_EVENTS_EXCHANGE", "STOCK_SEED",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, StockBackendMemory, cfg.StockBackend)
	require.Equal(t, 5*time.Second, cfg.StepTimeout)
	require.Equal(t, 15*time.Second, cfg.UnwindTimeout)
	require.Equal(t, "orders.events", cfg.EventsExchange)
	require.False(t, cfg.TemporalDisabled)
}

func TestLoadConfig_PostgresDefaultWhenDSNSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRES_DSN", "postgres://localhost/checkout")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StockBackendPostgres, cfg.StockBackend)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STOCK_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("ORDER_STEP_TIMEOUT", "250ms")
	t.Setenv("ORDER_UNWIND_TIMEOUT", "3s")
	t.Setenv("TEMPORAL_DISABLED", "true")
	t.Setenv("STOCK_SEED", `{"A":10,"B":0}`)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"A": 10, "B": 0}, cfg.StockSeed)
	require.Equal(t, StockBackendRedis, cfg.StockBackend)
	require.Equal(t, 250*time.Millisecond, cfg.StepTimeout)
	require.Equal(t, 3*time.Second, cfg.UnwindTimeout)
	require.True(t, cfg.TemporalDisabled)
}

func TestLoadConfig_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown backend":      {"STOCK_BACKEND": "etcd"},
		"postgres without dsn": {"STOCK_BACKEND": "postgres"},
		"redis without addr":   {"STOCK_BACKEND": "redis"},
		"bad step timeout":     {"ORDER_STEP_TIMEOUT": "soon"},
		"zero unwind timeout":  {"ORDER_UNWIND_TIMEOUT": "0s"},
		"malformed seed":       {"STOCK_SEED": "A=10"},
		"negative seed":        {"STOCK_SEED": `{"A":-1}`},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}
