package api

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/Apurer/loyalty-checkout/internal/domains/orders/adapters/messaging/rabbitmq"
	"github.com/Apurer/loyalty-checkout/internal/domains/orders/application"
)

// Stock backends selectable through STOCK_BACKEND.
const (
	StockBackendMemory   = "memory"
	StockBackendPostgres = "postgres"
	StockBackendRedis    = "redis"
)

// Config carries environment-driven settings for the checkout processes.
type Config struct {
	Port              string
	PostgresDSN       string
	RedisAddr         string
	StockBackend      string
	StockSeed         map[string]int64
	StepTimeout       time.Duration
	UnwindTimeout     time.Duration
	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool
	RabbitMQURL       string
	EventsExchange    string
}

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		RedisAddr:         strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		StockBackend:      strings.ToLower(strings.TrimSpace(os.Getenv("STOCK_BACKEND"))),
		StepTimeout:       application.DefaultStepTimeout,
		UnwindTimeout:     application.DefaultUnwindTimeout,
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		RabbitMQURL:       strings.TrimSpace(os.Getenv("RABBITMQ_URL")),
		EventsExchange:    envDefault("ORDER_EVENTS_EXCHANGE", rabbitmq.DefaultExchange),
	}
	switch cfg.StockBackend {
	case "":
		cfg.StockBackend = StockBackendMemory
		if cfg.PostgresDSN != "" {
			cfg.StockBackend = StockBackendPostgres
		}
	case StockBackendMemory, StockBackendPostgres, StockBackendRedis:
	default:
		return Config{}, fmt.Errorf("STOCK_BACKEND must be one of memory, postgres, redis")
	}
	if cfg.StockBackend == StockBackendPostgres && cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("STOCK_BACKEND=postgres requires POSTGRES_DSN")
	}
	if cfg.StockBackend == StockBackendRedis && cfg.RedisAddr == "" {
		return Config{}, fmt.Errorf("STOCK_BACKEND=redis requires REDIS_ADDR")
	}
	var err error
	if cfg.StockSeed, err = stockSeedEnv("STOCK_SEED"); err != nil {
		return Config{}, err
	}
	if cfg.StepTimeout, err = durationEnv("ORDER_STEP_TIMEOUT", cfg.StepTimeout); err != nil {
		return Config{}, err
	}
	if cfg.UnwindTimeout, err = durationEnv("ORDER_UNWIND_TIMEOUT", cfg.UnwindTimeout); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// stockSeedEnv reads a JSON object of product id to available quantity,
// for example {"A":10,"B":5}.
func stockSeedEnv(key string) (map[string]int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil, nil
	}
	var seed map[string]int64
	if err := json.Unmarshal([]byte(raw), &seed); err != nil {
		return nil, fmt.Errorf("%s must be a JSON object of product id to quantity: %w", key, err)
	}
	for id, qty := range seed {
		if strings.TrimSpace(id) == "" || qty < 0 {
			return nil, fmt.Errorf("%s entries need a product id and a non-negative quantity", key)
		}
	}
	return seed, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration such as 5s", key)
	}
	return d, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
