package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config описывает настройки запуска приложения. Все значения читаются из
// переменных окружения с префиксом ORDERFLOW_; пустой DSN означает работу
// на in-memory хранилище, пустой список брокеров — работу без Kafka.
type Config struct {
	APIAddr     string
	MetricsAddr string

	PostgresDSN  string
	KafkaBrokers []string

	OrderTopic string
	StockTopic string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	IdempotencyTTL             time.Duration
	IdempotencyCleanupInterval time.Duration

	LogLevel string
	Debug    bool
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		APIAddr:                    ":8080",
		MetricsAddr:                ":9090",
		OutboxPollInterval:         2 * time.Second,
		OutboxBatchSize:            50,
		IdempotencyTTL:             24 * time.Hour,
		IdempotencyCleanupInterval: 10 * time.Minute,
		LogLevel:                   "info",
	}
}

// LoadConfig собирает конфигурацию из окружения поверх значений по умолчанию.
func LoadConfig() Config {
	cfg := DefaultConfig()

	cfg.APIAddr = getenv("ORDERFLOW_API_ADDR", cfg.APIAddr)
	cfg.MetricsAddr = getenv("ORDERFLOW_METRICS_ADDR", cfg.MetricsAddr)
	cfg.PostgresDSN = getenv("ORDERFLOW_POSTGRES_DSN", cfg.PostgresDSN)

	if brokers := os.Getenv("ORDERFLOW_KAFKA_BROKERS"); brokers != "" {
		for _, broker := range strings.Split(brokers, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}

	cfg.OrderTopic = getenv("ORDERFLOW_ORDER_TOPIC", cfg.OrderTopic)
	cfg.StockTopic = getenv("ORDERFLOW_STOCK_TOPIC", cfg.StockTopic)

	cfg.OutboxPollInterval = getenvDuration("ORDERFLOW_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = getenvInt("ORDERFLOW_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)

	cfg.IdempotencyTTL = getenvDuration("ORDERFLOW_IDEMPOTENCY_TTL", cfg.IdempotencyTTL)
	cfg.IdempotencyCleanupInterval = getenvDuration("ORDERFLOW_IDEMPOTENCY_CLEANUP_INTERVAL", cfg.IdempotencyCleanupInterval)

	cfg.LogLevel = getenv("ORDERFLOW_LOG_LEVEL", cfg.LogLevel)
	cfg.Debug = getenvBool("ORDERFLOW_DEBUG", cfg.Debug)

	return cfg
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func getenvBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
