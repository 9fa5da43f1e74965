package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName     string
	HTTPAddr        string
	GinMode         string
	LogLevel        string
	ShutdownTimeout time.Duration

	DataDir   string
	UploadDir string

	RedisAddr string
	CacheTTL  time.Duration

	KafkaBrokers []string
	KafkaTopic   string
	AMQPURL      string
	AMQPExchange string

	OTLPEndpoint string
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		ServiceName:     getenv("SERVICE_NAME", "shopfront"),
		HTTPAddr:        getenv("HTTP_ADDR", ":3000"),
		GinMode:         getenv("GIN_MODE", "release"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		ShutdownTimeout: getduration("SHUTDOWN_TIMEOUT", 5*time.Second),
		DataDir:         getenv("DATA_DIR", "data"),
		UploadDir:       getenv("UPLOAD_DIR", "uploads"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		CacheTTL:        getduration("CACHE_TTL", time.Minute),
		KafkaBrokers:    splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:      getenv("KAFKA_TOPIC", "order.created"),
		AMQPURL:         os.Getenv("AMQP_URL"),
		AMQPExchange:    getenv("AMQP_EXCHANGE", "order.exchange"),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

// ProductsFile is the collection file for products.
func (c Config) ProductsFile() string { return filepath.Join(c.DataDir, "products.db") }

// OrdersFile is the collection file for orders.
func (c Config) OrdersFile() string { return filepath.Join(c.DataDir, "orders.db") }

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
