package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Ledger backends
const (
	LedgerBackendMemory = "memory"
	LedgerBackendRedis  = "redis"
)

type Config struct {
	Server     ServerConfig
	Generation GenerationConfig
	Ledger     LedgerConfig
	Redis      RedisConfig
	Output     OutputConfig
	Kafka      KafkaConfig
	Observ     ObservabilityConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
	Serve    bool
}

// GenerationConfig holds the target counts, the time window and the seed of a run.
type GenerationConfig struct {
	Users        int
	Products     int
	Categories   int
	Sessions     int
	Transactions int
	TimespanDays int
	// WindowEnd is the upper bound of every generated timestamp. Fixing it is
	// required for byte-identical output across runs.
	WindowEnd time.Time
	Seed      int64
	Workers   int
	// MaxStandaloneAttempts bounds consecutive empty baskets in the top-up loop.
	MaxStandaloneAttempts int
}

type LedgerConfig struct {
	Backend string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type OutputConfig struct {
	Dir            string
	DatabaseDriver string
	DatabaseURL    string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			Env:      getEnv("ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", ""),
			Serve:    getEnvBool("SERVE", false),
		},
		Generation: GenerationConfig{
			Users:                 getEnvInt("NUM_USERS", 5000),
			Products:              getEnvInt("NUM_PRODUCTS", 2000),
			Categories:            getEnvInt("NUM_CATEGORIES", 25),
			Sessions:              getEnvInt("NUM_SESSIONS", 300000),
			Transactions:          getEnvInt("NUM_TRANSACTIONS", 100000),
			TimespanDays:          getEnvInt("TIMESPAN_DAYS", 90),
			WindowEnd:             getEnvTime("WINDOW_END", time.Now().UTC().Truncate(24*time.Hour)),
			Seed:                  getEnvInt64("SEED", 42),
			Workers:               getEnvInt("WORKERS", 1),
			MaxStandaloneAttempts: getEnvInt("MAX_STANDALONE_ATTEMPTS", 10000),
		},
		Ledger: LedgerConfig{
			Backend: getEnv("LEDGER_BACKEND", LedgerBackendMemory),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Output: OutputConfig{
			Dir:            getEnv("OUTPUT_DIR", "data"),
			DatabaseDriver: getEnv("DATABASE_DRIVER", "postgres"),
			DatabaseURL:    getEnv("DATABASE_URL", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "ecommerce-events"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
		},
	}

	log.Printf("Config loaded: env=%s, seed=%d, sessions=%d, transactions=%d",
		cfg.Server.Env, cfg.Generation.Seed, cfg.Generation.Sessions, cfg.Generation.Transactions)
	return cfg
}

// Validate rejects configurations the generator cannot run with.
func (c *Config) Validate() error {
	g := c.Generation
	positive := map[string]int{
		"NUM_USERS":               g.Users,
		"NUM_PRODUCTS":            g.Products,
		"NUM_CATEGORIES":          g.Categories,
		"TIMESPAN_DAYS":           g.TimespanDays,
		"WORKERS":                 g.Workers,
		"MAX_STANDALONE_ATTEMPTS": g.MaxStandaloneAttempts,
	}
	for _, name := range []string{"NUM_USERS", "NUM_PRODUCTS", "NUM_CATEGORIES", "TIMESPAN_DAYS", "WORKERS", "MAX_STANDALONE_ATTEMPTS"} {
		if positive[name] <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, positive[name])
		}
	}
	if g.Sessions < 0 || g.Transactions < 0 {
		return fmt.Errorf("session and transaction counts must not be negative")
	}

	switch c.Ledger.Backend {
	case LedgerBackendMemory, LedgerBackendRedis:
	default:
		return fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend)
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvInt64(key string, defaultVal int64) int64 {
	val, err := strconv.ParseInt(getEnv(key, ""), 10, 64)
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvBool(key string, defaultVal bool) bool {
	val, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvTime(key string, defaultVal time.Time) time.Time {
	val, err := time.Parse(time.RFC3339, getEnv(key, ""))
	if err != nil {
		return defaultVal
	}
	return val.UTC()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
