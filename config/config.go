package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Journal drivers.
const (
	JournalFile     = "file"
	JournalPostgres = "postgres"
	JournalSQLite   = "sqlite"
	JournalNone     = "none"
)

type Config struct {
	Env             string
	Port            int
	MetricsPort     string
	DataDir         string
	StartingBalance decimal.Decimal
	TickInterval    time.Duration
	MathModelID     string

	JournalDriver string
	SQLitePath    string
	DatabaseURL   string

	RedisAddr    string
	RedisChannel string
	KafkaBrokers string
	KafkaTopic   string

	AllowedOrigins []string
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func Load() *Config {
	port := 8081
	// Prefer PORT (Render, Fly.io, Railway, etc.) then CRASH_PORT
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	} else if p := os.Getenv("CRASH_PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	}

	balance := decimal.NewFromInt(1000)
	if v, err := decimal.NewFromString(getEnv("STARTING_BALANCE", "")); err == nil && !v.IsNegative() {
		balance = v
	}

	tick := 50 * time.Millisecond
	if v, err := time.ParseDuration(getEnv("TICK_INTERVAL", "")); err == nil && v > 0 {
		tick = v
	}

	dataDir := getEnv("DATA_DIR", "data")

	driver := strings.ToLower(getEnv("JOURNAL_DRIVER", JournalFile))
	switch driver {
	case JournalFile, JournalPostgres, JournalSQLite, JournalNone:
	default:
		driver = JournalFile
	}

	var origins []string
	for _, o := range strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Config{
		Env:             getEnv("ENV", "local"),
		Port:            port,
		MetricsPort:     getEnv("METRICS_PORT", "9095"),
		DataDir:         dataDir,
		StartingBalance: balance,
		TickInterval:    tick,
		MathModelID:     getEnv("MATH_MODEL_ID", "crash_tiered"),
		JournalDriver:   driver,
		SQLitePath:      getEnv("SQLITE_PATH", dataDir+"/rounds.db"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisChannel:    getEnv("REDIS_CHANNEL", "crash_events"),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "crash_events"),
		AllowedOrigins:  origins,
	}
}
