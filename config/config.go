package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Origin      string
	Destination string
	StartDate   string
	WindowDays  int
	TargetPrice string

	StoreDriver      string
	SQLitePath       string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ChromeBin        string
	Headless         bool
	PageTimeout      time.Duration
	RenderWait       time.Duration
	MaxRetries       int
	FetchConcurrency int
	RateLimitMs      int

	MemcacheAddr  string
	FetchCacheTTL time.Duration

	RedisAddr         string
	RedisDB           int
	RedisStream       string
	RedisStreamMaxLen int64

	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr    string
	CORSOrigins []string

	WatchInterval time.Duration
	WatchListPath string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		Origin:      getEnv("ORIGIN", "CGH"),
		Destination: getEnv("DESTINATION", "SDU"),
		StartDate:   getEnv("START_DATE", ""),
		WindowDays:  getEnvInt("WINDOW_DAYS", 3),
		TargetPrice: getEnv("TARGET_PRICE", "600"),

		StoreDriver:      getEnv("STORE_DRIVER", "sqlite"),
		SQLitePath:       getEnv("SQLITE_PATH", "./data/meus_voos.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "sniper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "sniper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "flights"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ChromeBin:        getEnv("CHROME_BIN", ""),
		Headless:         getEnvBool("HEADLESS", true),
		PageTimeout:      time.Duration(getEnvInt("PAGE_TIMEOUT_SECONDS", 60)) * time.Second,
		RenderWait:       time.Duration(getEnvInt("RENDER_WAIT_MS", 4000)) * time.Millisecond,
		MaxRetries:       getEnvInt("MAX_RETRIES", 3),
		FetchConcurrency: getEnvInt("FETCH_CONCURRENCY", 1),
		RateLimitMs:      getEnvInt("RATE_LIMIT_MS", 2000),

		MemcacheAddr:  getEnv("MEMCACHE_ADDR", ""),
		FetchCacheTTL: time.Duration(getEnvInt("FETCH_CACHE_TTL_SECONDS", 0)) * time.Second,

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		RedisStream:       getEnv("REDIS_STREAM", "flight-deals"),
		RedisStreamMaxLen: int64(getEnvInt("REDIS_STREAM_MAXLEN", 1000)),

		KafkaBrokers: getEnvList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "flight.deals"),

		HTTPAddr:    getEnv("HTTP_ADDR", ":8090"),
		CORSOrigins: getEnvList("CORS_ORIGINS"),

		WatchInterval: time.Duration(getEnvInt("WATCH_INTERVAL_MINUTES", 360)) * time.Minute,
		WatchListPath: getEnv("WATCHLIST_PATH", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
