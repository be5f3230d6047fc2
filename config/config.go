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
	AppName  string
	HTTPPort string

	LogLevel      string
	LogJSON       bool
	FluentEnabled bool
	FluentHost    string
	FluentPort    int

	RenderTimeout      time.Duration
	MaxBrowserSessions int
	ChromeBin          string
	UserAgent          string
	SelectorsDir       string

	MaxRetries     int
	RetryBaseDelay time.Duration
	MaxConcurrency int
	RateLimitMs    int

	StoreDriver      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RabbitMQURL    string
	EventsExchange string

	LinkTTLDays   int
	CSVOutputPath string
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		AppName:  getEnv("APP_NAME", "inmo-extractor"),
		HTTPPort: getEnv("HTTP_PORT", "4000"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogJSON:       getEnvBool("LOG_JSON", false),
		FluentEnabled: getEnvBool("FLUENT_ENABLED", false),
		FluentHost:    getEnv("FLUENT_HOST", "localhost"),
		FluentPort:    getEnvInt("FLUENT_PORT", 24224),

		RenderTimeout:      time.Duration(getEnvInt("RENDER_TIMEOUT_SEC", 30)) * time.Second,
		MaxBrowserSessions: getEnvInt("MAX_BROWSER_SESSIONS", 0),
		ChromeBin:          getEnv("CHROME_BIN", ""),
		UserAgent:          getEnv("USER_AGENT", defaultUserAgent),
		SelectorsDir:       getEnv("SELECTORS_DIR", ""),

		MaxRetries:     getEnvInt("MAX_RETRIES", 1),
		RetryBaseDelay: time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 1000)) * time.Millisecond,
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 500),

		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", "memory")),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "inmo"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "inmo123"),
		PostgresDB:       getEnv("POSTGRES_DB", "inmo"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RabbitMQURL:    getEnv("RABBITMQ_URL", ""),
		EventsExchange: getEnv("EVENTS_EXCHANGE", "properties"),

		LinkTTLDays:   getEnvInt("LINK_TTL_DAYS", 30),
		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/extracted.csv"),
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
		log.Printf("[config] %s=%q is not an integer, using %d", key, val, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
		log.Printf("[config] %s=%q is not a boolean, using %t", key, val, fallback)
	}
	return fallback
}
