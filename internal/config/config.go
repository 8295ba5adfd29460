package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string // Postgres; falls back to SQLite when empty
	SQLitePath  string
	RedisURL    string // message log and counters; in-memory when empty
	MongoURL    string // user directory; in-memory when empty
	MongoDB     string

	AllowedOrigins     []string
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting

	MaxMessageBytes int   // per-message content limit
	MaxBodyBytes    int64 // HTTP request body limit
	HistoryLimit    int   // messages returned per history fetch
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SQLitePath:      getEnv("SQLITE_PATH", "chatd.db"),
		RedisURL:        os.Getenv("REDIS_URL"),
		MongoURL:        os.Getenv("MONGO_URL"),
		MongoDB:         getEnv("MONGO_DB", "campuslink"),
		MaxMessageBytes: getEnvInt("MSG_MAX_BYTES", 2000),
		MaxBodyBytes:    int64(getEnvInt("MAX_BODY_BYTES", 16*1024)),
		HistoryLimit:    getEnvInt("HISTORY_LIMIT", 50),
	}

	// Parse allowed origins (comma-separated)
	origins := getEnv("ALLOWED_ORIGINS", "*")
	for _, entry := range strings.Split(origins, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, entry)
		}
	}

	// Parse whitelist (comma-separated IPs or CIDRs)
	if whitelist := os.Getenv("RATE_LIMIT_WHITELIST"); whitelist != "" {
		for _, entry := range strings.Split(whitelist, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.RateLimitWhitelist = append(cfg.RateLimitWhitelist, entry)
			}
		}
	}

	// In production, require real backing stores
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
		if cfg.MongoURL == "" {
			panic("MONGO_URL is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
