// Package config provides configuration management and environment variable handling for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database    DatabaseConfig    `json:"database"`
	Server      ServerConfig      `json:"server"`
	Cache       CacheConfig       `json:"cache"`
	Logging     LoggingConfig     `json:"logging"`
	Metrics     MetricsConfig     `json:"metrics"`
	Shortener   ShortenerConfig   `json:"shortener"`
	Clickstream ClickstreamConfig `json:"clickstream"`
	GeoIP       GeoIPConfig       `json:"geoip"`
	Environment string            `json:"environment"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	CORSOrigins     []string      `json:"cors_origins"`
}

type CacheConfig struct {
	Enabled  bool          `json:"enabled"`
	RedisURL string        `json:"redis_url"`
	RedisDB  int           `json:"redis_db"`
	Password string        `json:"password"`
	LinkTTL  time.Duration `json:"link_ttl"`
}

type LoggingConfig struct {
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool `json:"enabled"`
}

// ShortenerConfig controls code generation and the public short domain
type ShortenerConfig struct {
	Domain          string `json:"domain"`
	CodeLength      int    `json:"code_length"`
	CodeMaxAttempts int    `json:"code_max_attempts"`
}

// ClickstreamConfig sizes the asynchronous click pipeline
type ClickstreamConfig struct {
	QueueSize      int `json:"queue_size"`
	Workers        int `json:"workers"`
	UAMaxLen       int `json:"ua_max_len"`
	ReferrerMaxLen int `json:"referrer_max_len"`
}

type GeoIPConfig struct {
	DBPath string `json:"db_path"`
}

// Load reads configuration from the environment, with an optional .env file.
func Load() (*Config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "clipr"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			CORSOrigins:     getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"https://clipr.app", "https://app.clipr.app"}),
		},
		Cache: CacheConfig{
			Enabled:  getEnvBool("CACHE_ENABLED", true),
			RedisURL: getEnvString("CACHE_REDIS_URL", "localhost:6379"),
			RedisDB:  getEnvInt("CACHE_REDIS_DB", 0),
			Password: getEnvString("REDIS_PASSWORD", ""),
			LinkTTL:  getEnvDuration("CACHE_LINK_TTL", 1*time.Hour),
		},
		Logging: LoggingConfig{
			Output:     getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:   getEnvString("LOG_FILE_PATH", "/var/log/clipr/app.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
		},
		Shortener: ShortenerConfig{
			Domain:          getEnvString("SHORT_DOMAIN", "https://clipr.app"),
			CodeLength:      getEnvInt("SHORT_CODE_LENGTH", 7),
			CodeMaxAttempts: getEnvInt("SHORT_CODE_MAX_ATTEMPTS", 10),
		},
		Clickstream: ClickstreamConfig{
			QueueSize:      getEnvInt("CLICKS_QUEUE_SIZE", 4096),
			Workers:        getEnvInt("CLICKS_WORKERS", 4),
			UAMaxLen:       getEnvInt("CLICKS_UA_MAX_LEN", 500),
			ReferrerMaxLen: getEnvInt("CLICKS_REFERRER_MAX_LEN", 2048),
		},
		GeoIP: GeoIPConfig{
			DBPath: getEnvString("GEOIP_DB_PATH", ""),
		},
		Environment: getEnvString("APP_ENV", "production"),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration
func Validate(cfg *Config) error {
	var errors []string

	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}

	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled")
	}

	if cfg.Shortener.Domain == "" {
		errors = append(errors, "SHORT_DOMAIN is required")
	}
	if cfg.Shortener.CodeLength < 4 || cfg.Shortener.CodeLength > 10 {
		errors = append(errors, "SHORT_CODE_LENGTH must be between 4 and 10")
	}
	if cfg.Shortener.CodeMaxAttempts <= 0 {
		errors = append(errors, "SHORT_CODE_MAX_ATTEMPTS must be positive")
	}

	if cfg.Clickstream.QueueSize <= 0 {
		errors = append(errors, "CLICKS_QUEUE_SIZE must be positive")
	}
	if cfg.Clickstream.Workers <= 0 {
		errors = append(errors, "CLICKS_WORKERS must be positive")
	}

	switch cfg.Logging.Output {
	case "stdout", "file", "both":
	default:
		errors = append(errors, "LOG_OUTPUT must be one of: stdout, file, both")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
