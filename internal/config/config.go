package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Attendance data sources.
const (
	SourceAPI      = "api"
	SourcePostgres = "postgres"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	TimeAPI  TimeAPIConfig
	Polling  PollingConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
	SSEExpiration    time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port               int
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
	SourceType         string
	Timezone           string
	HistoryDays        int
	GeolocationTimeout time.Duration
}

// TimeAPIConfig configures the upstream time-and-attendance API client
type TimeAPIConfig struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	CacheTTL time.Duration
	Retries  uint
}

// PollingConfig holds the background refresh intervals
type PollingConfig struct {
	RecordsInterval  time.Duration
	ScheduleInterval time.Duration
	StaleAfter       time.Duration
}

func Load() (*Config, error) {
	// A missing .env is fine; the environment may be set by the runtime.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "cmlabs-hris"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	historyDays, err := strconv.Atoi(getEnv("HISTORY_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_DAYS: %w", err)
	}

	geoTimeout, err := getEnvDuration("GEOLOCATION_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:               appPort,
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		SourceType:         strings.ToLower(getEnv("SOURCE_TYPE", SourceAPI)),
		Timezone:           getEnv("TIMEZONE", "Asia/Jakarta"),
		HistoryDays:        historyDays,
		GeolocationTimeout: geoTimeout,
	}

	// JWT configuration
	accessExpiration, err := getEnvDuration("JWT_ACCESS_EXPIRATION_TIME", "1h")
	if err != nil {
		return nil, err
	}
	sseExpiration, err := getEnvDuration("JWT_SSE_EXPIRATION_TIME", "5m")
	if err != nil {
		return nil, err
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: accessExpiration,
		SSEExpiration:    sseExpiration,
	}

	// Time API configuration
	apiTimeout, err := getEnvDuration("TIME_API_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getEnvDuration("TIME_API_CACHE_TTL", "10s")
	if err != nil {
		return nil, err
	}
	retries, err := strconv.ParseUint(getEnv("TIME_API_RETRIES", "3"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid TIME_API_RETRIES: %w", err)
	}

	config.TimeAPI = TimeAPIConfig{
		BaseURL:  strings.TrimRight(getEnv("TIME_API_BASE_URL", ""), "/"),
		Token:    getEnv("TIME_API_TOKEN", ""),
		Timeout:  apiTimeout,
		CacheTTL: cacheTTL,
		Retries:  uint(retries),
	}

	// Polling configuration
	recordsInterval, err := getEnvDuration("POLL_RECORDS_INTERVAL", "30s")
	if err != nil {
		return nil, err
	}
	scheduleInterval, err := getEnvDuration("POLL_SCHEDULE_INTERVAL", "60s")
	if err != nil {
		return nil, err
	}

	config.Polling = PollingConfig{
		RecordsInterval:  recordsInterval,
		ScheduleInterval: scheduleInterval,
		StaleAfter:       recordsInterval,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}

	switch c.App.SourceType {
	case SourceAPI:
		if c.TimeAPI.BaseURL == "" {
			return fmt.Errorf("TIME_API_BASE_URL is required when SOURCE_TYPE=%s", SourceAPI)
		}
	case SourcePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required when SOURCE_TYPE=%s", SourcePostgres)
		}
	default:
		return fmt.Errorf("SOURCE_TYPE must be one of: %s, %s", SourceAPI, SourcePostgres)
	}

	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	if c.App.HistoryDays < 1 {
		return fmt.Errorf("HISTORY_DAYS must be at least 1")
	}
	if c.Polling.RecordsInterval <= 0 || c.Polling.ScheduleInterval <= 0 {
		return fmt.Errorf("polling intervals must be positive")
	}
	return nil
}

// Location returns the configured business timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(env, fallback string) []string {
	value := getEnv(env, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
