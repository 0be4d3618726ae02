package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional, used only for outcome persistence)
	Database DatabaseConfig

	// Redis (optional, used only for the series cache)
	Redis RedisConfig

	// Market data provider
	Provider ProviderConfig

	// Ranking engine
	Engine EngineConfig

	// Scheduler
	BatchSchedule   string
	BatchConfigPath string

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	CacheTTL time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ProviderConfig holds market data provider configuration
type ProviderConfig struct {
	Name         string // yahoo, naver
	YahooBaseURL string
	NaverBaseURL string
	RateLimit    float64 // requests per second, 0 = unlimited
}

// EngineConfig holds ranking engine tuning
type EngineConfig struct {
	FetchTimeout      time.Duration // per-attempt request timeout
	MaxAttempts       int
	Workers           int // per-task fetch concurrency budget
	MinRecords        int
	LongWindowMinBars int
	StrictValidation  bool
	DefaultTopN       int
	BestPeriodsK      int
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			CacheTTL: getEnvAsDuration("CACHE_TTL", "1h"),
		},

		// Provider
		Provider: ProviderConfig{
			Name:         getEnv("PROVIDER", "yahoo"),
			YahooBaseURL: getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
			NaverBaseURL: getEnv("NAVER_BASE_URL", "https://finance.naver.com"),
			RateLimit:    getEnvAsFloat("PROVIDER_RATE_LIMIT", 5),
		},

		// Engine
		Engine: EngineConfig{
			FetchTimeout:      getEnvAsDuration("FETCH_TIMEOUT", "15s"),
			MaxAttempts:       getEnvAsInt("FETCH_MAX_ATTEMPTS", 2),
			Workers:           getEnvAsInt("FETCH_WORKERS", 3),
			MinRecords:        getEnvAsInt("FETCH_MIN_RECORDS", 2),
			LongWindowMinBars: getEnvAsInt("LONG_WINDOW_MIN_BARS", 30),
			StrictValidation:  getEnvAsBool("STRICT_VALIDATION", false),
			DefaultTopN:       getEnvAsInt("DEFAULT_TOP_N", 3),
			BestPeriodsK:      getEnvAsInt("BEST_PERIODS_K", 3),
		},

		// Scheduler
		BatchSchedule:   getEnv("BATCH_SCHEDULE", "0 30 16 * * 1-5"),
		BatchConfigPath: getEnv("BATCH_CONFIG", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Provider.Name != "yahoo" && c.Provider.Name != "naver" {
		return fmt.Errorf("PROVIDER must be one of: yahoo, naver")
	}

	if c.Engine.MaxAttempts < 1 {
		return fmt.Errorf("FETCH_MAX_ATTEMPTS must be >= 1")
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("FETCH_WORKERS must be >= 1")
	}
	if c.Engine.MinRecords < 1 {
		return fmt.Errorf("FETCH_MIN_RECORDS must be >= 1")
	}
	if c.Engine.LongWindowMinBars < 1 {
		return fmt.Errorf("LONG_WINDOW_MIN_BARS must be >= 1")
	}
	if c.Engine.DefaultTopN < 1 {
		return fmt.Errorf("DEFAULT_TOP_N must be >= 1")
	}
	if c.Engine.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
