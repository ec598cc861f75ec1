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
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Contract discovery
	Discovery DiscoveryConfig

	// Type inference tunables
	Inference InferenceConfig

	// Synthetic generation
	Generator GeneratorConfig

	// Upstream fetch
	Fetch FetchConfig

	// Database (optional snapshot store)
	Database DatabaseConfig

	// Redis (optional fetch cache)
	Redis RedisConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DiscoveryConfig holds contract discovery configuration
type DiscoveryConfig struct {
	// WatchRoot is the directory tree the frontend expects files under
	WatchRoot string
	// RegistryPath points at the capability registry YAML
	RegistryPath string
}

// InferenceConfig holds type inference tunables.
// The threshold and sample caps have no documented derivation, so they are
// exposed as configuration instead of constants.
type InferenceConfig struct {
	MatchThreshold  float64 // fraction of samples that must match a pattern set
	MaxSampleRows   int     // rows read from a file during discovery
	MaxScoredRows   int     // rows used for pattern scoring
	MaxSampleValues int     // sample values retained per column
}

// GeneratorConfig holds synthetic data generator configuration
type GeneratorConfig struct {
	// AtomicWrites switches the generator to write-to-temp + rename.
	// Default false: the pipeline overwrites files in place.
	AtomicWrites bool
}

// FetchConfig holds upstream fetch configuration
type FetchConfig struct {
	Timeout        time.Duration
	MaxRetries     int
	RequestsPerSec float64
	CacheTTL       time.Duration
}

// DatabaseConfig holds PostgreSQL configuration for the snapshot store.
// An empty URL disables persistence entirely.
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Discovery: DiscoveryConfig{
			WatchRoot:    getEnv("DATA_ROOT", "./data"),
			RegistryPath: getEnv("CAPABILITY_CONFIG", "config/capabilities.yaml"),
		},

		Inference: InferenceConfig{
			MatchThreshold:  getEnvAsFloat("INFERENCE_MATCH_THRESHOLD", 0.8),
			MaxSampleRows:   getEnvAsInt("INFERENCE_MAX_SAMPLE_ROWS", 1000),
			MaxScoredRows:   getEnvAsInt("INFERENCE_MAX_SCORED_ROWS", 100),
			MaxSampleValues: getEnvAsInt("INFERENCE_MAX_SAMPLE_VALUES", 5),
		},

		Generator: GeneratorConfig{
			AtomicWrites: getEnvAsBool("GENERATOR_ATOMIC_WRITES", false),
		},

		Fetch: FetchConfig{
			Timeout:        getEnvAsDuration("FETCH_TIMEOUT", "30s"),
			MaxRetries:     getEnvAsInt("FETCH_MAX_RETRIES", 3),
			RequestsPerSec: getEnvAsFloat("FETCH_REQUESTS_PER_SEC", 5),
			CacheTTL:       getEnvAsDuration("FETCH_CACHE_TTL", "10m"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Discovery.WatchRoot == "" {
		return fmt.Errorf("DATA_ROOT is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Inference.MatchThreshold <= 0 || c.Inference.MatchThreshold > 1 {
		return fmt.Errorf("INFERENCE_MATCH_THRESHOLD must be in (0, 1]")
	}

	if c.Inference.MaxSampleRows <= 0 || c.Inference.MaxScoredRows <= 0 {
		return fmt.Errorf("inference sample caps must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

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
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
