package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Database  DatabaseConfig
	Cache     CacheConfig
	Server    ServerConfig
	Auth      AuthConfig
	Logging   LoggingConfig
	Telemetry TelemetryConfig
}

// DatabaseConfig holds MongoDB configuration
type DatabaseConfig struct {
	URI  string
	Name string
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	// Backend selects the cache implementation: "memory" (default) or "redis"
	Backend  string
	RedisURL string

	// Per-namespace TTLs, seconds
	AccountTTL       int
	PostTTL          int
	StoryTTL         int
	ServiceTTL       int
	AdvertisementTTL int

	// SweepInterval is how often the memory backend reclaims expired keys
	SweepInterval time.Duration

	// PreciseAccount / PrecisePost enable per-key invalidation for the
	// high-traffic namespaces; the rest use coarse namespace clears
	PreciseAccount bool
	PrecisePost    bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
	Host string
}

// AuthConfig holds token issuance configuration
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled           bool
	JaegerURL         string
	PrometheusEnabled bool
	PrometheusPort    int
	ServiceName       string
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	setDefaults()

	viper.SetEnvPrefix("CIRCLE")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.circle")
	viper.AddConfigPath("/etc/circle")

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found; this is OK if we have env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			URI:  getString("mongodb_uri", "mongodb://127.0.0.1:27017"),
			Name: getString("mongodb_name", "circle"),
		},
		Cache: CacheConfig{
			Backend:          getString("cache_backend", "memory"),
			RedisURL:         getString("redis_url", ""),
			AccountTTL:       getInt("cache_account_ttl", 3600),
			PostTTL:          getInt("cache_post_ttl", 1800),
			StoryTTL:         getInt("cache_story_ttl", 86400),
			ServiceTTL:       getInt("cache_service_ttl", 7200),
			AdvertisementTTL: getInt("cache_advertisement_ttl", 3600),
			SweepInterval:    GetDuration("cache_sweep_interval", time.Minute),
			PreciseAccount:   getBool("cache_precise_account", true),
			PrecisePost:      getBool("cache_precise_post", true),
		},
		Server: ServerConfig{
			Port: getInt("http_server_port", 8080),
			Host: getString("http_server_host", "0.0.0.0"),
		},
		Auth: AuthConfig{
			JWTSecret: getString("jwt_secret", ""),
			TokenTTL:  GetDuration("token_ttl", 72*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getString("log_level", "INFO"),
			Format: getString("log_format", "json"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           getBool("telemetry_enabled", false),
			JaegerURL:         getString("jaeger_url", ""),
			PrometheusEnabled: getBool("prometheus_enabled", false),
			PrometheusPort:    getInt("prometheus_port", 9090),
			ServiceName:       getString("service_name", "circle-api"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("mongodb_uri", "mongodb://127.0.0.1:27017")
	viper.SetDefault("mongodb_name", "circle")
	viper.SetDefault("cache_backend", "memory")
	viper.SetDefault("http_server_port", 8080)
	viper.SetDefault("http_server_host", "0.0.0.0")
	viper.SetDefault("log_level", "INFO")
	viper.SetDefault("log_format", "json")
	viper.SetDefault("prometheus_port", 9090)
	viper.SetDefault("service_name", "circle-api")
}

func getString(key, defaultValue string) string {
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	// Also check environment variable directly
	if val := os.Getenv("CIRCLE_" + toEnvKey(key)); val != "" {
		return val
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	if val := os.Getenv("CIRCLE_" + toEnvKey(key)); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	if val := os.Getenv("CIRCLE_" + toEnvKey(key)); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultValue
}

func toEnvKey(key string) string {
	// Convert snake_case to UPPER_SNAKE_CASE
	result := ""
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z':
			result += string(r - 32)
		case r == '-':
			result += "_"
		default:
			result += string(r)
		}
	}
	return result
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URI == "" {
		return fmt.Errorf("mongodb_uri is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("mongodb_name is required")
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache_backend must be memory or redis")
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisURL == "" {
		return fmt.Errorf("redis_url is required when cache_backend is redis")
	}
	for name, ttl := range map[string]int{
		"cache_account_ttl":       c.Cache.AccountTTL,
		"cache_post_ttl":          c.Cache.PostTTL,
		"cache_story_ttl":         c.Cache.StoryTTL,
		"cache_service_ttl":       c.Cache.ServiceTTL,
		"cache_advertisement_ttl": c.Cache.AdvertisementTTL,
	} {
		if ttl <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Cache.SweepInterval <= 0 {
		return fmt.Errorf("cache_sweep_interval must be positive")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive")
	}
	return nil
}

// GetDuration returns a duration from config key, with default
func GetDuration(key string, defaultValue time.Duration) time.Duration {
	if viper.IsSet(key) {
		return viper.GetDuration(key)
	}
	if val := os.Getenv("CIRCLE_" + toEnvKey(key)); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultValue
}
