package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Save original env
	originalDB := os.Getenv("CIRCLE_MONGODB_URI")
	defer func() {
		if originalDB != "" {
			os.Setenv("CIRCLE_MONGODB_URI", originalDB)
		} else {
			os.Unsetenv("CIRCLE_MONGODB_URI")
		}
	}()

	// Test with environment variable
	os.Setenv("CIRCLE_MONGODB_URI", "mongodb://test:27017")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Database.URI != "mongodb://test:27017" {
		t.Errorf("Expected database URI from env, got: %s", cfg.Database.URI)
	}

	// Namespace TTL defaults
	if cfg.Cache.AccountTTL != 3600 {
		t.Errorf("Expected default account TTL 3600, got: %d", cfg.Cache.AccountTTL)
	}
	if cfg.Cache.PostTTL != 1800 {
		t.Errorf("Expected default post TTL 1800, got: %d", cfg.Cache.PostTTL)
	}
	if cfg.Cache.StoryTTL != 86400 {
		t.Errorf("Expected default story TTL 86400, got: %d", cfg.Cache.StoryTTL)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{URI: "mongodb://localhost:27017", Name: "circle"},
		Cache: CacheConfig{
			Backend:          "memory",
			AccountTTL:       3600,
			PostTTL:          1800,
			StoryTTL:         86400,
			ServiceTTL:       7200,
			AdvertisementTTL: 3600,
			SweepInterval:    time.Minute,
		},
		Auth: AuthConfig{TokenTTL: time.Hour},
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Valid config should not error: %v", err)
	}

	// Test invalid cache backend
	cfg.Cache.Backend = "memcached"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for invalid cache_backend")
	}
	cfg.Cache.Backend = "memory"

	// Redis backend requires a URL
	cfg.Cache.Backend = "redis"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for redis backend without redis_url")
	}
	cfg.Cache.Backend = "memory"

	// Test invalid TTL
	cfg.Cache.PostTTL = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for non-positive post TTL")
	}
}
