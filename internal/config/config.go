package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service settings, populated from environment variables
// with defaults. Provider credentials stay opaque strings here; adapters
// never embed them.
type Config struct {
	// NWSUserAgent identifies us to api.weather.gov, which requires a
	// contactable User-Agent in lieu of an API key.
	NWSUserAgent string

	HTTPTimeout     time.Duration
	RefreshInterval time.Duration

	// Batch policy per provider rate class.
	LimitedBatchSize  int
	LimitedBatchDelay time.Duration
	GlobalBatchSize   int
	GlobalBatchDelay  time.Duration

	// Merge thresholds.
	StormProbThreshold float64
	PowderThresholdIn  float64

	GridCacheSize int

	DBPath string
	Port   string
}

// Load reads configuration from the environment, applying defaults where
// unset.
func Load() (*Config, error) {
	cfg := &Config{
		NWSUserAgent:       getenvDefault("NWS_USER_AGENT", "powdercast (ops@powdercast.io)"),
		LimitedBatchSize:   getenvInt("BATCH_SIZE_RATE_LIMITED", 3),
		GlobalBatchSize:    getenvInt("BATCH_SIZE_GLOBAL", 6),
		StormProbThreshold: getenvFloat("STORM_PROB_THRESHOLD", 60),
		PowderThresholdIn:  getenvFloat("POWDER_THRESHOLD_IN", 6.0),
		GridCacheSize:      getenvInt("GRID_CACHE_SIZE", 256),
		DBPath:             getenvDefault("DB_PATH", "data/powdercast.db"),
		Port:               getenvDefault("PORT", "8080"),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.LimitedBatchDelay, err = getenvDuration("BATCH_DELAY_RATE_LIMITED", 1500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.GlobalBatchDelay, err = getenvDuration("BATCH_DELAY_GLOBAL", 500*time.Millisecond); err != nil {
		return nil, err
	}

	if cfg.LimitedBatchSize <= 0 || cfg.GlobalBatchSize <= 0 {
		return nil, fmt.Errorf("batch sizes must be positive")
	}
	if cfg.StormProbThreshold < 0 || cfg.StormProbThreshold > 100 {
		return nil, fmt.Errorf("STORM_PROB_THRESHOLD must be a percentage, got %v", cfg.StormProbThreshold)
	}
	if cfg.PowderThresholdIn <= 0 {
		return nil, fmt.Errorf("POWDER_THRESHOLD_IN must be positive, got %v", cfg.PowderThresholdIn)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
