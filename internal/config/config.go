package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Sampler  SamplerConfig
}

// DatabaseConfig holds database connection settings. URL may be empty, in
// which case run persistence is disabled.
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	APIPort    string
	ReportPort string
}

// SamplerConfig holds sampling defaults
type SamplerConfig struct {
	Warmup      int
	Samples     int
	Seed        int64
	FoldWorkers int
}

// Load reads configuration from a .env file (when present) and the
// environment
func Load() (*Config, error) {
	// Missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			APIPort:    envOr("API_PORT", "8080"),
			ReportPort: envOr("REPORT_PORT", "8081"),
		},
		Sampler: SamplerConfig{
			Warmup:      envInt("SAMPLER_WARMUP", 1000),
			Samples:     envInt("SAMPLER_SAMPLES", 1000),
			Seed:        int64(envInt("SAMPLER_SEED", 42)),
			FoldWorkers: envInt("FOLD_WORKERS", runtime.NumCPU()),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Sampler.Warmup <= 0 || c.Sampler.Samples <= 0 {
		return fmt.Errorf("sampler warmup and samples must be positive, got %d/%d", c.Sampler.Warmup, c.Sampler.Samples)
	}
	if c.Sampler.FoldWorkers < 1 {
		return fmt.Errorf("fold workers must be at least 1, got %d", c.Sampler.FoldWorkers)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
