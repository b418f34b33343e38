// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/portfolio"
	"github.com/aristath/frontier/internal/modules/search"
	"github.com/aristath/frontier/internal/modules/universe"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for inputs, outputs and the runs database (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	SplitGranularity    float64
	NumberOfFunds       int
	MaxCandidates       int // 0 = derive from available memory
	SearchWorkers       int // 0 = GOMAXPROCS
	BlendMode           string
	FundsInclude        []string
	FundsExclude        []string
	VolatilityThreshold float64 // 0 disables

	S3Bucket string // publish artifacts to S3 when set
	S3Prefix string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("FRONTIER_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("GO_PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		SplitGranularity:    getEnvAsFloat("SPLIT_GRANULARITY", 0.05),
		NumberOfFunds:       getEnvAsInt("NUMBER_OF_FUNDS", 3),
		MaxCandidates:       getEnvAsInt("MAX_CANDIDATES", search.DefaultMaxCandidates),
		SearchWorkers:       getEnvAsInt("SEARCH_WORKERS", 0),
		BlendMode:           getEnv("BLEND_MODE", string(portfolio.BlendMultiplier)),
		FundsInclude:        getEnvAsList("FUNDS_INCLUDE"),
		FundsExclude:        getEnvAsList("FUNDS_EXCLUDE"),
		VolatilityThreshold: getEnvAsFloat("VOLATILITY_THRESHOLD", 0),

		S3Bucket: getEnv("ALLOCATION_S3_BUCKET", ""),
		S3Prefix: getEnv("ALLOCATION_S3_PREFIX", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the search settings before anything is started.
func (c *Config) Validate() error {
	if _, err := portfolio.ParseBlendMode(c.BlendMode); err != nil {
		return err
	}
	if c.MaxCandidates < 0 {
		return fmt.Errorf("MAX_CANDIDATES %d must not be negative: %w", c.MaxCandidates, domain.ErrConfig)
	}
	if c.VolatilityThreshold < 0 {
		return fmt.Errorf("VOLATILITY_THRESHOLD %v must not be negative: %w", c.VolatilityThreshold, domain.ErrConfig)
	}

	// A zero ceiling is resolved later from memory; validate the rest with a placeholder.
	sc := c.SearchConfig()
	if sc.MaxCandidates == 0 {
		sc.MaxCandidates = math.MaxInt
	}
	return sc.Validate()
}

// SearchConfig builds the search parameters. MaxCandidates may be 0.
func (c *Config) SearchConfig() search.Config {
	return search.Config{
		Granularity:   c.SplitGranularity,
		FundCount:     c.NumberOfFunds,
		MaxCandidates: c.MaxCandidates,
		Workers:       c.SearchWorkers,
		BlendMode:     portfolio.BlendMode(c.BlendMode),
	}
}

// FilterConfig builds the fund universe filter
func (c *Config) FilterConfig() universe.FilterConfig {
	return universe.FilterConfig{
		Include:             c.FundsInclude,
		Exclude:             c.FundsExclude,
		VolatilityThreshold: c.VolatilityThreshold,
	}
}

// TimeseriesDir is where models.json and risk_free.json are read from
func (c *Config) TimeseriesDir() string {
	return filepath.Join(c.DataDir, "timeseries")
}

// OutputDir is where artifacts are written
func (c *Config) OutputDir() string {
	return filepath.Join(c.DataDir, "output")
}

// RunsDBPath is the runs database file
func (c *Config) RunsDBPath() string {
	return filepath.Join(c.DataDir, "runs.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.ReplaceAll(value, "_", "")); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
