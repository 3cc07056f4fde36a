// Package config provides configuration management for the simulation core.
//
// Configuration is loaded from environment variables (.env file, if present)
// with documented defaults for every tunable the job queue and simulation
// engine expose. There is no settings-database override layer here (unlike
// the broader product this core was extracted from) since the core has no
// persisted state of its own.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration for the simulation service.
type Config struct {
	LogLevel string // debug, info, warn, error
	Port     int    // HTTP demonstration server port (default 8090)
	DevMode  bool

	// Job queue tunables
	WorkerBudget    int           // max concurrently running jobs (default 5)
	JobTTL          time.Duration // how long a terminal job is kept before sweeping (default 24h)
	CacheTTL        time.Duration // how long a cached result is valid (default 2h)
	SweepInterval   time.Duration // how often the sweeper runs (default 1m)
	MaxTrialsPerRun int           // SIM_MAX_TRIALS (default 2000); not passed on, request validation does not cap num_trials with it

	// Simulation tunables

	// AgentBatchSize is read from SIM_AGENT_BATCH_SIZE (default 100) and
	// checked to be >= 1. It is not passed on: the simulation's agent worker
	// pool hands each cohort's agents to its workers without batching.
	AgentBatchSize int
}

// getEnv retrieves an environment variable value, returning a fallback if unset or empty.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// Load reads configuration from environment variables.
//
// Loads a .env file if present, then reads environment variables with
// sensible defaults for every tunable.
func Load() (*Config, error) {
	// Ignore error: .env is optional, absence is not a failure.
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:        getEnv("SIM_LOG_LEVEL", "info"),
		Port:            getEnvInt("SIM_PORT", 8090),
		DevMode:         getEnvBool("SIM_DEV_MODE", false),
		WorkerBudget:    getEnvInt("SIM_WORKER_BUDGET", 5),
		JobTTL:          getEnvDuration("SIM_JOB_TTL", 24*time.Hour),
		CacheTTL:        getEnvDuration("SIM_CACHE_TTL", 2*time.Hour),
		SweepInterval:   getEnvDuration("SIM_SWEEP_INTERVAL", time.Minute),
		MaxTrialsPerRun: getEnvInt("SIM_MAX_TRIALS", 2000),
		AgentBatchSize:  getEnvInt("SIM_AGENT_BATCH_SIZE", 100),
	}

	if cfg.WorkerBudget < 1 {
		return nil, fmt.Errorf("SIM_WORKER_BUDGET must be >= 1, got %d", cfg.WorkerBudget)
	}
	if cfg.AgentBatchSize < 1 {
		return nil, fmt.Errorf("SIM_AGENT_BATCH_SIZE must be >= 1, got %d", cfg.AgentBatchSize)
	}

	return cfg, nil
}
