// Package config loads service settings from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings of the generative pipeline stages. Paths and
// per-run options come from CLI flags, not from here.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	MaxAttempts    int
	BackoffSeconds int
	BatchSize      int
	TargetCount    int
	PacingSeconds  int
	LedgerPath     string
}

// Load reads the environment, consulting a .env file when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIKey:         getEnv("OPENAI_API_KEY", ""),
		BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Model:          getEnv("TAGFORGE_MODEL", "gpt-4o-mini"),
		TimeoutSeconds: getEnvInt("TAGFORGE_TIMEOUT_SECONDS", 90),
		MaxAttempts:    getEnvInt("TAGFORGE_MAX_ATTEMPTS", 3),
		BackoffSeconds: getEnvInt("TAGFORGE_BACKOFF_SECONDS", 2),
		BatchSize:      getEnvInt("TAGFORGE_BATCH_SIZE", 50),
		TargetCount:    getEnvInt("TAGFORGE_TARGET_COUNT", 200),
		PacingSeconds:  getEnvInt("TAGFORGE_PACING_SECONDS", 1),
		LedgerPath:     getEnv("TAGFORGE_LEDGER", ""),
	}
}

// Validate checks the settings the generative stages depend on. Commands
// that never call the model (merge, analyze, report) do not call it, so a
// missing key only stops runs that would actually spend tokens.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("TAGFORGE_TIMEOUT_SECONDS must be > 0, got %d", c.TimeoutSeconds)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("TAGFORGE_MAX_ATTEMPTS must be > 0, got %d", c.MaxAttempts)
	}
	if c.BackoffSeconds < 0 {
		return fmt.Errorf("TAGFORGE_BACKOFF_SECONDS must be >= 0, got %d", c.BackoffSeconds)
	}
	if c.TargetCount <= 0 {
		return fmt.Errorf("TAGFORGE_TARGET_COUNT must be > 0, got %d", c.TargetCount)
	}
	if c.BatchSize <= 0 || c.BatchSize >= c.TargetCount {
		return fmt.Errorf("TAGFORGE_BATCH_SIZE must be between 1 and %d, got %d", c.TargetCount-1, c.BatchSize)
	}
	if c.PacingSeconds < 0 {
		return fmt.Errorf("TAGFORGE_PACING_SECONDS must be >= 0, got %d", c.PacingSeconds)
	}
	return nil
}

// Timeout is the per-call HTTP timeout.
func (c *Config) Timeout() time.Duration { return time.Duration(c.TimeoutSeconds) * time.Second }

// Backoff is the initial retry delay; it doubles per retry.
func (c *Config) Backoff() time.Duration { return time.Duration(c.BackoffSeconds) * time.Second }

// Pacing is the delay between completed paraphrase tasks.
func (c *Config) Pacing() time.Duration { return time.Duration(c.PacingSeconds) * time.Second }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}
