package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultBaseURL is the HackMyVM achievement page pattern.
const DefaultBaseURL = "https://hackmyvm.eu/achievement/?achievement={id}"

// Config holds all CLI options for a scraper run.
type Config struct {
	Start      int // 0 = resume after the last id in Output
	Output     string
	EmptyLimit int
	Verbose    bool
	BaseURL    string // URL pattern with an {id} placeholder
	UserAgent  string
	DelayMS    int
	Timeout    time.Duration
	Retries    int
	BatchSize  int
	MinStopID  int // the empty-limit stop only applies at or above this id
	MaxPages   int // 0 = unlimited
	SQLitePath string
	Cron       string
	LogFormat  string // "text" or "json"
}

// LoadEnv loads variables from a .env file into the process environment.
// A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Defaults returns a Config seeded from ACHIEVEMENTS_* environment
// variables, falling back to built-in defaults.
func Defaults() Config {
	return Config{
		Start:      envIntOr("ACHIEVEMENTS_START", 0),
		Output:     envOr("ACHIEVEMENTS_OUTPUT", "data/achievements.csv"),
		EmptyLimit: envIntOr("ACHIEVEMENTS_EMPTY_LIMIT", 10),
		Verbose:    envBoolOr("ACHIEVEMENTS_VERBOSE", false),
		BaseURL:    envOr("ACHIEVEMENTS_BASE_URL", DefaultBaseURL),
		UserAgent:  envOr("ACHIEVEMENTS_USER_AGENT", "achievement-scraper/1.0"),
		DelayMS:    envIntOr("ACHIEVEMENTS_DELAY_MS", 200),
		Timeout:    envDurationOr("ACHIEVEMENTS_TIMEOUT", 10*time.Second),
		Retries:    envIntOr("ACHIEVEMENTS_RETRIES", 0),
		BatchSize:  envIntOr("ACHIEVEMENTS_BATCH_SIZE", 50),
		MinStopID:  envIntOr("ACHIEVEMENTS_MIN_STOP_ID", 0),
		MaxPages:   envIntOr("ACHIEVEMENTS_MAX_PAGES", 0),
		SQLitePath: os.Getenv("ACHIEVEMENTS_SQLITE"),
		Cron:       os.Getenv("ACHIEVEMENTS_CRON"),
		LogFormat:  envOr("ACHIEVEMENTS_LOG_FORMAT", "text"),
	}
}

// Validate reports the first invalid option.
func (c *Config) Validate() error {
	switch {
	case c.Output == "":
		return fmt.Errorf("output path must not be empty")
	case c.EmptyLimit < 1:
		return fmt.Errorf("empty-limit must be at least 1")
	case c.BatchSize < 1:
		return fmt.Errorf("batch-size must be at least 1")
	case c.Start < 0:
		return fmt.Errorf("start must be non-negative")
	case c.DelayMS < 0:
		return fmt.Errorf("delay must be non-negative")
	case c.Retries < 0:
		return fmt.Errorf("retries must be non-negative")
	case c.MaxPages < 0:
		return fmt.Errorf("max-pages must be non-negative")
	case c.Timeout <= 0:
		return fmt.Errorf("timeout must be positive")
	case !strings.Contains(c.BaseURL, "{id}"):
		return fmt.Errorf("base URL %q has no {id} placeholder", c.BaseURL)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
