// ABOUTME: Configuration loader for the hirescore CLI
// ABOUTME: Loads settings from environment variables with defaults

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Default endpoint of the hosted scoring API. Overridable for self-hosted
// deployments and for tests.
const defaultAPIURL = "https://api.hirescore.app"

type Config struct {
	// API
	APIURL string

	// Request policy
	RequestTimeout int // seconds, deadline per network attempt (default 70)
	Retries        int // extra attempts after the first on transient failure (default 1)
	RetryDelayMS   int // base linear backoff in milliseconds (default 1200)

	// Wake probe policy
	WakeMinInterval  int // seconds between wake probes per origin (default 120)
	WakeProbeTimeout int // seconds, wake probe deadline (default 15)

	// Client-side state
	StateDir string // directory holding the persisted key space
}

func Load() (*Config, error) {
	cfg := &Config{
		APIURL: ensureScheme(getEnv("HIRESCORE_API_URL", defaultAPIURL)),

		RequestTimeout: getEnvInt("HIRESCORE_REQUEST_TIMEOUT", 70),
		Retries:        getEnvInt("HIRESCORE_RETRIES", 1),
		RetryDelayMS:   getEnvInt("HIRESCORE_RETRY_DELAY_MS", 1200),

		WakeMinInterval:  getEnvInt("HIRESCORE_WAKE_MIN_INTERVAL", 120),
		WakeProbeTimeout: getEnvInt("HIRESCORE_WAKE_PROBE_TIMEOUT", 15),

		StateDir: getEnv("HIRESCORE_STATE_DIR", DefaultStateDir()),
	}

	if cfg.APIURL == "" {
		return nil, fmt.Errorf("HIRESCORE_API_URL must not be empty")
	}

	// Validate timing values
	for _, v := range []struct {
		name  string
		value int
		min   int
		max   int
	}{
		{"HIRESCORE_REQUEST_TIMEOUT", cfg.RequestTimeout, 1, 600},
		{"HIRESCORE_RETRIES", cfg.Retries, 0, 10},
		{"HIRESCORE_RETRY_DELAY_MS", cfg.RetryDelayMS, 0, 60000},
		{"HIRESCORE_WAKE_MIN_INTERVAL", cfg.WakeMinInterval, 0, 3600},
		{"HIRESCORE_WAKE_PROBE_TIMEOUT", cfg.WakeProbeTimeout, 1, 120},
	} {
		if v.value < v.min || v.value > v.max {
			return nil, fmt.Errorf("%s must be between %d and %d, got %d", v.name, v.min, v.max, v.value)
		}
	}

	return cfg, nil
}

// DefaultStateDir returns the default state directory following XDG spec
func DefaultStateDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hirescore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "hirescore")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// ensureScheme adds https:// prefix if the URL has no scheme
func ensureScheme(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}
	return strings.TrimRight(url, "/")
}
