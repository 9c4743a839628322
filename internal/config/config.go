package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// LogLevel is the slog level name (debug, info, warn, error).
	LogLevel string

	// BlueskyAPIURL is the AppView base URL.
	BlueskyAPIURL string

	// RequestTimeout bounds each individual upstream fetch.
	RequestTimeout time.Duration

	// PollEnabled turns the live-update poller on or off globally.
	PollEnabled bool

	// PollInitialInterval is the delay between polls while a thread is
	// active.
	PollInitialInterval time.Duration

	// PollMaxInterval caps poll backoff growth.
	PollMaxInterval time.Duration

	// PollDisableAfter is the staleness window after which automatic
	// polling stops.
	PollDisableAfter time.Duration

	// PublicURL is where the app is hosted, used for canonical links.
	PublicURL string
}

// Load reads configuration from environment variables with sensible
// defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                8080,
		LogLevel:            "info",
		BlueskyAPIURL:       "https://public.api.bsky.app",
		RequestTimeout:      10 * time.Second,
		PollEnabled:         true,
		PollInitialInterval: 30 * time.Second,
		PollMaxInterval:     120 * time.Second,
		PollDisableAfter:    30 * time.Minute,
		PublicURL:           "https://sklonger.app",
	}

	var err error
	if cfg.Port, err = intEnv("PORT", cfg.Port); err != nil {
		return nil, err
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BLUESKY_API_URL"); v != "" {
		cfg.BlueskyAPIURL = v
	}
	if cfg.RequestTimeout, err = secondsEnv("REQUEST_TIMEOUT_SECONDS", cfg.RequestTimeout); err != nil {
		return nil, err
	}
	if cfg.PollEnabled, err = boolEnv("POLL_ENABLED", cfg.PollEnabled); err != nil {
		return nil, err
	}
	if cfg.PollInitialInterval, err = secondsEnv("POLL_INITIAL_INTERVAL_SECONDS", cfg.PollInitialInterval); err != nil {
		return nil, err
	}
	if cfg.PollMaxInterval, err = secondsEnv("POLL_MAX_INTERVAL_SECONDS", cfg.PollMaxInterval); err != nil {
		return nil, err
	}
	if cfg.PollDisableAfter, err = secondsEnv("POLL_DISABLE_AFTER_SECONDS", cfg.PollDisableAfter); err != nil {
		return nil, err
	}
	if v := os.Getenv("PUBLIC_URL"); v != "" {
		cfg.PublicURL = v
	}

	return cfg, nil
}

func intEnv(name string, def int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, v, err)
	}
	return parsed, nil
}

func secondsEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("invalid %s value %q", name, v)
	}
	return time.Duration(parsed) * time.Second, nil
}

func boolEnv(name string, def bool) (bool, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	switch v {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s value %q", name, v)
	}
}
