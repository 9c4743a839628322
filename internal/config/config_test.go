package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.BlueskyAPIURL != "https://public.api.bsky.app" {
		t.Errorf("unexpected API URL %s", cfg.BlueskyAPIURL)
	}
	if !cfg.PollEnabled {
		t.Error("polling should default to enabled")
	}
	if cfg.PollInitialInterval != 30*time.Second || cfg.PollMaxInterval != 120*time.Second {
		t.Errorf("unexpected poll intervals: %v / %v", cfg.PollInitialInterval, cfg.PollMaxInterval)
	}
	if cfg.PollDisableAfter != 30*time.Minute {
		t.Errorf("unexpected staleness window %v", cfg.PollDisableAfter)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("POLL_ENABLED", "false")
	t.Setenv("POLL_INITIAL_INTERVAL_SECONDS", "5")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug, got %s", cfg.LogLevel)
	}
	if cfg.PollEnabled {
		t.Error("polling should be disabled")
	}
	if cfg.PollInitialInterval != 5*time.Second {
		t.Errorf("expected 5s, got %v", cfg.PollInitialInterval)
	}
	if cfg.RequestTimeout != 2*time.Second {
		t.Errorf("expected 2s, got %v", cfg.RequestTimeout)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	if _, err := Load(); err == nil {
		t.Error("expected invalid PORT to fail")
	}

	t.Setenv("PORT", "8080")
	t.Setenv("POLL_ENABLED", "maybe")
	if _, err := Load(); err == nil {
		t.Error("expected invalid POLL_ENABLED to fail")
	}

	t.Setenv("POLL_ENABLED", "true")
	t.Setenv("POLL_MAX_INTERVAL_SECONDS", "-1")
	if _, err := Load(); err == nil {
		t.Error("expected negative interval to fail")
	}
}
