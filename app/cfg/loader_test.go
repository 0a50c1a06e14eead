package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	// Test default version
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		CacheDir:           "./data/trends_cache",
		CacheTTLHours:      24,
		CacheMaxSizeMB:     500,
		MinRequestInterval: 3.0,
		BaseBackoffDelay:   15.0,
		MaxBackoffDelay:    120.0,
		RetryCount:         3,
		BatchSize:          5,
		Port:               "8080",
		WorkerCount:        2,
		SchedulerInterval:  60,
		UserAgent:          "Test Agent",
		Version:            "test-version",
	}

	if cfg.CacheTTLHours != 24 {
		t.Errorf("Expected cache TTL 24, got %d", cfg.CacheTTLHours)
	}
	if cfg.MaxBackoffDelay <= cfg.BaseBackoffDelay {
		t.Error("Max backoff delay should exceed base delay")
	}
	if cfg.ForceRefresh {
		t.Error("ForceRefresh should default to false")
	}
	if cfg.UnsafeConcurrency {
		t.Error("UnsafeConcurrency must never default to true")
	}
}

func TestApplyTimezone(t *testing.T) {
	if err := applyTimezone("UTC"); err != nil {
		t.Errorf("UTC should be a valid timezone: %v", err)
	}

	if err := applyTimezone("Not/AZone"); err == nil {
		t.Error("Expected error for invalid timezone")
	}
}
