package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PAWPAL_EMAIL_DOMAIN", "@shelter.org")
	t.Setenv("REMINDER_INTERVAL", "1m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.EmailDomain != "shelter.org" {
		t.Fatalf("expected domain without @, got %q", cfg.EmailDomain)
	}
	if cfg.ReminderInterval != time.Minute {
		t.Fatalf("expected 1m reminder interval, got %s", cfg.ReminderInterval)
	}
	if cfg.Cache.Retry != 3 {
		t.Fatalf("expected default retry 3, got %d", cfg.Cache.Retry)
	}
	if cfg.Addr() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Addr())
	}
}

func TestLoad_RejectsNegativeRetry(t *testing.T) {
	t.Setenv("CACHE_RETRY", "-1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative retry")
	}
}
