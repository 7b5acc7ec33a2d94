package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_PORT", "DATABASE_URL", "DEDUPE_TTL", "REFRESH_LOOKAHEAD", "RATE_LIMIT_PER_MIN", "TIMEZONE"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.HTTPPort != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.HTTPPort)
	}
	if cfg.DatabaseURL != "sqlite://./app.db" {
		t.Errorf("unexpected database url %s", cfg.DatabaseURL)
	}
	if cfg.DedupeTTL != 10*time.Minute || cfg.RefreshLookahead != 48*time.Hour {
		t.Errorf("unexpected durations %s / %s", cfg.DedupeTTL, cfg.RefreshLookahead)
	}
	if cfg.RateLimitPerMin != 30 {
		t.Errorf("expected 30 per minute, got %d", cfg.RateLimitPerMin)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("DEDUPE_TTL", "90s")
	t.Setenv("RATE_LIMIT_PER_MIN", "5")
	t.Setenv("REFRESH_LOOKAHEAD", "not-a-duration")

	cfg := Load()
	if cfg.HTTPPort != "9000" || cfg.DedupeTTL != 90*time.Second || cfg.RateLimitPerMin != 5 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.RefreshLookahead != 48*time.Hour {
		t.Fatalf("expected fallback lookahead, got %s", cfg.RefreshLookahead)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	err := App{AkashiCompanyID: "acme"}.ValidateAPI()
	if err == nil {
		t.Fatal("expected missing slack settings")
	}
	for _, name := range []string{"SLACK_BOT_TOKEN", "SLACK_SIGNING_SECRET"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected %s in %q", name, err.Error())
		}
	}
	if strings.Contains(err.Error(), "AKASHI_COMPANY_ID") {
		t.Errorf("company id is set, got %q", err.Error())
	}
	if err := (App{AkashiCompanyID: "acme"}).ValidateWorker(); err != nil {
		t.Fatalf("expected worker config to be valid, got %v", err)
	}
}

func TestLocation(t *testing.T) {
	t.Parallel()

	loc := App{TimeZone: "No/Such_Zone"}.Location()
	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
	if offset != 9*60*60 {
		t.Fatalf("expected JST fallback, got offset %d", offset)
	}
}
