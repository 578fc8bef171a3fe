package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "LOG_FORMAT", "LOG_LEVEL", "ACCESS_TOKEN_TTL_MINUTES",
		"RUN_STATUS_TTL_SECONDS", "MAX_BILL_AMOUNT", "EXACT_MARGIN", "ASYNC_DAY_THRESHOLD",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("default port = %q", cfg.Port)
	}
	if cfg.LogFormat != "json" || cfg.LogLevel != "info" {
		t.Fatalf("default log config = %q/%q", cfg.LogFormat, cfg.LogLevel)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("default token ttl = %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.RunStatusTTLSeconds != 600 {
		t.Fatalf("default status ttl = %d", cfg.RunStatusTTLSeconds)
	}
	if cfg.MaxBillAmount != 4000 || cfg.ExactMargin != 10 {
		t.Fatalf("default bill bounds = %v/%v", cfg.MaxBillAmount, cfg.ExactMargin)
	}
	if cfg.AsyncDayThreshold != 7 {
		t.Fatalf("default async threshold = %d", cfg.AsyncDayThreshold)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("address = %q", cfg.Address())
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_BILL_AMOUNT", "2500")
	t.Setenv("EXACT_MARGIN", "5")
	t.Setenv("ASYNC_DAY_THRESHOLD", "3")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.MaxBillAmount != 2500 || cfg.ExactMargin != 5 {
		t.Fatalf("bill bounds = %v/%v", cfg.MaxBillAmount, cfg.ExactMargin)
	}
	if cfg.AsyncDayThreshold != 3 {
		t.Fatalf("async threshold = %d", cfg.AsyncDayThreshold)
	}
}

func TestLoadFallsBackOnBadNumbers(t *testing.T) {
	t.Setenv("MAX_BILL_AMOUNT", "not-a-number")
	t.Setenv("EXACT_MARGIN", "-4")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "0")

	cfg := Load()
	if cfg.MaxBillAmount != 4000 {
		t.Fatalf("max bill = %v, want default", cfg.MaxBillAmount)
	}
	if cfg.ExactMargin != 10 {
		t.Fatalf("margin = %v, want default", cfg.ExactMargin)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("token ttl = %d, want default", cfg.AccessTokenTTLMinutes)
	}
}
