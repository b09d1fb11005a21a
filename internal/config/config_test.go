package config

import (
	"net/http"
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":      "postgres://localhost:5432/market",
		"REDIS_URL":         "redis://localhost:6379/0",
		"SESSION_SECRET":    "test-secret",
		"APP_PASSWORD_HASH": "$argon2id$v=19$m=65536,t=1,p=2$c29tZXNhbHQ$c29tZWhhc2g",
		"APP_ENV":           "",
		"PORT":              "",
		"SESSION_TTL":       "",
		"APP_TIMEZONE":      "",
		"COOKIE_SAMESITE":   "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AppEnv != "development" {
		t.Fatalf("AppEnv = %q", cfg.AppEnv)
	}
	if cfg.HTTPAddr() != ":8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr())
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.SessionCookieName != "native_market_session" {
		t.Fatalf("SessionCookieName = %q", cfg.SessionCookieName)
	}
	if cfg.CookieSameSite != http.SameSiteLaxMode {
		t.Fatalf("CookieSameSite = %v", cfg.CookieSameSite)
	}
	if cfg.Timezone != "Asia/Bangkok" {
		t.Fatalf("Timezone = %q", cfg.Timezone)
	}
}

func TestLoadRequiredVars(t *testing.T) {
	for _, missing := range []string{"DATABASE_URL", "REDIS_URL", "SESSION_SECRET", "APP_PASSWORD_HASH"} {
		env := baseEnv()
		env[missing] = ""
		if _, err := LoadForTests(env); err == nil {
			t.Fatalf("expected error when %s is missing", missing)
		}
	}
}

func TestLoadRejectsInvalidTimezone(t *testing.T) {
	env := baseEnv()
	env["APP_TIMEZONE"] = "Not/AZone"
	if _, err := LoadForTests(env); err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PORT"] = "9000"
	env["SESSION_TTL"] = "1h"
	env["COOKIE_SAMESITE"] = "strict"
	env["CORS_ALLOWED_ORIGINS"] = "https://pos.example.com, https://admin.example.com"
	cfg, err := LoadForTests(env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr() != ":9000" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr())
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.CookieSameSite != http.SameSiteStrictMode {
		t.Fatalf("CookieSameSite = %v", cfg.CookieSameSite)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.example.com" {
		t.Fatalf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}
