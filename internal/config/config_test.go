package config

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"7d":  7 * 24 * time.Hour,
		"1d":  24 * time.Hour,
		"90m": 90 * time.Minute,
		"24h": 24 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		if err != nil {
			t.Fatalf("ParseDuration(%q): unexpected error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseDuration(%q): expected %s got %s", in, want, got)
		}
	}

	if _, err := ParseDuration("xd"); err == nil {
		t.Fatal("expected error for malformed day duration")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("JWT_EXPIRE", "")
	t.Setenv("DATABASE_URL", "")

	cfg := Load()
	if cfg.Port != "3000" {
		t.Fatalf("expected default port 3000 got %s", cfg.Port)
	}
	if cfg.JWT.Expiry != 7*24*time.Hour {
		t.Fatalf("expected default jwt expiry 7d got %s", cfg.JWT.Expiry)
	}
	if cfg.IsProduction() {
		t.Fatal("default env must not be production")
	}
}

func TestDSN(t *testing.T) {
	db := DBConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	want := "host=db port=5433 user=u password=p dbname=n sslmode=disable"
	if got := db.DSN(); got != want {
		t.Fatalf("expected %q got %q", want, got)
	}

	db.URL = "postgres://x"
	if got := db.DSN(); got != "postgres://x" {
		t.Fatalf("expected DATABASE_URL to win, got %q", got)
	}
}
