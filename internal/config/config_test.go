package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.PageSize != 10 {
		t.Fatalf("expected default page size, got %d", cfg.PageSize)
	}
	if cfg.ProbeTimeout != 5*time.Second {
		t.Fatalf("expected default probe timeout, got %v", cfg.ProbeTimeout)
	}
	if cfg.StorePlatform != "web" {
		t.Fatalf("expected web store platform")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PAGE_SIZE", "25")
	t.Setenv("PROBE_TIMEOUT", "2s")
	t.Setenv("STORE_PLATFORM", "native")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.JWTSecret != "secret" {
		t.Fatalf("expected override secret")
	}
	if cfg.PageSize != 25 {
		t.Fatalf("expected override page size")
	}
	if cfg.ProbeTimeout != 2*time.Second {
		t.Fatalf("expected override probe timeout")
	}
	if cfg.StorePlatform != "native" {
		t.Fatalf("expected override store platform")
	}
}
