package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("COMMISSION_RATE", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_HOST", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.Store.Driver != "local" {
		t.Fatalf("expected local driver, got %q", cfg.Store.Driver)
	}
	if cfg.TokenTTL != 72*time.Hour {
		t.Fatalf("expected 72h token ttl, got %s", cfg.TokenTTL)
	}
	if cfg.CommissionRate.String() != "0.14" {
		t.Fatalf("expected commission 0.14, got %s", cfg.CommissionRate)
	}
	if cfg.Redis.Addr != "" {
		t.Fatalf("expected notifications disabled, got redis addr %q", cfg.Redis.Addr)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing")
	}
}

func TestLoadRejectsBadCommission(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	for _, v := range []string{"abc", "-0.1", "1", "1.5"} {
		t.Setenv("COMMISSION_RATE", v)
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for COMMISSION_RATE=%q", v)
		}
	}
}

func TestLoadPostgresDSN(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_USER", "vault")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_NAME", "coinvault")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	want := "postgres://vault:pw@db:5432/coinvault"
	if cfg.Store.DSN != want {
		t.Fatalf("expected dsn %q, got %q", want, cfg.Store.DSN)
	}
}

func TestLoadUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STORE_DRIVER", "mongo")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
