package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	t.Cleanup(os.Clearenv)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Database.Name != "bankdesk" {
		t.Errorf("Database.Name: got %q, want %q", cfg.Database.Name, "bankdesk")
	}
	if cfg.Auth.TokenExpiry != 1*time.Hour {
		t.Errorf("Auth.TokenExpiry: got %v, want %v", cfg.Auth.TokenExpiry, 1*time.Hour)
	}
	if cfg.Audit.RetentionDays != 365 {
		t.Errorf("Audit.RetentionDays: got %d, want 365", cfg.Audit.RetentionDays)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("Server.ReadTimeout: got %v, want %v", cfg.Server.ReadTimeout, 15*time.Second)
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() with missing JWT_SECRET should fail")
	}
}

func TestLoad_WeakJWTSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "short")
	os.Setenv("DB_PASSWORD", "test")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() with short JWT_SECRET should fail")
	}
}

func TestLoad_ProductionSecretLength(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "only-twenty-characters")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("ENV", "production")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() in production with <32 char secret should fail")
	}
}

func TestLoad_CustomDurations(t *testing.T) {
	setRequiredEnv(t)
	os.Setenv("TOKEN_EXPIRY", "30m")
	os.Setenv("AUDIT_PRUNE_INTERVAL", "6h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Auth.TokenExpiry != 30*time.Minute {
		t.Errorf("Auth.TokenExpiry: got %v, want %v", cfg.Auth.TokenExpiry, 30*time.Minute)
	}
	if cfg.Audit.PruneInterval != 6*time.Hour {
		t.Errorf("Audit.PruneInterval: got %v, want %v", cfg.Audit.PruneInterval, 6*time.Hour)
	}
}

func TestDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: 5433, User: "svc", Password: "pw", Name: "bankdesk", SSLMode: "require",
	}
	want := "host=db port=5433 user=svc password=pw dbname=bankdesk sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN(): got %q, want %q", got, want)
	}
}
