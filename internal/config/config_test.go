package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const baseYAML = `
server:
  port: "9090"
  mode: %s
database:
  driver: %s
  sqlite_path: ":memory:"
redis:
  catalog_ttl_seconds: 60
jwt:
  secret: "%s"
cors:
  allowed_origins:
    - http://localhost:3000
`

func writeConfig(t *testing.T, mode, driver, secret string) string {
	t.Helper()
	dir := t.TempDir()
	body := []byte(fmt.Sprintf(baseYAML, mode, driver, secret))
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), body, 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, "debug", "sqlite", "short")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Database.Driver != "sqlite" || cfg.Database.SQLitePath != ":memory:" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Redis.CatalogTTL != time.Minute {
		t.Errorf("catalog ttl = %v, want 1m", cfg.Redis.CatalogTTL)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 {
		t.Errorf("allowed origins = %v", cfg.CORS.AllowedOrigins)
	}
	// defaults fill what the file leaves out
	if cfg.Storage.Type != "local" || cfg.Storage.FixturesObject != "fixtures.json" || cfg.RateLimit.MaxRequests != 600 {
		t.Errorf("defaults not applied: %+v %+v", cfg.Storage, cfg.RateLimit)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := writeConfig(t, "debug", "mysql", "short")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("QUIZHUB_SERVER_PORT", "7070")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Server.Port != "7070" || cfg.Log.Level != "warn" {
		t.Errorf("overrides not applied: driver=%s port=%s level=%s", cfg.Database.Driver, cfg.Server.Port, cfg.Log.Level)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		driver string
		secret string
	}{
		{name: "short secret in release", mode: "release", driver: "mysql", secret: "short"},
		{name: "unknown driver", mode: "debug", driver: "oracle", secret: "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeConfig(t, tt.mode, tt.driver, tt.secret)
			if _, err := LoadConfig(dir); err == nil {
				t.Error("expected an error")
			}
		})
	}

	dir := writeConfig(t, "release", "mysql", "0123456789abcdef0123456789abcdef")
	if _, err := LoadConfig(dir); err != nil {
		t.Errorf("32 char secret rejected: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Error("expected an error for a missing config file")
	}
}
