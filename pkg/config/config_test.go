package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PORT", "ALLOWED_ORIGINS", "LOG_LEVEL", "HTTP_TIMEOUT", "BACKEND_BASE_URL",
		"RELAY_URL", "RELAY_CC", "KAFKA_BROKERS", "STORE_DRIVER", "REDIS_URL",
		"DATABASE_URL", "IDENTIFIER_TTL", "NOTIFICATION_DURATION", "REDIRECT_DELAY", "FALLBACK_URL",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BACKEND_BASE_URL", "https://cms.example.com/")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BackendBaseURL != "https://cms.example.com" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.BackendBaseURL)
	}
	if cfg.Port != "8080" || cfg.StoreDriver != "memory" || cfg.HTTPTimeout != 20*time.Second {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.NotificationDuration != 5*time.Second || cfg.RedirectDelay != 3*time.Second {
		t.Fatalf("unexpected display defaults %+v", cfg)
	}
}

func TestLoadConfigRequiresBackend(t *testing.T) {
	clearEnv(t)
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected an error without BACKEND_BASE_URL")
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
  allowed_origins: ["https://site.example.com", " "]
  http_timeout: 5s
backend:
  base_url: https://cms.example.com
relay:
  url: https://relay.example.com/sales
  cc: [ops@example.com]
store:
  driver: sqlite
  database_url: file:cache.db
notify:
  duration: 8s
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PORT", "7070")
	t.Setenv("REDIRECT_DELAY", "4")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Fatalf("env should override the file, got port %q", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://site.example.com" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.HTTPTimeout != 5*time.Second || cfg.NotificationDuration != 8*time.Second {
		t.Fatalf("file durations not applied %+v", cfg)
	}
	if cfg.RedirectDelay != 4*time.Second {
		t.Fatalf("bare seconds should parse, got %v", cfg.RedirectDelay)
	}
	if cfg.StoreDriver != "sqlite" || cfg.DatabaseURL != "file:cache.db" {
		t.Fatalf("store not configured from file %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if len(cfg.RelayCC) != 1 || cfg.RelayURL != "https://relay.example.com/sales" {
		t.Fatalf("relay not configured from file %+v", cfg)
	}
}

func TestLoadConfigMissingFileIsIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("BACKEND_BASE_URL", "https://cms.example.com")
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("a missing config file should be ignored: %v", err)
	}
}

func TestLoadConfigStoreValidation(t *testing.T) {
	tests := []struct {
		driver string
		ok     bool
	}{
		{"memory", true},
		{"redis", false},
		{"postgres", false},
		{"mongo", false},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("BACKEND_BASE_URL", "https://cms.example.com")
			t.Setenv("STORE_DRIVER", tt.driver)
			_, err := LoadConfig("")
			if (err == nil) != tt.ok {
				t.Fatalf("driver %s: err = %v", tt.driver, err)
			}
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "Europe/Berlin"}
	if loc := cfg.Location(); loc.String() != "Europe/Berlin" {
		t.Fatalf("unexpected location %s", loc)
	}
	cfg.Timezone = "Not/AZone"
	if cfg.Location() != time.Local {
		t.Fatalf("an unknown zone should fall back to local time")
	}
}
