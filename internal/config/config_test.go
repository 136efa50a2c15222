package config_test

import (
	"testing"
	"time"

	"deck-backend/internal/config"
)

var envKeys = []string{
	"PORT", "UPLOAD_DIR", "BASE_URL", "ALLOWED_ORIGINS",
	"SESSION_STORE", "DATABASE_URL", "SQLITE_PATH", "MONGO_URI", "MONGO_DATABASE",
	"TEMPLATES_DIR", "FEATURE_FLAGS", "SESSION_TTL", "PRUNE_SCHEDULE", "IMAGE_FETCH_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "production")
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8083" || cfg.BaseURL != "http://localhost:8083" {
		t.Errorf("port/base = %q / %q", cfg.Port, cfg.BaseURL)
	}
	if cfg.SessionStore != "sqlite" || cfg.SQLitePath != "./data/sessions.db" {
		t.Errorf("store = %q at %q", cfg.SessionStore, cfg.SQLitePath)
	}
	if cfg.SessionTTL != 720*time.Hour || cfg.ImageFetchTimeout != 10*time.Second {
		t.Errorf("durations = %s / %s", cfg.SessionTTL, cfg.ImageFetchTimeout)
	}
	if cfg.Flags.DemoTemplates() {
		t.Error("demo templates should be off by default")
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:5173" {
		t.Errorf("origins = %q", cfg.AllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://localhost/deck")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("FEATURE_FLAGS", "Demo_Templates")
	t.Setenv("SESSION_TTL", "48h")

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SessionStore != "postgres" {
		t.Errorf("DATABASE_URL should select postgres, got %q", cfg.SessionStore)
	}
	if cfg.BaseURL != "http://localhost:9000" {
		t.Errorf("base = %q", cfg.BaseURL)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("origins = %q", cfg.AllowedOrigins)
	}
	if !cfg.Flags.DemoTemplates() {
		t.Error("demo templates flag not read")
	}
	if cfg.SessionTTL != 48*time.Hour {
		t.Errorf("ttl = %s", cfg.SessionTTL)
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"mysql without dsn": {"SESSION_STORE": "mysql"},
		"mongo without uri": {"SESSION_STORE": "mongo"},
		"unknown store":     {"SESSION_STORE": "redis"},
		"bad ttl":           {"SESSION_TTL": "soon"},
		"negative timeout":  {"IMAGE_FETCH_TIMEOUT": "-1s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := config.Load(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	f := config.ParseFlags(" demo_templates , ,Beta ")
	if !f.Enabled("demo-templates") || !f.Enabled("beta") || len(f) != 2 {
		t.Errorf("flags = %v", f)
	}
	if len(config.ParseFlags("")) != 0 {
		t.Error("empty string should enable nothing")
	}
}
