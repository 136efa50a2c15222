// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// FlagDemoTemplates shows every built-in template in the catalog.
const FlagDemoTemplates = "demo-templates"

type Config struct {
	Port           string
	AllowedOrigins []string
	BaseURL        string
	UploadDir      string

	SessionStore  string
	DatabaseURL   string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string

	TemplatesDir string
	Flags        Flags

	SessionTTL        time.Duration
	PruneSchedule     string
	ImageFetchTimeout time.Duration
}

// Load reads .env outside production, then the environment.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, reading from environment")
		}
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8083"),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SQLitePath:    getEnv("SQLITE_PATH", "./data/sessions.db"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: getEnv("MONGO_DATABASE", "deck"),
		TemplatesDir:  os.Getenv("TEMPLATES_DIR"),
		Flags:         ParseFlags(os.Getenv("FEATURE_FLAGS")),
		PruneSchedule: getEnv("PRUNE_SCHEDULE", "@daily"),
	}
	cfg.BaseURL = getEnv("BASE_URL", "http://localhost:"+cfg.Port)

	for _, o := range strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	cfg.SessionStore = strings.ToLower(os.Getenv("SESSION_STORE"))
	if cfg.SessionStore == "" {
		cfg.SessionStore = "sqlite"
		if cfg.DatabaseURL != "" {
			cfg.SessionStore = "postgres"
		}
	}
	switch cfg.SessionStore {
	case "sqlite":
	case "postgres", "mysql":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("SESSION_STORE=%s needs DATABASE_URL", cfg.SessionStore)
		}
	case "mongo":
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("SESSION_STORE=mongo needs MONGO_URI")
		}
	default:
		return nil, fmt.Errorf("unknown SESSION_STORE %q", cfg.SessionStore)
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 720*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ImageFetchTimeout, err = getDuration("IMAGE_FETCH_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

// Flags is the set of enabled feature flags.
type Flags map[string]bool

// ParseFlags reads a comma separated flag list. Names are trimmed, lower-cased and
// "_" is read as "-". Unknown names are kept but nothing looks at them.
func ParseFlags(s string) Flags {
	flags := Flags{}
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		f = strings.ReplaceAll(f, "_", "-")
		if f != "" {
			flags[f] = true
		}
	}
	return flags
}

func (f Flags) Enabled(name string) bool { return f[name] }

func (f Flags) DemoTemplates() bool { return f.Enabled(FlagDemoTemplates) }
