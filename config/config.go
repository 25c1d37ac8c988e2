package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Store backends for timeline and briefing data.
const (
	StoreFile     = "file"
	StoreSupabase = "supabase"
)

// Config carries everything main wires up at boot. Values come from
// the environment, with an optional .env file loaded first.
type Config struct {
	// Port the HTTP/websocket listener binds to.
	Port string

	// DataDir is the root for file-backed storage (events, briefings,
	// timelines) when StoreBackend is "file".
	DataDir string

	// StoreBackend selects the timeline store: "file" or "supabase".
	StoreBackend string

	// ArchiveDir is the badger directory for session annotation and
	// comment archival. Empty disables archival.
	ArchiveDir string

	// SupabaseURL and SupabaseKey are required when StoreBackend is
	// "supabase".
	SupabaseURL string
	SupabaseKey string

	// LogLevel is a logrus level name, default "info".
	LogLevel string
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded when present; real environment variables
// win over it.
func Load() (*Config, error) {
	// Missing .env is fine, env vars alone are a valid setup.
	_ = godotenv.Load()

	cfg := &Config{
		Port:         envOr("PORT", "8080"),
		DataDir:      envOr("DATA_DIR", "./data"),
		StoreBackend: envOr("STORE_BACKEND", StoreFile),
		ArchiveDir:   os.Getenv("ARCHIVE_DIR"),
		SupabaseURL:  os.Getenv("SUPABASE_URL"),
		SupabaseKey:  envOr("SUPABASE_SERVICE_KEY", os.Getenv("SUPABASE_ANON_KEY")),
		LogLevel:     envOr("LOG_LEVEL", "info"),
	}

	switch cfg.StoreBackend {
	case StoreFile:
	case StoreSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return nil, fmt.Errorf("store backend %q requires SUPABASE_URL and SUPABASE_SERVICE_KEY", cfg.StoreBackend)
		}
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
