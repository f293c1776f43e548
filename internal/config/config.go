// Package config provides the ironseal CLI configuration through
// environment variables, optionally read from a .env file.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all CLI configuration. Command-line flags override it.
type Config struct {
	// KeyFile is the path of the installation master key file.
	KeyFile string
	// Purpose names the confidential key derived from the master key.
	Purpose string
	// LegacySecret, when set, enables decoding of values written under the
	// historical key derived from this text.
	LegacySecret string

	// StorePath is the BBolt database file holding projects.
	StorePath string
	// PostgresDSN selects PostgreSQL storage instead of BBolt when set.
	PostgresDSN string

	// LogLevel is the logging level ("debug", "info", "warn", "error").
	LogLevel string

	// UpgradeConcurrency bounds how many projects an upgrade rewrites at once.
	UpgradeConcurrency int

	// MetricsTextfile, when set, is where upgrade metrics are written in
	// Prometheus text format.
	MetricsTextfile string
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	loadDotEnv()

	return &Config{
		KeyFile:      env.GetString("IRONSEAL_KEY_FILE", "ironseal.key"),
		Purpose:      env.GetString("IRONSEAL_PURPOSE", "project"),
		LegacySecret: env.GetString("IRONSEAL_LEGACY_SECRET", ""),

		StorePath:   env.GetString("IRONSEAL_STORE_PATH", "ironseal.db"),
		PostgresDSN: env.GetString("IRONSEAL_POSTGRES_DSN", ""),

		LogLevel: env.GetString("IRONSEAL_LOG_LEVEL", "info"),

		UpgradeConcurrency: env.GetInt("IRONSEAL_UPGRADE_CONCURRENCY", 4),

		MetricsTextfile: env.GetString("IRONSEAL_METRICS_TEXTFILE", ""),
	}
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	return ParseLevel(c.LogLevel)
}

// ParseLevel maps a level name to a slog level. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadDotEnv searches for a .env file from the current directory up to the
// root and loads the first one found. Variables already set win.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
