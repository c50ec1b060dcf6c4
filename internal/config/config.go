package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"notesdb/internal/report"
	"notesdb/internal/source"
	"notesdb/internal/storage"
)

// Config holds all configuration for the application.
type Config struct {
	DBPath        string
	DBDriver      string
	SourceDir     string
	SourcePattern string
	StatsPath     string
	ReportFormat  string
	BatchSize     int
	TopN          int
	NoteConflict  storage.ConflictPolicy
	LogLevel      slog.Level
	LogFormat     string
	APIPort       string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the rest.
// If a .env file exists in the current directory or a parent, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		DBPath:        getEnv("NOTES_DB_PATH", "./notes.db"),
		DBDriver:      getEnv("NOTES_DB_DRIVER", storage.DriverCGO),
		SourceDir:     getEnv("NOTES_SOURCE_DIR", "individual_notes"),
		SourcePattern: getEnv("NOTES_SOURCE_PATTERN", source.DefaultPattern),
		StatsPath:     getEnv("NOTES_STATS_PATH", "database_stats.json"),
		ReportFormat:  strings.ToLower(getEnv("NOTES_REPORT_FORMAT", report.FormatJSON)),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "text")),
		APIPort:       getEnv("API_PORT", "9000"),
	}

	if cfg.BatchSize, err = getInt("NOTES_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("NOTES_BATCH_SIZE must be greater than 0")
	}
	if cfg.TopN, err = getInt("NOTES_TOP_N", report.DefaultTopN); err != nil {
		return nil, err
	}
	if cfg.TopN <= 0 {
		return nil, fmt.Errorf("NOTES_TOP_N must be greater than 0")
	}

	if cfg.NoteConflict, err = storage.ParseConflictPolicy(getEnv("NOTES_NOTE_CONFLICT", "replace")); err != nil {
		return nil, fmt.Errorf("NOTES_NOTE_CONFLICT: %w", err)
	}
	if cfg.NoteConflict == storage.PolicyAppend {
		return nil, fmt.Errorf("NOTES_NOTE_CONFLICT: %w: notes are keyed by note_id", storage.ErrInvalidPolicy)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	switch cfg.DBDriver {
	case storage.DriverCGO, storage.DriverPureGo:
	default:
		return nil, fmt.Errorf("NOTES_DB_DRIVER must be %q or %q, got %q", storage.DriverCGO, storage.DriverPureGo, cfg.DBDriver)
	}
	switch cfg.ReportFormat {
	case report.FormatJSON, report.FormatYAML:
	default:
		return nil, fmt.Errorf("NOTES_REPORT_FORMAT must be %q or %q, got %q", report.FormatJSON, report.FormatYAML, cfg.ReportFormat)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be \"text\" or \"json\", got %q", cfg.LogFormat)
	}

	return cfg, nil
}

// Policies returns the default per-table policies with the configured note policy.
func (c *Config) Policies() storage.Policies {
	p := storage.DefaultPolicies()
	p[storage.TableNotes] = c.NoteConflict
	return p
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	s := getEnv(key, "")
	if s == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}
