// Package config handles application configuration and environment loading.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds the settings of the resolver service and CLI.
type Config struct {
	SchemaPath string // path to the YAML schema document
	LogLevel   string // log level: debug, info, warn, error (default "info")
	LogFormat  string // "text" (default) or "json"

	// AllowUserSpecifiedID permits INSERTs that assign the id column.
	AllowUserSpecifiedID bool

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// FromEnv loads configuration from EDGEREL_* environment variables.
func FromEnv() *Config {
	cfg := &Config{
		SchemaPath: os.Getenv("EDGEREL_SCHEMA"),
		LogLevel:   envOr("EDGEREL_LOG_LEVEL", "info"),
		LogFormat:  envOr("EDGEREL_LOG_FORMAT", "text"),
	}
	if v := os.Getenv("EDGEREL_ALLOW_USER_SPECIFIED_ID"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			cfg.Warnings = append(cfg.Warnings,
				fmt.Sprintf("invalid EDGEREL_ALLOW_USER_SPECIFIED_ID %q, using false", v))
		}
		cfg.AllowUserSpecifiedID = b
	}
	return cfg
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.SchemaPath == "" {
		return fmt.Errorf("a schema path is required (EDGEREL_SCHEMA or --schema)")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
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

// Logger builds the process logger described by the configuration.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
