// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging configures the process-wide diagnostic logger.
//
// All log output goes to stderr. stdout is reserved for protocol frames
// when the server runs over the stdio transport; a single stray log line
// there corrupts message framing for the client.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger options, set from the CLI flags.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error.
	Level string

	// Format is "json" or "console".
	Format string
}

// New builds a zerolog logger writing to stderr.
func New(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(out).With().Timestamp().Logger()
	if strings.ToLower(cfg.Format) == "json" {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	return logger.Level(parseLevel(cfg.Level))
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
