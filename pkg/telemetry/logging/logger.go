// Package logging builds the process-wide structured logger from
// configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Config controls logger construction.
type Config struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string

	// Format is the output format: json or text.
	Format string

	// AddSource includes file:line in log records.
	AddSource bool

	// Writer is the output destination. Defaults to os.Stdout.
	Writer io.Writer
}

// levelVar backs the installed handler so the level can be changed at
// runtime (config reload) without rebuilding the logger.
var levelVar slog.LevelVar

// Setup builds a slog.Logger per cfg and installs it as slog's default.
func Setup(cfg Config) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	levelVar.Set(level)

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     &levelVar,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json", "":
		handler = slog.NewJSONHandler(writer, opts)
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	default:
		return nil, fmt.Errorf("unknown log format: %s", cfg.Format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// SetLevel changes the minimum level of the installed logger.
func SetLevel(levelStr string) error {
	level, err := parseLevel(levelStr)
	if err != nil {
		return err
	}
	levelVar.Set(level)
	return nil
}

func parseLevel(levelStr string) (slog.Level, error) {
	switch levelStr {
	case "debug", "DEBUG":
		return slog.LevelDebug, nil
	case "info", "INFO", "":
		return slog.LevelInfo, nil
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn, nil
	case "error", "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}
