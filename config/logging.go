package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type LoggingConfig struct {
	Level     string `yaml:"level" env:"PRIMON_LOGGING_LEVEL" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=error"`
	Format    string `yaml:"format" env:"PRIMON_LOGGING_FORMAT" jsonschema:"enum=text,enum=json"`
	AddSource bool   `yaml:"add_source" env:"PRIMON_LOGGING_ADD_SOURCE"`
}

// NewLogger builds the process logger described by c.
func (c LoggingConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: c.AddSource,
	}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(c.Format)) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown logging.format: %s", c.Format)
	}

	return slog.New(h), nil
}

// LevelTrace also enables the debug output of the whatsapp client.
const LevelTrace = slog.LevelDebug - 4

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown logging.level: %s", s)
	}
}

// Install builds the logger and makes it the slog default.
func (c LoggingConfig) Install(w io.Writer) (*slog.Logger, error) {
	logger, err := c.NewLogger(w)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
