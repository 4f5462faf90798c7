// Package logging builds the structured logger every Session component
// writes through. It adapts the config package's LoggingConfig into a
// slog.Logger, with rotation handled by lumberjack when a file sink is
// configured.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/keyframeio/rollback/config"
)

// New builds a slog.Logger tagged with component, honoring cfg's level,
// format, and optional file rotation. A nil cfg falls back to stderr text
// logging at info level; a cfg without a File path writes to stderr.
func New(component string, cfg *config.LoggingConfig) *slog.Logger {
	if cfg == nil {
		cfg = &config.LoggingConfig{Level: "info", Format: "text"}
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	writer := writerFor(cfg)

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	return slog.New(handler).With("component", component)
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func writerFor(cfg *config.LoggingConfig) io.Writer {
	if cfg.File == nil || cfg.File.Path == "" {
		return os.Stderr
	}

	return &lumberjack.Logger{
		Filename:   cfg.File.Path,
		MaxSize:    maxOr(cfg.File.MaxSizeMB, 10),
		MaxBackups: cfg.File.MaxBackups,
		MaxAge:     cfg.File.MaxAgeDays,
		Compress:   cfg.File.Compress,
	}
}

func maxOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
