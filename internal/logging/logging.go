// Package logging configures the process-wide slog.Logger once at
// startup, following cmd/root.go's setupLogging: always to stderr so
// stdout stays free for piped diff input, level controlled by verbosity
// count (-v -> Debug, default -> Info).
package logging

import (
	"log/slog"
	"os"
)

// Setup installs a text handler at the level implied by verbosity (0 =
// Info, >=1 = Debug) as the process-wide default logger, and returns it.
func Setup(verbosity int) *slog.Logger {
	level := slog.LevelInfo
	if verbosity > 0 {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
