package internal

import (
	"log/slog"
	"os"
	"strings"
)

// GetLoggerFromString builds the process logger from a LOG_LEVEL value.
// Unknown values fall back to INFO.
func GetLoggerFromString(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
