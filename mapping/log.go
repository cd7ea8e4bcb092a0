package mapping

import (
	"context"
	"log/slog"
)

// LevelTrace sits between Info and Warn so that search progress can be kept in
// a log file without turning on debug output.
const LevelTrace slog.Level = slog.LevelInfo + 1

// Trace logs at LevelTrace with the default logger.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}
