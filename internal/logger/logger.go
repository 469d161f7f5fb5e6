package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup installs a JSON slog handler as the default logger. An empty level
// falls back to LOG_LEVEL, then INFO.
func Setup(level string) *slog.Logger {
	return SetupWriter(os.Stdout, level)
}

func SetupWriter(w io.Writer, level string) *slog.Logger {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	l := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
	slog.SetDefault(l)
	return l
}

func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo // Default to Info if not set or invalid
	}
}
