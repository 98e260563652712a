package adapter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Fields every tapedeck log record carries
const (
	logKeyTime = "ts"
	logKeyApp  = "app"
	logKeyPID  = "pid"
)

const logTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SetupLogger returns a JSON logger appending to cfg.File. An empty path
// discards everything.
func SetupLogger(cfg *LoggingConfig) (*slog.Logger, error) {
	path := expandHome(cfg.File)
	if path == "" {
		return NullLogger(), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	return newJSONLogger(f, parseLogLevel(cfg.Level)), nil
}

func newJSONLogger(w io.Writer, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: renameTime,
	})
	return slog.New(h).With(logKeyApp, "tapedeck", logKeyPID, os.Getpid())
}

// renameTime writes the record time as millisecond RFC 3339 under "ts"
func renameTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.String(logKeyTime, a.Value.Time().Format(logTimeFormat))
	}
	return a
}

// parseLogLevel accepts the slog level names in any case, plus "warning".
// Anything else is INFO.
func parseLogLevel(level string) slog.Level {
	var l slog.Level
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// NullLogger discards all output
func NullLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
