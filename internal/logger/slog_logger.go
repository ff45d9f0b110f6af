package logger

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// NewSlogLogger creates a standalone JSON logger writing to w.
// A nil writer writes to stdout and a nil timezone uses time.Local.
// It is mostly used in tests:
//
//	testLogger := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	if w == nil {
		w = os.Stdout
	}
	if tz == nil {
		tz = time.Local
	}

	slogLevel := parseLogLevel(string(level))
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       slogLevel,
		ReplaceAttr: timezoneReplacer(tz, false),
	})

	return &moduleLogger{
		logger:   slog.New(handler),
		level:    slogLevel,
		timezone: tz,
	}
}

// newTextHandler builds the console handler. Timestamps are omitted.
func newTextHandler(w io.Writer, level slog.Level, tz *time.Location) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: timezoneReplacer(tz, true),
	})
}

// timezoneReplacer converts time attributes to tz and optionally drops the record time.
func timezoneReplacer(tz *time.Location, dropRecordTime bool) func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) == 0 && a.Key == slog.TimeKey {
			if dropRecordTime {
				return slog.Attr{}
			}
		}
		if a.Key == slog.LevelKey {
			if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == traceLevelValue {
				return slog.String(slog.LevelKey, "TRACE")
			}
		}
		if a.Value.Kind() == slog.KindTime {
			return slog.Time(a.Key, a.Value.Time().In(tz))
		}
		return a
	}
}
