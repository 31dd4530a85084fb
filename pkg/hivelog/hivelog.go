// Package hivelog adapts hive.Logger to zap and slog.
package hivelog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/goliatone/go-hive"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
)

// Zap forwards events to l. Successful operations log at debug level,
// failures at warn. A nil logger discards events.
func Zap(l *zap.Logger) hive.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return hive.LoggerFunc(func(event hive.LogEvent) {
		fields := []zap.Field{
			zap.String("op", event.Op),
			zap.Duration("duration", event.Duration),
		}
		if event.Path != "" {
			fields = append(fields, zap.String("path", event.Path))
		}
		if event.Engine != "" {
			fields = append(fields, zap.String("engine", event.Engine), zap.String("expr", event.Expr))
		}
		if event.Err != nil {
			l.Warn("hive", append(fields, zap.Error(event.Err))...)
			return
		}
		l.Debug("hive", fields...)
	})
}

// Slog forwards events to l with the same levels as Zap. A nil logger uses
// slog.Default.
func Slog(l *slog.Logger) hive.Logger {
	if l == nil {
		l = slog.Default()
	}
	return hive.LoggerFunc(func(event hive.LogEvent) {
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("op", event.Op),
			slog.String("path", event.Path),
			slog.String("engine", event.Engine),
			slog.String("expr", event.Expr),
			slog.Duration("duration", event.Duration),
		}
		if event.Err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.Any("err", event.Err))
		}
		l.LogAttrs(context.Background(), level, "hive", attrs...)
	})
}

// NewTerminalHandler returns a tint handler writing to f. Colour is enabled
// only when f is a terminal. Empty attributes are dropped so events without
// an engine stay short.
func NewTerminalHandler(f *os.File, level slog.Leveler) slog.Handler {
	return newTintHandler(colorable.NewColorable(f), level, !isatty.IsTerminal(f.Fd()))
}

func newTintHandler(w io.Writer, level slog.Leveler, noColor bool) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:       level,
		TimeFormat:  "15:04:05.000",
		NoColor:     noColor,
		ReplaceAttr: dropEmpty,
	})
}

func dropEmpty(_ []string, a slog.Attr) slog.Attr {
	skip := false
	switch t := a.Value.Any().(type) {
	case string:
		skip = t == ""
	case time.Duration:
		skip = t == 0
	case nil:
		skip = true
	}
	if skip {
		return slog.Attr{}
	}
	return a
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}
