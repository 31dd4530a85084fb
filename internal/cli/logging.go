package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/goliatone/go-hive"
	"github.com/goliatone/go-hive/pkg/hivelog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the tree logger: tint on stderr for text, zap JSON for
// json. The returned func flushes buffered output.
func newLogger(cfg Config) (hive.Logger, func(), error) {
	if cfg.LogFormat == "json" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		zapCfg := zap.NewProductionConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(level)
		zapCfg.OutputPaths = []string{"stderr"}
		logger, err := zapCfg.Build()
		if err != nil {
			return nil, nil, fmt.Errorf("build zap logger: %w", err)
		}
		return hivelog.Zap(logger), func() { _ = logger.Sync() }, nil
	}

	level, err := hivelog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	handler := hivelog.NewTerminalHandler(os.Stderr, level)
	return hivelog.Slog(slog.New(handler)), func() {}, nil
}
