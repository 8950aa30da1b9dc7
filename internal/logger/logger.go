// Package logger wraps zap construction so every binary configures
// structured logging the same way.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger holds the process-wide zap logger.
type Logger struct {
	// Log is a no-op logger until Init succeeds.
	Log *zap.Logger
}

// New returns a Logger backed by a no-op zap logger.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces the no-op logger with a production JSON logger at the
// given level ("debug", "info", "warn", "error"; case-insensitive).
func (l *Logger) Init(level string) error {
	return l.InitWithPaths(level, []string{"stderr"})
}

// InitWithPaths is like Init but writes to the given output paths. The
// terminal front end uses it to keep log lines out of the rendered screen.
func (l *Logger) InitWithPaths(level string, paths []string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.OutputPaths = paths
	zl, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	l.Log = zl
	return nil
}
