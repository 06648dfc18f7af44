// Package logger wraps zap construction for the Realtivo binaries.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger holds the process-wide structured logger.
type Logger struct {
	Log *zap.Logger
}

// New returns a Logger backed by a no-op zap logger until Init is called.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces the logger with a JSON production logger at level
// writing to stderr.
func (l *Logger) Init(level string) error {
	return l.InitTo(level, "stderr")
}

// InitTo is Init with explicit output paths (files, "stdout", "stderr").
// An empty path list keeps the no-op logger.
func (l *Logger) InitTo(level string, paths ...string) error {
	if len(paths) == 0 || (len(paths) == 1 && paths[0] == "") {
		return nil
	}
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
