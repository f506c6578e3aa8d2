package logger

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.SugaredLogger]

// InitLogger initializes a global sugared logger at the given level.
// Logs go to stderr so command output on stdout stays machine readable.
func InitLogger(level string) error {
	l, err := build(level)
	if err != nil {
		return err
	}
	current.Store(l)
	return nil
}

func build(level string) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return z.Sugar(), nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// L returns the global sugared logger.
// If InitLogger has not been called, it initializes at info level. Safe for
// concurrent use; racing first callers all get the same logger.
func L() *zap.SugaredLogger {
	if l := current.Load(); l != nil {
		return l
	}
	l, err := build("info")
	if err != nil {
		l = zap.NewNop().Sugar()
	}
	current.CompareAndSwap(nil, l)
	return current.Load()
}

// Sync flushes buffered log entries.
func Sync() {
	if l := current.Load(); l != nil {
		_ = l.Sync()
	}
}
