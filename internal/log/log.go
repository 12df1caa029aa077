// Package log provides a simplified logging interface for MiniMessenger.
// It wraps go.uber.org/zap to provide a consistent logging experience with
// sensible defaults and convenient helper functions for different log levels.
package log

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu sync.RWMutex
	// Logger is the global logger instance.
	// It's configured for production JSON output by default.
	Logger = newLogger()
)

func newLogger() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)

	LOG_LEVEL := os.Getenv("LOG_LEVEL")
	if LOG_LEVEL != "" {
		switch LOG_LEVEL {
		case "debug":
			cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		default:
		}
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableCaller = true

	l, err := cfg.Build()
	if err != nil {
		// If we can't build the logger, fall back to a no-op logger
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// SetLogger replaces the global logger and returns a function restoring the
// previous one. Tests use it with zaptest/observer to assert on log output.
func SetLogger(l *zap.SugaredLogger) (restore func()) {
	mu.Lock()
	prev := Logger
	Logger = l
	mu.Unlock()
	return func() {
		mu.Lock()
		Logger = prev
		mu.Unlock()
	}
}

// Sync flushes any buffered log entries.
func Sync() { _ = current().Sync() }

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return Logger
}

// Info logs a message at info level with optional key-value pairs.
func Info(msg string, kv ...any) { current().Infow(msg, kv...) }

// Infof logs a formatted message at info level.
func Infof(format string, a ...any) { current().Infof(format, a...) }

// Warn logs a message at warn level with optional key-value pairs.
func Warn(msg string, kv ...any) { current().Warnw(msg, kv...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, a ...any) { current().Warnf(format, a...) }

// Error logs a message at error level with optional key-value pairs.
func Error(msg string, kv ...any) { current().Errorw(msg, kv...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, a ...any) { current().Errorf(format, a...) }

// Debug logs a message at debug level with optional key-value pairs.
func Debug(msg string, kv ...any) { current().Debugw(msg, kv...) }

// Debugf logs a formatted message at debug level.
func Debugf(format string, a ...any) { current().Debugf(format, a...) }

// Fatal logs a message at fatal level with optional key-value pairs,
// then calls os.Exit(1).
func Fatal(msg string, kv ...any) { current().Fatalw(msg, kv...) }

// Fatalf logs a formatted message at fatal level, then calls os.Exit(1).
func Fatalf(format string, a ...any) { current().Fatalf(format, a...) }
