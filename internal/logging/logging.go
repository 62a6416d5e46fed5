// Package logging provides the planner's shared structured logger: a
// single package-level *zap.Logger constructed once at startup and
// used throughout, rather than each package building its own.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log *zap.Logger
)

func init() {
	log = zap.NewNop()
}

// Init builds the shared logger. level is one of zapcore's level names
// ("debug", "info", "warn", "error"); jsonFormat selects JSON vs
// console encoding.
func Init(level string, jsonFormat bool) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if !jsonFormat {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	built, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	log = built
	mu.Unlock()
	return nil
}

// L returns the shared logger. Safe to call before Init (returns a
// no-op logger so library code never needs a nil check).
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Sync flushes any buffered log entries; call before process exit.
func Sync() {
	_ = L().Sync()
}
