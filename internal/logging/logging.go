// Package logging provides categorized structured logging for dirigent,
// built on zap. Each subsystem logs under its own named logger so output
// can be filtered per category. Until Initialize is called, all loggers
// are no-ops, which keeps library use silent by default.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a logging subsystem.
type Category string

const (
	CategoryBoot     Category = "boot"
	CategoryDetect   Category = "detect"
	CategoryProvider Category = "provider"
	CategoryEngine   Category = "engine"
	CategoryRanking  Category = "ranking"
	CategoryBudget   Category = "budget"
	CategoryStore    Category = "store"
)

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Initialize installs the root logger. debug lowers the level to Debug.
// Safe to call more than once; the last call wins.
func Initialize(debug bool) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	SetRoot(logger)
	return nil
}

// SetRoot replaces the root logger directly. Tests use this with
// zaptest.NewLogger to capture output.
func SetRoot(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = zap.NewNop()
	}
	root = logger
}

// Get returns the named logger for a category.
func Get(cat Category) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(string(cat))
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
