package util

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName tags every log line of the generator
const ServiceName = "ecommerce-datagen"

var (
	logger   *zap.Logger
	loggerMu sync.Mutex
)

// InitLogger builds the global logger for env. An empty level keeps the
// env default: info in production, debug otherwise.
func InitLogger(env, level string) error {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		config.Level = lvl
	}
	config.InitialFields = map[string]interface{}{"service": ServiceName}

	l, err := config.Build()
	if err != nil {
		return err
	}
	SetLogger(l)
	return nil
}

// SetLogger replaces the global logger
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()

	zap.ReplaceGlobals(l)
}

// GetLogger returns the global logger
func GetLogger() *zap.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logger == nil {
		logger, _ = zap.NewDevelopment()
	}
	return logger
}

// RunLogger scopes the global logger to one generation run, so lines from
// concurrent or repeated runs can be told apart by seed.
func RunLogger(seed int64, workers int) *zap.Logger {
	return GetLogger().With(zap.Int64("seed", seed), zap.Int("workers", workers))
}

// SyncLogger flushes any buffered log entries
func SyncLogger() {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logger != nil {
		_ = logger.Sync()
	}
}
