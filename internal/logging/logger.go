// Package logging provides zap logger helpers.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the shared application logger. It defaults to a no-op logger so
// packages can log safely before InitLogger runs.
var L = zap.NewNop()

// InitLogger builds the global logger. Development mode is selected via
// the STANDARDS_LOG_DEV environment variable so logging is usable before
// configuration has been loaded.
func InitLogger() {
	development := os.Getenv("STANDARDS_LOG_DEV") == "true"
	logger, err := New(development)
	if err != nil {
		// Fall back to a basic production logger rather than aborting.
		logger = zap.Must(zap.NewProduction())
	}
	L = logger
}

// New builds a zap.Logger configured for development or production.
func New(development bool) (*zap.Logger, error) {
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return logger, nil
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = false
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}
