package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the agent's zap logger from the LOG_LEVEL environment
// variable (debug, info, warn, error; defaults to info). Output is JSON with
// ISO8601 timestamps so trade events stay machine-parseable.
func NewLogger() (*zap.Logger, error) {
	return NewLoggerAtLevel(os.Getenv("LOG_LEVEL"))
}

// NewLoggerAtLevel builds a production logger at the given level. An empty
// level means info.
func NewLoggerAtLevel(levelStr string) (*zap.Logger, error) {
	if levelStr == "" {
		levelStr = "info"
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger, nil
}
