// Package dlogger builds the zap loggers handed to archive sessions and
// the command line front end. Three levels cover what the sessions emit:
// info for lifecycle events, debug for per-object staging and transfer
// detail, none to silence a session entirely.
package dlogger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LogLevelInfo logs session lifecycle events
	LogLevelInfo = "info"

	// LogLevelDebug adds per-object staging and transfer detail
	LogLevelDebug = "debug"

	// LogLevelNone disables logging
	LogLevelNone = "none"
)

// GetLogger builds a production zap logger at one of the supported
// levels. Any other level string is rejected.
func GetLogger(logLevel string) (*zap.Logger, error) {
	var lvl zapcore.Level
	switch logLevel {
	case LogLevelNone:
		return zap.NewNop(), nil
	case LogLevelInfo:
		lvl = zapcore.InfoLevel
	case LogLevelDebug:
		lvl = zapcore.DebugLevel
	default:
		return nil, fmt.Errorf("unsupported log level %q", logLevel)
	}
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	return zapConfig.Build()
}

// MustGetLogger is GetLogger, panicking on an unsupported level
func MustGetLogger(logLevel string) *zap.Logger {
	l, err := GetLogger(logLevel)
	if err != nil {
		panic(err)
	}
	return l
}
