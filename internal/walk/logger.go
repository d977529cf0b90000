package walk

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel defines the verbosity of logging.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the zap name of the level.
func (l LogLevel) String() string {
	return l.zapLevel().String()
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelWarn:
		return zap.WarnLevel
	case LogLevelInfo:
		return zap.InfoLevel
	case LogLevelDebug:
		return zap.DebugLevel
	default:
		return zap.ErrorLevel
	}
}

// NewLogger creates a zap logger with the specified log level.
// Debug loggers use the development config with colored level names.
func NewLogger(level LogLevel) *zap.Logger {
	var config zap.Config

	if level == LogLevelDebug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level.zapLevel())

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
