// Package log wraps a global zap.SugaredLogger so components without an
// injected logger can still produce structured output.
package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	_mu      sync.Mutex
	_default *zap.SugaredLogger
)

// Default returns the global logger, configuring it on first use.
func Default() *zap.SugaredLogger {
	_mu.Lock()
	defer _mu.Unlock()

	if _default == nil {
		_default = configure(DefaultConfig())
	}
	return _default
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() zap.Config {
	return zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.InfoLevel),
		Sampling:    nil,
		Encoding:    "console",
		OutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:     "message",
			NameKey:        "logger_name",
			LevelKey:       "level",
			TimeKey:        "ts",
			CallerKey:      "caller",
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
	}
}

// ConfigureLogger builds the global logger from config and returns it.
func ConfigureLogger(config zap.Config) *zap.SugaredLogger {
	_mu.Lock()
	defer _mu.Unlock()

	_default = configure(config)
	return _default
}

func configure(config zap.Config) *zap.SugaredLogger {
	logger, err := config.Build()
	if err != nil {
		panic(err)
	}
	return logger.Sugar()
}

// Debug logs at debug level on the global logger.
func Debug(args ...interface{}) { Default().Debug(args...) }

// Info logs at info level on the global logger.
func Info(args ...interface{}) { Default().Info(args...) }

// Warn logs at warn level on the global logger.
func Warn(args ...interface{}) { Default().Warn(args...) }

// Error logs at error level on the global logger.
func Error(args ...interface{}) { Default().Error(args...) }

// Fatal logs at fatal level on the global logger, then exits.
func Fatal(args ...interface{}) { Default().Fatal(args...) }

// Debugf logs a formatted message at debug level on the global logger.
func Debugf(format string, args ...interface{}) { Default().Debugf(format, args...) }

// Infof logs a formatted message at info level on the global logger.
func Infof(format string, args ...interface{}) { Default().Infof(format, args...) }

// Warnf logs a formatted message at warn level on the global logger.
func Warnf(format string, args ...interface{}) { Default().Warnf(format, args...) }

// Errorf logs a formatted message at error level on the global logger.
func Errorf(format string, args ...interface{}) { Default().Errorf(format, args...) }

// Fatalf logs a formatted message at fatal level on the global logger, then
// exits.
func Fatalf(format string, args ...interface{}) { Default().Fatalf(format, args...) }

// With returns the global logger with the given key value pairs attached.
func With(args ...interface{}) *zap.SugaredLogger { return Default().With(args...) }
