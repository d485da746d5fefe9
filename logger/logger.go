package logger

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bdpiprava/esquery/internal"
)

// Key is a type for context key
type Key string

const loggerKey Key = "context-logger"

// configRoot is the root of logger config
type configRoot struct {
	LogLevel string `yaml:"log_level"` // LogLevel is the log level
}

var (
	baseLogger = logrus.NewEntry(logrus.New())
	configured sync.Once
)

// configure reads the log level from the config file once, missing files fall back to info
func configure() {
	configured.Do(func() {
		config, err := internal.ReadConfigAs[configRoot]()
		if err != nil {
			baseLogger.WithError(err).Debug("failed to read log config, initializing with default")
		}

		level, err := logrus.ParseLevel(config.LogLevel)
		if err != nil {
			level = logrus.InfoLevel
		}

		baseLogger.Logger.SetLevel(level)
	})
}

// Base returns the process wide logger
func Base() *logrus.Entry {
	configure()
	return baseLogger
}

// SetLevel overrides the level read from the config file
func SetLevel(level logrus.Level) {
	configure()
	baseLogger.Logger.SetLevel(level)
}

// New returns a logger named after the component using it
func New(name string) logrus.FieldLogger {
	return Base().WithField("name", name)
}

// OrNew returns log when set, otherwise a new logger with the given name
func OrNew(log logrus.FieldLogger, name string) logrus.FieldLogger {
	if log != nil {
		return log
	}
	return New(name)
}

// WithLogger returns a copy of ctx carrying log
func WithLogger(ctx context.Context, log logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the logger from the context, or the base logger when none is set
func FromContext(ctx context.Context) logrus.FieldLogger {
	if ctx != nil {
		if log, ok := ctx.Value(loggerKey).(logrus.FieldLogger); ok {
			return log
		}
	}
	return Base()
}
