package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's sugared logger with the handful of conveniences the
// poller uses at every call site.
type Logger struct {
	*zap.SugaredLogger
}

// New builds a Logger at the given level ("debug", "info", "warn", "error").
// Unrecognized or empty levels default to info.
func New(level string) *Logger {
	config := zap.NewProductionConfig()

	switch level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info":
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	built, _ := config.Build()
	return &Logger{built.Sugar()}
}

// Fatal logs at fatal level and exits the process.
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.Fatalw(msg, keysAndValues...)
}

// ForConnection returns a child logger with the connection id attached to
// every subsequent line, so per-tenant log lines can be filtered without
// re-specifying the field at each call site.
func (l *Logger) ForConnection(connectionID int) *Logger {
	return &Logger{l.With("connection_id", connectionID)}
}

// ForCycle returns a child logger with a sync-cycle correlation id
// attached, so all lines from one poll cycle can be grouped.
func (l *Logger) ForCycle(cycleID string) *Logger {
	return &Logger{l.With("cycle_id", cycleID)}
}
