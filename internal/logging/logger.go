package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel string

const (
	// LogLevelQuiet suppresses all output except critical errors
	LogLevelQuiet LogLevel = "quiet"
	// LogLevelNormal shows standard operational messages
	LogLevelNormal LogLevel = "normal"
	// LogLevelVerbose shows detailed operational information
	LogLevelVerbose LogLevel = "verbose"
	// LogLevelDebug shows all debug information
	LogLevelDebug LogLevel = "debug"
)

// Logger provides structured logging for backup operations. Passwords and
// decrypted payloads are never passed to any of its methods.
type Logger struct {
	logger *logrus.Logger
	level  LogLevel
}

// Config holds logger configuration
type Config struct {
	Level  LogLevel
	Output io.Writer
	Format string // "text" or "json"
}

// NewLogger creates a new logger with the specified configuration
func NewLogger(config Config) *Logger {
	logger := logrus.New()

	if config.Output != nil {
		logger.SetOutput(config.Output)
	} else {
		logger.SetOutput(os.Stderr)
	}

	switch config.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	switch config.Level {
	case LogLevelQuiet:
		logger.SetLevel(logrus.ErrorLevel)
	case LogLevelVerbose:
		logger.SetLevel(logrus.DebugLevel)
	case LogLevelDebug:
		logger.SetLevel(logrus.TraceLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Logger{
		logger: logger,
		level:  config.Level,
	}
}

// NewDefaultLogger creates a logger with default configuration
func NewDefaultLogger() *Logger {
	return NewLogger(Config{
		Level:  LogLevelNormal,
		Format: "text",
	})
}

// WithFields returns a logger entry with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.logger.WithFields(fields)
}

// WithField returns a logger entry with a single additional field
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.logger.WithField(key, value)
}

// Backup operation logging methods

// LogExport logs the outcome of a store export
func (l *Logger) LogExport(people, contexts, evidence int, blobSize int64, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation": "export",
		"people":    people,
		"contexts":  contexts,
		"evidence":  evidence,
		"blob_size": blobSize,
		"duration":  duration.String(),
	}

	if err != nil {
		fields["error"] = err.Error()
		l.logger.WithFields(fields).Error("Store export failed")
	} else {
		l.logger.WithFields(fields).Info("Store export completed")
	}
}

// LogImport logs the outcome of a blob import
func (l *Logger) LogImport(version int, people, contexts, evidence int, duration time.Duration, err error) {
	fields := logrus.Fields{
		"operation": "import",
		"version":   version,
		"people":    people,
		"contexts":  contexts,
		"evidence":  evidence,
		"duration":  duration.String(),
	}

	if err != nil {
		fields["error"] = err.Error()
		l.logger.WithFields(fields).Error("Blob import failed")
	} else {
		l.logger.WithFields(fields).Info("Blob import completed")
	}
}

// LogRestorePhase logs one phase of the restore sequence
func (l *Logger) LogRestorePhase(phase string, records int, duration time.Duration) {
	l.logger.WithFields(logrus.Fields{
		"operation": "restore",
		"phase":     phase,
		"records":   records,
		"duration":  duration.String(),
	}).Debug("Restore phase completed")
}

// LogDroppedReferences logs dangling evidence references dropped at relink time
func (l *Logger) LogDroppedReferences(evidenceID string, people, contexts int) {
	l.logger.WithFields(logrus.Fields{
		"operation":        "restore",
		"evidence_id":      evidenceID,
		"dropped_people":   people,
		"dropped_contexts": contexts,
	}).Warn("Dropped unresolvable evidence references")
}

// Standard logging methods

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.logger.Info(msg)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.logger.Debug(msg)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.logger.Warn(msg)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.logger.Error(msg)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
	switch level {
	case LogLevelQuiet:
		l.logger.SetLevel(logrus.ErrorLevel)
	case LogLevelNormal:
		l.logger.SetLevel(logrus.InfoLevel)
	case LogLevelVerbose:
		l.logger.SetLevel(logrus.DebugLevel)
	case LogLevelDebug:
		l.logger.SetLevel(logrus.TraceLevel)
	}
}

// LogOperationStart logs the start of an operation and returns a function
// to log completion
func (l *Logger) LogOperationStart(operation string, fields map[string]interface{}) func(error) {
	startTime := time.Now()

	logFields := logrus.Fields{
		"operation": operation,
		"status":    "started",
	}
	for k, v := range fields {
		logFields[k] = v
	}

	l.logger.WithFields(logFields).Debug("Operation started")

	return func(err error) {
		logFields["status"] = "completed"
		logFields["duration"] = time.Since(startTime).String()

		if err != nil {
			logFields["error"] = err.Error()
			l.logger.WithFields(logFields).Error("Operation failed")
		} else {
			l.logger.WithFields(logFields).Info("Operation completed")
		}
	}
}

// ParseLevel converts a string into a LogLevel, defaulting to normal
func ParseLevel(s string) (LogLevel, error) {
	switch LogLevel(s) {
	case LogLevelQuiet, LogLevelNormal, LogLevelVerbose, LogLevelDebug:
		return LogLevel(s), nil
	case "":
		return LogLevelNormal, nil
	default:
		return LogLevelNormal, fmt.Errorf("unknown log level: %s", s)
	}
}
