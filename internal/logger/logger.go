// Package logger provides leveled, component-scoped logging for the ingest sensor.
//
// A single global logger is initialized from configuration at startup and writes
// to both stdout and a log file. Components obtain their own scoped logger via
// NewComponentLogger, which tags every line with the component name.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level represents the severity of a log message
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// String returns the string representation of a log level
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level, defaulting to INFO
func ParseLevel(level string) Level {
	switch level {
	case "debug", "DEBUG":
		return DEBUG
	case "info", "INFO":
		return INFO
	case "warn", "warning", "WARN":
		return WARN
	case "error", "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Logger writes leveled log messages tagged with a component name
type Logger struct {
	component string
	level     Level
	output    io.Writer
	mu        sync.Mutex
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// Initialize sets up the global logger writing to stdout and the given file.
// An empty file path logs to stdout only.
func Initialize(logFile string, level string) error {
	output := io.Writer(os.Stdout)

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		output = io.MultiWriter(os.Stdout, file)
	}

	globalMu.Lock()
	globalLogger = &Logger{
		component: "main",
		level:     ParseLevel(level),
		output:    output,
	}
	globalMu.Unlock()

	return nil
}

// NewComponentLogger creates a logger scoped to one component, inheriting the
// global level and output. Falls back to stdout/INFO before Initialize.
func NewComponentLogger(component string) *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalLogger == nil {
		return &Logger{component: component, level: INFO, output: os.Stdout}
	}
	return &Logger{
		component: component,
		level:     globalLogger.level,
		output:    globalLogger.output,
	}
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	message := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.output, "%s [%s] [%s] %s\n", timestamp, level, l.component, message)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) { l.log(INFO, format, args...) }

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) { l.log(WARN, format, args...) }

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// Global logging functions for code that has no component logger of its own

func Debug(format string, args ...interface{}) { global().Debug(format, args...) }
func Info(format string, args ...interface{})  { global().Info(format, args...) }
func Warn(format string, args ...interface{})  { global().Warn(format, args...) }
func Error(format string, args ...interface{}) { global().Error(format, args...) }

func global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalLogger == nil {
		return &Logger{component: "main", level: INFO, output: log.Writer()}
	}
	return globalLogger
}
