package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/sessionflow/sessionflow/pkg/config"
)

// Logger is the structured logger used across the codebase.
type Logger = log.Logger

var (
	mu            sync.RWMutex
	defaultLogger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	logFile       *os.File
)

// Init configures the default logger from global config: level, and an
// optional log file (truncated unless logging.persist is set).
func Init() error {
	settings := config.Get()

	level, err := log.ParseLevel(settings.Logging.Level)
	if err != nil {
		level = log.InfoLevel
	}

	out := io.Writer(os.Stderr)
	if path := settings.Logging.LogFile; path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create log directory: %w", err)
			}
		}
		flags := os.O_CREATE | os.O_WRONLY
		if settings.Logging.Persist {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(path, flags, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		out = f

		mu.Lock()
		logFile = f
		mu.Unlock()
	}

	l := log.NewWithOptions(out, log.Options{ReportTimestamp: true})
	l.SetLevel(level)

	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	return nil
}

// WithComponent returns a logger scoped to a named component.
func WithComponent(name string) *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger.With("component", name)
}

// SetOutput redirects the default logger's output. Useful for tests.
func SetOutput(w io.Writer) {
	mu.RLock()
	defer mu.RUnlock()
	defaultLogger.SetOutput(w)
}

// Close closes the log file, if one was opened.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		return err
	}
	return nil
}

// Package-level convenience functions using the default logger.

func Debug(msg any, keyvals ...any) {
	mu.RLock()
	defer mu.RUnlock()
	defaultLogger.Debug(msg, keyvals...)
}

func Info(msg any, keyvals ...any) {
	mu.RLock()
	defer mu.RUnlock()
	defaultLogger.Info(msg, keyvals...)
}

func Warn(msg any, keyvals ...any) {
	mu.RLock()
	defer mu.RUnlock()
	defaultLogger.Warn(msg, keyvals...)
}

func Error(msg any, keyvals ...any) {
	mu.RLock()
	defer mu.RUnlock()
	defaultLogger.Error(msg, keyvals...)
}
