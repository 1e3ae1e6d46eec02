// Package logger is the process-wide leveled logger. Until Init is called
// every function is a no-op, so library packages can log unconditionally.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Options configures the console logger.
type Options struct {
	Debug bool
	// Writer defaults to stderr; stdout is reserved for command output.
	Writer io.Writer
}

var instance *log.Logger

// Init installs a console logger. Calling it again replaces the previous one.
func Init(opts Options) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	level := log.InfoLevel
	if opts.Debug {
		level = log.DebugLevel
	}
	instance = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
}

// Reset removes the installed logger.
func Reset() {
	instance = nil
}

// With returns a child logger carrying keyvals, or nil when logging is off.
func With(keyvals ...any) *log.Logger {
	if instance == nil {
		return nil
	}
	return instance.With(keyvals...)
}

// Debug writes a message at DEBUG level.
func Debug(message string, keyvals ...any) {
	if instance == nil {
		return
	}
	instance.Debug(message, keyvals...)
}

// Info writes a message at INFO level.
func Info(message string, keyvals ...any) {
	if instance == nil {
		return
	}
	instance.Info(message, keyvals...)
}

// Warn writes a message at WARN level.
func Warn(message string, keyvals ...any) {
	if instance == nil {
		return
	}
	instance.Warn(message, keyvals...)
}

// Error writes a message at ERROR level.
func Error(message string, keyvals ...any) {
	if instance == nil {
		return
	}
	instance.Error(message, keyvals...)
}
