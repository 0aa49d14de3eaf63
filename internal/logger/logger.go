// Package logger provides leveled logging for the notesync CLI.
// Debug and Info messages are emitted only in verbose mode (--verbose);
// warnings and errors are always emitted. Records are written through
// log/slog as text or, with --log-format json, as JSON lines.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Format selects the slog handler.
type Format string

// Supported output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	format            = FormatText
	log               = newLogger(output, format)
)

func newLogger(w io.Writer, f Format) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// timestamps make CLI output noisy and tests nondeterministic
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}
	if f == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	log = newLogger(output, format)
}

// SetFormat selects text or JSON output.
func SetFormat(f Format) error {
	if f != FormatText && f != FormatJSON {
		return fmt.Errorf("unknown log format %q", f)
	}
	mu.Lock()
	defer mu.Unlock()
	format = f
	log = newLogger(output, format)
	return nil
}

// Logger returns the underlying slog logger for components that take one.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func emit(level slog.Level, always bool, msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !always && !verbose {
		return
	}
	log.Log(context.Background(), level, fmt.Sprintf(msg, args...))
}

// Debug logs a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	emit(slog.LevelDebug, false, format, args...)
}

// Info logs an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	emit(slog.LevelInfo, false, format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	emit(slog.LevelWarn, true, format, args...)
}

// Error logs an error.
func Error(format string, args ...any) {
	emit(slog.LevelError, true, format, args...)
}

// Section logs a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		log.Info("=== "+name+" ===", slog.String("section", name))
	}
}
