// Package log provides logging to both console and a log file.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileName is the name of the log file created in the log directory.
const FileName = "testkit.log"

// Logger writes output to both console and a log file.
type Logger struct {
	mu     sync.Mutex
	file   *os.File
	writer io.Writer
	stderr io.Writer
}

// New creates a new logger that writes to both console and a log file in logDir.
func New(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, FileName)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return newLogger(file, os.Stdout, os.Stderr), nil
}

func newLogger(file *os.File, stdout, stderr io.Writer) *Logger {
	return &Logger{
		file:   file,
		writer: io.MultiWriter(stdout, file),
		stderr: stderr,
	}
}

// Printf writes a formatted message to console and log file.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintf(l.writer, format, args...)
}

// Errorf writes a timestamped error message to stderr and log file.
func (l *Logger) Errorf(format string, args ...interface{}) {
	formatted := stamp(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprint(l.stderr, formatted)
	_, _ = fmt.Fprint(l.file, formatted)
}

// Debugf writes a timestamped message to the log file only.
func (l *Logger) Debugf(format string, args ...interface{}) {
	formatted := stamp(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprint(l.file, formatted)
}

// Path returns the log file path.
func (l *Logger) Path() string {
	return l.file.Name()
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func stamp(format string, args ...interface{}) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	return fmt.Sprintf("[%s] %s\n", timestamp, fmt.Sprintf(format, args...))
}

// Global logger instance
var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// Init initializes the global logger and points Go's standard log package at the
// log file so stray log.Printf calls do not interleave with command output.
func Init(logDir string) error {
	logger, err := New(logDir)
	if err != nil {
		return err
	}

	globalMu.Lock()
	prev := globalLogger
	globalLogger = logger
	globalMu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}

	stdlog.SetOutput(logger.file)
	stdlog.SetFlags(stdlog.Ldate | stdlog.Ltime)

	return nil
}

func global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Printf uses the global logger to print formatted output.
func Printf(format string, args ...interface{}) {
	if l := global(); l != nil {
		l.Printf(format, args...)
	} else {
		fmt.Printf(format, args...)
	}
}

// Errorf uses the global logger to print formatted error output.
func Errorf(format string, args ...interface{}) {
	if l := global(); l != nil {
		l.Errorf(format, args...)
	} else {
		fmt.Fprint(os.Stderr, stamp(format, args...))
	}
}

// Debugf records a message in the log file. It is silent until Init is called, so
// library code can log without cluttering test output.
func Debugf(format string, args ...interface{}) {
	if l := global(); l != nil {
		l.Debugf(format, args...)
	}
}

// Close closes the global logger and restores the standard log output.
func Close() error {
	globalMu.Lock()
	l := globalLogger
	globalLogger = nil
	globalMu.Unlock()

	if l == nil {
		return nil
	}
	stdlog.SetOutput(os.Stderr)
	return l.Close()
}
