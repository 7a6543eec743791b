// Package logger provides leveled, printf-style logging with colored
// console output and optional per-logger log files.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
)

// LogLevel controls which messages a logger emits
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

var levelColors = map[LogLevel]*color.Color{
	DEBUG: color.New(color.FgWhite),
	INFO:  color.New(color.FgGreen),
	WARN:  color.New(color.FgYellow),
	ERROR: color.New(color.FgRed),
	FATAL: color.New(color.FgRed, color.Bold),
}

var (
	globalMu    sync.RWMutex
	globalLevel = INFO
)

// SetGlobalLogLevel sets the minimum level for all loggers
func SetGlobalLogLevel(level LogLevel) {
	globalMu.Lock()
	globalLevel = level
	globalMu.Unlock()
}

// Logger writes timestamped, prefixed log lines to the console and,
// if configured, to a file
type Logger struct {
	prefix string
	mu     sync.Mutex
	file   *os.File
}

// Predefined loggers for the two programs in this module
var (
	Server = New("SERVER")
	Client = New("CLIENT")
)

// New creates a logger with the given prefix
func New(prefix string) *Logger {
	return &Logger{prefix: prefix}
}

// SetFile directs a copy of this logger's output to the given file path
func (l *Logger) SetFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.mu.Lock()
	if l.file != nil {
		l.file.Close()
	}
	l.file = f
	l.mu.Unlock()
	return nil
}

// InitializeFileLogging creates dir if needed and gives the predefined
// loggers log files inside it
func InitializeFileLogging(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := Server.SetFile(filepath.Join(dir, "server.log")); err != nil {
		return err
	}
	return Client.SetFile(filepath.Join(dir, "client.log"))
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	globalMu.RLock()
	min := globalLevel
	globalMu.RUnlock()
	if level < min {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] [%s] [%s] %s", timestamp, levelNames[level], l.prefix, msg)

	l.mu.Lock()
	levelColors[level].Fprintln(os.Stdout, line)
	if l.file != nil {
		fmt.Fprintln(l.file, line)
	}
	l.mu.Unlock()
}

// Debug logs a debug-level message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info logs an info-level message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn logs a warning-level message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error logs an error-level message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

// Fatal logs an error-level message and exits the process
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(FATAL, format, args...)
	os.Exit(1)
}
