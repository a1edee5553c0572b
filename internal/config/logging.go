package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jrick/logrotate/rotator"
	"github.com/rs/zerolog"
)

// LogLevel represents logging verbosity levels.
type LogLevel int

// Log level constants.
const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelDebug
)

const (
	defaultRotateKB    = 10 * 1024
	defaultRotateRolls = 3
	logTimeFormat      = "2006-01-02 15:04:05.000"
)

// ParseLogLevel parses a log level string.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LogLevelOff
	case "error":
		return LogLevelError
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelError
	}
}

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelError:
		return "error"
	case LogLevelDebug:
		return "debug"
	default:
		return "error"
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LogLevelOff:
		return zerolog.Disabled
	case LogLevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.ErrorLevel
	}
}

// LogOptions tunes file rotation and encoding.
type LogOptions struct {
	MaxSizeKB int64 // rotate once the file exceeds this size
	MaxRolls  int   // rotated files kept
	JSON      bool  // one JSON object per line instead of console text
}

// Logger writes leveled log lines to a rotating file through zerolog.
type Logger struct {
	mu       sync.Mutex
	level    LogLevel
	out      io.WriteCloser
	zl       zerolog.Logger
	json     bool
	filePath string
}

// NewLogger creates a new logger with default rotation settings.
func NewLogger(level LogLevel, filePath string) (*Logger, error) {
	return NewLoggerWithOptions(level, filePath, LogOptions{})
}

// NewStructuredLogger creates a logger that writes JSON lines.
func NewStructuredLogger(level LogLevel, filePath string) (*Logger, error) {
	return NewLoggerWithOptions(level, filePath, LogOptions{JSON: true})
}

// NewLoggerWithOptions creates a logger writing to filePath. Nothing is
// opened when level is off or filePath is empty.
func NewLoggerWithOptions(level LogLevel, filePath string, opts LogOptions) (*Logger, error) {
	logger := &Logger{
		level:    level,
		filePath: filePath,
		json:     opts.JSON,
		zl:       zerolog.Nop(),
	}

	if level == LogLevelOff || filePath == "" {
		return logger, nil
	}

	filePath = ExpandPath(filePath)

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, err
	}

	maxKB := opts.MaxSizeKB
	if maxKB <= 0 {
		maxKB = defaultRotateKB
	}
	rolls := opts.MaxRolls
	if rolls <= 0 {
		rolls = defaultRotateRolls
	}
	r, err := rotator.New(filePath, maxKB, false, rolls)
	if err != nil {
		return nil, err
	}

	logger.out = r
	logger.filePath = filePath
	logger.rebuild()

	return logger, nil
}

// rebuild recreates the zerolog logger for the current level and encoding.
// Callers hold mu or own the logger exclusively.
func (l *Logger) rebuild() {
	if l.out == nil {
		l.zl = zerolog.Nop()
		return
	}

	var w io.Writer = zerolog.SyncWriter(l.out)
	if !l.json {
		w = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    true,
			TimeFormat: logTimeFormat,
			FormatLevel: func(i any) string {
				return "[" + strings.ToUpper(fmt.Sprint(i)) + "]"
			},
		}
	}
	l.zl = zerolog.New(w).Level(l.level.zerolog()).With().Timestamp().Logger()
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out != nil {
		err := l.out.Close()
		l.out = nil
		l.zl = zerolog.Nop()
		return err
	}
	return nil
}

// SetLevel changes the log level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	l.rebuild()
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetJSONOutput switches between JSON lines and console text.
func (l *Logger) SetJSONOutput(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.json = enabled
	l.rebuild()
}

// Structured returns the underlying zerolog logger for field-rich events,
// or nil when the logger writes nowhere.
func (l *Logger) Structured() *zerolog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil || l.level == LogLevelOff {
		return nil
	}
	zl := l.zl
	return &zl
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LogLevelDebug, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LogLevelError, format, args...)
}

// Writer returns an io.Writer that writes to the logger at the specified level.
func (l *Logger) Writer(level LogLevel) io.Writer {
	return &logWriter{logger: l, level: level}
}

// log writes a log message if the level is appropriate.
func (l *Logger) log(level LogLevel, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.level == LogLevelOff || level > l.level || l.out == nil {
		return
	}

	var event *zerolog.Event
	if level == LogLevelDebug {
		event = l.zl.Debug()
	} else {
		event = l.zl.Error()
	}
	event.Msgf(format, args...)
}

// logWriter implements io.Writer for the logger.
type logWriter struct {
	logger *Logger
	level  LogLevel
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.logger.log(w.level, "%s", strings.TrimSpace(string(p)))
	return len(p), nil
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return &Logger{level: LogLevelOff, zl: zerolog.Nop()}
}
