// Package logging provides the leveled logger used across the engine,
// worker, and transport layers.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// LogLevel represents the available log levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Config holds logging configuration.
type Config struct {
	Level   LogLevel
	Format  string // "text" (console writer) or "json"
	Output  io.Writer
	NoColor bool
}

// DefaultConfig returns a sensible default configuration: leveled
// console output to stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// Logger wraps a zerolog.Logger with the small level-named surface the
// rest of this module uses.
type Logger struct {
	zl zerolog.Logger
}

var (
	defaultLogger *Logger
	mu            sync.RWMutex
)

// NewLogger builds a Logger from Config, defaulting to DefaultConfig()
// when config is nil.
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	var writer io.Writer = output
	if config.Format != "json" {
		writer = zerolog.ConsoleWriter{Out: output, NoColor: config.NoColor, TimeFormat: "15:04:05"}
	}

	zl := zerolog.New(writer).With().Timestamp().Logger().Level(config.Level.zerolog())
	return &Logger{zl: zl}
}

// Default returns the process-wide default logger, creating it on
// first use.
func Default() *Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

// SetDefault replaces the process-wide default logger.
func SetDefault(logger *Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = logger
}

func (l *Logger) event(level LogLevel) *zerolog.Event {
	switch level {
	case LevelDebug:
		return l.zl.Debug()
	case LevelWarn:
		return l.zl.Warn()
	case LevelError:
		return l.zl.Error()
	default:
		return l.zl.Info()
	}
}

func withArgs(e *zerolog.Event, args []any) *zerolog.Event {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, args[i+1])
	}
	return e
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	withArgs(l.event(level), args).Msg(msg)
}

func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }

// Printf gives the Logger interface expected by internal/interfaces.Logger.
func (l *Logger) Printf(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

// Debugf is the printf-style counterpart used by interfaces.Logger.
func (l *Logger) Debugf(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

// WithPort returns a child logger tagged with the transport port name,
// e.g. "/dev/ttyUSB0".
func (l *Logger) WithPort(port string) *Logger {
	return &Logger{zl: l.zl.With().Str("port", port).Logger()}
}

// WithEngine tags log lines with the owning protocol engine ("sahara"
// or "dload").
func (l *Logger) WithEngine(name string) *Logger {
	return &Logger{zl: l.zl.With().Str("engine", name).Logger()}
}

// WithOp tags log lines with the in-flight operation name, e.g.
// "memory-read" or "image-transfer".
func (l *Logger) WithOp(op string) *Logger {
	return &Logger{zl: l.zl.With().Str("op", op).Logger()}
}

// WithError attaches an error to every subsequent log line on the
// returned child logger.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{zl: l.zl.With().Err(err).Logger()}
}

// Global convenience functions operating on the default logger.

func Debug(msg string, args ...any) { Default().Debug(msg, args...) }
func Info(msg string, args ...any)  { Default().Info(msg, args...) }
func Warn(msg string, args ...any)  { Default().Warn(msg, args...) }
func Error(msg string, args ...any) { Default().Error(msg, args...) }
