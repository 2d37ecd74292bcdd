// Package logger provides the structured logger shared by every component.
// It wraps zap so callers depend on a small surface: named child loggers and
// typed field constructors.
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Field is a single structured logging field
type Field = zap.Field

// Config controls logger construction
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // console or json
	FilePath   string // optional log file, rotated by size
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger is a named structured logger
type Logger struct {
	zap *zap.Logger
}

// New creates a logger from the given configuration
func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "json":
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "", "console":
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log format: %s", cfg.Format)
	}

	sink := zapcore.Lock(os.Stdout)
	if cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    valueOr(cfg.MaxSizeMB, 50),
			MaxBackups: valueOr(cfg.MaxBackups, 5),
			MaxAge:     valueOr(cfg.MaxAgeDays, 14),
			Compress:   true,
		}
		sink = zapcore.NewMultiWriteSyncer(sink, zapcore.AddSync(rotator))
	}

	core := zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(level))
	return &Logger{zap: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))}, nil
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

// Named returns a child logger with the given name appended
func (l *Logger) Named(name string) *Logger {
	return &Logger{zap: l.zap.Named(name)}
}

// With returns a child logger that always carries the given fields
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{zap: l.zap.With(fields...)}
}

// Debug logs at debug level
func (l *Logger) Debug(msg string, fields ...Field) {
	l.zap.Debug(msg, fields...)
}

// Info logs at info level
func (l *Logger) Info(msg string, fields ...Field) {
	l.zap.Info(msg, fields...)
}

// Warn logs at warn level
func (l *Logger) Warn(msg string, fields ...Field) {
	l.zap.Warn(msg, fields...)
}

// Error logs at error level
func (l *Logger) Error(msg string, fields ...Field) {
	l.zap.Error(msg, fields...)
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// Zap exposes the underlying zap logger
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

func valueOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// String constructs a string field
func String(key, value string) Field { return zap.String(key, value) }

// Int constructs an int field
func Int(key string, value int) Field { return zap.Int(key, value) }

// Int64 constructs an int64 field
func Int64(key string, value int64) Field { return zap.Int64(key, value) }

// Float64 constructs a float64 field
func Float64(key string, value float64) Field { return zap.Float64(key, value) }

// Bool constructs a bool field
func Bool(key string, value bool) Field { return zap.Bool(key, value) }

// Error constructs an error field under the "error" key
func Error(err error) Field { return zap.Error(err) }

// Time constructs a time field
func Time(key string, value time.Time) Field { return zap.Time(key, value) }

// Duration constructs a duration field
func Duration(key string, value time.Duration) Field { return zap.Duration(key, value) }

// Any constructs a field from an arbitrary value
func Any(key string, value any) Field { return zap.Any(key, value) }
