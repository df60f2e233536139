// Package logging provides the structured logger shared by every component.
// It keeps a small Fields-based API on top of zap.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Fields is a set of structured key/value pairs attached to a log entry
type Fields map[string]any

// Level is a logging severity
type Level int8

const (
	DebugLevel Level = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Logger is the logging interface used throughout the codebase
type Logger interface {
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(err error, msg string, fields ...Fields)
	WithFields(fields Fields) Logger
}

// Config controls how a Logger is built
type Config struct {
	Level    Level
	Encoding string // "json" or "console"
	Output   []string
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

var (
	atomicLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	defaultOnce   sync.Once
	defaultLogger Logger
)

// New builds a zap-backed Logger. The level is shared with SetLevel so that
// verbosity can be changed after construction.
func New(cfg Config) (Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = atomicLevel
	atomicLevel.SetLevel(cfg.Level.zapLevel())
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.DisableStacktrace = true

	if cfg.Encoding != "" {
		zcfg.Encoding = cfg.Encoding
	}
	if zcfg.Encoding == "console" {
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if len(cfg.Output) > 0 {
		zcfg.OutputPaths = cfg.Output
	} else {
		zcfg.OutputPaths = []string{"stderr"}
	}

	base, err := zcfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &zapLogger{sugar: base.Sugar()}, nil
}

// NewDefaultLogger returns the process-wide console logger writing to stderr
func NewDefaultLogger() Logger {
	defaultOnce.Do(func() {
		l, err := New(Config{Level: InfoLevel, Encoding: "console"})
		if err != nil {
			l = NewNop()
		}
		defaultLogger = l
	})
	return defaultLogger
}

// NewNop returns a Logger that discards everything
func NewNop() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}

// WithFields returns the default logger with fields attached
func WithFields(fields Fields) Logger {
	return NewDefaultLogger().WithFields(fields)
}

// SetLevel changes the level for every logger built by this package
func SetLevel(level Level) {
	atomicLevel.SetLevel(level.zapLevel())
}

// ParseLevel converts a textual level ("debug", "info", "warn", "error")
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", s)
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (z *zapLogger) Debug(msg string, fields ...Fields) {
	z.sugar.Debugw(msg, flatten(fields)...)
}

func (z *zapLogger) Info(msg string, fields ...Fields) {
	z.sugar.Infow(msg, flatten(fields)...)
}

func (z *zapLogger) Warn(msg string, fields ...Fields) {
	z.sugar.Warnw(msg, flatten(fields)...)
}

func (z *zapLogger) Error(err error, msg string, fields ...Fields) {
	kv := flatten(fields)
	if err != nil {
		kv = append(kv, "error", err.Error())
	}
	z.sugar.Errorw(msg, kv...)
}

func (z *zapLogger) WithFields(fields Fields) Logger {
	return &zapLogger{sugar: z.sugar.With(flatten([]Fields{fields})...)}
}

// flatten turns Fields into the alternating key/value list zap's sugared API expects
func flatten(fields []Fields) []any {
	n := 0
	for _, f := range fields {
		n += len(f) * 2
	}
	kv := make([]any, 0, n)
	for _, f := range fields {
		for k, v := range f {
			kv = append(kv, k, v)
		}
	}
	return kv
}
