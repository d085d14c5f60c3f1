// Package logging wraps zap with the small key/value API used across the
// pipeline.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a logger for the given mode (see ParseMode). An unknown
// level falls back to info.
func New(mode, level string) (*Logger, error) {
	// The TUI owns stdout; keep log lines off it.
	return build(mode, level, "stderr")
}

// NewFile is like New but writes to the given path, used while the TUI is
// running.
func NewFile(mode, level, path string) (*Logger, error) {
	return build(mode, level, path)
}

// ParseMode reports whether mode selects production output. Accepted
// modes are "production", "prod", "development", "dev" and "" in any
// case; ok is false for anything else.
func ParseMode(mode string) (production, ok bool) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		return true, true
	case "", "dev", "development":
		return false, true
	}
	return false, false
}

func build(mode, level, output string) (*Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if prod, _ := ParseMode(mode); prod {
		cfg = zap.NewProductionConfig()
	}

	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.Set(strings.ToLower(level)); err != nil {
			lvl = zapcore.InfoLevel
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{output}
	cfg.ErrorOutputPaths = []string{output}

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, keysAndValues...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, keysAndValues...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, keysAndValues...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}

// Named returns a child logger scoped to a pipeline component.
func (l *Logger) Named(component string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(component)}
}

// OrNop lets constructors accept a nil logger.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return l
}
